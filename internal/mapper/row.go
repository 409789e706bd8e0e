package mapper

import "strings"

// Row is one header-labeled spreadsheet row. Header order is kept because the
// substring fallback in ResolveField scans headers in column order.
type Row struct {
	keys   []string
	values map[string]string
}

// NewRow builds a row from alternating header/value pairs
func NewRow(pairs ...string) Row {
	r := Row{values: make(map[string]string, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

// Set assigns a value. A repeated header overwrites the value but keeps its first position.
func (r *Row) Set(header, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[header]; !ok {
		r.keys = append(r.keys, header)
	}
	r.values[header] = value
}

// Get returns the value under an exact header
func (r Row) Get(header string) string {
	return r.values[header]
}

// Headers returns the headers in column order
func (r Row) Headers() []string {
	return r.keys
}

// Blank reports whether every value is empty after trimming
func (r Row) Blank() bool {
	for _, v := range r.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// FromMatrix turns a matrix whose first row holds the headers into labeled rows.
// Short rows read as empty cells; cells beyond the header are dropped.
func FromMatrix(matrix [][]string) []Row {
	if len(matrix) == 0 {
		return nil
	}
	header := matrix[0]
	rows := make([]Row, 0, len(matrix)-1)
	for _, cells := range matrix[1:] {
		r := Row{values: make(map[string]string, len(header))}
		for i, h := range header {
			v := ""
			if i < len(cells) {
				v = cells[i]
			}
			r.Set(h, v)
		}
		rows = append(rows, r)
	}
	return rows
}
