package parsers

import (
	"bytes"
	"encoding/csv"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVParser parses comma or semicolon separated reports
type CSVParser struct{}

// CanParse returns true for .csv files
func (p *CSVParser) CanParse(filename string) bool {
	return hasExt(filename, ".csv")
}

func (p *CSVParser) Type() string { return "csv" }

// Parse reads every record. Ragged rows are allowed; the mapper pads them.
func (p *CSVParser) Parse(_ string, content []byte) (*Table, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sniffDelimiter(content)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return &Table{Rows: rows}, nil
}

// sniffDelimiter picks ';' when the header line has more semicolons than
// commas, as spreadsheet exports in French locales do
func sniffDelimiter(content []byte) rune {
	line, _, _ := strings.Cut(string(content), "\n")
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}
