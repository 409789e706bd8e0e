package parsers

import (
	"bytes"
	"errors"

	"github.com/xuri/excelize/v2"
)

// XLSXParser parses the first worksheet of an Excel workbook
type XLSXParser struct{}

// CanParse returns true for .xlsx and .xlsm files
func (p *XLSXParser) CanParse(filename string) bool {
	return hasExt(filename, ".xlsx", ".xlsm")
}

func (p *XLSXParser) Type() string { return "xlsx" }

// Parse returns the cell values of the first sheet as displayed. Formulas are
// not evaluated; their cached values are used.
func (p *XLSXParser) Parse(_ string, content []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return &Table{Sheet: sheets[0], Rows: rows}, nil
}
