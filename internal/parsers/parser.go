// Package parsers turns report files into header-first cell matrices.
package parsers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// Table is the cell matrix of one sheet. Rows[0] holds the headers.
type Table struct {
	Sheet string
	Rows  [][]string
}

// Parser is the interface for report file parsers
type Parser interface {
	// CanParse returns true if this parser can handle the given filename
	CanParse(filename string) bool

	// Parse extracts the first sheet of the file content
	Parse(filename string, content []byte) (*Table, error)

	// Type names the source format recorded with a loaded report
	Type() string
}

// GetAllParsers returns all available parsers
func GetAllParsers() []Parser {
	return []Parser{
		&CSVParser{},
		&XLSXParser{},
	}
}

// ForFile picks the parser for a filename
func ForFile(filename string) (Parser, error) {
	for _, p := range GetAllParsers() {
		if p.CanParse(filename) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unsupported report file %q: use .csv, .xlsx or .xlsm", filepath.Base(filename))
}

// ParseFile reads and parses a report file from disk
func ParseFile(path string) (*Table, models.Source, error) {
	p, err := ForFile(path)
	if err != nil {
		return nil, models.Source{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, models.Source{}, err
	}
	return ParseContent(p, filepath.Base(path), content)
}

// ParseContent parses already-read content with p
func ParseContent(p Parser, name string, content []byte) (*Table, models.Source, error) {
	t, err := p.Parse(name, content)
	if err != nil {
		return nil, models.Source{}, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if len(t.Rows) == 0 {
		return nil, models.Source{}, fmt.Errorf("%s has no header row", name)
	}
	return t, models.Source{Type: p.Type(), Name: name, Sheet: t.Sheet}, nil
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
