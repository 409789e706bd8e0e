// Package reporter renders findings and their corrective-action progress.
package reporter

import (
	"fmt"
	"strings"

	"github.com/ethanolivertroy/nc-tracker/internal/closure"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// Reporter is the interface for output formatters
type Reporter interface {
	// Report generates output for the given records
	Report(records []Record) ([]byte, error)
}

// Formats lists the names accepted by Get
var Formats = []string{"terminal", "csv", "json", "sarif"}

// Get returns a reporter for the specified format
func Get(format string) (Reporter, error) {
	switch strings.ToLower(format) {
	case "", "terminal", "text":
		return &TerminalReporter{}, nil
	case "csv":
		return &CSVReporter{}, nil
	case "json":
		return &JSONReporter{}, nil
	case "sarif":
		return &SARIFReporter{}, nil
	}
	return nil, fmt.Errorf("unknown format %q: use one of %s", format, strings.Join(Formats, ", "))
}

// Entry is a finding with its progress and derived state
type Entry struct {
	Finding  models.Finding
	Progress *models.Progress
	State    closure.State
}

// Record is the flat export row of one finding
type Record struct {
	ID                 string           `json:"id"`
	IsNC               bool             `json:"isNC"`
	Category           string           `json:"category"`
	Finding            string           `json:"finding"`
	Severity           models.Severity  `json:"severity"`
	MoroccoLawRef      string           `json:"moroccoLawRef"`
	InditexRef         string           `json:"inditexRef"`
	Recommendation     string           `json:"recommendation"`
	State              closure.State    `json:"state"`
	Result             string           `json:"result"`
	Owner              string           `json:"owner"`
	DueDate            string           `json:"dueDate"`
	EvidenceLink       string           `json:"evidenceLink"`
	EvidenceNote       string           `json:"evidenceNote"`
	EvidenceFilesCount int              `json:"evidenceFilesCount"`
	EvidenceFilesNames []string         `json:"evidenceFilesNames"`
	Checklist          models.Checklist `json:"checklist"`
	UpdatedAt          string           `json:"updatedAt"`
}

// Result labels
const (
	ResultConform    = "CONFORM"
	ResultNonConform = "NON-CONFORM"
)

// Flatten builds one record per entry, in order
func Flatten(entries []Entry) []Record {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		f := e.Finding
		r := Record{
			ID:                 f.ID,
			IsNC:               f.IsNonConformity,
			Category:           f.Category,
			Finding:            f.Text,
			Severity:           f.Severity,
			MoroccoLawRef:      f.RequirementRefA,
			InditexRef:         f.RequirementRefB,
			Recommendation:     f.Recommendation,
			State:              e.State,
			Result:             ResultNonConform,
			EvidenceFilesNames: []string{},
		}
		if closure.Conform(f, e.State) {
			r.Result = ResultConform
		}
		if p := e.Progress; p != nil {
			r.Owner = p.Owner
			r.DueDate = p.DueDate
			r.EvidenceLink = p.EvidenceLink
			r.EvidenceNote = p.EvidenceNote
			r.EvidenceFilesCount = len(p.EvidenceFiles)
			for _, file := range p.EvidenceFiles {
				if file.Name != "" {
					r.EvidenceFilesNames = append(r.EvidenceFilesNames, file.Name)
				}
			}
			r.Checklist = p.Checklist
			if !p.UpdatedAt.IsZero() {
				r.UpdatedAt = p.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z")
			}
		}
		records = append(records, r)
	}
	return records
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
