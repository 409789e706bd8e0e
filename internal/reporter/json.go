package reporter

import (
	"encoding/json"

	"github.com/ethanolivertroy/nc-tracker/internal/closure"
)

// JSONReporter outputs the flat records with a summary
type JSONReporter struct{}

// jsonOutput represents the JSON output structure
type jsonOutput struct {
	Summary  jsonSummary `json:"summary"`
	Findings []Record    `json:"findings"`
}

type jsonSummary struct {
	TotalFindings int            `json:"total_findings"`
	TotalNC       int            `json:"total_nc"`
	ClosedNC      int            `json:"closed_nc"`
	ByState       map[string]int `json:"by_state"`
}

// Report generates JSON output for the given records
func (r *JSONReporter) Report(records []Record) ([]byte, error) {
	output := jsonOutput{
		Summary: jsonSummary{
			TotalFindings: len(records),
			ByState:       make(map[string]int),
		},
		Findings: records,
	}
	if output.Findings == nil {
		output.Findings = []Record{}
	}

	for _, rec := range records {
		if !rec.IsNC {
			continue
		}
		output.Summary.TotalNC++
		output.Summary.ByState[string(rec.State)]++
		if rec.State == closure.StateClosed {
			output.Summary.ClosedNC++
		}
	}

	return json.MarshalIndent(output, "", "  ")
}
