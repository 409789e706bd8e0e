package reporter

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// CSVHeaders are the column names of the flat export. Spreadsheets built on
// earlier exports depend on them.
var CSVHeaders = []string{
	"ID", "IsNC", "Category", "Finding", "Severity", "MoroccoLawRef", "InditexRef",
	"Recommendation", "State", "Result", "Owner", "DueDate", "EvidenceLink",
	"EvidenceNote", "EvidenceFilesCount", "EvidenceFilesNames", "Containment",
	"RootCause", "CorrectiveAction", "PreventiveAction", "Evidence", "Verification",
	"ManagementSignoff", "UpdatedAt",
}

// CSVReporter outputs one row per finding
type CSVReporter struct{}

// Report generates CSV output for the given records
func (r *CSVReporter) Report(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(CSVHeaders); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			yesNo(rec.IsNC),
			rec.Category,
			rec.Finding,
			string(rec.Severity),
			rec.MoroccoLawRef,
			rec.InditexRef,
			rec.Recommendation,
			string(rec.State),
			rec.Result,
			rec.Owner,
			rec.DueDate,
			rec.EvidenceLink,
			rec.EvidenceNote,
			strconv.Itoa(rec.EvidenceFilesCount),
			strings.Join(rec.EvidenceFilesNames, " | "),
		}
		for _, k := range models.ChecklistKeys {
			row = append(row, yesNo(rec.Checklist.Get(k)))
		}
		row = append(row, rec.UpdatedAt)
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
