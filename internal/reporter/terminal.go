package reporter

import (
	"fmt"
	"strings"

	"github.com/ethanolivertroy/nc-tracker/internal/closure"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// TerminalReporter outputs findings in a human-readable terminal format
type TerminalReporter struct{}

var stateIcons = map[closure.State]string{
	closure.StateOpen:         "🔴",
	closure.StateInProgress:   "🟠",
	closure.StateReadyToClose: "🟡",
	closure.StateClosed:       "🟢",
}

// Report generates terminal output for the given records
func (r *TerminalReporter) Report(records []Record) ([]byte, error) {
	if len(records) == 0 {
		return []byte("No findings to show.\n"), nil
	}

	var sb strings.Builder

	nc, closed := 0, 0
	bySeverity := make(map[models.Severity]int)
	for _, rec := range records {
		if !rec.IsNC {
			continue
		}
		nc++
		if rec.State == closure.StateClosed {
			closed++
		} else {
			bySeverity[rec.Severity]++
		}
	}

	sb.WriteString("\nNON-CONFORMITY TRACKER\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	sb.WriteString(fmt.Sprintf("%d findings, %d non-conformities, %d closed\n", len(records), nc, closed))
	if open := nc - closed; open > 0 {
		var parts []string
		for _, s := range models.Severities {
			if n := bySeverity[s]; n > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, s))
			}
		}
		sb.WriteString(fmt.Sprintf("⚠️  %d still open: %s\n", open, strings.Join(parts, ", ")))
	}
	sb.WriteString("\n")

	for _, rec := range records {
		icon := stateIcons[rec.State]
		if !rec.IsNC {
			icon = "ℹ️ "
		}
		sb.WriteString(fmt.Sprintf("%s %s [%s] %s\n", icon, rec.ID, rec.Severity, rec.Category))
		sb.WriteString(fmt.Sprintf("   %s\n", truncate(rec.Finding, 200)))
		if !rec.IsNC {
			continue
		}
		sb.WriteString(fmt.Sprintf("   State: %s | Result: %s\n", rec.State.Label(), rec.Result))
		if rec.Owner != "" || rec.DueDate != "" {
			sb.WriteString(fmt.Sprintf("   Owner: %s | Due: %s\n", orDash(rec.Owner), orDash(rec.DueDate)))
		}
		if rec.Recommendation != "" {
			sb.WriteString(fmt.Sprintf("   Action: %s\n", truncate(rec.Recommendation, 100)))
		}
		if rec.EvidenceFilesCount > 0 {
			sb.WriteString(fmt.Sprintf("   Evidence files: %s\n", strings.Join(rec.EvidenceFilesNames, ", ")))
		}
	}

	return []byte(sb.String()), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
