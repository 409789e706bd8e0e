// Package evidence decides whether a finding has proof of remediation and
// manages the files attached as that proof.
package evidence

import (
	"strings"
	"unicode/utf8"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// Floor lengths below which a link or note is treated as a placeholder
const (
	MinLinkLength = 9
	MinNoteLength = 20
)

// HasEvidence is true when the progress carries a plausible link, a substantive
// note, or at least one attached file
func HasEvidence(p *models.Progress) bool {
	if p == nil {
		return false
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.EvidenceLink)) >= MinLinkLength {
		return true
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.EvidenceNote)) >= MinNoteLength {
		return true
	}
	return len(p.EvidenceFiles) > 0
}

// SyncFlag forces the evidence checklist flag to HasEvidence when the policy is on.
// It returns true if the flag changed.
func SyncFlag(p *models.Progress, policyOn bool) bool {
	if !policyOn || p == nil {
		return false
	}
	want := HasEvidence(p)
	if p.Checklist.Evidence == want {
		return false
	}
	p.Checklist.Evidence = want
	return true
}

// SyncPolicy applies SyncFlag to every progress record and returns how many changed.
// With the policy off, manual flags are left alone.
func SyncPolicy(all map[string]*models.Progress, policyOn bool) int {
	if !policyOn {
		return 0
	}
	changed := 0
	for _, p := range all {
		if SyncFlag(p, true) {
			changed++
		}
	}
	return changed
}
