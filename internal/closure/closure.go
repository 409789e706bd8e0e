// Package closure derives the corrective-action lifecycle state of a finding.
// State is never stored; it is recomputed from the checklist on every read.
package closure

import (
	"fmt"

	"github.com/ethanolivertroy/nc-tracker/internal/evidence"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// State is the derived closure stage of a finding. The string values are the
// ones written to earlier exports.
type State string

const (
	StateOpen         State = "open"
	StateInProgress   State = "progress"
	StateReadyToClose State = "ready"
	StateClosed       State = "closed"
)

// States lists every state in lifecycle order
var States = []State{StateOpen, StateInProgress, StateReadyToClose, StateClosed}

// ParseState accepts the stored value or the long form ("inProgress", "readyToClose")
func ParseState(s string) (State, error) {
	switch s {
	case "open":
		return StateOpen, nil
	case "progress", "inProgress", "in_progress":
		return StateInProgress, nil
	case "ready", "readyToClose", "ready_to_close":
		return StateReadyToClose, nil
	case "closed":
		return StateClosed, nil
	}
	return "", fmt.Errorf("unknown closure state %q", s)
}

// Label returns a human readable name
func (s State) Label() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateInProgress:
		return "In progress"
	case StateReadyToClose:
		return "Ready to close"
	case StateClosed:
		return "Closed"
	}
	return string(s)
}

// RequiredKeys must all be set for closure. The evidence flag is judged separately.
var RequiredKeys = []models.ChecklistKey{
	models.KeyContainment,
	models.KeyRootCause,
	models.KeyCorrectiveAction,
	models.KeyPreventiveAction,
	models.KeyVerification,
	models.KeyManagementSignoff,
}

// Assessment explains a derived state
type Assessment struct {
	State      State                 `json:"state"`
	Missing    []models.ChecklistKey `json:"missing"`
	EvidenceOK bool                  `json:"evidenceOk"`
}

// Assess computes the closure state of a finding. Non-conformities walk the
// checklist; every other finding is closed. A nil progress reads as an empty
// checklist. The evidence flag only counts under the policy when the progress
// independently has evidence, so a stale flag cannot close a finding.
func Assess(f models.Finding, p *models.Progress, requireEvidence bool) Assessment {
	if !f.IsNonConformity {
		return Assessment{State: StateClosed, Missing: []models.ChecklistKey{}, EvidenceOK: true}
	}
	var c models.Checklist
	if p != nil {
		c = p.Checklist
	}

	missing := []models.ChecklistKey{}
	for _, k := range RequiredKeys {
		if !c.Get(k) {
			missing = append(missing, k)
		}
	}
	baseAllDone := len(missing) == 0
	evidenceOK := !requireEvidence || (c.Evidence && evidence.HasEvidence(p))

	a := Assessment{Missing: missing, EvidenceOK: evidenceOK}
	switch {
	case !c.Any():
		a.State = StateOpen
	case baseAllDone && evidenceOK:
		a.State = StateClosed
	case len(missing) == 1 && (missing[0] == models.KeyManagementSignoff || missing[0] == models.KeyVerification):
		a.State = StateReadyToClose
	case requireEvidence && !evidenceOK && baseAllDone:
		a.State = StateReadyToClose
	default:
		a.State = StateInProgress
	}
	return a
}

// Derive returns only the state
func Derive(f models.Finding, p *models.Progress, requireEvidence bool) State {
	return Assess(f, p, requireEvidence).State
}

// Conform reports the result label used in exports: a finding is conform when
// it is not a non-conformity or its non-conformity is closed.
func Conform(f models.Finding, s State) bool {
	return !f.IsNonConformity || s == StateClosed
}
