package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecklist_SetGet(t *testing.T) {
	var c Checklist
	for _, k := range ChecklistKeys {
		require.NoError(t, c.Set(k, true))
		assert.True(t, c.Get(k), k)
	}
	assert.True(t, c.Containment && c.RootCause && c.CorrectiveAction && c.PreventiveAction &&
		c.Evidence && c.Verification && c.ManagementSignoff)
}

func TestChecklist_UnknownKey(t *testing.T) {
	var c Checklist
	err := c.Set("signature", true)
	assert.True(t, errors.Is(err, ErrUnknownChecklistKey))

	_, err = ParseChecklistKey("rootcause")
	assert.ErrorIs(t, err, ErrUnknownChecklistKey)

	k, err := ParseChecklistKey("rootCause")
	require.NoError(t, err)
	assert.Equal(t, KeyRootCause, k)
}

func TestChecklist_Any(t *testing.T) {
	var c Checklist
	assert.False(t, c.Any())
	c.Evidence = true
	assert.True(t, c.Any(), "evidence counts towards any")
}

func TestProgress_CloneIsDeep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress(now)
	p.EvidenceFiles = append(p.EvidenceFiles, EvidenceFile{Name: "a.pdf"})

	c := p.Clone()
	c.EvidenceFiles[0].Name = "b.pdf"
	c.Checklist.RootCause = true

	assert.Equal(t, "a.pdf", p.EvidenceFiles[0].Name)
	assert.False(t, p.Checklist.RootCause)
	assert.Equal(t, now, p.UpdatedAt)
}

func TestSeverity_Rank(t *testing.T) {
	assert.Less(t, SeverityCritical.Rank(), SeverityLow.Rank())
	assert.Equal(t, len(Severities), Severity("bogus").Rank())
	assert.False(t, Severity("bogus").IsValid())
}

func TestFinding_Matches(t *testing.T) {
	f := Finding{ID: "F-001", Category: "Fire safety", Text: "Missing extinguisher", RequirementRefB: "ICS 4.2"}
	assert.True(t, f.Matches(""))
	assert.True(t, f.Matches("EXTINGUISHER"))
	assert.True(t, f.Matches("ics 4"))
	assert.False(t, f.Matches("payroll"))
}
