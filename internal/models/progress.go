package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownChecklistKey is returned when a flag name is not one of the seven checklist keys
var ErrUnknownChecklistKey = errors.New("unknown checklist key")

// ChecklistKey names one corrective-action milestone
type ChecklistKey string

const (
	KeyContainment       ChecklistKey = "containment"
	KeyRootCause         ChecklistKey = "rootCause"
	KeyCorrectiveAction  ChecklistKey = "correctiveAction"
	KeyPreventiveAction  ChecklistKey = "preventiveAction"
	KeyEvidence          ChecklistKey = "evidence"
	KeyVerification      ChecklistKey = "verification"
	KeyManagementSignoff ChecklistKey = "managementSignoff"
)

// ChecklistKeys is the fixed display and export order of the checklist
var ChecklistKeys = []ChecklistKey{
	KeyContainment,
	KeyRootCause,
	KeyCorrectiveAction,
	KeyPreventiveAction,
	KeyEvidence,
	KeyVerification,
	KeyManagementSignoff,
}

// ParseChecklistKey validates a flag name
func ParseChecklistKey(s string) (ChecklistKey, error) {
	for _, k := range ChecklistKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChecklistKey, s)
}

// Checklist holds the seven corrective-action flags of a finding
type Checklist struct {
	Containment       bool `json:"containment"`
	RootCause         bool `json:"rootCause"`
	CorrectiveAction  bool `json:"correctiveAction"`
	PreventiveAction  bool `json:"preventiveAction"`
	Evidence          bool `json:"evidence"`
	Verification      bool `json:"verification"`
	ManagementSignoff bool `json:"managementSignoff"`
}

func (c *Checklist) field(k ChecklistKey) *bool {
	switch k {
	case KeyContainment:
		return &c.Containment
	case KeyRootCause:
		return &c.RootCause
	case KeyCorrectiveAction:
		return &c.CorrectiveAction
	case KeyPreventiveAction:
		return &c.PreventiveAction
	case KeyEvidence:
		return &c.Evidence
	case KeyVerification:
		return &c.Verification
	case KeyManagementSignoff:
		return &c.ManagementSignoff
	}
	return nil
}

// Get returns the value of a flag; unknown keys read as false
func (c Checklist) Get(k ChecklistKey) bool {
	if p := c.field(k); p != nil {
		return *p
	}
	return false
}

// Set changes a flag
func (c *Checklist) Set(k ChecklistKey, v bool) error {
	p := c.field(k)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownChecklistKey, k)
	}
	*p = v
	return nil
}

// Any returns true if at least one flag, evidence included, is set
func (c Checklist) Any() bool {
	for _, k := range ChecklistKeys {
		if c.Get(k) {
			return true
		}
	}
	return false
}

// EvidenceFile records one attachment. The content itself lives behind ContentHandle.
type EvidenceFile struct {
	Name          string    `json:"name"`
	MimeType      string    `json:"type"`
	SizeBytes     int64     `json:"size"`
	ContentHandle string    `json:"dataUrl"`
	UploadedAt    time.Time `json:"uploadedAtISO"`
}

// Progress tracks corrective-action work on one finding, keyed by finding id
type Progress struct {
	Checklist       Checklist      `json:"checklist"`
	EvidenceLink    string         `json:"evidenceLink"`
	EvidenceNote    string         `json:"evidenceNote"`
	EvidenceFiles   []EvidenceFile `json:"evidenceFiles"`
	Owner           string         `json:"owner"`
	DueDate         string         `json:"dueDate"`
	ReviewerComment string         `json:"comment"`
	UpdatedAt       time.Time      `json:"updatedAtISO"`
}

// NewProgress returns a progress record with every flag cleared
func NewProgress(now time.Time) *Progress {
	return &Progress{
		EvidenceFiles: []EvidenceFile{},
		UpdatedAt:     now.UTC(),
	}
}

// Touch stamps the record as modified
func (p *Progress) Touch(now time.Time) {
	p.UpdatedAt = now.UTC()
}

// Clone returns a deep copy
func (p *Progress) Clone() *Progress {
	c := *p
	c.EvidenceFiles = append([]EvidenceFile{}, p.EvidenceFiles...)
	return &c
}
