package models

import "strings"

// Severity is the ordinal risk classification of a finding
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity from most to least severe
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// IsValid returns true for one of the five known severities
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// Rank orders severities, critical being 0. Unknown values sort last.
func (s Severity) Rank() int {
	for i, sev := range Severities {
		if sev == s {
			return i
		}
	}
	return len(Severities)
}

// Finding is one normalized row of a compliance report.
// JSON names match the exports written by earlier releases.
type Finding struct {
	ID              string   `json:"id"`
	Category        string   `json:"category"`
	Text            string   `json:"finding"`
	Recommendation  string   `json:"recommendation"`
	Severity        Severity `json:"severity"`
	RawStatus       string   `json:"rawStatus"`
	RequirementRefA string   `json:"reqMorocco"`
	RequirementRefB string   `json:"reqInditex"`
	IsNonConformity bool     `json:"isNC"`
}

// Matches reports whether the lowercased query occurs in any searchable field
func (f Finding) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	hay := strings.ToLower(strings.Join([]string{
		f.ID, f.Category, f.Text, f.Recommendation, f.RequirementRefA, f.RequirementRefB,
	}, " "))
	return strings.Contains(hay, q)
}

// Source describes where a report was loaded from
type Source struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Sheet string `json:"sheet,omitempty"`
	URL   string `json:"url,omitempty"`
}
