package mapper

import "github.com/ethanolivertroy/nc-tracker/internal/models"

// Candidates lists, per canonical field, the header names that may carry it.
// Order is priority order.
type Candidates struct {
	ID              []string
	Category        []string
	Finding         []string
	Recommendation  []string
	Severity        []string
	Status          []string
	RequirementRefA []string
	RequirementRefB []string
}

// DefaultCandidates returns the header names recognized in audit spreadsheets.
// These names are part of the import contract; do not reorder them.
func DefaultCandidates() Candidates {
	return Candidates{
		ID:             []string{"id", "ref", "#", "no", "n", "index", "finding id", "findingid"},
		Category:       []string{"category", "section", "domain", "area", "topic"},
		Finding:        []string{"finding", "non conformity", "nonconformity", "issue", "observation", "gap", "problem"},
		Recommendation: []string{"recommendation", "corrective action", "action", "remediation", "proposed action"},
		Severity:       []string{"severity", "risk", "priority", "criticality", "rating"},
		Status:         []string{"status", "conformity", "compliance result", "result", "nc status", "state"},
		RequirementRefA: []string{
			"morocco law", "legal reference", "law reference", "moroccan law", "maroc law", "code du travail",
		},
		RequirementRefB: []string{
			"inditex", "inditex reference", "inditex requirement", "code of conduct", "ics", "social audit",
		},
	}
}

// WithOverrides puts configured names ahead of the built-in ones
func (c Candidates) WithOverrides(cols models.ColumnsConfig) Candidates {
	return Candidates{
		ID:              prepend(cols.ID, c.ID),
		Category:        prepend(cols.Category, c.Category),
		Finding:         prepend(cols.Finding, c.Finding),
		Recommendation:  prepend(cols.Recommendation, c.Recommendation),
		Severity:        prepend(cols.Severity, c.Severity),
		Status:          prepend(cols.Status, c.Status),
		RequirementRefA: prepend(cols.RequirementRefA, c.RequirementRefA),
		RequirementRefB: prepend(cols.RequirementRefB, c.RequirementRefB),
	}
}

func prepend(extra, base []string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(extra)+len(base))
	out = append(out, extra...)
	return append(out, base...)
}

// Fields is a row reduced to the canonical columns, values trimmed
type Fields struct {
	ID              string
	Category        string
	Finding         string
	Recommendation  string
	Severity        string
	Status          string
	RequirementRefA string
	RequirementRefB string
}

// Extract resolves every canonical field of a row. Unmatched fields are empty.
func (c Candidates) Extract(row Row) Fields {
	return Fields{
		ID:              ResolveField(row, c.ID),
		Category:        ResolveField(row, c.Category),
		Finding:         ResolveField(row, c.Finding),
		Recommendation:  ResolveField(row, c.Recommendation),
		Severity:        ResolveField(row, c.Severity),
		Status:          ResolveField(row, c.Status),
		RequirementRefA: ResolveField(row, c.RequirementRefA),
		RequirementRefB: ResolveField(row, c.RequirementRefB),
	}
}
