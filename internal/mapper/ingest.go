package mapper

import (
	"fmt"
	"strings"

	"github.com/ethanolivertroy/nc-tracker/internal/classifier"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// DefaultCategory is used when a row has no category column or an empty one
const DefaultCategory = "General"

// Mapper turns labeled rows into classified findings
type Mapper struct {
	Candidates      Candidates
	Classifier      *classifier.Classifier
	DefaultCategory string
}

// New creates a mapper with the built-in candidates and classifier tables
func New() *Mapper {
	return &Mapper{
		Candidates:      DefaultCandidates(),
		Classifier:      classifier.Default(),
		DefaultCategory: DefaultCategory,
	}
}

// Map normalizes and classifies every non-blank row.
// Blank rows are skipped but still count towards synthesized ids.
func (m *Mapper) Map(rows []Row) []models.Finding {
	type pending struct {
		index  int
		fields Fields
		row    Row
	}

	var kept []pending
	raw := make(map[string]bool)
	for i, r := range rows {
		if r.Blank() {
			continue
		}
		f := m.Candidates.Extract(r)
		if f.ID != "" {
			raw[f.ID] = true
		}
		kept = append(kept, pending{index: i, fields: f, row: r})
	}

	ids := newIDAllocator(raw)
	findings := make([]models.Finding, 0, len(kept))
	for _, p := range kept {
		f := p.fields
		result := m.Classifier.Classify(classifier.Input{
			RawStatus:      f.Status,
			Text:           f.Finding,
			Recommendation: f.Recommendation,
			Severity:       f.Severity,
		})

		category := f.Category
		if category == "" {
			category = m.DefaultCategory
		}
		text := f.Finding
		if text == "" {
			text = summarize(p.row)
		}

		findings = append(findings, models.Finding{
			ID:              ids.assign(f.ID, p.index),
			Category:        category,
			Text:            text,
			Recommendation:  f.Recommendation,
			Severity:        result.Severity,
			RawStatus:       f.Status,
			RequirementRefA: f.RequirementRefA,
			RequirementRefB: f.RequirementRefB,
			IsNonConformity: result.IsNonConformity,
		})
	}
	return findings
}

// summarize describes a row without a finding column by its first three non-empty cells
func summarize(r Row) string {
	var parts []string
	for _, h := range r.Headers() {
		k := strings.TrimSpace(h)
		v := strings.TrimSpace(r.Get(h))
		if k == "" || v == "" {
			continue
		}
		parts = append(parts, k+": "+v)
		if len(parts) == 3 {
			break
		}
	}
	if len(parts) == 0 {
		return "—"
	}
	return strings.Join(parts, " • ")
}

// idAllocator hands out ids unique within one report. Raw ids are reserved up
// front so a synthesized F-NNN never shadows a real id found further down.
type idAllocator struct {
	reserved map[string]bool
	used     map[string]bool
}

func newIDAllocator(raw map[string]bool) *idAllocator {
	return &idAllocator{reserved: raw, used: make(map[string]bool)}
}

func (a *idAllocator) assign(rawID string, rowIndex int) string {
	base := rawID
	if base == "" {
		base = fmt.Sprintf("F-%03d", rowIndex+1)
	}
	id := base
	for n := 2; a.used[id] || (id != rawID && a.reserved[id]); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	a.used[id] = true
	return id
}
