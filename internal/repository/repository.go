// Package repository holds the loaded report and the progress map that outlives it.
package repository

import (
	"sort"
	"time"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// Repository keeps the current report's findings and the progress of every finding id
// ever seen. Progress is keyed by id and survives report reloads. Not safe for
// concurrent use.
type Repository struct {
	findings []models.Finding
	index    map[string]int
	progress map[string]*models.Progress
	now      func() time.Time
}

// New creates an empty repository
func New(now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	return &Repository{
		index:    make(map[string]int),
		progress: make(map[string]*models.Progress),
		now:      now,
	}
}

// AllFindings returns a copy of the findings in report order
func (r *Repository) AllFindings() []models.Finding {
	return append([]models.Finding(nil), r.findings...)
}

// Len returns the number of findings in the current report
func (r *Repository) Len() int {
	return len(r.findings)
}

// FindingByID looks up a finding of the current report
func (r *Repository) FindingByID(id string) (models.Finding, bool) {
	i, ok := r.index[id]
	if !ok {
		return models.Finding{}, false
	}
	return r.findings[i], true
}

// UpdateFinding edits a finding in place
func (r *Repository) UpdateFinding(id string, edit func(f *models.Finding)) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	edit(&r.findings[i])
	r.findings[i].ID = id
	return true
}

// ProgressFor returns the live progress record of an id, creating a default one if missing
func (r *Repository) ProgressFor(id string) *models.Progress {
	p, ok := r.progress[id]
	if !ok {
		p = models.NewProgress(r.now())
		r.progress[id] = p
	}
	return p
}

// HasProgress reports whether a progress record exists without creating one
func (r *Repository) HasProgress(id string) bool {
	_, ok := r.progress[id]
	return ok
}

// ReplaceFindings swaps in a new report. Progress for new ids is created with
// defaults; progress for ids missing from the new report is kept.
func (r *Repository) ReplaceFindings(findings []models.Finding) {
	index := make(map[string]int, len(findings))
	for i, f := range findings {
		index[f.ID] = i
	}
	r.findings = append([]models.Finding(nil), findings...)
	r.index = index
	for _, f := range r.findings {
		r.ProgressFor(f.ID)
	}
}

// Progress returns the live progress map. Callers may mutate records but must
// not add or remove keys.
func (r *Repository) Progress() map[string]*models.Progress {
	return r.progress
}

// ProgressIDs returns every id with a progress record, sorted
func (r *Repository) ProgressIDs() []string {
	ids := make([]string, 0, len(r.progress))
	for id := range r.progress {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RestoreProgress installs progress records, replacing existing records with the same id
func (r *Repository) RestoreProgress(progress map[string]*models.Progress) {
	for id, p := range progress {
		if p == nil {
			continue
		}
		c := p.Clone()
		if c.EvidenceFiles == nil {
			c.EvidenceFiles = []models.EvidenceFile{}
		}
		r.progress[id] = c
	}
	for _, f := range r.findings {
		r.ProgressFor(f.ID)
	}
}

// ClearAll drops the findings and every progress record
func (r *Repository) ClearAll() {
	r.findings = nil
	r.index = make(map[string]int)
	r.progress = make(map[string]*models.Progress)
}
