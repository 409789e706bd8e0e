package tracker

import (
	"context"
	"fmt"
	"math"

	"github.com/ethanolivertroy/nc-tracker/internal/closure"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// Item is a finding as surfaced to a caller
type Item struct {
	Finding    models.Finding     `json:"finding"`
	Progress   *models.Progress   `json:"progress"`
	Assessment closure.Assessment `json:"assessment"`
}

// assess derives the state of a finding without creating progress. Caller holds mu.
func (t *Tracker) assess(f models.Finding) closure.Assessment {
	return closure.Assess(f, t.repo.Progress()[f.ID], t.requireEvidence)
}

// ClosureState derives the closure state of a finding
func (t *Tracker) ClosureState(id string) (closure.State, error) {
	a, err := t.Assess(id)
	return a.State, err
}

// Assess derives the closure state of a finding together with what is missing
func (t *Tracker) Assess(id string) (closure.Assessment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.repo.FindingByID(id)
	if !ok {
		return closure.Assessment{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.assess(f), nil
}

// Filter narrows Visible. Zero values match everything.
type Filter struct {
	Query    string
	Severity models.Severity
	State    closure.State
	OnlyNC   bool
}

// visibleTo reports whether actor may see a finding at all. Viewers see closed
// non-conformities only.
func visibleTo(actor models.Role, f models.Finding, a closure.Assessment) bool {
	if actor.CanMutate() {
		return true
	}
	return f.IsNonConformity && a.State == closure.StateClosed
}

// Visible returns the findings actor may see that match the filter, in report
// order. OnlyNC and State apply to admins only; viewers are always limited to
// closed non-conformities.
func (t *Tracker) Visible(actor models.Role, filter Filter) []Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	var items []Item
	for _, f := range t.repo.AllFindings() {
		a := t.assess(f)
		if !visibleTo(actor, f, a) {
			continue
		}
		if actor.CanMutate() {
			if filter.OnlyNC && !f.IsNonConformity {
				continue
			}
			if filter.State != "" && a.State != filter.State {
				continue
			}
		}
		if !f.Matches(filter.Query) {
			continue
		}
		if filter.Severity != "" && f.Severity != filter.Severity {
			continue
		}
		items = append(items, Item{Finding: f, Progress: t.progressCopy(f.ID), Assessment: a})
	}
	return items
}

// Get returns one finding if actor may see it
func (t *Tracker) Get(actor models.Role, id string) (Item, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.repo.FindingByID(id)
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	a := t.assess(f)
	if !visibleTo(actor, f, a) {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return Item{Finding: f, Progress: t.progressCopy(id), Assessment: a}, nil
}

func (t *Tracker) progressCopy(id string) *models.Progress {
	if p, ok := t.repo.Progress()[id]; ok {
		return p.Clone()
	}
	return models.NewProgress(t.now())
}

// Stats are the headline counters of the dashboard
type Stats struct {
	Total   int                   `json:"total"`
	NC      int                   `json:"nc"`
	Closed  int                   `json:"closed"`
	Open    int                   `json:"open"`
	Percent int                   `json:"percent"`
	ByState map[closure.State]int `json:"byState"`
}

// Stats counts findings as actor sees them. Admins get totals over the whole
// report; viewers only over closed non-conformities.
func (t *Tracker) Stats(actor models.Role) Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Stats{ByState: make(map[closure.State]int)}
	for _, f := range t.repo.AllFindings() {
		a := t.assess(f)
		if !visibleTo(actor, f, a) {
			continue
		}
		s.Total++
		if !f.IsNonConformity {
			continue
		}
		s.NC++
		s.ByState[a.State]++
		if a.State == closure.StateClosed {
			s.Closed++
		} else {
			s.Open++
		}
	}
	if s.NC > 0 {
		s.Percent = int(math.Round(float64(s.Closed) / float64(s.NC) * 100))
	}
	return s
}

// EvidenceContent resolves the bytes of an attached file
func (t *Tracker) EvidenceContent(ctx context.Context, actor models.Role, id string, index int) (models.EvidenceFile, []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.repo.FindingByID(id)
	if !ok || !visibleTo(actor, f, t.assess(f)) {
		return models.EvidenceFile{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p, ok := t.repo.Progress()[id]
	if !ok {
		p = models.NewProgress(t.now())
	}
	return t.evidence.Read(ctx, p, index)
}
