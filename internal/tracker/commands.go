package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethanolivertroy/nc-tracker/internal/evidence"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"go.uber.org/zap"
)

// Every command returns persisted == false when the change is applied in
// memory but could not be written to the store. A non-nil error means the
// command was rejected and nothing changed.

// checklistTarget returns the live progress of an NC finding. Caller holds mu.
func (t *Tracker) checklistTarget(actor models.Role, id string) (*models.Progress, error) {
	if err := t.authorize(actor); err != nil {
		return nil, err
	}
	f, ok := t.repo.FindingByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !f.IsNonConformity {
		return nil, fmt.Errorf("%w: %s", ErrInformational, id)
	}
	return t.repo.ProgressFor(id), nil
}

// commitProgress resyncs the evidence flag, stamps the record and persists
func (t *Tracker) commitProgress(ctx context.Context, p *models.Progress) bool {
	evidence.SyncFlag(p, t.requireEvidence)
	p.Touch(t.now())
	return t.saveProgress(ctx)
}

// SetChecklistFlag sets one of the seven checklist flags. While evidence is
// required the evidence flag follows the attached evidence, so setting it by
// hand has no lasting effect.
func (t *Tracker) SetChecklistFlag(ctx context.Context, actor models.Role, id, key string, value bool) (bool, error) {
	k, err := models.ParseChecklistKey(key)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.checklistTarget(actor, id)
	if err != nil {
		return false, err
	}
	if err := p.Checklist.Set(k, value); err != nil {
		return false, err
	}
	return t.commitProgress(ctx, p), nil
}

// SetEvidenceLink records a link to external evidence. Surrounding whitespace is dropped.
func (t *Tracker) SetEvidenceLink(ctx context.Context, actor models.Role, id, link string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.checklistTarget(actor, id)
	if err != nil {
		return false, err
	}
	p.EvidenceLink = strings.TrimSpace(link)
	return t.commitProgress(ctx, p), nil
}

// SetEvidenceNote records a free-text description of the evidence
func (t *Tracker) SetEvidenceNote(ctx context.Context, actor models.Role, id, note string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.checklistTarget(actor, id)
	if err != nil {
		return false, err
	}
	p.EvidenceNote = note
	return t.commitProgress(ctx, p), nil
}

// AddEvidenceFiles attaches uploads in order. Files past the count cap or over
// the size cap are skipped and counted, never fatal.
func (t *Tracker) AddEvidenceFiles(ctx context.Context, actor models.Role, id string, uploads []evidence.Upload) (evidence.AddResult, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.checklistTarget(actor, id)
	if err != nil {
		return evidence.AddResult{}, false, err
	}
	res := t.evidence.Add(ctx, p, uploads)
	if res.Skipped > 0 {
		t.log.Warn("Some evidence files were skipped",
			zap.String("id", id), zap.Int("accepted", res.Accepted), zap.Int("skipped", res.Skipped))
	}
	if res.Accepted == 0 {
		return res, true, nil
	}
	return res, t.commitProgress(ctx, p), nil
}

// RemoveEvidenceFile detaches the file at index
func (t *Tracker) RemoveEvidenceFile(ctx context.Context, actor models.Role, id string, index int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.checklistTarget(actor, id)
	if err != nil {
		return false, err
	}
	if err := t.evidence.Remove(ctx, p, index); err != nil {
		return false, err
	}
	return t.commitProgress(ctx, p), nil
}

// ClearEvidenceFiles detaches every file of a finding
func (t *Tracker) ClearEvidenceFiles(ctx context.Context, actor models.Role, id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.checklistTarget(actor, id)
	if err != nil {
		return false, err
	}
	t.evidence.Clear(ctx, p)
	return t.commitProgress(ctx, p), nil
}

// SetEvidencePolicy turns the evidence requirement on or off. Turning it on
// immediately recomputes the evidence flag of every progress record; turning
// it off leaves the flags as they are. It returns the number of flags changed.
func (t *Tracker) SetEvidencePolicy(ctx context.Context, actor models.Role, on bool) (int, bool, error) {
	if err := t.authorize(actor); err != nil {
		return 0, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.requireEvidence = on
	changed := evidence.SyncPolicy(t.repo.Progress(), on)
	policyOK := t.savePolicy(ctx)
	progressOK := true
	if changed > 0 {
		progressOK = t.saveProgress(ctx)
	}

	t.log.Info("Evidence policy changed", zap.Bool("require_evidence", on), zap.Int("resynced", changed))
	return changed, policyOK && progressOK, nil
}

// FindingEdit holds the user-editable fields of a finding. Nil fields are left alone.
type FindingEdit struct {
	RequirementRefA *string
	RequirementRefB *string
	Recommendation  *string
}

// UpdateFinding edits the requirement references or recommendation of a finding
func (t *Tracker) UpdateFinding(ctx context.Context, actor models.Role, id string, edit FindingEdit) (bool, error) {
	if err := t.authorize(actor); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ok := t.repo.UpdateFinding(id, func(f *models.Finding) {
		if edit.RequirementRefA != nil {
			f.RequirementRefA = *edit.RequirementRefA
		}
		if edit.RequirementRefB != nil {
			f.RequirementRefB = *edit.RequirementRefB
		}
		if edit.Recommendation != nil {
			f.Recommendation = *edit.Recommendation
		}
	})
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.saveData(ctx), nil
}

// ProgressEdit holds the free-form progress fields. Nil fields are left alone.
type ProgressEdit struct {
	Owner           *string
	DueDate         *string
	ReviewerComment *string
}

// UpdateProgress edits owner, due date or reviewer comment of an NC
func (t *Tracker) UpdateProgress(ctx context.Context, actor models.Role, id string, edit ProgressEdit) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.checklistTarget(actor, id)
	if err != nil {
		return false, err
	}
	if edit.Owner != nil {
		p.Owner = *edit.Owner
	}
	if edit.DueDate != nil {
		p.DueDate = *edit.DueDate
	}
	if edit.ReviewerComment != nil {
		p.ReviewerComment = *edit.ReviewerComment
	}
	return t.commitProgress(ctx, p), nil
}

// Reset drops the report, all progress and the stored policy
func (t *Tracker) Reset(ctx context.Context, actor models.Role) (bool, error) {
	if err := t.authorize(actor); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.repo.Progress() {
		t.evidence.Clear(ctx, p)
	}
	t.repo.ClearAll()
	t.loadedAt = time.Time{}
	t.source = nil
	t.reportName = t.cfg.ReportName
	t.requireEvidence = t.cfg.RequireEvidence

	persisted := true
	for _, key := range []string{KeyData, KeyProgress, KeyPolicy} {
		if err := t.store.Delete(ctx, key); err != nil {
			t.log.Warn("Failed to delete stored state", zap.String("key", key), zap.Error(err))
			persisted = false
		}
	}
	t.log.Info("Tracker reset")
	return persisted, nil
}
