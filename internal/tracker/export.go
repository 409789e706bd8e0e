package tracker

import (
	"context"
	"fmt"

	"github.com/ethanolivertroy/nc-tracker/internal/evidence"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"github.com/ethanolivertroy/nc-tracker/internal/reporter"
	"go.uber.org/zap"
)

// ExportFlat returns one flat record per finding actor may see
func (t *Tracker) ExportFlat(actor models.Role) []reporter.Record {
	items := t.Visible(actor, Filter{})
	entries := make([]reporter.Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, reporter.Entry{
			Finding:  it.Finding,
			Progress: it.Progress,
			State:    it.Assessment.State,
		})
	}
	return reporter.Flatten(entries)
}

// Export renders the flat records in the named format
func (t *Tracker) Export(actor models.Role, format string) ([]byte, error) {
	r, err := reporter.Get(format)
	if err != nil {
		return nil, err
	}
	if sr, ok := r.(*reporter.SARIFReporter); ok {
		if src := t.Info().Source; src != nil {
			sr.SourceURI = src.Name
			if sr.SourceURI == "" {
				sr.SourceURI = src.URL
			}
		}
	}
	return r.Report(t.ExportFlat(actor))
}

// ExportSnapshot returns a complete backup: policy, every finding and the full
// progress map, including progress of ids absent from the current report
func (t *Tracker) ExportSnapshot(actor models.Role) (reporter.Snapshot, error) {
	if err := t.authorize(actor); err != nil {
		return reporter.Snapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := reporter.Snapshot{
		ReportName:                t.reportName,
		Source:                    t.source,
		RequireEvidenceForClosure: t.requireEvidence,
		Items:                     t.repo.AllFindings(),
		Progress:                  make(map[string]*models.Progress, len(t.repo.Progress())),
	}
	if !t.loadedAt.IsZero() {
		at := t.loadedAt
		s.LoadedAt = &at
	}
	for id, p := range t.repo.Progress() {
		s.Progress[id] = p.Clone()
	}
	return s, nil
}

// ImportSnapshot replaces the report, progress and policy with a snapshot.
// Progress of ids not in the snapshot is kept.
func (t *Tracker) ImportSnapshot(ctx context.Context, actor models.Role, s *reporter.Snapshot) (bool, error) {
	if err := t.authorize(actor); err != nil {
		return false, err
	}
	if err := reporter.CheckSnapshotVersion(s.Version); err != nil {
		return false, err
	}
	if err := checkIDs(s.Items); err != nil {
		return false, fmt.Errorf("%w: snapshot %v", ErrIngestion, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.repo.ReplaceFindings(s.Items)
	t.repo.RestoreProgress(s.Progress)
	t.requireEvidence = s.RequireEvidenceForClosure
	if s.ReportName != "" {
		t.reportName = s.ReportName
	}
	t.source = s.Source
	t.loadedAt = t.now().UTC()
	if s.LoadedAt != nil {
		t.loadedAt = *s.LoadedAt
	}
	changed := evidence.SyncPolicy(t.repo.Progress(), t.requireEvidence)

	policyOK := t.savePolicy(ctx)
	dataOK := t.saveData(ctx)
	progressOK := t.saveProgress(ctx)

	t.log.Info("Imported snapshot",
		zap.String("version", s.Version),
		zap.Int("findings", len(s.Items)),
		zap.Int("progress", len(s.Progress)),
		zap.Int("evidence_resynced", changed))
	return policyOK && dataOK && progressOK, nil
}

// ImportSnapshotJSON decodes and imports a snapshot file
func (t *Tracker) ImportSnapshotJSON(ctx context.Context, actor models.Role, data []byte) (bool, error) {
	if err := t.authorize(actor); err != nil {
		return false, err
	}
	s, err := reporter.ParseSnapshot(data)
	if err != nil {
		return false, err
	}
	return t.ImportSnapshot(ctx, actor, s)
}
