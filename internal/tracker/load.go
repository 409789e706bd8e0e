package tracker

import (
	"context"
	"fmt"

	"github.com/ethanolivertroy/nc-tracker/internal/classifier"
	"github.com/ethanolivertroy/nc-tracker/internal/evidence"
	"github.com/ethanolivertroy/nc-tracker/internal/mapper"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"github.com/ethanolivertroy/nc-tracker/internal/parsers"
	"go.uber.org/zap"
)

// LoadResult reports what a load changed
type LoadResult struct {
	Findings  []models.Finding
	NC        int
	Persisted bool
}

// LoadReport replaces the report with the findings mapped from rows. Progress
// of ids seen before is kept; new ids get an empty checklist. A load either
// replaces the whole report or fails leaving the previous one in place.
func (t *Tracker) LoadReport(ctx context.Context, actor models.Role, rows []mapper.Row, src models.Source) (LoadResult, error) {
	if err := t.authorize(actor); err != nil {
		return LoadResult{}, err
	}

	findings := t.mapper.Map(rows)
	if len(findings) == 0 {
		return LoadResult{}, fmt.Errorf("%w: %s has no data rows", ErrIngestion, sourceName(src))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.repo.ReplaceFindings(findings)
	t.loadedAt = t.now().UTC()
	t.source = &src
	changed := evidence.SyncPolicy(t.repo.Progress(), t.requireEvidence)

	res := LoadResult{Findings: t.repo.AllFindings()}
	for _, f := range findings {
		if f.IsNonConformity {
			res.NC++
		}
	}
	dataOK := t.saveData(ctx)
	progressOK := t.saveProgress(ctx)
	res.Persisted = dataOK && progressOK

	t.log.Info("Loaded report",
		zap.String("source", sourceName(src)),
		zap.Int("rows", len(rows)),
		zap.Int("findings", len(findings)),
		zap.Int("non_conformities", res.NC),
		zap.Int("evidence_resynced", changed))
	return res, nil
}

// LoadTable loads a header-first matrix
func (t *Tracker) LoadTable(ctx context.Context, actor models.Role, table *parsers.Table, src models.Source) (LoadResult, error) {
	if table == nil || len(table.Rows) == 0 {
		return LoadResult{}, fmt.Errorf("%w: %s has no header row", ErrIngestion, sourceName(src))
	}
	return t.LoadReport(ctx, actor, mapper.FromMatrix(table.Rows), src)
}

// LoadFile parses a local .csv or .xlsx report and loads it
func (t *Tracker) LoadFile(ctx context.Context, actor models.Role, path string) (LoadResult, error) {
	if err := t.authorize(actor); err != nil {
		return LoadResult{}, err
	}
	table, src, err := parsers.ParseFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("%w: %w", ErrIngestion, err)
	}
	return t.LoadTable(ctx, actor, table, src)
}

// LoadSheet downloads a Google Sheet and loads its first worksheet. An empty
// url falls back to the configured sheet.
func (t *Tracker) LoadSheet(ctx context.Context, actor models.Role, url string) (LoadResult, error) {
	if err := t.authorize(actor); err != nil {
		return LoadResult{}, err
	}
	if url == "" {
		url = t.cfg.SheetURL
	}
	if url == "" {
		return LoadResult{}, fmt.Errorf("%w: no sheet URL given or configured", ErrIngestion)
	}
	table, src, err := t.sheets.Fetch(ctx, url)
	if err != nil {
		return LoadResult{}, fmt.Errorf("%w: %w", ErrIngestion, err)
	}
	return t.LoadTable(ctx, actor, table, src)
}

// ClassifyRow runs the column mapper and classifier on a single row without
// touching the report
func (t *Tracker) ClassifyRow(row mapper.Row) classifier.Result {
	f := t.mapper.Candidates.Extract(row)
	return t.mapper.Classifier.Classify(classifier.Input{
		RawStatus:      f.Status,
		Text:           f.Finding,
		Recommendation: f.Recommendation,
		Severity:       f.Severity,
	})
}

func sourceName(src models.Source) string {
	switch {
	case src.Name != "":
		return src.Name
	case src.URL != "":
		return src.URL
	case src.Type != "":
		return src.Type
	}
	return "report"
}
