// Package tracker is the non-conformity tracker core. It owns the loaded report,
// the progress of every finding and the evidence policy, and persists them to a
// key-value store after each command.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethanolivertroy/nc-tracker/internal/classifier"
	"github.com/ethanolivertroy/nc-tracker/internal/clients"
	"github.com/ethanolivertroy/nc-tracker/internal/evidence"
	"github.com/ethanolivertroy/nc-tracker/internal/mapper"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"github.com/ethanolivertroy/nc-tracker/internal/repository"
	"github.com/ethanolivertroy/nc-tracker/internal/store"
	"go.uber.org/zap"
)

// Storage keys shared with earlier deployments
const (
	KeyProgress = "amigos_nc_tracker_v2_progress"
	KeyData     = "amigos_nc_tracker_v2_data"
	KeyPolicy   = "amigos_nc_tracker_v2_policy"
)

var (
	// ErrForbidden is returned when a viewer attempts a command
	ErrForbidden = errors.New("forbidden: admin role required")
	// ErrNotFound is returned for an id that is not in the loaded report
	ErrNotFound = errors.New("finding not found")
	// ErrInformational is returned when a checklist command targets a finding
	// that is not a non-conformity
	ErrInformational = errors.New("finding is informational and has no checklist")
	// ErrIngestion wraps every failure to fetch, parse or accept a report.
	// The previously loaded report stays active.
	ErrIngestion = errors.New("report ingestion failed")
)

// Tracker is the entry point for every query and command. Its methods are safe
// for concurrent use.
type Tracker struct {
	mu sync.Mutex

	cfg      *models.Config
	store    store.KeyValueStore
	repo     *repository.Repository
	mapper   *mapper.Mapper
	evidence *evidence.Manager
	sheets   *clients.SheetsClient
	log      *zap.Logger
	now      func() time.Time

	reportName      string
	requireEvidence bool
	loadedAt        time.Time
	source          *models.Source
}

// Option configures a Tracker
type Option func(*Tracker)

// WithLogger sets the logger; the default discards everything
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithSheetsClient replaces the Google Sheets client
func WithSheetsClient(c *clients.SheetsClient) Option {
	return func(t *Tracker) {
		if c != nil {
			t.sheets = c
		}
	}
}

// New creates a tracker over kv. Content may be nil, in which case evidence
// bytes are kept inline as data URLs. Call Open to restore persisted state.
func New(cfg *models.Config, kv store.KeyValueStore, content evidence.ContentStore, opts ...Option) *Tracker {
	if cfg == nil {
		cfg = models.DefaultConfig()
	}
	if content == nil {
		content = evidence.DataURLStore{}
	}

	t := &Tracker{
		cfg:    cfg,
		store:  kv,
		sheets: clients.NewSheetsClient(),
		log:    zap.NewNop(),
		now:    time.Now,
		mapper: &mapper.Mapper{
			Candidates:      mapper.DefaultCandidates().WithOverrides(cfg.Columns),
			Classifier:      classifier.FromConfig(cfg.Classifier),
			DefaultCategory: mapper.DefaultCategory,
		},
		reportName:      cfg.ReportName,
		requireEvidence: cfg.RequireEvidence,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.repo = repository.New(t.now)
	t.evidence = &evidence.Manager{
		Limits: evidence.Limits{
			MaxFiles:     cfg.Evidence.MaxFiles,
			MaxFileBytes: cfg.Evidence.MaxFileBytes(),
		},
		Content:  content,
		Parallel: cfg.Evidence.ParallelReads,
		Now:      t.now,
		Logger:   t.log,
	}
	return t
}

// reportData is the persisted form of the loaded report
type reportData struct {
	Items       []models.Finding `json:"items"`
	LoadedAtISO *time.Time       `json:"loadedAtISO"`
	Source      *models.Source   `json:"source"`
}

// Open restores the report, progress and policy from the store. Values that
// cannot be decoded are treated as absent.
func (t *Tracker) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	policy, ok, err := t.store.Get(ctx, KeyPolicy)
	if err != nil {
		return fmt.Errorf("failed to read evidence policy: %w", err)
	}
	if ok {
		switch policy {
		case "1":
			t.requireEvidence = true
		case "0":
			t.requireEvidence = false
		default:
			t.log.Warn("Ignoring corrupt evidence policy", zap.String("value", policy))
		}
	}

	var data reportData
	if err := t.readJSON(ctx, KeyData, &data); err != nil {
		return err
	}
	var progress map[string]*models.Progress
	if err := t.readJSON(ctx, KeyProgress, &progress); err != nil {
		return err
	}

	t.repo.ClearAll()
	t.repo.RestoreProgress(progress)
	if err := checkIDs(data.Items); err != nil {
		t.log.Warn("Ignoring stored report", zap.Error(err))
		data = reportData{}
	}
	t.repo.ReplaceFindings(data.Items)
	t.source = data.Source
	t.loadedAt = time.Time{}
	if data.LoadedAtISO != nil {
		t.loadedAt = *data.LoadedAtISO
	}

	changed := evidence.SyncPolicy(t.repo.Progress(), t.requireEvidence)
	t.log.Debug("Restored tracker state",
		zap.Int("findings", t.repo.Len()),
		zap.Int("progress", len(t.repo.Progress())),
		zap.Bool("require_evidence", t.requireEvidence),
		zap.Int("resynced", changed))
	return nil
}

// readJSON decodes a stored value into v. A missing or corrupt value leaves v untouched.
func (t *Tracker) readJSON(ctx context.Context, key string, v any) error {
	raw, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		t.log.Warn("Ignoring corrupt stored value", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// save writes one key. Failures are logged and reported as false; the
// in-memory state stays authoritative.
func (t *Tracker) save(ctx context.Context, key string, v any) bool {
	var value string
	switch x := v.(type) {
	case string:
		value = x
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.log.Warn("Failed to encode state", zap.String("key", key), zap.Error(err))
			return false
		}
		value = string(data)
	}
	if err := t.store.Set(ctx, key, value); err != nil {
		t.log.Warn("Failed to persist state; change kept in memory only",
			zap.String("key", key), zap.Int("bytes", len(value)), zap.Error(err))
		return false
	}
	return true
}

func (t *Tracker) saveProgress(ctx context.Context) bool {
	return t.save(ctx, KeyProgress, t.repo.Progress())
}

func (t *Tracker) saveData(ctx context.Context) bool {
	data := reportData{Items: t.repo.AllFindings(), Source: t.source}
	if data.Items == nil {
		data.Items = []models.Finding{}
	}
	if !t.loadedAt.IsZero() {
		at := t.loadedAt
		data.LoadedAtISO = &at
	}
	return t.save(ctx, KeyData, data)
}

func (t *Tracker) savePolicy(ctx context.Context) bool {
	v := "0"
	if t.requireEvidence {
		v = "1"
	}
	return t.save(ctx, KeyPolicy, v)
}

func (t *Tracker) authorize(actor models.Role) error {
	if !actor.CanMutate() {
		return fmt.Errorf("%w (acting as %s)", ErrForbidden, actor)
	}
	return nil
}

// RequireEvidence reports the current evidence policy
func (t *Tracker) RequireEvidence() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requireEvidence
}

// Info describes the loaded report
type Info struct {
	ReportName      string         `json:"reportName"`
	LoadedAt        time.Time      `json:"loadedAt"`
	Source          *models.Source `json:"source"`
	Findings        int            `json:"findings"`
	RequireEvidence bool           `json:"requireEvidenceForClosure"`
}

// Info returns metadata about the loaded report
func (t *Tracker) Info() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Info{
		ReportName:      t.reportName,
		LoadedAt:        t.loadedAt,
		Source:          t.source,
		Findings:        t.repo.Len(),
		RequireEvidence: t.requireEvidence,
	}
}

func checkIDs(items []models.Finding) error {
	seen := make(map[string]bool, len(items))
	for i, f := range items {
		if f.ID == "" {
			return fmt.Errorf("item %d has no id", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("duplicate id %q", f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}
