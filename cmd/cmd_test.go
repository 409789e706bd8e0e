package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethanolivertroy/nc-tracker/internal/closure"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"github.com/ethanolivertroy/nc-tracker/internal/reporter"
	"github.com/ethanolivertroy/nc-tracker/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"usage", usage(errors.New("bad flag")), exitUsage},
		{"invalid config", invalid(errors.New("bad toml")), exitInvalid},
		{"wrapped snapshot version", fmt.Errorf("import: %w", reporter.ErrIncompatibleSnapshot), exitInvalid},
		{"forbidden", tracker.ErrForbidden, exitFailure},
		{"not found", fmt.Errorf("%w: NC-9", tracker.ErrNotFound), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestCodeErrorUnwraps(t *testing.T) {
	err := invalid(fmt.Errorf("wrapped: %w", reporter.ErrIncompatibleSnapshot))
	assert.ErrorIs(t, err, reporter.ErrIncompatibleSnapshot)
	assert.Equal(t, "wrapped: "+reporter.ErrIncompatibleSnapshot.Error(), err.Error())
}

func TestExactArgsReportsUsage(t *testing.T) {
	err := exactArgs(1)(showCmd, nil)
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
	assert.NoError(t, exactArgs(1)(showCmd, []string{"NC-1"}))

	err = minimumArgs(2)(evidenceAddCmd, []string{"NC-1"})
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestWatchFileDebouncesWrites(t *testing.T) {
	logger = zap.NewNop()
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,finding\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 10)
	errc := make(chan error, 1)
	go func() {
		errc <- watchFile(ctx, path, 50*time.Millisecond, func() { fired <- struct{}{} })
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("id,finding\n%d,gap\n", i)), 0o644))
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("trigger was not called after the report changed")
	}

	// burst collapsed into one reload
	select {
	case <-fired:
		t.Fatal("trigger fired more than once for one burst of writes")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watchFile did not return after cancel")
	}
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, writeOutput(path, []byte("a,b\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))

	assert.Error(t, writeOutput(filepath.Join(t.TempDir(), "missing", "out.csv"), []byte("x")))
}

func TestWatchFileWaitsForRunningTrigger(t *testing.T) {
	logger = zap.NewNop()
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,finding\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{}, 1)
	var finished atomic.Bool
	errc := make(chan error, 1)
	go func() {
		errc <- watchFile(ctx, path, 20*time.Millisecond, func() {
			select {
			case started <- struct{}{}:
			default:
			}
			time.Sleep(200 * time.Millisecond)
			finished.Store(true)
		})
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("id,finding\n1,gap\n"), 0o644))

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("trigger was not called after the report changed")
	}
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
		assert.True(t, finished.Load(), "watchFile returned while a reload was still running")
	case <-time.After(3 * time.Second):
		t.Fatal("watchFile did not return after cancel")
	}
}

func TestLoadSummaryLines(t *testing.T) {
	res := tracker.LoadResult{
		Findings: []models.Finding{{ID: "NC-1"}, {ID: "NC-2"}, {ID: "F-003"}},
		NC:       2,
	}

	assert.Equal(t, "✅ Loaded 3 findings (2 non-conformities) from audit.csv", loadedLine(res, "audit.csv"))

	at := time.Date(2025, 3, 1, 9, 30, 5, 0, time.Local)
	stats := tracker.Stats{Closed: 1, Percent: 50, ByState: map[closure.State]int{}}
	assert.Equal(t, "[09:30:05] 3 findings, 2 NCs, 1 closed (50%)", reloadedLine(at, res, stats))
}

func TestEvidenceOutputPath(t *testing.T) {
	tests := []struct {
		name    string
		flagged string
		stored  string
		want    string
	}{
		{"plain name", "", "photo.jpg", "photo.jpg"},
		{"explicit output wins", "out/proof.pdf", "photo.jpg", "out/proof.pdf"},
		{"stdout", "-", "photo.jpg", "-"},
		{"parent segments dropped", "", "../../etc/cron.d/job", "job"},
		{"absolute path dropped", "", "/tmp/evil.sh", "evil.sh"},
		{"backslashes dropped", "", `..\..\boot.ini`, "boot.ini"},
		{"nothing left", "", "..", "evidence.bin"},
		{"empty name", "", "", "evidence.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evidenceOutputPath(tt.flagged, tt.stored))
		})
	}
}
