package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ethanolivertroy/nc-tracker/internal/reporter"
	"github.com/ethanolivertroy/nc-tracker/internal/tracker"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagWatchExport   string
	flagWatchFormat   string
	flagWatchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Reload a report file whenever it changes",
	Long: `Watch loads the report once, then reloads it each time the file is saved.
Progress is kept across reloads. With --export, the export is rewritten after
every successful reload.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagWatchExport != "" {
			if _, err := reporter.Get(flagWatchFormat); err != nil {
				return usage(err)
			}
		}
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		if err := reload(ctx, t, path); err != nil {
			return err
		}
		return watchFile(ctx, path, flagWatchDebounce, func() {
			if err := reload(ctx, t, path); err != nil {
				fmt.Fprintf(os.Stderr, "❌ Reload failed: %v\n", err)
			}
		})
	},
}

// watchFile calls trigger after the file settles following a change.
// The parent directory is watched since editors often replace files by rename.
// Trigger runs on the calling goroutine, so none is in flight once watchFile returns.
func watchFile(ctx context.Context, path string, debounce time.Duration, trigger func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init failed: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	logger.Info("Watching report", zap.String("path", path))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error", zap.Error(err))
		}
	}
}

func reload(ctx context.Context, t *tracker.Tracker, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	res, err := t.LoadFile(ctx, actor, path)
	if err != nil {
		return err
	}
	fmt.Println(reloadedLine(time.Now(), res, t.Stats(actor)))
	warnUnsaved(res.Persisted)

	if flagWatchExport == "" {
		return nil
	}
	out, err := t.Export(actor, strings.ToLower(flagWatchFormat))
	if err != nil {
		return err
	}
	return os.WriteFile(flagWatchExport, out, 0o644)
}

func reloadedLine(at time.Time, res tracker.LoadResult, s tracker.Stats) string {
	return fmt.Sprintf("[%s] %d findings, %d NCs, %d closed (%d%%)",
		at.Format("15:04:05"), len(res.Findings), res.NC, s.Closed, s.Percent)
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchExport, "export", "", "Rewrite this export file after each reload")
	watchCmd.Flags().StringVar(&flagWatchFormat, "format", "csv", "Format of --export: "+strings.Join(reporter.Formats, ", "))
	watchCmd.Flags().DurationVar(&flagWatchDebounce, "debounce", 300*time.Millisecond, "Quiet period before reloading")

	rootCmd.AddCommand(watchCmd)
}
