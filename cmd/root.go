package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethanolivertroy/nc-tracker/internal/evidence"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"github.com/ethanolivertroy/nc-tracker/internal/reporter"
	"github.com/ethanolivertroy/nc-tracker/internal/store"
	"github.com/ethanolivertroy/nc-tracker/internal/tracker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitInvalid = 3
)

var (
	flagConfig  string
	flagAs      string
	flagVerbose bool
)

var (
	cfg    *models.Config
	actor  models.Role
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nctracker",
	Short: "Track audit non-conformities through corrective action to closure",
	Long: `nctracker loads a compliance audit report (CSV, Excel or a Google Sheet),
classifies each row as a non-conformity (NC) or an informational item, and
drives every NC through a fixed corrective-action checklist:

  containment, rootCause, correctiveAction, preventiveAction,
  evidence, verification, managementSignoff

Closure state (open, progress, ready, closed) is derived from the checklist.
When evidence is required for closure, an NC only closes once a link, a note
of at least 20 characters or an attached file backs it up.

Examples:
  # Load a report
  nctracker load audit.xlsx

  # Load the configured Google Sheet
  nctracker load --sheet https://docs.google.com/spreadsheets/d/<id>/edit

  # List open NCs
  nctracker list --only-nc --state open

  # Tick a checklist step
  nctracker check NC-12 containment

  # Attach evidence
  nctracker evidence add NC-12 photo.jpg invoice.pdf

  # Export for the auditor
  nctracker export --format csv --output corrections.csv

  # What a read-only viewer sees
  nctracker list --as viewer`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = models.LoadConfig(flagConfig)
		if err != nil {
			return invalid(err)
		}
		actor, err = models.ParseRole(flagAs)
		if err != nil {
			return usage(err)
		}

		config := zap.NewProductionConfig()
		config.Encoding = "console"
		if cfg.Logging.JSON {
			config.Encoding = "json"
		}
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return invalid(fmt.Errorf("logging.level: %w", err))
		}
		if flagVerbose {
			level = zapcore.DebugLevel
		}
		config.Level = zap.NewAtomicLevelAt(level)
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	var ce *codeError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ce):
		return ce.code
	case errors.Is(err, reporter.ErrIncompatibleSnapshot):
		return exitInvalid
	default:
		return exitFailure
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (.toml or .yaml)")
	rootCmd.PersistentFlags().StringVar(&flagAs, "as", string(models.RoleAdmin), "Role to act as: admin or viewer")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usage(err)
	})
}

// codeError carries a specific exit code
type codeError struct {
	err  error
	code int
}

func (e *codeError) Error() string { return e.err.Error() }
func (e *codeError) Unwrap() error { return e.err }

func usage(err error) error   { return &codeError{err: err, code: exitUsage} }
func invalid(err error) error { return &codeError{err: err, code: exitInvalid} }

// exactArgs is cobra.ExactArgs reporting a usage error
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usage(err)
		}
		return nil
	}
}

func minimumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return usage(err)
		}
		return nil
	}
}

// openTracker builds a tracker over the configured backends and restores its state
func openTracker(ctx context.Context) (*tracker.Tracker, func(), error) {
	kv, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}

	var content evidence.ContentStore
	if cfg.Evidence.ContentDir != "" {
		content, err = evidence.NewDirStore(cfg.Evidence.ContentDir)
		if err != nil {
			kv.Close()
			return nil, nil, err
		}
	}

	t := tracker.New(cfg, kv, content, tracker.WithLogger(logger))
	if err := t.Open(ctx); err != nil {
		kv.Close()
		return nil, nil, err
	}
	logger.Debug("Opened tracker",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("actor", string(actor)))
	return t, func() { kv.Close() }, nil
}

// warnUnsaved tells the user a change was applied but did not reach the store
func warnUnsaved(persisted bool) {
	if !persisted {
		fmt.Fprintln(os.Stderr, "⚠️  Change applied but could not be saved (storage full or unavailable); it will be lost when the tracker closes.")
	}
}
