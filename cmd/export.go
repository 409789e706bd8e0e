package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethanolivertroy/nc-tracker/internal/reporter"
	"github.com/ethanolivertroy/nc-tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var (
	flagFormat string
	flagOutput string
	flagYes    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export findings with their progress",
	Long: `Formats:
  terminal  human-readable summary (default)
  csv       one row per finding, the layout auditors expect
  json      summary plus one object per finding
  sarif     open non-conformities as SARIF 2.1.0 results
  snapshot  complete backup that import can restore (admin only)

Viewers only export closed non-conformities.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(flagFormat)
		if format != "snapshot" {
			if _, err := reporter.Get(format); err != nil {
				return usage(err)
			}
		}

		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		out, err := render(t, format)
		if err != nil {
			return err
		}
		return writeOutput(flagOutput, out)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <snapshot.json>",
	Short: "Restore a snapshot written by export --format snapshot",
	Long: `Import replaces the loaded report and the evidence policy with the ones in
the snapshot and restores every progress record it carries. Progress for ids
the snapshot does not mention is kept.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}
		snap, err := reporter.ParseSnapshot(data)
		if err != nil {
			return invalid(err)
		}

		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		persisted, err := t.ImportSnapshot(ctx, actor, snap)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Imported %d findings and %d progress records from %s\n",
			len(snap.Items), len(snap.Progress), args[0])
		warnUnsaved(persisted)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the report, all progress and the stored evidence policy",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagYes {
			return usage(fmt.Errorf("reset deletes all tracked progress; pass --yes to confirm"))
		}

		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		persisted, err := t.Reset(ctx, actor)
		if err != nil {
			return err
		}
		fmt.Println("Tracker reset")
		warnUnsaved(persisted)
		return nil
	},
}

// render produces an export in the given format
func render(t *tracker.Tracker, format string) ([]byte, error) {
	if format != "snapshot" {
		return t.Export(actor, format)
	}
	snap, err := t.ExportSnapshot(actor)
	if err != nil {
		return nil, err
	}
	return reporter.MarshalSnapshot(snap)
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&flagFormat, "format", "f", "terminal", "Output format: "+strings.Join(append(reporter.Formats, "snapshot"), ", "))
	exportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file (default: stdout)")

	resetCmd.Flags().BoolVar(&flagYes, "yes", false, "Confirm the reset")

	rootCmd.AddCommand(exportCmd, importCmd, resetCmd)
}
