package cmd

import (
	"fmt"

	"github.com/ethanolivertroy/nc-tracker/internal/mapper"
	"github.com/ethanolivertroy/nc-tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var flagSheet string

var loadCmd = &cobra.Command{
	Use:   "load [file]",
	Short: "Load an audit report from a CSV or Excel file, or a Google Sheet",
	Long: `Load replaces the current report. Progress already recorded for ids that
appear in the new report is kept; progress for ids that disappear is kept too
and shows up again if a later report brings them back.

Without a file argument, --sheet or the configured sheet_url is used.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
			return usage(err)
		}
		if len(args) == 1 && flagSheet != "" {
			return usage(fmt.Errorf("give either a file or --sheet, not both"))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		var res tracker.LoadResult
		if len(args) == 1 {
			res, err = t.LoadFile(ctx, actor, args[0])
		} else {
			res, err = t.LoadSheet(ctx, actor, flagSheet)
		}
		if err != nil {
			return err
		}

		fmt.Println(loadedLine(res, describeSource(t.Info())))
		warnUnsaved(res.Persisted)
		return nil
	},
}

var (
	flagClassifyStatus   string
	flagClassifyText     string
	flagClassifyReco     string
	flagClassifySeverity string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Show how a single report row would be classified",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		res := t.ClassifyRow(mapper.NewRow(
			"Status", flagClassifyStatus,
			"Finding", flagClassifyText,
			"Recommendation", flagClassifyReco,
			"Severity", flagClassifySeverity,
		))
		kind := "informational"
		if res.IsNonConformity {
			kind = "non-conformity"
		}
		rule := res.Rule
		if rule == "" {
			rule = "default"
		}
		fmt.Printf("%s (severity %s, rule %s)\n", kind, res.Severity, rule)
		return nil
	},
}

func loadedLine(res tracker.LoadResult, from string) string {
	return fmt.Sprintf("✅ Loaded %d findings (%d non-conformities) from %s", len(res.Findings), res.NC, from)
}

func describeSource(info tracker.Info) string {
	if info.Source == nil {
		return info.ReportName
	}
	switch {
	case info.Source.URL != "":
		return info.Source.URL
	case info.Source.Sheet != "" && info.Source.Name != "":
		return fmt.Sprintf("%s [%s]", info.Source.Name, info.Source.Sheet)
	case info.Source.Name != "":
		return info.Source.Name
	}
	return info.Source.Type
}

func init() {
	loadCmd.Flags().StringVar(&flagSheet, "sheet", "", "Google Sheets URL to fetch instead of a file")

	classifyCmd.Flags().StringVar(&flagClassifyStatus, "status", "", "Status column value")
	classifyCmd.Flags().StringVar(&flagClassifyText, "text", "", "Finding text")
	classifyCmd.Flags().StringVar(&flagClassifyReco, "recommendation", "", "Recommendation text")
	classifyCmd.Flags().StringVar(&flagClassifySeverity, "severity", "", "Severity column value")

	rootCmd.AddCommand(loadCmd, classifyCmd)
}
