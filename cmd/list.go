package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethanolivertroy/nc-tracker/internal/closure"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"github.com/ethanolivertroy/nc-tracker/internal/reporter"
	"github.com/ethanolivertroy/nc-tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var (
	flagQuery    string
	flagSeverity string
	flagState    string
	flagOnlyNC   bool
	flagJSON     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List findings with their closure state",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := tracker.Filter{Query: flagQuery, OnlyNC: flagOnlyNC}
		if flagSeverity != "" {
			filter.Severity = models.Severity(strings.ToLower(flagSeverity))
			if !filter.Severity.IsValid() {
				return usage(fmt.Errorf("unknown severity %q", flagSeverity))
			}
		}
		if flagState != "" {
			s, err := closure.ParseState(flagState)
			if err != nil {
				return usage(err)
			}
			filter.State = s
		}

		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		items := t.Visible(actor, filter)
		if flagJSON {
			return printJSON(items)
		}

		entries := make([]reporter.Entry, 0, len(items))
		for _, it := range items {
			entries = append(entries, reporter.Entry{Finding: it.Finding, Progress: it.Progress, State: it.Assessment.State})
		}
		out, err := (&reporter.TerminalReporter{}).Report(reporter.Flatten(entries))
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one finding with its checklist and evidence",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		it, err := t.Get(actor, args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(it)
		}
		printItem(it)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show closure progress across the report",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		s := t.Stats(actor)
		if flagJSON {
			return printJSON(s)
		}
		info := t.Info()
		fmt.Printf("%s\n", info.ReportName)
		if !info.LoadedAt.IsZero() {
			fmt.Printf("Loaded %s from %s\n", info.LoadedAt.Local().Format("2006-01-02 15:04"), describeSource(info))
		}
		fmt.Printf("Evidence required for closure: %s\n\n", yesNo(info.RequireEvidence))
		fmt.Printf("Findings:          %d\n", s.Total)
		fmt.Printf("Non-conformities:  %d\n", s.NC)
		fmt.Printf("Closed:            %d (%d%%)\n", s.Closed, s.Percent)
		fmt.Printf("Still open:        %d\n", s.Open)
		for _, st := range closure.States {
			if n := s.ByState[st]; n > 0 {
				fmt.Printf("  %-16s %d\n", st.Label(), n)
			}
		}
		return nil
	},
}

func printItem(it tracker.Item) {
	f := it.Finding
	fmt.Printf("%s  %s\n", f.ID, f.Category)
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Finding:        %s\n", f.Text)
	if f.Recommendation != "" {
		fmt.Printf("Recommendation: %s\n", f.Recommendation)
	}
	fmt.Printf("Severity:       %s\n", f.Severity)
	if f.RequirementRefA != "" {
		fmt.Printf("Law reference:  %s\n", f.RequirementRefA)
	}
	if f.RequirementRefB != "" {
		fmt.Printf("Code reference: %s\n", f.RequirementRefB)
	}
	if !f.IsNonConformity {
		fmt.Println("\nInformational, no corrective action tracked.")
		return
	}

	fmt.Printf("\nState: %s\n", it.Assessment.State.Label())
	p := it.Progress
	if p == nil {
		p = &models.Progress{}
	}
	for _, k := range models.ChecklistKeys {
		mark := "[ ]"
		if p.Checklist.Get(k) {
			mark = "[x]"
		}
		fmt.Printf("  %s %s\n", mark, k)
	}
	if len(it.Assessment.Missing) > 0 {
		missing := make([]string, len(it.Assessment.Missing))
		for i, k := range it.Assessment.Missing {
			missing[i] = string(k)
		}
		fmt.Printf("Missing: %s\n", strings.Join(missing, ", "))
	}
	if !it.Assessment.EvidenceOK {
		fmt.Println("⚠️  No evidence attached yet")
	}

	if p.Owner != "" || p.DueDate != "" {
		fmt.Printf("\nOwner: %s  Due: %s\n", p.Owner, p.DueDate)
	}
	if p.ReviewerComment != "" {
		fmt.Printf("Comment: %s\n", p.ReviewerComment)
	}
	if p.EvidenceLink != "" {
		fmt.Printf("Evidence link: %s\n", p.EvidenceLink)
	}
	if p.EvidenceNote != "" {
		fmt.Printf("Evidence note: %s\n", p.EvidenceNote)
	}
	for i, ef := range p.EvidenceFiles {
		fmt.Printf("  #%d %s (%s, %d KB)\n", i, ef.Name, ef.MimeType, (ef.SizeBytes+1023)/1024)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	listCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "Case-insensitive text search")
	listCmd.Flags().StringVar(&flagSeverity, "severity", "", "Only show this severity (critical, high, medium, low, info)")
	listCmd.Flags().StringVar(&flagState, "state", "", "Only show NCs in this state (open, progress, ready, closed)")
	listCmd.Flags().BoolVar(&flagOnlyNC, "only-nc", false, "Hide informational findings")

	for _, c := range []*cobra.Command{listCmd, showCmd, statsCmd} {
		c.Flags().BoolVar(&flagJSON, "json", false, "Output JSON")
	}

	rootCmd.AddCommand(listCmd, showCmd, statsCmd)
}
