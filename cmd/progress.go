package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethanolivertroy/nc-tracker/internal/evidence"
	"github.com/ethanolivertroy/nc-tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var flagOff bool

var checkCmd = &cobra.Command{
	Use:   "check <id> <step>",
	Short: "Tick (or with --off, untick) a corrective-action checklist step",
	Long: `Steps: containment, rootCause, correctiveAction, preventiveAction,
evidence, verification, managementSignoff.

While evidence is required for closure, the evidence step follows the attached
link, note and files and cannot be set by hand.`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		persisted, err := t.SetChecklistFlag(ctx, actor, args[0], args[1], !flagOff)
		if err != nil {
			return err
		}
		return reportState(t, args[0], persisted)
	},
}

var policyCmd = &cobra.Command{
	Use:       "policy <on|off>",
	Short:     "Require (on) or stop requiring (off) evidence before an NC can close",
	Args:      exactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var on bool
		switch strings.ToLower(args[0]) {
		case "on", "true", "yes":
			on = true
		case "off", "false", "no":
		default:
			return usage(fmt.Errorf("expected on or off, got %q", args[0]))
		}

		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		changed, persisted, err := t.SetEvidencePolicy(ctx, actor, on)
		if err != nil {
			return err
		}
		fmt.Printf("Evidence required for closure: %s (%d checklists updated)\n", yesNo(on), changed)
		warnUnsaved(persisted)
		return nil
	},
}

var (
	flagOwner          string
	flagDue            string
	flagComment        string
	flagLawRef         string
	flagCodeRef        string
	flagRecommendation string
)

var setCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Edit owner, due date, comment, requirement references or recommendation",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var fe tracker.FindingEdit
		var pe tracker.ProgressEdit
		if flags.Changed("law-ref") {
			fe.RequirementRefA = &flagLawRef
		}
		if flags.Changed("code-ref") {
			fe.RequirementRefB = &flagCodeRef
		}
		if flags.Changed("recommendation") {
			fe.Recommendation = &flagRecommendation
		}
		if flags.Changed("owner") {
			pe.Owner = &flagOwner
		}
		if flags.Changed("due") {
			pe.DueDate = &flagDue
		}
		if flags.Changed("comment") {
			pe.ReviewerComment = &flagComment
		}
		editFinding := fe != (tracker.FindingEdit{})
		editProgress := pe != (tracker.ProgressEdit{})
		if !editFinding && !editProgress {
			return usage(fmt.Errorf("nothing to set"))
		}

		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		persisted := true
		if editFinding {
			ok, err := t.UpdateFinding(ctx, actor, args[0], fe)
			if err != nil {
				return err
			}
			persisted = persisted && ok
		}
		if editProgress {
			ok, err := t.UpdateProgress(ctx, actor, args[0], pe)
			if err != nil {
				return err
			}
			persisted = persisted && ok
		}
		fmt.Printf("Updated %s\n", args[0])
		warnUnsaved(persisted)
		return nil
	},
}

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Manage the evidence backing a non-conformity",
}

var evidenceLinkCmd = &cobra.Command{
	Use:   "link <id> <url>",
	Short: "Set the evidence link (an empty string clears it)",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		persisted, err := t.SetEvidenceLink(ctx, actor, args[0], args[1])
		if err != nil {
			return err
		}
		return reportState(t, args[0], persisted)
	},
}

var evidenceNoteCmd = &cobra.Command{
	Use:   "note <id> <text...>",
	Short: "Set the evidence note",
	Args:  minimumArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		persisted, err := t.SetEvidenceNote(ctx, actor, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		return reportState(t, args[0], persisted)
	},
}

var evidenceAddCmd = &cobra.Command{
	Use:   "add <id> <file...>",
	Short: "Attach files as evidence",
	Args:  minimumArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		uploads := make([]evidence.Upload, 0, len(args)-1)
		for _, path := range args[1:] {
			u, err := evidence.FromPath(path)
			if err != nil {
				return err
			}
			uploads = append(uploads, u)
		}

		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		res, persisted, err := t.AddEvidenceFiles(ctx, actor, args[0], uploads)
		if err != nil {
			return err
		}
		fmt.Printf("Attached %d file(s)\n", res.Accepted)
		for _, r := range res.Rejections {
			fmt.Fprintf(os.Stderr, "  skipped %s: %s\n", r.Name, rejectionText(r))
		}
		return reportState(t, args[0], persisted)
	},
}

var evidenceRmCmd = &cobra.Command{
	Use:   "rm <id> <index>",
	Short: "Remove one attached file by its index (see show)",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return usage(fmt.Errorf("invalid index %q", args[1]))
		}

		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		persisted, err := t.RemoveEvidenceFile(ctx, actor, args[0], index)
		if err != nil {
			return err
		}
		return reportState(t, args[0], persisted)
	},
}

var evidenceClearCmd = &cobra.Command{
	Use:   "clear <id>",
	Short: "Remove every attached file",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		persisted, err := t.ClearEvidenceFiles(ctx, actor, args[0])
		if err != nil {
			return err
		}
		return reportState(t, args[0], persisted)
	},
}

var flagEvidenceOut string

var evidenceGetCmd = &cobra.Command{
	Use:   "get <id> <index>",
	Short: "Write the content of an attached file",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return usage(fmt.Errorf("invalid index %q", args[1]))
		}

		ctx := cmd.Context()
		t, done, err := openTracker(ctx)
		if err != nil {
			return err
		}
		defer done()

		ef, data, err := t.EvidenceContent(ctx, actor, args[0], index)
		if err != nil {
			return err
		}
		out := evidenceOutputPath(flagEvidenceOut, ef.Name)
		if out == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", out, len(data))
		return nil
	},
}

// evidenceOutputPath picks where evidence get writes. Stored names may come
// from an imported snapshot, so only their last element is used.
func evidenceOutputPath(flagged, stored string) string {
	if flagged != "" {
		return flagged
	}
	name := filepath.Base(filepath.FromSlash(strings.ReplaceAll(stored, `\`, "/")))
	switch name {
	case ".", "..", string(filepath.Separator):
		return "evidence.bin"
	}
	return name
}

func rejectionText(r evidence.Rejection) string {
	switch r.Reason {
	case evidence.ReasonTooLarge:
		return fmt.Sprintf("larger than %g MB", cfg.Evidence.MaxFileMB)
	case evidence.ReasonLimitReached:
		return fmt.Sprintf("limit of %d files reached", cfg.Evidence.MaxFiles)
	case evidence.ReasonUnreadable:
		if r.Err != "" {
			return "unreadable: " + r.Err
		}
		return "unreadable"
	}
	return r.Reason
}

// reportState prints the closure state reached after a change
func reportState(t *tracker.Tracker, id string, persisted bool) error {
	a, err := t.Assess(id)
	if err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", id, a.State.Label())
	warnUnsaved(persisted)
	return nil
}

func init() {
	checkCmd.Flags().BoolVar(&flagOff, "off", false, "Clear the step instead of setting it")

	setCmd.Flags().StringVar(&flagOwner, "owner", "", "Person responsible for the corrective action")
	setCmd.Flags().StringVar(&flagDue, "due", "", "Due date (free text, usually YYYY-MM-DD)")
	setCmd.Flags().StringVar(&flagComment, "comment", "", "Reviewer comment")
	setCmd.Flags().StringVar(&flagLawRef, "law-ref", "", "Legal requirement reference")
	setCmd.Flags().StringVar(&flagCodeRef, "code-ref", "", "Code of conduct reference")
	setCmd.Flags().StringVar(&flagRecommendation, "recommendation", "", "Recommendation text")

	evidenceGetCmd.Flags().StringVarP(&flagEvidenceOut, "output", "o", "", "Output path, - for stdout (default: the file's name)")

	evidenceCmd.AddCommand(evidenceLinkCmd, evidenceNoteCmd, evidenceAddCmd, evidenceRmCmd, evidenceClearCmd, evidenceGetCmd)
	rootCmd.AddCommand(checkCmd, policyCmd, setCmd, evidenceCmd)
}
