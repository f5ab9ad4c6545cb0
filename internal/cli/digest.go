package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chorequest/internal/app"
	"chorequest/internal/service"
)

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.AddCommand(digestRunCmd)
	digestCmd.AddCommand(digestPreviewCmd)
	digestCmd.AddCommand(digestHistoryCmd)

	digestRunCmd.Flags().Bool("dry-run", false, "Render digests without sending email")
	digestRunCmd.Flags().String("now", "", "Reference instant (RFC3339); defaults to now")

	digestPreviewCmd.Flags().Int64("family", 0, "Family ID (required)")
	digestPreviewCmd.Flags().String("now", "", "Reference instant (RFC3339); defaults to now")
	digestPreviewCmd.Flags().String("format", "text", "Body to print: text or html")

	digestHistoryCmd.Flags().Int64("family", 0, "Family ID (required)")
	digestHistoryCmd.Flags().Int("limit", 10, "Number of runs to show")
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send or preview the weekly family digest",
}

var digestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Send the weekly digest to every family",
	RunE:  runDigest,
}

var digestPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render one family's digest to stdout",
	RunE:  runDigestPreview,
}

var digestHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List a family's recent digest runs",
	RunE:  runDigestHistory,
}

func runDigest(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	now, err := parseNow(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.Digest.Run(cmd.Context(), service.DigestOptions{DryRun: dryRun, Now: now})
	if summary != nil {
		out := cmd.OutOrStdout()
		for _, run := range summary.Runs {
			fmt.Fprintf(out, "family %d: %s (%d recipients)", run.FamilyID, run.Status, run.Recipients)
			if run.Error != "" {
				fmt.Fprintf(out, " - %s", run.Error)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%d families: %d sent, %d failed, %d skipped\n",
			summary.Families, summary.Sent, summary.Failed, summary.Skipped)
	}
	return err
}

func runDigestPreview(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	now, err := parseNow(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "html" {
		return fmt.Errorf("unsupported format %q", format)
	}

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	digest, err := a.Digest.Preview(cmd.Context(), familyID, now)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Subject: %s\n\n", digest.Subject)
	if format == "html" {
		fmt.Fprint(out, digest.HTML)
	} else {
		fmt.Fprint(out, digest.Text)
	}
	return nil
}

func runDigestHistory(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.Digest.History(cmd.Context(), familyID, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No digest runs")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(out, "%s  %-8s %d recipients  %s", run.StartedAt.Format(time.RFC3339), run.Status, run.Recipients, run.Duration().Round(time.Millisecond))
		if run.Error != "" {
			fmt.Fprintf(out, "  %s", run.Error)
		}
		fmt.Fprintln(out)
	}
	return nil
}
