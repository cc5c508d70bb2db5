package report

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/cmd/sharescan/cmdutil"
	"github.com/bastionsec/sharescan/internal/cli/output"
	"github.com/bastionsec/sharescan/internal/cli/timeutil"
	"github.com/bastionsec/sharescan/pkg/models"
)

var summaryOutput string

var summaryCmd = &cobra.Command{
	Use:   "summary <session-id>",
	Short: "Summarize one scan session",
	Long: `Summarize one scan session: totals, access level breakdown, and the
top sensitive categories and hosts.

Examples:
  # Summarize the most recent session
  sharescan report summary latest

  # Summarize a specific session as JSON
  sharescan report summary 1b9c0a44-7d2e-4f0a-9c3d-2f8e5a6b7c8d -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().StringVarP(&summaryOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runSummary(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(summaryOutput)
	if err != nil {
		return err
	}

	_, st, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()

	sessionID, err := cmdutil.ResolveSession(ctx, st, args[0])
	if err != nil {
		return err
	}

	summary, err := st.Summary(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to summarize session: %w", err)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, summary)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, summary)
	default:
		return printSummaryTable(summary)
	}
}

func printSummaryTable(summary *models.SessionSummary) error {
	sess := summary.Session

	pairs := [][2]string{
		{"Session", sess.ID},
		{"Domain", sess.Domain},
		{"Status", sess.Status},
		{"Started", timeutil.FormatLocalTime(sess.StartTime)},
		{"Duration", timeutil.FormatDuration(sess.Duration())},
		{"Hosts", humanize.Comma(int64(sess.TotalHosts))},
		{"Shares", humanize.Comma(int64(summary.ShareCount))},
		{"Sensitive files", humanize.Comma(int64(summary.SensitiveCount))},
	}
	if err := output.SimpleTable(os.Stdout, pairs); err != nil {
		return err
	}

	if len(summary.AccessLevels) > 0 {
		fmt.Println("\nAccess levels:")
		table := output.NewTableData("ACCESS", "SHARES")
		for _, level := range models.AccessLevelOrder() {
			if count, ok := summary.AccessLevels[string(level)]; ok {
				table.AddRow(string(level), humanize.Comma(int64(count)))
			}
		}
		if err := output.PrintTable(os.Stdout, table); err != nil {
			return err
		}
	}

	if len(summary.TopCategories) > 0 {
		fmt.Println("\nTop sensitive categories:")
		table := output.NewTableData("CATEGORY", "FILES")
		for _, c := range summary.TopCategories {
			table.AddRow(c.Category, humanize.Comma(int64(c.Count)))
		}
		if err := output.PrintTable(os.Stdout, table); err != nil {
			return err
		}
	}

	if len(summary.TopHosts) > 0 {
		fmt.Println("\nTop hosts by findings:")
		table := output.NewTableData("HOSTNAME", "FILES")
		for _, h := range summary.TopHosts {
			table.AddRow(h.Hostname, humanize.Comma(int64(h.Count)))
		}
		if err := output.PrintTable(os.Stdout, table); err != nil {
			return err
		}
	}

	return nil
}
