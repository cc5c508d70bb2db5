package report

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/cmd/sharescan/cmdutil"
	"github.com/bastionsec/sharescan/internal/cli/output"
	"github.com/bastionsec/sharescan/pkg/models"
	"github.com/bastionsec/sharescan/pkg/store"
)

var (
	findingsOutput   string
	findingsCategory string
	findingsHostname string
	findingsLimit    int
	findingsOffset   int
)

var findingsCmd = &cobra.Command{
	Use:   "findings <session-id>",
	Short: "List sensitive file findings",
	Long: `List the sensitive filename findings recorded for one scan session.

Each finding is a file whose name matched an enabled detection pattern,
joined with the host and share it was found on.

Examples:
  # All findings from the most recent session
  sharescan report findings latest

  # Password-related findings only
  sharescan report findings latest --category password

  # Findings on one host, as JSON
  sharescan report findings latest --hostname fs01.corp.example.com -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runFindings,
}

func init() {
	findingsCmd.Flags().StringVarP(&findingsOutput, "output", "o", "table", "Output format (table|json|yaml)")
	findingsCmd.Flags().StringVar(&findingsCategory, "category", "", "Filter by detection category")
	findingsCmd.Flags().StringVar(&findingsHostname, "hostname", "", "Filter by hostname")
	findingsCmd.Flags().IntVar(&findingsLimit, "limit", 0, "Maximum number of findings to list (0 = no limit)")
	findingsCmd.Flags().IntVar(&findingsOffset, "offset", 0, "Number of findings to skip")
}

// FindingList is a list of findings for table rendering.
type FindingList []models.Finding

// Headers implements TableRenderer.
func (fl FindingList) Headers() []string {
	return []string{"HOSTNAME", "SHARE", "CATEGORY", "PATH"}
}

// Rows implements TableRenderer.
func (fl FindingList) Rows() [][]string {
	rows := make([][]string, 0, len(fl))
	for _, f := range fl {
		rows = append(rows, []string{f.Hostname, f.ShareName, f.DetectionType, f.FilePath})
	}
	return rows
}

func runFindings(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(findingsOutput)
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

	findings, err := st.ListFindings(ctx, store.FindingFilter{
		SessionID: sessionID,
		Category:  findingsCategory,
		Hostname:  findingsHostname,
		Limit:     findingsLimit,
		Offset:    findingsOffset,
	})
	if err != nil {
		return fmt.Errorf("failed to list findings: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, format, findings, len(findings) == 0, "No findings recorded.", FindingList(findings))
}
