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

var (
	sessionsOutput string
	sessionsLimit  int
	sessionsOffset int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List scan sessions",
	Long: `List recorded scan sessions, newest first.

Examples:
  # List sessions as a table
  sharescan report sessions

  # List as JSON
  sharescan report sessions -o json

  # Page through older sessions
  sharescan report sessions --limit 10 --offset 10`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsOutput, "output", "o", "table", "Output format (table|json|yaml)")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of sessions to list")
	sessionsCmd.Flags().IntVar(&sessionsOffset, "offset", 0, "Number of sessions to skip")
}

// SessionList is a list of scan sessions for table rendering.
type SessionList []models.ScanSession

// Headers implements TableRenderer.
func (sl SessionList) Headers() []string {
	return []string{"ID", "DOMAIN", "STATUS", "STARTED", "DURATION", "HOSTS", "SHARES", "SENSITIVE"}
}

// Rows implements TableRenderer.
func (sl SessionList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		rows = append(rows, []string{
			s.ID,
			s.Domain,
			s.Status,
			humanize.Time(s.StartTime),
			timeutil.FormatDuration(s.Duration()),
			humanize.Comma(int64(s.TotalHosts)),
			humanize.Comma(int64(s.TotalShares)),
			humanize.Comma(int64(s.TotalSensitive)),
		})
	}
	return rows
}

func runSessions(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(sessionsOutput)
	if err != nil {
		return err
	}

	_, st, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	sessions, err := st.ListSessions(context.Background(), sessionsLimit, sessionsOffset)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, format, sessions, len(sessions) == 0, "No scan sessions found.", SessionList(sessions))
}
