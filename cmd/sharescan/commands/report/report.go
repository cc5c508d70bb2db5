// Package report implements scan result reporting commands.
package report

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for scan result reports.
var Cmd = &cobra.Command{
	Use:   "report",
	Short: "Query recorded scan results",
	Long: `Query scan results recorded in the result store.

Report commands read the database configured in the config file (SQLite
by default), so they work without the API server running.

Wherever a <session-id> is expected, the literal string "latest" selects
the most recent scan session.

Examples:
  # List recorded scan sessions
  sharescan report sessions

  # Summarize the most recent session
  sharescan report summary latest

  # Shares where the scan account had write access
  sharescan report shares latest --access WRITE

  # Sensitive findings in one category
  sharescan report findings latest --category password

  # Delete a session and all its results
  sharescan report delete latest`,
}

func init() {
	Cmd.AddCommand(sessionsCmd)
	Cmd.AddCommand(summaryCmd)
	Cmd.AddCommand(sharesCmd)
	Cmd.AddCommand(findingsCmd)
	Cmd.AddCommand(deleteCmd)
}
