// Package patterns implements detection pattern management commands.
package patterns

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for detection pattern management.
var Cmd = &cobra.Command{
	Use:   "patterns",
	Short: "Detection pattern management",
	Long: `Manage the sensitivity detection patterns used during scans.

Patterns are case-insensitive regular expressions matched against file
names found on readable shares. The default set is seeded on first use;
changes take effect on the next scan.

Examples:
  # List enabled patterns
  sharescan patterns list

  # Add a custom pattern
  sharescan patterns add --pattern 'backup.*\.sql' --category database

  # Disable a noisy pattern
  sharescan patterns disable 4f8a...

  # Delete a pattern
  sharescan patterns delete 4f8a...`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(enableCmd)
	Cmd.AddCommand(disableCmd)
	Cmd.AddCommand(deleteCmd)
}
