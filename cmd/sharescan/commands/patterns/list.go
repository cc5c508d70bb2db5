package patterns

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/cmd/sharescan/cmdutil"
	"github.com/bastionsec/sharescan/internal/cli/output"
	"github.com/bastionsec/sharescan/pkg/models"
)

var (
	listOutput string
	listAll    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List detection patterns",
	Long: `List the detection patterns in the result store.

By default only enabled patterns are shown. Use --all to include
disabled ones.

Examples:
  # List enabled patterns
  sharescan patterns list

  # Include disabled patterns
  sharescan patterns list --all

  # List as JSON
  sharescan patterns list -o json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include disabled patterns")
}

// PatternList is a list of detection patterns for table rendering.
type PatternList []models.Pattern

// Headers implements TableRenderer.
func (pl PatternList) Headers() []string {
	return []string{"ID", "PATTERN", "CATEGORY", "DESCRIPTION", "ENABLED"}
}

// Rows implements TableRenderer.
func (pl PatternList) Rows() [][]string {
	rows := make([][]string, 0, len(pl))
	for _, p := range pl {
		rows = append(rows, []string{
			p.ID,
			p.Pattern,
			p.Category,
			cmdutil.EmptyOr(p.Description, "-"),
			cmdutil.BoolToYesNo(p.Enabled),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(listOutput)
	if err != nil {
		return err
	}

	_, st, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	patterns, err := st.ListPatterns(context.Background(), !listAll)
	if err != nil {
		return fmt.Errorf("failed to list patterns: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, format, patterns, len(patterns) == 0, "No patterns found.", PatternList(patterns))
}
