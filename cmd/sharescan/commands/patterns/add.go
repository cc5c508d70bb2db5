package patterns

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/cmd/sharescan/cmdutil"
	"github.com/bastionsec/sharescan/internal/cli/prompt"
)

var (
	addPattern     string
	addCategory    string
	addDescription string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a detection pattern",
	Long: `Add a detection pattern to the result store.

The pattern is a case-insensitive regular expression matched against
file names. If --pattern or --category are not provided, you will be
prompted interactively.

Examples:
  # Add a pattern interactively
  sharescan patterns add

  # Add a pattern with flags
  sharescan patterns add --pattern 'backup.*\.sql' --category database --description 'Database dumps'`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addPattern, "pattern", "p", "", "Regular expression to match against file names")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "Detection category")
	addCmd.Flags().StringVar(&addDescription, "description", "", "Human-readable description")
}

func runAdd(cmd *cobra.Command, args []string) error {
	interactive := !cmd.Flags().Changed("pattern")

	expr := addPattern
	if expr == "" {
		var err error
		expr, err = prompt.InputRequired("Pattern")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	category := addCategory
	if category == "" {
		var err error
		category, err = prompt.InputRequired("Category")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	description := addDescription
	if interactive && !cmd.Flags().Changed("description") {
		var err error
		description, err = prompt.Input("Description", "")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	_, st, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	p, err := st.AddPattern(context.Background(), expr, category, description)
	if err != nil {
		return fmt.Errorf("failed to add pattern: %w", err)
	}

	fmt.Printf("Pattern '%s' added with ID %s (category %s)\n", p.Pattern, p.ID, p.Category)
	return nil
}
