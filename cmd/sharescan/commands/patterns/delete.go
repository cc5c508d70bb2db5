package patterns

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/cmd/sharescan/cmdutil"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <pattern-id>",
	Short: "Delete a detection pattern",
	Long: `Delete a detection pattern from the result store.

Existing findings recorded under the pattern's category are kept. To
stop matching without losing the rule, use 'sharescan patterns disable'
instead.

Examples:
  # Delete with confirmation prompt
  sharescan patterns delete 4f8a1c02-95d7-4e6b-8a33-0c1d2e3f4a5b

  # Delete without prompting
  sharescan patterns delete 4f8a1c02-95d7-4e6b-8a33-0c1d2e3f4a5b --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	_, st, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()

	// Show the expression in the prompt, not just the opaque ID.
	p, err := st.GetPattern(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load pattern: %w", err)
	}

	return cmdutil.RunDeleteWithConfirmation("pattern", p.Pattern, deleteForce, func() error {
		if err := st.DeletePattern(ctx, p.ID); err != nil {
			return fmt.Errorf("failed to delete pattern: %w", err)
		}
		return nil
	})
}
