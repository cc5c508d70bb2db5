package report

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/cmd/sharescan/cmdutil"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a scan session",
	Long: `Delete a scan session and everything recorded under it: shares, root
inventories, and sensitive findings.

Examples:
  # Delete with confirmation prompt
  sharescan report delete 1b9c0a44-7d2e-4f0a-9c3d-2f8e5a6b7c8d

  # Delete the most recent session without prompting
  sharescan report delete latest --force`,
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

	sessionID, err := cmdutil.ResolveSession(ctx, st, args[0])
	if err != nil {
		return err
	}

	return cmdutil.RunDeleteWithConfirmation("session", sessionID, deleteForce, func() error {
		if err := st.DeleteSession(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}
