package patterns

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/cmd/sharescan/cmdutil"
)

var enableCmd = &cobra.Command{
	Use:   "enable <pattern-id>",
	Short: "Enable a detection pattern",
	Long: `Enable a detection pattern so the next scan matches against it.

Examples:
  sharescan patterns enable 4f8a1c02-95d7-4e6b-8a33-0c1d2e3f4a5b`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPatternEnabled(cmd, args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <pattern-id>",
	Short: "Disable a detection pattern",
	Long: `Disable a detection pattern without deleting it. Disabled patterns
are skipped when the registry loads, so the next scan ignores them.

Examples:
  sharescan patterns disable 4f8a1c02-95d7-4e6b-8a33-0c1d2e3f4a5b`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPatternEnabled(cmd, args[0], false)
	},
}

func setPatternEnabled(cmd *cobra.Command, patternID string, enabled bool) error {
	_, st, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.SetPatternEnabled(context.Background(), patternID, enabled); err != nil {
		action := "enable"
		if !enabled {
			action = "disable"
		}
		return fmt.Errorf("failed to %s pattern: %w", action, err)
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Printf("Pattern %s %s\n", patternID, state)
	return nil
}
