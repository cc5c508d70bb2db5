package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/internal/auth/ntlm"
	"github.com/bastionsec/sharescan/internal/cli/prompt"
)

var nthashCmd = &cobra.Command{
	Use:   "nthash [password]",
	Short: "Compute the NT hash of a password",
	Long: `Compute the NT hash of a password for pass-the-hash scans.

Without an argument the password is read from a hidden prompt, which
keeps it out of shell history.

Examples:
  # Prompt for the password
  sharescan nthash

  # Hash a known password
  sharescan nthash 'Summer2026!'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNTHash,
}

func runNTHash(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		var err error
		password, err = prompt.Password("Password")
		if err != nil {
			if prompt.IsAborted(err) {
				fmt.Println("\nAborted.")
				return nil
			}
			return err
		}
	}

	fmt.Printf("%x\n", ntlm.NTHash(password))
	return nil
}
