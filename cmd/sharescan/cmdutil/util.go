// Package cmdutil provides shared utilities for sharescan commands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/internal/cli/output"
	"github.com/bastionsec/sharescan/internal/cli/prompt"
	"github.com/bastionsec/sharescan/pkg/config"
	"github.com/bastionsec/sharescan/pkg/store"
)

// OpenStore loads configuration and opens the result store. Init is
// idempotent, so the first CLI touch of a fresh database creates the
// schema and seeds the default pattern set.
//
// The config path is read from the root command's persistent --config
// flag so subcommand packages do not depend on the commands package.
func OpenStore(cmd *cobra.Command) (*config.Config, *store.GORMStore, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open result store: %w", err)
	}

	if err := st.Init(context.Background()); err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("failed to initialize result store: %w", err)
	}

	return cfg, st, nil
}

// ResolveSession expands the special session id "latest" to the most
// recently started session.
func ResolveSession(ctx context.Context, st *store.GORMStore, id string) (string, error) {
	if id != "latest" {
		return id, nil
	}
	sessions, err := st.ListSessions(ctx, 1, 0)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", fmt.Errorf("no scan sessions recorded yet")
	}
	return sessions[0].ID, nil
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses the tableRenderer.
func PrintOutput(w io.Writer, format output.Format, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintResource prints a single resource in the specified format.
// For table format, it uses the provided tableRenderer.
func PrintResource(w io.Writer, format output.Format, data any, tableRenderer output.TableRenderer) error {
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		return output.PrintTable(w, tableRenderer)
	}
}

// RunDeleteWithConfirmation prompts for confirmation (unless force is true) and runs deleteFn.
func RunDeleteWithConfirmation(resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s '%s'?", resourceType, name), force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := deleteFn(); err != nil {
		return err
	}

	fmt.Printf("%s '%s' deleted\n", resourceType, name)
	return nil
}

// ParseCommaSeparatedList parses a comma-separated string into a slice of trimmed strings.
func ParseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// BoolToYesNo converts a boolean to "yes" or "no" string.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EmptyOr returns the value if not empty, otherwise returns the fallback.
// Useful for table display where empty fields should show "-".
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// HandleAbort checks if error is an abort (Ctrl+C) and prints a message.
// Returns nil for abort (user cancelled), otherwise returns the original error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
