package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/pkg/config"
	"github.com/bastionsec/sharescan/pkg/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations for the result store.

This command applies pending schema migrations to the configured
database (SQLite or PostgreSQL) and seeds the default sensitivity
patterns when the pattern table is empty. It is required after
upgrading sharescan when schema changes have been made; scan and serve
apply the same migrations on startup.

Examples:
  # Run migrations with default config
  sharescan migrate

  # Run migrations with custom config
  sharescan migrate --config /etc/sharescan/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("Running database migrations", "type", cfg.Database.Type)

	ctx := context.Background()
	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = st.Close() }()

	if err := st.Init(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Verify the migration worked by querying sessions
	if _, err := st.ListSessions(ctx, 1, 0); err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database type: %s)\n", cfg.Database.Type)

	if cfg.Database.Type == store.DatabaseTypePostgres {
		if version, dirty, err := store.MigrationVersion(&cfg.Database); err == nil {
			fmt.Printf("Schema version: %d (dirty: %v)\n", version, dirty)
		}
	}

	return nil
}
