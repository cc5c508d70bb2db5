package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/pkg/models"
	"github.com/bastionsec/sharescan/pkg/patterns"
	"github.com/bastionsec/sharescan/pkg/store/migrations"
)

// Init prepares the schema and seeds the default sensitivity patterns.
// It is idempotent and safe to call on every startup.
func (s *GORMStore) Init(ctx context.Context) error {
	switch s.config.Type {
	case DatabaseTypeSQLite:
		if err := s.db.WithContext(ctx).AutoMigrate(models.AllModels()...); err != nil {
			return fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	case DatabaseTypePostgres:
		if err := runMigrations(ctx, s.config.Postgres.DSN()); err != nil {
			return err
		}
	}

	if err := s.SeedDefaultPatterns(ctx, patterns.Defaults()); err != nil {
		return fmt.Errorf("failed to seed default patterns: %w", err)
	}

	return nil
}

// runMigrations executes database migrations using golang-migrate.
// golang-migrate takes a PostgreSQL advisory lock, so concurrent instances
// cannot apply migrations at the same time.
func runMigrations(ctx context.Context, connString string) error {
	logger.Debug("running database migrations")

	// golang-migrate needs a database/sql connection
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	if err == migrate.ErrNoChange {
		logger.Debug("no migrations to apply, database is up to date")
	} else {
		logger.Info("database migrations applied")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if err != migrate.ErrNilVersion {
		logger.Debug("current schema version", "version", version, "dirty", dirty)
		if dirty {
			logger.Warn("database schema is in dirty state, manual intervention may be required")
		}
	}

	return nil
}

// RunMigrations is a public wrapper for manual migration execution from the CLI.
func RunMigrations(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("database configuration is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Type != DatabaseTypePostgres {
		return fmt.Errorf("explicit migrations only apply to postgres, sqlite migrates on open")
	}

	return runMigrations(ctx, cfg.Postgres.DSN())
}

// MigrationVersion returns the currently applied schema version, or 0 when
// no migrations have run yet.
func MigrationVersion(cfg *Config) (uint, bool, error) {
	if cfg == nil || cfg.Type != DatabaseTypePostgres {
		return 0, false, fmt.Errorf("migration version only applies to postgres")
	}

	db, err := sql.Open("pgx", cfg.Postgres.DSN())
	if err != nil {
		return 0, false, fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return 0, false, err
	}
	if err == migrate.ErrNilVersion {
		return 0, false, nil
	}

	return version, dirty, nil
}
