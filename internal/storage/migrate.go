package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// migration target
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationFiles embed.FS

// Migrate applies all pending schema migrations for the active dialect.
func (s *SQLStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	source, err := iofs.New(migrationFiles, "migrations/"+string(s.dialect))
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	var m *migrate.Migrate
	switch s.dialect {
	case dialectSQLite:
		driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
		if err != nil {
			return fmt.Errorf("failed to create migration driver: %w", err)
		}
		// Not closed: closing the driver would close the shared pool.
		m, err = migrate.NewWithInstance("iofs", source, "sqlite3", driver)
		if err != nil {
			return fmt.Errorf("failed to create migrator: %w", err)
		}
	case dialectPostgres:
		if s.pgConfig == nil {
			return fmt.Errorf("postgres migrations need connection settings")
		}
		m, err = migrate.NewWithSourceInstance("iofs", source, s.pgConfig.URL())
		if err != nil {
			return fmt.Errorf("failed to create migrator: %w", err)
		}
		defer func() { _, _ = m.Close() }()
	default:
		return fmt.Errorf("unknown dialect %q", s.dialect)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err == nil {
		s.logger.Debug("Database schema ready", "dialect", s.dialect, "version", version, "dirty", dirty)
	}
	return nil
}
