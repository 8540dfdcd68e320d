package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/bakerboy448/RedditModLog/app/modlog"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Schema versions:
// 1 - legacy processed_actions table
// 2 - actions keyed by (subreddit, action_id), legacy rows copied over
// 3 - publish_state fingerprints
// 4 - target lookup index
const SchemaVersion uint = 4

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate brings the schema to target one version at a time. Each step runs in
// its own transaction, so an interrupted run leaves the last completed version
// intact. A step left dirty by a crash is rolled back to its predecessor and
// re-applied; every step is safe to repeat. Migrating to the current version
// is a no-op.
func (s *Store) Migrate(target uint) error {
	m, src, err := s.newMigrator()
	if err != nil {
		return &modlog.SchemaMigrationError{To: target, Err: err}
	}
	// m.Close would close the shared *sql.DB, so the migrator is left to the GC.

	current, err := s.recoverDirty(m, src)
	if err != nil {
		return &modlog.SchemaMigrationError{From: current, To: target, Err: err}
	}

	if current > target {
		return &modlog.SchemaMigrationError{
			From: current,
			To:   target,
			Err:  errors.New("database schema is newer than this build supports"),
		}
	}

	if current == target {
		s.version = target
		return nil
	}

	if err := m.Migrate(target); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return &modlog.SchemaMigrationError{From: current, To: target, Err: err}
	}

	slog.Info("Database schema migrated", "from", current, "to", target)

	s.version = target
	return nil
}

func (s *Store) newMigrator() (*migrate.Migrate, source.Driver, error) {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, src, nil
}

// recoverDirty returns the current clean version, forcing a dirty version back
// to the previous one first.
func (s *Store) recoverDirty(m *migrate.Migrate, src source.Driver) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if !dirty {
		return version, nil
	}

	prev, err := src.Prev(version)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("Dirty schema found, resetting", "version", version)
		if err := m.Force(-1); err != nil {
			return version, fmt.Errorf("failed to reset dirty version %d: %w", version, err)
		}
		return 0, nil
	case err != nil:
		return version, fmt.Errorf("failed to find version before %d: %w", version, err)
	}

	slog.Warn("Dirty schema found, rolling back to previous version", "version", version, "previous", prev)
	if err := m.Force(int(prev)); err != nil {
		return version, fmt.Errorf("failed to force version %d: %w", prev, err)
	}
	return prev, nil
}
