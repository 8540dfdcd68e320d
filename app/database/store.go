package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Store is the durable ledger of ingested actions and publish fingerprints.
// One store holds any number of partitions; every query is scoped by subreddit.
type Store struct {
	db      *sql.DB
	path    string
	version uint
}

// Open opens or creates the database at path and brings it to SchemaVersion.
// A store whose migration fails is closed and never returned.
func Open(path string) (*Store, error) {
	return OpenAt(path, SchemaVersion)
}

// OpenAt is Open with an explicit target schema version.
func OpenAt(path string, target uint) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.Migrate(target); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("Database opened", "path", path, "schema_version", s.version)

	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Version is the schema version the store was migrated to.
func (s *Store) Version() uint {
	return s.version
}

func (s *Store) Path() string {
	return s.path
}

// Ping verifies the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Vacuum reclaims space left behind by pruning.
func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}
