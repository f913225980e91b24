package store

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/taskcheck/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db     *sqlx.DB
	hub    *hub
	logger *log.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps pragmas and ":memory:" databases shared by
	// every caller, and serializes writers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		hub:    newHub(),
		logger: log.New(os.Stderr, "[store] ", log.LstdFlags),
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// SetLogger replaces the logger used for watch refresh failures.
// Call it before any watch is started.
func (s *SQLiteStore) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// WithTx runs fn inside a single transaction. If fn returns an error the
// transaction is rolled back and nothing is written. Watchers of the tables
// fn touched are notified after commit.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	return s.update(ctx, func(t *sqliteTx) error {
		return fn(t)
	})
}

// update is the write path shared by every mutating method.
func (s *SQLiteStore) update(ctx context.Context, fn func(*sqliteTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	t := &sqliteTx{tx: tx, touched: make(map[Table]bool)}
	if err := fn(t); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.hub.publish(t.touched)
	return nil
}

// Snapshot reads all four tables in one read transaction.
func (s *SQLiteStore) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	snap := &model.Snapshot{}
	if snap.Categories, err = selectCategories(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Tasks, err = selectTasks(ctx, tx, TaskFilter{}); err != nil {
		return nil, err
	}
	if snap.CheckItems, err = selectCheckItems(ctx, tx, CheckItemFilter{}); err != nil {
		return nil, err
	}
	if snap.TaskChecks, err = selectTaskChecks(ctx, tx, TaskCheckFilter{}); err != nil {
		return nil, err
	}

	return snap, nil
}

// boolToInt converts a Go bool to a SQLite integer (0 or 1).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
