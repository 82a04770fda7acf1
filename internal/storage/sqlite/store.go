// Package sqlite implements the storage contract over the app's local
// SQLite database (tada.db).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/tada-app/tada/internal/storage"
	"github.com/tada-app/tada/internal/types"
)

// schemaVersion is bumped when the schema below changes shape.
const schemaVersion = 1

// schema mirrors the original desktop migration, with "order" widened to
// REAL: fractional indexing needs midpoints between existing keys.
const schema = `
CREATE TABLE IF NOT EXISTS lists (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    icon TEXT,
    color TEXT,
    "order" REAL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    completed_at INTEGER,
    due_date INTEGER,
    list_id TEXT,
    list_name TEXT NOT NULL,
    content TEXT,
    "order" REAL NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    tags TEXT,
    priority INTEGER,
    group_category TEXT NOT NULL DEFAULT 'nodate',
    FOREIGN KEY (list_id) REFERENCES lists (id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS subtasks (
    id TEXT PRIMARY KEY,
    parent_id TEXT NOT NULL,
    title TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    completed_at INTEGER,
    due_date INTEGER,
    "order" REAL NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (parent_id) REFERENCES tasks (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS summaries (
    id TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    period_key TEXT NOT NULL,
    list_key TEXT NOT NULL,
    task_ids TEXT NOT NULL,
    summary_text TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_list_id ON tasks(list_id);
CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(completed);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_subtasks_parent_id ON subtasks(parent_id);
CREATE INDEX IF NOT EXISTS idx_summaries_period_list ON summaries(period_key, list_key);
`

// Store is the SQLite-backed Storage implementation.
type Store struct {
	db   *sql.DB
	path string
}

var _ storage.Storage = (*Store)(nil)

// New opens (creating if needed) the database at path and applies the
// schema. The connection uses WAL mode and a busy timeout so a lagging
// write never errors out immediately.
func New(path string) (*Store, error) {
	dsn := "file:" + path +
		"?_pragma=busy_timeout(30000)" +
		"&_pragma=journal_mode(wal)" +
		"&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	now := types.NowMillis()

	// Seed the default list and settings rows, as the original migration does.
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO lists (id, name, icon, "order", created_at, updated_at)
		VALUES ('inbox-default', ?, 'inbox', 1, ?, ?)`,
		types.DefaultListName, now, now); err != nil {
		return fmt.Errorf("seeding default list: %w", err)
	}

	defaults := map[string]string{
		"appearance":  `{"themeId":"default-coral","darkMode":"system","interfaceDensity":"default"}`,
		"preferences": `{"language":"en-US","defaultNewTaskDueDate":null,"defaultNewTaskPriority":null,"defaultNewTaskList":"Inbox","confirmDeletions":true}`,
		"ai":          `{"provider":"openai","apiKey":"","model":"","baseUrl":"","availableModels":[]}`,
	}
	for key, value := range defaults {
		if _, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
			key, value, now); err != nil {
			return fmt.Errorf("seeding setting %s: %w", key, err)
		}
	}

	if _, err := s.db.ExecContext(ctx,
		`PRAGMA user_version = `+fmt.Sprint(schemaVersion)); err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RunInTransaction runs fn inside one SQL transaction. An error (or panic)
// from fn rolls everything back; a nil return commits.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&storeTx{q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// querier is the common surface of *sql.DB and *sql.Tx the query helpers
// run against.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// storeTx implements storage.Tx over an open SQL transaction.
type storeTx struct {
	q querier
}

var _ storage.Tx = (*storeTx)(nil)
