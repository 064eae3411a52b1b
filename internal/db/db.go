// Package db persists the item tree to SQLite.
//
// The database is stored at ~/.plan/plan.db by default.
// Use Open() to connect and Init() to create the schema. A *DB is a
// tree.Sink: register it on the store and every commit is written in one
// transaction.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	content TEXT NOT NULL,
	parent_id TEXT,
	depth_level INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	created_date TEXT NOT NULL,
	scheduled_date TEXT,
	completed_at DATETIME,
	cancelled_at DATETIME,
	updated_at DATETIME NOT NULL,
	doc TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS refs (
	item_id TEXT NOT NULL,
	ref_id TEXT NOT NULL,
	PRIMARY KEY (item_id, ref_id)
);

CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY,
	item_id TEXT NOT NULL,
	op TEXT NOT NULL,
	kind TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_parent ON items(parent_id);
CREATE INDEX IF NOT EXISTS idx_items_created_date ON items(created_date);
CREATE INDEX IF NOT EXISTS idx_items_scheduled_date ON items(scheduled_date);
CREATE INDEX IF NOT EXISTS idx_refs_ref ON refs(ref_id);
CREATE INDEX IF NOT EXISTS idx_history_item ON history(item_id);
`

// DB wraps a SQL database connection with item-specific operations.
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// DefaultPath returns the default database path (~/.plan/plan.db)
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".plan", "plan.db"), nil
}

// Open opens or creates the database at the given path
func Open(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	return &DB{DB: db, log: zerolog.Nop()}, nil
}

// SetLogger routes persistence debug output to l.
func (db *DB) SetLogger(l zerolog.Logger) { db.log = l }

// Init creates the schema.
func (db *DB) Init() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
