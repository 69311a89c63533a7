// Package state is the client's local store: the encrypted session blob
// that survives restarts and the journal of reported outcomes.
package state

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema. The store is tiny and local, so the
// schema ships inline rather than as migration files.
func (db *DB) RunMigrations() error {
	migration := `
-- Single-row holder for the encrypted session
CREATE TABLE IF NOT EXISTS session_blob (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    cipher BLOB NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Journal of reported operation outcomes
CREATE TABLE IF NOT EXISTS outcomes (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL CHECK (kind IN ('success', 'failure', 'info')),
    title TEXT NOT NULL,
    detail TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_outcomes_created_at ON outcomes(created_at);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
