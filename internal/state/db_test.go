package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// NewTestKeeper creates a keeper backed by a throwaway key file.
func NewTestKeeper(t *testing.T) *Keeper {
	t.Helper()

	keeper, err := LoadKeeper(filepath.Join(t.TempDir(), "state.key"))
	require.NoError(t, err, "failed to create test keeper")
	return keeper
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"session_blob",
		"outcomes",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}

	// Re-running must be harmless.
	require.NoError(t, db.RunMigrations())
}

// TestOutcomesKindConstraint verifies the kind check constraint
func TestOutcomesKindConstraint(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO outcomes (id, kind, title) VALUES (?, ?, ?)`,
		"o1", "success", "export finished")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO outcomes (id, kind, title) VALUES (?, ?, ?)`,
		"o2", "shrug", "nope")
	require.Error(t, err, "should fail with unknown kind")
}

// TestSessionBlobSingleRow verifies the single-row constraint
func TestSessionBlobSingleRow(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO session_blob (id, cipher) VALUES (1, ?)`, []byte{1, 2, 3})
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO session_blob (id, cipher) VALUES (2, ?)`, []byte{4, 5, 6})
	require.Error(t, err, "should reject a second row")
}
