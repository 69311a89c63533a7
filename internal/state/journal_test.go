package state

import (
	"context"
	"testing"

	"github.com/mgajardo/backdesk/internal/outcome"
	"github.com/stretchr/testify/require"
)

func TestJournal_ReportAndRecent(t *testing.T) {
	db := NewTestDB(t)
	journal := NewJournal(db, nil)
	ctx := context.Background()

	journal.Report(outcome.KindSuccess, "customer created", "Ana Reyes")
	journal.Report(outcome.KindFailure, "import failed", "connection refused")
	journal.Report(outcome.KindInfo, "session expired", "")

	entries, err := journal.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	require.Equal(t, "session expired", entries[0].Title)
	require.Equal(t, outcome.KindInfo, entries[0].Kind)
	require.Equal(t, "import failed", entries[1].Title)
	require.Equal(t, "customer created", entries[2].Title)

	for _, e := range entries {
		require.NotEmpty(t, e.ID)
		require.False(t, e.CreatedAt.IsZero())
	}
}

func TestJournal_RecentLimit(t *testing.T) {
	db := NewTestDB(t)
	journal := NewJournal(db, nil)

	for i := 0; i < 5; i++ {
		journal.Report(outcome.KindInfo, "entry", "")
	}

	entries, err := journal.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// A non-positive limit falls back to the default window.
	entries, err = journal.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
}
