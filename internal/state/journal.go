package state

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mgajardo/backdesk/internal/outcome"
)

// Journal appends every reported outcome to the local store, giving the
// operator an audit trail of what the client did. It implements
// outcome.Sink.
type Journal struct {
	db     *DB
	logger *slog.Logger
}

// NewJournal creates a new Journal
func NewJournal(db *DB, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Journal{db: db, logger: logger}
}

// Entry is one journal row.
type Entry struct {
	ID        string
	Kind      outcome.Kind
	Title     string
	Detail    string
	CreatedAt time.Time
}

// Report implements outcome.Sink. A failed append is logged and dropped;
// journaling must never fail the operation being reported.
func (j *Journal) Report(kind outcome.Kind, title, detail string) {
	query := `INSERT INTO outcomes (id, kind, title, detail) VALUES (?, ?, ?, ?)`
	if _, err := j.db.Exec(query, uuid.NewString(), string(kind), title, detail); err != nil {
		j.logger.Warn("appending outcome journal", "error", err)
	}
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, kind, title, COALESCE(detail, ''), created_at
		FROM outcomes
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Title, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		e.Kind = outcome.Kind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcomes: %w", err)
	}
	return entries, nil
}
