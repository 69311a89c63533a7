package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mgajardo/backdesk/internal/remote"
)

// SessionRepository persists the single active session as an encrypted
// JSON blob. It implements session.Repository.
type SessionRepository struct {
	db     *DB
	keeper *Keeper
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB, keeper *Keeper) *SessionRepository {
	return &SessionRepository{db: db, keeper: keeper}
}

// SaveSession replaces the stored session.
func (r *SessionRepository) SaveSession(ctx context.Context, sess remote.Session) error {
	plain, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	blob, err := r.keeper.Seal(plain)
	if err != nil {
		return fmt.Errorf("sealing session: %w", err)
	}

	query := `
		INSERT INTO session_blob (id, cipher, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET cipher = excluded.cipher, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query, blob); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession returns the stored session, if any. A blob that cannot be
// opened (key rotated, file copied across machines) is treated as absent
// and removed.
func (r *SessionRepository) LoadSession(ctx context.Context) (remote.Session, bool, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx, `SELECT cipher FROM session_blob WHERE id = 1`).Scan(&blob)
	if err == sql.ErrNoRows {
		return remote.Session{}, false, nil
	}
	if err != nil {
		return remote.Session{}, false, fmt.Errorf("failed to load session: %w", err)
	}

	plain, err := r.keeper.Open(blob)
	if err != nil {
		_ = r.clear(ctx)
		return remote.Session{}, false, nil
	}

	var sess remote.Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		_ = r.clear(ctx)
		return remote.Session{}, false, nil
	}
	return sess, true, nil
}

// ClearSession removes the stored session. Clearing an empty store is a
// no-op.
func (r *SessionRepository) ClearSession(ctx context.Context) error {
	if err := r.clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (r *SessionRepository) clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_blob WHERE id = 1`)
	return err
}
