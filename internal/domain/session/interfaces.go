package session

import (
	"context"

	"github.com/mgajardo/backdesk/internal/remote"
)

// API is the slice of the remote surface the store drives. Tokens are
// explicit because Restore probes a candidate token before adopting it.
type API interface {
	Login(ctx context.Context, email, password string) (remote.Session, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (remote.Identity, error)
}

// Repository persists the active session between launches.
type Repository interface {
	SaveSession(ctx context.Context, sess remote.Session) error
	LoadSession(ctx context.Context) (remote.Session, bool, error)
	ClearSession(ctx context.Context) error
}
