package directory

import "github.com/mgajardo/backdesk/internal/remote"

// Sessions reports whether an operator session is active. The session
// store implements it.
type Sessions interface {
	Current() (remote.Identity, bool)
}

// Invalidator drops cached directory reads after a mutation. The Query
// implements it; the Editor and the bulk engine depend on it.
type Invalidator interface {
	InvalidateCache()
}
