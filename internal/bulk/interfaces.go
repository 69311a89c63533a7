package bulk

import (
	"context"

	"github.com/mgajardo/backdesk/internal/domain/customer"
	"github.com/mgajardo/backdesk/internal/remote"
)

// API is the slice of the directory service the engine talks to.
type API interface {
	ExportCSV(ctx context.Context, filter customer.ListFilter) ([]byte, error)
	ImportCSV(ctx context.Context, filename string, data []byte) (remote.ImportResult, error)
}

// Sessions answers whether an operator is signed in. The session store
// implements it.
type Sessions interface {
	Current() (remote.Identity, bool)
}

// Invalidator drops cached directory reads after a commit mutates the
// collection.
type Invalidator interface {
	InvalidateCache()
}
