package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mgajardo/backdesk/internal/domain/customer"
	"github.com/mgajardo/backdesk/internal/domain/session"
	"github.com/mgajardo/backdesk/internal/outcome"
	"github.com/mgajardo/backdesk/internal/remote"
)

// Editor performs directory mutations. Payloads are validated locally
// before any network traffic; successful mutations invalidate the read
// cache and are reported to the outcome sink.
type Editor struct {
	api      remote.Directory
	sessions Sessions
	caches   Invalidator
	sink     outcome.Sink
	logger   *slog.Logger
}

// NewEditor creates an Editor. caches and sink may be nil.
func NewEditor(api remote.Directory, sessions Sessions, caches Invalidator, sink outcome.Sink, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Editor{
		api:      api,
		sessions: sessions,
		caches:   caches,
		sink:     sink,
		logger:   logger,
	}
}

// Create registers a new customer. Validation failures surface as
// *customer.ValidationError without touching the network; a duplicate
// email surfaces as *remote.ConflictError.
func (e *Editor) Create(ctx context.Context, draft customer.CreateRequest) (*customer.Customer, error) {
	if _, ok := e.sessions.Current(); !ok {
		return nil, session.ErrNotAuthenticated
	}
	if err := customer.ValidateCreate(draft); err != nil {
		return nil, err
	}

	cust, err := e.api.CreateCustomer(ctx, draft)
	if err != nil {
		e.reportFailure("customer create failed", err)
		return nil, err
	}

	e.invalidate()
	e.reportSuccess("customer created", fmt.Sprintf("%s <%s>", cust.FullName(), cust.Email))
	return &cust, nil
}

// Update applies a partial edit. Only fields present in the patch are
// validated and sent; the rest stay untouched on the server.
func (e *Editor) Update(ctx context.Context, id int64, patch customer.UpdateRequest) (*customer.Customer, error) {
	if _, ok := e.sessions.Current(); !ok {
		return nil, session.ErrNotAuthenticated
	}
	if err := customer.ValidateUpdate(patch); err != nil {
		return nil, err
	}

	cust, err := e.api.UpdateCustomer(ctx, id, patch)
	if err != nil {
		e.reportFailure("customer update failed", err)
		return nil, err
	}

	e.invalidate()
	e.reportSuccess("customer updated", fmt.Sprintf("%s <%s>", cust.FullName(), cust.Email))
	return &cust, nil
}

// Deactivate retires a customer. Deactivating an already inactive
// record succeeds and leaves it inactive.
func (e *Editor) Deactivate(ctx context.Context, id int64) error {
	if _, ok := e.sessions.Current(); !ok {
		return session.ErrNotAuthenticated
	}

	if err := e.api.DeactivateCustomer(ctx, id); err != nil {
		e.reportFailure("customer deactivate failed", err)
		return err
	}

	e.invalidate()
	e.reportSuccess("customer deactivated", fmt.Sprintf("customer %d", id))
	return nil
}

func (e *Editor) invalidate() {
	if e.caches != nil {
		e.caches.InvalidateCache()
	}
}

func (e *Editor) reportSuccess(title, detail string) {
	if e.sink != nil {
		e.sink.Report(outcome.KindSuccess, title, detail)
	}
}

// reportFailure forwards a mutation failure to the sink. Unauthorized is
// excluded: the session store already reports the expiry once.
func (e *Editor) reportFailure(title string, err error) {
	if e.sink == nil || errors.Is(err, remote.ErrUnauthorized) {
		return
	}
	e.sink.Report(outcome.KindFailure, title, err.Error())
}
