// Package directory exposes the customer directory to the client: a
// query side with stable paging semantics and a short-lived read cache,
// and an editor for record mutations.
package directory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mgajardo/backdesk/internal/domain/customer"
	"github.com/mgajardo/backdesk/internal/domain/session"
	"github.com/mgajardo/backdesk/internal/remote"
)

// DefaultPageSize is used when a caller does not pick a size.
const DefaultPageSize = 20

// DefaultCacheTTL bounds how long a fetched page or record may be served
// without asking the directory again.
const DefaultCacheTTL = 30 * time.Second

// Query answers directory reads. It owns stale-response suppression,
// page normalization, and the read cache. Safe for concurrent use.
type Query struct {
	api      remote.Directory
	sessions Sessions
	logger   *slog.Logger

	mu         sync.Mutex
	generation uint64
	filterKey  string
	pages      map[string]pageEntry
	records    map[int64]recordEntry
	ttl        time.Duration
	now        func() time.Time
}

type pageEntry struct {
	page    customer.Page
	expires time.Time
}

type recordEntry struct {
	cust    customer.Customer
	expires time.Time
}

// NewQuery creates a Query. ttl <= 0 selects DefaultCacheTTL.
func NewQuery(api remote.Directory, sessions Sessions, ttl time.Duration, logger *slog.Logger) *Query {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Query{
		api:      api,
		sessions: sessions,
		logger:   logger,
		pages:    make(map[string]pageEntry),
		records:  make(map[int64]recordEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// List returns one page of the directory under filter. A filter change
// resets paging to page 1; a requested page beyond the end is clamped to
// the last page and re-fetched; a result overtaken by a newer filter is
// dropped with ErrSuperseded instead of being applied.
func (q *Query) List(ctx context.Context, filter customer.ListFilter, page customer.PageRequest) (*customer.Page, error) {
	if _, ok := q.sessions.Current(); !ok {
		return nil, session.ErrNotAuthenticated
	}
	page = normalize(page)
	key := filter.Key()

	q.mu.Lock()
	if key != q.filterKey {
		q.filterKey = key
		q.generation++
		page.Page = 1
	}
	gen := q.generation
	if entry, ok := q.pages[pageKey(key, page)]; ok && q.now().Before(entry.expires) {
		result := clonePage(entry.page)
		q.mu.Unlock()
		return result, nil
	}
	q.mu.Unlock()

	result, err := q.fetch(ctx, filter, page)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if gen != q.generation {
		return nil, ErrSuperseded
	}
	resolved := customer.PageRequest{Page: result.Page, Size: result.Size}
	q.pages[pageKey(key, resolved)] = pageEntry{page: *result, expires: q.now().Add(q.ttl)}
	return clonePage(*result), nil
}

// Get returns a single record, from cache when fresh.
func (q *Query) Get(ctx context.Context, id int64) (*customer.Customer, error) {
	if _, ok := q.sessions.Current(); !ok {
		return nil, session.ErrNotAuthenticated
	}

	q.mu.Lock()
	if entry, ok := q.records[id]; ok && q.now().Before(entry.expires) {
		cust := entry.cust
		q.mu.Unlock()
		return &cust, nil
	}
	q.mu.Unlock()

	cust, err := q.api.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	q.records[id] = recordEntry{cust: cust, expires: q.now().Add(q.ttl)}
	q.mu.Unlock()
	return &cust, nil
}

// GetSummary returns the financial roll-up for one customer. Summaries
// reflect another subsystem's books and are never cached.
func (q *Query) GetSummary(ctx context.Context, id int64, rng customer.SummaryRange) (*customer.FinancialSummary, error) {
	if _, ok := q.sessions.Current(); !ok {
		return nil, session.ErrNotAuthenticated
	}

	sum, err := q.api.GetSummary(ctx, id, rng)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// InvalidateCache drops every cached page and record. Mutations call it
// so subsequent reads observe their effect.
func (q *Query) InvalidateCache() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.pages)
	clear(q.records)
}

// fetch issues the remote query, clamping the page into
// [1, max(TotalPages, 1)] until the response covers the request.
func (q *Query) fetch(ctx context.Context, filter customer.ListFilter, page customer.PageRequest) (*customer.Page, error) {
	req := page
	for attempt := 0; attempt < 4; attempt++ {
		result, err := q.api.ListCustomers(ctx, filter, req)
		if err != nil {
			return nil, err
		}
		limit := result.TotalPages
		if limit < 1 {
			limit = 1
		}
		if req.Page <= limit {
			return &result, nil
		}
		q.logger.Debug("requested page beyond end, clamping", "requested", req.Page, "total_pages", result.TotalPages)
		req.Page = limit
	}
	return nil, &remote.ServiceError{Message: "page normalization did not settle"}
}

func normalize(page customer.PageRequest) customer.PageRequest {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Size <= 0 {
		page.Size = DefaultPageSize
	}
	return page
}

func pageKey(filterKey string, page customer.PageRequest) string {
	return fmt.Sprintf("%s|%d|%d", filterKey, page.Page, page.Size)
}

func clonePage(p customer.Page) *customer.Page {
	out := p
	out.Items = append([]customer.Customer(nil), p.Items...)
	return &out
}
