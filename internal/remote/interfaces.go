package remote

import (
	"context"

	"github.com/mgajardo/backdesk/internal/domain/customer"
)

// Auth covers the authentication endpoints of the directory service.
// Tokens are passed explicitly so callers can probe a candidate token
// before adopting it.
type Auth interface {
	Login(ctx context.Context, email, password string) (Session, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (Identity, error)
}

// Session is the payload returned by a successful login.
type Session struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}

// Identity describes the authenticated operator.
type Identity struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Directory covers the customer endpoints of the directory service.
type Directory interface {
	ListCustomers(ctx context.Context, filter customer.ListFilter, page customer.PageRequest) (customer.Page, error)
	GetCustomer(ctx context.Context, id int64) (customer.Customer, error)
	CreateCustomer(ctx context.Context, req customer.CreateRequest) (customer.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, req customer.UpdateRequest) (customer.Customer, error)
	DeactivateCustomer(ctx context.Context, id int64) error
	GetSummary(ctx context.Context, id int64, rng customer.SummaryRange) (customer.FinancialSummary, error)
	ExportCSV(ctx context.Context, filter customer.ListFilter) ([]byte, error)
	ImportCSV(ctx context.Context, filename string, data []byte) (ImportResult, error)
}

// ImportResult is the service's accounting of a committed bulk import.
type ImportResult struct {
	Rows     int              `json:"rows"`
	Imported int              `json:"imported"`
	Errors   []ImportRowError `json:"errors"`
}

// ImportRowError pins a rejected import row to its file position.
type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"error"`
}
