package mocks

import (
	"context"

	"github.com/mgajardo/backdesk/internal/domain/customer"
	"github.com/mgajardo/backdesk/internal/remote"
	"github.com/stretchr/testify/mock"
)

// Auth is a mock for remote.Auth.
type Auth struct {
	mock.Mock
}

func (m *Auth) Login(ctx context.Context, email, password string) (remote.Session, error) {
	args := m.Called(ctx, email, password)
	if sess, ok := args.Get(0).(remote.Session); ok {
		return sess, args.Error(1)
	}
	return remote.Session{}, args.Error(1)
}

func (m *Auth) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *Auth) Me(ctx context.Context, token string) (remote.Identity, error) {
	args := m.Called(ctx, token)
	if ident, ok := args.Get(0).(remote.Identity); ok {
		return ident, args.Error(1)
	}
	return remote.Identity{}, args.Error(1)
}

// Directory is a mock for remote.Directory.
type Directory struct {
	mock.Mock
}

func (m *Directory) ListCustomers(ctx context.Context, filter customer.ListFilter, page customer.PageRequest) (customer.Page, error) {
	args := m.Called(ctx, filter, page)
	if pg, ok := args.Get(0).(customer.Page); ok {
		return pg, args.Error(1)
	}
	return customer.Page{}, args.Error(1)
}

func (m *Directory) GetCustomer(ctx context.Context, id int64) (customer.Customer, error) {
	args := m.Called(ctx, id)
	if cust, ok := args.Get(0).(customer.Customer); ok {
		return cust, args.Error(1)
	}
	return customer.Customer{}, args.Error(1)
}

func (m *Directory) CreateCustomer(ctx context.Context, req customer.CreateRequest) (customer.Customer, error) {
	args := m.Called(ctx, req)
	if cust, ok := args.Get(0).(customer.Customer); ok {
		return cust, args.Error(1)
	}
	return customer.Customer{}, args.Error(1)
}

func (m *Directory) UpdateCustomer(ctx context.Context, id int64, req customer.UpdateRequest) (customer.Customer, error) {
	args := m.Called(ctx, id, req)
	if cust, ok := args.Get(0).(customer.Customer); ok {
		return cust, args.Error(1)
	}
	return customer.Customer{}, args.Error(1)
}

func (m *Directory) DeactivateCustomer(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Directory) GetSummary(ctx context.Context, id int64, rng customer.SummaryRange) (customer.FinancialSummary, error) {
	args := m.Called(ctx, id, rng)
	if sum, ok := args.Get(0).(customer.FinancialSummary); ok {
		return sum, args.Error(1)
	}
	return customer.FinancialSummary{}, args.Error(1)
}

func (m *Directory) ExportCSV(ctx context.Context, filter customer.ListFilter) ([]byte, error) {
	args := m.Called(ctx, filter)
	if data, ok := args.Get(0).([]byte); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Directory) ImportCSV(ctx context.Context, filename string, data []byte) (remote.ImportResult, error) {
	args := m.Called(ctx, filename, data)
	if res, ok := args.Get(0).(remote.ImportResult); ok {
		return res, args.Error(1)
	}
	return remote.ImportResult{}, args.Error(1)
}
