package customer

import "encoding/json"

// Status is the lifecycle state of a directory record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// StatusFilter selects records by status when listing or exporting.
type StatusFilter string

const (
	FilterActive   StatusFilter = "active"
	FilterInactive StatusFilter = "inactive"
	FilterAll      StatusFilter = "all"
)

// Customer is a single directory record. The ID is assigned by the
// remote directory and is zero before creation.
type Customer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	TaxID     string `json:"tax_id,omitempty"`
	Status    Status `json:"status"`
}

// FullName returns the display name.
func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// CreateRequest carries the fields for a new directory record.
type CreateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	TaxID     string `json:"tax_id,omitempty"`
	Status    Status `json:"status,omitempty"`
}

// UpdateRequest carries a partial update. Nil fields are left
// unmodified by the remote directory.
type UpdateRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	TaxID     *string `json:"tax_id,omitempty"`
	Status    *Status `json:"status,omitempty"`
}

// ListFilter narrows a directory listing. Search matching semantics are
// owned by the remote service.
type ListFilter struct {
	Search string
	Status StatusFilter
}

// Key returns a canonical identity for the filter set, used to detect
// filter changes between queries.
func (f ListFilter) Key() string {
	status := f.Status
	if status == "" {
		status = FilterAll
	}
	return string(status) + "\x00" + f.Search
}

// PageRequest selects a 1-based page of a listing.
type PageRequest struct {
	Page int
	Size int
}

// Page is one page of directory records in remote order.
type Page struct {
	Items      []Customer
	Page       int
	Size       int
	TotalCount int
	TotalPages int
}

// FinancialSummary aggregates order and payment figures for one
// customer. The figures are produced entirely by the order/payment
// subsystem; monetary values stay json.Number and are displayed, never
// computed upon.
type FinancialSummary struct {
	Orders struct {
		Count       int64       `json:"count"`
		TotalAmount json.Number `json:"totalAmount"`
		BalanceDue  json.Number `json:"balanceDue"`
	} `json:"orders"`
	Payments struct {
		Count     int64       `json:"count"`
		TotalPaid json.Number `json:"totalPaid"`
	} `json:"payments"`
	OutstandingBalance json.Number `json:"outstandingBalance"`
}

// SummaryRange optionally bounds the summary aggregation period.
// Dates are ISO-8601 (YYYY-MM-DD); empty means unbounded.
type SummaryRange struct {
	From string
	To   string
}
