package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mgajardo/backdesk/internal/domain/customer"
	"github.com/mgajardo/backdesk/internal/remote"
)

// listResponse is the wire shape of GET /customers.
type listResponse struct {
	Data []customer.Customer `json:"data"`
	Meta struct {
		Page       int `json:"page"`
		Size       int `json:"size"`
		Total      int `json:"total"`
		TotalPages int `json:"totalPages"`
	} `json:"meta"`
}

func (c *Client) ListCustomers(ctx context.Context, filter customer.ListFilter, page customer.PageRequest) (customer.Page, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Page))
	query.Set("size", strconv.Itoa(page.Size))
	addFilter(query, filter)

	req, err := c.getRequest(ctx, "/customers", query)
	if err != nil {
		return customer.Page{}, err
	}
	c.bearer(req, "")

	var payload listResponse
	if err := c.doJSON(req, true, &payload); err != nil {
		return customer.Page{}, err
	}
	return customer.Page{
		Items:      payload.Data,
		Page:       payload.Meta.Page,
		Size:       payload.Meta.Size,
		TotalCount: payload.Meta.Total,
		TotalPages: payload.Meta.TotalPages,
	}, nil
}

func (c *Client) GetCustomer(ctx context.Context, id int64) (customer.Customer, error) {
	req, err := c.getRequest(ctx, fmt.Sprintf("/customers/%d", id), nil)
	if err != nil {
		return customer.Customer{}, err
	}
	c.bearer(req, "")

	var cust customer.Customer
	if err := c.doJSON(req, true, &cust); err != nil {
		return customer.Customer{}, err
	}
	return cust, nil
}

func (c *Client) CreateCustomer(ctx context.Context, draft customer.CreateRequest) (customer.Customer, error) {
	req, err := c.jsonRequest(ctx, http.MethodPost, "/customers", draft)
	if err != nil {
		return customer.Customer{}, err
	}
	c.bearer(req, "")

	var cust customer.Customer
	if err := c.doJSON(req, true, &cust); err != nil {
		return customer.Customer{}, err
	}
	return cust, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, id int64, patch customer.UpdateRequest) (customer.Customer, error) {
	req, err := c.jsonRequest(ctx, http.MethodPut, fmt.Sprintf("/customers/%d", id), patch)
	if err != nil {
		return customer.Customer{}, err
	}
	c.bearer(req, "")

	var cust customer.Customer
	if err := c.doJSON(req, true, &cust); err != nil {
		return customer.Customer{}, err
	}
	return cust, nil
}

func (c *Client) DeactivateCustomer(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/customers/%d/deactivate", id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.bearer(req, "")
	return c.doJSON(req, true, nil)
}

func (c *Client) GetSummary(ctx context.Context, id int64, rng customer.SummaryRange) (customer.FinancialSummary, error) {
	query := url.Values{}
	if rng.From != "" {
		query.Set("from", rng.From)
	}
	if rng.To != "" {
		query.Set("to", rng.To)
	}

	req, err := c.getRequest(ctx, fmt.Sprintf("/customers/%d/summary", id), query)
	if err != nil {
		return customer.FinancialSummary{}, err
	}
	c.bearer(req, "")

	var sum customer.FinancialSummary
	if err := c.doJSON(req, true, &sum); err != nil {
		return customer.FinancialSummary{}, err
	}
	return sum, nil
}

// ExportCSV fetches the full matching set as CSV. The body is buffered
// entirely before it is returned, so callers never see a partial export.
func (c *Client) ExportCSV(ctx context.Context, filter customer.ListFilter) ([]byte, error) {
	query := url.Values{}
	addFilter(query, filter)

	req, err := c.getRequest(ctx, "/customers/export", query)
	if err != nil {
		return nil, err
	}
	c.bearer(req, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &remote.TransportError{Op: "GET /customers/export", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &remote.TransportError{Op: "GET /customers/export", Err: err}
	}
	if err := c.checkStatus(resp.StatusCode, data, true); err != nil {
		return nil, err
	}
	return data, nil
}

// ImportCSV uploads a CSV for committed import and returns the service's
// per-row accounting.
func (c *Client) ImportCSV(ctx context.Context, filename string, data []byte) (remote.ImportResult, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return remote.ImportResult{}, fmt.Errorf("building upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return remote.ImportResult{}, fmt.Errorf("building upload: %w", err)
	}
	if err := form.WriteField("mode", "commit"); err != nil {
		return remote.ImportResult{}, fmt.Errorf("building upload: %w", err)
	}
	if err := form.Close(); err != nil {
		return remote.ImportResult{}, fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/customers/import", &buf)
	if err != nil {
		return remote.ImportResult{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.bearer(req, "")

	var result remote.ImportResult
	if err := c.doJSON(req, true, &result); err != nil {
		return remote.ImportResult{}, err
	}
	return result, nil
}

func addFilter(query url.Values, filter customer.ListFilter) {
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Status != "" && filter.Status != customer.FilterAll {
		query.Set("status", string(filter.Status))
	}
}
