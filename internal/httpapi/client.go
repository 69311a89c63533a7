// Package httpapi implements the remote interfaces over HTTP+JSON
// against the hosted directory service.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/mgajardo/backdesk/internal/remote"
)

// TokenSource supplies the bearer credential for directory calls. The
// session store implements it.
type TokenSource interface {
	Token() (string, bool)
}

// TokenSourceFunc adapts a function to a TokenSource. It lets startup
// code hand the client a source that is bound after the client exists,
// since the session store and the client reference each other.
type TokenSourceFunc func() (string, bool)

func (f TokenSourceFunc) Token() (string, bool) { return f() }

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource

	// OnUnauthorized runs once per 401 observed on an authenticated
	// call, before the error is returned to the caller.
	OnUnauthorized func()

	Logger *slog.Logger

	// HTTPClient overrides the pooled default. Tests use it to reach
	// an httptest server.
	HTTPClient *http.Client
}

// Client talks to the directory service. It implements remote.Auth and
// remote.Directory. Requests carry the caller's context; there are no
// retries.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func()
	logger         *slog.Logger
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	if opts.Timeout > 0 {
		httpClient.Timeout = opts.Timeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           httpClient,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		logger:         logger,
	}
}

// errorPayload is the body shape of non-2xx responses.
type errorPayload struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// doJSON executes req, maps the error taxonomy, and decodes a 2xx body
// into out when out is non-nil. fireHook marks requests made with a
// bearer credential: a 401 on those invalidates the session.
func (c *Client) doJSON(req *http.Request, fireHook bool, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &remote.TransportError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &remote.TransportError{Op: req.Method + " " + req.URL.Path, Err: err}
	}

	c.logger.Debug("api response", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)

	if err := c.checkStatus(resp.StatusCode, data, fireHook); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &remote.ServiceError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	return nil
}

func (c *Client) checkStatus(status int, body []byte, fireHook bool) error {
	if status >= 200 && status < 300 {
		return nil
	}

	switch status {
	case http.StatusUnauthorized:
		if fireHook && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return remote.ErrUnauthorized
	case http.StatusNotFound:
		return remote.ErrNotFound
	case http.StatusConflict:
		var payload errorPayload
		_ = json.Unmarshal(body, &payload)
		if payload.Message == "" {
			payload.Message = "conflicting value"
		}
		return &remote.ConflictError{Field: payload.Field, Message: payload.Message}
	default:
		var payload errorPayload
		_ = json.Unmarshal(body, &payload)
		return &remote.ServiceError{Status: status, Message: payload.Message}
	}
}

// bearer attaches the Authorization header. An explicit token wins;
// otherwise the token source is consulted. Requests without any token
// go out bare and the service answers 401.
func (c *Client) bearer(req *http.Request, explicit string) {
	token := explicit
	if token == "" && c.tokens != nil {
		if t, ok := c.tokens.Token(); ok {
			token = t
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) getRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
}
