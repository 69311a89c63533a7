package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mgajardo/backdesk/internal/domain/customer"
	"github.com/mgajardo/backdesk/internal/httpapi"
	"github.com/mgajardo/backdesk/internal/remote"
	"github.com/stretchr/testify/require"
)

// staticTokens is a fixed TokenSource.
type staticTokens struct {
	token string
}

func (s staticTokens) Token() (string, bool) {
	if s.token == "" {
		return "", false
	}
	return s.token, true
}

func newClient(t *testing.T, handler http.Handler, opts httpapi.Options) *httpapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL + "/api"
	return httpapi.NewClient(opts)
}

func TestClient_Login(t *testing.T) {
	hookFired := false
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))

		if creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"message":"invalid credentials"}`)
			return
		}
		json.NewEncoder(w).Encode(remote.Session{
			Token: "tok-1",
			User:  remote.Identity{ID: 1, Email: creds["email"], Name: "Ana", Role: "staff"},
		})
	}), httpapi.Options{OnUnauthorized: func() { hookFired = true }})

	sess, err := client.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "tok-1", sess.Token)
	require.Equal(t, "Ana", sess.User.Name)

	_, err = client.Login(context.Background(), "ana@example.com", "wrong")
	require.ErrorIs(t, err, remote.ErrUnauthorized)

	// A rejected login is not a session invalidation.
	require.False(t, hookFired)
}

func TestClient_ListCustomers(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/customers", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		q := r.URL.Query()
		require.Equal(t, "2", q.Get("page"))
		require.Equal(t, "20", q.Get("size"))
		require.Equal(t, "ana", q.Get("search"))
		require.Equal(t, "active", q.Get("status"))

		io.WriteString(w, `{
			"data": [{"id": 21, "first_name": "Ana", "email": "ana@example.com", "phone": "123456", "status": "active"}],
			"meta": {"page": 2, "size": 20, "total": 25, "totalPages": 2}
		}`)
	}), httpapi.Options{Tokens: staticTokens{token: "tok-1"}})

	page, err := client.ListCustomers(context.Background(),
		customer.ListFilter{Search: "ana", Status: customer.FilterActive},
		customer.PageRequest{Page: 2, Size: 20})
	require.NoError(t, err)
	require.Equal(t, 2, page.Page)
	require.Equal(t, 25, page.TotalCount)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	require.Equal(t, int64(21), page.Items[0].ID)
}

func TestClient_ListCustomers_AllStatusOmitted(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.False(t, q.Has("status"))
		require.False(t, q.Has("search"))
		io.WriteString(w, `{"data": [], "meta": {"page": 1, "size": 20, "total": 0, "totalPages": 0}}`)
	}), httpapi.Options{Tokens: staticTokens{token: "tok-1"}})

	_, err := client.ListCustomers(context.Background(),
		customer.ListFilter{Status: customer.FilterAll},
		customer.PageRequest{Page: 1, Size: 20})
	require.NoError(t, err)
}

func TestClient_UnauthorizedFiresHook(t *testing.T) {
	fired := 0
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"token expired"}`)
	}), httpapi.Options{
		Tokens:         staticTokens{token: "stale"},
		OnUnauthorized: func() { fired++ },
	})

	_, err := client.ListCustomers(context.Background(), customer.ListFilter{}, customer.PageRequest{Page: 1, Size: 20})
	require.ErrorIs(t, err, remote.ErrUnauthorized)
	require.Equal(t, 1, fired)
}

func TestClient_CreateConflict(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message":"email already registered","field":"email"}`)
	}), httpapi.Options{Tokens: staticTokens{token: "tok-1"}})

	_, err := client.CreateCustomer(context.Background(), customer.CreateRequest{
		FirstName: "Ana", Email: "ana@example.com", Phone: "123456",
	})

	var conflict *remote.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, "email", conflict.Field)
	require.Equal(t, "email already registered", conflict.Message)
}

func TestClient_GetNotFound(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"no such customer"}`)
	}), httpapi.Options{Tokens: staticTokens{token: "tok-1"}})

	_, err := client.GetCustomer(context.Background(), 99)
	require.ErrorIs(t, err, remote.ErrNotFound)
}

func TestClient_ServiceError(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"message":"directory unavailable"}`)
	}), httpapi.Options{Tokens: staticTokens{token: "tok-1"}})

	_, err := client.GetCustomer(context.Background(), 1)

	var serr *remote.ServiceError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, http.StatusInternalServerError, serr.Status)
	require.Equal(t, "directory unavailable", serr.Message)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := httpapi.NewClient(httpapi.Options{BaseURL: srv.URL + "/api"})
	srv.Close()

	_, err := client.GetCustomer(context.Background(), 1)

	var terr *remote.TransportError
	require.True(t, errors.As(err, &terr))
	require.NotNil(t, terr.Unwrap())
}

func TestClient_MalformedBody(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id": "not a number"`)
	}), httpapi.Options{Tokens: staticTokens{token: "tok-1"}})

	_, err := client.GetCustomer(context.Background(), 1)

	var serr *remote.ServiceError
	require.True(t, errors.As(err, &serr))
	require.Contains(t, serr.Message, "malformed response")
}

func TestClient_ExportCSV(t *testing.T) {
	csv := "first_name,last_name,email,phone,tax_id,status\nAna,,ana@example.com,123456,,active\n"
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/customers/export", r.URL.Path)
		require.Equal(t, "inactive", r.URL.Query().Get("status"))
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, csv)
	}), httpapi.Options{Tokens: staticTokens{token: "tok-1"}})

	data, err := client.ExportCSV(context.Background(), customer.ListFilter{Status: customer.FilterInactive})
	require.NoError(t, err)
	require.Equal(t, csv, string(data))
}

func TestClient_ImportCSV(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/customers/import", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "commit", r.FormValue("mode"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "clientes.csv", header.Filename)

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Contains(t, string(content), "ana@example.com")

		json.NewEncoder(w).Encode(remote.ImportResult{
			Rows:     3,
			Imported: 1,
			Errors: []remote.ImportRowError{
				{Row: 3, Field: "email", Message: "email is required"},
				{Row: 4, Field: "email", Message: "duplicate email in file"},
			},
		})
	}), httpapi.Options{Tokens: staticTokens{token: "tok-1"}})

	result, err := client.ImportCSV(context.Background(), "clientes.csv",
		[]byte("first_name,email,phone\nAna,ana@example.com,123456\n"))
	require.NoError(t, err)
	require.Equal(t, 3, result.Rows)
	require.Equal(t, 1, result.Imported)
	require.Len(t, result.Errors, 2)
	require.Equal(t, 3, result.Errors[0].Row)
}

func TestClient_GetSummary(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/customers/7/summary", r.URL.Path)
		require.Equal(t, "2026-01-01", r.URL.Query().Get("from"))
		require.Equal(t, "2026-06-30", r.URL.Query().Get("to"))
		io.WriteString(w, `{
			"orders": {"count": 4, "totalAmount": "1250.50", "balanceDue": "200.00"},
			"payments": {"count": 3, "totalPaid": "1050.50"},
			"outstandingBalance": "200.00"
		}`)
	}), httpapi.Options{Tokens: staticTokens{token: "tok-1"}})

	sum, err := client.GetSummary(context.Background(), 7, customer.SummaryRange{From: "2026-01-01", To: "2026-06-30"})
	require.NoError(t, err)
	require.Equal(t, int64(4), sum.Orders.Count)
	require.Equal(t, json.Number("1250.50"), sum.Orders.TotalAmount)
	require.Equal(t, json.Number("200.00"), sum.OutstandingBalance)
}
