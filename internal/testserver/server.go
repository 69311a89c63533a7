// Package testserver is an in-memory stand-in for the customer
// directory service. It implements the REST surface the client
// consumes, holds all state behind one mutex, and shares the bulk
// package's CSV rules so import accounting matches the client's.
package testserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mgajardo/backdesk/internal/domain/customer"
	"github.com/mgajardo/backdesk/internal/remote"
)

// Server is an in-memory directory service accepting exactly one
// credential pair. Every issued token stays valid until logout or an
// explicit RevokeToken.
type Server struct {
	router *mux.Router

	mu        sync.Mutex
	email     string
	password  string
	user      remote.Identity
	tokens    map[string]bool
	customers map[int64]customer.Customer
	summaries map[int64]customer.FinancialSummary
	nextID    int64
}

// New creates a directory service that authenticates email/password.
func New(email, password string) *Server {
	s := &Server{
		email:     email,
		password:  password,
		user:      remote.Identity{ID: 1, Email: email, Name: "Back Office", Role: "admin"},
		tokens:    make(map[string]bool),
		customers: make(map[int64]customer.Customer),
		summaries: make(map[int64]customer.FinancialSummary),
	}

	r := mux.NewRouter()
	r.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/auth/logout", s.authed(s.handleLogout)).Methods("POST")
	r.HandleFunc("/auth/me", s.authed(s.handleMe)).Methods("GET")
	r.HandleFunc("/customers", s.authed(s.handleList)).Methods("GET")
	r.HandleFunc("/customers", s.authed(s.handleCreate)).Methods("POST")
	r.HandleFunc("/customers/export", s.authed(s.handleExport)).Methods("GET")
	r.HandleFunc("/customers/import", s.authed(s.handleImport)).Methods("POST")
	r.HandleFunc("/customers/{id:[0-9]+}", s.authed(s.handleGet)).Methods("GET")
	r.HandleFunc("/customers/{id:[0-9]+}", s.authed(s.handleUpdate)).Methods("PUT")
	r.HandleFunc("/customers/{id:[0-9]+}/deactivate", s.authed(s.handleDeactivate)).Methods("POST")
	r.HandleFunc("/customers/{id:[0-9]+}/summary", s.authed(s.handleSummary)).Methods("GET")
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SeedCustomer inserts a record directly, bypassing validation. A zero
// ID is assigned the next free one. Returns the stored record.
func (s *Server) SeedCustomer(c customer.Customer) customer.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	} else if c.ID > s.nextID {
		s.nextID = c.ID
	}
	if c.Status == "" {
		c.Status = customer.StatusActive
	}
	s.customers[c.ID] = c
	return c
}

// SetSummary installs the canned financial summary for a customer.
func (s *Server) SetSummary(id int64, sum customer.FinancialSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[id] = sum
}

// RevokeToken invalidates an issued token, simulating a session expired
// server-side.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Customer returns the stored record, for assertions on server state.
func (s *Server) Customer(id int64) (customer.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	return c, ok
}

// CustomerByEmail looks a record up the way import upserts do.
func (s *Server) CustomerByEmail(email string) (customer.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.findByEmail(email)
	return c, ok
}

// ActiveTokens reports how many issued tokens are still valid.
func (s *Server) ActiveTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed login payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !strings.EqualFold(creds.Email, s.email) || creds.Password != s.password {
		writeMessage(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token := "tok-" + uuid.NewString()
	s.tokens[token] = true
	writeJSON(w, http.StatusOK, remote.Session{Token: token, User: s.user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.tokens, bearerToken(r))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

// authed rejects requests whose bearer token was never issued or has
// been revoked.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		s.mu.Lock()
		ok := token != "" && s.tokens[token]
		s.mu.Unlock()
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
