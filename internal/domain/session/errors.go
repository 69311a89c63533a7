package session

import "errors"

var (
	// ErrNotAuthenticated reports an operation that needs an active
	// session when none is held.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrMissingCredentials reports a login attempt with an empty email
	// or password, caught before any network traffic.
	ErrMissingCredentials = errors.New("email and password are required")
)
