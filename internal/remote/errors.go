package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every transport implementation.
var (
	// ErrUnauthorized reports a request the service rejected with 401.
	// The holder of the session decides what to do about it.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound reports a request addressing a customer the service
	// does not know.
	ErrNotFound = errors.New("customer not found")
)

// ConflictError reports a 409 from the service: the write collided with
// state that already exists, typically a duplicate email.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransportError wraps a request that never produced a usable HTTP
// response: connection refused, timeout, DNS failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServiceError reports a response the client could not accept: a 5xx,
// an unexpected status code, or a body that failed to decode.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	switch {
	case e.Status == 0:
		return e.Message
	case e.Message == "":
		return fmt.Sprintf("service returned status %d", e.Status)
	default:
		return fmt.Sprintf("service returned status %d: %s", e.Status, e.Message)
	}
}
