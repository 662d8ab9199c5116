package errors

import "errors"

// This package defines a centralized set of sentinel errors for the backend.
// Services return these recognizable errors without coupling to HTTP status
// codes; the API layer checks them with `errors.Is()` and maps them to the
// correct responses.

var (
	// ErrValidation signifies that a client request failed structural
	// validation (wrong method handled separately, malformed body here).
	// Mapped to a 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrNotConfigured signifies that a required secret (the upstream API
	// key) is absent. Operator-facing; mapped to a 500 with a distinct
	// message so it is distinguishable from transient upstream failure.
	ErrNotConfigured = errors.New("service not configured")

	// ErrInternal signifies an unexpected server-side error. Mapped to a
	// generic 500 so implementation details do not leak to the client.
	ErrInternal = errors.New("internal server error")
)
