// Package common defines sentinel error kinds and small helpers shared by the
// server and client layers of flashboard. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// Validation errors (weak password, malformed input).
	ErrValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)

// KindError carries a client-facing message while still matching its kind
// through errors.Is.
type KindError struct {
	Kind error
	Msg  string
}

// NewError returns a KindError of the given kind.
func NewError(kind error, msg string) *KindError {
	return &KindError{Kind: kind, Msg: msg}
}

func (e *KindError) Error() string { return e.Msg }

func (e *KindError) Unwrap() error { return e.Kind }

// Message returns the client-facing message of the first KindError in err's
// chain, or fallback when there is none.
func Message(err error, fallback string) string {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Msg
	}
	return fallback
}
