package state

import "errors"

// Domain errors for the state package.
var (
	// ErrNotFound is returned when a key or user document does not exist.
	ErrNotFound = errors.New("state: not found")

	// ErrInvalidDocument is returned when a document fails validation.
	ErrInvalidDocument = errors.New("state: invalid document")

	// ErrInvalidUser is returned for an empty user name.
	ErrInvalidUser = errors.New("state: user name is required")

	// ErrUnknownBackend is returned for an unsupported backend name.
	ErrUnknownBackend = errors.New("state: unknown backend")
)
