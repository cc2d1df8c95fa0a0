// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across provisioning, repository and service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict indicates a guarded update matched no row (e.g., queue would go negative).
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates malformed input rejected before reaching the store.
	ErrValidation = errors.New("validation")

	// ErrInvalidTransition indicates a status change that is not forward-only.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrHopOrder indicates a route hop that does not exceed the previous hop of the same message.
	ErrHopOrder = errors.New("hop count not increasing")

	// ErrIndexConflict indicates an existing index whose definition differs from the catalog.
	ErrIndexConflict = errors.New("index definition conflict")

	// ErrSchemaDrift indicates a catalog collection missing after migrations ran.
	ErrSchemaDrift = errors.New("schema drift")

	// ErrUnavailable indicates the store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
)
