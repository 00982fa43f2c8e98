package core

import "errors"

// Sentinel errors shared across the pipeline. Callers wrap these with
// context and check them with errors.Is; the HTTP layer maps each to a
// status code.
var (
	// ErrValidation marks a caller mistake (bad input, unknown action type).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict marks an operation applied in the wrong lifecycle
	// state, such as regenerating an accepted artifact.
	ErrStateConflict = errors.New("state conflict")

	// ErrUpstreamTimeout marks a generation collaborator call that ran out
	// of budget. Retryable once.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstreamMalformed marks collaborator output that failed schema
	// validation. Retryable once.
	ErrUpstreamMalformed = errors.New("upstream returned malformed output")
)
