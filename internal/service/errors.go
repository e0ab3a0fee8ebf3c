package service

import "errors"

var (
	// ErrValidation rejects malformed intake input; no record is created.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState rejects an operation against a job not in the
	// required status (e.g. distribute before completion).
	ErrInvalidState = errors.New("invalid job state")

	// ErrAlreadyDispatched means a duplicate generation dispatch hit a job
	// that already left pending; the duplicate must be a no-op.
	ErrAlreadyDispatched = errors.New("job already dispatched")

	// ErrTerminal rejects any mutation of a terminal job or attempt.
	ErrTerminal = errors.New("already in terminal state")
)
