package domain

import "errors"

var (
	// ErrValidation marks malformed or incomplete input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation rejected because of current state.
	ErrConflict = errors.New("conflict")
	// ErrDuplicateClaim marks an apply attempt while the member already
	// has a claim in an active status.
	ErrDuplicateClaim = errors.New("duplicate claim")
	// ErrInvalidState marks a claim transition not permitted from the
	// current status.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrInvalidClaim marks an application the eligibility engine
	// rejected.
	ErrInvalidClaim = errors.New("invalid claim")
)
