package entry

import "errors"

var (
	// ErrInvalidEntry indicates an entry violates a record invariant.
	ErrInvalidEntry = errors.New("invalid daily entry")
	// ErrInvalidTransition indicates an invalid review transition.
	ErrInvalidTransition = errors.New("invalid entry status transition")
)
