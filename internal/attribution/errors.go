package attribution

import "errors"

var (
	// ErrInvalidCandidates indicates the model's answer did not decode into
	// a well-formed candidate list.
	ErrInvalidCandidates = errors.New("invalid attribution candidates")
	// ErrNotConfigured indicates a required dependency is missing.
	ErrNotConfigured = errors.New("attribution engine not configured")
)
