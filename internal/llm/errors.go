package llm

import "errors"

var (
	// ErrUnavailable is returned when neither the primary nor the fallback
	// model produced a usable response.
	ErrUnavailable = errors.New("model unavailable")
	// ErrEmptyResponse indicates a provider returned no text.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrMalformedOutput indicates structured output was requested and not
	// produced.
	ErrMalformedOutput = errors.New("malformed structured output")
	// ErrNotConfigured indicates a provider is missing required settings.
	ErrNotConfigured = errors.New("model provider not configured")
)
