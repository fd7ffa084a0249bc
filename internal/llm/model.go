package llm

import (
	"context"
	"time"
)

// EventType classifies a model telemetry event.
type EventType string

const (
	EventSuccess  EventType = "success"
	EventRetry    EventType = "retry"
	EventFallback EventType = "fallback"
	EventError    EventType = "error"
)

// Prompt types used as circuit-breaker categories.
const (
	PromptDailyEntry     = "daily_entry"
	PromptClassification = "classification"
)

// Event is an append-only record of one model attempt.
type Event struct {
	ID           string    `json:"id"`
	EventType    EventType `json:"event_type"`
	ModelID      string    `json:"model_id"`
	PromptType   string    `json:"prompt_type"`
	TargetDate   string    `json:"target_date,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Reasons recorded on fallback events that never reached the primary.
const (
	ReasonCircuitOpen     = "circuit open"
	ReasonPrimaryDisabled = "primary disabled"
)

// Terminal reports whether the event ends a Complete call.
func (e Event) Terminal() bool {
	return e.EventType != EventRetry
}

// AttemptedPrimary reports whether the call behind the event tried the
// primary model. Skipped calls say nothing about its health.
func (e Event) AttemptedPrimary() bool {
	if e.EventType != EventFallback {
		return true
	}
	return e.Error != ReasonCircuitOpen && e.Error != ReasonPrimaryDisabled
}

// Options tune a single Complete call.
type Options struct {
	// PromptType selects the circuit-breaker category.
	PromptType string
	TargetDate string
	MaxTokens  int
	// JSONMode requires the response to contain a JSON array, object or
	// fenced block.
	JSONMode bool
	// Validate, when set, runs on the cleaned response. A non-nil error
	// fails the attempt like a transport error would.
	Validate func(text string) error
}

// Result is the outcome of Complete.
type Result struct {
	Text         string
	ModelUsed    string
	Fallback     bool
	InputTokens  int
	OutputTokens int
	// RetryCount is the number of primary attempts that failed.
	RetryCount int
}

// Completer is satisfied by Gateway and by test doubles.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (Result, error)
}

// Completion is a raw provider response.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider is a single text-completion backend.
type Provider interface {
	Model() string
	Complete(ctx context.Context, prompt string, maxTokens int) (Completion, error)
}

// EventStore persists model events and serves breaker history.
type EventStore interface {
	Record(ctx context.Context, ev *Event) error
	// RecentTerminal returns up to limit terminal events for promptType
	// that attempted the primary model, newest first.
	RecentTerminal(ctx context.Context, promptType string, limit int) ([]Event, error)
}
