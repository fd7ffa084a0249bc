package llm

import "time"

// BreakerState decides how aggressively the primary model is tried.
type BreakerState string

const (
	// BreakerNormal tries the primary with the full retry budget.
	BreakerNormal BreakerState = "normal"
	// BreakerSkip goes straight to the fallback model.
	BreakerSkip BreakerState = "skip"
	// BreakerProbe tries the primary exactly once to test recovery.
	BreakerProbe BreakerState = "probe"
)

const (
	// BreakerWindow is how many terminal events the breaker reads.
	BreakerWindow = 5
	// BreakerThreshold is the minimum failure streak that trips it.
	BreakerThreshold = 3
	// DefaultCooldown is how long the primary is skipped once tripped.
	DefaultCooldown = 30 * time.Minute
)

// EvaluateBreaker derives the breaker state from recent terminal events,
// newest first. Events from calls that skipped the primary are ignored, so
// cooldown runs from the last real attempt. The breaker trips when at least
// BreakerThreshold events are present and none of them is a success. While
// tripped, the primary is skipped until cooldown has passed since the newest
// attempt, after which a single probe is allowed. A successful probe becomes
// the newest event and resets the breaker.
func EvaluateBreaker(events []Event, now time.Time, cooldown time.Duration) BreakerState {
	attempts := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.AttemptedPrimary() {
			attempts = append(attempts, ev)
		}
	}
	events = attempts
	if len(events) > BreakerWindow {
		events = events[:BreakerWindow]
	}
	if len(events) < BreakerThreshold {
		return BreakerNormal
	}
	for _, ev := range events {
		if ev.EventType != EventFallback && ev.EventType != EventError {
			return BreakerNormal
		}
	}
	if now.Sub(events[0].CreatedAt) < cooldown {
		return BreakerSkip
	}
	return BreakerProbe
}
