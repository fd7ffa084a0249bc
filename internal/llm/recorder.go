package llm

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// emitTimeout bounds a single async event write.
const emitTimeout = 5 * time.Second

// Recorder writes model events in the background. Failures are logged and
// dropped; telemetry never blocks or fails generation.
type Recorder struct {
	store  EventStore
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewRecorder returns a recorder writing to store. A nil store records
// nothing.
func NewRecorder(store EventStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{store: store, logger: logger}
}

// Record persists ev asynchronously.
func (r *Recorder) Record(ev Event) {
	if r == nil || r.store == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Debug("model event write panicked", "panic", p)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := r.store.Record(ctx, &ev); err != nil {
			r.logger.Debug("model event write failed", "event_type", ev.EventType, "error", err)
		}
	}()
}

// Flush waits for in-flight writes.
func (r *Recorder) Flush() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
