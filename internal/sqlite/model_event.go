package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/captime/internal/llm"
)

// ModelEventRepository implements llm.EventStore for SQLite
type ModelEventRepository struct {
	db *DB
}

// NewModelEventRepository creates a new ModelEventRepository
func NewModelEventRepository(db *DB) *ModelEventRepository {
	return &ModelEventRepository{db: db}
}

// Record appends a model event
func (r *ModelEventRepository) Record(ctx context.Context, ev *llm.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO model_events (
			id, event_type, model_id, prompt_type, target_date,
			latency_ms, input_tokens, output_tokens, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.EventType, ev.ModelID, ev.PromptType, ev.TargetDate,
		ev.LatencyMs, ev.InputTokens, ev.OutputTokens, ev.Error, formatTime(ev.CreatedAt))
	if err != nil {
		return insertError("model event", err)
	}
	return nil
}

// RecentTerminal returns up to limit success, fallback and error events for
// promptType, newest first. Fallbacks that skipped the primary are left out.
func (r *ModelEventRepository) RecentTerminal(ctx context.Context, promptType string, limit int) ([]llm.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_type, model_id, prompt_type, target_date,
			latency_ms, input_tokens, output_tokens, error, created_at
		FROM model_events
		WHERE prompt_type = ? AND event_type IN (?, ?, ?)
			AND NOT (event_type = ? AND error IN (?, ?))
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, promptType, llm.EventSuccess, llm.EventFallback, llm.EventError,
		llm.EventFallback, llm.ReasonCircuitOpen, llm.ReasonPrimaryDisabled, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list model events: %w", err)
	}
	defer rows.Close()

	var events []llm.Event
	for rows.Next() {
		var (
			ev        llm.Event
			createdAt string
		)
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.ModelID, &ev.PromptType, &ev.TargetDate,
			&ev.LatencyMs, &ev.InputTokens, &ev.OutputTokens, &ev.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan model event: %w", err)
		}
		if ev.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating model event rows: %w", err)
	}
	return events, nil
}
