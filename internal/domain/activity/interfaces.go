package activity

import (
	"context"
	"time"
)

// Repository provides read access to raw activity records.
type Repository interface {
	SessionsOverlapping(ctx context.Context, developerID string, start, end time.Time) ([]Session, error)
	CommitsBetween(ctx context.Context, developerID string, start, end time.Time) ([]Commit, error)
	ToolEventsBetween(ctx context.Context, developerID string, start, end time.Time) ([]ToolEvent, error)
}
