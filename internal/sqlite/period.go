package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/captime/internal/domain/activity"
	"github.com/rpggio/captime/internal/domain/period"
	"github.com/rpggio/captime/internal/repository"
)

// PeriodRepository implements period.Checker for SQLite. Months without a
// row are open.
type PeriodRepository struct {
	db *DB
}

// NewPeriodRepository creates a new PeriodRepository
func NewPeriodRepository(db *DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// SetStatus records the close state of a month (YYYY-MM)
func (r *PeriodRepository) SetStatus(ctx context.Context, month string, status period.Status) error {
	if _, err := time.Parse(period.PeriodLayout, month); err != nil {
		return fmt.Errorf("%w: period %q", repository.ErrInvalidInput, month)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounting_periods (period, status, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(period) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at
	`, month, status, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to set period status: %w", err)
	}
	return nil
}

// StatusFor returns the close state of the month containing date
func (r *PeriodRepository) StatusFor(ctx context.Context, date string) (period.Status, error) {
	d, err := time.Parse(activity.DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: date %q", repository.ErrInvalidInput, date)
	}
	var status period.Status
	err = r.db.QueryRowContext(ctx,
		`SELECT status FROM accounting_periods WHERE period = ?`, d.Format(period.PeriodLayout),
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return period.StatusOpen, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get period status: %w", err)
	}
	return status, nil
}
