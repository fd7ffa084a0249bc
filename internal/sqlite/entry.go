package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/captime/internal/domain/entry"
	"github.com/rpggio/captime/internal/repository"
)

// EntryRepository implements entry.Repository for SQLite. The table's
// UNIQUE (developer_id, entry_date, project_id) constraint turns a lost
// generation race into repository.ErrConflict.
type EntryRepository struct {
	db *DB
}

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(db *DB) *EntryRepository {
	return &EntryRepository{db: db}
}

const entryColumns = `
	id, developer_id, entry_date, project_id, project_name, phase,
	hours_raw, hours_estimated, hours_confirmed, summary, reasoning, model_used, fallback,
	confidence, work_type, work_type_confidence, outlier_flag, z_score, flag_reason,
	status, created_at, reviewed_at`

// ExistsForDate reports whether any entry exists for the developer and date
func (r *EntryRepository) ExistsForDate(ctx context.Context, developerID, date string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM daily_entries WHERE developer_id = ? AND entry_date = ?)`,
		developerID, date,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check entries: %w", err)
	}
	return exists == 1, nil
}

// Create inserts a single daily entry
func (r *EntryRepository) Create(ctx context.Context, e *entry.DailyEntry) error {
	return insertEntry(ctx, r.db, e)
}

// CreateAll inserts a day's entries in one transaction. Either every entry
// is stored or none is, so a failed write leaves the day open for a retry.
func (r *EntryRepository) CreateAll(ctx context.Context, entries []entry.DailyEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range entries {
		if err := insertEntry(ctx, tx, &entries[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entries: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEntry(ctx context.Context, db execer, e *entry.DailyEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var reviewed sql.NullString
	if e.ReviewedAt != nil {
		reviewed = nullTime(*e.ReviewedAt)
	}

	query := `INSERT INTO daily_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		e.ID,
		e.DeveloperID,
		e.Date,
		e.ProjectID,
		e.ProjectName,
		e.Phase,
		e.HoursRaw,
		e.HoursEstimated,
		e.HoursConfirmed,
		e.Summary,
		e.Reasoning,
		e.ModelUsed,
		boolInt(e.Fallback),
		e.Confidence,
		e.WorkType,
		e.WorkTypeConfidence,
		e.OutlierFlag,
		e.ZScore,
		e.FlagReason,
		e.Status,
		formatTime(e.CreatedAt),
		reviewed,
	)
	if err != nil {
		return insertError("daily entry", err)
	}
	return nil
}

// ListByDate returns the developer's entries for date
func (r *EntryRepository) ListByDate(ctx context.Context, developerID, date string) ([]entry.DailyEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM daily_entries WHERE developer_id = ? AND entry_date = ? ORDER BY created_at, id`,
		developerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []entry.DailyEntry
	for rows.Next() {
		var (
			e                      entry.DailyEntry
			projectID, outlierFlag sql.NullString
			hoursConfirmed         sql.NullFloat64
			fallback               int
			createdAt              string
			reviewedAt             sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &e.DeveloperID, &e.Date, &projectID, &e.ProjectName, &e.Phase,
			&e.HoursRaw, &e.HoursEstimated, &hoursConfirmed, &e.Summary, &e.Reasoning, &e.ModelUsed, &fallback,
			&e.Confidence, &e.WorkType, &e.WorkTypeConfidence, &outlierFlag, &e.ZScore, &e.FlagReason,
			&e.Status, &createdAt, &reviewedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if projectID.Valid {
			e.ProjectID = &projectID.String
		}
		if outlierFlag.Valid {
			e.OutlierFlag = &outlierFlag.String
		}
		if hoursConfirmed.Valid {
			e.HoursConfirmed = &hoursConfirmed.Float64
		}
		e.Fallback = fallback != 0
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if reviewedAt.Valid {
			t, err := parseTime(reviewedAt.String)
			if err != nil {
				return nil, err
			}
			e.ReviewedAt = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return entries, nil
}

// ListHistory returns the baseline slice of every entry dated in
// [fromDate, toDate]
func (r *EntryRepository) ListHistory(ctx context.Context, developerID, fromDate, toDate string) ([]entry.HistoricalEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT entry_date, project_id, hours_confirmed
		FROM daily_entries
		WHERE developer_id = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date ASC
	`, developerID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var history []entry.HistoricalEntry
	for rows.Next() {
		var (
			h         entry.HistoricalEntry
			projectID sql.NullString
			confirmed sql.NullFloat64
		)
		if err := rows.Scan(&h.Date, &projectID, &confirmed); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		if projectID.Valid {
			h.ProjectID = &projectID.String
		}
		if confirmed.Valid {
			h.ConfirmedHours = &confirmed.Float64
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}
	return history, nil
}

// Confirm records reviewed hours and moves the entry to confirmed. Review
// workflows own this transition; it is here so baselines can be built.
func (r *EntryRepository) Confirm(ctx context.Context, id string, hours float64) error {
	var current entry.Status
	if err := r.db.QueryRowContext(ctx, `SELECT status FROM daily_entries WHERE id = ?`, id).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to load entry: %w", err)
	}
	if err := entry.ValidateTransition(current, entry.StatusConfirmed); err != nil {
		return err
	}
	if hours < 0 {
		return fmt.Errorf("%w: negative hours", repository.ErrInvalidInput)
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE daily_entries SET status = ?, hours_confirmed = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		entry.StatusConfirmed, hours, formatTime(time.Now()), id, current)
	if err != nil {
		return fmt.Errorf("failed to confirm entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm entry: %w", err)
	}
	if n == 0 {
		return repository.ErrConflict
	}
	return nil
}
