package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/captime/internal/domain/activity"
	"github.com/rpggio/captime/internal/repository"
)

// ActivityRepository implements activity.Repository for SQLite. Writes are
// used by ingestion and tests; the attribution pipeline only reads.
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// CreateSession inserts a session and its per-day breakdown
func (r *ActivityRepository) CreateSession(ctx context.Context, sess *activity.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	toolCounts, err := json.Marshal(sess.ToolCounts)
	if err != nil {
		return fmt.Errorf("failed to encode tool counts: %w", err)
	}
	if sess.ToolCounts == nil {
		toolCounts = []byte("{}")
	}
	files, err := json.Marshal(nonNil(sess.Files))
	if err != nil {
		return fmt.Errorf("failed to encode files: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO activity_sessions (
			id, developer_id, project_path, started_at, ended_at,
			message_count, tool_use_count, input_tokens, output_tokens, tool_counts, files
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sess.ID,
		sess.DeveloperID,
		sess.ProjectPath,
		formatTime(sess.StartedAt),
		nullTime(sess.EndedAt),
		sess.MessageCount,
		sess.ToolUseCount,
		sess.InputTokens,
		sess.OutputTokens,
		string(toolCounts),
		string(files),
	)
	if err != nil {
		return insertError("session", err)
	}

	for _, day := range sess.Days {
		prompts, err := json.Marshal(nonNil(day.Prompts))
		if err != nil {
			return fmt.Errorf("failed to encode prompts: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_days (session_id, day, message_count, active_minutes, wall_clock_minutes, prompts)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sess.ID, day.Date, day.MessageCount, day.ActiveMinutes, day.WallClockMinutes, string(prompts))
		if err != nil {
			return insertError("session day", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// CreateCommit inserts a commit. A repeated (developer, repo, sha) is a conflict.
func (r *ActivityRepository) CreateCommit(ctx context.Context, c *activity.Commit) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	files, err := json.Marshal(nonNil(c.Files))
	if err != nil {
		return fmt.Errorf("failed to encode files: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO commits (id, developer_id, repo_path, sha, message, committed_at, lines_added, lines_deleted, files)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.DeveloperID, c.RepoPath, c.SHA, c.Message, formatTime(c.CommittedAt), c.LinesAdded, c.LinesDeleted, string(files))
	if err != nil {
		return insertError("commit", err)
	}
	return nil
}

// CreateToolEvent inserts a tool event
func (r *ActivityRepository) CreateToolEvent(ctx context.Context, ev *activity.ToolEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tool_events (
			id, developer_id, session_id, tool_name, project_path, file_path,
			input_preview, response_preview, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.DeveloperID, ev.SessionID, ev.ToolName, ev.ProjectPath, ev.FilePath,
		ev.InputPreview, ev.ResponsePreview, formatTime(ev.OccurredAt))
	if err != nil {
		return insertError("tool event", err)
	}
	return nil
}

// SessionsOverlapping returns sessions that intersect [start, end), with
// their full per-day breakdown.
func (r *ActivityRepository) SessionsOverlapping(ctx context.Context, developerID string, start, end time.Time) ([]activity.Session, error) {
	where := `developer_id = ? AND started_at < ? AND COALESCE(ended_at, started_at) >= ?`
	args := []any{developerID, formatTime(end), formatTime(start)}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, developer_id, project_path, started_at, ended_at,
			message_count, tool_use_count, input_tokens, output_tokens, tool_counts, files
		FROM activity_sessions
		WHERE `+where+`
		ORDER BY started_at ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var (
		sessions []activity.Session
		index    = map[string]int{}
	)
	for rows.Next() {
		var (
			s                 activity.Session
			startedAt         string
			endedAt           sql.NullString
			toolCounts, files string
		)
		if err := rows.Scan(
			&s.ID, &s.DeveloperID, &s.ProjectPath, &startedAt, &endedAt,
			&s.MessageCount, &s.ToolUseCount, &s.InputTokens, &s.OutputTokens, &toolCounts, &files,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if s.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if s.EndedAt, err = parseNullTime(endedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(toolCounts), &s.ToolCounts); err != nil {
			return nil, fmt.Errorf("failed to decode tool counts: %w", err)
		}
		if err := json.Unmarshal([]byte(files), &s.Files); err != nil {
			return nil, fmt.Errorf("failed to decode files: %w", err)
		}
		index[s.ID] = len(sessions)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	rows.Close()
	if len(sessions) == 0 {
		return nil, nil
	}

	dayRows, err := r.db.QueryContext(ctx, `
		SELECT session_id, day, message_count, active_minutes, wall_clock_minutes, prompts
		FROM session_days
		WHERE session_id IN (SELECT id FROM activity_sessions WHERE `+where+`)
		ORDER BY session_id, day
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list session days: %w", err)
	}
	defer dayRows.Close()

	for dayRows.Next() {
		var (
			sessionID, prompts string
			d                  activity.DaySlice
		)
		if err := dayRows.Scan(&sessionID, &d.Date, &d.MessageCount, &d.ActiveMinutes, &d.WallClockMinutes, &prompts); err != nil {
			return nil, fmt.Errorf("failed to scan session day: %w", err)
		}
		if err := json.Unmarshal([]byte(prompts), &d.Prompts); err != nil {
			return nil, fmt.Errorf("failed to decode prompts: %w", err)
		}
		if i, ok := index[sessionID]; ok {
			sessions[i].Days = append(sessions[i].Days, d)
		}
	}
	if err := dayRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session day rows: %w", err)
	}
	return sessions, nil
}

// CommitsBetween returns commits in [start, end)
func (r *ActivityRepository) CommitsBetween(ctx context.Context, developerID string, start, end time.Time) ([]activity.Commit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, developer_id, repo_path, sha, message, committed_at, lines_added, lines_deleted, files
		FROM commits
		WHERE developer_id = ? AND committed_at >= ? AND committed_at < ?
		ORDER BY committed_at ASC
	`, developerID, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}
	defer rows.Close()

	var commits []activity.Commit
	for rows.Next() {
		var (
			c                  activity.Commit
			committedAt, files string
		)
		if err := rows.Scan(&c.ID, &c.DeveloperID, &c.RepoPath, &c.SHA, &c.Message, &committedAt,
			&c.LinesAdded, &c.LinesDeleted, &files); err != nil {
			return nil, fmt.Errorf("failed to scan commit: %w", err)
		}
		if c.CommittedAt, err = parseTime(committedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(files), &c.Files); err != nil {
			return nil, fmt.Errorf("failed to decode files: %w", err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commit rows: %w", err)
	}
	return commits, nil
}

// ToolEventsBetween returns tool events in [start, end)
func (r *ActivityRepository) ToolEventsBetween(ctx context.Context, developerID string, start, end time.Time) ([]activity.ToolEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, developer_id, session_id, tool_name, project_path, file_path,
			input_preview, response_preview, occurred_at
		FROM tool_events
		WHERE developer_id = ? AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at ASC
	`, developerID, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("failed to list tool events: %w", err)
	}
	defer rows.Close()

	var events []activity.ToolEvent
	for rows.Next() {
		var (
			ev         activity.ToolEvent
			occurredAt string
		)
		if err := rows.Scan(&ev.ID, &ev.DeveloperID, &ev.SessionID, &ev.ToolName, &ev.ProjectPath, &ev.FilePath,
			&ev.InputPreview, &ev.ResponsePreview, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan tool event: %w", err)
		}
		if ev.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tool event rows: %w", err)
	}
	return events, nil
}

func insertError(what string, err error) error {
	switch {
	case isUniqueViolation(err):
		return repository.ErrConflict
	case isForeignKeyViolation(err):
		return repository.ErrForeignKeyViolation
	}
	return fmt.Errorf("failed to insert %s: %w", what, err)
}
