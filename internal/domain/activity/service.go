package activity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"
)

// Service gathers a developer's activity for a single day.
type Service struct {
	repo   Repository
	idle   time.Duration
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, idle: DefaultIdleThreshold, logger: logger}
}

// GatherDay collects sessions overlapping the window, commits and tool
// events inside it, and drops sessions that were idle on date. A session
// that spans several days only contributes its slice for date.
func (s *Service) GatherDay(ctx context.Context, developerID, date string, window Window) (DayActivity, error) {
	sessions, err := s.repo.SessionsOverlapping(ctx, developerID, window.Start, window.End)
	if err != nil {
		return DayActivity{}, fmt.Errorf("loading sessions: %w", err)
	}
	commits, err := s.repo.CommitsBetween(ctx, developerID, window.Start, window.End)
	if err != nil {
		return DayActivity{}, fmt.Errorf("loading commits: %w", err)
	}
	events, err := s.repo.ToolEventsBetween(ctx, developerID, window.Start, window.End)
	if err != nil {
		return DayActivity{}, fmt.Errorf("loading tool events: %w", err)
	}

	day := DayActivity{
		DeveloperID: developerID,
		Date:        date,
		Window:      window,
		Commits:     commits,
		ToolEvents:  events,
	}

	for _, sess := range sessions {
		ds, ok := s.daySession(sess, date, window, events)
		if !ok {
			s.logger.Debug("dropping idle session", "session_id", sess.ID, "date", date)
			continue
		}
		day.Sessions = append(day.Sessions, ds)
	}

	sort.Slice(day.Commits, func(i, j int) bool {
		return day.Commits[i].CommittedAt.Before(day.Commits[j].CommittedAt)
	})
	return day, nil
}

func (s *Service) daySession(sess Session, date string, window Window, events []ToolEvent) (DaySession, bool) {
	if len(sess.Days) > 0 {
		slice, ok := sess.Day(date)
		if !ok || (slice.MessageCount == 0 && slice.ActiveMinutes == 0) {
			return DaySession{}, false
		}
		return DaySession{
			Session:       sess,
			MessageCount:  slice.MessageCount,
			ActiveMinutes: slice.ActiveMinutes,
			Prompts:       slice.Prompts,
		}, true
	}

	// No breakdown: derive active time from this session's tool events
	// inside the window.
	var stamps []time.Time
	for _, ev := range events {
		if ev.SessionID == sess.ID && window.Contains(ev.OccurredAt) {
			stamps = append(stamps, ev.OccurredAt)
		}
	}
	active := GapAwareMinutes(stamps, s.idle)

	// Whole-session counts belong to date only when the session started and
	// ended on it. A session spanning days is charged its events here.
	end := sess.EndedAt
	if end.IsZero() {
		end = sess.StartedAt
	}
	if window.Contains(sess.StartedAt) && window.Contains(end) {
		if sess.MessageCount == 0 && active == 0 {
			return DaySession{}, false
		}
		return DaySession{Session: sess, MessageCount: sess.MessageCount, ActiveMinutes: active}, true
	}
	if active == 0 {
		return DaySession{}, false
	}
	return DaySession{Session: sess, MessageCount: len(stamps), ActiveMinutes: active}, true
}
