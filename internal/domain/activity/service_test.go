package activity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/captime/internal/domain/activity"
	"github.com/rpggio/captime/internal/repository/mocks"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestActivityService_GatherDay(t *testing.T) {
	ctx := context.Background()
	window, err := activity.DayWindow("2026-03-10", time.UTC)
	require.NoError(t, err)

	sessions := []activity.Session{
		{
			ID: "s-split", StartedAt: at(9, 0), EndedAt: at(11, 0), MessageCount: 40,
			Days: []activity.DaySlice{
				{Date: "2026-03-09", MessageCount: 30, ActiveMinutes: 90},
				{Date: "2026-03-10", MessageCount: 10, ActiveMinutes: 45, Prompts: []activity.Prompt{{At: at(9, 5), Text: "fix the flaky test"}}},
			},
		},
		{
			ID: "s-idle", StartedAt: at(12, 0), EndedAt: at(12, 30), MessageCount: 5,
			Days: []activity.DaySlice{{Date: "2026-03-10"}},
		},
	}
	commits := []activity.Commit{
		{ID: "c2", SHA: "bbb", CommittedAt: at(15, 0)},
		{ID: "c1", SHA: "aaa", CommittedAt: at(10, 0)},
	}

	repo := &mocks.ActivityRepository{}
	repo.On("SessionsOverlapping", ctx, "dev1", window.Start, window.End).Return(sessions, nil)
	repo.On("CommitsBetween", ctx, "dev1", window.Start, window.End).Return(commits, nil)
	repo.On("ToolEventsBetween", ctx, "dev1", window.Start, window.End).Return([]activity.ToolEvent{}, nil)

	svc := activity.NewService(repo, nil)
	day, err := svc.GatherDay(ctx, "dev1", "2026-03-10", window)
	require.NoError(t, err)

	require.Len(t, day.Sessions, 1)
	require.Equal(t, "s-split", day.Sessions[0].Session.ID)
	require.Equal(t, 10, day.Sessions[0].MessageCount)
	require.Equal(t, 45.0, day.Sessions[0].ActiveMinutes)
	require.Len(t, day.Sessions[0].Prompts, 1)
	require.Equal(t, "aaa", day.Commits[0].SHA)
	require.Equal(t, 45.0, day.ActiveMinutes())
	require.False(t, day.Empty())
	repo.AssertExpectations(t)
}

func TestActivityService_GatherDayDerivesActiveTimeFromEvents(t *testing.T) {
	ctx := context.Background()
	window, err := activity.DayWindow("2026-03-10", time.UTC)
	require.NoError(t, err)

	sessions := []activity.Session{{ID: "s1", StartedAt: at(9, 0), EndedAt: at(10, 0), MessageCount: 6}}
	events := []activity.ToolEvent{
		{SessionID: "s1", ToolName: activity.ToolEdit, OccurredAt: at(9, 0)},
		{SessionID: "s1", ToolName: activity.ToolBash, OccurredAt: at(9, 10)},
		{SessionID: "s1", ToolName: activity.ToolRead, OccurredAt: at(9, 50)},
		{SessionID: "other", ToolName: activity.ToolRead, OccurredAt: at(9, 55)},
	}

	repo := &mocks.ActivityRepository{}
	repo.On("SessionsOverlapping", ctx, "dev1", window.Start, window.End).Return(sessions, nil)
	repo.On("CommitsBetween", ctx, "dev1", window.Start, window.End).Return([]activity.Commit{}, nil)
	repo.On("ToolEventsBetween", ctx, "dev1", window.Start, window.End).Return(events, nil)

	day, err := activity.NewService(repo, nil).GatherDay(ctx, "dev1", "2026-03-10", window)
	require.NoError(t, err)
	require.Len(t, day.Sessions, 1)
	require.Equal(t, 6, day.Sessions[0].MessageCount)
	// The 40 minute gap is a break.
	require.Equal(t, 10.0, day.Sessions[0].ActiveMinutes)
	require.Len(t, day.ToolEvents, 4)
}

func TestActivityService_GatherDayMultiDaySessionWithoutBreakdown(t *testing.T) {
	ctx := context.Background()
	window, err := activity.DayWindow("2026-03-10", time.UTC)
	require.NoError(t, err)

	long := activity.Session{
		ID:           "s-long",
		StartedAt:    time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC),
		EndedAt:      time.Date(2026, 3, 11, 17, 0, 0, 0, time.UTC),
		MessageCount: 120,
	}

	repo := &mocks.ActivityRepository{}
	repo.On("SessionsOverlapping", ctx, "dev1", window.Start, window.End).Return([]activity.Session{long}, nil)
	repo.On("CommitsBetween", ctx, "dev1", window.Start, window.End).Return([]activity.Commit{}, nil)
	repo.On("ToolEventsBetween", ctx, "dev1", window.Start, window.End).Return([]activity.ToolEvent{}, nil).Once()

	svc := activity.NewService(repo, nil)
	day, err := svc.GatherDay(ctx, "dev1", "2026-03-10", window)
	require.NoError(t, err)
	require.Empty(t, day.Sessions)
	require.True(t, day.Empty())

	// Events on the day charge only those events, not the whole session.
	events := []activity.ToolEvent{
		{SessionID: "s-long", ToolName: activity.ToolEdit, OccurredAt: at(14, 0)},
		{SessionID: "s-long", ToolName: activity.ToolBash, OccurredAt: at(14, 6)},
	}
	repo.On("ToolEventsBetween", ctx, "dev1", window.Start, window.End).Return(events, nil)

	day, err = svc.GatherDay(ctx, "dev1", "2026-03-10", window)
	require.NoError(t, err)
	require.Len(t, day.Sessions, 1)
	require.Equal(t, 2, day.Sessions[0].MessageCount)
	require.Equal(t, 6.0, day.Sessions[0].ActiveMinutes)
}

func TestActivityService_GatherDayEmpty(t *testing.T) {
	ctx := context.Background()
	window, err := activity.DayWindow("2026-03-10", time.UTC)
	require.NoError(t, err)

	repo := &mocks.ActivityRepository{}
	repo.On("SessionsOverlapping", ctx, "dev1", window.Start, window.End).
		Return([]activity.Session{{ID: "quiet", StartedAt: at(9, 0)}}, nil)
	repo.On("CommitsBetween", ctx, "dev1", window.Start, window.End).Return([]activity.Commit{}, nil)
	repo.On("ToolEventsBetween", ctx, "dev1", window.Start, window.End).Return([]activity.ToolEvent{}, nil)

	day, err := activity.NewService(repo, nil).GatherDay(ctx, "dev1", "2026-03-10", window)
	require.NoError(t, err)
	require.True(t, day.Empty())
}

func TestActivityService_GatherDayRepositoryError(t *testing.T) {
	ctx := context.Background()
	window, err := activity.DayWindow("2026-03-10", time.UTC)
	require.NoError(t, err)

	boom := errors.New("disk gone")
	repo := &mocks.ActivityRepository{}
	repo.On("SessionsOverlapping", ctx, "dev1", window.Start, window.End).Return(nil, boom)

	_, err = activity.NewService(repo, nil).GatherDay(ctx, "dev1", "2026-03-10", window)
	require.ErrorIs(t, err, boom)
}

func TestGapAwareMinutes(t *testing.T) {
	require.Zero(t, activity.GapAwareMinutes(nil, activity.DefaultIdleThreshold))
	require.Zero(t, activity.GapAwareMinutes([]time.Time{at(9, 0)}, activity.DefaultIdleThreshold))

	stamps := []time.Time{at(9, 20), at(9, 0), at(9, 5), at(10, 0)}
	require.Equal(t, 20.0, activity.GapAwareMinutes(stamps, activity.DefaultIdleThreshold))
}

func TestDayWindow(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	w, err := activity.DayWindow("2026-03-10", loc)
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, w.End.Sub(w.Start))
	require.True(t, w.Contains(time.Date(2026, 3, 10, 23, 59, 0, 0, loc)))
	require.False(t, w.Contains(time.Date(2026, 3, 11, 0, 0, 0, 0, loc)))
	require.True(t, w.Overlaps(time.Date(2026, 3, 9, 22, 0, 0, 0, loc), time.Date(2026, 3, 10, 1, 0, 0, 0, loc)))
	require.False(t, w.Overlaps(time.Date(2026, 3, 9, 22, 0, 0, 0, loc), time.Date(2026, 3, 9, 23, 0, 0, 0, loc)))

	// Spring-forward day is 23 hours long.
	dst, err := activity.DayWindow("2026-03-08", loc)
	require.NoError(t, err)
	require.Equal(t, 23*time.Hour, dst.End.Sub(dst.Start))

	_, err = activity.DayWindow("03/10/2026", loc)
	require.Error(t, err)
}
