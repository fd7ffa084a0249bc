package mocks

import (
	"context"
	"time"

	"github.com/rpggio/captime/internal/domain/activity"
	"github.com/rpggio/captime/internal/domain/developer"
	"github.com/rpggio/captime/internal/domain/entry"
	"github.com/rpggio/captime/internal/domain/period"
	"github.com/rpggio/captime/internal/domain/project"
	"github.com/rpggio/captime/internal/llm"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) ListActive(ctx context.Context) ([]project.Project, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// DeveloperRepository is a mock for developer.Repository.
type DeveloperRepository struct {
	mock.Mock
}

func (m *DeveloperRepository) Get(ctx context.Context, id string) (*developer.Developer, error) {
	args := m.Called(ctx, id)
	if dev, ok := args.Get(0).(*developer.Developer); ok {
		return dev, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DeveloperRepository) ListActive(ctx context.Context) ([]developer.Developer, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]developer.Developer); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) SessionsOverlapping(ctx context.Context, developerID string, start, end time.Time) ([]activity.Session, error) {
	args := m.Called(ctx, developerID, start, end)
	if list, ok := args.Get(0).([]activity.Session); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) CommitsBetween(ctx context.Context, developerID string, start, end time.Time) ([]activity.Commit, error) {
	args := m.Called(ctx, developerID, start, end)
	if list, ok := args.Get(0).([]activity.Commit); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) ToolEventsBetween(ctx context.Context, developerID string, start, end time.Time) ([]activity.ToolEvent, error) {
	args := m.Called(ctx, developerID, start, end)
	if list, ok := args.Get(0).([]activity.ToolEvent); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// EntryRepository is a mock for entry.Repository.
type EntryRepository struct {
	mock.Mock
}

func (m *EntryRepository) ExistsForDate(ctx context.Context, developerID, date string) (bool, error) {
	args := m.Called(ctx, developerID, date)
	return args.Bool(0), args.Error(1)
}

func (m *EntryRepository) CreateAll(ctx context.Context, entries []entry.DailyEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *EntryRepository) ListByDate(ctx context.Context, developerID, date string) ([]entry.DailyEntry, error) {
	args := m.Called(ctx, developerID, date)
	if list, ok := args.Get(0).([]entry.DailyEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EntryRepository) ListHistory(ctx context.Context, developerID, fromDate, toDate string) ([]entry.HistoricalEntry, error) {
	args := m.Called(ctx, developerID, fromDate, toDate)
	if list, ok := args.Get(0).([]entry.HistoricalEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// PeriodChecker is a mock for period.Checker.
type PeriodChecker struct {
	mock.Mock
}

func (m *PeriodChecker) StatusFor(ctx context.Context, date string) (period.Status, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(period.Status), args.Error(1)
}

// EventStore is a mock for llm.EventStore.
type EventStore struct {
	mock.Mock
}

func (m *EventStore) Record(ctx context.Context, ev *llm.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *EventStore) RecentTerminal(ctx context.Context, promptType string, limit int) ([]llm.Event, error) {
	args := m.Called(ctx, promptType, limit)
	if list, ok := args.Get(0).([]llm.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
