package attribution_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rpggio/captime/internal/attribution"
	"github.com/rpggio/captime/internal/classify"
	"github.com/rpggio/captime/internal/domain/activity"
	"github.com/rpggio/captime/internal/domain/developer"
	"github.com/rpggio/captime/internal/domain/entry"
	"github.com/rpggio/captime/internal/domain/period"
	"github.com/rpggio/captime/internal/domain/project"
	"github.com/rpggio/captime/internal/llm"
	"github.com/rpggio/captime/internal/repository"
	"github.com/rpggio/captime/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testDate = "2026-03-10"

var (
	billing = project.Project{
		ID: "p-billing", Name: "Billing", Phase: project.PhaseApplicationDevelopment, Status: project.StatusActive,
		ManagementAuthorized: true, ProbableToComplete: true, RepoPaths: []string{"/src/billing"},
	}
	legacy = project.Project{
		ID: "p-legacy", Name: "Legacy Portal", Phase: project.PhasePostImplementation, Status: project.StatusActive,
		PathPairs: []project.PathPair{{LocalPath: "/src/legacy", ClaudePath: "/home/dev/legacy"}},
	}
	docsSite = project.Project{
		ID: "p-docs", Name: "Docs Site", Phase: project.PhaseApplicationDevelopment, Status: project.StatusActive,
		RepoPaths: []string{"/src/docs"},
	}
	dev = developer.Developer{ID: "dev1", Name: "Sam", AdjustmentFactor: 1.25, Active: true}
)

type fakeModel struct {
	text     string
	err      error
	fallback bool
	calls    int
	prompt   string
	opts     llm.Options
}

func (f *fakeModel) Complete(ctx context.Context, prompt string, opts llm.Options) (llm.Result, error) {
	f.calls++
	f.prompt, f.opts = prompt, opts
	if f.err != nil {
		return llm.Result{}, f.err
	}
	if opts.Validate != nil {
		if err := opts.Validate(f.text); err != nil {
			return llm.Result{}, fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
		}
	}
	model := "qwen3:14b"
	if f.fallback {
		model = "claude-haiku"
	}
	return llm.Result{Text: f.text, ModelUsed: model, Fallback: f.fallback}, nil
}

type fixture struct {
	devs     *mocks.DeveloperRepository
	projects *mocks.ProjectRepository
	activity *mocks.ActivityRepository
	entries  *mocks.EntryRepository
	periods  *mocks.PeriodChecker
	model    *fakeModel
	engine   *attribution.Engine
	created  []*entry.DailyEntry
}

func newFixture(t *testing.T, modelText string) *fixture {
	t.Helper()
	f := &fixture{
		devs:     &mocks.DeveloperRepository{},
		projects: &mocks.ProjectRepository{},
		activity: &mocks.ActivityRepository{},
		entries:  &mocks.EntryRepository{},
		periods:  &mocks.PeriodChecker{},
		model:    &fakeModel{text: modelText},
	}
	f.projects.On("ListActive", mock.Anything).Return([]project.Project{billing, legacy, docsSite}, nil).Maybe()
	f.periods.On("StatusFor", mock.Anything, mock.Anything).Return(period.StatusOpen, nil).Maybe()

	engine, err := attribution.NewEngine(attribution.Deps{
		Developers: f.devs,
		Projects:   project.NewService(f.projects, nil),
		Activity:   activity.NewService(f.activity, nil),
		Entries:    f.entries,
		Periods:    f.periods,
		Model:      f.model,
		Classifier: classify.NewClassifier(nil, nil),
	}, attribution.Config{Location: time.UTC}, nil)
	require.NoError(t, err)
	f.engine = engine
	return f
}

func (f *fixture) expectDay(t *testing.T, date string, sessions []activity.Session, commits []activity.Commit, events []activity.ToolEvent) {
	t.Helper()
	w, err := activity.DayWindow(date, time.UTC)
	require.NoError(t, err)
	f.activity.On("SessionsOverlapping", mock.Anything, dev.ID, w.Start, w.End).Return(sessions, nil)
	f.activity.On("CommitsBetween", mock.Anything, dev.ID, w.Start, w.End).Return(commits, nil)
	f.activity.On("ToolEventsBetween", mock.Anything, dev.ID, w.Start, w.End).Return(events, nil)
}

func (f *fixture) expectFresh(date string) {
	f.entries.On("ExistsForDate", mock.Anything, dev.ID, date).Return(false, nil)
}

func (f *fixture) expectHistory(h []entry.HistoricalEntry) {
	f.entries.On("ListHistory", mock.Anything, dev.ID, mock.Anything, mock.Anything).Return(h, nil)
}

func (f *fixture) expectCreate() {
	f.entries.On("CreateAll", mock.Anything, mock.AnythingOfType("[]entry.DailyEntry")).
		Run(func(args mock.Arguments) {
			batch := args.Get(1).([]entry.DailyEntry)
			for i := range batch {
				f.created = append(f.created, &batch[i])
			}
		}).Return(nil)
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func billingSession() activity.Session {
	return activity.Session{
		ID: "s1", DeveloperID: dev.ID, ProjectPath: "/src/billing",
		StartedAt: at(9, 0), EndedAt: at(12, 0),
		ToolCounts: map[string]int{"Edit": 10, "Read": 5},
		Days: []activity.DaySlice{{
			Date: testDate, MessageCount: 24, ActiveMinutes: 150,
			Prompts: []activity.Prompt{{At: at(9, 5), Text: "add CSV export to invoices"}},
		}},
	}
}

func billingCommit() activity.Commit {
	return activity.Commit{ID: "c1", DeveloperID: dev.ID, RepoPath: "/src/billing", SHA: "abc123def456", Message: "add invoice export", CommittedAt: at(11, 30), LinesAdded: 120, LinesDeleted: 4}
}

func steadyHistory() []entry.HistoricalEntry {
	var h []entry.HistoricalEntry
	for i, v := range []float64{3, 4, 3, 4, 3} {
		hours := v
		h = append(h, entry.HistoricalEntry{Date: fmt.Sprintf("2026-03-0%d", i+1), ConfirmedHours: &hours})
	}
	return h
}

func TestGenerateForDate_PendingEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[{"projectId":"p-billing","projectName":"Billing","summary":"Invoice CSV export","hoursEstimate":3,"confidence":0.85,"reasoning":"session and commit in billing"}]`)
	f.expectFresh(testDate)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, []activity.Commit{billingCommit()}, nil)
	f.entries.On("ListHistory", mock.Anything, dev.ID, "2026-02-08", "2026-03-09").Return(steadyHistory(), nil)
	f.expectCreate()

	res, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Equal(t, attribution.SkipNone, res.Skipped)
	require.Len(t, res.Entries, 1)
	require.Len(t, f.created, 1)

	e := f.created[0]
	require.Equal(t, entry.StatusPending, e.Status)
	require.NotNil(t, e.ProjectID)
	require.Equal(t, "p-billing", *e.ProjectID)
	require.Equal(t, "Billing", e.ProjectName)
	require.Equal(t, string(project.PhaseApplicationDevelopment), e.Phase)
	require.Equal(t, 3.0, e.HoursRaw)
	require.Equal(t, 3.75, e.HoursEstimated)
	require.Equal(t, "qwen3:14b", e.ModelUsed)
	require.False(t, e.Fallback)
	require.Equal(t, string(classify.WorkCoding), e.WorkType)
	require.Nil(t, e.OutlierFlag)
	require.Equal(t, attribution.GuardAccepted, res.Decisions[0].Guard)

	require.Equal(t, 1, f.model.calls)
	require.Equal(t, llm.PromptDailyEntry, f.model.opts.PromptType)
	require.True(t, f.model.opts.JSONMode)
	require.Equal(t, testDate, f.model.opts.TargetDate)
	require.Contains(t, f.model.prompt, "add CSV export to invoices")
	require.Contains(t, f.model.prompt, "Billing (p-billing)")
	f.entries.AssertExpectations(t)
}

func TestGenerateForDate_ZeroEvidenceDropsProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[{"projectId":"p-docs","projectName":"Docs Site","summary":"Wrote docs","hoursEstimate":2,"confidence":0.9}]`)
	f.expectFresh(testDate)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, []activity.Commit{billingCommit()}, nil)
	f.expectHistory(nil)
	f.expectCreate()

	res, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Len(t, f.created, 1)

	e := f.created[0]
	require.Equal(t, entry.StatusFlagged, e.Status)
	require.Nil(t, e.ProjectID)
	require.Empty(t, e.Phase)
	require.Contains(t, e.FlagReason, "Docs Site")
	require.Equal(t, attribution.GuardNoEvidence, res.Decisions[0].Guard)
}

func TestGenerateForDate_UnmatchedProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{"entries":[
		{"projectId":null,"projectName":"Side work","summary":"Misc","hoursEstimate":1,"confidence":0.4},
		{"projectId":"p-gone","projectName":"Removed","summary":"Old repo","hoursEstimate":1,"confidence":0.5}
	]}`)
	f.expectFresh(testDate)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, nil, nil)
	f.expectHistory(nil)
	f.expectCreate()

	res, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Len(t, f.created, 2)
	for i, e := range f.created {
		require.Equal(t, entry.StatusFlagged, e.Status)
		require.Nil(t, e.ProjectID)
		require.Equal(t, attribution.GuardUnmatched, res.Decisions[i].Guard)
	}
	require.Contains(t, f.created[1].FlagReason, "p-gone")
}

func TestGenerateForDate_MinimalActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[{"projectId":"p-legacy","projectName":"Legacy Portal","summary":"Looked at a ticket","hoursEstimate":0.5,"confidence":0.6}]`)
	f.expectFresh(testDate)
	idle := activity.Session{
		ID: "s2", DeveloperID: dev.ID, ProjectPath: "/home/dev/legacy",
		Days: []activity.DaySlice{{Date: testDate, MessageCount: 2, ActiveMinutes: 3}},
	}
	f.expectDay(t, testDate, []activity.Session{idle}, nil, nil)
	f.expectHistory(nil)
	f.expectCreate()

	_, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Len(t, f.created, 1)

	e := f.created[0]
	require.Equal(t, entry.StatusFlagged, e.Status)
	require.NotNil(t, e.ProjectID)
	require.Equal(t, "p-legacy", *e.ProjectID)
	require.NotNil(t, e.OutlierFlag)
	require.Equal(t, entry.OutlierLowActivity, *e.OutlierFlag)
}

func TestGenerateForDate_EnhancementSignal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "```json\n"+`[{"projectId":"p-legacy","projectName":"Legacy Portal","summary":"New reporting module","hoursEstimate":4,"confidence":0.8,"phaseSuggestion":"application_development"}]`+"\n```")
	f.expectFresh(testDate)
	commit := activity.Commit{ID: "c2", DeveloperID: dev.ID, RepoPath: "/src/legacy", Message: "add reporting module", CommittedAt: at(14, 0)}
	f.expectDay(t, testDate, nil, []activity.Commit{commit}, nil)
	f.expectHistory(steadyHistory())
	f.expectCreate()

	res, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Len(t, f.created, 1)

	e := f.created[0]
	require.Equal(t, entry.StatusFlagged, e.Status)
	require.Equal(t, string(project.PhasePostImplementation), e.Phase)
	require.Contains(t, e.FlagReason, "enhancement")
	require.Equal(t, attribution.GuardEnhancement, res.Decisions[0].Guard)
}

func TestGenerateForDate_StatisticalOutlier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[{"projectId":"p-billing","projectName":"Billing","summary":"Marathon","hoursEstimate":12,"confidence":0.7}]`)
	f.expectFresh(testDate)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, []activity.Commit{billingCommit()}, nil)
	var h []entry.HistoricalEntry
	for i, v := range []float64{3, 4, 3, 4, 5, 4, 3, 4, 5, 4} {
		hours := v
		h = append(h, entry.HistoricalEntry{Date: fmt.Sprintf("2026-02-%02d", i+10), ConfirmedHours: &hours})
	}
	f.expectHistory(h)
	f.expectCreate()

	_, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	e := f.created[0]
	require.Equal(t, entry.StatusFlagged, e.Status)
	require.NotNil(t, e.OutlierFlag)
	require.Equal(t, entry.OutlierStatistical, *e.OutlierFlag)
	require.Contains(t, e.FlagReason, "standard deviations")
	require.Greater(t, e.ZScore, 2.0)
}

func TestGenerateForDate_MergesSameProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[
		{"projectId":"p-billing","projectName":"Billing","summary":"Export","hoursEstimate":2,"confidence":0.8},
		{"projectId":"p-billing","projectName":"Billing","summary":"Review","hoursEstimate":1.5,"confidence":0.6}
	]`)
	f.expectFresh(testDate)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, []activity.Commit{billingCommit()}, nil)
	f.expectHistory(steadyHistory())
	f.expectCreate()

	_, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Len(t, f.created, 1)
	require.Equal(t, 3.5, f.created[0].HoursRaw)
	require.Equal(t, "Export; Review", f.created[0].Summary)
}

func TestGenerateForDate_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[{"projectId":"p-billing","projectName":"Billing","summary":"Export","hoursEstimate":3,"confidence":0.8}]`)
	f.entries.On("ExistsForDate", mock.Anything, dev.ID, testDate).Return(false, nil).Once()
	f.entries.On("ExistsForDate", mock.Anything, dev.ID, testDate).Return(true, nil)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, []activity.Commit{billingCommit()}, nil)
	f.expectHistory(steadyHistory())
	f.expectCreate()

	first, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)

	second, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Equal(t, attribution.SkipAlreadyGenerated, second.Skipped)
	require.Empty(t, second.Entries)

	require.Equal(t, 1, f.model.calls)
	f.entries.AssertNumberOfCalls(t, "CreateAll", 1)
}

func TestGenerateForDate_ConcurrentWriterWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[{"projectId":"p-billing","projectName":"Billing","summary":"Export","hoursEstimate":3,"confidence":0.8}]`)
	f.expectFresh(testDate)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, nil, nil)
	f.expectHistory(nil)
	f.entries.On("CreateAll", mock.Anything, mock.Anything).Return(repository.ErrConflict)

	res, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Equal(t, attribution.SkipAlreadyGenerated, res.Skipped)
	require.Empty(t, res.Entries)
}

func TestGenerateForDate_FailedWriteLeavesDayOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[
		{"projectId":"p-billing","projectName":"Billing","summary":"Export","hoursEstimate":3,"confidence":0.8},
		{"projectId":null,"projectName":"Side work","summary":"Misc","hoursEstimate":1,"confidence":0.4}
	]`)
	f.expectFresh(testDate)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, []activity.Commit{billingCommit()}, nil)
	f.expectHistory(nil)
	f.entries.On("CreateAll", mock.Anything, mock.Anything).Return(errors.New("database is locked")).Once()
	f.expectCreate()

	first, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.ErrorContains(t, err, "database is locked")
	require.Empty(t, first.Entries)
	require.Empty(t, f.created)

	// Nothing was stored, so the retry regenerates the full day.
	second, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Equal(t, attribution.SkipNone, second.Skipped)
	require.Len(t, second.Entries, 2)
	require.Len(t, f.created, 2)
	f.entries.AssertNumberOfCalls(t, "CreateAll", 2)
}

func TestGenerateForDate_LockedPeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "[]")
	f.periods.ExpectedCalls = nil
	f.periods.On("StatusFor", mock.Anything, testDate).Return(period.StatusLocked, nil)
	f.expectFresh(testDate)

	res, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Equal(t, attribution.SkipPeriodLocked, res.Skipped)
	require.Zero(t, f.model.calls)
	f.activity.AssertNotCalled(t, "SessionsOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateForDate_SoftCloseProceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[{"projectId":"p-billing","projectName":"Billing","summary":"Export","hoursEstimate":3,"confidence":0.8}]`)
	f.periods.ExpectedCalls = nil
	f.periods.On("StatusFor", mock.Anything, testDate).Return(period.StatusSoftClose, nil)
	f.expectFresh(testDate)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, []activity.Commit{billingCommit()}, nil)
	f.expectHistory(nil)
	f.expectCreate()

	res, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
}

func TestGenerateForDate_NoActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "[]")
	f.expectFresh(testDate)
	otherDay := activity.Session{
		ID: "s3", DeveloperID: dev.ID, ProjectPath: "/src/billing",
		Days: []activity.DaySlice{
			{Date: "2026-03-09", MessageCount: 40, ActiveMinutes: 200},
			{Date: testDate, MessageCount: 0, ActiveMinutes: 0},
		},
	}
	f.expectDay(t, testDate, []activity.Session{otherDay}, nil, nil)

	res, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.Equal(t, attribution.SkipNoActivity, res.Skipped)
	require.Zero(t, f.model.calls)
}

func TestGenerateForDate_ModelUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{"hours": "lots"}`)
	f.expectFresh(testDate)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, nil, nil)

	_, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.ErrorIs(t, err, llm.ErrUnavailable)
	f.entries.AssertNotCalled(t, "CreateAll", mock.Anything, mock.Anything)
}

func TestGenerateForDate_RecordsFallbackProvenance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[{"projectId":"p-billing","projectName":"Billing","summary":"Export","hoursEstimate":3,"confidence":0.8}]`)
	f.model.fallback = true
	f.expectFresh(testDate)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, []activity.Commit{billingCommit()}, nil)
	f.expectHistory(nil)
	f.expectCreate()

	res, err := f.engine.GenerateForDate(ctx, dev, testDate)
	require.NoError(t, err)
	require.True(t, res.Fallback)
	require.True(t, f.created[0].Fallback)
	require.Equal(t, "claude-haiku", f.created[0].ModelUsed)
}

func TestRun_CollectsPerDeveloperErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[{"projectId":"p-billing","projectName":"Billing","summary":"Export","hoursEstimate":3,"confidence":0.8}]`)
	broken := developer.Developer{ID: "dev0", Active: true}
	f.devs.On("ListActive", mock.Anything).Return([]developer.Developer{broken, dev}, nil)
	f.entries.On("ExistsForDate", mock.Anything, "dev0", testDate).Return(false, errors.New("db locked"))
	f.expectFresh(testDate)
	f.expectDay(t, testDate, []activity.Session{billingSession()}, []activity.Commit{billingCommit()}, nil)
	f.expectHistory(nil)
	f.expectCreate()

	res, err := f.engine.Run(ctx, testDate)
	require.NoError(t, err)
	require.Equal(t, 2, res.DevelopersProcessed)
	require.Equal(t, 1, res.EntriesCreated)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0], "dev0")
	require.Contains(t, res.Errors[0], "db locked")
}

func TestBackfill_FillsGapsOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `[{"projectId":"p-billing","projectName":"Billing","summary":"Export","hoursEstimate":3,"confidence":0.8}]`)

	f.entries.On("ExistsForDate", mock.Anything, dev.ID, "2026-03-09").Return(true, nil)
	f.expectFresh("2026-03-08")
	f.expectFresh("2026-03-07")

	gap := billingSession()
	gap.Days[0].Date = "2026-03-08"
	f.expectDay(t, "2026-03-08", []activity.Session{gap}, nil, nil)
	f.expectDay(t, "2026-03-07", nil, nil, nil)
	f.expectHistory(nil)
	f.expectCreate()

	results, err := f.engine.Backfill(ctx, dev, testDate, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, attribution.SkipAlreadyGenerated, results[0].Skipped)
	require.Len(t, results[1].Entries, 1)
	require.Equal(t, "2026-03-08", results[1].Date)
	require.Equal(t, attribution.SkipNoActivity, results[2].Skipped)
	require.Equal(t, 1, f.model.calls)
}

func TestNewEngine_RequiresDependencies(t *testing.T) {
	_, err := attribution.NewEngine(attribution.Deps{}, attribution.Config{}, nil)
	require.ErrorIs(t, err, attribution.ErrNotConfigured)
}
