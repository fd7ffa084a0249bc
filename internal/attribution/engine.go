// Package attribution turns a developer's daily activity into per-project
// daily entries.
package attribution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rpggio/captime/internal/classify"
	"github.com/rpggio/captime/internal/crossval"
	"github.com/rpggio/captime/internal/domain/activity"
	"github.com/rpggio/captime/internal/domain/developer"
	"github.com/rpggio/captime/internal/domain/entry"
	"github.com/rpggio/captime/internal/domain/period"
	"github.com/rpggio/captime/internal/llm"
	"github.com/rpggio/captime/internal/repository"
)

const (
	// HistoryDays is the trailing window used for cross-validation.
	HistoryDays = 30

	dailyMaxTokens = 4096
)

// SkipReason explains why a day produced no entries.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipAlreadyGenerated SkipReason = "already_generated"
	SkipPeriodLocked     SkipReason = "period_locked"
	SkipNoActivity       SkipReason = "no_activity"
)

// Decision records how one entry's status was reached.
type Decision struct {
	EntryID        string
	Guard          string
	WorkTypeSource classify.Source
}

// DayResult is the outcome of generating one (developer, date).
type DayResult struct {
	DeveloperID string
	Date        string
	Skipped     SkipReason
	Entries     []entry.DailyEntry
	Decisions   []Decision
	ModelUsed   string
	Fallback    bool
}

// RunResult summarizes a daily run.
type RunResult struct {
	Date                string
	EntriesCreated      int
	DevelopersProcessed int
	Backfilled          []string
	Errors              []string
}

// Deps are the engine's collaborators.
type Deps struct {
	Developers developer.Repository
	Projects   ProjectSource
	Activity   ActivitySource
	Entries    entry.Repository
	Periods    period.Checker
	Model      llm.Completer
	Classifier WorkClassifier
}

// Config tunes the engine.
type Config struct {
	Location          *time.Location
	BackfillDays      int
	DeveloperInterval time.Duration
}

// Engine generates daily entries.
type Engine struct {
	deps    Deps
	cfg     Config
	locks   *keyLock
	limiter *rate.Limiter
	now     func() time.Time
	logger  *slog.Logger
}

// NewEngine wires an engine. Model, Classifier and every repository are
// required.
func NewEngine(deps Deps, cfg Config, logger *slog.Logger) (*Engine, error) {
	if deps.Developers == nil || deps.Projects == nil || deps.Activity == nil ||
		deps.Entries == nil || deps.Periods == nil || deps.Model == nil || deps.Classifier == nil {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.BackfillDays < 0 {
		cfg.BackfillDays = 0
	}
	limit := rate.Inf
	if cfg.DeveloperInterval > 0 {
		limit = rate.Every(cfg.DeveloperInterval)
	}
	return &Engine{
		deps:    deps,
		cfg:     cfg,
		locks:   newKeyLock(),
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Yesterday returns the calendar day before now in the engine's location.
func (e *Engine) Yesterday() string {
	return e.now().In(e.cfg.Location).AddDate(0, 0, -1).Format(activity.DateLayout)
}

// GenerateForDate creates the entries for one developer and date. It is a
// no-op when entries already exist, the period is locked, or there was no
// activity.
func (e *Engine) GenerateForDate(ctx context.Context, dev developer.Developer, date string) (DayResult, error) {
	res := DayResult{DeveloperID: dev.ID, Date: date}
	logger := e.logger.With("developer_id", dev.ID, "date", date)

	unlock := e.locks.Lock(dev.ID + "|" + date)
	defer unlock()

	exists, err := e.deps.Entries.ExistsForDate(ctx, dev.ID, date)
	if err != nil {
		return res, fmt.Errorf("checking existing entries: %w", err)
	}
	if exists {
		res.Skipped = SkipAlreadyGenerated
		return res, nil
	}

	status, err := e.deps.Periods.StatusFor(ctx, date)
	if err != nil {
		return res, fmt.Errorf("checking period: %w", err)
	}
	if status == period.StatusLocked {
		logger.Debug("period locked, skipping")
		res.Skipped = SkipPeriodLocked
		return res, nil
	}

	window, err := activity.DayWindow(date, e.cfg.Location)
	if err != nil {
		return res, err
	}
	day, err := e.deps.Activity.GatherDay(ctx, dev.ID, date, window)
	if err != nil {
		return res, fmt.Errorf("gathering activity: %w", err)
	}
	if day.Empty() {
		res.Skipped = SkipNoActivity
		return res, nil
	}

	catalog, err := e.deps.Projects.Catalog(ctx)
	if err != nil {
		return res, err
	}

	completion, err := e.deps.Model.Complete(ctx, buildPrompt(day, catalog), llm.Options{
		PromptType: llm.PromptDailyEntry,
		TargetDate: date,
		MaxTokens:  dailyMaxTokens,
		JSONMode:   true,
		Validate: func(text string) error {
			_, err := DecodeCandidates(text)
			return err
		},
	})
	if err != nil {
		return res, fmt.Errorf("estimating hours: %w", err)
	}
	res.ModelUsed, res.Fallback = completion.ModelUsed, completion.Fallback

	cands, err := DecodeCandidates(completion.Text)
	if err != nil {
		return res, err
	}
	if len(cands) == 0 {
		logger.Warn("model returned no candidates", "model", completion.ModelUsed)
		return res, nil
	}

	history, err := e.history(ctx, dev.ID, date)
	if err != nil {
		return res, err
	}

	items := resolve(cands, catalog)
	subjects, classes, err := e.evaluate(ctx, day, items, history)
	if err != nil {
		return res, err
	}

	created := e.now()
	entries := make([]entry.DailyEntry, 0, len(subjects))
	decisions := make([]Decision, 0, len(subjects))
	for i, s := range subjects {
		v := decide(s)
		de := buildEntry(dev, date, s, v, classes[i], completion, created)
		if err := entry.Validate(&de); err != nil {
			return res, fmt.Errorf("building entry: %w", err)
		}
		entries = append(entries, de)
		decisions = append(decisions, Decision{EntryID: de.ID, Guard: v.guard, WorkTypeSource: classes[i].Source})
	}

	if err := e.deps.Entries.CreateAll(ctx, entries); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			logger.Info("entries written concurrently, skipping")
			res.Skipped = SkipAlreadyGenerated
			return res, nil
		}
		return res, fmt.Errorf("creating entries: %w", err)
	}
	res.Entries, res.Decisions = entries, decisions
	for i, de := range entries {
		logger.Info("entry created",
			"entry_id", de.ID, "status", de.Status, "guard", decisions[i].Guard, "hours", de.HoursEstimated, "model", de.ModelUsed)
	}
	return res, nil
}

// evaluate classifies and cross-validates every candidate concurrently.
func (e *Engine) evaluate(ctx context.Context, day activity.DayActivity, items []resolved, history []entry.HistoricalEntry) ([]subject, []classify.Result, error) {
	subjects := make([]subject, len(items))
	classes := make([]classify.Result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		ev := dayEvidence(day)
		var projectID *string
		projectName := item.ProjectName
		if item.project != nil {
			ev = collectEvidence(day, *item.project)
			projectID = &item.project.ID
			projectName = item.project.Name
		}
		subjects[i] = subject{cand: item, evidence: ev}

		g.Go(func() error {
			classes[i] = e.deps.Classifier.Classify(gctx, ev.classifyInput(item.Summary))
			return gctx.Err()
		})
		g.Go(func() error {
			subjects[i].validation = crossval.Validate(item.HoursEstimate, projectID, projectName, history)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return subjects, classes, nil
}

func (e *Engine) history(ctx context.Context, developerID, date string) ([]entry.HistoricalEntry, error) {
	d, err := time.Parse(activity.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	from := d.AddDate(0, 0, -HistoryDays).Format(activity.DateLayout)
	to := d.AddDate(0, 0, -1).Format(activity.DateLayout)
	history, err := e.deps.Entries.ListHistory(ctx, developerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return history, nil
}

func buildEntry(dev developer.Developer, date string, s subject, v verdict, class classify.Result, completion llm.Result, created time.Time) entry.DailyEntry {
	de := entry.DailyEntry{
		ID:                 uuid.New().String(),
		DeveloperID:        dev.ID,
		Date:               date,
		ProjectName:        s.cand.ProjectName,
		HoursRaw:           s.cand.HoursEstimate,
		HoursEstimated:     roundHours(s.cand.HoursEstimate * dev.Factor()),
		Summary:            s.cand.Summary,
		Reasoning:          s.cand.Reasoning,
		ModelUsed:          completion.ModelUsed,
		Fallback:           completion.Fallback,
		Confidence:         s.cand.Confidence,
		WorkType:           string(class.WorkType),
		WorkTypeConfidence: class.Confidence,
		ZScore:             s.validation.ZScore,
		FlagReason:         v.reason,
		Status:             v.status,
		CreatedAt:          created,
	}
	if p := s.cand.project; p != nil && !v.dropProject {
		id := p.ID
		de.ProjectID = &id
		de.ProjectName = p.Name
		de.Phase = string(p.Phase)
	}
	if v.outlierFlag != "" {
		flag := v.outlierFlag
		de.OutlierFlag = &flag
	}
	return de
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

// Run generates entries for every active developer on date,
// then sweeps the preceding days for gaps. A failing developer is recorded
// and the run continues.
func (e *Engine) Run(ctx context.Context, date string) (RunResult, error) {
	res := RunResult{Date: date}
	devs, err := e.deps.Developers.ListActive(ctx)
	if err != nil {
		return res, fmt.Errorf("listing developers: %w", err)
	}

	for _, dev := range devs {
		if err := e.limiter.Wait(ctx); err != nil {
			return res, err
		}
		res.DevelopersProcessed++

		day, err := e.GenerateForDate(ctx, dev, date)
		if err != nil {
			e.logger.Error("generation failed", "developer_id", dev.ID, "date", date, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("%s %s: %v", dev.ID, date, err))
		}
		res.EntriesCreated += len(day.Entries)

		filled, err := e.Backfill(ctx, dev, date, e.cfg.BackfillDays)
		for _, d := range filled {
			res.EntriesCreated += len(d.Entries)
			if len(d.Entries) > 0 {
				res.Backfilled = append(res.Backfilled, dev.ID+" "+d.Date)
			}
		}
		if err != nil {
			res.Errors = append(res.Errors, splitErrors(err)...)
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}
	return res, nil
}

// Backfill generates entries for each of the days before date that have
// activity but no entries. Days that fail are reported together and do not
// stop the sweep.
func (e *Engine) Backfill(ctx context.Context, dev developer.Developer, date string, days int) ([]DayResult, error) {
	d, err := time.Parse(activity.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	var (
		results []DayResult
		errs    []error
	)
	for i := 1; i <= days; i++ {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		target := d.AddDate(0, 0, -i).Format(activity.DateLayout)
		day, err := e.GenerateForDate(ctx, dev, target)
		if err != nil {
			e.logger.Error("backfill failed", "developer_id", dev.ID, "date", target, "error", err)
			errs = append(errs, fmt.Errorf("%s %s: %w", dev.ID, target, err))
			continue
		}
		if len(day.Entries) > 0 {
			e.logger.Info("backfilled gap", "developer_id", dev.ID, "date", target, "entries", len(day.Entries))
		}
		results = append(results, day)
	}
	return results, errors.Join(errs...)
}

func splitErrors(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
