package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/rpggio/captime/internal/attribution"
	"github.com/rpggio/captime/internal/classify"
	"github.com/rpggio/captime/internal/config"
	"github.com/rpggio/captime/internal/domain/activity"
	"github.com/rpggio/captime/internal/domain/project"
	"github.com/rpggio/captime/internal/llm"
	"github.com/rpggio/captime/internal/sqlite"
)

// Container holds the wired pipeline for one command invocation.
type Container struct {
	Config     config.Config
	Logger     *slog.Logger
	DB         *sqlite.DB
	Developers *sqlite.DeveloperRepository
	Entries    *sqlite.EntryRepository
	Periods    *sqlite.PeriodRepository
	Gateway    *llm.Gateway
	Engine     *attribution.Engine
	Metrics    *sdkmetric.ManualReader

	closers []func() error
}

// NewContainer loads configuration, opens the database and wires the
// attribution engine.
func NewContainer(cli *CLI) (*Container, error) {
	cfg, err := config.LoadFrom(cli.configPath())
	if err != nil {
		return nil, err
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}

	c := &Container{Config: cfg}

	logWriter := io.Writer(os.Stderr)
	if cfg.Log.Path != "" {
		fileWriter, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			c.closers = append(c.closers, fileWriter.Close)
			logWriter = fileWriter
		}
	}
	c.Logger = slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		c.Close()
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.DB = db
	c.closers = append(c.closers, db.Close)

	if err := db.RunMigrations(); err != nil {
		c.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Developers = sqlite.NewDeveloperRepository(db)
	c.Entries = sqlite.NewEntryRepository(db)
	c.Periods = sqlite.NewPeriodRepository(db)
	projectRepo := sqlite.NewProjectRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	eventRepo := sqlite.NewModelEventRepository(db)

	c.Metrics = sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(c.Metrics))
	c.closers = append(c.closers, func() error {
		return meterProvider.Shutdown(context.Background())
	})

	var primary llm.Provider
	if cfg.LLM.Enabled {
		primary = llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKey)
	}
	fallback := llm.NewAnthropicClient(cfg.Fallback.APIKey, cfg.Fallback.BaseURL, cfg.Fallback.Model)
	c.Gateway = llm.NewGateway(primary, fallback, eventRepo, llm.Config{
		PrimaryEnabled: cfg.LLM.Enabled,
		MaxAttempts:    cfg.LLM.MaxRetries,
		RetryDelay:     cfg.LLM.RetryDelay,
		AttemptTimeout: cfg.LLM.Timeout,
	}, c.Logger, llm.WithMeterProvider(meterProvider))
	// Pending telemetry must land before the database closes.
	c.closers = append(c.closers, func() error {
		c.Gateway.Flush()
		return nil
	})

	engine, err := attribution.NewEngine(attribution.Deps{
		Developers: c.Developers,
		Projects:   project.NewService(projectRepo, c.Logger),
		Activity:   activity.NewService(activityRepo, c.Logger),
		Entries:    c.Entries,
		Periods:    c.Periods,
		Model:      c.Gateway,
		Classifier: classify.NewClassifier(c.Gateway, c.Logger),
	}, attribution.Config{
		Location:          loc,
		BackfillDays:      cfg.Pipeline.BackfillDays,
		DeveloperInterval: cfg.Pipeline.DeveloperInterval,
	}, c.Logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Engine = engine
	return c, nil
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
