package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/rpggio/captime/internal/attribution"
	"github.com/rpggio/captime/internal/domain/activity"
	"github.com/rpggio/captime/internal/repository"
)

// CLI is the attributor command line.
type CLI struct {
	Config   string `help:"Path to a YAML config file" type:"path" env:"CAPTIME_CONFIG_PATH"`
	LogLevel string `help:"Log level (debug, info, warn, error); overrides CAPTIME_LOG_LEVEL"`

	Run      RunCmd      `cmd:"" help:"Generate entries for every active developer and fill recent gaps" default:"1"`
	Generate GenerateCmd `cmd:"" help:"Generate entries for one developer and day"`
	Backfill BackfillCmd `cmd:"" help:"Fill days with activity but no entries for one developer"`
	Entries  EntriesCmd  `cmd:"" help:"List a developer's entries for a day"`
	Health   HealthCmd   `cmd:"" help:"Probe the primary model endpoint"`
}

func (c *CLI) configPath() string {
	return c.Config
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func validDate(date string) error {
	if _, err := time.Parse(activity.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	return nil
}

// RunCmd is the scheduled daily job.
type RunCmd struct {
	Date string `help:"Target day (YYYY-MM-DD); defaults to yesterday in the configured time zone"`
}

func (r *RunCmd) Run(cli *CLI, kctx *kong.Context) error {
	c, err := NewContainer(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := signalContext()
	defer cancel()

	date := r.Date
	if date == "" {
		date = c.Engine.Yesterday()
	} else if err := validDate(date); err != nil {
		return err
	}

	started := time.Now()
	res, err := c.Engine.Run(ctx, date)
	c.Logger.Info("run complete",
		"date", res.Date,
		"developers", res.DevelopersProcessed,
		"entries", res.EntriesCreated,
		"backfilled", len(res.Backfilled),
		"errors", len(res.Errors),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	logModelMetrics(ctx, c.Logger, c.Metrics)
	if err != nil {
		return err
	}

	fmt.Fprintf(kctx.Stdout, "%s: %d developer(s), %d entr(ies) created\n", res.Date, res.DevelopersProcessed, res.EntriesCreated)
	for _, b := range res.Backfilled {
		fmt.Fprintf(kctx.Stdout, "  backfilled %s\n", b)
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			fmt.Fprintf(kctx.Stderr, "  failed %s\n", e)
		}
		return fmt.Errorf("%d developer-day(s) failed", len(res.Errors))
	}
	return nil
}

// GenerateCmd generates one developer-day on demand.
type GenerateCmd struct {
	Developer string `arg:"" help:"Developer ID"`
	Date      string `arg:"" optional:"" help:"Target day (YYYY-MM-DD); defaults to yesterday"`
}

func (g *GenerateCmd) Run(cli *CLI, kctx *kong.Context) error {
	c, err := NewContainer(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := signalContext()
	defer cancel()

	date := g.Date
	if date == "" {
		date = c.Engine.Yesterday()
	} else if err := validDate(date); err != nil {
		return err
	}

	dev, err := c.Developers.Get(ctx, g.Developer)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("developer %q not found", g.Developer)
		}
		return err
	}

	day, err := c.Engine.GenerateForDate(ctx, *dev, date)
	if err != nil {
		return err
	}
	printDay(kctx, day)
	return nil
}

// BackfillCmd sweeps one developer's recent days.
type BackfillCmd struct {
	Developer string `arg:"" help:"Developer ID"`
	Days      int    `help:"How many days before the reference day to sweep" default:"7"`
	Date      string `help:"Reference day (YYYY-MM-DD); defaults to today"`
}

func (b *BackfillCmd) Run(cli *CLI, kctx *kong.Context) error {
	c, err := NewContainer(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := signalContext()
	defer cancel()

	date := b.Date
	if date == "" {
		loc, _ := c.Config.Location()
		date = time.Now().In(loc).Format(activity.DateLayout)
	} else if err := validDate(date); err != nil {
		return err
	}

	dev, err := c.Developers.Get(ctx, b.Developer)
	if err != nil {
		return err
	}

	days, err := c.Engine.Backfill(ctx, *dev, date, b.Days)
	for _, day := range days {
		printDay(kctx, day)
	}
	return err
}

// EntriesCmd lists stored entries.
type EntriesCmd struct {
	Developer string `arg:"" help:"Developer ID"`
	Date      string `arg:"" help:"Day (YYYY-MM-DD)"`
}

func (e *EntriesCmd) Run(cli *CLI, kctx *kong.Context) error {
	if err := validDate(e.Date); err != nil {
		return err
	}
	c, err := NewContainer(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	entries, err := c.Entries.ListByDate(context.Background(), e.Developer, e.Date)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(kctx.Stdout, "no entries")
		return nil
	}
	for _, en := range entries {
		flag := ""
		if en.OutlierFlag != nil {
			flag = " [" + *en.OutlierFlag + "]"
		}
		fmt.Fprintf(kctx.Stdout, "%s  %-24s %5.2fh  %-9s %-13s %s%s\n",
			en.ID, en.ProjectName, en.HoursEstimated, en.Status, en.WorkType, en.ModelUsed, flag)
		if en.FlagReason != "" {
			fmt.Fprintf(kctx.Stdout, "    %s\n", en.FlagReason)
		}
	}
	return nil
}

// HealthCmd checks the primary model.
type HealthCmd struct{}

func (h *HealthCmd) Run(cli *CLI, kctx *kong.Context) error {
	c, err := NewContainer(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Gateway.Health(ctx); err != nil {
		return fmt.Errorf("primary model unhealthy: %w", err)
	}
	fmt.Fprintf(kctx.Stdout, "ok %s\n", c.Config.LLM.Model)
	return nil
}

func printDay(kctx *kong.Context, day attribution.DayResult) {
	if day.Skipped != attribution.SkipNone {
		fmt.Fprintf(kctx.Stdout, "%s %s: skipped (%s)\n", day.DeveloperID, day.Date, strings.ReplaceAll(string(day.Skipped), "_", " "))
		return
	}
	model := day.ModelUsed
	if day.Fallback {
		model += " (fallback)"
	}
	fmt.Fprintf(kctx.Stdout, "%s %s: %d entr(ies) via %s\n", day.DeveloperID, day.Date, len(day.Entries), model)
	guards := make(map[string]string, len(day.Decisions))
	for _, d := range day.Decisions {
		guards[d.EntryID] = d.Guard
	}
	for _, en := range day.Entries {
		fmt.Fprintf(kctx.Stdout, "  %-24s %5.2fh  %-8s %s\n", en.ProjectName, en.HoursEstimated, en.Status, guards[en.ID])
	}
}
