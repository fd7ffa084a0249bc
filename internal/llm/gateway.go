package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultMaxTokens   = 4096
)

// Config tunes retry and breaker behavior.
type Config struct {
	PrimaryEnabled bool
	MaxAttempts    int
	RetryDelay     time.Duration
	Cooldown       time.Duration
	AttemptTimeout time.Duration
}

// DefaultConfig returns the production retry and breaker settings.
func DefaultConfig() Config {
	return Config{
		PrimaryEnabled: true,
		MaxAttempts:    DefaultMaxAttempts,
		RetryDelay:     DefaultRetryDelay,
		Cooldown:       DefaultCooldown,
		AttemptTimeout: DefaultPrimaryTimeout,
	}
}

// Gateway invokes the primary model with retries behind a circuit breaker
// and falls back to a hosted model. Breaker state is rebuilt from stored
// events on every call, so all processes observe the same state.
type Gateway struct {
	primary  Provider
	fallback Provider
	events   EventStore
	recorder *Recorder
	cfg      Config
	metrics  *gatewayMetrics
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
	logger   *slog.Logger
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithClock overrides the time source.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// WithSleep overrides the delay between attempts.
func WithSleep(sleep func(context.Context, time.Duration) error) GatewayOption {
	return func(g *Gateway) { g.sleep = sleep }
}

// WithMeterProvider sets the OTel meter provider; the global one is used
// otherwise.
func WithMeterProvider(mp metric.MeterProvider) GatewayOption {
	return func(g *Gateway) { g.metrics = newGatewayMetrics(mp) }
}

// NewGateway builds a gateway. primary may be nil, in which case every call
// goes to fallback.
func NewGateway(primary, fallback Provider, events EventStore, cfg Config, logger *slog.Logger, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultPrimaryTimeout
	}
	g := &Gateway{
		primary:  primary,
		fallback: fallback,
		events:   events,
		recorder: NewRecorder(events, logger),
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepContext,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.metrics == nil {
		g.metrics = newGatewayMetrics(nil)
	}
	return g
}

// Flush waits for pending telemetry writes.
func (g *Gateway) Flush() {
	g.recorder.Flush()
}

// Health probes the primary endpoint when it supports it.
func (g *Gateway) Health(ctx context.Context) error {
	if g.primary == nil || !g.cfg.PrimaryEnabled {
		return ErrNotConfigured
	}
	hc, ok := g.primary.(interface{ Health(context.Context) error })
	if !ok {
		return nil
	}
	return hc.Health(ctx)
}

// Complete returns a completion for prompt. Ordinary failures of the
// primary model never surface: they are retried and then routed to the
// fallback model. An error is returned only when the fallback fails too.
func (g *Gateway) Complete(ctx context.Context, prompt string, opts Options) (Result, error) {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if g.primary == nil || !g.cfg.PrimaryEnabled {
		return g.useFallback(ctx, prompt, opts, 0, errors.New(ReasonPrimaryDisabled))
	}

	attempts := g.cfg.MaxAttempts
	switch state := g.breakerState(ctx, opts.PromptType); state {
	case BreakerSkip:
		g.logger.Info("circuit open, skipping primary model", "prompt_type", opts.PromptType)
		return g.useFallback(ctx, prompt, opts, 0, errors.New(ReasonCircuitOpen))
	case BreakerProbe:
		g.logger.Info("probing primary model", "prompt_type", opts.PromptType)
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := g.now()
		comp, text, err := g.attemptPrimary(ctx, prompt, opts)
		latency := g.now().Sub(start)
		if err == nil {
			g.emit(ctx, Event{
				EventType:    EventSuccess,
				ModelID:      g.primary.Model(),
				PromptType:   opts.PromptType,
				TargetDate:   opts.TargetDate,
				LatencyMs:    latency.Milliseconds(),
				InputTokens:  comp.InputTokens,
				OutputTokens: comp.OutputTokens,
			}, latency)
			return Result{
				Text:         text,
				ModelUsed:    g.primary.Model(),
				InputTokens:  comp.InputTokens,
				OutputTokens: comp.OutputTokens,
				RetryCount:   attempt - 1,
			}, nil
		}

		lastErr = err
		g.logger.Warn("primary model attempt failed",
			"prompt_type", opts.PromptType, "attempt", attempt, "max_attempts", attempts, "error", err)
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		g.emit(ctx, Event{
			EventType:  EventRetry,
			ModelID:    g.primary.Model(),
			PromptType: opts.PromptType,
			TargetDate: opts.TargetDate,
			LatencyMs:  latency.Milliseconds(),
			Error:      err.Error(),
		}, latency)
		if err := g.sleep(ctx, g.cfg.RetryDelay); err != nil {
			break
		}
	}
	if ctx.Err() != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
	return g.useFallback(ctx, prompt, opts, attempts, lastErr)
}

func (g *Gateway) attemptPrimary(ctx context.Context, prompt string, opts Options) (Completion, string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout)
	defer cancel()
	comp, err := g.primary.Complete(attemptCtx, prompt, opts.MaxTokens)
	if err != nil {
		return Completion{}, "", err
	}
	text, err := checkOutput(comp.Text, opts)
	if err != nil {
		return Completion{}, "", err
	}
	return comp, text, nil
}

func (g *Gateway) useFallback(ctx context.Context, prompt string, opts Options, failedAttempts int, cause error) (Result, error) {
	if g.fallback == nil {
		return Result{}, fmt.Errorf("%w: no fallback model: %v", ErrUnavailable, cause)
	}
	start := g.now()
	comp, err := g.fallback.Complete(ctx, prompt, opts.MaxTokens)
	var text string
	if err == nil {
		text, err = checkOutput(comp.Text, opts)
	}
	latency := g.now().Sub(start)
	if err != nil {
		g.emit(ctx, Event{
			EventType:  EventError,
			ModelID:    g.fallback.Model(),
			PromptType: opts.PromptType,
			TargetDate: opts.TargetDate,
			LatencyMs:  latency.Milliseconds(),
			Error:      err.Error(),
		}, latency)
		g.logger.Error("fallback model failed", "prompt_type", opts.PromptType, "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ev := Event{
		EventType:    EventFallback,
		ModelID:      g.fallback.Model(),
		PromptType:   opts.PromptType,
		TargetDate:   opts.TargetDate,
		LatencyMs:    latency.Milliseconds(),
		InputTokens:  comp.InputTokens,
		OutputTokens: comp.OutputTokens,
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	g.emit(ctx, ev, latency)
	return Result{
		Text:         text,
		ModelUsed:    g.fallback.Model(),
		Fallback:     true,
		InputTokens:  comp.InputTokens,
		OutputTokens: comp.OutputTokens,
		RetryCount:   failedAttempts,
	}, nil
}

func (g *Gateway) breakerState(ctx context.Context, promptType string) BreakerState {
	if g.events == nil {
		return BreakerNormal
	}
	events, err := g.events.RecentTerminal(ctx, promptType, BreakerWindow)
	if err != nil {
		g.logger.Debug("breaker history unavailable", "prompt_type", promptType, "error", err)
		return BreakerNormal
	}
	return EvaluateBreaker(events, g.now(), g.cfg.Cooldown)
}

func (g *Gateway) emit(ctx context.Context, ev Event, latency time.Duration) {
	ev.CreatedAt = g.now()
	g.metrics.observe(ctx, ev, latency)
	g.recorder.Record(ev)
}

func checkOutput(raw string, opts Options) (string, error) {
	text := CleanResponse(raw)
	if text == "" {
		return "", ErrEmptyResponse
	}
	if opts.JSONMode {
		if _, ok := ExtractJSON(text); !ok {
			return "", ErrMalformedOutput
		}
	}
	if opts.Validate != nil {
		if err := opts.Validate(text); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
	}
	return text, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
