package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/rpggio/captime/internal/llm"

type gatewayMetrics struct {
	attempts metric.Int64Counter
	latency  metric.Float64Histogram
}

func newGatewayMetrics(mp metric.MeterProvider) *gatewayMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	// Instrument errors only occur for invalid names; a nil instrument is
	// skipped in observe.
	attempts, _ := meter.Int64Counter("captime.llm.attempts",
		metric.WithDescription("Model attempts by outcome"))
	latency, _ := meter.Float64Histogram("captime.llm.latency",
		metric.WithDescription("Model attempt latency"),
		metric.WithUnit("ms"))
	return &gatewayMetrics{attempts: attempts, latency: latency}
}

func (m *gatewayMetrics) observe(ctx context.Context, ev Event, latency time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("event_type", string(ev.EventType)),
		attribute.String("model", ev.ModelID),
		attribute.String("prompt_type", ev.PromptType),
	)
	if m.attempts != nil {
		m.attempts.Add(ctx, 1, attrs)
	}
	if m.latency != nil {
		m.latency.Record(ctx, float64(latency.Microseconds())/1000, attrs)
	}
}
