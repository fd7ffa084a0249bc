package main

import (
	"context"
	"log/slog"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// logModelMetrics summarizes model attempts recorded during the run.
func logModelMetrics(ctx context.Context, logger *slog.Logger, reader *sdkmetric.ManualReader) {
	counts, err := attemptCounts(context.WithoutCancel(ctx), reader)
	if err != nil {
		logger.Warn("collecting model metrics", "error", err)
		return
	}
	if len(counts) == 0 {
		return
	}
	args := make([]any, 0, 2*len(counts))
	for eventType, n := range counts {
		args = append(args, eventType, n)
	}
	logger.Info("model attempts", args...)
}

func attemptCounts(ctx context.Context, reader *sdkmetric.ManualReader) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "captime.llm.attempts" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				eventType, _ := dp.Attributes.Value("event_type")
				counts[eventType.AsString()] += dp.Value
			}
		}
	}
	return counts, nil
}
