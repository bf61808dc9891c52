package generator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/courtside/internal/generator"

type metrics struct {
	duration  metric.Float64Histogram
	fallbacks metric.Int64Counter
}

func newMetrics(logger *zap.Logger) *metrics {
	meter := otel.Meter(instrumentationName)
	m := &metrics{}

	var err error
	m.duration, err = meter.Float64Histogram(
		"courtside.generation.duration_seconds",
		metric.WithDescription("Duration of text generation calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.fallbacks, err = meter.Int64Counter(
		"courtside.generation.fallbacks_total",
		metric.WithDescription("Generation calls answered with the fallback message"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		logger.Warn("failed to create fallbacks counter", zap.Error(err))
	}
	return m
}

func (m *metrics) record(ctx context.Context, model string, d time.Duration, fallback bool) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("fallback", fallback),
	)
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
	if fallback && m.fallbacks != nil {
		m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
	}
}
