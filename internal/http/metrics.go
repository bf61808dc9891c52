package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/rag"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/courtside/internal/http"

// Answer outcomes recorded by HTTPMetrics.RecordAnswer.
const (
	outcomeAnswered = "answered"
	outcomeDegraded = "degraded"
	outcomeFallback = "fallback"
	outcomeEmpty    = "empty"
)

// HTTPMetrics records request traffic and answer outcomes.
type HTTPMetrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
	answers  metric.Int64Counter
}

// NewHTTPMetrics creates a new HTTPMetrics instance.
func NewHTTPMetrics(logger *zap.Logger) *HTTPMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &HTTPMetrics{
		meter:  otel.Meter(httpInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *HTTPMetrics) init() {
	var err error

	m.requests, err = m.meter.Int64Counter(
		"courtside.http.requests_total",
		metric.WithDescription("HTTP requests by method, route and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create requests counter", zap.Error(err))
	}

	// Generation dominates answer latency, hence the long tail.
	m.latency, err = m.meter.Float64Histogram(
		"courtside.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency by method, route and status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.inFlight, err = m.meter.Int64UpDownCounter(
		"courtside.http.active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active requests gauge", zap.Error(err))
	}

	m.answers, err = m.meter.Int64Counter(
		"courtside.http.answers_total",
		metric.WithDescription("Answers served by outcome"),
		metric.WithUnit("{answer}"),
	)
	if err != nil {
		m.logger.Warn("failed to create answers counter", zap.Error(err))
	}
}

// MetricsMiddleware returns an Echo middleware that records request metrics.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			start := time.Now()
			if m.inFlight != nil {
				m.inFlight.Add(ctx, 1)
				defer m.inFlight.Add(ctx, -1)
			}

			err := next(c)
			if err != nil {
				// Let echo write the error so the recorded status is final.
				c.Error(err)
			}

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", normalizePath(c.Path())),
				attribute.Int("status", c.Response().Status),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.latency != nil {
				m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			return nil
		}
	}
}

// RecordAnswer counts one answer under its outcome. An answer that is both
// degraded and a fallback counts as fallback.
func (m *HTTPMetrics) RecordAnswer(ctx context.Context, a rag.Answer) {
	if m == nil || m.answers == nil {
		return
	}
	m.answers.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", answerOutcome(a))))
}

func answerOutcome(a rag.Answer) string {
	switch {
	case a.Fallback:
		return outcomeFallback
	case a.Degraded():
		return outcomeDegraded
	case a.Text == "":
		return outcomeEmpty
	default:
		return outcomeAnswered
	}
}

// normalizePath keeps metric labels bounded. Echo reports the route
// pattern (/api/v1/operations/:id), so ids never reach a label; unmatched
// requests have an empty path and collapse to "/".
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
