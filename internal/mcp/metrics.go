package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/embeddings"
	"github.com/fyrsmithlabs/courtside/internal/vectorstore"
)

const instrumentationName = "github.com/fyrsmithlabs/courtside/internal/mcp"

// Metrics records tool calls.
type Metrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	calls    metric.Int64Counter
	latency  metric.Float64Histogram
	failures metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.calls, err = m.meter.Int64Counter(
		"courtside.mcp.tool.invocations_total",
		metric.WithDescription("MCP tool calls by tool and degraded flag"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		m.logger.Warn("failed to create invocations counter", zap.Error(err))
	}

	m.latency, err = m.meter.Float64Histogram(
		"courtside.mcp.tool.duration_seconds",
		metric.WithDescription("MCP tool call latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.failures, err = m.meter.Int64Counter(
		"courtside.mcp.tool.errors_total",
		metric.WithDescription("MCP tool calls that returned an error, by reason"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}

	m.inFlight, err = m.meter.Int64UpDownCounter(
		"courtside.mcp.tool.active_requests",
		metric.WithDescription("MCP tool calls in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active requests gauge", zap.Error(err))
	}
}

// Call is one tool call being measured.
type Call struct {
	m        *Metrics
	ctx      context.Context
	tool     string
	start    time.Time
	degraded bool
}

// Begin starts measuring a call to tool. Finish it with End.
func (m *Metrics) Begin(ctx context.Context, tool string) *Call {
	if m.inFlight != nil {
		m.inFlight.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
	}
	return &Call{m: m, ctx: ctx, tool: tool, start: time.Now()}
}

// MarkDegraded flags a call answered without retrieved context.
func (c *Call) MarkDegraded() {
	c.degraded = true
}

// End records the call's outcome. err is the error returned to the client.
func (c *Call) End(err error) {
	m, ctx := c.m, c.ctx
	tool := attribute.String("tool", c.tool)

	if m.inFlight != nil {
		m.inFlight.Add(ctx, -1, metric.WithAttributes(tool))
	}
	if m.calls != nil {
		m.calls.Add(ctx, 1, metric.WithAttributes(tool, attribute.Bool("degraded", c.degraded)))
	}
	if m.latency != nil {
		m.latency.Record(ctx, time.Since(c.start).Seconds(), metric.WithAttributes(tool))
	}
	if err != nil && m.failures != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(tool, attribute.String("reason", categorizeError(err))))
	}
}

// categorizeError maps an error to a bounded reason label.
func categorizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "validation_error"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case errors.Is(err, vectorstore.ErrIndexUnavailable), errors.Is(err, vectorstore.ErrConnectionFailed):
		return "storage_error"
	case errors.Is(err, embeddings.ErrEmbeddingFailed), errors.Is(err, embeddings.ErrEmptyInput):
		return "embedding_error"
	default:
		return "internal_error"
	}
}
