package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/rag"
)

func newTestMetrics(t *testing.T) (*HTTPMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m := &HTTPMetrics{meter: mp.Meter(httpInstrumentationName), logger: zap.NewNop()}
	m.init()
	return m, reader
}

// collect gathers every recorded metric keyed by name.
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	m, reader := newTestMetrics(t)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/api/v1/operations/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "operation not found")
	})
	e.POST("/api/v1/answer", func(c echo.Context) error {
		return errors.New("boom")
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/api/v1/operations/abc"},
		{http.MethodPost, "/api/v1/answer"},
	} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.path, nil))
	}

	data := collect(t, reader)

	requests, ok := data["courtside.http.requests_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	byStatus := map[int64]int64{}
	for _, dp := range requests.DataPoints {
		status, _ := dp.Attributes.Value("status")
		endpoint, _ := dp.Attributes.Value("endpoint")
		assert.NotContains(t, endpoint.AsString(), "abc")
		byStatus[status.AsInt64()] += dp.Value
	}
	assert.Equal(t, map[int64]int64{200: 1, 404: 1, 500: 1}, byStatus)

	latency, ok := data["courtside.http.request_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range latency.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)

	active, ok := data["courtside.http.active_requests"].(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range active.DataPoints {
		assert.Zero(t, dp.Value)
	}
}

func TestHTTPMetrics_RecordAnswer(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAnswer(ctx, rag.Answer{Text: "Five players."})
	m.RecordAnswer(ctx, rag.Answer{Text: "Five players.", RetrievalErr: errors.New("down")})
	m.RecordAnswer(ctx, rag.Answer{Text: "sorry", Fallback: true, RetrievalErr: errors.New("down")})
	m.RecordAnswer(ctx, rag.Answer{})

	answers, ok := collect(t, reader)["courtside.http.answers_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	got := map[string]int64{}
	for _, dp := range answers.DataPoints {
		outcome, _ := dp.Attributes.Value("outcome")
		got[outcome.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{
		outcomeAnswered: 1,
		outcomeDegraded: 1,
		outcomeFallback: 1,
		outcomeEmpty:    1,
	}, got)

	var nilMetrics *HTTPMetrics
	assert.NotPanics(t, func() { nilMetrics.RecordAnswer(ctx, rag.Answer{}) })
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "/"},
		{"/health", "/health"},
		{"/api/v1/operations/:id", "/api/v1/operations/:id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizePath(tt.input))
	}
}
