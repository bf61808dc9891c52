package telemetry

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"disabled skips validation", func(c *Config) { c.Endpoint = "" }, ""},
		{"enabled local grpc", func(c *Config) { c.Enabled = true }, ""},
		{"missing endpoint", func(c *Config) { c.Enabled = true; c.Endpoint = "" }, "endpoint is required"},
		{"bad protocol", func(c *Config) { c.Enabled = true; c.Protocol = "udp" }, "protocol"},
		{"insecure remote", func(c *Config) {
			c.Enabled = true
			c.Endpoint = "otel.example.com:4317"
		}, "insecure export"},
		{"secure remote", func(c *Config) {
			c.Enabled = true
			c.Endpoint = "otel.example.com:4317"
			c.Insecure = false
		}, ""},
		{"sampling out of range", func(c *Config) { c.Enabled = true; c.SamplingRate = 2 }, "sampling rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(config.TelemetryConfig{
		Enabled:  true,
		Endpoint: "127.0.0.1:4318",
		Protocol: "http",
	}, "1.2.3")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, "courtside", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
	assert.NoError(t, cfg.Validate())
}

func TestIsLocalEndpoint(t *testing.T) {
	assert.True(t, isLocalEndpoint("localhost:4317"))
	assert.True(t, isLocalEndpoint("http://127.0.0.1:4318"))
	assert.True(t, isLocalEndpoint("[::1]:4317"))
	assert.False(t, isLocalEndpoint("collector:4317"))
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	assert.False(t, tel.Health().Enabled)
	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestTestTelemetry_RecordsSpansAndMetrics(t *testing.T) {
	tel := NewTestTelemetry()
	tel.Install(t)
	ctx := context.Background()

	_, span := otel.Tracer("courtside.test").Start(ctx, "Pipeline.Answer")
	span.SetAttributes(attribute.Int("context_items", 2))
	span.End()

	counter, err := otel.Meter("courtside.test").Int64Counter("courtside.test.calls")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	tel.AssertSpanExists(t, "Pipeline.Answer")
	tel.AssertSpanAttribute(t, "Pipeline.Answer", "context_items", int64(2))
	assert.True(t, tel.HasMetric(ctx, "courtside.test.calls"))
	assert.False(t, tel.HasMetric(ctx, "courtside.test.absent"))
}
