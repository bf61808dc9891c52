package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{" warn ", zapcore.WarnLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromSettings(t *testing.T) {
	cfg, err := FromSettings(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)

	_, err = FromSettings(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = FromSettings(config.LoggingConfig{Format: "xml"})
	assert.Error(t, err)
}

func TestNewLogger_RequiresOutput(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Stdout = false

	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestContextFields(t *testing.T) {
	log := NewTestLogger()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithRequestID(ctx, "req-42")
	ctx = WithOperationID(ctx, "op-7")

	log.Info(ctx, "answered question", zap.Int("context_items", 3))

	entries := log.FilterMessage("answered question").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, "req-42", fields["request.id"])
	assert.Equal(t, "op-7", fields["operation.id"])
	assert.EqualValues(t, 3, fields["context_items"])
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
	assert.Empty(t, RequestIDFromContext(WithRequestID(context.Background(), "")))
}

func TestTestLogger_Assertions(t *testing.T) {
	log := NewTestLogger()
	log.Warn(context.Background(), "vector index query failed", zap.String("index", "basketball-analysis"))
	log.Trace(context.Background(), "prompt built")

	log.AssertLogged(t, zapcore.WarnLevel, "query failed")
	log.AssertLogged(t, TraceLevel, "prompt built")
	log.AssertNotLogged(t, zapcore.ErrorLevel, "query failed")
	log.AssertField(t, "query failed", "index")

	log.Reset()
	assert.Empty(t, log.All())
}

func TestRedactingEncoder(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	var buf bytes.Buffer
	core := zapcore.NewCore(enc, zapcore.AddSync(&buf), zapcore.DebugLevel)
	zl := zap.New(core)

	zl.Info("calling model with hf_abcdefghijklmnopqrstuvwxyz",
		zap.String("api_token", "plain-token"),
		zap.String("note", "key sk-ABCDEFGHIJKLMNOPQRSTUVWX"),
		Secret("generation.api_token", config.Secret("hf_12345")),
		zap.String("question", "What is zone defense?"),
	)

	out := buf.String()
	assert.NotContains(t, out, "hf_abcdefghijklmnopqrstuvwxyz")
	assert.NotContains(t, out, "plain-token")
	assert.NotContains(t, out, "sk-ABCDEFGHIJKLMNOPQRSTUVWX")
	assert.NotContains(t, out, "hf_12345")
	assert.Contains(t, out, "[REDACTED:8]")
	assert.Contains(t, out, "What is zone defense?")
}

func TestNop(t *testing.T) {
	l := Wrap(nil)
	l.Info(context.Background(), "dropped")
	assert.False(t, l.Enabled(zapcore.ErrorLevel))
}
