package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, EmbeddingFastEmbed, cfg.Embedding.Provider)
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", cfg.Embedding.Model)
	assert.Equal(t, VectorChromem, cfg.Vector.Provider)
	assert.Equal(t, "basketball-analysis", cfg.Vector.IndexName)
	assert.Equal(t, 384, cfg.Vector.Dimension)
	assert.Equal(t, MetricCosine, cfg.Vector.Metric)
	assert.Equal(t, GenerationHuggingFace, cfg.Generation.Provider)
	assert.Equal(t, 512, cfg.Generation.MaxLength)
	assert.InDelta(t, 0.7, cfg.Generation.Temperature, 1e-9)
	assert.InDelta(t, 0.9, cfg.Generation.TopP, 1e-9)
	assert.Equal(t, 60*time.Second, cfg.Generation.Timeout.Duration())
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Empty(t, cfg.NATS.URL)

	require.NoError(t, cfg.Validate())
}

func TestGenerationConfig_ApplyDefaultsKeepsZeroTemperature(t *testing.T) {
	cfg := DefaultGenerationConfig()
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)

	cfg.Temperature = 0
	cfg.ApplyDefaults()
	assert.Zero(t, cfg.Temperature)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "word2vec" }, "unknown embedding provider"},
		{"unknown vector provider", func(c *Config) { c.Vector.Provider = "pinecone" }, "unknown vector provider"},
		{"uppercase index name", func(c *Config) { c.Vector.IndexName = "Basketball" }, "invalid index name"},
		{"zero dimension", func(c *Config) { c.Vector.Dimension = -1 }, "dimension must be positive"},
		{"unknown metric", func(c *Config) { c.Vector.Metric = "manhattan" }, "unknown similarity metric"},
		{"chromem with dot", func(c *Config) { c.Vector.Metric = MetricDot }, "chromem only supports cosine"},
		{"qdrant with dot", func(c *Config) {
			c.Vector.Provider = VectorQdrant
			c.Vector.Metric = MetricDot
		}, ""},
		{"qdrant bad port", func(c *Config) {
			c.Vector.Provider = VectorQdrant
			c.Vector.Qdrant.Port = 70000
		}, "qdrant.port out of range"},
		{"temperature too high", func(c *Config) { c.Generation.Temperature = 2.5 }, "temperature"},
		{"top_p above one", func(c *Config) { c.Generation.TopP = 1.5 }, "top_p"},
		{"negative max length", func(c *Config) { c.Generation.MaxLength = -10 }, "max_length"},
		{"unknown generation provider", func(c *Config) { c.Generation.Provider = "bard" }, "unknown generation provider"},
		{"negative top_k", func(c *Config) { c.Retrieval.TopK = -1 }, "top_k"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad telemetry protocol", func(c *Config) { c.Telemetry.Protocol = "udp" }, "telemetry.protocol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("hf_abc123")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "hf_abc123")
	assert.Equal(t, "hf_abc123", s.Value())
	assert.True(t, s.IsSet())

	out, err := json.Marshal(struct{ Token Secret }{s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Token":"[REDACTED]"}`, string(out))

	assert.False(t, Secret("").IsSet())
	assert.Equal(t, "", Secret("").String())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
