package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "basketball-analysis", cfg.Vector.IndexName)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 384, cfg.Vector.Dimension)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
vector:
  provider: qdrant
  index_name: hoops
  dimension: 768
  metric: dot
  qdrant:
    host: qdrant.internal
    port: 6400
generation:
  provider: ollama
  model: llama3
  timeout: 15s
retrieval:
  top_k: 5
server:
  http_port: 8088
`, 0o600)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, VectorQdrant, cfg.Vector.Provider)
	assert.Equal(t, "hoops", cfg.Vector.IndexName)
	assert.Equal(t, 768, cfg.Vector.Dimension)
	assert.Equal(t, MetricDot, cfg.Vector.Metric)
	assert.Equal(t, "qdrant.internal", cfg.Vector.Qdrant.Host)
	assert.Equal(t, 6400, cfg.Vector.Qdrant.Port)
	assert.Equal(t, GenerationOllama, cfg.Generation.Provider)
	assert.Equal(t, "llama3", cfg.Generation.Model)
	assert.Equal(t, 15*time.Second, cfg.Generation.Timeout.Duration())
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 8088, cfg.Server.Port)
	// Untouched sections keep defaults.
	assert.Equal(t, 512, cfg.Generation.MaxLength)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "vector:\n  index_name: from-file\n", 0o600)

	t.Setenv("VECTOR_INDEX_NAME", "from-env")
	t.Setenv("EMBEDDING_MODEL", "BAAI/bge-small-en-v1.5")
	t.Setenv("VECTOR_DIMENSION", "384")
	t.Setenv("SIMILARITY_METRIC", "cosine")
	t.Setenv("MAX_LENGTH", "256")
	t.Setenv("TEMPERATURE", "0.2")
	t.Setenv("MODEL_NAME", "gpt2")
	t.Setenv("HUGGINGFACEHUB_API_TOKEN", "hf_secret")
	t.Setenv("COURTSIDE_RETRIEVAL_TOP_K", "4")
	t.Setenv("RETRIEVAL_TIMEOUT", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Vector.IndexName)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Embedding.Model)
	assert.Equal(t, 256, cfg.Generation.MaxLength)
	assert.InDelta(t, 0.2, cfg.Generation.Temperature, 1e-9)
	assert.Equal(t, "gpt2", cfg.Generation.Model)
	assert.Equal(t, "hf_secret", cfg.Generation.APIToken.Value())
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, 3*time.Second, cfg.Retrieval.Timeout.Duration())
}

func TestLoad_ZeroTemperatureIsKept(t *testing.T) {
	t.Setenv("TEMPERATURE", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.Generation.Temperature)
	assert.InDelta(t, 0.9, cfg.Generation.TopP, 1e-9)
}

func TestLoad_ZeroTemperatureFromYAML(t *testing.T) {
	path := writeConfig(t, "generation:\n  temperature: 0\n", 0o600)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Generation.Temperature)
}

func TestLoad_NestedSectionsFromEnv(t *testing.T) {
	t.Setenv("VECTOR_PROVIDER", "qdrant")
	t.Setenv("COURTSIDE_VECTOR_QDRANT_HOST", "qdrant.internal")
	t.Setenv("VECTOR_QDRANT_PORT", "6400")
	t.Setenv("COURTSIDE_VECTOR_CHROMEM_IN_MEMORY", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "qdrant.internal", cfg.Vector.Qdrant.Host)
	assert.Equal(t, 6400, cfg.Vector.Qdrant.Port)
	assert.True(t, cfg.Vector.Chromem.InMemory)
}

func TestLoad_InvalidEnvFailsValidation(t *testing.T) {
	t.Setenv("SIMILARITY_METRIC", "hamming")

	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_RejectsWritableFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	path := writeConfig(t, "retrieval:\n  top_k: 2\n", 0o666)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoad_RejectsOversizedFile(t *testing.T) {
	big := make([]byte, maxConfigFileSize+1)
	for i := range big {
		big[i] = '#'
	}
	path := writeConfig(t, string(big), 0o600)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"VECTOR_INDEX_NAME", "vector.index_name"},
		{"GENERATION_MAX_LENGTH", "generation.max_length"},
		{"COURTSIDE_SERVER_HTTP_PORT", "server.http_port"},
		{"MAX_LENGTH", "generation.max_length"},
		{"QDRANT_API_KEY", "vector.qdrant.api_key"},
		{"COURTSIDE_VECTOR_QDRANT_HOST", "vector.qdrant.host"},
		{"VECTOR_CHROMEM_IN_MEMORY", "vector.chromem.in_memory"},
		{"VECTOR_QDRANT_USE_TLS", "vector.qdrant.use_tls"},
		{"PATH", ""},
		{"HOME_DIR", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.in))
		})
	}
}
