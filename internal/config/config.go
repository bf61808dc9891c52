// Package config provides configuration loading for courtside.
//
// A single Config value is built at startup from an optional YAML file and the
// process environment, then passed explicitly to every component constructor.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Provider and metric names accepted by Validate.
const (
	EmbeddingFastEmbed = "fastembed"
	EmbeddingTEI       = "tei"
	EmbeddingOpenAI    = "openai"
	EmbeddingHash      = "hash" // model-free feature hashing, for offline use

	VectorChromem = "chromem"
	VectorQdrant  = "qdrant"

	GenerationHuggingFace = "huggingface"
	GenerationOpenAI      = "openai"
	GenerationOllama      = "ollama"

	MetricCosine    = "cosine"
	MetricDot       = "dot"
	MetricEuclidean = "euclid"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var indexNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Config holds the complete courtside configuration.
type Config struct {
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Vector     VectorConfig     `koanf:"vector"`
	Generation GenerationConfig `koanf:"generation"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Server     ServerConfig     `koanf:"server"`
	NATS       NATSConfig       `koanf:"nats"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// EmbeddingConfig selects and configures the text embedding provider.
type EmbeddingConfig struct {
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"` // TEI or OpenAI-compatible endpoint
	APIKey   Secret `koanf:"api_key"`
	CacheDir string `koanf:"cache_dir"`
}

// VectorConfig configures the vector index.
type VectorConfig struct {
	Provider  string        `koanf:"provider"`
	IndexName string        `koanf:"index_name"`
	Dimension int           `koanf:"dimension"`
	Metric    string        `koanf:"metric"`
	Chromem   ChromemConfig `koanf:"chromem"`
	Qdrant    QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig holds embedded chromem-go settings.
type ChromemConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
	InMemory bool   `koanf:"in_memory"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	UseTLS bool   `koanf:"use_tls"`
	APIKey Secret `koanf:"api_key"`
}

// GenerationConfig holds the text-generation model and its decoding parameters.
type GenerationConfig struct {
	Provider    string   `koanf:"provider"`
	Model       string   `koanf:"model"`
	BaseURL     string   `koanf:"base_url"`
	APIToken    Secret   `koanf:"api_token"`
	MaxLength   int      `koanf:"max_length"`
	Temperature float64  `koanf:"temperature"`
	TopP        float64  `koanf:"top_p"`
	Timeout     Duration `koanf:"timeout"`
	RateLimit   float64  `koanf:"rate_limit"` // requests per second
	Burst       int      `koanf:"burst"`
}

// RetrievalConfig controls the retriever.
type RetrievalConfig struct {
	TopK    int      `koanf:"top_k"`
	Timeout Duration `koanf:"timeout"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// NATSConfig holds the event bus connection. An empty URL disables events.
type NATSConfig struct {
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// LoggingConfig is the subset of logging settings exposed through config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig is the subset of telemetry settings exposed through config.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"` // grpc or http
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{Generation: DefaultGenerationConfig()}
	cfg.ApplyDefaults()
	return cfg
}

// DefaultGenerationConfig returns the default decoding parameters.
// Temperature and TopP are seeded here rather than in ApplyDefaults, where a
// zero would be indistinguishable from an explicit 0.
func DefaultGenerationConfig() GenerationConfig {
	cfg := GenerationConfig{Temperature: 0.7, TopP: 0.9}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults sets default values for missing configuration fields.
func (c *Config) ApplyDefaults() {
	c.Embedding.ApplyDefaults()
	c.Vector.ApplyDefaults()
	c.Generation.ApplyDefaults()

	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 3
	}
	if c.Retrieval.Timeout == 0 {
		c.Retrieval.Timeout = Duration(10 * time.Second)
	}

	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 9090
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "knowledge.operations"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4317"
	}
	if c.Telemetry.Protocol == "" {
		c.Telemetry.Protocol = "grpc"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "courtside"
	}
}

// ApplyDefaults fills missing embedding settings.
func (c *EmbeddingConfig) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = EmbeddingFastEmbed
	}
	if c.Model == "" {
		c.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
	if c.CacheDir == "" {
		c.CacheDir = "~/.cache/courtside/models"
	}
}

// ApplyDefaults fills missing vector index settings.
func (c *VectorConfig) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = VectorChromem
	}
	if c.IndexName == "" {
		c.IndexName = "basketball-analysis"
	}
	if c.Dimension == 0 {
		c.Dimension = 384 // all-MiniLM-L6-v2
	}
	if c.Metric == "" {
		c.Metric = MetricCosine
	}
	if c.Chromem.Path == "" {
		c.Chromem.Path = "~/.config/courtside/vectorstore"
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
}

// ApplyDefaults fills missing generation settings.
func (c *GenerationConfig) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = GenerationHuggingFace
	}
	if c.Model == "" {
		c.Model = "microsoft/DialoGPT-medium"
	}
	if c.MaxLength == 0 {
		c.MaxLength = 512
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(60 * time.Second)
	}
	if c.RateLimit == 0 {
		c.RateLimit = 1.0
	}
	if c.Burst == 0 {
		c.Burst = 5
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Vector.Validate(); err != nil {
		return err
	}
	if err := c.Generation.Validate(); err != nil {
		return err
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive, got %d", ErrInvalidConfig, c.Retrieval.TopK)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.http_port out of range: %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("%w: logging.format must be json or console, got %q", ErrInvalidConfig, c.Logging.Format)
	}
	if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http" {
		return fmt.Errorf("%w: telemetry.protocol must be grpc or http, got %q", ErrInvalidConfig, c.Telemetry.Protocol)
	}
	return nil
}

// Validate checks embedding settings.
func (c *EmbeddingConfig) Validate() error {
	switch c.Provider {
	case EmbeddingFastEmbed, EmbeddingTEI, EmbeddingOpenAI, EmbeddingHash:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: embedding.model is required", ErrInvalidConfig)
	}
	return nil
}

// Validate checks vector index settings.
func (c *VectorConfig) Validate() error {
	if !indexNamePattern.MatchString(c.IndexName) {
		return fmt.Errorf("%w: invalid index name %q", ErrInvalidConfig, c.IndexName)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: vector.dimension must be positive, got %d", ErrInvalidConfig, c.Dimension)
	}
	switch c.Metric {
	case MetricCosine, MetricDot, MetricEuclidean:
	default:
		return fmt.Errorf("%w: unknown similarity metric %q", ErrInvalidConfig, c.Metric)
	}
	switch c.Provider {
	case VectorChromem:
		if c.Metric != MetricCosine {
			return fmt.Errorf("%w: chromem only supports cosine similarity", ErrInvalidConfig)
		}
	case VectorQdrant:
		if c.Qdrant.Host == "" {
			return fmt.Errorf("%w: vector.qdrant.host is required", ErrInvalidConfig)
		}
		if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
			return fmt.Errorf("%w: vector.qdrant.port out of range: %d", ErrInvalidConfig, c.Qdrant.Port)
		}
	default:
		return fmt.Errorf("%w: unknown vector provider %q", ErrInvalidConfig, c.Provider)
	}
	return nil
}

// Validate checks generation settings.
func (c *GenerationConfig) Validate() error {
	switch c.Provider {
	case GenerationHuggingFace, GenerationOpenAI, GenerationOllama:
	default:
		return fmt.Errorf("%w: unknown generation provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: generation.model is required", ErrInvalidConfig)
	}
	if c.MaxLength <= 0 {
		return fmt.Errorf("%w: generation.max_length must be positive, got %d", ErrInvalidConfig, c.MaxLength)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: generation.temperature must be within [0, 2], got %g", ErrInvalidConfig, c.Temperature)
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return fmt.Errorf("%w: generation.top_p must be within (0, 1], got %g", ErrInvalidConfig, c.TopP)
	}
	if c.RateLimit <= 0 || c.Burst <= 0 {
		return fmt.Errorf("%w: generation rate limit and burst must be positive", ErrInvalidConfig)
	}
	return nil
}
