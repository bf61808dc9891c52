package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrEmptyInput indicates empty input text or an empty batch.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidConfig indicates a provider cannot be built from its settings.
	ErrInvalidConfig = errors.New("invalid embedding configuration")

	// ErrEmbeddingFailed indicates the provider failed to produce vectors.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrDimensionMismatch indicates a vector whose length differs from Dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrFastEmbedNotAvailable is returned by builds without cgo.
	ErrFastEmbedNotAvailable = errors.New("fastembed: not available (built without cgo, use the tei, openai or hash provider)")
)

// Provider embeds text into vectors of length Dimension.
//
// Output order matches input order. A provider returns the same vector for
// the same input for as long as its model is unchanged.
type Provider interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Close() error
}

// knownDimensions lists output sizes of common models.
var knownDimensions = map[string]int{
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"text-embedding-3-small":                 1536,
	"text-embedding-3-large":                 3072,
	"text-embedding-ada-002":                 1536,
}

// ModelDimension returns the known output size of model.
func ModelDimension(model string) (int, bool) {
	dim, ok := knownDimensions[model]
	return dim, ok
}

// NewProvider builds the provider selected by cfg. fallbackDim is used for
// providers whose model size is not known in advance. A construction error is
// a model-load error and callers should treat it as fatal.
func NewProvider(cfg config.EmbeddingConfig, fallbackDim int, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dim := fallbackDim
	if d, ok := ModelDimension(cfg.Model); ok {
		dim = d
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case config.EmbeddingFastEmbed, "":
		p, err = NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case config.EmbeddingTEI:
		p, err = NewTEIProvider(TEIConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey.Value(),
			Dimension: dim,
		})
	case config.EmbeddingOpenAI:
		p, err = NewOpenAIProvider(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey.Value(),
			Dimension: dim,
		})
	case config.EmbeddingHash:
		p, err = NewHashProvider(fallbackDim)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("embedding provider ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimension", p.Dimension()),
	)
	return Instrument(p, cfg.Model, NewMetrics(logger)), nil
}

// Instrument wraps p with metrics and output dimension checks.
func Instrument(p Provider, model string, metrics *Metrics) Provider {
	if metrics == nil {
		metrics = NewMetrics(zap.NewNop())
	}
	return &instrumented{Provider: p, model: model, metrics: metrics}
}

type instrumented struct {
	Provider
	model   string
	metrics *Metrics
}

func (i *instrumented) EmbedDocuments(ctx context.Context, texts []string) (vecs [][]float32, err error) {
	start := time.Now()
	defer func() {
		i.metrics.RecordGeneration(ctx, i.model, "embed_documents", time.Since(start), len(texts), err)
	}()

	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	for idx, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrEmptyInput, idx)
		}
	}

	vecs, err = i.Provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vecs), len(texts))
	}
	for idx, v := range vecs {
		if len(v) != i.Dimension() {
			return nil, fmt.Errorf("%w: vector %d has length %d, want %d", ErrDimensionMismatch, idx, len(v), i.Dimension())
		}
	}
	return vecs, nil
}

func (i *instrumented) EmbedQuery(ctx context.Context, text string) (vec []float32, err error) {
	start := time.Now()
	defer func() {
		i.metrics.RecordGeneration(ctx, i.model, "embed_query", time.Since(start), 1, err)
	}()

	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vec, err = i.Provider.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != i.Dimension() {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrDimensionMismatch, len(vec), i.Dimension())
	}
	return vec, nil
}
