package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/fyrsmithlabs/courtside/internal/embeddings"
	"github.com/fyrsmithlabs/courtside/internal/vectorstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/courtside/internal/rag"

// Retrieval is the outcome of one retrieval. Err is set only when a failure
// was swallowed; zero matches is not a failure.
type Retrieval struct {
	Items []ContextItem
	Err   error
}

// Retriever finds the knowledge most similar to a question.
type Retriever struct {
	embedder embeddings.Provider
	index    vectorstore.Index
	topK     int
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRetriever creates a Retriever using cfg.TopK when callers pass no k.
func NewRetriever(embedder embeddings.Provider, index vectorstore.Index, cfg config.RetrievalConfig, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     cfg.TopK,
		timeout:  cfg.Timeout.Duration(),
		logger:   logger,
	}
}

// TopK returns the default result count.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns up to topK items by descending similarity. Failures are
// logged and yield an empty slice. topK <= 0 selects the default.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) []ContextItem {
	return r.RetrieveResult(ctx, question, topK).Items
}

// RetrieveResult is Retrieve with the swallowed failure attached.
func (r *Retriever) RetrieveResult(ctx context.Context, question string, topK int) Retrieval {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "Retriever.Retrieve")
	defer span.End()

	if topK <= 0 {
		topK = r.topK
	}
	span.SetAttributes(
		attribute.Int("k", topK),
		attribute.String("index", r.index.Name()),
	)

	// Nothing to match against; the index is not consulted.
	if strings.TrimSpace(question) == "" {
		span.SetAttributes(attribute.Int("results_count", 0))
		return Retrieval{Items: []ContextItem{}}
	}

	items, err := r.retrieve(ctx, question, topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("retrieval failed, continuing without context",
			zap.String("index", r.index.Name()),
			zap.Error(err),
		)
		return Retrieval{Items: []ContextItem{}, Err: err}
	}

	span.SetAttributes(attribute.Int("results_count", len(items)))
	span.SetStatus(codes.Ok, "success")
	return Retrieval{Items: items}
}

func (r *Retriever) retrieve(ctx context.Context, question string, topK int) ([]ContextItem, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	vec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	hits, err := r.index.Query(ctx, vec, topK, true)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	items := make([]ContextItem, len(hits))
	for i, h := range hits {
		items[i] = ContextItem{Title: h.Title, Content: h.Content, Score: h.Score}
	}
	return items, nil
}
