package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/fyrsmithlabs/courtside/internal/embeddings"
	"github.com/fyrsmithlabs/courtside/internal/generator"
	"github.com/fyrsmithlabs/courtside/internal/knowledge"
	"github.com/fyrsmithlabs/courtside/internal/vectorstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Completer produces text for a prompt. *generator.Generator implements it.
type Completer interface {
	CompleteResult(ctx context.Context, prompt string) generator.Completion
}

// Answer is the full outcome of one question.
type Answer struct {
	Text          string
	Prompt        string
	Context       []ContextItem
	RetrievalErr  error
	GenerationErr error
	Fallback      bool
}

// Degraded reports whether the answer was produced without index access.
func (a Answer) Degraded() bool {
	return a.RetrievalErr != nil
}

// Pipeline connects the corpus, embedder, index and generator.
type Pipeline struct {
	embedder  embeddings.Provider
	index     vectorstore.Index
	generator Completer
	retriever *Retriever
	corpus    func() []knowledge.Item
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCorpus replaces the knowledge source used by ingestion.
func WithCorpus(items []knowledge.Item) Option {
	return func(p *Pipeline) {
		p.corpus = func() []knowledge.Item {
			return append([]knowledge.Item(nil), items...)
		}
	}
}

// NewPipeline wires the components. The embedder and index must agree on
// the vector dimension.
func NewPipeline(embedder embeddings.Provider, index vectorstore.Index, gen Completer, cfg config.RetrievalConfig, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if embedder == nil || index == nil || gen == nil {
		return nil, errors.New("rag: embedder, index and generator are required")
	}
	if embedder.Dimension() != index.Dimension() {
		return nil, fmt.Errorf("%w: embedder produces %d, index %q expects %d",
			vectorstore.ErrDimensionMismatch, embedder.Dimension(), index.Name(), index.Dimension())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		embedder:  embedder,
		index:     index,
		generator: gen,
		retriever: NewRetriever(embedder, index, cfg, logger),
		corpus:    knowledge.All,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Retriever returns the pipeline's retriever.
func (p *Pipeline) Retriever() *Retriever {
	return p.retriever
}

// Index returns the pipeline's vector index.
func (p *Pipeline) Index() vectorstore.Index {
	return p.index
}

// Answer returns the generated answer to question. It may be empty.
func (p *Pipeline) Answer(ctx context.Context, question string) string {
	return p.AnswerDetailed(ctx, question).Text
}

// AnswerDetailed runs one question through retrieval and generation.
func (p *Pipeline) AnswerDetailed(ctx context.Context, question string) Answer {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "Pipeline.Answer")
	defer span.End()

	retrieval := p.retriever.RetrieveResult(ctx, question, 0)
	prompt := BuildPrompt(BuildContext(retrieval.Items), question)
	completion := p.generator.CompleteResult(ctx, prompt)
	text := StripEcho(completion.Text, prompt)

	span.SetAttributes(
		attribute.Int("context_items", len(retrieval.Items)),
		attribute.Bool("degraded", retrieval.Err != nil),
		attribute.Bool("fallback", completion.Fallback),
		attribute.Int("answer_length", len(text)),
	)
	span.SetStatus(codes.Ok, "answered")

	p.logger.Debug("answered question",
		zap.Int("context_items", len(retrieval.Items)),
		zap.Bool("degraded", retrieval.Err != nil),
		zap.Bool("fallback", completion.Fallback),
	)

	return Answer{
		Text:          text,
		Prompt:        prompt,
		Context:       retrieval.Items,
		RetrievalErr:  retrieval.Err,
		GenerationErr: completion.Err,
		Fallback:      completion.Fallback,
	}
}
