// Package generator produces answer text from a prompt with a langchaingo
// model and fixed decoding parameters.
//
// Complete never fails: any model error, timeout or rate limiter
// cancellation yields FallbackMessage. CompleteResult exposes the error for
// callers that report degradation.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FallbackMessage is returned in place of model output when generation fails.
const FallbackMessage = "I'm having trouble processing your question. Please try asking about basketball rules, positions, or strategies."

var (
	// ErrModelLoad indicates the model client could not be constructed.
	ErrModelLoad = errors.New("generation model load failed")

	// ErrGenerationFailed wraps model call failures.
	ErrGenerationFailed = errors.New("generation failed")
)

// Completion is the outcome of one generation call.
type Completion struct {
	Text     string
	Err      error
	Fallback bool
}

// Generator wraps a model with decoding parameters, a rate limiter and a
// per-call timeout.
type Generator struct {
	model   llms.Model
	cfg     config.GenerationConfig
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics
}

// New wraps model. Decoding parameters, timeout and rate limit come from cfg.
func New(cfg config.GenerationConfig, model llms.Model, logger *zap.Logger) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model is required", ErrModelLoad)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Generator{
		model:   model,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		logger:  logger,
		metrics: newMetrics(logger),
	}, nil
}

// NewFromConfig builds the configured model and wraps it. An error is a
// model-load error.
func NewFromConfig(cfg config.GenerationConfig, logger *zap.Logger) (*Generator, error) {
	model, err := NewModel(cfg)
	if err != nil {
		return nil, err
	}
	g, err := New(cfg, model, logger)
	if err != nil {
		return nil, err
	}
	g.logger.Info("generation model ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("max_length", g.cfg.MaxLength),
		zap.Float64("temperature", g.cfg.Temperature),
		zap.Float64("top_p", g.cfg.TopP),
	)
	return g, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	return g.cfg.Model
}

// Complete returns the model's continuation of prompt, or FallbackMessage.
func (g *Generator) Complete(ctx context.Context, prompt string) string {
	return g.CompleteResult(ctx, prompt).Text
}

// CompleteResult is Complete with the failure, if any, attached.
func (g *Generator) CompleteResult(ctx context.Context, prompt string) Completion {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "Generator.Complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("prompt_length", len(prompt)),
	)

	start := time.Now()
	text, err := g.generate(ctx, prompt)
	g.metrics.record(ctx, g.cfg.Model, time.Since(start), err != nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Warn("generation failed, returning fallback",
			zap.String("model", g.cfg.Model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return Completion{Text: FallbackMessage, Err: err, Fallback: true}
	}

	span.SetAttributes(attribute.Int("output_length", len(text)))
	span.SetStatus(codes.Ok, "success")
	return Completion{Text: text}
}

func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout.Duration())
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", ErrGenerationFailed, err)
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt,
		llms.WithMaxLength(g.cfg.MaxLength),
		llms.WithMaxTokens(g.cfg.MaxLength),
		llms.WithTemperature(g.cfg.Temperature),
		llms.WithTopP(g.cfg.TopP),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return text, nil
}
