package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/fyrsmithlabs/courtside/internal/embeddings"
	"github.com/fyrsmithlabs/courtside/internal/generator"
	"github.com/fyrsmithlabs/courtside/internal/logging"
	"github.com/fyrsmithlabs/courtside/internal/operations"
	"github.com/fyrsmithlabs/courtside/internal/rag"
	"github.com/fyrsmithlabs/courtside/internal/telemetry"
	"github.com/fyrsmithlabs/courtside/internal/vectorstore"
)

// app holds the components shared by every command.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	telemetry  *telemetry.Telemetry
	embedder   embeddings.Provider
	index      vectorstore.Index
	generator  *generator.Generator
	pipeline   *rag.Pipeline
	operations *operations.Registry
	nats       *nats.Conn
}

type appOptions struct {
	// consoleStdout keeps log output on stdout. Commands that print results
	// or speak a protocol on stdout log to stderr instead.
	consoleStdout bool
}

// newApp builds the components in dependency order. Embedding and generation
// model failures are fatal. An unreachable vector index is not: the app
// starts degraded and answers without retrieved context.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.close(context.Background())
		}
	}()

	a.telemetry, err = telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	logCfg, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return nil, err
	}
	if !opts.consoleStdout {
		logCfg.Stderr = true
	}
	a.logger, err = logging.NewLogger(logCfg, a.telemetry.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	zl := a.logger.Underlying()

	a.embedder, err = embeddings.NewProvider(cfg.Embedding, cfg.Vector.Dimension, zl)
	if err != nil {
		return nil, fmt.Errorf("loading embedding model: %w", err)
	}
	if got := a.embedder.Dimension(); got != cfg.Vector.Dimension {
		return nil, fmt.Errorf("%w: embedding model produces %d dimensions, vector.dimension is %d",
			config.ErrInvalidConfig, got, cfg.Vector.Dimension)
	}

	a.index, err = vectorstore.New(cfg.Vector, zl)
	if err != nil {
		zl.Warn("vector index unavailable, answering without context",
			zap.String("index", cfg.Vector.IndexName),
			zap.Error(err),
		)
		a.index = vectorstore.Unavailable(cfg.Vector.IndexName, cfg.Vector.Dimension, err)
	}

	a.generator, err = generator.NewFromConfig(cfg.Generation, zl)
	if err != nil {
		return nil, fmt.Errorf("loading generation model: %w", err)
	}

	a.pipeline, err = rag.NewPipeline(a.embedder, a.index, a.generator, cfg.Retrieval, zl)
	if err != nil {
		return nil, err
	}

	a.nats, err = operations.Connect(cfg.NATS.URL, zl)
	if err != nil {
		zl.Warn("operation events disabled", zap.String("url", cfg.NATS.URL), zap.Error(err))
	}
	a.operations = operations.NewRegistry(a.nats, cfg.NATS.SubjectPrefix, zl)

	ok = true
	return a, nil
}

// close releases everything newApp acquired, in reverse order.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.nats != nil {
		if err := a.nats.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("draining nats: %w", err))
		}
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing vector index: %w", err))
		}
	}
	if a.embedder != nil {
		if err := a.embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing embedder: %w", err))
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down telemetry: %w", err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
