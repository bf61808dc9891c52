package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const chromemBackend = "chromem"

// errTextEmbedding is returned if chromem is ever asked to embed text itself.
var errTextEmbedding = errors.New("chromem: records must carry precomputed embeddings")

// ChromemConfig holds configuration for the embedded chromem-go index.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty keeps the index
	// in memory only.
	Path string

	// Compress enables gzip compression for stored documents.
	Compress bool

	IndexName string
	Dimension int
}

// Validate validates the configuration.
func (c ChromemConfig) Validate() error {
	if err := ValidateIndexName(c.IndexName); err != nil {
		return err
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, c.Dimension)
	}
	return nil
}

// ChromemIndex implements Index on chromem-go.
//
// chromem-go keeps every document in memory and optionally mirrors them to
// gob files under Path. Similarity is always cosine.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	config     ChromemConfig
	logger     *zap.Logger
}

// NewChromemIndex opens or creates the collection named cfg.IndexName.
// An existing collection holding vectors of another dimension is an error.
func NewChromemIndex(cfg ChromemConfig, logger *zap.Logger) (*ChromemIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: opening chromem db at %s: %v", ErrConnectionFailed, path, err)
		}
		cfg.Path = path
	}

	collection, err := db.GetOrCreateCollection(cfg.IndexName, nil, rejectTextEmbedding)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", cfg.IndexName, err)
	}

	idx := &ChromemIndex{
		db:         db,
		collection: collection,
		config:     cfg,
		logger:     logger,
	}
	if err := idx.verifyDimension(context.Background()); err != nil {
		return nil, err
	}

	logger.Info("chromem index ready",
		zap.String("index", cfg.IndexName),
		zap.String("path", cfg.Path),
		zap.Bool("persistent", cfg.Path != ""),
		zap.Int("dimension", cfg.Dimension),
		zap.Int("records", collection.Count()),
	)
	return idx, nil
}

// expandPath expands ~ to the home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func rejectTextEmbedding(context.Context, string) ([]float32, error) {
	return nil, errTextEmbedding
}

// verifyDimension probes a non-empty collection with a vector of the
// configured length. chromem fails the comparison when lengths differ.
func (s *ChromemIndex) verifyDimension(ctx context.Context) error {
	if s.collection.Count() == 0 {
		return nil
	}
	if _, err := s.collection.QueryEmbedding(ctx, s.probe(), 1, nil, nil); err != nil {
		return fmt.Errorf("%w: existing index %q does not hold %d-dimensional vectors: %v",
			ErrDimensionMismatch, s.config.IndexName, s.config.Dimension, err)
	}
	return nil
}

// probe returns a unit vector along the first axis.
func (s *ChromemIndex) probe() []float32 {
	v := make([]float32, s.config.Dimension)
	v[0] = 1
	return v
}

// Upsert adds records, replacing any with the same id.
func (s *ChromemIndex) Upsert(ctx context.Context, records []Record) (err error) {
	ctx, span := tracer().Start(ctx, "ChromemIndex.Upsert")
	defer span.End()
	defer func(start time.Time) { observe(chromemBackend, "upsert", start, err) }(time.Now())

	span.SetAttributes(
		attribute.String("index", s.config.IndexName),
		attribute.Int("record_count", len(records)),
	)

	if err = validateRecords(records, s.config.Dimension); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	for i, batch := range batches(records, MaxUpsertBatch) {
		docs := make([]chromem.Document, len(batch))
		for j, r := range batch {
			docs[j] = chromem.Document{
				ID:        r.ID,
				Content:   r.Metadata.Content,
				Embedding: r.Embedding,
				Metadata: map[string]string{
					"title":   r.Metadata.Title,
					"content": r.Metadata.Content,
					"type":    r.Metadata.Type,
				},
			}
		}
		if err = s.collection.AddDocuments(ctx, docs, 1); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("upserting batch %d into %s: %w", i, s.config.IndexName, err)
		}
		RecordsUpserted.WithLabelValues(chromemBackend).Add(float64(len(batch)))
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("upserted records",
		zap.String("index", s.config.IndexName),
		zap.Int("count", len(records)),
	)
	return nil
}

// Query returns the nearest records by cosine similarity.
func (s *ChromemIndex) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) (results []SearchResult, err error) {
	ctx, span := tracer().Start(ctx, "ChromemIndex.Query")
	defer span.End()
	defer func(start time.Time) { observe(chromemBackend, "query", start, err) }(time.Now())

	span.SetAttributes(
		attribute.String("index", s.config.IndexName),
		attribute.Int("k", topK),
	)

	if err = validateQuery(vector, topK, s.config.Dimension); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// chromem requires nResults <= document count
	n := min(topK, s.collection.Count())
	if n == 0 {
		return []SearchResult{}, nil
	}

	hits, err := s.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying %s: %w", s.config.IndexName, err)
	}

	results = make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{ID: h.ID, Score: h.Similarity}
		if includeMetadata {
			fillMetadata(&results[i], h.Metadata)
		}
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// Delete removes records by id. Ids not present are skipped.
func (s *ChromemIndex) Delete(ctx context.Context, ids []string) (err error) {
	ctx, span := tracer().Start(ctx, "ChromemIndex.Delete")
	defer span.End()
	defer func(start time.Time) { observe(chromemBackend, "delete", start, err) }(time.Now())

	span.SetAttributes(
		attribute.String("index", s.config.IndexName),
		attribute.Int("id_count", len(ids)),
	)

	known := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, getErr := s.collection.GetByID(ctx, id); getErr == nil {
			known = append(known, id)
		}
	}
	if len(known) == 0 {
		span.SetStatus(codes.Ok, "nothing to delete")
		return nil
	}

	if err = s.collection.Delete(ctx, nil, nil, known...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting from %s: %w", s.config.IndexName, err)
	}

	span.SetAttributes(attribute.Int("deleted", len(known)))
	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("deleted records",
		zap.String("index", s.config.IndexName),
		zap.Int("requested", len(ids)),
		zap.Int("deleted", len(known)),
	)
	return nil
}

// FetchAll lists records ordered by title, then id.
//
// chromem has no listing call, so every document is ranked against a probe
// vector and the similarity is discarded.
func (s *ChromemIndex) FetchAll(ctx context.Context, typeFilter string) (results []SearchResult, err error) {
	ctx, span := tracer().Start(ctx, "ChromemIndex.FetchAll")
	defer span.End()
	defer func(start time.Time) { observe(chromemBackend, "fetch_all", start, err) }(time.Now())

	span.SetAttributes(
		attribute.String("index", s.config.IndexName),
		attribute.String("type_filter", typeFilter),
	)

	n := s.collection.Count()
	if n == 0 {
		return []SearchResult{}, nil
	}

	hits, err := s.collection.QueryEmbedding(ctx, s.probe(), n, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("listing %s: %w", s.config.IndexName, err)
	}

	results = make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		if typeFilter != "" && h.Metadata["type"] != typeFilter {
			continue
		}
		r := SearchResult{ID: h.ID}
		fillMetadata(&r, h.Metadata)
		results = append(results, r)
	}
	sortListing(results)

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// Count returns the number of stored records.
func (s *ChromemIndex) Count(context.Context) (int, error) {
	return s.collection.Count(), nil
}

func (s *ChromemIndex) Dimension() int { return s.config.Dimension }
func (s *ChromemIndex) Name() string   { return s.config.IndexName }

// Close is a no-op; persistent documents are written on every upsert.
func (s *ChromemIndex) Close() error {
	s.logger.Info("chromem index closed", zap.String("index", s.config.IndexName))
	return nil
}

func fillMetadata(r *SearchResult, md map[string]string) {
	r.Title = md["title"]
	r.Content = md["content"]
	r.Type = md["type"]
}

func sortListing(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Title != results[j].Title {
			return results[i].Title < results[j].Title
		}
		return results[i].ID < results[j].ID
	})
}

var _ Index = (*ChromemIndex)(nil)
