package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	qdrantBackend = "qdrant"

	// scrollPageSize is the number of points fetched per Scroll call.
	scrollPageSize = 256
)

// qdrantAPI is the subset of *qdrant.Client used by QdrantIndex.
type qdrantAPI interface {
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	ScrollAndOffset(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	Close() error
}

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (NOT the HTTP REST port).
	// Default: 6334
	Port int

	UseTLS bool
	APIKey string

	IndexName string
	Dimension int

	// Distance is the similarity metric used when the collection is created.
	// Default: Cosine
	Distance qdrant.Distance

	// MaxRetries is the maximum number of retry attempts for transient failures.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff duration, doubled on each retry.
	// Default: 1 second
	RetryBackoff time.Duration

	// CircuitBreakerThreshold is the number of failures before opening circuit.
	// Default: 5
	CircuitBreakerThreshold int

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 16MB
	MaxMessageSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = 5
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 16 * 1024 * 1024
	}
	if c.Distance == qdrant.Distance_UnknownDistance {
		c.Distance = qdrant.Distance_Cosine
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if err := ValidateIndexName(c.IndexName); err != nil {
		return err
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, c.Dimension)
	}
	return nil
}

// IsTransientError reports whether err is worth retrying.
// Network timeouts and temporary unavailability are; invalid arguments,
// missing collections and auth failures are not.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// QdrantIndex implements Index on a Qdrant collection over gRPC.
type QdrantIndex struct {
	client qdrantAPI
	config QdrantConfig
	logger *zap.Logger

	circuitBreaker struct {
		failures int
		lastFail time.Time
		mu       sync.Mutex
	}
}

// NewQdrantIndex connects to Qdrant, creating the collection when it does
// not exist and verifying its vector size when it does.
func NewQdrantIndex(cfg QdrantConfig, logger *zap.Logger) (*QdrantIndex, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	}
	if !cfg.UseTLS {
		logger.Warn("qdrant gRPC using plaintext (TLS disabled)")
		clientCfg.GrpcOptions = append(clientCfg.GrpcOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	idx, err := newQdrantIndex(ctx, client, cfg, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return idx, nil
}

// newQdrantIndex prepares the collection through client. cfg must already
// have defaults applied.
func newQdrantIndex(ctx context.Context, client qdrantAPI, cfg QdrantConfig, logger *zap.Logger) (*QdrantIndex, error) {
	idx := &QdrantIndex{client: client, config: cfg, logger: logger}

	if err := idx.healthCheck(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}

	logger.Info("qdrant index ready",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("index", cfg.IndexName),
		zap.Int("dimension", cfg.Dimension),
		zap.String("distance", cfg.Distance.String()),
	)
	return idx, nil
}

func (s *QdrantIndex) healthCheck(ctx context.Context) error {
	ctx, span := tracer().Start(ctx, "QdrantIndex.HealthCheck")
	defer span.End()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("health check failed: %w", err)
	}
	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// ensureCollection creates the collection or checks the existing one's size.
func (s *QdrantIndex) ensureCollection(ctx context.Context) error {
	ctx, span := tracer().Start(ctx, "QdrantIndex.EnsureCollection")
	defer span.End()

	span.SetAttributes(attribute.String("index", s.config.IndexName))

	var info *qdrant.CollectionInfo
	err := s.retryOperation(ctx, "get_collection_info", func() error {
		res, err := s.client.GetCollectionInfo(ctx, s.config.IndexName)
		if err != nil {
			if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
				return nil
			}
			return err
		}
		info = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("checking collection %s: %w", s.config.IndexName, err)
	}

	if info != nil {
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != uint64(s.config.Dimension) {
			err := fmt.Errorf("%w: collection %s has vector size %d, configured %d",
				ErrDimensionMismatch, s.config.IndexName, size, s.config.Dimension)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "exists")
		return nil
	}

	err = s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.IndexName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.config.Dimension),
				Distance: s.config.Distance,
			}),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", s.config.IndexName, err)
	}

	s.logger.Info("created qdrant collection",
		zap.String("index", s.config.IndexName),
		zap.Int("dimension", s.config.Dimension),
	)
	span.SetStatus(codes.Ok, "created")
	return nil
}

// retryOperation retries an operation with exponential backoff.
func (s *QdrantIndex) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	if s.isCircuitOpen() {
		return fmt.Errorf("%s: %w: circuit breaker open", operationName, ErrConnectionFailed)
	}

	backoff := s.config.RetryBackoff
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			s.resetCircuitBreaker()
			return nil
		}

		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}

		s.recordFailure()
		if s.isCircuitOpen() {
			return fmt.Errorf("%s: %w: circuit breaker open: %w", operationName, ErrConnectionFailed, err)
		}

		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, s.config.MaxRetries, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

func (s *QdrantIndex) recordFailure() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures++
	s.circuitBreaker.lastFail = time.Now()
}

func (s *QdrantIndex) resetCircuitBreaker() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures = 0
}

func (s *QdrantIndex) isCircuitOpen() bool {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()

	if s.circuitBreaker.failures >= s.config.CircuitBreakerThreshold {
		// Allow retry after 30 seconds
		if time.Since(s.circuitBreaker.lastFail) > 30*time.Second {
			s.circuitBreaker.failures = 0
			return false
		}
		return true
	}
	return false
}

// Upsert writes records in batches and waits for each batch to persist.
func (s *QdrantIndex) Upsert(ctx context.Context, records []Record) (err error) {
	ctx, span := tracer().Start(ctx, "QdrantIndex.Upsert")
	defer span.End()
	defer func(start time.Time) { observe(qdrantBackend, "upsert", start, err) }(time.Now())

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
		points := make([]*qdrant.PointStruct, len(batch))
		for j, r := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(r.ID),
				Vectors: qdrant.NewVectors(r.Embedding...),
				Payload: map[string]*qdrant.Value{
					"title":   stringValue(r.Metadata.Title),
					"content": stringValue(r.Metadata.Content),
					"type":    stringValue(r.Metadata.Type),
				},
			}
		}

		err = s.retryOperation(ctx, "upsert", func() error {
			_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: s.config.IndexName,
				Wait:           qdrant.PtrOf(true),
				Points:         points,
			})
			return err
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("upserting batch %d into %s: %w", i, s.config.IndexName, err)
		}
		RecordsUpserted.WithLabelValues(qdrantBackend).Add(float64(len(batch)))
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Query returns the nearest points using the collection's distance.
func (s *QdrantIndex) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) (results []SearchResult, err error) {
	ctx, span := tracer().Start(ctx, "QdrantIndex.Query")
	defer span.End()
	defer func(start time.Time) { observe(qdrantBackend, "query", start, err) }(time.Now())

	span.SetAttributes(
		attribute.String("index", s.config.IndexName),
		attribute.Int("k", topK),
	)

	if err = validateQuery(vector, topK, s.config.Dimension); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var points []*qdrant.ScoredPoint
	err = s.retryOperation(ctx, "query", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.IndexName,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(topK)),
			WithPayload:    qdrant.NewWithPayload(includeMetadata),
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying %s: %w", s.config.IndexName, err)
	}

	results = make([]SearchResult, len(points))
	for i, p := range points {
		results[i] = SearchResult{ID: pointID(p.GetId()), Score: p.GetScore()}
		if includeMetadata {
			fillPayload(&results[i], p.GetPayload())
		}
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// Delete removes points by id. Qdrant ignores ids it does not hold.
func (s *QdrantIndex) Delete(ctx context.Context, ids []string) (err error) {
	ctx, span := tracer().Start(ctx, "QdrantIndex.Delete")
	defer span.End()
	defer func(start time.Time) { observe(qdrantBackend, "delete", start, err) }(time.Now())

	span.SetAttributes(
		attribute.String("index", s.config.IndexName),
		attribute.Int("id_count", len(ids)),
	)

	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(id)
	}

	err = s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.IndexName,
			Wait:           qdrant.PtrOf(true),
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Points{
					Points: &qdrant.PointsIdsList{Ids: pointIDs},
				},
			},
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting from %s: %w", s.config.IndexName, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// FetchAll scrolls through the collection page by page.
func (s *QdrantIndex) FetchAll(ctx context.Context, typeFilter string) (results []SearchResult, err error) {
	ctx, span := tracer().Start(ctx, "QdrantIndex.FetchAll")
	defer span.End()
	defer func(start time.Time) { observe(qdrantBackend, "fetch_all", start, err) }(time.Now())

	span.SetAttributes(
		attribute.String("index", s.config.IndexName),
		attribute.String("type_filter", typeFilter),
	)

	var filter *qdrant.Filter
	if typeFilter != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "type",
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: typeFilter},
						},
					},
				},
			}},
		}
	}

	results = []SearchResult{}
	var offset *qdrant.PointId
	pages := 0
	for {
		var (
			points []*qdrant.RetrievedPoint
			next   *qdrant.PointId
		)
		err = s.retryOperation(ctx, "scroll", func() error {
			var err error
			points, next, err = s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
				CollectionName: s.config.IndexName,
				Filter:         filter,
				Offset:         offset,
				Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
				WithPayload:    qdrant.NewWithPayload(true),
			})
			return err
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("listing %s: %w", s.config.IndexName, err)
		}
		pages++

		for _, p := range points {
			r := SearchResult{ID: pointID(p.GetId())}
			fillPayload(&r, p.GetPayload())
			results = append(results, r)
		}

		if next == nil || len(points) == 0 {
			break
		}
		offset = next
	}
	sortListing(results)

	span.SetAttributes(
		attribute.Int("results_count", len(results)),
		attribute.Int("pages", pages),
	)
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantIndex) Count(ctx context.Context) (int, error) {
	var n uint64
	err := s.retryOperation(ctx, "count", func() error {
		res, err := s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.config.IndexName,
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			return err
		}
		n = res
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", s.config.IndexName, err)
	}
	return int(n), nil
}

func (s *QdrantIndex) Dimension() int { return s.config.Dimension }
func (s *QdrantIndex) Name() string   { return s.config.IndexName }

// Close closes the gRPC connection.
func (s *QdrantIndex) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func fillPayload(r *SearchResult, payload map[string]*qdrant.Value) {
	r.Title = payload["title"].GetStringValue()
	r.Content = payload["content"].GetStringValue()
	r.Type = payload["type"].GetStringValue()
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}

var _ Index = (*QdrantIndex)(nil)
