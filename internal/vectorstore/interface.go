package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// MaxUpsertBatch is the largest number of records sent in one backend write.
const MaxUpsertBatch = 100

var (
	// ErrInvalidConfig indicates a backend cannot be built from its settings.
	ErrInvalidConfig = errors.New("invalid vector store configuration")

	// ErrInvalidIndexName indicates an index name outside ^[a-z0-9][a-z0-9_-]{0,63}$.
	ErrInvalidIndexName = errors.New("invalid index name")

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidRecord indicates a record that cannot be stored.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidTopK indicates a non-positive result count.
	ErrInvalidTopK = errors.New("top k must be positive")

	// ErrConnectionFailed indicates the backend could not be reached.
	ErrConnectionFailed = errors.New("vector store connection failed")

	// ErrIndexUnavailable is returned by every call on an Unavailable index.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)

var indexNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Metadata is the payload stored next to each vector.
type Metadata struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Record is one stored vector.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  Metadata
}

// SearchResult is a record returned by Query or FetchAll.
//
// Score is the cosine similarity for Query results and 0 for listings.
// Title, Content and Type are empty when metadata was not requested.
type SearchResult struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content,omitempty"`
	Type    string  `json:"type,omitempty"`
}

// Index is a named collection of fixed-dimension vectors.
type Index interface {
	// Upsert writes records in batches of at most MaxUpsertBatch. Each batch
	// is atomic; a failure leaves earlier batches written.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to topK records by descending similarity to vector.
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]SearchResult, error)

	// Delete removes records by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// FetchAll lists every record whose type equals typeFilter, or every
	// record when typeFilter is empty.
	FetchAll(ctx context.Context, typeFilter string) ([]SearchResult, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	Dimension() int
	Name() string
	Close() error
}

// ValidateIndexName rejects names that are not safe as collection or
// directory names.
func ValidateIndexName(name string) error {
	if !indexNamePattern.MatchString(name) {
		return fmt.Errorf("%w: must match %s, got %q", ErrInvalidIndexName, indexNamePattern.String(), name)
	}
	return nil
}

// validateRecords checks every record before any of them is written.
func validateRecords(records []Record, dim int) error {
	for i, r := range records {
		if _, err := uuid.Parse(r.ID); err != nil {
			return fmt.Errorf("%w: record %d: id %q is not a uuid", ErrInvalidRecord, i, r.ID)
		}
		if len(r.Embedding) != dim {
			return fmt.Errorf("%w: record %d has length %d, want %d", ErrDimensionMismatch, i, len(r.Embedding), dim)
		}
	}
	return nil
}

func validateQuery(vector []float32, topK, dim int) error {
	if topK <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	if len(vector) != dim {
		return fmt.Errorf("%w: query has length %d, want %d", ErrDimensionMismatch, len(vector), dim)
	}
	return nil
}

// batches splits records into consecutive slices of at most size.
func batches(records []Record, size int) [][]Record {
	var out [][]Record
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		out = append(out, records[start:end])
	}
	return out
}

func tracer() trace.Tracer {
	return otel.Tracer("courtside.vectorstore")
}
