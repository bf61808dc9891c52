package vectorstore

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/fyrsmithlabs/courtside/internal/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChromemIndex(t *testing.T) *ChromemIndex {
	t.Helper()
	idx, err := NewChromemIndex(ChromemConfig{IndexName: "test-index", Dimension: testDim}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestChromemIndex_FetchAllReturnsEveryRecord(t *testing.T) {
	ctx := context.Background()
	idx := newTestChromemIndex(t)

	corpus := makeRecords(1, 250, testType)
	other := makeRecords(2, 7, "scratch")
	require.NoError(t, idx.Upsert(ctx, corpus))
	require.NoError(t, idx.Upsert(ctx, other))

	all, err := idx.FetchAll(ctx, testType)
	require.NoError(t, err)
	assert.Len(t, all, 250)
	assert.ElementsMatch(t, recordIDs(corpus), ids(all))
	for _, r := range all {
		assert.Zero(t, r.Score)
		assert.Equal(t, testType, r.Type)
		assert.NotEmpty(t, r.Title)
	}

	everything, err := idx.FetchAll(ctx, "")
	require.NoError(t, err)
	assert.Len(t, everything, 257)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 257, n)
}

func TestChromemIndex_Query(t *testing.T) {
	ctx := context.Background()
	idx := newTestChromemIndex(t)

	records := makeRecords(3, 20, testType)
	require.NoError(t, idx.Upsert(ctx, records))

	for _, k := range []int{1, 3, 20, 50} {
		results, err := idx.Query(ctx, records[5].Embedding, k, true)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), k)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score, "k=%d position %d", k, i)
		}
	}

	t.Run("self match", func(t *testing.T) {
		results, err := idx.Query(ctx, records[7].Embedding, 1, true)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, records[7].ID, results[0].ID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-4)
		assert.Equal(t, records[7].Metadata.Title, results[0].Title)
		assert.Equal(t, records[7].Metadata.Content, results[0].Content)
	})

	t.Run("without metadata", func(t *testing.T) {
		results, err := idx.Query(ctx, records[7].Embedding, 2, false)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Empty(t, results[0].Title)
		assert.Empty(t, results[0].Content)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := idx.Query(ctx, records[0].Embedding, 0, true)
		assert.ErrorIs(t, err, ErrInvalidTopK)
		_, err = idx.Query(ctx, []float32{1, 0}, 3, true)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestChromemIndex_QueryEmpty(t *testing.T) {
	idx := newTestChromemIndex(t)
	results, err := idx.Query(context.Background(), unitVectorFor(1), 3, true)
	require.NoError(t, err)
	assert.Empty(t, results)

	all, err := idx.FetchAll(context.Background(), testType)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestChromemIndex_Delete(t *testing.T) {
	ctx := context.Background()
	idx := newTestChromemIndex(t)

	records := makeRecords(4, 10, testType)
	require.NoError(t, idx.Upsert(ctx, records))

	gone := recordIDs(records[:4])
	require.NoError(t, idx.Delete(ctx, gone))

	all, err := idx.FetchAll(ctx, testType)
	require.NoError(t, err)
	assert.Len(t, all, 6)
	for _, id := range gone {
		assert.NotContains(t, ids(all), id)
	}

	// Repeating the delete and deleting unknown ids change nothing.
	require.NoError(t, idx.Delete(ctx, gone))
	require.NoError(t, idx.Delete(ctx, []string{uuid.NewString(), "not-a-uuid"}))
	require.NoError(t, idx.Delete(ctx, nil))

	all, err = idx.FetchAll(ctx, testType)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestChromemIndex_UpsertValidation(t *testing.T) {
	ctx := context.Background()
	idx := newTestChromemIndex(t)

	good := makeRecords(5, 3, testType)

	badID := append([]Record(nil), good...)
	badID[1].ID = "point-guard"
	assert.ErrorIs(t, idx.Upsert(ctx, badID), ErrInvalidRecord)

	badDim := append([]Record(nil), good...)
	badDim[2].Embedding = []float32{1, 0, 0}
	assert.ErrorIs(t, idx.Upsert(ctx, badDim), ErrDimensionMismatch)

	// Nothing from a rejected call is written.
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChromemIndex_UpsertReplacesSameID(t *testing.T) {
	ctx := context.Background()
	idx := newTestChromemIndex(t)

	records := makeRecords(6, 1, testType)
	require.NoError(t, idx.Upsert(ctx, records))
	records[0].Metadata.Content = "updated"
	require.NoError(t, idx.Upsert(ctx, records))

	all, err := idx.FetchAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "updated", all[0].Content)
}

func TestChromemIndex_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := NewChromemIndex(ChromemConfig{Path: dir, IndexName: "persisted", Dimension: testDim}, nil)
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, makeRecords(7, 12, testType)))
	require.NoError(t, idx.Close())

	reopened, err := NewChromemIndex(ChromemConfig{Path: dir, IndexName: "persisted", Dimension: testDim}, nil)
	require.NoError(t, err)
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = NewChromemIndex(ChromemConfig{Path: dir, IndexName: "persisted", Dimension: testDim * 2}, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestChromemIndex_Spans(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	tel.Install(t)

	ctx := context.Background()
	idx := newTestChromemIndex(t)
	require.NoError(t, idx.Upsert(ctx, makeRecords(8, 2, testType)))
	_, err := idx.Query(ctx, unitVectorFor(2), 1, true)
	require.NoError(t, err)

	tel.AssertSpanExists(t, "ChromemIndex.Upsert")
	tel.AssertSpanAttribute(t, "ChromemIndex.Upsert", "record_count", int64(2))
	tel.AssertSpanExists(t, "ChromemIndex.Query")
}

func TestNew(t *testing.T) {
	cfg := config.Default().Vector
	cfg.Chromem.InMemory = true
	cfg.Dimension = testDim

	idx, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "basketball-analysis", idx.Name())
	assert.Equal(t, testDim, idx.Dimension())
	require.NoError(t, idx.Close())

	cfg.IndexName = "Bad Name"
	_, err = New(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidIndexName)

	cfg.Provider = "pinecone"
	_, err = New(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBatches(t *testing.T) {
	records := makeRecords(9, 250, testType)
	got := batches(records, MaxUpsertBatch)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 100)
	assert.Len(t, got[1], 100)
	assert.Len(t, got[2], 50)
	assert.Empty(t, batches(nil, MaxUpsertBatch))
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	cause := assert.AnError
	idx := Unavailable("basketball-analysis", 384, cause)

	assert.Equal(t, "basketball-analysis", idx.Name())
	assert.Equal(t, 384, idx.Dimension())

	_, err := idx.Query(ctx, make([]float32, 384), 3, true)
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.ErrorIs(t, err, cause)
	_, err = idx.FetchAll(ctx, testType)
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.ErrorIs(t, idx.Upsert(ctx, nil), ErrIndexUnavailable)
	assert.ErrorIs(t, idx.Delete(ctx, nil), ErrIndexUnavailable)
	assert.NoError(t, idx.Close())
}

func unitVectorFor(axis int) []float32 {
	v := make([]float32, testDim)
	v[axis%testDim] = 1
	return v
}
