package vectorstore

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
)

const (
	testDim  = 16
	testType = "basketball_knowledge"
)

// unitVector returns a deterministic random vector of length 1.
func unitVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	var sum float64
	for i := range v {
		x := rng.NormFloat64()
		v[i] = float32(x)
		sum += x * x
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

func makeRecords(seed int64, n int, typ string) []Record {
	rng := rand.New(rand.NewSource(seed))
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			ID:        uuid.NewString(),
			Embedding: unitVector(rng, testDim),
			Metadata: Metadata{
				Title:   fmt.Sprintf("Item %03d", i),
				Content: fmt.Sprintf("content for item %d", i),
				Type:    typ,
			},
		}
	}
	return records
}

func ids(results []SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func recordIDs(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
