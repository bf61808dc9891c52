package vectorstore

import (
	"fmt"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// New builds the Index selected by cfg.Provider:
//   - "chromem" (default): embedded, persistent under cfg.Chromem.Path
//     unless cfg.Chromem.InMemory is set.
//   - "qdrant": an external Qdrant server.
//
// A returned error means the backend could not be reached or prepared.
// Callers that can run without an index wrap the error with Unavailable.
func New(cfg config.VectorConfig, logger *zap.Logger) (Index, error) {
	switch cfg.Provider {
	case config.VectorChromem, "":
		path := cfg.Chromem.Path
		if cfg.Chromem.InMemory {
			path = ""
		}
		idx, err := NewChromemIndex(ChromemConfig{
			Path:      path,
			Compress:  cfg.Chromem.Compress,
			IndexName: cfg.IndexName,
			Dimension: cfg.Dimension,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating chromem index: %w", err)
		}
		return idx, nil

	case config.VectorQdrant:
		distance, err := qdrantDistance(cfg.Metric)
		if err != nil {
			return nil, err
		}
		idx, err := NewQdrantIndex(QdrantConfig{
			Host:      cfg.Qdrant.Host,
			Port:      cfg.Qdrant.Port,
			UseTLS:    cfg.Qdrant.UseTLS,
			APIKey:    cfg.Qdrant.APIKey.Value(),
			IndexName: cfg.IndexName,
			Dimension: cfg.Dimension,
			Distance:  distance,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating qdrant index: %w", err)
		}
		return idx, nil

	default:
		return nil, fmt.Errorf("%w: unsupported vector provider %q (supported: chromem, qdrant)", ErrInvalidConfig, cfg.Provider)
	}
}

func qdrantDistance(metric string) (qdrant.Distance, error) {
	switch metric {
	case config.MetricCosine, "":
		return qdrant.Distance_Cosine, nil
	case config.MetricDot:
		return qdrant.Distance_Dot, nil
	case config.MetricEuclidean:
		return qdrant.Distance_Euclid, nil
	default:
		return 0, fmt.Errorf("%w: unknown similarity metric %q", ErrInvalidConfig, metric)
	}
}
