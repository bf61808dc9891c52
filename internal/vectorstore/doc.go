// Package vectorstore stores embedded knowledge records and answers
// nearest-neighbour queries over them.
//
// Two backends implement Index:
//   - chromem (default): embedded chromem-go, persistent on disk or in memory.
//   - qdrant: an external Qdrant server over its native gRPC API.
//
// # Usage
//
//	idx, err := vectorstore.New(cfg.Vector, logger)
//	if err != nil {
//	    idx = vectorstore.Unavailable(cfg.Vector.IndexName, cfg.Vector.Dimension, err)
//	}
//	defer idx.Close()
//
//	err = idx.Upsert(ctx, records)             // batches of MaxUpsertBatch
//	hits, err := idx.Query(ctx, vec, 3, true)  // descending similarity
//	all, err := idx.FetchAll(ctx, "basketball_knowledge")
//	err = idx.Delete(ctx, ids)                 // unknown ids are ignored
//
// Backends report every failure to the caller. Deciding which failures are
// fatal is left to the caller.
//
// Every backend call opens an OpenTelemetry span and updates the Prometheus
// collectors in metrics.go.
package vectorstore
