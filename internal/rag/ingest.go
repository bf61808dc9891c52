package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/courtside/internal/vectorstore"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// RecordType tags every record written from the knowledge corpus.
const RecordType = "basketball_knowledge"

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Items    int           `json:"items"`
	Records  int           `json:"records"`
	Deleted  int           `json:"deleted"`
	Duration time.Duration `json:"duration"`
}

// SetupKnowledgeBase embeds the whole corpus and upserts one record per item
// with a fresh id. Running it twice stores every item twice; use
// RefreshKnowledgeBase to replace the corpus.
func (p *Pipeline) SetupKnowledgeBase(ctx context.Context) (IngestReport, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "Pipeline.SetupKnowledgeBase")
	defer span.End()

	start := time.Now()
	report, err := p.setup(ctx)
	report.Duration = time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	span.SetAttributes(attribute.Int("records", report.Records))
	span.SetStatus(codes.Ok, "success")
	p.logger.Info("knowledge base setup complete",
		zap.String("index", p.index.Name()),
		zap.Int("records", report.Records),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// RefreshKnowledgeBase deletes every corpus record and runs setup, leaving
// exactly one record per item. A failed listing or delete aborts before
// anything is written.
func (p *Pipeline) RefreshKnowledgeBase(ctx context.Context) (IngestReport, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "Pipeline.RefreshKnowledgeBase")
	defer span.End()

	start := time.Now()
	deleted, err := p.clear(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return IngestReport{Duration: time.Since(start)}, err
	}

	report, err := p.setup(ctx)
	report.Deleted = deleted
	report.Duration = time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	span.SetAttributes(
		attribute.Int("records", report.Records),
		attribute.Int("deleted", report.Deleted),
	)
	span.SetStatus(codes.Ok, "success")
	p.logger.Info("knowledge base refreshed",
		zap.String("index", p.index.Name()),
		zap.Int("deleted", report.Deleted),
		zap.Int("records", report.Records),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// ClearKnowledgeBase deletes every corpus record and returns how many.
func (p *Pipeline) ClearKnowledgeBase(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "Pipeline.ClearKnowledgeBase")
	defer span.End()

	n, err := p.clear(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int("deleted", n))
	span.SetStatus(codes.Ok, "success")
	p.logger.Info("knowledge base cleared", zap.String("index", p.index.Name()), zap.Int("deleted", n))
	return n, nil
}

// ListKnowledge lists the indexed corpus records. Failures are logged and
// yield an empty slice.
func (p *Pipeline) ListKnowledge(ctx context.Context) []vectorstore.SearchResult {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "Pipeline.ListKnowledge")
	defer span.End()

	records, err := p.index.FetchAll(ctx, RecordType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Warn("listing knowledge failed",
			zap.String("index", p.index.Name()),
			zap.Error(err),
		)
		return []vectorstore.SearchResult{}
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	span.SetStatus(codes.Ok, "success")
	return records
}

func (p *Pipeline) setup(ctx context.Context) (IngestReport, error) {
	items := p.corpus()
	report := IngestReport{Items: len(items)}
	if len(items) == 0 {
		return report, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text()
	}

	vecs, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return report, fmt.Errorf("embedding knowledge: %w", err)
	}

	records := make([]vectorstore.Record, len(items))
	for i, item := range items {
		records[i] = vectorstore.Record{
			ID:        uuid.NewString(),
			Embedding: vecs[i],
			Metadata: vectorstore.Metadata{
				Title:   item.Title,
				Content: item.Content,
				Type:    RecordType,
			},
		}
	}

	if err := p.index.Upsert(ctx, records); err != nil {
		return report, fmt.Errorf("upserting knowledge: %w", err)
	}
	report.Records = len(records)
	return report, nil
}

func (p *Pipeline) clear(ctx context.Context) (int, error) {
	existing, err := p.index.FetchAll(ctx, RecordType)
	if err != nil {
		return 0, fmt.Errorf("listing existing knowledge: %w", err)
	}
	if len(existing) == 0 {
		return 0, nil
	}

	ids := make([]string, len(existing))
	for i, r := range existing {
		ids[i] = r.ID
	}
	if err := p.index.Delete(ctx, ids); err != nil {
		return 0, fmt.Errorf("deleting existing knowledge: %w", err)
	}
	return len(ids), nil
}
