package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/fyrsmithlabs/courtside/internal/knowledge"
	"github.com/fyrsmithlabs/courtside/internal/operations"
	"github.com/fyrsmithlabs/courtside/internal/rag"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleAnswer answers one question. A valid request always gets 200; index
// and model failures are reported through the degraded and fallback flags.
func (s *Server) handleAnswer(c echo.Context) error {
	var req AnswerRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid answer request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	answer := s.pipeline.AnswerDetailed(ctx, req.Question)
	s.metrics.RecordAnswer(ctx, answer)

	text := answer.Text
	if text == "" {
		text = rag.EmptyAnswerMessage
	}
	items := make([]ContextItem, len(answer.Context))
	for i, it := range answer.Context {
		items[i] = ContextItem{Title: it.Title, Content: it.Content, Score: it.Score}
	}

	return c.JSON(http.StatusOK, AnswerResponse{
		Answer:   text,
		Context:  items,
		Degraded: answer.Degraded(),
		Fallback: answer.Fallback,
	})
}

// handleKnowledge lists the static corpus.
func (s *Server) handleKnowledge(c echo.Context) error {
	items := knowledge.All()
	return c.JSON(http.StatusOK, KnowledgeResponse{Items: items, Count: len(items)})
}

// handleIndexed lists what the vector index currently holds.
func (s *Server) handleIndexed(c echo.Context) error {
	records := s.pipeline.ListKnowledge(c.Request().Context())
	return c.JSON(http.StatusOK, IndexedResponse{
		Index:   s.pipeline.Index().Name(),
		Records: records,
		Count:   len(records),
	})
}

// handleRefresh replaces the indexed corpus.
func (s *Server) handleRefresh(c echo.Context) error {
	id, result, err := s.operations.Track(c.Request().Context(), operations.KindRefresh, func(ctx context.Context) (any, error) {
		return s.pipeline.RefreshKnowledgeBase(ctx)
	})
	if err != nil {
		s.logger.Error("knowledge refresh failed", zap.String("operation_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, RefreshResponse{OperationID: id, Error: err.Error()})
	}

	report := result.(rag.IngestReport)
	return c.JSON(http.StatusOK, RefreshResponse{OperationID: id, Report: &report})
}

// handleOperation returns a tracked ingestion run.
func (s *Server) handleOperation(c echo.Context) error {
	op, err := s.operations.Get(c.Param("id"))
	if errors.Is(err, operations.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "operation not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, op)
}

// handleExamples returns sample questions.
func (s *Server) handleExamples(c echo.Context) error {
	return c.JSON(http.StatusOK, ExamplesResponse{Questions: knowledge.ExampleQuestions()})
}
