package http

import (
	"github.com/fyrsmithlabs/courtside/internal/knowledge"
	"github.com/fyrsmithlabs/courtside/internal/rag"
	"github.com/fyrsmithlabs/courtside/internal/vectorstore"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// AnswerRequest is the request body for POST /api/v1/answer.
type AnswerRequest struct {
	Question string `json:"question" validate:"required,min=1,max=2000"`
}

// ContextItem is one retrieved passage in an answer response.
type ContextItem struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// AnswerResponse is the response body for POST /api/v1/answer.
type AnswerResponse struct {
	Answer   string        `json:"answer"`
	Context  []ContextItem `json:"context"`
	Degraded bool          `json:"degraded"`
	Fallback bool          `json:"fallback"`
}

// KnowledgeResponse is the response body for GET /api/v1/knowledge.
type KnowledgeResponse struct {
	Items []knowledge.Item `json:"items"`
	Count int              `json:"count"`
}

// IndexedResponse is the response body for GET /api/v1/knowledge/indexed.
type IndexedResponse struct {
	Index   string                     `json:"index"`
	Records []vectorstore.SearchResult `json:"records"`
	Count   int                        `json:"count"`
}

// RefreshResponse is the response body for POST /api/v1/knowledge/refresh.
type RefreshResponse struct {
	OperationID string            `json:"operation_id"`
	Report      *rag.IngestReport `json:"report,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// ExamplesResponse is the response body for GET /api/v1/examples.
type ExamplesResponse struct {
	Questions []string `json:"questions"`
}

// ErrorResponse carries validation failures.
type ErrorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
