package mcp

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/knowledge"
	"github.com/fyrsmithlabs/courtside/internal/rag"
)

const (
	toolAsk           = "ask_basketball"
	toolListKnowledge = "list_basketball_knowledge"

	maxQuestionLength = 2000
)

func (s *Server) registerTools() {
	s.registerAskTool()
	s.registerKnowledgeTool()
}

type askInput struct {
	Question string `json:"question" jsonschema:"The basketball question to answer"`
}

type contextEntry struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

type askOutput struct {
	Answer   string         `json:"answer"`
	Context  []contextEntry `json:"context"`
	Degraded bool           `json:"degraded"`
	Fallback bool           `json:"fallback"`
}

func (s *Server) registerAskTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolAsk,
		Description: "Answer a basketball question using the indexed basketball knowledge base",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args askInput) (*mcp.CallToolResult, askOutput, error) {
		call := s.metrics.Begin(ctx, toolAsk)
		var toolErr error
		defer func() { call.End(toolErr) }()

		question := strings.TrimSpace(args.Question)
		if question == "" {
			toolErr = fmt.Errorf("%w: question is required", ErrInvalidInput)
			return nil, askOutput{}, toolErr
		}
		if utf8.RuneCountInString(question) > maxQuestionLength {
			toolErr = fmt.Errorf("%w: question exceeds %d characters", ErrInvalidInput, maxQuestionLength)
			return nil, askOutput{}, toolErr
		}

		answer := s.pipeline.AnswerDetailed(ctx, question)
		if answer.Degraded() {
			call.MarkDegraded()
		}
		text := answer.Text
		if text == "" {
			text = rag.EmptyAnswerMessage
		}

		entries := make([]contextEntry, len(answer.Context))
		for i, it := range answer.Context {
			entries[i] = contextEntry{Title: it.Title, Content: it.Content, Score: it.Score}
		}

		s.logger.Debug("answered via mcp",
			zap.Int("context_items", len(entries)),
			zap.Bool("degraded", answer.Degraded()),
		)

		return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: text}},
			}, askOutput{
				Answer:   text,
				Context:  entries,
				Degraded: answer.Degraded(),
				Fallback: answer.Fallback,
			}, nil
	})
}

type listKnowledgeInput struct {
	Indexed bool `json:"indexed,omitempty" jsonschema:"List records held by the vector index instead of the static corpus"`
}

type knowledgeEntry struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
}

type listKnowledgeOutput struct {
	Source string           `json:"source"`
	Items  []knowledgeEntry `json:"items"`
	Count  int              `json:"count"`
}

func (s *Server) registerKnowledgeTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolListKnowledge,
		Description: "List the basketball knowledge entries available for answering questions",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listKnowledgeInput) (*mcp.CallToolResult, listKnowledgeOutput, error) {
		call := s.metrics.Begin(ctx, toolListKnowledge)
		defer call.End(nil)

		var out listKnowledgeOutput
		if args.Indexed {
			out.Source = "index"
			for _, r := range s.pipeline.ListKnowledge(ctx) {
				out.Items = append(out.Items, knowledgeEntry{ID: r.ID, Title: r.Title, Content: r.Content})
			}
		} else {
			out.Source = "corpus"
			for _, it := range knowledge.All() {
				out.Items = append(out.Items, knowledgeEntry{Title: it.Title, Content: it.Content, Category: string(it.Category)})
			}
		}
		if out.Items == nil {
			out.Items = []knowledgeEntry{}
		}
		out.Count = len(out.Items)

		var b strings.Builder
		for _, it := range out.Items {
			fmt.Fprintf(&b, "- %s\n", it.Title)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
		}, out, nil
	})
}
