package http_test

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/fyrsmithlabs/courtside/internal/embeddings"
	"github.com/fyrsmithlabs/courtside/internal/generator"
	httpserver "github.com/fyrsmithlabs/courtside/internal/http"
	"github.com/fyrsmithlabs/courtside/internal/rag"
	"github.com/fyrsmithlabs/courtside/internal/vectorstore"
	"go.uber.org/zap"
)

type cannedModel struct{}

func (cannedModel) CompleteResult(context.Context, string) generator.Completion {
	return generator.Completion{Text: "Three points."}
}

// ExampleServer demonstrates how to create and start the HTTP server.
func ExampleServer() {
	logger := zap.NewNop()

	emb, err := embeddings.NewHashProvider(384)
	if err != nil {
		panic(err)
	}
	index, err := vectorstore.NewChromemIndex(vectorstore.ChromemConfig{
		IndexName: "basketball-analysis",
		Dimension: 384,
	}, logger)
	if err != nil {
		panic(err)
	}
	pipeline, err := rag.NewPipeline(emb, index, cannedModel{}, config.RetrievalConfig{TopK: 3}, logger)
	if err != nil {
		panic(err)
	}

	server, err := httpserver.NewServer(pipeline, nil, logger, &httpserver.Config{
		Host: "127.0.0.1",
		Port: 0,
	})
	if err != nil {
		panic(err)
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Debug("server stopped", zap.Error(err))
		}
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	fmt.Println("Server started and stopped successfully")
	// Output: Server started and stopped successfully
}
