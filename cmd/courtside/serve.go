package main

import (
	"context"
	"errors"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/http"
	"github.com/fyrsmithlabs/courtside/internal/operations"
)

var serveIngest bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the HTTP API until SIGINT or SIGTERM.

Examples:
  # Serve on the configured host and port
  courtside serve

  # Replace the indexed corpus before serving
  courtside serve --ingest`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveIngest, "ingest", false, "refresh the knowledge base before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{consoleStdout: true})
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	logger := a.logger.Underlying()

	if serveIngest {
		_, _, err := a.operations.Track(ctx, operations.KindRefresh, func(ctx context.Context) (any, error) {
			return a.pipeline.RefreshKnowledgeBase(ctx)
		})
		if err != nil {
			// Serving continues; questions are answered without context.
			logger.Warn("startup ingestion failed", zap.Error(err))
		}
	}

	srv, err := http.NewServer(a.pipeline, a.operations, logger, &http.Config{
		Host: a.cfg.Server.Host,
		Port: a.cfg.Server.Port,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
