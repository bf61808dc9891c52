// Package http provides the HTTP API for courtside.
package http

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/courtside/internal/operations"
	"github.com/fyrsmithlabs/courtside/internal/rag"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides HTTP endpoints for courtside.
type Server struct {
	echo       *echo.Echo
	pipeline   *rag.Pipeline
	operations *operations.Registry
	metrics    *HTTPMetrics
	logger     *zap.Logger
	config     *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server. ops may be nil, in which case
// ingestion runs are tracked in a private registry without events.
func NewServer(pipeline *rag.Pipeline, ops *operations.Registry, logger *zap.Logger, cfg *Config) (*Server, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}
	if ops == nil {
		ops = operations.NewRegistry(nil, "", logger)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	metrics := NewHTTPMetrics(logger)
	e.Use(metrics.MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:       e,
		pipeline:   pipeline,
		operations: ops,
		metrics:    metrics,
		logger:     logger,
		config:     cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/answer", s.handleAnswer)
	v1.GET("/knowledge", s.handleKnowledge)
	v1.GET("/knowledge/indexed", s.handleIndexed)
	v1.POST("/knowledge/refresh", s.handleRefresh)
	v1.GET("/operations/:id", s.handleOperation)
	v1.GET("/examples", s.handleExamples)
}

// Echo exposes the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
