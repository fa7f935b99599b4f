// Package httpapi serves the retrieval service as a JSON API over gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apeko/appraisal-rag/internal/core/ports/driving"
	"github.com/apeko/appraisal-rag/internal/logger"
	"github.com/apeko/appraisal-rag/internal/metrics"
)

// APIBase is the prefix of every versioned route.
const APIBase = "/api/v1"

// DefaultMaxUploadBytes bounds the size of an uploaded document.
const DefaultMaxUploadBytes = 10 << 20

const shutdownTimeout = 10 * time.Second

// Options configures the server.
type Options struct {
	// Version is reported by the health endpoint.
	Version string

	// Metrics receives request metrics and is served at /metrics.
	// Nil disables both.
	Metrics *metrics.Recorder

	// MaxUploadBytes bounds multipart uploads. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// Server is the HTTP API.
type Server struct {
	rag    driving.RAGService
	opts   Options
	engine *gin.Engine
}

// NewServer builds the router for the given service.
func NewServer(rag driving.RAGService, opts Options) (*Server, error) {
	if rag == nil {
		return nil, errMissingService
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	engine := gin.New()
	engine.MaxMultipartMemory = opts.MaxUploadBytes
	engine.Use(gin.Recovery(), requestIDMiddleware(), loggerMiddleware())
	if opts.Metrics != nil {
		engine.Use(metricsMiddleware(opts.Metrics))
	}

	s := &Server{
		rag:    rag,
		opts:   opts,
		engine: engine,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	health := s.engine.Group("/health")
	{
		health.GET("", s.handleHealth)
		health.GET("/ping", s.handlePing)
	}
	if s.opts.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}

	rag := s.engine.Group(APIBase + "/rag")
	{
		rag.POST("/documents", s.handleCreateDocument)
		rag.POST("/documents/upload", s.handleUploadDocument)
		rag.GET("/documents", s.handleListDocuments)
		rag.GET("/documents/:id", s.handleGetDocument)
		rag.DELETE("/documents/:id", s.handleDeleteDocument)
		rag.POST("/search", s.handleSearch)
		rag.POST("/generate", s.handleGenerate)
		rag.GET("/statistics", s.handleStatistics)
	}
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
