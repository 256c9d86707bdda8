// Package server exposes slicing over HTTP.
//
//	GET /slice?id=N[&id=M...][&format=json]  zip archive of the slice (or its summary)
//	GET /file?fileID=N                       raw file bytes, for remote content providers
//	GET /health                              liveness
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jward/slicer"
	"github.com/jward/slicer/internal/content"
)

// Server is the slicing HTTP server.
type Server struct {
	router  *http.ServeMux
	server  *http.Server
	addr    string
	logger  *slog.Logger
	slicer  *slicer.Slicer
	recon   *slicer.Reconstructor
	content slicer.ContentProvider
	timeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithSliceTimeout bounds each /slice request. Zero means no bound beyond
// the request context.
func WithSliceTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// NewServer wires the routes. rec reconstructs slices and provider backs
// the /file endpoint; both usually share one content provider.
func NewServer(addr string, sl *slicer.Slicer, rec *slicer.Reconstructor, provider slicer.ContentProvider, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		addr:    addr,
		logger:  logger,
		slicer:  sl,
		recon:   rec,
		content: provider,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.applyMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /slice", s.handleSlice)
	s.router.Handle("/file", content.Handler(s.content, s.logger))
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}
