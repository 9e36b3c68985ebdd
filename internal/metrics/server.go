package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the metrics registry over HTTP.
type Server struct {
	port   int
	path   string
	logger *slog.Logger

	registry *prometheus.Registry
	server   *http.Server
	extra    map[string]http.Handler
}

// NewServer creates a metrics server with its own registry.
func NewServer(port int, path string, logger *slog.Logger) *Server {
	if path == "" {
		path = "/metrics"
	}
	if port == 0 {
		port = 9090
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		port:     port,
		path:     path,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		extra:    make(map[string]http.Handler),
	}
}

// Handle registers an extra handler, for health and debug endpoints.
// Must be called before Start. Registering "/health" replaces the
// built-in liveness response.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.extra[pattern] = h
}

// Registry returns the underlying registry for instrument registration.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Start begins serving in the background. Handler registration must be
// complete before Start.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	if _, ok := s.extra["/health"]; !ok {
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ok")
		})
	}
	for pattern, h := range s.extra {
		mux.Handle(pattern, h)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()

	s.logger.Info("metrics server started", "port", s.port, "path", s.path)
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
