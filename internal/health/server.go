package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checker reports whether a dependency is healthy.
type Checker interface {
	Health(ctx context.Context) error
}

// Server provides HTTP endpoints for health monitoring and metrics.
type Server struct {
	checks map[string]Checker
	server *http.Server
}

// NewServer creates a new health server. checks may be empty.
func NewServer(port int, checks map[string]Checker) *Server {
	mux := http.NewServeMux()
	s := &Server{
		checks: checks,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	failing := make([]string, 0)

	for name, check := range s.checks {
		if err := check.Health(r.Context()); err != nil {
			status = "degraded"
			failing = append(failing, name)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"failing": failing,
	})
}
