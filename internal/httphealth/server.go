// Package httphealth supplements spec.md with the ambient health/metrics
// endpoint the teacher's automation service exposes via gorilla mux; here
// rebuilt on the teacher's declared-but-unused go-chi/chi dependency, since
// the REST API itself is explicitly out of scope (spec.md §1).
package httphealth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/jayc13/my-dashboard-sub000/internal/logger"
	"github.com/jayc13/my-dashboard-sub000/internal/metrics"
)

// Pinger is the narrow bus capability the health handler needs.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// Server exposes /healthz and /metrics on one chi router; no business REST
// routes live here (spec.md §1 excludes the REST layer entirely).
type Server struct {
	httpServer *http.Server
	log        *logrus.Entry
}

// New builds a Server bound to addr. bus is pinged on every /healthz call.
func New(addr string, b Pinger, log *logger.Logger) *Server {
	entry := log.WithField("component", "httphealth")
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		ok := b.Ping(ctx)
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]bool{"busReachable": ok})
	})

	r.Handle("/metrics", metrics.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: r,
		},
		log: entry,
	}
}

// Start listens until the process exits or Shutdown is called. It runs in
// the caller's goroutine; callers typically invoke it with `go`.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("health server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, honoring ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("health server shutting down")
	return s.httpServer.Shutdown(ctx)
}
