package httphealth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jayc13/my-dashboard-sub000/internal/logger"
)

type fakePinger struct{ ok bool }

func (f fakePinger) Ping(ctx context.Context) bool { return f.ok }

func TestHealthz_ReturnsOKWhenBusReachable(t *testing.T) {
	s := New(":0", fakePinger{ok: true}, logger.NewDefault("test"))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthz_ReturnsServiceUnavailableWhenBusUnreachable(t *testing.T) {
	s := New(":0", fakePinger{ok: false}, logger.NewDefault("test"))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMetrics_EndpointServesPrometheusFormat(t *testing.T) {
	s := New(":0", fakePinger{ok: true}, logger.NewDefault("test"))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
