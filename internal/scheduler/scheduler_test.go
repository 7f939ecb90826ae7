package scheduler

import (
	"testing"

	"github.com/jayc13/my-dashboard-sub000/internal/bus"
	"github.com/jayc13/my-dashboard-sub000/internal/logger"
	"github.com/jayc13/my-dashboard-sub000/internal/publish"
)

func TestNew_RegistersDailyJob(t *testing.T) {
	pub := publish.New(bus.NewMemory())
	s, err := New(pub, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.cron.Entries()) != 1 {
		t.Fatalf("expected 1 registered job, got %d", len(s.cron.Entries()))
	}
}

func TestStartStop(t *testing.T) {
	pub := publish.New(bus.NewMemory())
	s, err := New(pub, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	s.Stop()
}
