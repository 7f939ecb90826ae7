package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/bus"
	"github.com/jayc13/my-dashboard-sub000/internal/logger"
)

func TestProcessor_DispatchesSerializedly(t *testing.T) {
	b := bus.NewMemory()
	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup
	wg.Add(3)

	p := New("test", "ch", b, func(ctx context.Context, payload []byte) error {
		defer wg.Done()
		mu.Lock()
		order = append(order, string(payload))
		mu.Unlock()
		return nil
	}, logger.NewDefault("test"))

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	for _, m := range []string{"a", "b", "c"} {
		if err := b.Publish(context.Background(), "ch", []byte(m)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("expected 3 messages handled, got %d", len(order))
	}
}

func TestProcessor_ParseErrorDropsWithoutRetryLogOnly(t *testing.T) {
	b := bus.NewMemory()
	called := make(chan struct{}, 1)

	p := New("test", "ch", b, func(ctx context.Context, payload []byte) error {
		called <- struct{}{}
		return apperrors.ParseErr("bad json", nil)
	}, logger.NewDefault("test"))

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	if err := b.Publish(context.Background(), "ch", []byte("garbage")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestProcessor_StartIsIdempotent(t *testing.T) {
	b := bus.NewMemory()
	p := New("test", "ch", b, func(ctx context.Context, payload []byte) error { return nil }, logger.NewDefault("test"))

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestProcessor_StopWaitsForInFlightHandle(t *testing.T) {
	b := bus.NewMemory()
	started := make(chan struct{})
	release := make(chan struct{})

	p := New("test", "ch", b, func(ctx context.Context, payload []byte) error {
		close(started)
		<-release
		return nil
	}, logger.NewDefault("test"))

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := b.Publish(context.Background(), "ch", []byte("x")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	<-started

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before in-flight handle released")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned after release")
	}
}
