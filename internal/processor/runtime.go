// Package processor implements the Processor Runtime (spec.md §4.6): a
// singleton bound to one channel name, with start/stop lifecycle and
// serialized message dispatch, grounded on automation.Service's
// ticker/stopCh lifecycle shape.
package processor

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/bus"
	"github.com/jayc13/my-dashboard-sub000/internal/logger"
	"github.com/jayc13/my-dashboard-sub000/internal/metrics"
)

// Handler processes one decoded message. A non-nil error on a parse
// failure must be apperrors.ParseError so the runtime can distinguish
// poison input (dropped) from everything else (logged).
type Handler func(ctx context.Context, payload []byte) error

// Processor subscribes to one channel and serializes calls to handle.
// It does not itself retry; C8's queue engine owns retry policy for the
// processors that need it.
type Processor struct {
	name    string
	channel string
	bus     bus.Bus
	handle  Handler
	log     *logrus.Entry

	mu      sync.Mutex
	running bool
	sub     bus.Subscription
	done    chan struct{}
}

// New builds a processor bound to channel, not yet started.
func New(name, channel string, b bus.Bus, handle Handler, log *logger.Logger) *Processor {
	return &Processor{
		name:    name,
		channel: channel,
		bus:     b,
		handle:  handle,
		log:     log.WithField("processor", name),
	}
}

// Start subscribes to the processor's channel and spawns the single
// consumer goroutine. Idempotent: calling Start twice is a no-op.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	sub, err := p.bus.Subscribe(ctx, p.channel)
	if err != nil {
		return apperrors.Wrap(apperrors.DatabaseError, "subscribe to "+p.channel, err)
	}
	p.sub = sub
	p.done = make(chan struct{})
	p.running = true
	go p.consume(ctx, sub, p.done)
	p.log.Info("processor started")
	return nil
}

// Stop unsubscribes and waits for the in-flight handle call, if any, to
// finish. It does not interrupt work already underway (spec.md §5).
func (p *Processor) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	sub := p.sub
	done := p.done
	p.running = false
	p.mu.Unlock()

	err := sub.Close()
	<-done
	p.log.Info("processor stopped")
	return err
}

func (p *Processor) consume(ctx context.Context, sub bus.Subscription, done chan struct{}) {
	defer close(done)
	for payload := range sub.Channel() {
		if err := p.handle(ctx, payload); err != nil {
			if code, ok := apperrors.Code(err); ok && code == apperrors.ParseError {
				p.log.WithError(err).Warn("dropping unparseable message")
				continue
			}
			p.log.WithError(err).Error("handler returned error")
			continue
		}
		metrics.MessagesHandledTotal.WithLabelValues(p.name).Inc()
	}
}
