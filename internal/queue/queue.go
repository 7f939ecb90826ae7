// Package queue implements the Queue Engine (C8, spec.md §4.7): a durable
// FIFO work queue with a delayed retry wheel and a dead-letter list, single-
// flight per processor. Grounded on automation.Service's ticker-based
// scheduler loop shape, repurposed from on-chain trigger polling to
// list-pop draining.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/bus"
	"github.com/jayc13/my-dashboard-sub000/internal/logger"
	"github.com/jayc13/my-dashboard-sub000/internal/metrics"
)

// Builder processes one decoded queue message. Returning an error triggers
// retry policy, except an apperrors.ParseError, which drops the item without
// retry; returning nil completes the item.
type Builder func(ctx context.Context, payload []byte) error

// Keys names the three bus locations one queue instance owns.
type Keys struct {
	Queue      string // FIFO list
	Retry      string // sorted set, score = retryAt ms epoch
	DeadLetter string // terminal list
}

// Policy controls the retry/backoff bound.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Engine drains Keys.Queue, single-flight, applying Policy on failure.
type Engine struct {
	name   string
	bus    bus.Bus
	keys   Keys
	policy Policy
	build  Builder
	decode func([]byte) (retryCount int, date string, err error)
	bump   func([]byte) ([]byte, error)
	log    *logrus.Entry

	mu      sync.Mutex
	running bool
}

// New builds a queue engine. decode extracts retryCount and date from a
// payload purely for dead-letter metadata; it must not fail for well-formed
// messages — a decode failure there is treated as a parse error (dropped,
// not retried). bump returns payload with its retryCount field incremented
// by one, so the re-enqueued message carries the advanced count forward.
func New(name string, b bus.Bus, keys Keys, policy Policy, build Builder, decode func([]byte) (int, string, error), bump func([]byte) ([]byte, error), log *logger.Logger) *Engine {
	return &Engine{
		name:   name,
		bus:    b,
		keys:   keys,
		policy: policy,
		build:  build,
		decode: decode,
		bump:   bump,
		log:    log.WithField("queue", name),
	}
}

// Drain pops from the queue until empty, invoking build for each item.
// Exactly one drain runs at a time per Engine; a second call while one is
// in flight returns immediately without blocking (spec.md §4.7's
// single-flight invariant).
func (e *Engine) Drain(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	processed := 0
	for {
		payload, ok, err := e.bus.LPop(ctx, e.keys.Queue)
		if err != nil {
			return apperrors.DBErr("drain "+e.name, err)
		}
		if !ok {
			break
		}
		processed++
		if err := e.build(ctx, payload); err != nil {
			e.handleFailure(ctx, payload, err)
		}
	}
	metrics.QueueDrainDepth.WithLabelValues(e.name).Set(float64(processed))
	return nil
}

func (e *Engine) handleFailure(ctx context.Context, payload []byte, cause error) {
	if apperrors.Is(cause, apperrors.ParseError) {
		e.log.WithError(cause).Warn("dropping unparseable queue message without retry")
		return
	}

	retryCount, date, decodeErr := e.decode(payload)
	if decodeErr != nil {
		e.log.WithError(decodeErr).Warn("dropping unparseable queue message on failure path")
		return
	}

	if retryCount < e.policy.MaxRetries {
		bumped, err := e.bump(payload)
		if err != nil {
			e.log.WithError(err).Error("failed to bump retry count")
			return
		}
		if err := ScheduleRetry(ctx, e.bus, e.keys.Retry, bumped, retryCount, e.policy.BaseDelay, cause); err != nil {
			e.log.WithError(err).Error("failed to schedule retry")
			return
		}
		metrics.MessagesRetriedTotal.WithLabelValues(e.name).Inc()
		e.log.WithFields(logrus.Fields{"retryCount": retryCount, "date": date}).Warn("scheduled retry")
		return
	}

	if err := DeadLetter(ctx, e.bus, e.keys.DeadLetter, payload, retryCount, date, cause); err != nil {
		e.log.WithError(err).Error("failed to dead-letter message")
		return
	}
	metrics.MessagesDeadLetteredTotal.WithLabelValues(e.name).Inc()
	e.log.WithFields(logrus.Fields{"retryCount": retryCount, "date": date}).Error("moved message to dead-letter")
}
