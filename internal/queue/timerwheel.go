package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jayc13/my-dashboard-sub000/internal/bus"
	"github.com/jayc13/my-dashboard-sub000/internal/domain"
	"github.com/jayc13/my-dashboard-sub000/internal/logger"
	"github.com/jayc13/my-dashboard-sub000/internal/metrics"
)

const (
	wheelInterval = 2 * time.Second
	wheelBatch    = 10
)

// TimerWheel periodically releases due retry entries back onto the main
// queue, grounded on automation.Service.runScheduler's ticker/stopCh shape.
type TimerWheel struct {
	bus       bus.Bus
	retryKey  string
	queueKey  string
	drain     func(ctx context.Context) error
	log       *logrus.Entry
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewTimerWheel builds a wheel bound to one retry/queue key pair. drain is
// invoked once per tick after any due entries are pushed back onto
// queueKey, so released retries are picked up immediately rather than
// waiting for an unrelated publish to trigger the next drain (spec.md
// §4.7: "the drain loop picks them up").
func NewTimerWheel(b bus.Bus, retryKey, queueKey string, drain func(ctx context.Context) error, log *logger.Logger) *TimerWheel {
	return &TimerWheel{
		bus:      b,
		retryKey: retryKey,
		queueKey: queueKey,
		drain:    drain,
		log:      log.WithField("timerwheel", retryKey),
	}
}

// Start runs the periodic release loop until Stop is called.
func (w *TimerWheel) Start(ctx context.Context) {
	w.stopCh = make(chan struct{})
	w.stoppedCh = make(chan struct{})
	go w.run(ctx)
}

// Stop ends the periodic loop and waits for the current tick to finish.
func (w *TimerWheel) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *TimerWheel) run(ctx context.Context) {
	defer close(w.stoppedCh)
	ticker := time.NewTicker(wheelInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.releaseDue(ctx)
		}
	}
}

func (w *TimerWheel) releaseDue(ctx context.Context) {
	now := float64(time.Now().UnixMilli())
	members, err := w.bus.ZRangeByScore(ctx, w.retryKey, now, wheelBatch)
	if err != nil {
		w.log.WithError(err).Error("zrangebyscore failed")
		return
	}

	released := 0
	for _, member := range members {
		var entry domain.RetryEntry
		if err := json.Unmarshal(member, &entry); err != nil {
			w.log.WithError(err).Warn("dropping unparseable retry entry")
			if err := w.bus.ZRem(ctx, w.retryKey, member); err != nil {
				w.log.WithError(err).Error("zrem of unparseable entry failed")
			}
			continue
		}
		if err := w.bus.ZRem(ctx, w.retryKey, member); err != nil {
			w.log.WithError(err).Error("zrem failed")
			continue
		}
		if err := w.bus.RPush(ctx, w.queueKey, entry.Payload); err != nil {
			w.log.WithError(err).Error("requeue failed")
			continue
		}
		released++
		metrics.RetryWheelReleasedTotal.Inc()
	}

	if released > 0 && w.drain != nil {
		if err := w.drain(ctx); err != nil {
			w.log.WithError(err).Error("drain after release failed")
		}
	}
}
