// Command server runs the background job pipeline: the E2E report builder,
// notification writer, and pull-request reaper processors, their queue
// engine, the daily scheduler trigger, and an ambient health/metrics server.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/bus"
	"github.com/jayc13/my-dashboard-sub000/internal/config"
	"github.com/jayc13/my-dashboard-sub000/internal/domain"
	"github.com/jayc13/my-dashboard-sub000/internal/e2ereport"
	"github.com/jayc13/my-dashboard-sub000/internal/httphealth"
	"github.com/jayc13/my-dashboard-sub000/internal/logger"
	"github.com/jayc13/my-dashboard-sub000/internal/migrate"
	"github.com/jayc13/my-dashboard-sub000/internal/notification"
	"github.com/jayc13/my-dashboard-sub000/internal/processor"
	"github.com/jayc13/my-dashboard-sub000/internal/prreaper"
	"github.com/jayc13/my-dashboard-sub000/internal/publish"
	"github.com/jayc13/my-dashboard-sub000/internal/queue"
	"github.com/jayc13/my-dashboard-sub000/internal/repository"
	"github.com/jayc13/my-dashboard-sub000/internal/scheduler"
	"github.com/jayc13/my-dashboard-sub000/internal/store"
	"github.com/jayc13/my-dashboard-sub000/internal/testreport"
)

const (
	e2eQueueKey      = "e2e:report:queue"
	e2eRetryKey      = "e2e:report:retry"
	e2eDeadLetterKey = "e2e:report:failed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	entry := log.WithField("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlStore, err := store.Open(ctx, cfg.MySQLDSN(), cfg.MySQLConnectionLimit)
	if err != nil {
		entry.WithError(err).Fatal("failed to open database")
	}
	defer sqlStore.Close()

	if !cfg.SkipMigrations {
		if err := migrate.Up(sqlStore.DB().DB, "migrations"); err != nil {
			entry.WithError(err).Fatal("failed to apply migrations")
		}
	}

	redisBus, err := bus.NewRedisBus(ctx, cfg.RedisURL, log)
	if err != nil {
		entry.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisBus.Close()

	reportRepo := repository.NewReportRepository(sqlStore)
	appRepo := repository.NewAppRepository(sqlStore)
	notificationRepo := repository.NewNotificationRepository(sqlStore)
	pullRequestRepo := repository.NewPullRequestRepository(sqlStore)

	reportClient, err := testreport.New(testreport.Config{
		BaseURL: cfg.CypressBaseURL,
		APIKey:  cfg.CypressAPIKey,
		Timeout: cfg.HTTPClientTimeout,
	})
	if err != nil {
		entry.WithError(err).Fatal("failed to build test-report client")
	}

	builder := e2ereport.New(sqlStore, reportRepo, appRepo, reportClient, log)
	notificationBuilder := notification.New(notificationRepo, log)
	reaper := prreaper.New(pullRequestRepo, log)

	queueEngine := queue.New("e2e-report", redisBus, queue.Keys{
		Queue:      e2eQueueKey,
		Retry:      e2eRetryKey,
		DeadLetter: e2eDeadLetterKey,
	}, queue.Policy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  time.Duration(cfg.BaseDelayMS) * time.Millisecond,
	}, func(ctx context.Context, payload []byte) error {
		var msg domain.E2EReportMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return apperrors.ParseErr("decode e2e report message", err)
		}
		return builder.Handle(ctx, msg)
	}, decodeE2EMetadata, bumpE2ERetryCount, log)

	timerWheel := queue.NewTimerWheel(redisBus, e2eRetryKey, e2eQueueKey, queueEngine.Drain, log)
	timerWheel.Start(ctx)
	defer timerWheel.Stop()

	e2eProcessor := processor.New("e2e-report", publish.ChannelE2EReportGenerate, redisBus,
		func(ctx context.Context, payload []byte) error {
			if err := redisBus.RPush(ctx, e2eQueueKey, payload); err != nil {
				return apperrors.DBErr("enqueue e2e report message", err)
			}
			return queueEngine.Drain(ctx)
		}, log)

	notificationProcessor := processor.New("notification", publish.ChannelNotificationCreate, redisBus, notificationBuilder.Handle, log)
	prreaperProcessor := processor.New("pr-reaper", publish.ChannelPullRequestDelete, redisBus, reaper.Handle, log)

	processors := []*processor.Processor{e2eProcessor, notificationProcessor, prreaperProcessor}
	for _, p := range processors {
		if err := p.Start(ctx); err != nil {
			entry.WithError(err).Fatal("failed to start processor")
		}
	}

	pub := publish.New(redisBus)
	cronScheduler, err := scheduler.New(pub, log)
	if err != nil {
		entry.WithError(err).Fatal("failed to build scheduler")
	}
	cronScheduler.Start()

	var healthServer *httphealth.Server
	if cfg.MetricsEnabled {
		healthServer = httphealth.New(":"+strconv.Itoa(cfg.HealthPort), redisBus, log)
		go func() {
			if err := healthServer.Start(); err != nil {
				entry.WithError(err).Error("health server stopped unexpectedly")
			}
		}()
	}

	entry.Info("job pipeline started")
	<-ctx.Done()
	entry.Info("shutdown signal received")

	cronScheduler.Stop()
	for _, p := range processors {
		if err := p.Stop(); err != nil {
			entry.WithError(err).Warn("error stopping processor")
		}
	}
	if healthServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			entry.WithError(err).Warn("error shutting down health server")
		}
	}
	entry.Info("job pipeline stopped")
}

// decodeE2EMetadata extracts retryCount/date for dead-letter bookkeeping,
// without re-running the full builder decode path.
func decodeE2EMetadata(payload []byte) (int, string, error) {
	var msg domain.E2EReportMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return 0, "", err
	}
	return msg.RetryCount, msg.Date, nil
}

// bumpE2ERetryCount increments the retryCount field and re-marshals, so the
// re-enqueued message carries the advanced count forward for the next
// failure (spec.md §4.7's retry monotonicity: 0, 1, 2, then dead-letter).
func bumpE2ERetryCount(payload []byte) ([]byte, error) {
	var msg domain.E2EReportMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	msg.RetryCount++
	return json.Marshal(msg)
}
