// Package notification implements the Notification Builder (C10, spec.md
// §4.9): decode, persist, and forget. There is no retry or dead-letter for
// notifications; all errors are logged and swallowed.
package notification

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/domain"
	"github.com/jayc13/my-dashboard-sub000/internal/logger"
	"github.com/jayc13/my-dashboard-sub000/internal/repository"
)

// Builder writes one notification row per message received.
type Builder struct {
	notifications *repository.NotificationRepository
	log           *logrus.Entry
}

func New(notifications *repository.NotificationRepository, log *logger.Logger) *Builder {
	return &Builder{notifications: notifications, log: log.WithField("component", "notification")}
}

// Handle decodes payload as a domain.NotificationInput and persists it.
// Returning an apperrors.ParseError signals the processor runtime to drop
// the message without logging it twice; all other failures are logged and
// swallowed here, matching the fire-and-forget contract.
func (b *Builder) Handle(ctx context.Context, payload []byte) error {
	var input domain.NotificationInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return apperrors.ParseErr("decode notification input", err)
	}

	if input.Title == "" || input.Message == "" {
		b.log.WithField("input", input).Warn("dropping notification with missing required fields")
		return nil
	}

	if _, err := b.notifications.Create(ctx, input); err != nil {
		b.log.WithError(err).Error("failed to create notification")
	}
	return nil
}
