// Package publish implements the Publish API (C12, spec.md §4.10): producer
// helpers REST handlers use to emit work onto the bus. No local validation
// beyond required-field presence; builders are the source of truth.
package publish

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/bus"
	"github.com/jayc13/my-dashboard-sub000/internal/domain"
)

const (
	ChannelE2EReportGenerate  = "e2e:report:generate"
	ChannelNotificationCreate = "notification:create"
	ChannelPullRequestDelete  = "pull-request:delete"
)

// Publisher wraps a bus.Bus with the three producer helpers.
type Publisher struct {
	bus bus.Bus
}

func New(b bus.Bus) *Publisher {
	return &Publisher{bus: b}
}

// E2EReport publishes an E2EReportMessage for date. If msg.RequestID is
// empty, a uuid is generated so callers can correlate retries.
func (p *Publisher) E2EReport(ctx context.Context, msg domain.E2EReportMessage) error {
	if msg.Date == "" {
		return apperrors.New(apperrors.ParseError, "date is required")
	}
	if msg.RequestID == "" {
		msg.RequestID = uuid.NewString()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return apperrors.ParseErr("marshal e2e report message", err)
	}
	return p.bus.Publish(ctx, ChannelE2EReportGenerate, body)
}

// Notification publishes a NotificationInput.
func (p *Publisher) Notification(ctx context.Context, input domain.NotificationInput) error {
	if input.Title == "" || input.Message == "" {
		return apperrors.New(apperrors.ParseError, "title and message are required")
	}
	body, err := json.Marshal(input)
	if err != nil {
		return apperrors.ParseErr("marshal notification input", err)
	}
	return p.bus.Publish(ctx, ChannelNotificationCreate, body)
}

// PullRequestDeletion publishes a PullRequestDeletionRequest.
func (p *Publisher) PullRequestDeletion(ctx context.Context, req domain.PullRequestDeletionRequest) error {
	if req.ID == 0 {
		return apperrors.New(apperrors.ParseError, "id is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return apperrors.ParseErr("marshal pull request deletion request", err)
	}
	return p.bus.Publish(ctx, ChannelPullRequestDelete, body)
}
