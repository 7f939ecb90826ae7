// Package prreaper implements the PR Reaper (C11, spec.md §4.9): consumes
// pull request deletion requests and removes the corresponding row.
package prreaper

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/domain"
	"github.com/jayc13/my-dashboard-sub000/internal/logger"
	"github.com/jayc13/my-dashboard-sub000/internal/repository"
)

// Reaper deletes one pull request row per message received.
type Reaper struct {
	pullRequests *repository.PullRequestRepository
	log          *logrus.Entry
}

func New(pullRequests *repository.PullRequestRepository, log *logger.Logger) *Reaper {
	return &Reaper{pullRequests: pullRequests, log: log.WithField("component", "prreaper")}
}

// Handle decodes payload as a domain.PullRequestDeletionRequest and deletes
// the row. Errors are logged and swallowed (spec.md §4.9): there is no
// retry or dead-letter for this pipeline.
func (r *Reaper) Handle(ctx context.Context, payload []byte) error {
	var req domain.PullRequestDeletionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return apperrors.ParseErr("decode pull request deletion request", err)
	}

	if err := r.pullRequests.Delete(ctx, req.ID); err != nil {
		r.log.WithError(err).WithField("pullRequestId", req.ID).Error("failed to delete pull request")
		return nil
	}
	r.log.WithField("pullRequestId", req.ID).
		WithField("pullRequestNumber", req.PullRequestNumber).
		WithField("repository", req.Repository).
		Info("pull request deleted")
	return nil
}
