package prreaper

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/domain"
	"github.com/jayc13/my-dashboard-sub000/internal/logger"
	"github.com/jayc13/my-dashboard-sub000/internal/repository"
	"github.com/jayc13/my-dashboard-sub000/internal/store"
)

func newTestReaper(t *testing.T) (*Reaper, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	s := store.FromDB(db, "postgres")
	return New(repository.NewPullRequestRepository(s), logger.NewDefault("test")), mock
}

func TestReaper_Handle_DeletesPullRequest(t *testing.T) {
	r, mock := newTestReaper(t)
	mock.ExpectExec("DELETE FROM pull_requests").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))

	payload, _ := json.Marshal(domain.PullRequestDeletionRequest{ID: 5, PullRequestNumber: 42, Repository: "org/repo"})
	if err := r.Handle(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReaper_Handle_ParseErrorOnBadJSON(t *testing.T) {
	r, _ := newTestReaper(t)
	err := r.Handle(context.Background(), []byte("not json"))
	if !apperrors.Is(err, apperrors.ParseError) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestReaper_Handle_SwallowsRepositoryError(t *testing.T) {
	r, mock := newTestReaper(t)
	mock.ExpectExec("DELETE FROM pull_requests").WillReturnError(errDBDown{})

	payload, _ := json.Marshal(domain.PullRequestDeletionRequest{ID: 1})
	if err := r.Handle(context.Background(), payload); err != nil {
		t.Fatalf("expected error to be swallowed, got %v", err)
	}
}

type errDBDown struct{}

func (errDBDown) Error() string { return "db down" }
