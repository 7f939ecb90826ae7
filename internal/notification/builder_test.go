package notification

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

func newTestBuilder(t *testing.T) (*Builder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	s := store.FromDB(db, "postgres")
	return New(repository.NewNotificationRepository(s), logger.NewDefault("test")), mock
}

func TestBuilder_Handle_PersistsNotification(t *testing.T) {
	b, mock := newTestBuilder(t)
	mock.ExpectQuery("INSERT INTO notifications").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	payload, _ := json.Marshal(domain.NotificationInput{Title: "Report ready", Message: "ok", Type: domain.NotificationSuccess})
	if err := b.Handle(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuilder_Handle_ParseErrorOnBadJSON(t *testing.T) {
	b, _ := newTestBuilder(t)
	err := b.Handle(context.Background(), []byte("not json"))
	if !apperrors.Is(err, apperrors.ParseError) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestBuilder_Handle_SwallowsRepositoryError(t *testing.T) {
	b, mock := newTestBuilder(t)
	mock.ExpectQuery("INSERT INTO notifications").WillReturnError(sqlErr{})

	payload, _ := json.Marshal(domain.NotificationInput{Title: "x", Message: "y", Type: domain.NotificationInfo})
	if err := b.Handle(context.Background(), payload); err != nil {
		t.Fatalf("expected error to be swallowed, got %v", err)
	}
}

type sqlErr struct{}

func (sqlErr) Error() string { return "db down" }
