package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jayc13/my-dashboard-sub000/internal/domain"
	"github.com/jayc13/my-dashboard-sub000/internal/store"
)

func newMockNotificationRepo(t *testing.T) (*NotificationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	s := store.FromDB(db, "postgres")
	return NewNotificationRepository(s), mock
}

func TestNotificationRepository_Create(t *testing.T) {
	repo, mock := newMockNotificationRepo(t)
	mock.ExpectQuery("INSERT INTO notifications").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	n, err := repo.Create(context.Background(), domain.NotificationInput{
		Title: "Report ready", Message: "ok", Type: domain.NotificationSuccess,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID != 9 || n.IsRead {
		t.Fatalf("unexpected notification: %+v", n)
	}
}

func TestNotificationRepository_List_NewestFirst(t *testing.T) {
	repo, mock := newMockNotificationRepo(t)
	rows := sqlmock.NewRows([]string{"id", "title", "message", "link", "type", "is_read", "created_at"}).
		AddRow(2, "second", "m", nil, "info", false, time.Now()).
		AddRow(1, "first", "m", nil, "info", true, time.Now().Add(-time.Hour))
	mock.ExpectQuery("SELECT id, title, message").
		WithArgs(10).
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestNotificationRepository_MarkRead_NotFound(t *testing.T) {
	repo, mock := newMockNotificationRepo(t)
	mock.ExpectExec("UPDATE notifications").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), 123)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}
