package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jayc13/my-dashboard-sub000/internal/store"
)

func TestPullRequestRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	s := store.FromDB(db, "postgres")
	repo := NewPullRequestRepository(s)

	mock.ExpectExec("DELETE FROM pull_requests").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
