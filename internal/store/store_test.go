package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return FromDB(db, "postgres"), mock
}

func TestExec_WrapsErrorAsDatabaseError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO apps").WillReturnError(assertErr)

	_, err := s.Exec(context.Background(), "INSERT INTO apps (name) VALUES ($1)", "AppA")
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperrors.Is(err, apperrors.DatabaseError) {
		t.Fatalf("expected DatabaseError, got %v", err)
	}
}

func TestExecMulti_SplitsOnSemicolonAndSkipsEmpty(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.ExecMulti(context.Background(), "CREATE TABLE a (id int);; CREATE TABLE b (id int);")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransaction_CommitsOnSuccess(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE e2e_report_summaries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.Transaction(context.Background(), func(tx *Tx) error {
		_, execErr := tx.ExecContext(context.Background(), "UPDATE e2e_report_summaries SET status=$1 WHERE id=$2", "ready", 1)
		return execErr
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE e2e_report_summaries").WillReturnError(assertErr)
	mock.ExpectRollback()

	err := s.Transaction(context.Background(), func(tx *Tx) error {
		_, execErr := tx.ExecContext(context.Background(), "UPDATE e2e_report_summaries SET status=$1 WHERE id=$2", "failed", 1)
		return execErr
	})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransaction_RejectsConcurrentTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var nestedErr error
	err := s.Transaction(context.Background(), func(tx *Tx) error {
		nestedErr = s.Transaction(context.Background(), func(*Tx) error { return nil })
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error from outer transaction: %v", err)
	}
	if nestedErr != ErrTransactionInProgress {
		t.Fatalf("expected ErrTransactionInProgress, got %v", nestedErr)
	}
}

var assertErr = sqlErr{"boom"}

type sqlErr struct{ msg string }

func (e sqlErr) Error() string { return e.msg }
