// Package store implements the SQL Store Adapter (spec.md §4.2): pooled
// connections, parameterized query/exec, multi-statement exec, and
// transaction scope.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
)

// Store wraps a pooled *sql.DB (opened through lib/pq) in an sqlx.DB for
// struct-scan convenience, grounded on internal/platform/database/database.go
// (the Open + ping-on-connect shape) and applications/jam/store_pg.go (the
// transaction-scope shape).
type Store struct {
	db *sqlx.DB
	// txActive marks whether a transaction is currently active on this Store
	// value, so a second concurrent Transaction call on the same logical
	// caller fails fast per spec.md §4.2 instead of silently nesting.
	txActive bool
}

// Result mirrors spec.md §4.2's exec contract.
type Result struct {
	InsertID     int64
	AffectedRows int64
}

// ErrTransactionInProgress is returned when Transaction is called while one
// is already active on the same Store value.
var ErrTransactionInProgress = fmt.Errorf("transaction already in progress")

// Open establishes the pooled connection and verifies connectivity with a
// ping, per spec.md §4.2.
func Open(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, apperrors.ConfigErr("database DSN is required", nil)
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.DBErr("open database", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperrors.DBErr("ping database", err)
	}

	return &Store{db: db}, nil
}

// FromDB wraps an already-open *sql.DB (e.g. a sqlmock connection in tests).
func FromDB(db *sql.DB, driverName string) *Store {
	return &Store{db: sqlx.NewDb(db, driverName)}
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sqlx.DB for repositories that need StructScan.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Query runs a parameterized SELECT and returns the resulting rows. Callers
// are responsible for closing the returned *sqlx.Rows.
func (s *Store) Query(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.DBErr("query", err)
	}
	return rows, nil
}

// Exec runs a parameterized INSERT/UPDATE/DELETE.
func (s *Store) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, apperrors.DBErr("exec", err)
	}
	affected, _ := res.RowsAffected()
	insertID, _ := res.LastInsertId() // 0 on drivers without RETURNING support
	return Result{InsertID: insertID, AffectedRows: affected}, nil
}

// ExecMulti splits sql on ';', drops empty fragments, and executes each
// sequentially on one pooled connection that is released on both success and
// failure, per spec.md §4.2.
func (s *Store) ExecMulti(ctx context.Context, sqlText string) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return apperrors.DBErr("acquire connection", err)
	}
	defer conn.Close()

	for _, fragment := range strings.Split(sqlText, ";") {
		stmt := strings.TrimSpace(fragment)
		if stmt == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return apperrors.DBErr("exec statement", err)
		}
	}
	return nil
}

// Tx is the handle passed into a Transaction callback.
type Tx struct {
	*sqlx.Tx
}

// Transaction acquires a connection, begins, runs fn, and commits; on any
// error it rolls back and releases the connection. Only one transaction per
// Store value may be active at a time; a nested call fails with
// ErrTransactionInProgress per spec.md §4.2.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	if s.txActive {
		return ErrTransactionInProgress
	}
	s.txActive = true
	defer func() { s.txActive = false }()

	sqlxTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.DBErr("begin transaction", err)
	}

	tx := &Tx{Tx: sqlxTx}
	if err := fn(tx); err != nil {
		_ = sqlxTx.Rollback()
		return err
	}

	if err := sqlxTx.Commit(); err != nil {
		return apperrors.DBErr("commit transaction", err)
	}
	return nil
}
