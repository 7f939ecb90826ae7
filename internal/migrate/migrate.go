// Package migrate applies the schema bootstrap migrations under
// /migrations using golang-migrate, a teacher dependency declared but never
// exercised in production code; SKIP_MIGRATIONS (spec.md's config surface)
// lets an operator opt out when the schema is managed externally.
package migrate

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
)

// Up applies every pending migration in dir against db.
func Up(db *sql.DB, dir string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return apperrors.DBErr("build migrate driver", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "postgres", driver)
	if err != nil {
		return apperrors.DBErr("build migrator", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperrors.DBErr("apply migrations", err)
	}
	return nil
}
