// Package repository implements the Report/Application/Notification
// Repositories (spec.md §4.4–§4.5): CRUD over the relational schema in
// spec.md §6, grounded on internal/app/storage/postgres/store_admin.go's
// $N-placeholder/ExecContext/QueryRowContext shape.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/domain"
	"github.com/jayc13/my-dashboard-sub000/internal/store"
)

// AppRepository is C5: standard CRUD on apps, plus the "watching" query.
type AppRepository struct {
	store *store.Store
}

func NewAppRepository(s *store.Store) *AppRepository {
	return &AppRepository{store: s}
}

type appRow struct {
	ID                      int64          `db:"id"`
	Code                    string         `db:"code"`
	Name                    string         `db:"name"`
	PipelineURL             sql.NullString `db:"pipeline_url"`
	E2ETriggerConfiguration sql.NullString `db:"e2e_trigger_configuration"`
	Watching                bool           `db:"watching"`
	CreatedAt               time.Time      `db:"created_at"`
	UpdatedAt               time.Time      `db:"updated_at"`
}

func (r appRow) toDomain() domain.App {
	app := domain.App{
		ID:        r.ID,
		Code:      r.Code,
		Name:      r.Name,
		Watching:  r.Watching,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.PipelineURL.Valid {
		app.PipelineURL = &r.PipelineURL.String
	}
	if r.E2ETriggerConfiguration.Valid {
		app.E2ETriggerConfiguration = &r.E2ETriggerConfiguration.String
	}
	return app
}

// GetByID resolves a single app by surrogate id, or (nil, nil) if absent.
func (r *AppRepository) GetByID(ctx context.Context, id int64) (*domain.App, error) {
	var row appRow
	err := r.store.DB().GetContext(ctx, &row, `
		SELECT id, code, name, pipeline_url, e2e_trigger_configuration, watching, created_at, updated_at
		FROM apps WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.DBErr("get app by id", err)
	}
	app := row.toDomain()
	return &app, nil
}

// GetWatching returns every app with watching = true, per spec.md §4.5.
func (r *AppRepository) GetWatching(ctx context.Context) ([]domain.App, error) {
	var rows []appRow
	err := r.store.DB().SelectContext(ctx, &rows, `
		SELECT id, code, name, pipeline_url, e2e_trigger_configuration, watching, created_at, updated_at
		FROM apps WHERE watching = true ORDER BY id
	`)
	if err != nil {
		return nil, apperrors.DBErr("list watching apps", err)
	}
	apps := make([]domain.App, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, row.toDomain())
	}
	return apps, nil
}

// Create inserts a new app, respecting UNIQUE(code).
func (r *AppRepository) Create(ctx context.Context, app domain.App) (domain.App, error) {
	now := time.Now().UTC()
	err := r.store.DB().QueryRowContext(ctx, `
		INSERT INTO apps (code, name, pipeline_url, e2e_trigger_configuration, watching, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`, app.Code, app.Name, app.PipelineURL, app.E2ETriggerConfiguration, app.Watching, now).Scan(&app.ID)
	if err != nil {
		return domain.App{}, apperrors.DBErr("create app", err)
	}
	app.CreatedAt, app.UpdatedAt = now, now
	return app, nil
}

// Update applies a partial update to name/pipelineUrl/e2eTriggerConfiguration/watching.
func (r *AppRepository) Update(ctx context.Context, app domain.App) error {
	now := time.Now().UTC()
	res, err := r.store.Exec(ctx, `
		UPDATE apps SET name = $2, pipeline_url = $3, e2e_trigger_configuration = $4, watching = $5, updated_at = $6
		WHERE id = $1
	`, app.ID, app.Name, app.PipelineURL, app.E2ETriggerConfiguration, app.Watching, now)
	if err != nil {
		return apperrors.DBErr("update app", err)
	}
	if res.AffectedRows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an app; spec.md §3 requires this to cascade its details.
func (r *AppRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.store.Exec(ctx, `DELETE FROM apps WHERE id = $1`, id)
	if err != nil {
		return apperrors.DBErr("delete app", err)
	}
	return nil
}
