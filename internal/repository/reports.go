package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/domain"
	"github.com/jayc13/my-dashboard-sub000/internal/store"
)

// ReportRepository is C4: CRUD on summary and detail entities, enforcing
// UNIQUE(date) and UNIQUE(reportSummaryId, appId) and cascading delete.
type ReportRepository struct {
	store *store.Store
}

func NewReportRepository(s *store.Store) *ReportRepository {
	return &ReportRepository{store: s}
}

type summaryRow struct {
	ID          int64     `db:"id"`
	Date        time.Time `db:"date"`
	Status      string    `db:"status"`
	TotalRuns   int       `db:"total_runs"`
	PassedRuns  int       `db:"passed_runs"`
	FailedRuns  int       `db:"failed_runs"`
	SuccessRate float64   `db:"success_rate"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r summaryRow) toDomain() domain.Summary {
	return domain.Summary{
		ID:          r.ID,
		Date:        r.Date.Format("2006-01-02"),
		Status:      domain.SummaryStatus(r.Status),
		TotalRuns:   r.TotalRuns,
		PassedRuns:  r.PassedRuns,
		FailedRuns:  r.FailedRuns,
		SuccessRate: r.SuccessRate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// GetSummaryByDate returns the summary for date ("YYYY-MM-DD"), or (nil, nil)
// if none exists yet — the idempotence check's first step (spec.md §4.8.1).
func (r *ReportRepository) GetSummaryByDate(ctx context.Context, date string) (*domain.Summary, error) {
	var row summaryRow
	err := r.store.DB().GetContext(ctx, &row, `
		SELECT id, date, status, total_runs, passed_runs, failed_runs, success_rate, created_at, updated_at
		FROM e2e_report_summaries WHERE date = $1
	`, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.DBErr("get summary by date", err)
	}
	s := row.toDomain()
	return &s, nil
}

// CreateSummary inserts a new summary, respecting UNIQUE(date). A uniqueness
// violation here is an InvariantViolation (spec.md §7): a concurrent creation
// raced this one; the caller should re-read and proceed with the update path.
func (r *ReportRepository) CreateSummary(ctx context.Context, date string, status domain.SummaryStatus) (domain.Summary, error) {
	now := time.Now().UTC()
	var id int64
	err := r.store.DB().QueryRowContext(ctx, `
		INSERT INTO e2e_report_summaries (date, status, total_runs, passed_runs, failed_runs, success_rate, created_at, updated_at)
		VALUES ($1, $2, 0, 0, 0, 0, $3, $3)
		RETURNING id
	`, date, status, now).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Summary{}, apperrors.InvariantErr("summary already exists for date "+date, err)
		}
		return domain.Summary{}, apperrors.DBErr("create summary", err)
	}
	return domain.Summary{
		ID: id, Date: date, Status: status,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

// SummaryPatch is a partial update; zero-value fields are still applied, so
// callers must populate every field they intend to persist (the builder
// always recomputes totals wholesale, never incrementally).
type SummaryPatch struct {
	Status      domain.SummaryStatus
	TotalRuns   int
	PassedRuns  int
	FailedRuns  int
	SuccessRate float64
}

// UpdateSummary applies a partial update of status and totals.
func (r *ReportRepository) UpdateSummary(ctx context.Context, id int64, patch SummaryPatch) error {
	now := time.Now().UTC()
	res, err := r.store.Exec(ctx, `
		UPDATE e2e_report_summaries
		SET status = $2, total_runs = $3, passed_runs = $4, failed_runs = $5, success_rate = $6, updated_at = $7
		WHERE id = $1
	`, id, patch.Status, patch.TotalRuns, patch.PassedRuns, patch.FailedRuns, patch.SuccessRate, now)
	if err != nil {
		return apperrors.DBErr("update summary", err)
	}
	if res.AffectedRows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type detailRow struct {
	ID              int64        `db:"id"`
	ReportSummaryID int64        `db:"report_summary_id"`
	AppID           int64        `db:"app_id"`
	TotalRuns       int          `db:"total_runs"`
	PassedRuns      int          `db:"passed_runs"`
	FailedRuns      int          `db:"failed_runs"`
	SuccessRate     float64      `db:"success_rate"`
	LastRunStatus   string       `db:"last_run_status"`
	LastRunAt       time.Time    `db:"last_run_at"`
	LastFailedRunAt sql.NullTime `db:"last_failed_run_at"`
}

func (r detailRow) toDomain() domain.Detail {
	d := domain.Detail{
		ID:              r.ID,
		ReportSummaryID: r.ReportSummaryID,
		AppID:           r.AppID,
		TotalRuns:       r.TotalRuns,
		PassedRuns:      r.PassedRuns,
		FailedRuns:      r.FailedRuns,
		SuccessRate:     r.SuccessRate,
		LastRunStatus:   domain.RunStatus(r.LastRunStatus),
		LastRunAt:       r.LastRunAt,
	}
	if r.LastFailedRunAt.Valid {
		d.LastFailedRunAt = &r.LastFailedRunAt.Time
	}
	return d
}

// DeleteDetailsBySummaryId removes all detail rows for a summary, the first
// step of the commit-details sequence in spec.md §4.8.5.
func (r *ReportRepository) DeleteDetailsBySummaryId(ctx context.Context, summaryID int64) error {
	_, err := r.store.Exec(ctx, `DELETE FROM e2e_report_details WHERE report_summary_id = $1`, summaryID)
	if err != nil {
		return apperrors.DBErr("delete details by summary id", err)
	}
	return nil
}

// CreateDetail inserts a detail row, respecting UNIQUE(reportSummaryId, appId).
func (r *ReportRepository) CreateDetail(ctx context.Context, d domain.Detail) (domain.Detail, error) {
	var id int64
	err := r.store.DB().QueryRowContext(ctx, `
		INSERT INTO e2e_report_details
			(report_summary_id, app_id, total_runs, passed_runs, failed_runs, success_rate, last_run_status, last_run_at, last_failed_run_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, d.ReportSummaryID, d.AppID, d.TotalRuns, d.PassedRuns, d.FailedRuns, d.SuccessRate,
		d.LastRunStatus, d.LastRunAt, d.LastFailedRunAt).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Detail{}, apperrors.InvariantErr("detail already exists for this summary/app", err)
		}
		return domain.Detail{}, apperrors.DBErr("create detail", err)
	}
	d.ID = id
	return d, nil
}

// ListDetails returns every detail row owned by summaryID.
func (r *ReportRepository) ListDetails(ctx context.Context, summaryID int64) ([]domain.Detail, error) {
	var rows []detailRow
	err := r.store.DB().SelectContext(ctx, &rows, `
		SELECT id, report_summary_id, app_id, total_runs, passed_runs, failed_runs, success_rate,
		       last_run_status, last_run_at, last_failed_run_at
		FROM e2e_report_details WHERE report_summary_id = $1 ORDER BY app_id
	`, summaryID)
	if err != nil {
		return nil, apperrors.DBErr("list details", err)
	}
	details := make([]domain.Detail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.toDomain())
	}
	return details, nil
}

// DeleteDetailsBySummaryIdTx is DeleteDetailsBySummaryId run inside an
// already-open transaction, used by the E2E report builder's commit step
// (spec.md §9: wrapping delete/create/update in one transaction is a
// correctness improvement over the source).
func (r *ReportRepository) DeleteDetailsBySummaryIdTx(ctx context.Context, tx *store.Tx, summaryID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM e2e_report_details WHERE report_summary_id = $1`, summaryID)
	if err != nil {
		return apperrors.DBErr("delete details by summary id", err)
	}
	return nil
}

// CreateDetailTx is CreateDetail run inside an already-open transaction.
func (r *ReportRepository) CreateDetailTx(ctx context.Context, tx *store.Tx, d domain.Detail) (domain.Detail, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO e2e_report_details
			(report_summary_id, app_id, total_runs, passed_runs, failed_runs, success_rate, last_run_status, last_run_at, last_failed_run_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, d.ReportSummaryID, d.AppID, d.TotalRuns, d.PassedRuns, d.FailedRuns, d.SuccessRate,
		d.LastRunStatus, d.LastRunAt, d.LastFailedRunAt).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Detail{}, apperrors.InvariantErr("detail already exists for this summary/app", err)
		}
		return domain.Detail{}, apperrors.DBErr("create detail", err)
	}
	d.ID = id
	return d, nil
}

// UpdateSummaryTx is UpdateSummary run inside an already-open transaction.
func (r *ReportRepository) UpdateSummaryTx(ctx context.Context, tx *store.Tx, id int64, patch SummaryPatch) error {
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE e2e_report_summaries
		SET status = $2, total_runs = $3, passed_runs = $4, failed_runs = $5, success_rate = $6, updated_at = $7
		WHERE id = $1
	`, id, patch.Status, patch.TotalRuns, patch.PassedRuns, patch.FailedRuns, patch.SuccessRate, now)
	if err != nil {
		return apperrors.DBErr("update summary", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.DBErr("read rows affected", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// isUniqueViolation recognizes a Postgres unique_violation (SQLSTATE 23505).
// Callers only ever see apperrors.InvariantViolation; lib/pq stays an
// implementation detail of this package.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
