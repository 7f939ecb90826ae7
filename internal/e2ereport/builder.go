// Package e2ereport implements the E2E Report Builder (C9, spec.md §4.8):
// fetch raw test runs for a date window, group by run number, derive
// per-app statistics, and materialize an idempotent summary/detail report.
package e2ereport

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/domain"
	"github.com/jayc13/my-dashboard-sub000/internal/logger"
	"github.com/jayc13/my-dashboard-sub000/internal/repository"
	"github.com/jayc13/my-dashboard-sub000/internal/store"
	"github.com/jayc13/my-dashboard-sub000/internal/testreport"
)

const fetchWindowDays = 14

// RunsFetcher is the subset of testreport.Client the builder depends on,
// narrowed so tests can substitute a stub without an HTTP server.
type RunsFetcher interface {
	GetDailyRunsPerProject(ctx context.Context, q testreport.Query) ([]domain.RawRun, error)
}

// Builder runs the C9 algorithm for one E2EReportMessage.
type Builder struct {
	store    *store.Store
	reports  *repository.ReportRepository
	apps     *repository.AppRepository
	fetcher  RunsFetcher
	log      *logrus.Entry
}

// New builds a Builder. store is the same *store.Store the repositories were
// constructed against — the commit step opens a transaction on it directly.
func New(s *store.Store, reports *repository.ReportRepository, apps *repository.AppRepository, fetcher RunsFetcher, log *logger.Logger) *Builder {
	return &Builder{
		store:   s,
		reports: reports,
		apps:    apps,
		fetcher: fetcher,
		log:     log.WithField("component", "e2ereport"),
	}
}

// Handle runs the full build algorithm for one message. A non-nil return is
// the failing step's error passed through unchanged, so the queue engine can
// apply retry policy: repository and client failures are *apperrors.AppError,
// while a summary update that matches no row yields sql.ErrNoRows and a
// nested transaction yields store.ErrTransactionInProgress.
func (b *Builder) Handle(ctx context.Context, msg domain.E2EReportMessage) error {
	summary, created, err := b.resolveSummary(ctx, msg.Date)
	if err != nil {
		return err
	}
	if !created && summary.Status == domain.SummaryReady {
		b.log.WithField("date", msg.Date).Info("summary already ready, skipping")
		return nil
	}

	apps, err := b.resolveApps(ctx, msg.AppIDs)
	if err != nil {
		b.markFailed(ctx, summary.ID)
		return err
	}

	runsByProject, err := b.fetchRuns(ctx, msg.Date, apps)
	if err != nil {
		b.markFailed(ctx, summary.ID)
		return err
	}

	details, totals := deriveDetails(summary.ID, apps, runsByProject)

	if err := b.commit(ctx, summary.ID, details, totals); err != nil {
		b.markFailed(ctx, summary.ID)
		return err
	}
	return nil
}

// resolveSummary implements step 1: idempotence check / creation.
func (b *Builder) resolveSummary(ctx context.Context, date string) (domain.Summary, bool, error) {
	existing, err := b.reports.GetSummaryByDate(ctx, date)
	if err != nil {
		return domain.Summary{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	created, err := b.reports.CreateSummary(ctx, date, domain.SummaryPending)
	if err != nil {
		if apperrors.Is(err, apperrors.InvariantViolation) {
			// Concurrent creation raced this one: re-read and proceed
			// with the update path (spec.md §7).
			reread, rereadErr := b.reports.GetSummaryByDate(ctx, date)
			if rereadErr != nil {
				return domain.Summary{}, false, rereadErr
			}
			if reread != nil {
				return *reread, false, nil
			}
		}
		return domain.Summary{}, false, err
	}
	return created, true, nil
}

// resolveApps implements step 2.
func (b *Builder) resolveApps(ctx context.Context, appIDs []int64) ([]domain.App, error) {
	if len(appIDs) > 0 {
		apps := make([]domain.App, 0, len(appIDs))
		for _, id := range appIDs {
			app, err := b.apps.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if app == nil {
				b.log.WithField("appId", id).Warn("unknown app id in report request, dropping")
				continue
			}
			apps = append(apps, *app)
		}
		return apps, nil
	}
	return b.apps.GetWatching(ctx)
}

// fetchRuns implements step 3: the 14-day trailing window ending on date,
// inclusive, UTC calendar days (spec.md §4.8 and §9's dangling-window note).
func (b *Builder) fetchRuns(ctx context.Context, date string, apps []domain.App) (map[string][]domain.RawRun, error) {
	endDate, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, apperrors.ParseErr("invalid date in report message", err)
	}
	endDate = endDate.UTC()
	startDate := endDate.AddDate(0, 0, -fetchWindowDays)

	projects := make([]string, 0, len(apps))
	for _, app := range apps {
		projects = append(projects, app.Code)
	}

	runs, err := b.fetcher.GetDailyRunsPerProject(ctx, testreport.Query{
		Projects:  projects,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return nil, err
	}

	byProject := make(map[string][]domain.RawRun)
	for _, run := range runs {
		key := "unknown"
		if run.ProjectName != nil {
			key = *run.ProjectName
		}
		byProject[key] = append(byProject[key], run)
	}
	return byProject, nil
}

type derivedTotals struct {
	totalRuns  int
	passedRuns int
	failedRuns int
}

// deriveDetails implements step 4: group, derive, and compute one Detail per
// app that had at least one run-number group; apps with no matching project
// runs produce no detail row (spec.md §4.8 edge cases).
func deriveDetails(summaryID int64, apps []domain.App, runsByProject map[string][]domain.RawRun) ([]domain.Detail, derivedTotals) {
	var details []domain.Detail
	var totals derivedTotals

	for _, app := range apps {
		runs := runsByProject[app.Code]
		if len(runs) == 0 {
			continue
		}

		groups := groupByRunNumber(runs)
		if len(groups) == 0 {
			continue
		}

		keys := make([]int64, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

		var passed, failed int
		var lastRunStatus domain.RunStatus
		var lastRunAt time.Time
		var lastFailedRunAt *time.Time

		for i, k := range keys {
			status, firstRecordAt := effectiveGroupStatus(groups[k])
			if status == domain.RunPassed {
				passed++
			} else {
				failed++
				if lastFailedRunAt == nil {
					t := firstRecordAt
					lastFailedRunAt = &t
				}
			}
			if i == 0 {
				lastRunStatus = status
				lastRunAt = firstRecordAt
			}
		}

		total := passed + failed
		var successRate float64
		if total > 0 {
			successRate = float64(passed) / float64(total)
		}

		details = append(details, domain.Detail{
			ReportSummaryID: summaryID,
			AppID:           app.ID,
			TotalRuns:       total,
			PassedRuns:      passed,
			FailedRuns:      failed,
			SuccessRate:     successRate,
			LastRunStatus:   lastRunStatus,
			LastRunAt:       lastRunAt,
			LastFailedRunAt: lastFailedRunAt,
		})
		totals.totalRuns += total
		totals.passedRuns += passed
		totals.failedRuns += failed
	}

	return details, totals
}

// groupByRunNumber partitions runs by RunNumber, dropping records with a
// missing run number (spec.md §4.8 step 4).
func groupByRunNumber(runs []domain.RawRun) map[int64][]domain.RawRun {
	groups := make(map[int64][]domain.RawRun)
	for _, run := range runs {
		if run.RunNumber == nil {
			continue
		}
		groups[*run.RunNumber] = append(groups[*run.RunNumber], run)
	}
	return groups
}

// effectiveGroupStatus derives a run-number group's status: passed iff every
// non-noTests record is passed; an empty or all-noTests group is passed
// (vacuous truth, preserved per spec.md §9 open question). The returned time
// is the created_at of the first record encountered in the group, used for
// lastRunAt/lastFailedRunAt.
func effectiveGroupStatus(records []domain.RawRun) (domain.RunStatus, time.Time) {
	status := domain.RunPassed
	for _, r := range records {
		if r.Status != domain.RunNoTests && r.Status != domain.RunPassed {
			status = domain.RunFailed
			break
		}
	}
	var firstAt time.Time
	if len(records) > 0 {
		firstAt = records[0].CreatedAt
	}
	return status, firstAt
}

// commit implements step 5: delete-details/create-details/update-summary in
// one transaction (spec.md §9's correctness improvement over the source).
func (b *Builder) commit(ctx context.Context, summaryID int64, details []domain.Detail, totals derivedTotals) error {
	return b.store.Transaction(ctx, func(tx *store.Tx) error {
		if err := b.reports.DeleteDetailsBySummaryIdTx(ctx, tx, summaryID); err != nil {
			return err
		}
		for _, d := range details {
			if _, err := b.reports.CreateDetailTx(ctx, tx, d); err != nil {
				return err
			}
		}

		var successRate float64
		if totals.totalRuns > 0 {
			successRate = float64(totals.passedRuns) / float64(totals.totalRuns)
		}
		return b.reports.UpdateSummaryTx(ctx, tx, summaryID, repository.SummaryPatch{
			Status:      domain.SummaryReady,
			TotalRuns:   totals.totalRuns,
			PassedRuns:  totals.passedRuns,
			FailedRuns:  totals.failedRuns,
			SuccessRate: successRate,
		})
	})
}

// markFailed transitions the summary to failed; invoked on any step-2-through-5
// error per spec.md §4.8 step 6. The update error itself is swallowed: the
// caller's original error is what propagates to the queue engine.
func (b *Builder) markFailed(ctx context.Context, summaryID int64) {
	if err := b.reports.UpdateSummary(ctx, summaryID, repository.SummaryPatch{Status: domain.SummaryFailed}); err != nil {
		b.log.WithError(err).Error("failed to mark summary as failed")
	}
}
