package mergerun

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

var summaryColumns = []string{
	"id", "collection", "mode", "status", "message", "error",
	"groups", "records_archived", "destinations_updated", "errors",
	"started_at", "finished_at",
}

// Repository stores run reports in merge_runs
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a merge run repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// WriteReport upserts the report keyed by run id
func (r *Repository) WriteReport(ctx context.Context, report *models.Report) error {
	ctx, span := tracing.StartSpan(ctx, "mergerun.Repository.WriteReport")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("merge_runs")
	ib.Cols(append(summaryColumns, "report")...)
	ib.Values(
		report.RunID, report.Collection, string(report.Mode), string(report.Status), report.Message, report.Error,
		report.Counts.Groups, report.Counts.RecordsArchived, report.Counts.DestinationsUpdated, report.Counts.Errors,
		report.StartedAt, report.FinishedAt,
		database.JSONB[*models.Report]{Data: report},
	)

	query, args := ib.Build()
	query += " ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, message = EXCLUDED.message, error = EXCLUDED.error," +
		" groups = EXCLUDED.groups, records_archived = EXCLUDED.records_archived, destinations_updated = EXCLUDED.destinations_updated," +
		" errors = EXCLUDED.errors, report = EXCLUDED.report, finished_at = EXCLUDED.finished_at"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", report.RunID).Error("Failed to write merge run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write merge run")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"run_id": report.RunID, "status": report.Status}).Info("Stored merge run")
	return nil
}

// Get returns the full report of a run
func (r *Repository) Get(ctx context.Context, runID string) (*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "mergerun.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("report")
	sb.From("merge_runs")
	sb.Where(sb.Equal("id", runID))

	query, args := sb.Build()
	var report database.JSONB[*models.Report]
	if err := r.db.GetContext(ctx, &report, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "merge run %s not found", runID)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", runID).Error("Failed to get merge run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge run")
	}
	if report.Data == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "merge run %s not found", runID)
	}
	return report.Data, nil
}

// List returns the most recent runs, optionally for one collection
func (r *Repository) List(ctx context.Context, collection string, limit int) ([]models.RunSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "mergerun.Repository.List")
	defer span.End()

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(summaryColumns...)
	sb.From("merge_runs")
	if collection != "" {
		sb.Where(sb.Equal("collection", collection))
	}
	sb.OrderBy("started_at").Desc()
	sb.Limit(limit)

	query, args := sb.Build()
	runs := make([]models.RunSummary, 0)
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list merge runs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list merge runs")
	}
	return runs, nil
}
