// Package pipeline runs the merge reconciliation stages end to end: read, group, merge, plan,
// sample, execute, report and export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/Ramsey-B/sorrel/pkg/context"
	"github.com/Ramsey-B/sorrel/pkg/execution"
	"github.com/Ramsey-B/sorrel/pkg/grouping"
	"github.com/Ramsey-B/sorrel/pkg/merging"
	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/planning"
	"github.com/Ramsey-B/sorrel/pkg/policy"
	"github.com/Ramsey-B/sorrel/pkg/redis"
	"github.com/Ramsey-B/sorrel/pkg/reporting"
	"github.com/Ramsey-B/sorrel/pkg/sampling"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// DefaultLockTTL bounds how long a crashed run can block the next one
const DefaultLockTTL = 30 * time.Minute

// ErrRunInProgress is returned when another run holds the collection's lock
var ErrRunInProgress = httperror.NewHTTPError(http.StatusConflict, "a reconciliation run is already in progress for this collection")

// Locker serializes runs over the same collection
type Locker interface {
	Hold(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// Config configures a pipeline
type Config struct {
	Collection      string
	ChangeDetection models.ChangeDetection
	Executor        execution.Options
	LockTTL         time.Duration
}

// RunOptions are chosen per run
type RunOptions struct {
	RunID     string
	Mode      models.RunMode
	MaxGroups int
	Filter    *models.QueryFilter
}

// Pipeline wires the reconciliation stages to a document store and its output sinks
type Pipeline struct {
	logger     ectologger.Logger
	policy     *policy.Policy
	store      store.DocumentStore
	collection string
	lockTTL    time.Duration

	selector *grouping.Selector
	resolver *merging.Resolver
	planner  *planning.Planner
	executor *execution.Executor

	backup  store.BackupSink
	reports []store.ReportSink
	locker  Locker
}

// Option configures optional pipeline collaborators
type Option func(*Pipeline)

// WithBackupSink exports destroyed-record snapshots after each run
func WithBackupSink(sink store.BackupSink) Option {
	return func(p *Pipeline) {
		p.backup = sink
	}
}

// WithReportSinks exports every run report
func WithReportSinks(sinks ...store.ReportSink) Option {
	return func(p *Pipeline) {
		p.reports = append(p.reports, sinks...)
	}
}

// WithLocker serializes runs over the same collection
func WithLocker(locker Locker) Option {
	return func(p *Pipeline) {
		p.locker = locker
	}
}

// New creates a new Pipeline
func New(p *policy.Policy, s store.DocumentStore, cfg Config, logger ectologger.Logger, opts ...Option) *Pipeline {
	collection := cfg.Collection
	if collection == "" {
		collection = p.Collection
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}

	pl := &Pipeline{
		logger:     logger,
		policy:     p,
		store:      s,
		collection: collection,
		lockTTL:    lockTTL,
		selector:   grouping.NewSelector(p, logger),
		resolver:   merging.NewResolver(p, cfg.ChangeDetection, logger),
		planner:    planning.NewPlanner(p, logger),
		executor:   execution.NewExecutor(s, cfg.Executor, logger),
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

// Collection returns the collection the pipeline reconciles
func (p *Pipeline) Collection() string {
	return p.collection
}

// Run performs one reconciliation run. A report is returned whenever the run got past the
// lock, including when the initial read failed (status failed, with a non-nil error). Sink
// failures are returned as an error alongside the unchanged report.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Run")
	defer span.End()

	startedAt := time.Now().UTC()
	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	ctx = appctx.SetRunID(ctx, runID)
	mode := opts.Mode
	if mode == "" {
		mode = models.RunModeLive
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":     runID,
		"collection": p.collection,
		"mode":       mode,
	})

	if p.locker != nil {
		release, err := p.locker.Hold(ctx, "run:"+p.collection, p.lockTTL)
		if err != nil {
			if errors.Is(err, redis.ErrLockNotAcquired) {
				return nil, ErrRunInProgress
			}
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.WithError(err).Warn("Failed to release run lock")
			}
		}()
	}

	log.Info("Starting reconciliation run")

	docs, err := p.store.QueryAll(ctx, p.collection, opts.Filter)
	if err != nil {
		log.WithError(err).Error("Failed to read records, aborting before planning")
		report := reporting.Failed(runID, p.collection, mode, startedAt, err)
		return p.finish(ctx, report, nil, fmt.Errorf("failed to read collection %s: %w", p.collection, err))
	}

	groups, skipped := p.selector.GroupDocuments(ctx, docs)
	metrics.RecordGrouping(p.collection, len(groups), len(skipped))

	merges := p.resolver.MergeAll(ctx, groups)

	intents, err := p.planner.Plan(ctx, groups, merges)
	if err != nil {
		log.WithError(err).Error("Failed to plan mutations")
		report := reporting.Failed(runID, p.collection, mode, startedAt, err)
		return p.finish(ctx, report, nil, err)
	}

	selected := sampling.Passthrough(intents)
	if mode == models.RunModeSample {
		selected = sampling.Sample(intents, opts.MaxGroups)
		log.WithField("coverage", sampling.CoverageOf(selected)).Info("Sampled mutations")
	}

	var results []models.ExecutionResult
	if mode != models.RunModeDryRun {
		results = p.executor.Execute(ctx, selected)
	}

	report, backups := reporting.Build(reporting.Input{
		RunID:      runID,
		Collection: p.collection,
		Mode:       mode,
		Groups:     groups,
		Merges:     merges,
		Planned:    len(intents),
		Intents:    selected,
		Results:    results,
		Skipped:    skipped,
		StartedAt:  startedAt,
	})

	return p.finish(ctx, report, backups, nil)
}

// finish exports the run's outputs and records metrics
func (p *Pipeline) finish(ctx context.Context, report *models.Report, backups []models.BackupRecord, runErr error) (*models.Report, error) {
	// exports must not be lost when the run itself was cancelled
	sinkCtx := context.WithoutCancel(ctx)
	log := p.logger.WithContext(ctx).WithField("run_id", report.RunID)

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}

	if p.backup != nil && len(backups) > 0 {
		if err := p.backup.WriteBackup(sinkCtx, report.RunID, backups); err != nil {
			log.WithError(err).Error("Failed to write backup")
			metrics.RecordSinkWrite("backup", "failure")
			errs = append(errs, fmt.Errorf("failed to write backup: %w", err))
		} else {
			metrics.RecordSinkWrite("backup", "success")
		}
	}

	for _, sink := range p.reports {
		if err := sink.WriteReport(sinkCtx, report); err != nil {
			log.WithError(err).Error("Failed to write report")
			metrics.RecordSinkWrite("report", "failure")
			errs = append(errs, fmt.Errorf("failed to write report: %w", err))
			continue
		}
		metrics.RecordSinkWrite("report", "success")
	}

	metrics.RecordRun(report.Collection, string(report.Mode), string(report.Status), report.FinishedAt.Sub(report.StartedAt).Seconds())

	log.WithFields(map[string]any{
		"status":               report.Status,
		"groups":               report.Counts.Groups,
		"destinations_updated": report.Counts.DestinationsUpdated,
		"records_archived":     report.Counts.RecordsArchived,
		"errors":               report.Counts.Errors,
	}).Info(report.Message)

	return report, errors.Join(errs...)
}
