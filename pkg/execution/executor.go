// Package execution applies planned mutations against the document store
package execution

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"golang.org/x/time/rate"

	appctx "github.com/Ramsey-B/sorrel/pkg/context"
	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const (
	// DefaultWorkers keeps one mutation in flight at a time
	DefaultWorkers = 1

	outcomeSuccess       = "success"
	outcomeFailure       = "failure"
	outcomeNotDispatched = "not_dispatched"
)

// Options controls mutation dispatch
type Options struct {
	// Workers is the number of mutations in flight at once
	Workers int
	// Delay is the minimum interval between two dispatches. Zero disables rate limiting.
	Delay time.Duration
}

// Executor dispatches mutation intents with per-mutation failure isolation
type Executor struct {
	logger  ectologger.Logger
	store   store.DocumentStore
	workers int
	limiter *rate.Limiter
}

// NewExecutor creates a new Executor
func NewExecutor(s store.DocumentStore, opts Options, logger ectologger.Logger) *Executor {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var limiter *rate.Limiter
	if opts.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Delay), 1)
	}

	return &Executor{
		logger:  logger,
		store:   s,
		workers: workers,
		limiter: limiter,
	}
}

type indexedIntent struct {
	index  int
	intent models.MutationIntent
}

// Execute applies every intent and returns one result per intent, in intent order.
//
// A failed mutation never stops its siblings. Once ctx is done no further mutation is
// dispatched; mutations already in flight run to completion and every undispatched mutation
// is returned with Dispatched=false and an error.
func (e *Executor) Execute(ctx context.Context, intents []models.MutationIntent) []models.ExecutionResult {
	ctx, span := tracing.StartSpan(ctx, "execution.Executor.Execute")
	defer span.End()

	results := make([]models.ExecutionResult, len(intents))
	for i, intent := range intents {
		results[i] = models.ExecutionResult{
			Kind:    intent.Kind,
			GroupID: intent.GroupID,
			PageID:  intent.PageID,
		}
	}
	if len(intents) == 0 {
		return results
	}

	workers := e.workers
	if workers > len(intents) {
		workers = len(intents)
	}

	e.logger.WithContext(ctx).Infof("Executing %d mutations with %d workers", len(intents), workers)

	// in-flight store calls are not cut short by cancellation
	callCtx := context.WithoutCancel(ctx)

	itemChan := make(chan indexedIntent)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemChan {
				results[item.index] = e.apply(callCtx, item.intent)
			}
		}()
	}

	dispatched := e.dispatch(ctx, intents, itemChan)
	close(itemChan)
	wg.Wait()

	failed := 0
	for i := dispatched; i < len(intents); i++ {
		results[i].Error = fmt.Sprintf("mutation not dispatched: %v", context.Cause(ctx))
		metrics.RecordMutation(string(intents[i].Kind), outcomeNotDispatched, 0)
	}
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"mutations":  len(intents),
		"dispatched": dispatched,
		"failed":     failed,
	})
	if dispatched < len(intents) {
		log.Warn("Execution cancelled before every mutation was dispatched")
	} else {
		log.Info("Executed mutations")
	}

	return results
}

// dispatch hands intents to the workers in order and returns how many were handed off
func (e *Executor) dispatch(ctx context.Context, intents []models.MutationIntent, itemChan chan<- indexedIntent) int {
	for i, intent := range intents {
		if ctx.Err() != nil {
			return i
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return i
			}
		}
		// a done ctx wins over an idle worker
		select {
		case <-ctx.Done():
			return i
		default:
		}
		select {
		case <-ctx.Done():
			return i
		case itemChan <- indexedIntent{index: i, intent: intent}:
		}
	}
	return len(intents)
}

// apply performs one store call
func (e *Executor) apply(ctx context.Context, intent models.MutationIntent) models.ExecutionResult {
	ctx, span := tracing.StartSpan(ctx, "execution.Executor.apply")
	defer span.End()

	result := models.ExecutionResult{
		Kind:       intent.Kind,
		GroupID:    intent.GroupID,
		PageID:     intent.PageID,
		Dispatched: true,
	}

	start := time.Now()
	var err error
	switch intent.Kind {
	case models.MutationUpdateDestination:
		err = e.store.UpdatePartial(ctx, intent.PageID, intent.Properties)
	case models.MutationArchiveSource:
		err = e.store.Archive(ctx, intent.PageID)
	default:
		err = httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown mutation kind %q", intent.Kind)
	}
	result.Duration = time.Since(start)

	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
		result.Error = err.Error()
		if httperror.IsHTTPError(err) {
			result.StatusCode = httperror.GetStatusCode(err)
		}
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"run_id":   appctx.GetRunID(ctx),
			"kind":     intent.Kind,
			"group_id": intent.GroupID,
			"page_id":  intent.PageID,
		}).Warn("Mutation failed")
	} else {
		result.Success = true
		result.StatusCode = http.StatusOK
	}
	metrics.RecordMutation(string(intent.Kind), outcome, result.Duration.Seconds())

	return result
}
