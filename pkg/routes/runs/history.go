package runs

import (
	"context"
	"net/http"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

const defaultHistorySize = 100

// MemoryHistory keeps the most recent reports in process. It is the run history when no
// Postgres report table is configured.
type MemoryHistory struct {
	mu      sync.RWMutex
	size    int
	reports []*models.Report
}

// NewMemoryHistory keeps up to size reports
func NewMemoryHistory(size int) *MemoryHistory {
	if size <= 0 {
		size = defaultHistorySize
	}
	return &MemoryHistory{size: size}
}

// WriteReport records or replaces a report by run id
func (h *MemoryHistory) WriteReport(_ context.Context, report *models.Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, r := range h.reports {
		if r.RunID == report.RunID {
			h.reports[i] = report
			return nil
		}
	}
	h.reports = append(h.reports, report)
	if len(h.reports) > h.size {
		h.reports = h.reports[len(h.reports)-h.size:]
	}
	return nil
}

// Get returns a stored report
func (h *MemoryHistory) Get(_ context.Context, runID string) (*models.Report, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range h.reports {
		if r.RunID == runID {
			return r, nil
		}
	}
	return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "merge run %s not found", runID)
}

// List returns summaries newest first
func (h *MemoryHistory) List(_ context.Context, collection string, limit int) ([]models.RunSummary, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.RunSummary, 0)
	for i := len(h.reports) - 1; i >= 0; i-- {
		r := h.reports[i]
		if collection != "" && r.Collection != collection {
			continue
		}
		out = append(out, Summarize(r))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Summarize projects a report onto its listing view
func Summarize(r *models.Report) models.RunSummary {
	return models.RunSummary{
		RunID:               r.RunID,
		Collection:          r.Collection,
		Mode:                r.Mode,
		Status:              r.Status,
		Message:             r.Message,
		Error:               r.Error,
		Groups:              r.Counts.Groups,
		RecordsArchived:     r.Counts.RecordsArchived,
		DestinationsUpdated: r.Counts.DestinationsUpdated,
		Errors:              r.Counts.Errors,
		StartedAt:           r.StartedAt,
		FinishedAt:          r.FinishedAt,
	}
}
