// Package store declares the collaborators the reconciliation pipeline reads from and writes to
package store

import (
	"context"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// DocumentStore is a paginated document collection with partial updates and logical deletes
type DocumentStore interface {
	// QueryAll returns every live document of the collection matching the filter
	QueryAll(ctx context.Context, collection string, filter *models.QueryFilter) ([]models.Document, error)
	// UpdatePartial writes the given properties; properties not present are left unchanged
	UpdatePartial(ctx context.Context, id string, properties map[string]any) error
	// Archive logically deletes a document
	Archive(ctx context.Context, id string) error
}

// BackupSink durably exports destroyed-record snapshots
type BackupSink interface {
	WriteBackup(ctx context.Context, runID string, records []models.BackupRecord) error
}

// ReportSink durably exports or publishes a run report
type ReportSink interface {
	WriteReport(ctx context.Context, report *models.Report) error
}
