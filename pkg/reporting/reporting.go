// Package reporting joins planned mutations with their execution results into an auditable
// run report and the backup payload of destroyed records.
package reporting

import (
	"fmt"
	"time"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/sampling"
)

// MessageNoDuplicates is the report message of a run that found nothing to merge
const MessageNoDuplicates = "no duplicates found"

// Input is everything a run produced, joined by Build
type Input struct {
	RunID      string
	Collection string
	Mode       models.RunMode
	Groups     []models.DuplicateGroup
	Merges     []models.MergeResult
	// Planned is the number of intents planned before sampling
	Planned int
	// Intents are the intents handed to the executor (or planned, for dry runs)
	Intents   []models.MutationIntent
	Results   []models.ExecutionResult
	Skipped   []models.SkippedRecord
	StartedAt time.Time
}

// Build produces the run report and the backup records of successfully archived sources.
// Results are joined to intents by group, page and kind, so completion order does not matter.
// An intent without a result is reported as an error.
func Build(in Input) (*models.Report, []models.BackupRecord) {
	finishedAt := time.Now().UTC()

	merges := make(map[string]models.MergeResult, len(in.Merges))
	for _, m := range in.Merges {
		merges[m.GroupID] = m
	}
	results := make(map[models.MutationKey]models.ExecutionResult, len(in.Results))
	for _, r := range in.Results {
		results[r.Key()] = r
	}
	byGroup := make(map[string][]models.MutationIntent)
	for _, intent := range in.Intents {
		byGroup[intent.GroupID] = append(byGroup[intent.GroupID], intent)
	}

	planned := in.Planned
	if planned == 0 {
		planned = len(in.Intents)
	}

	report := &models.Report{
		RunID:      in.RunID,
		Collection: in.Collection,
		Mode:       in.Mode,
		Coverage:   sampling.CoverageOf(in.Intents),
		Groups:     make([]models.GroupReport, 0, len(byGroup)),
		Skipped:    in.Skipped,
		StartedAt:  in.StartedAt,
		FinishedAt: finishedAt,
		Counts: models.ReportCounts{
			Groups:           len(in.Groups),
			MutationsPlanned: planned,
			RecordsSkipped:   len(in.Skipped),
		},
	}
	backups := make([]models.BackupRecord, 0)

	for _, g := range in.Groups {
		intents, ok := byGroup[g.GroupID]
		if !ok {
			continue
		}
		merge := merges[g.GroupID]

		gr := models.GroupReport{
			GroupID:           g.GroupID,
			DestinationID:     g.Destination.ID,
			ChangedAttributes: merge.ChangedAttributes,
			MergedAttributes:  merge.MergedAttributes,
			Archived:          []models.ArchivedSource{},
			Conflicts:         merge.Conflicts,
		}
		if gr.ChangedAttributes == nil {
			gr.ChangedAttributes = []string{}
		}

		for _, intent := range intents {
			if in.Mode == models.RunModeDryRun {
				if intent.Kind == models.MutationArchiveSource && intent.Snapshot != nil {
					gr.Archived = append(gr.Archived, models.ArchivedSource{PageID: intent.PageID, Snapshot: *intent.Snapshot})
				}
				continue
			}

			result, ok := results[intent.Key()]
			if !ok {
				gr.Errors = append(gr.Errors, models.MutationError{
					Kind:    intent.Kind,
					PageID:  intent.PageID,
					Message: "no execution result recorded",
				})
				continue
			}
			if result.Dispatched {
				report.Counts.MutationsExecuted++
			}

			switch intent.Kind {
			case models.MutationUpdateDestination:
				gr.Updated = result.Success
				if result.Success {
					report.Counts.DestinationsUpdated++
				}
			case models.MutationArchiveSource:
				archived := models.ArchivedSource{PageID: intent.PageID, Archived: result.Success}
				if intent.Snapshot != nil {
					archived.Snapshot = *intent.Snapshot
				}
				gr.Archived = append(gr.Archived, archived)
				if result.Success {
					report.Counts.RecordsArchived++
					backups = append(backups, backupRecord(in.RunID, intent, finishedAt))
				}
			}

			if !result.Success {
				gr.Errors = append(gr.Errors, models.MutationError{
					Kind:       intent.Kind,
					PageID:     intent.PageID,
					StatusCode: result.StatusCode,
					Message:    result.Error,
				})
			}
		}

		switch {
		case in.Mode == models.RunModeDryRun:
			gr.Status = models.GroupStatusPlanned
		case len(gr.Errors) == 0:
			gr.Status = models.GroupStatusSuccess
		default:
			gr.Status = models.GroupStatusPartialFailure
		}

		report.Counts.Errors += len(gr.Errors)
		report.Groups = append(report.Groups, gr)
	}
	report.Counts.GroupsProcessed = len(report.Groups)

	switch {
	case report.Counts.Groups == 0:
		report.Status = models.RunStatusNoDuplicates
		report.Message = MessageNoDuplicates
	case in.Mode == models.RunModeDryRun:
		report.Status = models.RunStatusPlanned
		report.Message = fmt.Sprintf("planned %d mutations across %d duplicate groups", len(in.Intents), report.Counts.GroupsProcessed)
	case report.Counts.Errors == 0:
		report.Status = models.RunStatusSuccess
		report.Message = fmt.Sprintf("merged %d duplicate groups, archived %d records", report.Counts.GroupsProcessed, report.Counts.RecordsArchived)
	default:
		report.Status = models.RunStatusPartialFailure
		report.Message = fmt.Sprintf("merged %d duplicate groups with %d errors", report.Counts.GroupsProcessed, report.Counts.Errors)
	}

	return report, backups
}

// Failed builds the report of a run that could not read its input snapshot
func Failed(runID, collection string, mode models.RunMode, startedAt time.Time, err error) *models.Report {
	return &models.Report{
		RunID:      runID,
		Collection: collection,
		Mode:       mode,
		Status:     models.RunStatusFailed,
		Message:    "failed to read records; nothing was planned",
		Error:      err.Error(),
		Groups:     []models.GroupReport{},
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
}

func backupRecord(runID string, intent models.MutationIntent, archivedAt time.Time) models.BackupRecord {
	record := models.BackupRecord{
		RunID:      runID,
		GroupID:    intent.GroupID,
		PageID:     intent.PageID,
		ArchivedAt: archivedAt,
	}
	if intent.Snapshot != nil {
		record.IdentityKey = intent.Snapshot.IdentityKey
		record.CreatedAt = intent.Snapshot.CreatedAt
		record.Attributes = intent.Snapshot.Attributes
	}
	return record
}
