package models

import "time"

// RunMode describes how a reconciliation run touches the store
type RunMode string

const (
	// RunModeLive executes every planned mutation
	RunModeLive RunMode = "live"
	// RunModeSample executes the smallest set of groups covering every mutation kind
	RunModeSample RunMode = "sample"
	// RunModeDryRun plans mutations without executing them
	RunModeDryRun RunMode = "dry_run"
)

// RunStatus is the overall outcome of a run
type RunStatus string

const (
	RunStatusNoDuplicates   RunStatus = "no_duplicates"
	RunStatusSuccess        RunStatus = "success"
	RunStatusPartialFailure RunStatus = "partial_failure"
	RunStatusPlanned        RunStatus = "planned"
	RunStatusFailed         RunStatus = "failed"
)

// GroupStatus is the outcome for one duplicate group
type GroupStatus string

const (
	GroupStatusSuccess        GroupStatus = "success"
	GroupStatusPartialFailure GroupStatus = "partial_failure"
	GroupStatusPlanned        GroupStatus = "planned"
)

// ReportCounts are the top-level totals of a run
type ReportCounts struct {
	Groups              int `json:"groups"`
	GroupsProcessed     int `json:"groups_processed"`
	DestinationsUpdated int `json:"destinations_updated"`
	RecordsArchived     int `json:"records_archived"`
	Errors              int `json:"errors"`
	MutationsPlanned    int `json:"mutations_planned"`
	MutationsExecuted   int `json:"mutations_executed"`
	RecordsSkipped      int `json:"records_skipped"`
}

// MutationError is a failed or undispatched mutation
type MutationError struct {
	Kind       MutationKind `json:"kind"`
	PageID     string       `json:"page_id"`
	StatusCode int          `json:"status_code,omitempty"`
	Message    string       `json:"message"`
}

// ArchivedSource is a source archived (or planned for archive) in favor of the destination
type ArchivedSource struct {
	PageID   string         `json:"page_id"`
	Archived bool           `json:"archived"`
	Snapshot RecordSnapshot `json:"snapshot"`
}

// GroupReport summarizes one duplicate group
type GroupReport struct {
	GroupID           string           `json:"group_id"`
	DestinationID     string           `json:"destination_id"`
	Status            GroupStatus      `json:"status"`
	Updated           bool             `json:"updated"`
	ChangedAttributes []string         `json:"changed_attributes"`
	MergedAttributes  map[string]any   `json:"merged_attributes"`
	Archived          []ArchivedSource `json:"archived"`
	Errors            []MutationError  `json:"errors,omitempty"`
	Conflicts         []MergeConflict  `json:"conflicts,omitempty"`
}

// Report is the auditable outcome of a reconciliation run
type Report struct {
	RunID      string          `json:"run_id"`
	Collection string          `json:"collection"`
	Mode       RunMode         `json:"mode"`
	Status     RunStatus       `json:"status"`
	Message    string          `json:"message"`
	Error      string          `json:"error,omitempty"`
	Counts     ReportCounts    `json:"counts"`
	Coverage   string          `json:"coverage,omitempty"`
	Groups     []GroupReport   `json:"groups"`
	Skipped    []SkippedRecord `json:"skipped,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// BackupRecord is a destroyed source record exported for durable backup
type BackupRecord struct {
	RunID       string         `json:"run_id"`
	GroupID     string         `json:"group_id"`
	PageID      string         `json:"page_id"`
	IdentityKey string         `json:"identity_key"`
	CreatedAt   *time.Time     `json:"created_at,omitempty"`
	Attributes  map[string]any `json:"attributes"`
	ArchivedAt  time.Time      `json:"archived_at"`
}

// RunSummary is the listing view of a stored run
type RunSummary struct {
	RunID               string    `json:"run_id" db:"id"`
	Collection          string    `json:"collection" db:"collection"`
	Mode                RunMode   `json:"mode" db:"mode"`
	Status              RunStatus `json:"status" db:"status"`
	Message             string    `json:"message" db:"message"`
	Error               string    `json:"error,omitempty" db:"error"`
	Groups              int       `json:"groups" db:"groups"`
	RecordsArchived     int       `json:"records_archived" db:"records_archived"`
	DestinationsUpdated int       `json:"destinations_updated" db:"destinations_updated"`
	Errors              int       `json:"errors" db:"errors"`
	StartedAt           time.Time `json:"started_at" db:"started_at"`
	FinishedAt          time.Time `json:"finished_at" db:"finished_at"`
}
