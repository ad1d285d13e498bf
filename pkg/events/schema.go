package events

import (
	"time"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeRunCompleted EventType = "sorrel.run.completed"
	EventTypeGroupMerged  EventType = "sorrel.group.merged"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Collection    string    `json:"collection"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// RunCompletedEvent is emitted once per finished run
type RunCompletedEvent struct {
	BaseEvent
	RunID      string              `json:"run_id"`
	Mode       models.RunMode      `json:"mode"`
	Status     models.RunStatus    `json:"status"`
	Message    string              `json:"message"`
	Error      string              `json:"error,omitempty"`
	Counts     models.ReportCounts `json:"counts"`
	Coverage   string              `json:"coverage,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// GroupMergedEvent is emitted for each duplicate group a live run wrote to
type GroupMergedEvent struct {
	BaseEvent
	RunID             string             `json:"run_id"`
	GroupID           string             `json:"group_id"`
	DestinationID     string             `json:"destination_id"`
	ArchivedIDs       []string           `json:"archived_ids"`
	Updated           bool               `json:"updated"`
	ChangedAttributes []string           `json:"changed_attributes"`
	Status            models.GroupStatus `json:"status"`
	ErrorCount        int                `json:"error_count"`
}
