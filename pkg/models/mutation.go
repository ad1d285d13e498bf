package models

import (
	"maps"
	"slices"
	"time"
)

// MutationKind is the kind of store write a mutation performs
type MutationKind string

const (
	// MutationUpdateDestination writes merged attributes onto the destination record
	MutationUpdateDestination MutationKind = "update_destination"
	// MutationArchiveSource archives a duplicate source record
	MutationArchiveSource MutationKind = "archive_source"
)

// MutationKinds is the universe of mutation kinds, in report order
var MutationKinds = []MutationKind{MutationUpdateDestination, MutationArchiveSource}

// MutationMeta carries the context needed to execute and report a mutation
type MutationMeta struct {
	IdentityKey       string   `json:"identity_key"`
	DestinationID     string   `json:"destination_id"`
	SourceIDs         []string `json:"source_ids"`
	ChangedAttributes []string `json:"changed_attributes,omitempty"`
	Coverage          string   `json:"coverage,omitempty"`
}

// RecordSnapshot is the pre-archive image of a source record
type RecordSnapshot struct {
	ID          string         `json:"id"`
	IdentityKey string         `json:"identity_key"`
	CreatedAt   *time.Time     `json:"created_at,omitempty"`
	Attributes  map[string]any `json:"attributes"`
}

// MutationIntent is a planned, not yet executed store write. Intents are values and are never
// modified after planning; use the With* helpers to derive tagged copies.
type MutationIntent struct {
	Kind       MutationKind    `json:"kind"`
	GroupID    string          `json:"group_id"`
	PageID     string          `json:"page_id"`
	Properties map[string]any  `json:"properties,omitempty"`
	Meta       MutationMeta    `json:"meta"`
	Snapshot   *RecordSnapshot `json:"snapshot,omitempty"`
}

// Key joins an intent to its execution result
func (m MutationIntent) Key() MutationKey {
	return MutationKey{GroupID: m.GroupID, PageID: m.PageID, Kind: m.Kind}
}

// WithCoverage returns a copy of the intent tagged with a sampler coverage summary
func (m MutationIntent) WithCoverage(coverage string) MutationIntent {
	out := m
	out.Properties = maps.Clone(m.Properties)
	out.Meta.SourceIDs = slices.Clone(m.Meta.SourceIDs)
	out.Meta.ChangedAttributes = slices.Clone(m.Meta.ChangedAttributes)
	out.Meta.Coverage = coverage
	return out
}

// MutationKey identifies a mutation within a run
type MutationKey struct {
	GroupID string
	PageID  string
	Kind    MutationKind
}

// ExecutionResult is the outcome of applying one mutation against the store
type ExecutionResult struct {
	Kind       MutationKind  `json:"kind"`
	GroupID    string        `json:"group_id"`
	PageID     string        `json:"page_id"`
	Dispatched bool          `json:"dispatched"`
	Success    bool          `json:"success"`
	StatusCode int           `json:"status_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Key joins a result to its intent
func (r ExecutionResult) Key() MutationKey {
	return MutationKey{GroupID: r.GroupID, PageID: r.PageID, Kind: r.Kind}
}
