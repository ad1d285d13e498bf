package models

// ChangeDetection selects how set and relation attributes are marked changed
type ChangeDetection string

const (
	// ChangeDetectionCardinality marks a collection changed when the union is larger than the
	// destination's original collection.
	ChangeDetectionCardinality ChangeDetection = "cardinality"
	// ChangeDetectionDifference marks a collection changed when the union holds any value the
	// destination does not.
	ChangeDetectionDifference ChangeDetection = "difference"
)

// MergeConflict records a scalar attribute for which duplicates held different values
type MergeConflict struct {
	Field         string   `json:"field"`
	Values        []any    `json:"values"`
	RecordIDs     []string `json:"record_ids"`
	ResolvedValue any      `json:"resolved_value"`
	Resolution    string   `json:"resolution"`
}

// MergeResult is the field-by-field merge of one duplicate group
type MergeResult struct {
	GroupID           string          `json:"group_id"`
	DestinationID     string          `json:"destination_id"`
	SourceIDs         []string        `json:"source_ids"`
	MergedAttributes  map[string]any  `json:"merged_attributes"`
	ChangedAttributes []string        `json:"changed_attributes"`
	Conflicts         []MergeConflict `json:"conflicts,omitempty"`
}

// HasChanges reports whether the destination needs to be written
func (r MergeResult) HasChanges() bool {
	return len(r.ChangedAttributes) > 0
}
