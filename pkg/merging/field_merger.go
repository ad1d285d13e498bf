package merging

import (
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/policy"
)

// ResolutionMostRecent is the conflict resolution recorded for scalar attributes
const ResolutionMostRecent = "most_recent"

// FieldMerger handles attribute-level merge logic
type FieldMerger struct{}

// NewFieldMerger creates a new FieldMerger
func NewFieldMerger() *FieldMerger {
	return &FieldMerger{}
}

// MergeScalar picks the newest non-empty value of a scalar attribute. Records must be in group
// order (destination first). The second return value is false when no record holds a value.
func (m *FieldMerger) MergeScalar(field string, records []models.Record) (any, bool, *models.MergeConflict) {
	values := make([]fieldValue, 0, len(records))
	for _, r := range records {
		if val := r.Values[field]; !policy.IsEmpty(val) {
			values = append(values, fieldValue{Value: val, Record: r})
		}
	}

	if len(values) == 0 {
		return nil, false, nil
	}

	if len(values) == 1 {
		return values[0].Value, true, nil
	}

	result := m.mostRecent(values)
	conflict := m.detectConflict(field, values)
	if conflict != nil {
		conflict.ResolvedValue = result
		conflict.Resolution = ResolutionMostRecent
	}
	return result, true, conflict
}

// UnionSet returns the deduplicated union of a set attribute: the destination's current
// values first, then every record's values in group order.
func (m *FieldMerger) UnionSet(field string, current []any, records []models.Record) []any {
	result := make([]any, 0, len(current))
	seen := make(map[string]bool)
	add := func(items []any) {
		for _, item := range items {
			if policy.IsEmpty(item) {
				continue
			}
			key := policy.ValueKey(item)
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, item)
		}
	}

	add(current)
	for _, r := range records {
		items, _ := r.Values[field].([]any)
		add(items)
	}
	return result
}

// UnionRelation returns the deduplicated union of relation ids, destination's current ids first
func (m *FieldMerger) UnionRelation(field string, current []string, records []models.Record) []string {
	result := make([]string, 0, len(current))
	seen := make(map[string]bool)
	add := func(ids []string) {
		for _, id := range ids {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			result = append(result, id)
		}
	}

	add(current)
	for _, r := range records {
		ids, _ := r.Values[field].([]string)
		add(ids)
	}
	return result
}

// mostRecent returns the value of the holder with the latest creation timestamp. Holders
// without a timestamp lose to timestamped ones; remaining ties go to the earliest in group order.
func (m *FieldMerger) mostRecent(values []fieldValue) any {
	best := values[0]
	for _, v := range values[1:] {
		if newer(v.Record, best.Record) {
			best = v
		}
	}
	return best.Value
}

// detectConflict checks whether holders disagree on the value
func (m *FieldMerger) detectConflict(field string, values []fieldValue) *models.MergeConflict {
	first := policy.ValueKey(values[0].Value)
	allSame := true
	for _, v := range values[1:] {
		if policy.ValueKey(v.Value) != first {
			allSame = false
			break
		}
	}
	if allSame {
		return nil
	}

	conflictValues := make([]any, len(values))
	recordIDs := make([]string, len(values))
	for i, v := range values {
		conflictValues[i] = v.Value
		recordIDs[i] = v.Record.ID
	}
	return &models.MergeConflict{
		Field:     field,
		Values:    conflictValues,
		RecordIDs: recordIDs,
	}
}

type fieldValue struct {
	Value  any
	Record models.Record
}

// newer reports whether a is strictly more recent than b
func newer(a, b models.Record) bool {
	aHas, bHas := a.HasCreatedAt(), b.HasCreatedAt()
	switch {
	case aHas && bHas:
		return a.CreatedAt.After(*b.CreatedAt)
	default:
		return aHas && !bHas
	}
}
