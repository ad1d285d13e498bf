// Package merging resolves the field-by-field merge of duplicate groups
package merging

import (
	"context"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/policy"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Resolver merges duplicate groups according to a field policy
type Resolver struct {
	logger      ectologger.Logger
	policy      *policy.Policy
	detection   models.ChangeDetection
	fieldMerger *FieldMerger
}

// NewResolver creates a new Resolver. An empty detection mode falls back to cardinality.
func NewResolver(p *policy.Policy, detection models.ChangeDetection, logger ectologger.Logger) *Resolver {
	if detection == "" {
		detection = models.ChangeDetectionCardinality
	}
	return &Resolver{
		logger:      logger,
		policy:      p,
		detection:   detection,
		fieldMerger: NewFieldMerger(),
	}
}

// MergeAll merges every group, preserving group order
func (r *Resolver) MergeAll(ctx context.Context, groups []models.DuplicateGroup) []models.MergeResult {
	ctx, span := tracing.StartSpan(ctx, "merging.Resolver.MergeAll")
	defer span.End()

	results := make([]models.MergeResult, 0, len(groups))
	changed := 0
	for _, g := range groups {
		result := r.Merge(g)
		if result.HasChanges() {
			changed++
		}
		results = append(results, result)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"groups":           len(groups),
		"groups_changed":   changed,
		"change_detection": r.detection,
	}).Info("Merged duplicate groups")

	return results
}

// Merge computes the merged attributes of one group and the attributes that differ from the
// destination's current values. It has no side effects.
func (r *Resolver) Merge(group models.DuplicateGroup) models.MergeResult {
	records := group.Records()
	dest := group.Destination

	result := models.MergeResult{
		GroupID:           group.GroupID,
		DestinationID:     dest.ID,
		SourceIDs:         group.SourceIDs(),
		MergedAttributes:  make(map[string]any, len(r.policy.Fields)),
		ChangedAttributes: []string{},
	}

	for _, f := range r.policy.Fields {
		switch f.Kind {
		case models.AttributeKindSet:
			current, _ := dest.Current[f.Name].([]any)
			union := r.fieldMerger.UnionSet(f.Name, current, records)
			if len(union) == 0 {
				continue
			}
			result.MergedAttributes[f.Name] = union
			if r.collectionChanged(keysOf(current), keysOf(union)) {
				result.ChangedAttributes = append(result.ChangedAttributes, f.Name)
			}

		case models.AttributeKindRelation:
			current, _ := dest.Current[f.Name].([]string)
			union := r.fieldMerger.UnionRelation(f.Name, current, records)
			if len(union) == 0 {
				continue
			}
			result.MergedAttributes[f.Name] = union
			if r.collectionChanged(current, union) {
				result.ChangedAttributes = append(result.ChangedAttributes, f.Name)
			}

		default:
			value, ok, conflict := r.fieldMerger.MergeScalar(f.Name, records)
			if !ok {
				if f.Default == nil {
					continue
				}
				value = f.Default
			}
			if conflict != nil {
				result.Conflicts = append(result.Conflicts, *conflict)
			}
			result.MergedAttributes[f.Name] = value
			if !policy.Equivalent(value, dest.Current[f.Name]) {
				result.ChangedAttributes = append(result.ChangedAttributes, f.Name)
			}
		}
	}

	return result
}

// collectionChanged compares a merged union against the destination's current collection.
// Cardinality mode is the conservative proxy: the union grew. Difference mode reports any
// union member the destination does not already hold.
func (r *Resolver) collectionChanged(current, union []string) bool {
	if r.detection == models.ChangeDetectionDifference {
		return ectolinq.Any(union, func(key string) bool {
			return !ectolinq.Contains(current, key)
		})
	}
	return len(union) > len(current)
}

func keysOf(items []any) []string {
	keys := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := policy.ValueKey(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}
