// Package grouping partitions records by identity key and selects each group's destination
package grouping

import (
	"context"
	"errors"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/policy"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Selector groups duplicate records and picks their destinations
type Selector struct {
	logger ectologger.Logger
	policy *policy.Policy
}

// NewSelector creates a new Selector for the given field policy
func NewSelector(p *policy.Policy, logger ectologger.Logger) *Selector {
	return &Selector{
		logger: logger,
		policy: p,
	}
}

// GroupDocuments maps documents through the policy and groups them. Documents without a
// usable identity key are skipped and returned alongside the groups.
func (s *Selector) GroupDocuments(ctx context.Context, docs []models.Document) ([]models.DuplicateGroup, []models.SkippedRecord) {
	ctx, span := tracing.StartSpan(ctx, "grouping.Selector.GroupDocuments")
	defer span.End()

	records := make([]models.Record, 0, len(docs))
	var skipped []models.SkippedRecord
	for i, doc := range docs {
		if doc.InvalidCreatedAt != "" {
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"record_id":  doc.ID,
				"created_at": doc.InvalidCreatedAt,
			}).Warn("Unparseable creation timestamp, record sorts after timestamped records")
		}
		record, err := s.policy.ToRecord(doc, i)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, policy.ErrMissingIdentity) {
				reason = policy.ErrMissingIdentity.Error()
			}
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"record_id": doc.ID,
				"reason":    reason,
			}).Warn("Skipping record without usable identity key")
			skipped = append(skipped, models.SkippedRecord{ID: doc.ID, Reason: reason})
			continue
		}
		records = append(records, record)
	}

	groups := Group(records)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"records":          len(docs),
		"skipped":          len(skipped),
		"duplicate_groups": len(groups),
	}).Info("Grouped records by identity key")

	return groups, skipped
}

// Group partitions records by identity key, keeps groups of two or more and picks the
// destination of each. It is a pure function of its input: the same records always produce
// the same groups in the same order (order of first key appearance).
func Group(records []models.Record) []models.DuplicateGroup {
	buckets := make(map[string][]models.Record)
	var order []string
	for _, r := range records {
		if r.IdentityKey == "" {
			continue
		}
		if _, ok := buckets[r.IdentityKey]; !ok {
			order = append(order, r.IdentityKey)
		}
		buckets[r.IdentityKey] = append(buckets[r.IdentityKey], r)
	}

	groups := make([]models.DuplicateGroup, 0)
	for _, key := range order {
		members := buckets[key]
		if len(members) < 2 {
			continue
		}
		sorted := SortByCreatedAt(members)
		groups = append(groups, models.DuplicateGroup{
			GroupID:     key,
			Destination: sorted[0],
			Sources:     sorted[1:],
		})
	}
	return groups
}

// SortByCreatedAt returns a copy of records ordered oldest first. Records without a creation
// timestamp sort after every timestamped record; ties keep their input position.
func SortByCreatedAt(records []models.Record) []models.Record {
	sorted := make([]models.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Before(sorted[i], sorted[j])
	})
	return sorted
}

// Before reports whether a sorts strictly before b in destination order
func Before(a, b models.Record) bool {
	aHas, bHas := a.HasCreatedAt(), b.HasCreatedAt()
	switch {
	case aHas && bHas:
		if !a.CreatedAt.Equal(*b.CreatedAt) {
			return a.CreatedAt.Before(*b.CreatedAt)
		}
	case aHas != bHas:
		return aHas
	}
	return a.Position < b.Position
}
