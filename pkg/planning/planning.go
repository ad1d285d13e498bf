// Package planning turns merge results into ordered, self-describing mutation intents
package planning

import (
	"context"
	"fmt"
	"slices"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/policy"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Planner builds mutation intents from merge results
type Planner struct {
	logger ectologger.Logger
	policy *policy.Policy
}

// NewPlanner creates a new Planner
func NewPlanner(p *policy.Policy, logger ectologger.Logger) *Planner {
	return &Planner{
		logger: logger,
		policy: p,
	}
}

// Plan emits, per group in input order, an UpdateDestination intent when any attribute
// changed followed by one ArchiveSource intent per source. Every group must have a merge result.
func (p *Planner) Plan(ctx context.Context, groups []models.DuplicateGroup, results []models.MergeResult) ([]models.MutationIntent, error) {
	ctx, span := tracing.StartSpan(ctx, "planning.Planner.Plan")
	defer span.End()

	byGroup := make(map[string]models.MergeResult, len(results))
	for _, r := range results {
		byGroup[r.GroupID] = r
	}

	intents := make([]models.MutationIntent, 0, len(groups)*2)
	updates, archives := 0, 0
	for _, g := range groups {
		result, ok := byGroup[g.GroupID]
		if !ok {
			return nil, fmt.Errorf("no merge result for group %q", g.GroupID)
		}

		groupIntents, err := p.PlanGroup(g, result)
		if err != nil {
			return nil, err
		}
		for _, intent := range groupIntents {
			if intent.Kind == models.MutationUpdateDestination {
				updates++
			} else {
				archives++
			}
		}
		intents = append(intents, groupIntents...)
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"groups":   len(groups),
		"updates":  updates,
		"archives": archives,
	}).Info("Planned mutations")

	return intents, nil
}

// PlanGroup plans the mutations of a single group
func (p *Planner) PlanGroup(group models.DuplicateGroup, result models.MergeResult) ([]models.MutationIntent, error) {
	meta := models.MutationMeta{
		IdentityKey:       group.GroupID,
		DestinationID:     group.Destination.ID,
		SourceIDs:         group.SourceIDs(),
		ChangedAttributes: slices.Clone(result.ChangedAttributes),
	}

	intents := make([]models.MutationIntent, 0, len(group.Sources)+1)
	if result.HasChanges() {
		properties := make(map[string]any, len(result.ChangedAttributes))
		for _, name := range result.ChangedAttributes {
			if name == p.policy.Identity.Name {
				continue
			}
			value, err := p.policy.Format(name, result.MergedAttributes[name])
			if err != nil {
				return nil, fmt.Errorf("group %q: %w", group.GroupID, err)
			}
			properties[name] = value
		}
		intents = append(intents, models.MutationIntent{
			Kind:       models.MutationUpdateDestination,
			GroupID:    group.GroupID,
			PageID:     group.Destination.ID,
			Properties: properties,
			Meta:       meta,
		})
	}

	for _, source := range group.Sources {
		snapshot := p.policy.Snapshot(source)
		intents = append(intents, models.MutationIntent{
			Kind:     models.MutationArchiveSource,
			GroupID:  group.GroupID,
			PageID:   source.ID,
			Meta:     meta,
			Snapshot: &snapshot,
		})
	}
	return intents, nil
}
