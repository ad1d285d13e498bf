// Package sampling selects the smallest set of duplicate groups whose mutations exercise every
// mutation kind, so a run can be validated against a live store while touching few records.
package sampling

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// Sample greedily selects groups until every mutation kind is covered or maxGroups groups are
// selected (maxGroups <= 0 means unbounded). Groups are ranked by how many distinct kinds they
// contain; a group is only selected when it adds an uncovered kind. The returned intents keep
// their input order and are copies tagged with the coverage summary.
func Sample(intents []models.MutationIntent, maxGroups int) []models.MutationIntent {
	if len(intents) == 0 {
		return []models.MutationIntent{}
	}

	var order []string
	kinds := make(map[string]map[models.MutationKind]bool)
	for _, intent := range intents {
		if _, ok := kinds[intent.GroupID]; !ok {
			order = append(order, intent.GroupID)
			kinds[intent.GroupID] = make(map[models.MutationKind]bool)
		}
		kinds[intent.GroupID][intent.Kind] = true
	}

	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(kinds[ranked[i]]) > len(kinds[ranked[j]])
	})

	covered := make(map[models.MutationKind]bool, len(models.MutationKinds))
	selected := make(map[string]bool)
	for _, groupID := range ranked {
		if allCovered(covered) {
			break
		}
		if maxGroups > 0 && len(selected) >= maxGroups {
			break
		}

		adds := false
		for kind := range kinds[groupID] {
			if !covered[kind] {
				adds = true
				break
			}
		}
		if !adds {
			continue
		}

		selected[groupID] = true
		for kind := range kinds[groupID] {
			covered[kind] = true
		}
	}

	picked := make([]models.MutationIntent, 0)
	for _, intent := range intents {
		if selected[intent.GroupID] {
			picked = append(picked, intent)
		}
	}

	coverage := Summary(len(selected), len(order), len(picked), len(intents), covered)
	out := make([]models.MutationIntent, len(picked))
	for i, intent := range picked {
		out[i] = intent.WithCoverage(coverage)
	}
	return out
}

// Passthrough is the disabled sampler: every intent is returned unchanged
func Passthrough(intents []models.MutationIntent) []models.MutationIntent {
	out := make([]models.MutationIntent, len(intents))
	copy(out, intents)
	return out
}

// Summary formats a coverage summary such as
// "1/3 groups, 2/6 mutations; all kinds covered".
func Summary(groups, totalGroups, mutations, totalMutations int, covered map[models.MutationKind]bool) string {
	prefix := fmt.Sprintf("%d/%d groups, %d/%d mutations", groups, totalGroups, mutations, totalMutations)

	var missing []string
	for _, kind := range models.MutationKinds {
		if !covered[kind] {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) == 0 {
		return prefix + "; all kinds covered"
	}
	return prefix + "; kinds not covered: " + strings.Join(missing, ", ")
}

// CoverageOf returns the coverage summary carried by sampled intents, or "" when unsampled
func CoverageOf(intents []models.MutationIntent) string {
	for _, intent := range intents {
		if intent.Meta.Coverage != "" {
			return intent.Meta.Coverage
		}
	}
	return ""
}

func allCovered(covered map[models.MutationKind]bool) bool {
	for _, kind := range models.MutationKinds {
		if !covered[kind] {
			return false
		}
	}
	return true
}
