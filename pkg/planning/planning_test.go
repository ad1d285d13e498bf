package planning

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/grouping"
	"github.com/Ramsey-B/sorrel/pkg/merging"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/policy"
)

func ts(year int) *time.Time {
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

func plan(t *testing.T, docs []models.Document) ([]models.DuplicateGroup, []models.MutationIntent) {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	p := policy.DefaultPolicy()
	ctx := context.Background()

	groups, _ := grouping.NewSelector(p, logger).GroupDocuments(ctx, docs)
	results := merging.NewResolver(p, "", logger).MergeAll(ctx, groups)
	intents, err := NewPlanner(p, logger).Plan(ctx, groups, results)
	require.NoError(t, err)
	return groups, intents
}

func TestPlan_Scenario(t *testing.T) {
	_, intents := plan(t, []models.Document{
		{ID: "A", CreatedAt: ts(2020), Properties: map[string]any{"email": "x@y.com", "tags": []any{"a"}}},
		{ID: "B", CreatedAt: ts(2021), Properties: map[string]any{"email": "x@y.com", "tags": []any{"b"}, "phone": "555"}},
	})

	require.Len(t, intents, 2)

	update := intents[0]
	assert.Equal(t, models.MutationUpdateDestination, update.Kind)
	assert.Equal(t, "A", update.PageID)
	assert.Equal(t, "x@y.com", update.GroupID)
	assert.Equal(t, map[string]any{
		"phone":  "555",
		"status": map[string]any{"name": "lead"},
		"tags":   []map[string]any{{"name": "a"}, {"name": "b"}},
	}, update.Properties)
	assert.NotContains(t, update.Properties, "email")
	assert.Nil(t, update.Snapshot)
	assert.Equal(t, []string{"B"}, update.Meta.SourceIDs)

	archive := intents[1]
	assert.Equal(t, models.MutationArchiveSource, archive.Kind)
	assert.Equal(t, "B", archive.PageID)
	require.NotNil(t, archive.Snapshot)
	assert.Equal(t, "B", archive.Snapshot.ID)
	assert.Equal(t, "x@y.com", archive.Snapshot.IdentityKey)
	assert.Equal(t, ts(2021), archive.Snapshot.CreatedAt)
	assert.Equal(t, map[string]any{"tags": []any{"b"}, "phone": "555"}, archive.Snapshot.Attributes)
}

func TestPlan_NoChangesStillArchives(t *testing.T) {
	_, intents := plan(t, []models.Document{
		{ID: "A", CreatedAt: ts(2020), Properties: map[string]any{"email": "k", "status": "lead", "tags": []any{"a", "b"}}},
		{ID: "B", CreatedAt: ts(2021), Properties: map[string]any{"email": "k", "tags": []any{"a"}}},
		{ID: "C", CreatedAt: ts(2022), Properties: map[string]any{"email": "K"}},
	})

	require.Len(t, intents, 2)
	for _, intent := range intents {
		assert.Equal(t, models.MutationArchiveSource, intent.Kind)
	}
	assert.Equal(t, "B", intents[0].PageID)
	assert.Equal(t, "C", intents[1].PageID)
}

func TestPlan_IdempotentRerun(t *testing.T) {
	_, intents := plan(t, []models.Document{
		{ID: "A", CreatedAt: ts(2020), Properties: map[string]any{"email": "a@y.com", "tags": []any{"a", "b"}}},
		{ID: "C", CreatedAt: ts(2021), Properties: map[string]any{"email": "c@y.com", "phone": "555"}},
	})

	assert.Empty(t, intents)
}

func TestPlan_GroupOrder(t *testing.T) {
	groups, intents := plan(t, []models.Document{
		{ID: "1", CreatedAt: ts(2020), Properties: map[string]any{"email": "first", "name": "x"}},
		{ID: "2", CreatedAt: ts(2020), Properties: map[string]any{"email": "second"}},
		{ID: "3", CreatedAt: ts(2021), Properties: map[string]any{"email": "second", "name": "y"}},
		{ID: "4", CreatedAt: ts(2021), Properties: map[string]any{"email": "first"}},
	})

	require.Len(t, groups, 2)
	var order []string
	for _, intent := range intents {
		order = append(order, string(intent.Kind)+":"+intent.PageID)
	}
	assert.Equal(t, []string{
		"update_destination:1",
		"archive_source:4",
		"update_destination:2",
		"archive_source:3",
	}, order)
}

func TestPlan_MissingMergeResult(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	groups := []models.DuplicateGroup{{GroupID: "k", Destination: models.Record{ID: "1"}, Sources: []models.Record{{ID: "2"}}}}

	_, err := NewPlanner(policy.DefaultPolicy(), logger).Plan(context.Background(), groups, nil)
	assert.Error(t, err)
}
