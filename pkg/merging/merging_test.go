package merging

import (
	"slices"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/grouping"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/policy"
)

func ts(year int) *time.Time {
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// buildGroup maps property maps through the default policy and groups them
func buildGroup(t *testing.T, docs ...models.Document) models.DuplicateGroup {
	t.Helper()
	p := policy.DefaultPolicy()
	records := make([]models.Record, 0, len(docs))
	for i, d := range docs {
		r, err := p.ToRecord(d, i)
		require.NoError(t, err)
		records = append(records, r)
	}
	groups := grouping.Group(records)
	require.Len(t, groups, 1)
	return groups[0]
}

func TestResolver_Merge_Scenario(t *testing.T) {
	group := buildGroup(t,
		models.Document{ID: "A", CreatedAt: ts(2020), Properties: map[string]any{"email": "x@y.com", "tags": []any{"a"}}},
		models.Document{ID: "B", CreatedAt: ts(2021), Properties: map[string]any{"email": "x@y.com", "tags": []any{"b"}, "phone": "555"}},
	)

	result := NewResolver(policy.DefaultPolicy(), "", testLogger()).Merge(group)

	assert.Equal(t, "A", result.DestinationID)
	assert.Equal(t, []string{"B"}, result.SourceIDs)
	assert.Equal(t, []any{"a", "b"}, result.MergedAttributes["tags"])
	assert.Equal(t, "555", result.MergedAttributes["phone"])
	assert.Equal(t, "lead", result.MergedAttributes["status"])
	assert.NotContains(t, result.MergedAttributes, "name")
	assert.NotContains(t, result.MergedAttributes, "deals")
	assert.Equal(t, []string{"phone", "status", "tags"}, result.ChangedAttributes)
	assert.Empty(t, result.Conflicts)
}

func TestResolver_Merge_ScalarRecency(t *testing.T) {
	tests := []struct {
		name     string
		docs     []models.Document
		expected any
		present  bool
	}{
		{
			name: "newest non-empty wins",
			docs: []models.Document{
				{ID: "1", CreatedAt: ts(2020), Properties: map[string]any{"email": "k", "name": "Old"}},
				{ID: "2", CreatedAt: ts(2022), Properties: map[string]any{"email": "k", "name": "New"}},
				{ID: "3", CreatedAt: ts(2021), Properties: map[string]any{"email": "k", "name": "Mid"}},
			},
			expected: "New",
			present:  true,
		},
		{
			name: "blank newest value is ignored",
			docs: []models.Document{
				{ID: "1", CreatedAt: ts(2020), Properties: map[string]any{"email": "k", "name": "Old"}},
				{ID: "2", CreatedAt: ts(2022), Properties: map[string]any{"email": "k", "name": "   "}},
			},
			expected: "Old",
			present:  true,
		},
		{
			name: "timestamped holder beats untimestamped",
			docs: []models.Document{
				{ID: "1", Properties: map[string]any{"email": "k", "name": "NoTime"}},
				{ID: "2", CreatedAt: ts(2019), Properties: map[string]any{"email": "k", "name": "Timed"}},
			},
			expected: "Timed",
			present:  true,
		},
		{
			name: "untimestamped holders resolve to earliest in order",
			docs: []models.Document{
				{ID: "1", Properties: map[string]any{"email": "k", "name": "First"}},
				{ID: "2", Properties: map[string]any{"email": "k", "name": "Second"}},
			},
			expected: "First",
			present:  true,
		},
		{
			name: "no holder omits the attribute",
			docs: []models.Document{
				{ID: "1", CreatedAt: ts(2020), Properties: map[string]any{"email": "k"}},
				{ID: "2", CreatedAt: ts(2021), Properties: map[string]any{"email": "k", "name": ""}},
			},
			present: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := buildGroup(t, tt.docs...)
			result := NewResolver(policy.DefaultPolicy(), "", testLogger()).Merge(group)

			value, ok := result.MergedAttributes["name"]
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.Equal(t, tt.expected, value)
			}
		})
	}
}

func TestResolver_Merge_Conflicts(t *testing.T) {
	group := buildGroup(t,
		models.Document{ID: "1", CreatedAt: ts(2020), Properties: map[string]any{"email": "k", "company": "Acme"}},
		models.Document{ID: "2", CreatedAt: ts(2021), Properties: map[string]any{"email": "k", "company": "Globex"}},
		models.Document{ID: "3", CreatedAt: ts(2022), Properties: map[string]any{"email": "k", "phone": "555"}},
	)

	result := NewResolver(policy.DefaultPolicy(), "", testLogger()).Merge(group)

	require.Len(t, result.Conflicts, 1)
	conflict := result.Conflicts[0]
	assert.Equal(t, "company", conflict.Field)
	assert.Equal(t, []any{"Acme", "Globex"}, conflict.Values)
	assert.Equal(t, []string{"1", "2"}, conflict.RecordIDs)
	assert.Equal(t, "Globex", conflict.ResolvedValue)
	assert.Equal(t, ResolutionMostRecent, conflict.Resolution)
}

func TestResolver_Merge_DefaultOnlyWhenMissing(t *testing.T) {
	group := buildGroup(t,
		models.Document{ID: "1", CreatedAt: ts(2020), Properties: map[string]any{"email": "k", "status": map[string]any{"name": "customer"}}},
		models.Document{ID: "2", CreatedAt: ts(2021), Properties: map[string]any{"email": "k"}},
	)

	result := NewResolver(policy.DefaultPolicy(), "", testLogger()).Merge(group)

	assert.Equal(t, "customer", result.MergedAttributes["status"])
	assert.NotContains(t, result.ChangedAttributes, "status")
}

func TestResolver_Merge_Relations(t *testing.T) {
	group := buildGroup(t,
		models.Document{ID: "1", CreatedAt: ts(2020), Properties: map[string]any{
			"email": "k",
			"deals": []any{map[string]any{"id": "d1"}, map[string]any{"id": "d2"}},
		}},
		models.Document{ID: "2", CreatedAt: ts(2021), Properties: map[string]any{
			"email": "k",
			"deals": []any{map[string]any{"id": "d2"}, map[string]any{"id": "d3"}},
		}},
	)

	result := NewResolver(policy.DefaultPolicy(), "", testLogger()).Merge(group)

	assert.Equal(t, []string{"d1", "d2", "d3"}, result.MergedAttributes["deals"])
	assert.Contains(t, result.ChangedAttributes, "deals")
}

func TestResolver_Merge_ChangeDetection(t *testing.T) {
	// The union always contains the destination's collection, so both modes agree.
	p := policy.DefaultPolicy()
	for i := range p.Fields {
		if p.Fields[i].Name == "tags" {
			p.Fields[i].DestinationReadPath = "current_tags"
		}
	}

	dest := models.Record{
		ID:          "dest",
		CreatedAt:   ts(2020),
		IdentityKey: "k",
		Values:      map[string]any{"tags": []any{}},
		Current:     map[string]any{"tags": []any{"a", "b"}},
	}
	source := models.Record{
		ID:          "src",
		CreatedAt:   ts(2021),
		IdentityKey: "k",
		Position:    1,
		Values:      map[string]any{"tags": []any{"a"}},
		Current:     map[string]any{"tags": []any{}},
	}
	group := models.DuplicateGroup{GroupID: "k", Destination: dest, Sources: []models.Record{source}}

	tests := []struct {
		name      string
		detection models.ChangeDetection
		changed   bool
	}{
		{name: "cardinality no growth", detection: models.ChangeDetectionCardinality, changed: false},
		{name: "difference no new member", detection: models.ChangeDetectionDifference, changed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewResolver(p, tt.detection, testLogger()).Merge(group)
			assert.Equal(t, []any{"a", "b"}, result.MergedAttributes["tags"])
			assert.Equal(t, tt.changed, slices.Contains(result.ChangedAttributes, "tags"))
		})
	}

	source.Values["tags"] = []any{"c"}
	group.Sources = []models.Record{source}
	for _, detection := range []models.ChangeDetection{models.ChangeDetectionCardinality, models.ChangeDetectionDifference} {
		result := NewResolver(p, detection, testLogger()).Merge(group)
		assert.Contains(t, result.ChangedAttributes, "tags", string(detection))
	}
}

func TestResolver_Merge_Properties(t *testing.T) {
	group := buildGroup(t,
		models.Document{ID: "1", CreatedAt: ts(2021), Properties: map[string]any{
			"email": "K", "name": "Ann", "tags": []any{"x", "y"}, "companies": []any{"c1"},
		}},
		models.Document{ID: "2", CreatedAt: ts(2020), Properties: map[string]any{
			"email": "k", "name": "Annie", "phone": "1", "tags": []any{"y", "z"},
		}},
		models.Document{ID: "3", Properties: map[string]any{
			"email": " k ", "company": "Initech", "companies": []any{"c2", "c1"},
		}},
	)
	p := policy.DefaultPolicy()

	result := NewResolver(p, "", testLogger()).Merge(group)

	for _, f := range p.Fields {
		merged, ok := result.MergedAttributes[f.Name]
		switch f.Kind {
		case models.AttributeKindScalar:
			if !ok {
				continue
			}
			observed := f.Default != nil && policy.Equivalent(merged, f.Default)
			for _, r := range group.Records() {
				if policy.Equivalent(merged, r.Values[f.Name]) {
					observed = true
				}
			}
			assert.True(t, observed, "scalar %s resolved to unobserved value %v", f.Name, merged)
		case models.AttributeKindSet:
			current, _ := group.Destination.Current[f.Name].([]any)
			for _, v := range current {
				assert.Contains(t, merged, v)
			}
		case models.AttributeKindRelation:
			current, _ := group.Destination.Current[f.Name].([]string)
			for _, v := range current {
				assert.Contains(t, merged, v)
			}
		}
	}

	assert.Equal(t, "2", group.Destination.ID)
	assert.Equal(t, "Ann", result.MergedAttributes["name"])
	assert.Equal(t, []any{"y", "z", "x"}, result.MergedAttributes["tags"])
	assert.Equal(t, []string{"c1", "c2"}, result.MergedAttributes["companies"])
}

func TestResolver_Merge_AlreadyMerged(t *testing.T) {
	group := buildGroup(t,
		models.Document{ID: "1", CreatedAt: ts(2020), Properties: map[string]any{
			"email": "k", "name": "Ann", "status": "lead", "tags": []any{"a", "b"},
		}},
		models.Document{ID: "2", CreatedAt: ts(2021), Properties: map[string]any{
			"email": "k", "tags": []any{"b"},
		}},
	)

	result := NewResolver(policy.DefaultPolicy(), "", testLogger()).Merge(group)

	assert.False(t, result.HasChanges())
	assert.Empty(t, result.ChangedAttributes)
}
