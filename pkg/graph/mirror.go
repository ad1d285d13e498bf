package graph

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/policy"
	"github.com/Ramsey-B/sorrel/pkg/store"
)

// RelationMirror is a DocumentStore that mirrors relation writes into the graph.
//
// Only forward edges are written; inverse edges stay the document store's concern. Graph
// failures are logged and never fail the wrapped write.
type RelationMirror struct {
	store.DocumentStore
	edges      EdgeWriter
	collection string
	relations  []string
	logger     ectologger.Logger
}

// NewRelationMirror wraps s so relation attributes of p are mirrored through edges
func NewRelationMirror(s store.DocumentStore, edges EdgeWriter, p *policy.Policy, logger ectologger.Logger) *RelationMirror {
	return &RelationMirror{
		DocumentStore: s,
		edges:         edges,
		collection:    p.Collection,
		relations:     p.FieldsOfKind(models.AttributeKindRelation),
		logger:        logger,
	}
}

// UpdatePartial writes through and then mirrors every relation attribute present
func (m *RelationMirror) UpdatePartial(ctx context.Context, id string, properties map[string]any) error {
	if err := m.DocumentStore.UpdatePartial(ctx, id, properties); err != nil {
		return err
	}

	for _, field := range m.relations {
		raw, ok := properties[field]
		if !ok {
			continue
		}
		ids := relationIDs(raw)
		if len(ids) == 0 {
			continue
		}
		if err := m.edges.MergeEdges(ctx, m.collection, id, field, ids); err != nil {
			m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"id":    id,
				"field": field,
			}).Warn("Relation mirror write failed")
		}
	}
	return nil
}

// Archive writes through and then flags the graph node
func (m *RelationMirror) Archive(ctx context.Context, id string) error {
	if err := m.DocumentStore.Archive(ctx, id); err != nil {
		return err
	}
	if err := m.edges.MarkArchived(ctx, m.collection, id); err != nil {
		m.logger.WithContext(ctx).WithError(err).WithField("id", id).Warn("Relation mirror archive failed")
	}
	return nil
}

// relationIDs reads ids from a raw or formatted relation value
func relationIDs(raw any) []string {
	if refs, ok := raw.([]map[string]any); ok {
		items := make([]any, len(refs))
		for i, r := range refs {
			items[i] = r
		}
		raw = items
	}
	ids, _ := policy.Coerce(models.AttributeKindRelation, raw).([]string)
	return ids
}
