package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const recordLabel = "Record"

// EdgeWriter writes forward relation edges between records
type EdgeWriter interface {
	MergeEdges(ctx context.Context, collection, fromID, field string, toIDs []string) error
	MarkArchived(ctx context.Context, collection, id string) error
}

// EdgeService handles relation edges in the graph database
type EdgeService struct {
	client *Client
	logger ectologger.Logger
}

// NewEdgeService creates a new edge service
func NewEdgeService(client *Client, logger ectologger.Logger) *EdgeService {
	return &EdgeService{
		client: client,
		logger: logger,
	}
}

// MergeEdges ensures an edge of type field exists from the record to every target.
// Existing edges are never removed.
func (s *EdgeService) MergeEdges(ctx context.Context, collection, fromID, field string, toIDs []string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.EdgeService.MergeEdges")
	defer span.End()

	if len(toIDs) == 0 {
		return nil
	}

	cypher := fmt.Sprintf(`
		MERGE (from:%s {id: $from_id})
		ON CREATE SET from.collection = $collection
		WITH from
		UNWIND $to_ids AS to_id
		MERGE (to:%s {id: to_id})
		MERGE (from)-[r:%s]->(to)
		SET r.field = $field, r.updated_at = $now
	`, recordLabel, recordLabel, relationType(field))

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"from_id":    fromID,
			"collection": collection,
			"to_ids":     toIDs,
			"field":      field,
			"now":        time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"from":  fromID,
			"field": field,
		}).Error("Failed to merge relation edges in graph")
		return fmt.Errorf("failed to merge relation edges: %w", err)
	}
	return nil
}

// MarkArchived flags a record node as archived, keeping its edges
func (s *EdgeService) MarkArchived(ctx context.Context, collection, id string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.EdgeService.MarkArchived")
	defer span.End()

	cypher := fmt.Sprintf(`
		MERGE (n:%s {id: $id})
		ON CREATE SET n.collection = $collection
		SET n.archived = true, n.archived_at = $now
	`, recordLabel)

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":         id,
			"collection": collection,
			"now":        time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to mark record archived: %w", err)
	}
	return nil
}

// ArchivedIDs returns archived record ids among ids
func (s *EdgeService) ArchivedIDs(ctx context.Context, ids []string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.EdgeService.ArchivedIDs")
	defer span.End()

	cypher := fmt.Sprintf(`
		MATCH (n:%s)
		WHERE n.id IN $ids AND n.archived = true
		RETURN n.id AS id
		ORDER BY id
	`, recordLabel)

	res, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"ids": ids})
		if err != nil {
			return nil, err
		}
		out := make([]string, 0)
		for result.Next(ctx) {
			if id, ok := result.Record().Get("id"); ok {
				if v, ok := id.(string); ok {
					out = append(out, v)
				}
			}
		}
		return out, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read archived records: %w", err)
	}
	return res.([]string), nil
}

// relationType maps a field name to a relationship type, e.g. "deals" -> "DEALS"
func relationType(field string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(field) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		}
	}
	out := b.String()
	if out == "" {
		return "RELATED_TO"
	}
	if out[0] >= '0' && out[0] <= '9' {
		return "REL_" + out
	}
	return out
}
