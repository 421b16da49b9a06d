package store

import (
	"context"
	"fmt"

	"github.com/madeindigio/felix-index/pkg/component"
)

// UpsertRelationship writes r through the write lane, keyed on its
// deterministic id so re-parsing a file doesn't duplicate edges.
func (s *Store) UpsertRelationship(ctx context.Context, r *component.Relationship) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		params := map[string]interface{}{
			"id":        r.ID,
			"type":      string(r.Type),
			"source_id": r.SourceID,
			"target_id": r.TargetID,
		}
		if r.Metadata != nil {
			params["metadata"] = map[string]interface{}(r.Metadata)
		}
		_, err := s.query(ctx, `
			UPSERT type::thing('relationships', $id) MERGE {
				type: $type, source_id: $source_id, target_id: $target_id, metadata: $metadata
			};
		`, params)
		if err != nil {
			return fmt.Errorf("upsert relationship %s: %w", r.ID, err)
		}
		return nil
	})
}

// UpsertRelationships writes a batch sequentially through the write lane.
func (s *Store) UpsertRelationships(ctx context.Context, rels []*component.Relationship) error {
	for _, r := range rels {
		if err := s.UpsertRelationship(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// RewriteRelationshipTarget points an existing relationship at a concrete
// component id, used by the cross-file and documentation resolvers once a
// sentinel target has been matched against the project's FQN map.
func (s *Store) RewriteRelationshipTarget(ctx context.Context, relID, newTargetID string) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `
			UPDATE type::thing('relationships', $id) MERGE {
				target_id: $target_id, metadata.isResolved: true
			};
		`, map[string]interface{}{"id": relID, "target_id": newTargetID})
		return err
	})
}

// MarkRelationshipUnresolved records that resolution was attempted and
// failed for relID, leaving its sentinel target in place with a reason, so
// audits can distinguish "not yet resolved" from "never resolvable".
func (s *Store) MarkRelationshipUnresolved(ctx context.Context, relID, reason string) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `
			UPDATE type::thing('relationships', $id) MERGE {
				metadata.isResolved: false, metadata.unresolvedReason: $reason
			};
		`, map[string]interface{}{"id": relID, "reason": reason})
		return err
	})
}

// FindUnresolvedRelationships returns every relationship whose target_id is
// still a sentinel (UNRESOLVED:/RESOLVE: prefixed), the cross-file
// resolver's primary work queue.
func (s *Store) FindUnresolvedRelationships(ctx context.Context, projectID string, limit int) ([]component.Relationship, error) {
	results, err := s.query(ctx, fmt.Sprintf(`
		SELECT * FROM relationships
		WHERE source_id IN (SELECT VALUE id FROM components WHERE project_id = $project_id)
		AND (metadata.isResolved IS NONE OR metadata.isResolved = false)
		AND (string::starts_with(target_id, 'UNRESOLVED:') OR string::starts_with(target_id, 'RESOLVE:'))
		LIMIT %d;
	`, limit), map[string]interface{}{"project_id": projectID})
	if err != nil {
		return nil, fmt.Errorf("find unresolved relationships: %w", err)
	}
	return decodeRelationships(results)
}

// FindUnresolvedRelationshipsByType is FindUnresolvedRelationships narrowed
// to one relationship type, letting the documentation resolver work its own
// queue without racing the cross-file resolver over the same rows.
func (s *Store) FindUnresolvedRelationshipsByType(ctx context.Context, projectID string, relType component.RelationshipType, limit int) ([]component.Relationship, error) {
	results, err := s.query(ctx, fmt.Sprintf(`
		SELECT * FROM relationships
		WHERE source_id IN (SELECT VALUE id FROM components WHERE project_id = $project_id)
		AND type = $type
		AND (metadata.isResolved IS NONE OR metadata.isResolved = false)
		AND (string::starts_with(target_id, 'UNRESOLVED:') OR string::starts_with(target_id, 'RESOLVE:') OR string::starts_with(target_id, 'EXPLICITID:'))
		LIMIT %d;
	`, limit), map[string]interface{}{"project_id": projectID, "type": string(relType)})
	if err != nil {
		return nil, fmt.Errorf("find unresolved relationships by type %s: %w", relType, err)
	}
	return decodeRelationships(results)
}

// FindRelationshipsBySource returns every outgoing edge from sourceID,
// optionally restricted to the given types.
func (s *Store) FindRelationshipsBySource(ctx context.Context, sourceID string, types []component.RelationshipType) ([]component.Relationship, error) {
	q := `SELECT * FROM relationships WHERE source_id = $source_id`
	params := map[string]interface{}{"source_id": sourceID}
	if len(types) > 0 {
		strs := make([]string, len(types))
		for i, t := range types {
			strs[i] = string(t)
		}
		q += ` AND type IN $types`
		params["types"] = strs
	}
	results, err := s.query(ctx, q+";", params)
	if err != nil {
		return nil, fmt.Errorf("find relationships from %s: %w", sourceID, err)
	}
	return decodeRelationships(results)
}

// FindRelationshipsByTarget returns every incoming edge to targetID.
func (s *Store) FindRelationshipsByTarget(ctx context.Context, targetID string) ([]component.Relationship, error) {
	results, err := s.query(ctx, `SELECT * FROM relationships WHERE target_id = $target_id;`,
		map[string]interface{}{"target_id": targetID})
	if err != nil {
		return nil, fmt.Errorf("find relationships to %s: %w", targetID, err)
	}
	return decodeRelationships(results)
}

// DeleteRelationshipsBySource removes every outgoing edge from a component
// being re-parsed, mirroring DeleteComponentsByFile's stale-edge cleanup.
func (s *Store) DeleteRelationshipsBySource(ctx context.Context, sourceIDs []string) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `DELETE FROM relationships WHERE source_id IN $source_ids;`,
			map[string]interface{}{"source_ids": sourceIDs})
		return err
	})
}

// DeleteRelationshipsByTarget removes every incoming edge pointing at
// targetIDs, used when the deleted component has no fqn to revert its
// incoming edges to a sentinel (UnresolveRelationshipsByTarget is preferred
// whenever a fqn is available, since it keeps the edge auditable instead of
// discarding it).
func (s *Store) DeleteRelationshipsByTarget(ctx context.Context, targetIDs []string) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `DELETE FROM relationships WHERE target_id IN $target_ids;`,
			map[string]interface{}{"target_ids": targetIDs})
		return err
	})
}

// UnresolveRelationshipsByTarget reverts every relationship whose target_id
// is a key of targets (a concrete component id being removed) back to the
// UNRESOLVED:<fqn> sentinel named by the matching value, per spec.md §3.1's
// "cascade-deleted when either endpoint is deleted": rather than dropping the
// edge outright, it becomes eligible for the resolver to pick back up if a
// same-named component reappears (e.g. the file is re-added).
func (s *Store) UnresolveRelationshipsByTarget(ctx context.Context, targets map[string]string) error {
	for targetID, fqn := range targets {
		sentinel := component.UnresolvedTarget(fqn)
		if err := s.withTxnRetry(ctx, func(ctx context.Context) error {
			_, err := s.query(ctx, `
				UPDATE relationships MERGE {
					target_id: $new_target_id, metadata.isResolved: false, metadata.unresolvedReason: 'target component removed'
				} WHERE target_id = $old_target_id;
			`, map[string]interface{}{"old_target_id": targetID, "new_target_id": sentinel})
			return err
		}); err != nil {
			return fmt.Errorf("unresolve relationships targeting %s: %w", targetID, err)
		}
	}
	return nil
}

type relationshipRow struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	SourceID string                 `json:"source_id"`
	TargetID string                 `json:"target_id"`
	Metadata map[string]interface{} `json:"metadata"`
}

func decodeRelationships(results []QueryResult) ([]component.Relationship, error) {
	rows, err := decodeResult[relationshipRow](results)
	if err != nil {
		return nil, err
	}
	out := make([]component.Relationship, len(rows))
	for i, r := range rows {
		out[i] = component.Relationship{
			ID:       stripTablePrefix(r.ID, "relationships"),
			Type:     component.RelationshipType(r.Type),
			SourceID: r.SourceID,
			TargetID: r.TargetID,
			Metadata: component.Metadata(r.Metadata),
		}
	}
	return out, nil
}
