package store

import (
	"context"
	"fmt"
)

// EmbeddingRecord pairs a vector with the entity it was computed for —
// fingerprinted by content hash so the embedding queue can skip re-embedding
// unchanged components (spec.md §4.5).
type EmbeddingRecord struct {
	EntityID    string
	EntityKind  string
	ProjectID   string
	Vector      []float32
	ContentHash string
}

// UpsertEmbedding writes a vector through the write lane, keyed on
// entity_id so recomputing an unchanged component's embedding is a no-op
// once ContentHash matches.
func (s *Store) UpsertEmbedding(ctx context.Context, e *EmbeddingRecord) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		vec := make([]float64, len(e.Vector))
		for i, v := range e.Vector {
			vec[i] = float64(v)
		}
		_, err := s.query(ctx, `
			UPSERT embeddings CONTENT {
				entity_id: $entity_id, entity_kind: $entity_kind, project_id: $project_id,
				vector: $vector, content_hash: $content_hash
			} WHERE entity_id = $entity_id;
		`, map[string]interface{}{
			"entity_id":    e.EntityID,
			"entity_kind":  e.EntityKind,
			"project_id":   e.ProjectID,
			"vector":       vec,
			"content_hash": e.ContentHash,
		})
		if err != nil {
			return fmt.Errorf("upsert embedding %s: %w", e.EntityID, err)
		}
		return nil
	})
}

// GetEmbeddingContentHash returns the stored content hash for entityID, used
// by the embedding queue to decide whether re-embedding is needed; returns
// "" with no error if no embedding exists yet.
func (s *Store) GetEmbeddingContentHash(ctx context.Context, entityID string) (string, error) {
	results, err := s.query(ctx, `SELECT content_hash FROM embeddings WHERE entity_id = $entity_id LIMIT 1;`,
		map[string]interface{}{"entity_id": entityID})
	if err != nil {
		return "", fmt.Errorf("get embedding content hash %s: %w", entityID, err)
	}
	rows, err := decodeResult[struct {
		ContentHash string `json:"content_hash"`
	}](results)
	if err != nil || len(rows) == 0 {
		return "", err
	}
	return rows[0].ContentHash, nil
}

// GetEmbeddingVector returns the stored vector for entityID, used by the
// query engine's context-overlap scoring (spec.md §4.9), which needs the
// candidate's own embedding alongside the query's, not just a similarity
// score against the core query vector. Returns nil with no error if no
// embedding exists yet.
func (s *Store) GetEmbeddingVector(ctx context.Context, entityID string) ([]float32, error) {
	results, err := s.query(ctx, `SELECT vector FROM embeddings WHERE entity_id = $entity_id LIMIT 1;`,
		map[string]interface{}{"entity_id": entityID})
	if err != nil {
		return nil, fmt.Errorf("get embedding vector %s: %w", entityID, err)
	}
	rows, err := decodeResult[struct {
		Vector []float64 `json:"vector"`
	}](results)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	vec := make([]float32, len(rows[0].Vector))
	for i, v := range rows[0].Vector {
		vec[i] = float32(v)
	}
	return vec, nil
}

// SimilarityMatch is one hit from a vector similarity search.
type SimilarityMatch struct {
	EntityID   string
	EntityKind string
	Similarity float64
}

// SearchSimilarEmbeddings runs an MTREE-backed KNN search scoped to
// projectID, returning the top limit matches by cosine similarity —
// the semantic channel of the hybrid query engine (spec.md §4.9).
func (s *Store) SearchSimilarEmbeddings(ctx context.Context, projectID string, queryVector []float32, entityKinds []string, limit int) ([]SimilarityMatch, error) {
	vec := make([]float64, len(queryVector))
	for i, v := range queryVector {
		vec[i] = float64(v)
	}

	q := fmt.Sprintf(`
		SELECT entity_id, entity_kind, vector::similarity::cosine(vector, $query_vector) AS similarity
		FROM embeddings
		WHERE project_id = $project_id AND vector <|%d|> $query_vector
	`, limit)
	params := map[string]interface{}{"project_id": projectID, "query_vector": vec}
	if len(entityKinds) > 0 {
		q += ` AND entity_kind IN $entity_kinds`
		params["entity_kinds"] = entityKinds
	}
	q += ` ORDER BY similarity DESC;`

	results, err := s.query(ctx, q, params)
	if err != nil {
		return nil, fmt.Errorf("search similar embeddings: %w", err)
	}
	rows, err := decodeResult[struct {
		EntityID   string  `json:"entity_id"`
		EntityKind string  `json:"entity_kind"`
		Similarity float64 `json:"similarity"`
	}](results)
	if err != nil {
		return nil, err
	}
	out := make([]SimilarityMatch, len(rows))
	for i, r := range rows {
		out[i] = SimilarityMatch{EntityID: r.EntityID, EntityKind: r.EntityKind, Similarity: r.Similarity}
	}
	return out, nil
}

// DeleteEmbedding removes the vector for entityID. Component deletion paths
// do not call it.
func (s *Store) DeleteEmbedding(ctx context.Context, entityID string) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `DELETE FROM embeddings WHERE entity_id = $entity_id;`,
			map[string]interface{}{"entity_id": entityID})
		return err
	})
}
