package store

import (
	"context"
	"fmt"

	"github.com/madeindigio/felix-index/pkg/component"
)

// UpsertComponent writes c through the write lane, creating it if its id is
// new or updating every field in place otherwise, keyed on the deterministic
// id the parser derived (not a SurrealDB-generated record id) — satisfying
// the component-id-uniqueness invariant on reindex.
func (s *Store) UpsertComponent(ctx context.Context, c *component.Component) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		return s.upsertComponentAttempt(ctx, c)
	})
}

func (s *Store) upsertComponentAttempt(ctx context.Context, c *component.Component) error {
	params := map[string]interface{}{
		"id":         c.ID,
		"project_id": c.ProjectID,
		"name":       c.Name,
		"type":       string(c.Type),
		"language":   string(c.Language),
		"file_path":  c.FilePath,
		"start_line": c.Location.StartLine,
		"end_line":   c.Location.EndLine,
		"start_col":  c.Location.StartCol,
		"end_col":    c.Location.EndCol,
	}
	if c.ParentID != nil {
		params["parent_id"] = *c.ParentID
	}
	if c.Code != "" {
		params["code"] = c.Code
	}
	if c.Metadata != nil {
		params["metadata"] = map[string]interface{}(c.Metadata)
	}

	query := `
		UPSERT type::thing('components', $id) MERGE {
			project_id: $project_id, name: $name, type: $type, language: $language,
			file_path: $file_path, start_line: $start_line, end_line: $end_line,
			start_col: $start_col, end_col: $end_col, parent_id: $parent_id,
			code: $code, metadata: $metadata, updated_at: time::now()
		};
	`
	_, err := s.query(ctx, query, params)
	if err != nil {
		return fmt.Errorf("upsert component %s: %w", c.ID, err)
	}
	return nil
}

// UpsertComponents writes a batch sequentially through the write lane.
func (s *Store) UpsertComponents(ctx context.Context, components []*component.Component) error {
	for _, c := range components {
		if err := s.UpsertComponent(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// GetComponent fetches a single component by its deterministic id.
func (s *Store) GetComponent(ctx context.Context, id string) (*component.Component, error) {
	results, err := s.query(ctx, `SELECT * FROM type::thing('components', $id);`, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get component %s: %w", id, err)
	}
	rows, err := decodeResult[componentRow](results)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	c := rows[0].toComponent()
	return &c, nil
}

// FindComponentsByFQN looks up every component whose metadata.fqn matches —
// normally exactly one, but namespaces/partial classes can legitimately
// produce more than one hit for the cross-file resolver to disambiguate.
func (s *Store) FindComponentsByFQN(ctx context.Context, projectID, fqn string) ([]component.Component, error) {
	results, err := s.query(ctx, `
		SELECT * FROM components
		WHERE project_id = $project_id AND metadata.fqn = $fqn;
	`, map[string]interface{}{"project_id": projectID, "fqn": fqn})
	if err != nil {
		return nil, fmt.Errorf("find components by fqn %s: %w", fqn, err)
	}
	return decodeComponents(results)
}

// FindAllWithFQN returns every component in the project that carries a
// metadata.fqn, the raw material for the cross-file resolver's in-memory
// FQN→id index (spec.md §4.4 step 1).
func (s *Store) FindAllWithFQN(ctx context.Context, projectID string) ([]component.Component, error) {
	results, err := s.query(ctx, `
		SELECT * FROM components
		WHERE project_id = $project_id AND metadata.fqn != NONE;
	`, map[string]interface{}{"project_id": projectID})
	if err != nil {
		return nil, fmt.Errorf("find all components with fqn: %w", err)
	}
	return decodeComponents(results)
}

// FindComponentsByName finds components whose name contains the substring,
// optionally restricted to the given types — the cross-file resolver's
// lookup for RESOLVE:<name> targets.
func (s *Store) FindComponentsByName(ctx context.Context, projectID, name string, types []component.Type, limit int) ([]component.Component, error) {
	q := `SELECT * FROM components WHERE project_id = $project_id AND name CONTAINS $name`
	params := map[string]interface{}{"project_id": projectID, "name": name}
	if len(types) > 0 {
		strs := make([]string, len(types))
		for i, t := range types {
			strs[i] = string(t)
		}
		q += ` AND type IN $types`
		params["types"] = strs
	}
	q += fmt.Sprintf(` LIMIT %d;`, limit)

	results, err := s.query(ctx, q, params)
	if err != nil {
		return nil, fmt.Errorf("find components by name %s: %w", name, err)
	}
	return decodeComponents(results)
}

// FindComponentsByFile returns every component parsed from filePath,
// ordered by source position.
func (s *Store) FindComponentsByFile(ctx context.Context, projectID, filePath string) ([]component.Component, error) {
	results, err := s.query(ctx, `
		SELECT * FROM components
		WHERE project_id = $project_id AND file_path = $file_path
		ORDER BY start_line ASC;
	`, map[string]interface{}{"project_id": projectID, "file_path": filePath})
	if err != nil {
		return nil, fmt.Errorf("find components by file %s: %w", filePath, err)
	}
	return decodeComponents(results)
}

// FindChildComponents returns direct children of parentID.
func (s *Store) FindChildComponents(ctx context.Context, projectID, parentID string) ([]component.Component, error) {
	results, err := s.query(ctx, `
		SELECT * FROM components
		WHERE project_id = $project_id AND parent_id = $parent_id
		ORDER BY start_line ASC;
	`, map[string]interface{}{"project_id": projectID, "parent_id": parentID})
	if err != nil {
		return nil, fmt.Errorf("find child components of %s: %w", parentID, err)
	}
	return decodeComponents(results)
}

// DeleteComponentsByFile removes every component this file previously
// produced — called before re-parsing a changed file so stale components
// from a since-deleted function don't linger.
func (s *Store) DeleteComponentsByFile(ctx context.Context, projectID, filePath string) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `DELETE FROM components WHERE project_id = $project_id AND file_path = $file_path;`,
			map[string]interface{}{"project_id": projectID, "file_path": filePath})
		return err
	})
}

// componentRow is the wire shape components round-trip through SurrealDB in;
// `id` arrives normalized to "components:<id>" by normalizeRows, so it's
// stripped back to the bare deterministic id on the way out.
type componentRow struct {
	ID        string                 `json:"id"`
	ProjectID string                 `json:"project_id"`
	Name      string                 `json:"name"`
	Type      string                 `json:"type"`
	Language  string                 `json:"language"`
	FilePath  string                 `json:"file_path"`
	StartLine int                    `json:"start_line"`
	EndLine   int                    `json:"end_line"`
	StartCol  int                    `json:"start_col"`
	EndCol    int                    `json:"end_col"`
	ParentID  *string                `json:"parent_id"`
	Code      string                 `json:"code"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
}

func (r componentRow) toComponent() component.Component {
	return component.Component{
		ID:        stripTablePrefix(r.ID, "components"),
		ProjectID: r.ProjectID,
		Name:      r.Name,
		Type:      component.Type(r.Type),
		Language:  component.Language(r.Language),
		FilePath:  r.FilePath,
		Location: component.Location{
			StartLine: r.StartLine, EndLine: r.EndLine,
			StartCol: r.StartCol, EndCol: r.EndCol,
		},
		ParentID: r.ParentID,
		Code:     r.Code,
		Metadata: component.Metadata(r.Metadata),
	}
}

func decodeComponents(results []QueryResult) ([]component.Component, error) {
	rows, err := decodeResult[componentRow](results)
	if err != nil {
		return nil, err
	}
	out := make([]component.Component, len(rows))
	for i, r := range rows {
		out[i] = r.toComponent()
	}
	return out, nil
}

func stripTablePrefix(id, table string) string {
	prefix := table + ":"
	if len(id) > len(prefix) && id[:len(prefix)] == prefix {
		return id[len(prefix):]
	}
	return id
}
