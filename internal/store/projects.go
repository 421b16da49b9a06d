package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Project is a registered workspace root — one per indexed directory,
// carrying the reconcile watermark that each reconcile pass (including the
// one the filesystem watcher runs when it starts) reads and advances.
type Project struct {
	ID                 string
	Name               string
	RootPath           string
	WatchEnabled       bool
	ReconcileWatermark *time.Time
}

// DeriveProjectID builds a stable id from an absolute root path, the same
// sanitize-and-cap shape the teacher's generateProjectID uses, so the same
// path always resolves to the same project id across process restarts.
func DeriveProjectID(absRootPath string) string {
	id := strings.ReplaceAll(absRootPath, "/", "_")
	id = strings.ReplaceAll(id, "\\", "_")
	id = strings.ReplaceAll(id, ":", "_")
	id = strings.TrimPrefix(id, "_")
	if len(id) > 100 {
		id = id[len(id)-100:]
	}
	return id
}

// UpsertProject creates or updates a project record.
func (s *Store) UpsertProject(ctx context.Context, p *Project) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `
			UPSERT type::thing('projects', $id) MERGE {
				name: $name, root_path: $root_path, watch_enabled: $watch_enabled
			};
		`, map[string]interface{}{
			"id": p.ID, "name": p.Name, "root_path": p.RootPath, "watch_enabled": p.WatchEnabled,
		})
		return err
	})
}

// GetProject fetches a project by its derived id.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	results, err := s.query(ctx, `SELECT * FROM type::thing('projects', $id);`, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	rows, err := decodeResult[projectRow](results)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	p := rows[0].toProject()
	return &p, nil
}

// FindProjectByRootPath looks a project up by its unique root path, used by
// the registry to avoid re-deriving an id for a path it already knows.
func (s *Store) FindProjectByRootPath(ctx context.Context, rootPath string) (*Project, error) {
	results, err := s.query(ctx, `SELECT * FROM projects WHERE root_path = $root_path LIMIT 1;`,
		map[string]interface{}{"root_path": rootPath})
	if err != nil {
		return nil, fmt.Errorf("find project by root path %s: %w", rootPath, err)
	}
	rows, err := decodeResult[projectRow](results)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	p := rows[0].toProject()
	return &p, nil
}

// FindProjectByName looks a project up by its display name, used by
// get_project(name_or_path) and the registry's name-collision check.
func (s *Store) FindProjectByName(ctx context.Context, name string) (*Project, error) {
	results, err := s.query(ctx, `SELECT * FROM projects WHERE name = $name LIMIT 1;`,
		map[string]interface{}{"name": name})
	if err != nil {
		return nil, fmt.Errorf("find project by name %s: %w", name, err)
	}
	rows, err := decodeResult[projectRow](results)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	p := rows[0].toProject()
	return &p, nil
}

// ListProjects returns every registered project.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	results, err := s.query(ctx, `SELECT * FROM projects;`, nil)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	rows, err := decodeResult[projectRow](results)
	if err != nil {
		return nil, err
	}
	out := make([]Project, len(rows))
	for i, r := range rows {
		out[i] = r.toProject()
	}
	return out, nil
}

// SetReconcileWatermark persists the "now" timestamp a reconcile pass
// completed at, so the next call picks up from here (spec.md §4.7 "reconcile").
func (s *Store) SetReconcileWatermark(ctx context.Context, projectID string, at time.Time) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `
			UPDATE type::thing('projects', $id) MERGE { reconcile_watermark: $at };
		`, map[string]interface{}{"id": projectID, "at": at})
		return err
	})
}

// GetReconcileWatermark returns the persisted watermark, or nil if the
// project has never been reconciled.
func (s *Store) GetReconcileWatermark(ctx context.Context, projectID string) (*time.Time, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return p.ReconcileWatermark, nil
}

// DeleteProject removes a project and every row it owns across the other
// tables — components, relationships (via their components' ids),
// embeddings, work items, file records, and watch state.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `
			DELETE FROM relationships WHERE source_id IN (SELECT VALUE id FROM components WHERE project_id = $project_id);
			DELETE FROM components WHERE project_id = $project_id;
			DELETE FROM embeddings WHERE project_id = $project_id;
			DELETE FROM work_items WHERE project_id = $project_id;
			DELETE FROM files WHERE project_id = $project_id;
			DELETE FROM watch_state WHERE project_id = $project_id;
			DELETE FROM type::thing('projects', $project_id);
		`, map[string]interface{}{"project_id": projectID})
		return err
	})
}

type projectRow struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	RootPath           string     `json:"root_path"`
	WatchEnabled       bool       `json:"watch_enabled"`
	ReconcileWatermark *time.Time `json:"reconcile_watermark"`
}

func (r projectRow) toProject() Project {
	return Project{
		ID:                 stripTablePrefix(r.ID, "projects"),
		Name:               r.Name,
		RootPath:           r.RootPath,
		WatchEnabled:       r.WatchEnabled,
		ReconcileWatermark: r.ReconcileWatermark,
	}
}
