package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// WorkItemKind distinguishes the three flavors the hierarchy holds — Tasks
// track actionable work, Notes carry freeform context, Rules record
// standing constraints a reviewer should keep enforcing.
type WorkItemKind string

const (
	WorkItemTask WorkItemKind = "task"
	WorkItemNote WorkItemKind = "note"
	WorkItemRule WorkItemKind = "rule"
)

// WorkItem is one node in the Task/Note/Rule hierarchy, optionally linked to
// components/relationships discovered by the indexer and to other work
// items it depends on.
type WorkItem struct {
	ID           string
	ProjectID    string
	Kind         WorkItemKind
	ParentID     *string
	DepthLevel   int
	SortOrder    int
	Title        string
	Content      string
	Status       string
	Tags         []string
	EntityLinks  []string
	DependsOnIDs []string
}

// UpsertWorkItem writes w through the write lane. A zero ID is assigned a
// fresh deterministic id derived from project+title+kind so repeated
// imports of the same manifest-declared item don't duplicate it.
//
// depth_level is always derived from the parent chain rather than trusting
// whatever the caller set on w, per spec.md §6.1 ("depth_level computed on
// create/update"). When the parent actually changes, every descendant's
// depth_level is recomputed too, so re-parenting a subtree keeps the whole
// branch consistent instead of only the moved item.
func (s *Store) UpsertWorkItem(ctx context.Context, w *WorkItem) error {
	if w.ID == "" {
		w.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(w.ProjectID+"|"+string(w.Kind)+"|"+w.Title)).String()
	}

	existing, err := s.GetWorkItem(ctx, w.ID)
	if err != nil {
		return fmt.Errorf("load existing work item %s: %w", w.ID, err)
	}

	depth, err := s.computeWorkItemDepth(ctx, w.ParentID)
	if err != nil {
		return fmt.Errorf("compute depth for work item %s: %w", w.ID, err)
	}
	w.DepthLevel = depth
	reparented := existing != nil && !sameWorkItemParent(existing.ParentID, w.ParentID)

	if err := s.withTxnRetry(ctx, func(ctx context.Context) error {
		params := map[string]interface{}{
			"id":             w.ID,
			"project_id":     w.ProjectID,
			"kind":           string(w.Kind),
			"depth_level":    w.DepthLevel,
			"sort_order":     w.SortOrder,
			"title":          w.Title,
			"content":        w.Content,
			"status":         w.Status,
			"tags":           w.Tags,
			"entity_links":   w.EntityLinks,
			"depends_on_ids": w.DependsOnIDs,
		}
		if w.ParentID != nil {
			params["parent_id"] = *w.ParentID
		}
		_, err := s.query(ctx, `
			UPSERT type::thing('work_items', $id) MERGE {
				project_id: $project_id, kind: $kind, parent_id: $parent_id,
				depth_level: $depth_level, sort_order: $sort_order, title: $title,
				content: $content, status: $status, tags: $tags,
				entity_links: $entity_links, depends_on_ids: $depends_on_ids,
				updated_at: time::now()
			};
		`, params)
		if err != nil {
			return fmt.Errorf("upsert work item %s: %w", w.ID, err)
		}
		return nil
	}); err != nil {
		return err
	}

	if reparented {
		if err := s.cascadeWorkItemDepth(ctx, w.ProjectID, w.ID, w.DepthLevel); err != nil {
			return fmt.Errorf("cascade depth to descendants of %s: %w", w.ID, err)
		}
	}
	return nil
}

func sameWorkItemParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// computeWorkItemDepth derives depth_level from the parent chain: 0 for a
// top-level item, or one more than the parent's current depth_level.
func (s *Store) computeWorkItemDepth(ctx context.Context, parentID *string) (int, error) {
	if parentID == nil || *parentID == "" {
		return 0, nil
	}
	parent, err := s.GetWorkItem(ctx, *parentID)
	if err != nil {
		return 0, fmt.Errorf("load parent work item %s: %w", *parentID, err)
	}
	if parent == nil {
		return 0, fmt.Errorf("parent work item %s not found", *parentID)
	}
	return parent.DepthLevel + 1, nil
}

// cascadeWorkItemDepth walks every descendant of parentID, recomputing
// depth_level from parentDepth one level at a time, so a re-parent updates
// the whole subtree rather than only the item that moved.
func (s *Store) cascadeWorkItemDepth(ctx context.Context, projectID, parentID string, parentDepth int) error {
	children, err := s.FindWorkItemsByParent(ctx, projectID, parentID)
	if err != nil {
		return fmt.Errorf("load children of %s: %w", parentID, err)
	}
	newDepth := parentDepth + 1
	for _, c := range children {
		if c.DepthLevel != newDepth {
			if err := s.withTxnRetry(ctx, func(ctx context.Context) error {
				_, err := s.query(ctx, `UPDATE type::thing('work_items', $id) MERGE { depth_level: $depth_level };`,
					map[string]interface{}{"id": c.ID, "depth_level": newDepth})
				return err
			}); err != nil {
				return fmt.Errorf("update depth for %s: %w", c.ID, err)
			}
		}
		if err := s.cascadeWorkItemDepth(ctx, projectID, c.ID, newDepth); err != nil {
			return err
		}
	}
	return nil
}

// GetWorkItem fetches a single work item by id, returning nil with no error
// if it doesn't exist.
func (s *Store) GetWorkItem(ctx context.Context, id string) (*WorkItem, error) {
	results, err := s.query(ctx, `SELECT * FROM type::thing('work_items', $id);`, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get work item %s: %w", id, err)
	}
	items, err := decodeWorkItems(results)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

// AddTaskDependency records that task depends on dependsOnID, appending to
// its depends_on_ids list if not already present.
func (s *Store) AddTaskDependency(ctx context.Context, taskID, dependsOnID string) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `
			UPDATE type::thing('work_items', $id)
			SET depends_on_ids += $dep WHERE depends_on_ids ?!= $dep;
		`, map[string]interface{}{"id": taskID, "dep": dependsOnID})
		if err != nil {
			return fmt.Errorf("add task dependency %s -> %s: %w", taskID, dependsOnID, err)
		}
		return nil
	})
}

// FindWorkItemsByParent returns direct children of parentID in display
// order, or top-level items for a given project when parentID is "".
func (s *Store) FindWorkItemsByParent(ctx context.Context, projectID, parentID string) ([]WorkItem, error) {
	q := `SELECT * FROM work_items WHERE project_id = $project_id AND `
	params := map[string]interface{}{"project_id": projectID}
	if parentID == "" {
		q += `parent_id IS NONE`
	} else {
		q += `parent_id = $parent_id`
		params["parent_id"] = parentID
	}
	q += ` ORDER BY sort_order ASC;`

	results, err := s.query(ctx, q, params)
	if err != nil {
		return nil, fmt.Errorf("find work items by parent %s: %w", parentID, err)
	}
	return decodeWorkItems(results)
}

// FindWorkItemsByStatus returns every item of the given status, used to
// surface open tasks regardless of where they sit in the hierarchy.
func (s *Store) FindWorkItemsByStatus(ctx context.Context, projectID, status string) ([]WorkItem, error) {
	results, err := s.query(ctx, `
		SELECT * FROM work_items WHERE project_id = $project_id AND status = $status
		ORDER BY sort_order ASC;
	`, map[string]interface{}{"project_id": projectID, "status": status})
	if err != nil {
		return nil, fmt.Errorf("find work items by status %s: %w", status, err)
	}
	return decodeWorkItems(results)
}

// DeleteWorkItem removes a work item by id.
func (s *Store) DeleteWorkItem(ctx context.Context, id string) error {
	return s.withTxnRetry(ctx, func(ctx context.Context) error {
		_, err := s.query(ctx, `DELETE type::thing('work_items', $id);`, map[string]interface{}{"id": id})
		return err
	})
}

type workItemRow struct {
	ID           string   `json:"id"`
	ProjectID    string   `json:"project_id"`
	Kind         string   `json:"kind"`
	ParentID     *string  `json:"parent_id"`
	DepthLevel   int      `json:"depth_level"`
	SortOrder    int      `json:"sort_order"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Status       string   `json:"status"`
	Tags         []string `json:"tags"`
	EntityLinks  []string `json:"entity_links"`
	DependsOnIDs []string `json:"depends_on_ids"`
}

func decodeWorkItems(results []QueryResult) ([]WorkItem, error) {
	rows, err := decodeResult[workItemRow](results)
	if err != nil {
		return nil, err
	}
	out := make([]WorkItem, len(rows))
	for i, r := range rows {
		out[i] = WorkItem{
			ID:           stripTablePrefix(r.ID, "work_items"),
			ProjectID:    r.ProjectID,
			Kind:         WorkItemKind(r.Kind),
			ParentID:     r.ParentID,
			DepthLevel:   r.DepthLevel,
			SortOrder:    r.SortOrder,
			Title:        r.Title,
			Content:      r.Content,
			Status:       r.Status,
			Tags:         r.Tags,
			EntityLinks:  r.EntityLinks,
			DependsOnIDs: r.DependsOnIDs,
		}
	}
	return out, nil
}
