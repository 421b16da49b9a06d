package component

import "time"

// WorkItemKind distinguishes the three flavors of auxiliary metadata entity
// the store tracks alongside the component graph.
type WorkItemKind string

const (
	WorkItemTask WorkItemKind = "task"
	WorkItemNote WorkItemKind = "note"
	WorkItemRule WorkItemKind = "rule"
)

// EntityLink is a typed cross-reference from a Task/Note/Rule to another
// entity (a component, or another work item). Neither the documentation
// resolver nor the cross-file resolver reads or checks these links.
type EntityLink struct {
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
}

// WorkItem models the Task/Note/Rule entity of the data model: hierarchical
// content with typed tags, entity links, and optional workflow/validation
// fields that only apply to tasks.
type WorkItem struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"project_id"`
	Kind      WorkItemKind `json:"kind"`

	ParentID   *string `json:"parent_id,omitempty"`
	DepthLevel int     `json:"depth_level"`
	SortOrder  int     `json:"sort_order"`

	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`

	EntityLinks []EntityLink `json:"entity_links,omitempty"`

	// Task-only workflow/validation fields; zero-valued for notes/rules.
	Status       string   `json:"status,omitempty"`
	DependsOnIDs []string `json:"depends_on_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
