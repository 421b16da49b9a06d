package query

import (
	"context"
	"fmt"

	"github.com/madeindigio/felix-index/pkg/component"
)

// Lens selects which edges a subgraph expansion follows (spec.md §4.9
// "Subgraph / lens").
type Lens string

const (
	LensCallers     Lens = "callers"
	LensCallees     Lens = "callees"
	LensDataFlow    Lens = "data-flow"
	LensInheritance Lens = "inheritance"
	LensImports     Lens = "imports"
	LensFull        Lens = "full"
	LensDefault     Lens = "default"
)

// lensEdge names one relationship type a lens follows and which endpoint of
// the stored edge is "current" during traversal: followSource true means the
// edge is looked up by source_id (current is the caller side, neighbor is
// target_id); false means it's looked up by target_id (current is the
// callee side, neighbor is source_id).
type lensEdge struct {
	relType      component.RelationshipType
	followSource bool
}

func bothDirections(types ...component.RelationshipType) []lensEdge {
	edges := make([]lensEdge, 0, len(types)*2)
	for _, t := range types {
		edges = append(edges, lensEdge{t, true}, lensEdge{t, false})
	}
	return edges
}

var dataFlowTypes = []component.RelationshipType{
	component.RelUsesField, component.RelTransforms, component.RelPassesTo,
	component.RelReturnsFrom, component.RelReadsFrom, component.RelWritesTo,
	component.RelDerivesFrom, component.RelModifies,
}

var allNonHierarchicalTypes = []component.RelationshipType{
	component.RelExtends, component.RelImplements, component.RelUses, component.RelCalls,
	component.RelCalledBy, component.RelImportsFrom, component.RelDependsOn,
	component.RelReferences, component.RelDocuments, component.RelResolvesTo,
	component.RelUsesField, component.RelTransforms, component.RelPassesTo,
	component.RelReturnsFrom, component.RelReadsFrom, component.RelWritesTo,
	component.RelDerivesFrom, component.RelModifies,
}

var allTypes = append(append([]component.RelationshipType{}, allNonHierarchicalTypes...),
	component.RelContains, component.RelContainedBy, component.RelInNamespace)

func lensEdges(lens Lens) []lensEdge {
	switch lens {
	case LensCallers:
		return []lensEdge{{component.RelCalls, false}, {component.RelCalledBy, true}}
	case LensCallees:
		return []lensEdge{{component.RelCalls, true}, {component.RelCalledBy, false}}
	case LensDataFlow:
		return bothDirections(dataFlowTypes...)
	case LensInheritance:
		return bothDirections(component.RelExtends, component.RelImplements)
	case LensImports:
		return bothDirections(component.RelImportsFrom, component.RelDependsOn)
	case LensFull:
		return bothDirections(allTypes...)
	case LensDefault:
		return bothDirections(allNonHierarchicalTypes...)
	default:
		return bothDirections(allNonHierarchicalTypes...)
	}
}

// includesFullSource reports whether lens calls for full node bodies rather
// than skeletons (spec.md §4.9's "Related source" column).
func includesFullSource(lens Lens) bool {
	return lens == LensCallers || lens == LensCallees || lens == LensFull
}

// Node is one component surfaced by a subgraph expansion.
type Node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FilePath string `json:"file_path"`
	Code     string `json:"code,omitempty"`
	Skeleton string `json:"skeleton,omitempty"`
}

// Edge is one relationship surfaced by a subgraph expansion.
type Edge struct {
	SourceID string                      `json:"source_id"`
	TargetID string                      `json:"target_id"`
	Type     component.RelationshipType `json:"type"`
}

// Subgraph is the result of a lens-bounded expansion from a seed component.
type Subgraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Expand walks outward from seedID to depth following the edges lens
// allows, always excluding hierarchical container edges unless lens
// explicitly selects them (LensFull). Depth 0 returns exactly the seed node
// and no edges (invariant R2). Cycle detection stops re-traversal of an
// already-visited node but the edge back to it is still recorded, so the
// reported edge count reflects the real graph, not just the spanning tree.
func (e *Engine) Expand(ctx context.Context, seedID string, lens Lens, depth int) (*Subgraph, error) {
	seed, err := e.store.GetComponent(ctx, seedID)
	if err != nil {
		return nil, fmt.Errorf("expand: load seed %s: %w", seedID, err)
	}
	if seed == nil {
		return nil, fmt.Errorf("expand: seed %s not found", seedID)
	}

	full := includesFullSource(lens)
	visited := map[string]bool{seedID: true}
	nodes := []Node{e.renderNode(ctx, seed, full || lens == LensDefault)}
	var edges []Edge

	if depth <= 0 {
		return &Subgraph{Nodes: nodes, Edges: edges}, nil
	}

	edgeDefs := lensEdges(lens)
	frontier := []string{seedID}

	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []string
		for _, currentID := range frontier {
			neighbors, err := e.neighbors(ctx, currentID, edgeDefs, &edges)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n] {
					continue
				}
				visited[n] = true
				comp, err := e.store.GetComponent(ctx, n)
				if err != nil || comp == nil {
					continue
				}
				// Default lens gives every first-hop neighbour (level 0)
				// full source too, everyone deeper a skeleton. The seed's
				// parent is not looked up specially: it is only included
				// when a non-hierarchical edge reaches it.
				nodeFull := full || (lens == LensDefault && level == 0)
				nodes = append(nodes, e.renderNode(ctx, comp, nodeFull))
				next = append(next, n)
			}
		}
		frontier = next
	}

	return &Subgraph{Nodes: nodes, Edges: edges}, nil
}

// neighbors fetches currentID's edges matching edgeDefs, appends every
// matching edge to edges (even ones pointing at an already-visited node, so
// the edge count stays accurate), and returns the distinct neighbor ids.
func (e *Engine) neighbors(ctx context.Context, currentID string, edgeDefs []lensEdge, edges *[]Edge) ([]string, error) {
	wantTypes := make(map[component.RelationshipType]bool)
	for _, ed := range edgeDefs {
		wantTypes[ed.relType] = true
	}

	var types []component.RelationshipType
	for t := range wantTypes {
		types = append(types, t)
	}

	outgoing, err := e.store.FindRelationshipsBySource(ctx, currentID, types)
	if err != nil {
		return nil, fmt.Errorf("expand: relationships from %s: %w", currentID, err)
	}
	incoming, err := e.store.FindRelationshipsByTarget(ctx, currentID)
	if err != nil {
		return nil, fmt.Errorf("expand: relationships to %s: %w", currentID, err)
	}

	var neighborIDs []string
	for _, ed := range edgeDefs {
		if ed.followSource {
			for _, rel := range outgoing {
				if rel.Type != ed.relType {
					continue
				}
				*edges = append(*edges, Edge{SourceID: rel.SourceID, TargetID: rel.TargetID, Type: rel.Type})
				neighborIDs = append(neighborIDs, rel.TargetID)
			}
			continue
		}
		for _, rel := range incoming {
			if rel.Type != ed.relType {
				continue
			}
			*edges = append(*edges, Edge{SourceID: rel.SourceID, TargetID: rel.TargetID, Type: rel.Type})
			neighborIDs = append(neighborIDs, rel.SourceID)
		}
	}
	return neighborIDs, nil
}

func (e *Engine) renderNode(ctx context.Context, c *component.Component, full bool) Node {
	n := Node{ID: c.ID, Name: c.Name, FilePath: c.FilePath}
	if full {
		n.Code = c.Code
	} else {
		children, _ := e.childrenOf(ctx, c)
		n.Skeleton = Skeleton(c, children)
	}
	return n
}

// childrenOf loads a component's immediate children for skeleton rendering;
// a store error just yields a signature-only skeleton rather than failing
// the whole expansion.
func (e *Engine) childrenOf(ctx context.Context, c *component.Component) ([]*component.Component, error) {
	children, err := e.store.FindChildComponents(ctx, c.ProjectID, c.ID)
	if err != nil {
		return nil, err
	}
	out := make([]*component.Component, len(children))
	for i := range children {
		out[i] = &children[i]
	}
	return out, nil
}
