package query

import (
	"testing"

	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/stretchr/testify/assert"
)

func TestLensEdgesCallersFollowsCallsInward(t *testing.T) {
	edges := lensEdges(LensCallers)
	assert.Contains(t, edges, lensEdge{component.RelCalls, false})
	assert.Contains(t, edges, lensEdge{component.RelCalledBy, true})
}

func TestLensEdgesDefaultExcludesHierarchical(t *testing.T) {
	for _, ed := range lensEdges(LensDefault) {
		assert.False(t, component.HierarchicalRelationshipTypes[ed.relType], "default lens must not include %s", ed.relType)
	}
}

func TestLensEdgesFullIncludesHierarchical(t *testing.T) {
	var sawContains bool
	for _, ed := range lensEdges(LensFull) {
		if ed.relType == component.RelContains {
			sawContains = true
		}
	}
	assert.True(t, sawContains)
}

func TestIncludesFullSourceByLens(t *testing.T) {
	assert.True(t, includesFullSource(LensCallers))
	assert.True(t, includesFullSource(LensCallees))
	assert.True(t, includesFullSource(LensFull))
	assert.False(t, includesFullSource(LensDataFlow))
	assert.False(t, includesFullSource(LensInheritance))
	assert.False(t, includesFullSource(LensDefault))
}

func TestHierarchicalRelationshipTypesRecognizesContainerEdges(t *testing.T) {
	assert.True(t, component.HierarchicalRelationshipTypes[component.RelContains])
	assert.True(t, component.HierarchicalRelationshipTypes[component.RelContainedBy])
	assert.False(t, component.HierarchicalRelationshipTypes[component.RelCalls])
}
