package docresolve

import (
	"testing"

	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/stretchr/testify/assert"
)

func TestSplitAnchorPayload(t *testing.T) {
	path, anchor := splitAnchorPayload("../src/handler.ts#build")
	assert.Equal(t, "../src/handler.ts", path)
	assert.Equal(t, "build", anchor)

	path, anchor = splitAnchorPayload("#build")
	assert.Equal(t, "", path)
	assert.Equal(t, "build", anchor)

	path, anchor = splitAnchorPayload("../src/handler.ts")
	assert.Equal(t, "../src/handler.ts", path)
	assert.Equal(t, "", anchor)
}

func TestResolveRelativePath(t *testing.T) {
	assert.Equal(t, "src/handler.ts", resolveRelativePath("docs/api.md", "../src/handler.ts"))
	assert.Equal(t, "docs/setup.md", resolveRelativePath("docs/api.md", "./setup.md"))
	assert.Equal(t, "guide.md", resolveRelativePath("guide.md", "./guide.md"))
}

func TestDerivedRelationshipIDStableAndDistinct(t *testing.T) {
	a := derivedRelationshipID("src-1", component.RelDocuments, "tgt-1")
	b := derivedRelationshipID("src-1", component.RelDocuments, "tgt-1")
	assert.Equal(t, a, b)

	c := derivedRelationshipID("src-1", component.RelReferences, "tgt-1")
	assert.NotEqual(t, a, c)

	d := derivedRelationshipID("src-1", component.RelDocuments, "tgt-2")
	assert.NotEqual(t, a, d)
}

func TestResolveOneExternalIgnored(t *testing.T) {
	r := New(nil)
	rel := &component.Relationship{TargetID: component.ExternalTarget("https://example.com")}
	edges, outcome, err := r.resolveOne(nil, "proj", rel, &component.Component{})
	assert.NoError(t, err)
	assert.Equal(t, "ignored", outcome)
	assert.Nil(t, edges)
}

func TestResolveOneNotASentinelIsNoMatch(t *testing.T) {
	r := New(nil)
	rel := &component.Relationship{TargetID: "concrete-component-id"}
	edges, outcome, err := r.resolveOne(nil, "proj", rel, &component.Component{})
	assert.NoError(t, err)
	assert.Equal(t, "no_match", outcome)
	assert.Nil(t, edges)
}
