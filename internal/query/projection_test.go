package query

import (
	"testing"

	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/stretchr/testify/assert"
)

func componentCandidate() *candidate {
	return &candidate{
		EntityID:   "comp:1",
		EntityKind: component.EntityComponent,
		filePath:   "internal/query/engine.go",
		finalScore: 0.77,
		component: &component.Component{
			ID:       "comp:1",
			Name:     "Search",
			FilePath: "internal/query/engine.go",
			Location: component.Location{StartLine: 10, EndLine: 40},
			Code:     "func (e *Engine) Search(...) { ... }",
			Metadata: component.Metadata{"signature": "func (e *Engine) Search(ctx context.Context, req Request) (*Response, error)"},
		},
	}
}

func TestProjectIDsViewOnlyPopulatesIdentity(t *testing.T) {
	hits := project([]*candidate{componentCandidate()}, ViewIDs, nil)
	assert.Len(t, hits, 1)
	assert.Equal(t, "comp:1", hits[0].EntityID)
	assert.Empty(t, hits[0].Name)
	assert.Empty(t, hits[0].FilePath)
}

func TestProjectNamesViewIncludesName(t *testing.T) {
	hits := project([]*candidate{componentCandidate()}, ViewNames, nil)
	assert.Equal(t, "Search", hits[0].Name)
	assert.Empty(t, hits[0].FilePath)
}

func TestProjectFilesViewIncludesPathNotLocation(t *testing.T) {
	hits := project([]*candidate{componentCandidate()}, ViewFiles, nil)
	assert.Equal(t, "internal/query/engine.go", hits[0].FilePath)
	assert.Nil(t, hits[0].Location)
}

func TestProjectFilesLinesViewIncludesLocation(t *testing.T) {
	hits := project([]*candidate{componentCandidate()}, ViewFilesLines, nil)
	assert.NotNil(t, hits[0].Location)
	assert.Equal(t, 10, hits[0].Location.StartLine)
}

func TestProjectFullViewIncludesCodeAndSkeleton(t *testing.T) {
	hits := project([]*candidate{componentCandidate()}, ViewFull, nil)
	assert.NotEmpty(t, hits[0].Code)
	assert.Contains(t, hits[0].Skeleton, "func (e *Engine) Search")
}

func TestProjectExplicitFieldsSubsetsFullProjection(t *testing.T) {
	hits := project([]*candidate{componentCandidate()}, "", []string{"name", "file_path"})
	assert.Equal(t, "Search", hits[0].Name)
	assert.Equal(t, "internal/query/engine.go", hits[0].FilePath)
	assert.Empty(t, hits[0].Code)
}

func TestSkeletonFallsBackToTypeAndNameWithoutSignature(t *testing.T) {
	c := &component.Component{Name: "Helper", Type: component.TypeFunction}
	assert.Equal(t, "function Helper", Skeleton(c, nil))
}

func TestSkeletonIncludesChildren(t *testing.T) {
	parent := &component.Component{Name: "Engine", Type: component.TypeClass}
	child := &component.Component{Name: "Search", Type: component.TypeMethod}
	out := Skeleton(parent, []*component.Component{child})
	assert.Contains(t, out, "class Engine")
	assert.Contains(t, out, "method Search")
}
