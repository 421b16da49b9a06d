package query

import (
	"testing"

	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/stretchr/testify/assert"
)

func TestCandidateNameFallsBackToTitleForNonComponents(t *testing.T) {
	c := &candidate{title: "Investigate flaky test"}
	assert.Equal(t, "Investigate flaky test", candidateName(c))
}

func TestCandidateNamePrefersComponentName(t *testing.T) {
	c := &candidate{component: &component.Component{Name: "Search"}, title: "unused"}
	assert.Equal(t, "Search", candidateName(c))
}

func TestContainsTypeAndLanguage(t *testing.T) {
	assert.True(t, containsType([]component.Type{component.TypeClass, component.TypeFunction}, component.TypeFunction))
	assert.False(t, containsType([]component.Type{component.TypeClass}, component.TypeFunction))

	assert.True(t, containsLanguage([]component.Language{component.LanguageGo}, component.LanguageGo))
	assert.False(t, containsLanguage([]component.Language{component.LanguageGo}, component.LanguagePython))
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	v := []float32{1, 2, 3}
	assert.InDelta(t, 1.0, cosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarityOrthogonalVectorsIsZero(t *testing.T) {
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosineSimilarityMismatchedLengthsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
}

func TestPassesFiltersAppliesPathIncludeExclude(t *testing.T) {
	c := &candidate{filePath: "internal/query/engine.go"}
	req := Request{PathInclude: "internal/query"}
	assert.True(t, passesFilters(c, req, component.EntityComponent))

	req = Request{PathExclude: "internal/query"}
	assert.False(t, passesFilters(c, req, component.EntityComponent))
}

func TestPassesFiltersAppliesComponentTypeAndLanguage(t *testing.T) {
	c := &candidate{component: &component.Component{Type: component.TypeFunction, Language: component.LanguageGo}}
	req := Request{ComponentTypes: []component.Type{component.TypeClass}}
	assert.False(t, passesFilters(c, req, component.EntityComponent))

	req = Request{Languages: []component.Language{component.LanguageGo}}
	assert.True(t, passesFilters(c, req, component.EntityComponent))
}
