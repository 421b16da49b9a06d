package resolve

import (
	"testing"

	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/stretchr/testify/assert"
)

func TestSplitModuleImport(t *testing.T) {
	modulePath, importedName, ok := splitModuleImport("./sibling#Widget")
	assert.True(t, ok)
	assert.Equal(t, "./sibling", modulePath)
	assert.Equal(t, "Widget", importedName)

	_, _, ok = splitModuleImport("pkg.module.Class")
	assert.False(t, ok)
}

func TestCandidateFilePaths(t *testing.T) {
	paths := candidateFilePaths("src/widgets/button")
	assert.Contains(t, paths, "src/widgets/button")
	assert.Contains(t, paths, "src/widgets/button.ts")
	assert.Contains(t, paths, "src/widgets/button.py")
	assert.Contains(t, paths, "src/widgets/button/index.ts")
}

func TestPickCandidatePrefersSameLanguage(t *testing.T) {
	source := &component.Component{Language: component.LanguageTypeScript}
	candidates := []component.Component{
		{ID: "py-one", Language: component.LanguagePython, FilePath: "a.py"},
		{ID: "ts-one", Language: component.LanguageTypeScript, FilePath: "z.ts"},
	}
	chosen := pickCandidate(candidates, source)
	assert.Equal(t, "ts-one", chosen.ID)
}

func TestPickCandidateFallsBackToAlphabeticalPath(t *testing.T) {
	source := &component.Component{Language: component.LanguageGo}
	candidates := []component.Component{
		{ID: "b", Language: component.LanguageTypeScript, FilePath: "b.ts"},
		{ID: "a", Language: component.LanguageTypeScript, FilePath: "a.ts"},
	}
	chosen := pickCandidate(candidates, source)
	assert.Equal(t, "a", chosen.ID)
}

func TestPickCandidateSingleShortCircuits(t *testing.T) {
	only := component.Component{ID: "solo"}
	chosen := pickCandidate([]component.Component{only}, nil)
	assert.Equal(t, "solo", chosen.ID)
}
