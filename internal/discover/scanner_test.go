package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/madeindigio/felix-index/pkg/parser"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanDiscoversSupportedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "lib.ts", "export const x = 1\n")
	writeFile(t, root, "README.md", "# Title\n")
	writeFile(t, root, "vendor/dep/dep.go", "package dep\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main\n")

	reg := parser.NewRegistry(parser.DefaultExtractorConfig())
	defer reg.Close()
	scanner := NewScanner(reg)

	result, err := scanner.Scan(root)
	require.NoError(t, err)

	var relPaths []string
	for _, f := range result.Files {
		relPaths = append(relPaths, filepath.ToSlash(f.RelPath))
	}
	assert.Contains(t, relPaths, "main.go")
	assert.Contains(t, relPaths, "lib.ts")
	assert.Contains(t, relPaths, "README.md")
	assert.NotContains(t, relPaths, filepath.ToSlash(filepath.Join("vendor", "dep", "dep.go")))
	assert.NotContains(t, relPaths, filepath.ToSlash(filepath.Join("node_modules", "pkg", "index.js")))
	assert.Equal(t, 3, result.TotalFiles)
}

func TestScanSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.go", "package main\n// padding\n")

	reg := parser.NewRegistry(parser.DefaultExtractorConfig())
	defer reg.Close()
	scanner := NewScanner(reg)
	scanner.MaxFileSize = 5 // smaller than the file content

	result, err := scanner.Scan(root)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalFiles)
	assert.Equal(t, 1, result.SkippedReason["too_large"])
}

func TestScanRespectsLanguageFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package main\n")
	writeFile(t, root, "b.py", "x = 1\n")

	reg := parser.NewRegistry(parser.DefaultExtractorConfig())
	defer reg.Close()
	scanner := NewScanner(reg)
	scanner.IncludeLanguages = []component.Language{component.LanguageGo}

	result, err := scanner.Scan(root)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalFiles)
	assert.Equal(t, 1, result.SkippedReason["language_filtered"])
}

func TestMergeIgnorePatternsDedupes(t *testing.T) {
	reg := parser.NewRegistry(parser.DefaultExtractorConfig())
	defer reg.Close()
	scanner := NewScanner(reg)
	before := len(scanner.IgnorePatterns)
	scanner.MergeIgnorePatterns([]string{"vendor", "custom_ignore"})
	assert.Equal(t, before+1, len(scanner.IgnorePatterns))
}
