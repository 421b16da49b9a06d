package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocBundleManifestMissingFileReturnsNil(t *testing.T) {
	dir := t.TempDir()
	manifest, err := LoadDocBundleManifest(dir)
	require.NoError(t, err)
	assert.Nil(t, manifest)
}

func TestLoadDocBundleManifestParsesBundles(t *testing.T) {
	dir := t.TempDir()
	content := "doc_bundles:\n  - docs/api\n  - ../shared-docs\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFileName), []byte(content), 0o644))

	manifest, err := LoadDocBundleManifest(dir)
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, []string{"docs/api", "../shared-docs"}, manifest.Bundles)
}

func TestLoadDocBundleManifestInvalidYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFileName), []byte("doc_bundles: [unterminated"), 0o644))

	_, err := LoadDocBundleManifest(dir)
	assert.Error(t, err)
}
