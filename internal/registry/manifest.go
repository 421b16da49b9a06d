package registry

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// manifestFileName is the per-project file naming documentation bundles to
// auto-attach at project open (spec.md §4.10 "a project manifest").
const manifestFileName = ".felix-project.yaml"

// DocBundleManifest lists documentation bundle directories a project wants
// indexed alongside its code, keyed into the same project id so their
// components and relationships participate in resolution and query
// alongside the code they document. Grounded on the teacher's
// gopkg.in/yaml.v3 usage in pkg/mcp_tools/yaml_utils.go, the ecosystem's
// YAML library already carried over from there.
type DocBundleManifest struct {
	Bundles []string `yaml:"doc_bundles"`
}

// LoadDocBundleManifest reads <rootPath>/.felix-project.yaml if present.
// Returns (nil, nil) when the file doesn't exist — having no manifest is
// the common case, not an error.
func LoadDocBundleManifest(rootPath string) (*DocBundleManifest, error) {
	data, err := os.ReadFile(filepath.Join(rootPath, manifestFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var manifest DocBundleManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}
