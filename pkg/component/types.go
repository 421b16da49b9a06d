// Package component defines the core component/relationship/embedding
// data model shared by every stage of the indexing pipeline.
package component

import "time"

// Type is the kind of structural unit a Component represents.
type Type string

const (
	TypeFile        Type = "file"
	TypeNamespace   Type = "namespace"
	TypeClass       Type = "class"
	TypeInterface   Type = "interface"
	TypeEnum        Type = "enum"
	TypeFunction    Type = "function"
	TypeMethod      Type = "method"
	TypeConstructor Type = "constructor"
	TypeProperty    Type = "property"
	TypeVariable    Type = "variable"
	TypeSection     Type = "section"
	TypeModule      Type = "module"
	TypeImport      Type = "import"
	TypeExport      Type = "export"
)

// Language identifies the source language a component was parsed from.
type Language string

const (
	LanguageGo           Language = "go"
	LanguageTypeScript   Language = "typescript"
	LanguageJavaScript   Language = "javascript"
	LanguagePHP          Language = "php"
	LanguageRust         Language = "rust"
	LanguagePython       Language = "python"
	LanguageJava         Language = "java"
	LanguageKotlin       Language = "kotlin"
	LanguageMarkdown     Language = "markdown"
	LanguageDocumentation Language = "documentation"
	LanguageIndex        Language = "index"
)

// Location is the span of source text a component occupies.
type Location struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
	StartCol  int `json:"start_col"`
	EndCol    int `json:"end_col"`
}

// Component is an indexed symbol or structural unit: a file, a class, a
// function, a markdown section, an import statement, and so on.
//
// IDs are derived from (file_path, name, type, location) for structural
// components, and from the FQN for nominal types, per the component-id
// uniqueness invariant — never from a random UUID, so that re-parsing the
// same file produces the same ids.
type Component struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id"`
	Name      string   `json:"name"`
	Type      Type     `json:"type"`
	Language  Language `json:"language"`
	FilePath  string   `json:"file_path"`
	Location  Location `json:"location"`
	ParentID  *string  `json:"parent_id,omitempty"`

	// Code is the source text of the component, when materialized.
	Code string `json:"code,omitempty"`

	Metadata Metadata `json:"metadata,omitempty"`

	// Embedding is populated lazily by the embedding queue; not persisted
	// inline on the component row (lives in the embeddings table keyed by
	// entity_kind+entity_id), carried here only in-memory during a batch.
	Embedding []float32 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metadata is the open, tagged-union-ish metadata bag carried by components
// and relationships. Known fields get typed accessors; anything else lives
// in Extra so typed values (numbers, bools, arrays) survive round-trips
// instead of being flattened to strings, per spec design note on dynamic
// metadata bags.
type Metadata map[string]interface{}

func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func (m Metadata) Bool(key string) bool {
	if m == nil {
		return false
	}
	v, _ := m[key].(bool)
	return v
}

func (m Metadata) StringSlice(key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// FQN is the fully-qualified name used for cross-file resolution, when set.
func (m Metadata) FQN() string { return m.String("fqn") }

// Merge shallow-merges src into m, overwriting scalar keys and replacing map
// keys wholesale (the Store performs a deeper merge for relationship
// metadata on upsert; this is the in-memory convenience variant used by
// parsers/extractors while building a component).
func (m Metadata) Merge(src Metadata) Metadata {
	if m == nil {
		m = Metadata{}
	}
	for k, v := range src {
		m[k] = v
	}
	return m
}
