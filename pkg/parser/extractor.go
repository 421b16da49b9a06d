package parser

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/madeindigio/felix-index/pkg/component"
)

// Diagnostic is a parse-time finding; severity "error" means the file
// failed to parse meaningfully, "warning"/"info" accompany partial success.
type Diagnostic struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// ParseOutcome is the contract every LanguageExtractor produces (spec §4.2).
type ParseOutcome struct {
	Components    []*component.Component
	Relationships []*component.Relationship
	Diagnostics   []Diagnostic
	Language      component.Language
	ParseTimeMs   int64
}

// Success reports whether no diagnostic of severity "error" was recorded.
func (o *ParseOutcome) Success() bool {
	for _, d := range o.Diagnostics {
		if d.Severity == "error" {
			return false
		}
	}
	return true
}

// LanguageExtractor is the capability set §6.2 requires of a language
// parser: detect components, detect relationships between them, validate
// syntax, and report the ignore patterns this language wants applied during
// discovery (e.g. skip vendor/node_modules style directories).
type LanguageExtractor interface {
	Language() component.Language
	DetectComponents(tree *sitter.Tree, source []byte, filePath, projectID string) ([]*component.Component, error)
	DetectRelationships(tree *sitter.Tree, source []byte, filePath string, components []*component.Component) ([]*component.Relationship, error)
	ValidateSyntax(source []byte) []Diagnostic
	GetIgnorePatterns() []string
}

// ExtractorConfig mirrors the teacher's WalkerConfig: knobs shared by every
// language extractor.
type ExtractorConfig struct {
	IncludeSourceCode bool
	MaxComponentSize  int
	ExtractDocStrings bool
}

// DefaultExtractorConfig returns sensible defaults.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		IncludeSourceCode: true,
		MaxComponentSize:  50_000,
		ExtractDocStrings: true,
	}
}

// BaseExtractor provides the component-construction helpers every
// per-language extractor shares.
type BaseExtractor struct {
	Config ExtractorConfig
	Lang   component.Language
}

func NewBaseExtractor(lang component.Language, cfg ExtractorConfig) BaseExtractor {
	return BaseExtractor{Config: cfg, Lang: lang}
}

func (b *BaseExtractor) Language() component.Language { return b.Lang }

// NewComponent builds a Component from a tree-sitter node, stamping
// provenance (file, language, location) and the source snippet when
// configured to include it.
func (b *BaseExtractor) NewComponent(
	node *sitter.Node,
	source []byte,
	typ component.Type,
	name string,
	filePath, projectID string,
	parentID *string,
) *component.Component {
	startLine, endLine, startCol, endCol := Span(node)

	c := &component.Component{
		ID:        componentID(projectID, filePath, name, typ, startLine, startCol),
		ProjectID: projectID,
		Name:      name,
		Type:      typ,
		Language:  b.Lang,
		FilePath:  filePath,
		Location: component.Location{
			StartLine: startLine, EndLine: endLine,
			StartCol: startCol, EndCol: endCol,
		},
		ParentID:  parentID,
		Metadata:  component.Metadata{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if b.Config.IncludeSourceCode {
		code := Content(node, source)
		if len(code) <= b.Config.MaxComponentSize {
			c.Code = code
		}
	}

	return c
}

// componentID derives a stable id from (file_path, name, type, location) per
// the component-id-uniqueness invariant, rather than a random uuid, so a
// re-parse of an unchanged file reproduces identical ids.
func componentID(projectID, filePath, name string, typ component.Type, line, col int) string {
	ns := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s|%s|%s|%s|%d|%d", projectID, filePath, name, typ, line, col)))
	return ns.String()
}

// ExtractDocString looks at the named sibling immediately preceding node for
// a comment and returns its text, or "" if none / disabled.
func (b *BaseExtractor) ExtractDocString(node *sitter.Node, source []byte) string {
	if !b.Config.ExtractDocStrings {
		return ""
	}
	parent := node.Parent()
	if parent == nil {
		return ""
	}
	idx := -1
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		if parent.NamedChild(i) == node {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return ""
	}
	prev := parent.NamedChild(idx - 1)
	if prev == nil {
		return ""
	}
	switch prev.Type() {
	case "comment", "block_comment", "line_comment", "documentation_comment", "doc_comment":
		return Content(prev, source)
	}
	return ""
}

// BuildFQN joins a parent FQN and a name with the language's separator.
func BuildFQN(parentFQN, sep, name string) string {
	if parentFQN == "" {
		return name
	}
	return parentFQN + sep + name
}

// relID derives a stable relationship id from its endpoints and type so
// re-parsing the same file doesn't duplicate edges.
func relID(relType component.RelationshipType, sourceID, targetID string) string {
	ns := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s|%s|%s", relType, sourceID, targetID)))
	return ns.String()
}

// NewRelationship builds a Relationship with a deterministic id.
func NewRelationship(relType component.RelationshipType, sourceID, targetID string, meta component.Metadata) *component.Relationship {
	return &component.Relationship{
		ID:       relID(relType, sourceID, targetID),
		Type:     relType,
		SourceID: sourceID,
		TargetID: targetID,
		Metadata: meta,
	}
}
