package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/madeindigio/felix-index/pkg/component"
)

// genericNodeTypes maps common tree-sitter node type names, shared across
// many grammars, to a component.Type. Used as a fallback when no dedicated
// LanguageExtractor is registered for a language.
var genericNodeTypes = map[string]component.Type{
	"function_definition":     component.TypeFunction,
	"function_declaration":    component.TypeFunction,
	"method_definition":       component.TypeMethod,
	"method_declaration":      component.TypeMethod,
	"class_definition":        component.TypeClass,
	"class_declaration":       component.TypeClass,
	"interface_definition":    component.TypeInterface,
	"interface_declaration":   component.TypeInterface,
	"enum_definition":         component.TypeEnum,
	"enum_declaration":        component.TypeEnum,
	"const_declaration":       component.TypeVariable,
	"variable_declaration":    component.TypeVariable,
	"function_item":           component.TypeFunction,
	"impl_item":               component.TypeClass,
	"module_definition":       component.TypeModule,
	"namespace_definition":    component.TypeNamespace,
	"package_declaration":     component.TypeModule,
	"constructor_declaration": component.TypeConstructor,
}

// GenericExtractor is a structural fallback: it recognizes common node type
// names across grammars without understanding any language's relationship
// semantics (so it never emits relationships — callers get components only
// until a dedicated extractor is registered for that language).
type GenericExtractor struct {
	BaseExtractor
}

func NewGenericExtractor(cfg ExtractorConfig, lang component.Language) *GenericExtractor {
	return &GenericExtractor{BaseExtractor: NewBaseExtractor(lang, cfg)}
}

func (g *GenericExtractor) DetectComponents(tree *sitter.Tree, source []byte, filePath, projectID string) ([]*component.Component, error) {
	var out []*component.Component
	it := NewNodeIterator(tree.RootNode())
	for node := it.Next(); node != nil; node = it.Next() {
		typ, ok := genericNodeTypes[node.Type()]
		if !ok {
			continue
		}
		name := findNodeName(node, source)
		if name == "" {
			continue
		}
		c := g.NewComponent(node, source, typ, name, filePath, projectID, nil)
		c.Metadata["doc_string"] = g.ExtractDocString(node, source)
		out = append(out, c)
	}
	return out, nil
}

func (g *GenericExtractor) DetectRelationships(*sitter.Tree, []byte, string, []*component.Component) ([]*component.Relationship, error) {
	return nil, nil
}

func (g *GenericExtractor) ValidateSyntax([]byte) []Diagnostic { return nil }

func (g *GenericExtractor) GetIgnorePatterns() []string { return nil }

// findNodeName tries common field-name conventions, then falls back to the
// first identifier-shaped child.
func findNodeName(node *sitter.Node, source []byte) string {
	for _, field := range []string{"name", "identifier", "declarator"} {
		if child := node.ChildByFieldName(field); child != nil {
			if child.Type() == "pointer_declarator" || child.Type() == "function_declarator" {
				if nested := child.ChildByFieldName("declarator"); nested != nil {
					return Content(nested, source)
				}
			}
			return Content(child, source)
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && (child.Type() == "identifier" || child.Type() == "type_identifier") {
			return Content(child, source)
		}
	}
	return ""
}
