package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/madeindigio/felix-index/pkg/component"
)

// PythonExtractor is a lighter adaptation of the Go/PHP extractors: it
// covers class/function/method/import detection and the import-edge
// resolution needed for cross-module calls, but (unlike Go) does not
// attempt call-site detection — Python's dynamic dispatch makes a
// structural call graph unreliable without type inference this parser
// doesn't do.
type PythonExtractor struct {
	BaseExtractor
}

func NewPythonExtractor(cfg ExtractorConfig) *PythonExtractor {
	return &PythonExtractor{BaseExtractor: NewBaseExtractor(component.LanguagePython, cfg)}
}

func (p *PythonExtractor) GetIgnorePatterns() []string {
	return []string{"__pycache__/", "*.pyc", ".venv/", "venv/"}
}

func (p *PythonExtractor) ValidateSyntax(source []byte) []Diagnostic {
	if len(source) == 0 {
		return []Diagnostic{{Severity: "warning", Message: "empty file"}}
	}
	return nil
}

func (p *PythonExtractor) DetectComponents(tree *sitter.Tree, source []byte, filePath, projectID string) ([]*component.Component, error) {
	root := tree.RootNode()
	var out []*component.Component
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		out = append(out, p.extractNode(child, source, filePath, projectID, "", nil)...)
	}
	return out, nil
}

func (p *PythonExtractor) extractNode(node *sitter.Node, source []byte, filePath, projectID, parentFQN string, parentID *string) []*component.Component {
	switch node.Type() {
	case "class_definition":
		return p.extractClass(node, source, filePath, projectID, parentFQN, parentID)
	case "function_definition":
		if c := p.extractFunction(node, source, filePath, projectID, parentFQN, parentID); c != nil {
			return []*component.Component{c}
		}
	case "import_statement", "import_from_statement":
		return p.extractImport(node, source, filePath, projectID, parentID)
	}
	return nil
}

func (p *PythonExtractor) extractClass(node *sitter.Node, source []byte, filePath, projectID, parentFQN string, parentID *string) []*component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)
	fqn := BuildFQN(parentFQN, ".", name)

	c := p.NewComponent(node, source, component.TypeClass, name, filePath, projectID, parentID)
	c.Metadata["fqn"] = fqn
	c.Metadata["doc_string"] = p.docstring(node, source)

	if superclasses := node.ChildByFieldName("superclasses"); superclasses != nil {
		var bases []string
		for i := 0; i < int(superclasses.NamedChildCount()); i++ {
			n := superclasses.NamedChild(i)
			if n != nil && (n.Type() == "identifier" || n.Type() == "attribute") {
				bases = append(bases, Content(n, source))
			}
		}
		if len(bases) > 0 {
			c.Metadata["bases"] = bases
		}
	}

	out := []*component.Component{c}

	body := node.ChildByFieldName("body")
	if body == nil {
		return out
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child == nil || child.Type() != "function_definition" {
			continue
		}
		if m := p.extractMethod(child, source, filePath, projectID, fqn, &c.ID); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func (p *PythonExtractor) extractFunction(node *sitter.Node, source []byte, filePath, projectID, parentFQN string, parentID *string) *component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)
	c := p.NewComponent(node, source, component.TypeFunction, name, filePath, projectID, parentID)
	c.Metadata["fqn"] = BuildFQN(parentFQN, ".", name)
	c.Metadata["doc_string"] = p.docstring(node, source)
	return c
}

func (p *PythonExtractor) extractMethod(node *sitter.Node, source []byte, filePath, projectID, classFQN string, parentID *string) *component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)
	typ := component.TypeMethod
	if name == "__init__" {
		typ = component.TypeConstructor
	}
	c := p.NewComponent(node, source, typ, name, filePath, projectID, parentID)
	c.Metadata["fqn"] = BuildFQN(classFQN, ".", name)
	c.Metadata["doc_string"] = p.docstring(node, source)
	return c
}

func (p *PythonExtractor) extractImport(node *sitter.Node, source []byte, filePath, projectID string, parentID *string) []*component.Component {
	var out []*component.Component
	if node.Type() == "import_from_statement" {
		moduleNode := node.ChildByFieldName("module_name")
		module := ""
		if moduleNode != nil {
			module = Content(moduleNode, source)
		}
		names := FindChildrenByType(node, "dotted_name")
		for i, n := range names {
			if i == 0 && moduleNode != nil && n == moduleNode {
				continue
			}
			name := Content(n, source)
			c := p.NewComponent(n, source, component.TypeImport, name, filePath, projectID, parentID)
			c.Metadata["from_module"] = module
			c.Metadata["imported_name"] = name
			out = append(out, c)
		}
		return out
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		n := node.NamedChild(i)
		if n == nil || (n.Type() != "dotted_name" && n.Type() != "aliased_import") {
			continue
		}
		target := n
		if n.Type() == "aliased_import" {
			if dn := n.ChildByFieldName("name"); dn != nil {
				target = dn
			}
		}
		module := Content(target, source)
		c := p.NewComponent(n, source, component.TypeImport, module, filePath, projectID, parentID)
		c.Metadata["from_module"] = module
		out = append(out, c)
	}
	return out
}

// docstring returns the string literal leading a class/function body, the
// convention Python uses in place of a preceding comment block.
func (p *PythonExtractor) docstring(node *sitter.Node, source []byte) string {
	if !p.Config.ExtractDocStrings {
		return ""
	}
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Type() != "expression_statement" {
		return ""
	}
	if first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str == nil || str.Type() != "string" {
		return ""
	}
	return strings.Trim(Content(str, source), "\"'")
}

func (p *PythonExtractor) DetectRelationships(tree *sitter.Tree, source []byte, filePath string, components []*component.Component) ([]*component.Relationship, error) {
	var rels []*component.Relationship
	for _, c := range components {
		if c.ParentID != nil {
			rels = append(rels, NewRelationship(component.RelContains, *c.ParentID, c.ID, nil))
			rels = append(rels, NewRelationship(component.RelContainedBy, c.ID, *c.ParentID, nil))
		}

		switch c.Type {
		case component.TypeImport:
			module := c.Metadata.String("from_module")
			var target string
			if strings.HasPrefix(module, ".") {
				target = component.UnresolvedTarget(module + "#" + c.Metadata.String("imported_name"))
			} else {
				target = component.ExternalTarget(module)
			}
			rels = append(rels, NewRelationship(component.RelImportsFrom, c.ID, target, component.Metadata{
				"syntax": "python_import",
			}))
		case component.TypeClass:
			for _, base := range c.Metadata.StringSlice("bases") {
				rels = append(rels, NewRelationship(component.RelExtends, c.ID, component.UnresolvedTarget(base), component.Metadata{
					"targetFqn": base,
					"syntax":    "python_base",
				}))
			}
		}
	}
	return rels, nil
}
