package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/madeindigio/felix-index/pkg/component"
)

// GoExtractor extracts components and relationships from Go source.
type GoExtractor struct {
	BaseExtractor
}

func NewGoExtractor(cfg ExtractorConfig) *GoExtractor {
	return &GoExtractor{BaseExtractor: NewBaseExtractor(component.LanguageGo, cfg)}
}

func (g *GoExtractor) GetIgnorePatterns() []string {
	return []string{"vendor/", "*.pb.go"}
}

func (g *GoExtractor) ValidateSyntax(source []byte) []Diagnostic {
	if len(source) == 0 {
		return []Diagnostic{{Severity: "warning", Message: "empty file"}}
	}
	return nil
}

func (g *GoExtractor) DetectComponents(tree *sitter.Tree, source []byte, filePath, projectID string) ([]*component.Component, error) {
	root := tree.RootNode()
	var out []*component.Component

	pkgName := ""
	if pkgClause := FindChildByType(root, "package_clause"); pkgClause != nil {
		if nameNode := FindChildByType(pkgClause, "package_identifier"); nameNode != nil {
			pkgName = Content(nameNode, source)
			pkg := g.NewComponent(pkgClause, source, component.TypeModule, pkgName, filePath, projectID, nil)
			pkg.Metadata["fqn"] = pkgName
			out = append(out, pkg)
		}
	}

	var pkgID *string
	if len(out) > 0 {
		pkgID = &out[0].ID
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		out = append(out, g.extractNode(child, source, filePath, projectID, pkgName, pkgID)...)
	}

	return out, nil
}

func (g *GoExtractor) extractNode(node *sitter.Node, source []byte, filePath, projectID, pkgFQN string, parentID *string) []*component.Component {
	switch node.Type() {
	case "function_declaration":
		if c := g.extractFunction(node, source, filePath, projectID, pkgFQN, parentID); c != nil {
			return []*component.Component{c}
		}
	case "method_declaration":
		if c := g.extractMethod(node, source, filePath, projectID, pkgFQN, parentID); c != nil {
			return []*component.Component{c}
		}
	case "type_declaration":
		return g.extractTypeDeclaration(node, source, filePath, projectID, pkgFQN, parentID)
	case "import_declaration":
		return g.extractImports(node, source, filePath, projectID, parentID)
	}
	return nil
}

func (g *GoExtractor) extractFunction(node *sitter.Node, source []byte, filePath, projectID, pkgFQN string, parentID *string) *component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)
	c := g.NewComponent(node, source, component.TypeFunction, name, filePath, projectID, parentID)
	c.Metadata["fqn"] = BuildFQN(pkgFQN, ".", name)
	c.Metadata["signature"] = g.signature(node, source)
	c.Metadata["doc_string"] = g.ExtractDocString(node, source)
	return c
}

func (g *GoExtractor) extractMethod(node *sitter.Node, source []byte, filePath, projectID, pkgFQN string, parentID *string) *component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)

	receiverType := ""
	if recv := node.ChildByFieldName("receiver"); recv != nil {
		for i := 0; i < int(recv.NamedChildCount()); i++ {
			param := recv.NamedChild(i)
			if param != nil && param.Type() == "parameter_declaration" {
				if typeNode := param.ChildByFieldName("type"); typeNode != nil {
					receiverType = g.typeName(typeNode, source)
					break
				}
			}
		}
	}

	c := g.NewComponent(node, source, component.TypeMethod, name, filePath, projectID, parentID)
	if receiverType != "" {
		c.Metadata["receiver_type"] = receiverType
		c.Metadata["fqn"] = BuildFQN(pkgFQN, ".", receiverType+"."+name)
	} else {
		c.Metadata["fqn"] = BuildFQN(pkgFQN, ".", name)
	}
	c.Metadata["signature"] = g.signature(node, source)
	c.Metadata["doc_string"] = g.ExtractDocString(node, source)
	return c
}

func (g *GoExtractor) extractTypeDeclaration(node *sitter.Node, source []byte, filePath, projectID, pkgFQN string, parentID *string) []*component.Component {
	var out []*component.Component

	for i := 0; i < int(node.NamedChildCount()); i++ {
		spec := node.NamedChild(i)
		if spec == nil || spec.Type() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		typeNode := spec.ChildByFieldName("type")
		if nameNode == nil || typeNode == nil {
			continue
		}
		name := Content(nameNode, source)

		var typ component.Type
		switch typeNode.Type() {
		case "struct_type":
			typ = component.TypeClass
		case "interface_type":
			typ = component.TypeInterface
		default:
			typ = component.TypeClass
		}

		c := g.NewComponent(spec, source, typ, name, filePath, projectID, parentID)
		c.Metadata["fqn"] = BuildFQN(pkgFQN, ".", name)
		c.Metadata["doc_string"] = g.ExtractDocString(spec, source)
		out = append(out, c)

		if typ == component.TypeInterface {
			out = append(out, g.extractInterfaceMethods(typeNode, source, filePath, projectID, c.Metadata.FQN(), &c.ID)...)
		} else {
			out = append(out, g.extractStructFields(typeNode, source, filePath, projectID, c.Metadata.FQN(), &c.ID)...)
		}
	}

	return out
}

func (g *GoExtractor) extractStructFields(node *sitter.Node, source []byte, filePath, projectID, parentFQN string, parentID *string) []*component.Component {
	var out []*component.Component
	fieldList := FindChildByType(node, "field_declaration_list")
	if fieldList == nil {
		return out
	}
	for i := 0; i < int(fieldList.NamedChildCount()); i++ {
		field := fieldList.NamedChild(i)
		if field == nil || field.Type() != "field_declaration" {
			continue
		}
		for j := 0; j < int(field.NamedChildCount()); j++ {
			nameNode := field.NamedChild(j)
			if nameNode != nil && nameNode.Type() == "field_identifier" {
				name := Content(nameNode, source)
				c := g.NewComponent(field, source, component.TypeProperty, name, filePath, projectID, parentID)
				c.Metadata["fqn"] = BuildFQN(parentFQN, ".", name)
				out = append(out, c)
			}
		}
	}
	return out
}

func (g *GoExtractor) extractInterfaceMethods(node *sitter.Node, source []byte, filePath, projectID, parentFQN string, parentID *string) []*component.Component {
	var out []*component.Component
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Type() != "method_spec" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := Content(nameNode, source)
		c := g.NewComponent(child, source, component.TypeMethod, name, filePath, projectID, parentID)
		c.Metadata["fqn"] = BuildFQN(parentFQN, ".", name)
		c.Metadata["signature"] = Content(child, source)
		out = append(out, c)
	}
	return out
}

func (g *GoExtractor) extractImports(node *sitter.Node, source []byte, filePath, projectID string, parentID *string) []*component.Component {
	var out []*component.Component
	specs := FindChildrenByType(node, "import_spec")
	if len(specs) == 0 {
		// Single-import form: import_declaration directly wraps an import_spec_list
		if list := FindChildByType(node, "import_spec_list"); list != nil {
			specs = FindChildrenByType(list, "import_spec")
		}
	}
	for _, spec := range specs {
		pathNode := spec.ChildByFieldName("path")
		if pathNode == nil {
			continue
		}
		path := strings.Trim(Content(pathNode, source), `"`)
		alias := ""
		if aliasNode := spec.ChildByFieldName("name"); aliasNode != nil {
			alias = Content(aliasNode, source)
		}
		c := g.NewComponent(spec, source, component.TypeImport, path, filePath, projectID, parentID)
		c.Metadata["import_path"] = path
		if alias != "" {
			c.Metadata["import_alias"] = alias
		}
		out = append(out, c)
	}
	return out
}

// DetectRelationships emits: contains/contained_by edges between each
// component and its parent, contains edges from the package to its
// top-level components, call edges, and one import edge per import path,
// always targeting an EXTERNAL: sentinel (same-module paths included).
// No implements edges are emitted.
func (g *GoExtractor) DetectRelationships(tree *sitter.Tree, source []byte, filePath string, components []*component.Component) ([]*component.Relationship, error) {
	var rels []*component.Relationship

	var fileComponent *component.Component
	for _, c := range components {
		if c.Type == component.TypeModule && c.ParentID == nil {
			fileComponent = c
			break
		}
	}

	for _, c := range components {
		if c.ParentID != nil {
			rels = append(rels, NewRelationship(component.RelContains, *c.ParentID, c.ID, nil))
			rels = append(rels, NewRelationship(component.RelContainedBy, c.ID, *c.ParentID, nil))
		} else if fileComponent != nil && c.ID != fileComponent.ID {
			rels = append(rels, NewRelationship(component.RelContains, fileComponent.ID, c.ID, nil))
		}

		if c.Type == component.TypeImport {
			importPath := c.Metadata.String("import_path")
			target := component.ExternalTarget(importPath)
			rels = append(rels, NewRelationship(component.RelImportsFrom, c.ID, target, component.Metadata{
				"syntax": "go_import",
			}))
		}
	}

	// Call-edge detection: walk every function/method body for call
	// expressions and record them as RESOLVE: sentinels (bare identifier)
	// or UNRESOLVED:<fqn> (selector expression), letting the cross-file
	// resolver match them against the project's FQN map.
	byLine := make(map[int]*component.Component)
	for _, c := range components {
		if c.Type == component.TypeFunction || c.Type == component.TypeMethod {
			for l := c.Location.StartLine; l <= c.Location.EndLine; l++ {
				byLine[l] = c
			}
		}
	}

	it := NewNodeIterator(tree.RootNode())
	for node := it.Next(); node != nil; node = it.Next() {
		if node.Type() != "call_expression" {
			continue
		}
		fn := node.ChildByFieldName("function")
		if fn == nil {
			continue
		}
		line := int(node.StartPoint().Row) + 1
		caller, ok := byLine[line]
		if !ok {
			continue
		}

		var target string
		switch fn.Type() {
		case "identifier":
			target = component.ResolveTarget(Content(fn, source))
		case "selector_expression":
			target = component.UnresolvedTarget(Content(fn, source))
		default:
			continue
		}
		rels = append(rels, NewRelationship(component.RelCalls, caller.ID, target, component.Metadata{
			"line": line,
		}))
	}

	return rels, nil
}

func (g *GoExtractor) signature(node *sitter.Node, source []byte) string {
	var endByte uint32
	if result := node.ChildByFieldName("result"); result != nil {
		endByte = result.EndByte()
	} else if params := node.ChildByFieldName("parameters"); params != nil {
		endByte = params.EndByte()
	} else if name := node.ChildByFieldName("name"); name != nil {
		endByte = name.EndByte()
	} else {
		return ""
	}
	startByte := node.StartByte()
	if int(endByte) > len(source) {
		endByte = uint32(len(source))
	}
	return string(source[startByte:endByte])
}

func (g *GoExtractor) typeName(node *sitter.Node, source []byte) string {
	if node.Type() == "pointer_type" {
		if child := node.NamedChild(0); child != nil {
			return g.typeName(child, source)
		}
	}
	return Content(node, source)
}
