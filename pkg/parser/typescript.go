package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/madeindigio/felix-index/pkg/component"
)

// TypeScriptExtractor extracts components and relationships from
// TypeScript/JavaScript source, including the import/export/barrel-chain
// machinery spec.md §8.2's TS re-export scenario exercises. The same
// extractor backs both languages (JS parses as a syntactic subset of the
// grammar we use for component/import detection).
type TypeScriptExtractor struct {
	BaseExtractor
}

func NewTypeScriptExtractor(cfg ExtractorConfig, lang component.Language) *TypeScriptExtractor {
	return &TypeScriptExtractor{BaseExtractor: NewBaseExtractor(lang, cfg)}
}

func (t *TypeScriptExtractor) GetIgnorePatterns() []string {
	return []string{"node_modules/", "*.d.ts", "dist/", "build/"}
}

func (t *TypeScriptExtractor) ValidateSyntax(source []byte) []Diagnostic {
	if len(source) == 0 {
		return []Diagnostic{{Severity: "warning", Message: "empty file"}}
	}
	return nil
}

func (t *TypeScriptExtractor) DetectComponents(tree *sitter.Tree, source []byte, filePath, projectID string) ([]*component.Component, error) {
	root := tree.RootNode()
	var out []*component.Component
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		out = append(out, t.extractNode(child, source, filePath, projectID, nil, false)...)
	}
	return out, nil
}

// extractNode extracts a single top-level (or export-wrapped) declaration.
// exported sets the resulting component's metadata.is_export; the
// relationship pass does not read it.
func (t *TypeScriptExtractor) extractNode(node *sitter.Node, source []byte, filePath, projectID string, parentID *string, exported bool) []*component.Component {
	switch node.Type() {
	case "class_declaration":
		return t.extractClass(node, source, filePath, projectID, parentID, exported)
	case "interface_declaration":
		if c := t.extractNamed(node, source, component.TypeInterface, filePath, projectID, parentID, exported); c != nil {
			return []*component.Component{c}
		}
	case "function_declaration":
		if c := t.extractNamed(node, source, component.TypeFunction, filePath, projectID, parentID, exported); c != nil {
			return []*component.Component{c}
		}
	case "enum_declaration":
		if c := t.extractNamed(node, source, component.TypeEnum, filePath, projectID, parentID, exported); c != nil {
			return []*component.Component{c}
		}
	case "lexical_declaration", "variable_declaration":
		return t.extractVariables(node, source, filePath, projectID, parentID, exported)
	case "export_statement":
		return t.extractExportStatement(node, source, filePath, projectID, parentID)
	case "import_statement":
		return t.extractImport(node, source, filePath, projectID, parentID)
	}
	return nil
}

func (t *TypeScriptExtractor) extractNamed(node *sitter.Node, source []byte, typ component.Type, filePath, projectID string, parentID *string, exported bool) *component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)
	c := t.NewComponent(node, source, typ, name, filePath, projectID, parentID)
	c.Metadata["fqn"] = name
	c.Metadata["doc_string"] = t.ExtractDocString(node, source)
	if exported {
		c.Metadata["is_export"] = true
	}
	return c
}

func (t *TypeScriptExtractor) extractClass(node *sitter.Node, source []byte, filePath, projectID string, parentID *string, exported bool) []*component.Component {
	class := t.extractNamed(node, source, component.TypeClass, filePath, projectID, parentID, exported)
	if class == nil {
		return nil
	}
	out := []*component.Component{class}

	body := node.ChildByFieldName("body")
	if body == nil {
		return out
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member == nil {
			continue
		}
		switch member.Type() {
		case "method_definition":
			if nameNode := member.ChildByFieldName("name"); nameNode != nil {
				name := Content(nameNode, source)
				typ := component.TypeMethod
				if name == "constructor" {
					typ = component.TypeConstructor
				}
				m := t.NewComponent(member, source, typ, name, filePath, projectID, &class.ID)
				m.Metadata["fqn"] = BuildFQN(class.Metadata.FQN(), ".", name)
				out = append(out, m)
			}
		case "public_field_definition", "field_definition":
			if nameNode := member.ChildByFieldName("property"); nameNode != nil {
				name := Content(nameNode, source)
				p := t.NewComponent(member, source, component.TypeProperty, name, filePath, projectID, &class.ID)
				p.Metadata["fqn"] = BuildFQN(class.Metadata.FQN(), ".", name)
				out = append(out, p)
			}
		}
	}

	// extends/implements are collected here as pending metadata for the
	// relationship pass, since these heritage clauses name other classes
	// by bare identifier that only the cross-file resolver can place.
	if heritage := FindChildByType(node, "class_heritage"); heritage != nil {
		names := collectHeritageNames(heritage, source)
		if len(names) > 0 {
			class.Metadata["heritage"] = names
		}
	}

	return out
}

func collectHeritageNames(node *sitter.Node, source []byte) []string {
	var names []string
	it := NewNodeIterator(node)
	for n := it.Next(); n != nil; n = it.Next() {
		if n.Type() == "identifier" || n.Type() == "type_identifier" {
			names = append(names, Content(n, source))
		}
	}
	return names
}

func (t *TypeScriptExtractor) extractVariables(node *sitter.Node, source []byte, filePath, projectID string, parentID *string, exported bool) []*component.Component {
	var out []*component.Component
	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		if decl == nil || decl.Type() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := Content(nameNode, source)
		c := t.NewComponent(decl, source, component.TypeVariable, name, filePath, projectID, parentID)
		c.Metadata["fqn"] = name
		if exported {
			c.Metadata["is_export"] = true
		}
		out = append(out, c)
	}
	return out
}

// extractExportStatement handles three shapes: `export <decl>`,
// `export { a, b as c }` (local re-export), and `export { a } from './mod'`
// (a barrel re-export — the case spec.md §8.2 names explicitly).
func (t *TypeScriptExtractor) extractExportStatement(node *sitter.Node, source []byte, filePath, projectID string, parentID *string) []*component.Component {
	if decl := node.ChildByFieldName("declaration"); decl != nil {
		return t.extractNode(decl, source, filePath, projectID, parentID, true)
	}

	var out []*component.Component
	source_ := node.ChildByFieldName("source")
	fromModule := ""
	if source_ != nil {
		fromModule = strings.Trim(Content(source_, source), `'"`)
	}

	if clause := FindChildByType(node, "export_clause"); clause != nil {
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			spec := clause.NamedChild(i)
			if spec == nil || spec.Type() != "export_specifier" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			exportedName := Content(nameNode, source)
			localName := exportedName
			if aliasNode := spec.ChildByFieldName("alias"); aliasNode != nil {
				exportedName = Content(aliasNode, source)
			}
			c := t.NewComponent(spec, source, component.TypeExport, exportedName, filePath, projectID, parentID)
			c.Metadata["fqn"] = exportedName
			c.Metadata["imported_name"] = localName
			if fromModule != "" {
				c.Metadata["from_module"] = fromModule
			}
			out = append(out, c)
		}
	}
	return out
}

func (t *TypeScriptExtractor) extractImport(node *sitter.Node, source []byte, filePath, projectID string, parentID *string) []*component.Component {
	var out []*component.Component
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		return out
	}
	fromModule := strings.Trim(Content(sourceNode, source), `'"`)

	clause := FindChildByType(node, "import_clause")
	if clause == nil {
		return out
	}

	if named := FindChildByType(clause, "named_imports"); named != nil {
		for i := 0; i < int(named.NamedChildCount()); i++ {
			spec := named.NamedChild(i)
			if spec == nil || spec.Type() != "import_specifier" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			importedName := Content(nameNode, source)
			localName := importedName
			if aliasNode := spec.ChildByFieldName("alias"); aliasNode != nil {
				localName = Content(aliasNode, source)
			}
			c := t.NewComponent(spec, source, component.TypeImport, localName, filePath, projectID, parentID)
			c.Metadata["from_module"] = fromModule
			c.Metadata["imported_name"] = importedName
			out = append(out, c)
		}
	}

	if def := clause.ChildByFieldName("default"); def != nil {
		c := t.NewComponent(def, source, component.TypeImport, Content(def, source), filePath, projectID, parentID)
		c.Metadata["from_module"] = fromModule
		c.Metadata["imported_name"] = "default"
		out = append(out, c)
	}

	return out
}

// DetectRelationships emits imports_from edges (targeting UNRESOLVED:<fqn>
// for relative module specifiers the cross-file resolver can follow
// through barrel re-exports, EXTERNAL: for bare package specifiers) and
// one extends edge per name in a class's heritage clauses. Names from an
// implements clause also become extends edges; no implements edge is
// emitted.
func (t *TypeScriptExtractor) DetectRelationships(tree *sitter.Tree, source []byte, filePath string, components []*component.Component) ([]*component.Relationship, error) {
	var rels []*component.Relationship

	for _, c := range components {
		if c.ParentID != nil {
			rels = append(rels, NewRelationship(component.RelContains, *c.ParentID, c.ID, nil))
			rels = append(rels, NewRelationship(component.RelContainedBy, c.ID, *c.ParentID, nil))
		}

		switch c.Type {
		case component.TypeImport:
			from := c.Metadata.String("from_module")
			importedName := c.Metadata.String("imported_name")
			var target string
			if strings.HasPrefix(from, ".") {
				target = component.UnresolvedTarget(from + "#" + importedName)
			} else {
				target = component.ExternalTarget(from)
			}
			rels = append(rels, NewRelationship(component.RelImportsFrom, c.ID, target, component.Metadata{
				"importedName": importedName,
				"syntax":       "ts_import",
			}))
		case component.TypeExport:
			if from := c.Metadata.String("from_module"); from != "" {
				target := component.UnresolvedTarget(from + "#" + c.Metadata.String("imported_name"))
				rels = append(rels, NewRelationship(component.RelImportsFrom, c.ID, target, component.Metadata{
					"importedName": c.Metadata.String("imported_name"),
					"syntax":       "ts_reexport",
				}))
			}
		case component.TypeClass:
			for _, name := range c.Metadata.StringSlice("heritage") {
				rels = append(rels, NewRelationship(component.RelExtends, c.ID, component.UnresolvedTarget(name), component.Metadata{
					"targetFqn": name,
					"syntax":    "ts_heritage",
				}))
			}
		}
	}

	return rels, nil
}
