package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/madeindigio/felix-index/pkg/component"
)

// RustExtractor is a lighter adaptation covering structs/enums/traits/impl
// blocks/functions/use-declarations. impl blocks attach their methods to the
// struct/enum they implement by name match rather than by node nesting,
// since Rust's grammar keeps `impl Foo { ... }` separate from `struct Foo`.
type RustExtractor struct {
	BaseExtractor
}

func NewRustExtractor(cfg ExtractorConfig) *RustExtractor {
	return &RustExtractor{BaseExtractor: NewBaseExtractor(component.LanguageRust, cfg)}
}

func (r *RustExtractor) GetIgnorePatterns() []string { return []string{"target/"} }

func (r *RustExtractor) ValidateSyntax(source []byte) []Diagnostic {
	if len(source) == 0 {
		return []Diagnostic{{Severity: "warning", Message: "empty file"}}
	}
	return nil
}

func (r *RustExtractor) DetectComponents(tree *sitter.Tree, source []byte, filePath, projectID string) ([]*component.Component, error) {
	root := tree.RootNode()
	var out []*component.Component
	// byName indexes struct/enum/trait components just emitted so impl
	// blocks (which appear as siblings, not children) can attach their
	// methods to the right parent.
	byName := make(map[string]*component.Component)

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		for _, c := range r.extractTypeOrFn(child, source, filePath, projectID) {
			out = append(out, c)
			byName[c.Name] = c
		}
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil || child.Type() != "impl_item" {
			continue
		}
		out = append(out, r.extractImpl(child, source, filePath, projectID, byName)...)
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil || child.Type() != "use_declaration" {
			continue
		}
		out = append(out, r.extractUse(child, source, filePath, projectID)...)
	}

	return out, nil
}

func (r *RustExtractor) extractTypeOrFn(node *sitter.Node, source []byte, filePath, projectID string) []*component.Component {
	switch node.Type() {
	case "struct_item":
		if c := r.extractNamed(node, source, component.TypeClass, filePath, projectID); c != nil {
			return []*component.Component{c}
		}
	case "enum_item":
		if c := r.extractNamed(node, source, component.TypeEnum, filePath, projectID); c != nil {
			return []*component.Component{c}
		}
	case "trait_item":
		if c := r.extractNamed(node, source, component.TypeInterface, filePath, projectID); c != nil {
			return []*component.Component{c}
		}
	case "function_item":
		if c := r.extractNamed(node, source, component.TypeFunction, filePath, projectID); c != nil {
			return []*component.Component{c}
		}
	}
	return nil
}

func (r *RustExtractor) extractNamed(node *sitter.Node, source []byte, typ component.Type, filePath, projectID string) *component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)
	c := r.NewComponent(node, source, typ, name, filePath, projectID, nil)
	c.Metadata["fqn"] = name
	c.Metadata["doc_string"] = r.ExtractDocString(node, source)
	return c
}

func (r *RustExtractor) extractImpl(node *sitter.Node, source []byte, filePath, projectID string, byName map[string]*component.Component) []*component.Component {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return nil
	}
	typeName := Content(typeNode, source)
	parent, ok := byName[typeName]

	var traitName string
	if traitNode := node.ChildByFieldName("trait"); traitNode != nil {
		traitName = Content(traitNode, source)
	}

	var out []*component.Component
	body := node.ChildByFieldName("body")
	if body == nil {
		return out
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		fn := body.NamedChild(i)
		if fn == nil || fn.Type() != "function_item" {
			continue
		}
		nameNode := fn.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := Content(nameNode, source)
		var parentID *string
		if ok {
			parentID = &parent.ID
		}
		m := r.NewComponent(fn, source, component.TypeMethod, name, filePath, projectID, parentID)
		m.Metadata["fqn"] = BuildFQN(typeName, "::", name)
		if traitName != "" {
			m.Metadata["trait_impl"] = traitName
		}
		out = append(out, m)
	}
	if ok && traitName != "" {
		parent.Metadata["implements"] = append(parent.Metadata.StringSlice("implements"), traitName)
	}
	return out
}

func (r *RustExtractor) extractUse(node *sitter.Node, source []byte, filePath, projectID string) []*component.Component {
	argNode := node.ChildByFieldName("argument")
	if argNode == nil {
		return nil
	}
	path := Content(argNode, source)
	c := r.NewComponent(node, source, component.TypeImport, path, filePath, projectID, nil)
	c.Metadata["use_path"] = path
	return []*component.Component{c}
}

func (r *RustExtractor) DetectRelationships(tree *sitter.Tree, source []byte, filePath string, components []*component.Component) ([]*component.Relationship, error) {
	var rels []*component.Relationship
	for _, c := range components {
		if c.ParentID != nil {
			rels = append(rels, NewRelationship(component.RelContains, *c.ParentID, c.ID, nil))
			rels = append(rels, NewRelationship(component.RelContainedBy, c.ID, *c.ParentID, nil))
		}

		switch c.Type {
		case component.TypeImport:
			path := c.Metadata.String("use_path")
			root := strings.SplitN(path, "::", 2)[0]
			var target string
			if root == "crate" || root == "self" || root == "super" {
				target = component.UnresolvedTarget(path)
			} else {
				target = component.ExternalTarget(root)
			}
			rels = append(rels, NewRelationship(component.RelImportsFrom, c.ID, target, component.Metadata{
				"syntax": "rust_use",
			}))
		case component.TypeClass, component.TypeEnum:
			for _, trait := range c.Metadata.StringSlice("implements") {
				rels = append(rels, NewRelationship(component.RelImplements, c.ID, component.UnresolvedTarget(trait), component.Metadata{
					"targetFqn": trait,
					"syntax":    "rust_impl_trait",
				}))
			}
		}
	}
	return rels, nil
}
