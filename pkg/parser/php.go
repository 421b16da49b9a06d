package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/madeindigio/felix-index/pkg/component"
)

// PHPExtractor extracts components and relationships from PHP source,
// including namespace-qualified FQNs and `implements`/`extends`/`use`
// edges — the concrete scenario spec.md §8.1 (PHP namespace resolution)
// exercises.
type PHPExtractor struct {
	BaseExtractor
	lastState *phpState
}

func NewPHPExtractor(cfg ExtractorConfig) *PHPExtractor {
	return &PHPExtractor{BaseExtractor: NewBaseExtractor(component.LanguagePHP, cfg)}
}

func (p *PHPExtractor) GetIgnorePatterns() []string { return []string{"vendor/"} }

func (p *PHPExtractor) ValidateSyntax(source []byte) []Diagnostic {
	if len(source) == 0 {
		return []Diagnostic{{Severity: "warning", Message: "empty file"}}
	}
	return nil
}

// pendingEdge records a not-yet-built relationship whose target is a class
// name (possibly aliased) resolved against the file's `use` imports once
// extraction of the whole file completes.
type pendingEdge struct {
	relType  component.RelationshipType
	sourceID string
	name     string // raw name as written (may be aliased/unqualified)
}

type phpState struct {
	useAliases map[string]string // alias -> fully qualified name
	pending    []pendingEdge
}

func (p *PHPExtractor) DetectComponents(tree *sitter.Tree, source []byte, filePath, projectID string) ([]*component.Component, error) {
	root := tree.RootNode()
	var out []*component.Component

	state := &phpState{useAliases: map[string]string{}}
	p.collectUseAliases(root, source, state)

	// A `namespace X;` statement (no body) scopes every declaration after it
	// in the file, so its name and id carry over to the following siblings.
	nsFQN := ""
	var nsID *string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		comps := p.extractNode(child, source, filePath, projectID, nsFQN, nsID, state)
		if child.Type() == "namespace_definition" && child.ChildByFieldName("body") == nil && len(comps) > 0 {
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				nsFQN = Content(nameNode, source)
			}
			nsID = &comps[0].ID
		}
		out = append(out, comps...)
	}

	p.lastState = state
	return out, nil
}

// lastState threads the use-alias table collected during DetectComponents
// through to DetectRelationships, since the extractor interface parses
// components and relationships as two calls over the same tree.
func (p *PHPExtractor) collectUseAliases(root *sitter.Node, source []byte, state *phpState) {
	it := NewNodeIterator(root)
	for node := it.Next(); node != nil; node = it.Next() {
		if node.Type() != "namespace_use_declaration" {
			continue
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			clause := node.NamedChild(i)
			if clause == nil || clause.Type() != "namespace_use_clause" {
				continue
			}
			nameNode := clause.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			fqn := strings.TrimPrefix(Content(nameNode, source), `\`)
			alias := fqn
			if idx := strings.LastIndex(fqn, `\`); idx >= 0 {
				alias = fqn[idx+1:]
			}
			if aliasNode := clause.ChildByFieldName("alias"); aliasNode != nil {
				alias = Content(aliasNode, source)
			}
			state.useAliases[alias] = fqn
		}
	}
}

func (p *PHPExtractor) extractNode(node *sitter.Node, source []byte, filePath, projectID, nsFQN string, parentID *string, state *phpState) []*component.Component {
	switch node.Type() {
	case "namespace_definition":
		return p.extractNamespace(node, source, filePath, projectID, state)
	case "class_declaration":
		return p.extractClass(node, source, filePath, projectID, nsFQN, parentID, state)
	case "interface_declaration":
		if c := p.extractInterface(node, source, filePath, projectID, nsFQN, parentID); c != nil {
			return []*component.Component{c}
		}
	case "trait_declaration":
		if c := p.extractTrait(node, source, filePath, projectID, nsFQN, parentID); c != nil {
			return []*component.Component{c}
		}
	case "function_definition":
		if c := p.extractFunction(node, source, filePath, projectID, nsFQN, parentID); c != nil {
			return []*component.Component{c}
		}
	}
	return nil
}

func (p *PHPExtractor) extractNamespace(node *sitter.Node, source []byte, filePath, projectID string, state *phpState) []*component.Component {
	nameNode := node.ChildByFieldName("name")
	nsName := ""
	if nameNode != nil {
		nsName = Content(nameNode, source)
	}

	var out []*component.Component
	nsComponent := p.NewComponent(node, source, component.TypeNamespace, nsName, filePath, projectID, nil)
	nsComponent.Metadata["fqn"] = nsName
	out = append(out, nsComponent)

	body := node.ChildByFieldName("body")
	if body == nil {
		return out
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child == nil {
			continue
		}
		out = append(out, p.extractNode(child, source, filePath, projectID, nsName, &nsComponent.ID, state)...)
	}
	return out
}

func (p *PHPExtractor) extractClass(node *sitter.Node, source []byte, filePath, projectID, nsFQN string, parentID *string, state *phpState) []*component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)
	fqn := BuildFQN(nsFQN, `\`, name)

	class := p.NewComponent(node, source, component.TypeClass, name, filePath, projectID, parentID)
	class.Metadata["fqn"] = fqn
	class.Metadata["doc_string"] = p.ExtractDocString(node, source)

	if base := node.ChildByFieldName("base_clause"); base != nil {
		if baseName := firstNameChild(base, source); baseName != "" {
			state.pending = append(state.pending, pendingEdge{component.RelExtends, class.ID, baseName})
		}
	}
	if iface := FindChildByType(node, "class_interface_clause"); iface != nil {
		for i := 0; i < int(iface.NamedChildCount()); i++ {
			n := iface.NamedChild(i)
			if n != nil && n.Type() == "name" {
				state.pending = append(state.pending, pendingEdge{component.RelImplements, class.ID, Content(n, source)})
			}
		}
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
		case "method_declaration":
			if m := p.extractMethod(member, source, filePath, projectID, fqn, &class.ID); m != nil {
				out = append(out, m)
			}
		case "property_declaration":
			out = append(out, p.extractProperties(member, source, filePath, projectID, fqn, &class.ID)...)
		case "use_declaration":
			if traitName := firstNameChild(member, source); traitName != "" {
				state.pending = append(state.pending, pendingEdge{component.RelUses, class.ID, traitName})
			}
		}
	}
	return out
}

func (p *PHPExtractor) extractInterface(node *sitter.Node, source []byte, filePath, projectID, nsFQN string, parentID *string) *component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)
	c := p.NewComponent(node, source, component.TypeInterface, name, filePath, projectID, parentID)
	c.Metadata["fqn"] = BuildFQN(nsFQN, `\`, name)
	c.Metadata["doc_string"] = p.ExtractDocString(node, source)
	return c
}

func (p *PHPExtractor) extractTrait(node *sitter.Node, source []byte, filePath, projectID, nsFQN string, parentID *string) *component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)
	c := p.NewComponent(node, source, component.TypeClass, name, filePath, projectID, parentID)
	c.Metadata["fqn"] = BuildFQN(nsFQN, `\`, name)
	c.Metadata["is_trait"] = true
	return c
}

func (p *PHPExtractor) extractFunction(node *sitter.Node, source []byte, filePath, projectID, nsFQN string, parentID *string) *component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)
	c := p.NewComponent(node, source, component.TypeFunction, name, filePath, projectID, parentID)
	c.Metadata["fqn"] = BuildFQN(nsFQN, `\`, name)
	c.Metadata["doc_string"] = p.ExtractDocString(node, source)
	return c
}

func (p *PHPExtractor) extractMethod(node *sitter.Node, source []byte, filePath, projectID, classFQN string, parentID *string) *component.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := Content(nameNode, source)
	typ := component.TypeMethod
	if name == "__construct" {
		typ = component.TypeConstructor
	}
	c := p.NewComponent(node, source, typ, name, filePath, projectID, parentID)
	c.Metadata["fqn"] = BuildFQN(classFQN, "::", name)
	c.Metadata["doc_string"] = p.ExtractDocString(node, source)
	return c
}

func (p *PHPExtractor) extractProperties(node *sitter.Node, source []byte, filePath, projectID, classFQN string, parentID *string) []*component.Component {
	var out []*component.Component
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Type() != "property_element" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := Content(nameNode, source)
		c := p.NewComponent(child, source, component.TypeProperty, name, filePath, projectID, parentID)
		c.Metadata["fqn"] = BuildFQN(classFQN, "::", name)
		out = append(out, c)
	}
	return out
}

func firstNameChild(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		n := node.NamedChild(i)
		if n != nil && (n.Type() == "name" || n.Type() == "qualified_name") {
			return Content(n, source)
		}
	}
	return ""
}

// DetectRelationships resolves each pending extends/implements/uses edge
// against the file's `use` import aliases, emitting an UNRESOLVED:<fqn>
// sentinel target for the cross-file resolver to rewrite into a concrete
// component id once the whole project has been parsed.
func (p *PHPExtractor) DetectRelationships(tree *sitter.Tree, source []byte, filePath string, components []*component.Component) ([]*component.Relationship, error) {
	state := p.lastState
	if state == nil {
		return nil, nil
	}

	var rels []*component.Relationship
	for _, c := range components {
		if c.ParentID != nil {
			rels = append(rels, NewRelationship(component.RelContains, *c.ParentID, c.ID, nil))
			rels = append(rels, NewRelationship(component.RelContainedBy, c.ID, *c.ParentID, nil))
		}
	}

	for _, edge := range state.pending {
		name := strings.TrimPrefix(edge.name, `\`)
		fqn := name
		if resolved, ok := state.useAliases[name]; ok {
			fqn = resolved
		}
		target := component.UnresolvedTarget(fqn)
		rels = append(rels, NewRelationship(edge.relType, edge.sourceID, target, component.Metadata{
			"targetFqn": fqn,
			"syntax":    "php_" + string(edge.relType),
		}))
	}

	return rels, nil
}
