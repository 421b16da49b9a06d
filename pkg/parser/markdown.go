package parser

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/madeindigio/felix-index/pkg/component"
)

// explicitIDRefPattern matches the `[[id:<component-id>]]` cross-reference
// syntax the documentation resolver treats as an already-known target
// (spec §4.6 rule 1, confidence 0.95) rather than something to search for.
var explicitIDRefPattern = regexp.MustCompile(`\[\[id:([^\]\s]+)\]\]`)

// uriSchemePattern matches any RFC 3986 scheme prefix ("http:", "mailto:",
// "ftp:", ...), per spec §4.6 rule 4: a link carrying a scheme is external
// and ignored for resolution regardless of which scheme it names.
var uriSchemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// MarkdownExtractor extracts a heading/section hierarchy (as the teacher
// does) plus link relationships the teacher never extracted at all —
// inline links and reference-style link definitions become `documents`
// edges to UNRESOLVED:<path>#<anchor> sentinels (relative links) or
// EXTERNAL: sentinels (http(s) links), which is what the documentation
// resolver needs to connect prose to the code it describes.
type MarkdownExtractor struct {
	BaseExtractor
}

func NewMarkdownExtractor(cfg ExtractorConfig) *MarkdownExtractor {
	return &MarkdownExtractor{BaseExtractor: NewBaseExtractor(component.LanguageMarkdown, cfg)}
}

func (m *MarkdownExtractor) GetIgnorePatterns() []string { return nil }

func (m *MarkdownExtractor) ValidateSyntax(source []byte) []Diagnostic { return nil }

func (m *MarkdownExtractor) DetectComponents(tree *sitter.Tree, source []byte, filePath, projectID string) ([]*component.Component, error) {
	return m.extractHeadings(tree.RootNode(), source, filePath, projectID, "", nil), nil
}

func (m *MarkdownExtractor) extractHeadings(node *sitter.Node, source []byte, filePath, projectID, parentPath string, parentID *string) []*component.Component {
	var out []*component.Component
	currentPath := parentPath
	currentID := parentID

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "section", "atx_heading", "setext_heading":
			if c := m.extractHeading(child, source, filePath, projectID, currentPath, currentID); c != nil {
				out = append(out, c)
				currentPath = c.Metadata.FQN()
				currentID = &c.ID
				// sections nest their body as named children of the same node
				// in the grammar we use; recurse immediately under the new
				// heading rather than waiting for a sibling.
				out = append(out, m.extractHeadings(child, source, filePath, projectID, currentPath, currentID)...)
			}
		default:
			out = append(out, m.extractHeadings(child, source, filePath, projectID, currentPath, currentID)...)
		}
	}

	return out
}

func (m *MarkdownExtractor) extractHeading(node *sitter.Node, source []byte, filePath, projectID, parentPath string, parentID *string) *component.Component {
	var name string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		if child.Type() == "heading_content" || child.Type() == "inline" {
			name = strings.TrimSpace(Content(child, source))
			break
		}
	}
	if name == "" {
		raw := strings.TrimSpace(Content(node, source))
		raw = strings.TrimLeft(raw, "# ")
		name = strings.TrimSpace(raw)
	}
	if name == "" {
		return nil
	}

	fqn := BuildFQN(parentPath, " > ", name)
	c := m.NewComponent(node, source, component.TypeSection, name, filePath, projectID, parentID)
	c.Metadata["fqn"] = fqn
	c.Metadata["anchor"] = slugify(name)
	return c
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// DetectRelationships emits contains/contained_by for the heading hierarchy
// and a documents edge per link found in the section's span.
func (m *MarkdownExtractor) DetectRelationships(tree *sitter.Tree, source []byte, filePath string, components []*component.Component) ([]*component.Relationship, error) {
	var rels []*component.Relationship

	byLine := make(map[int]*component.Component)
	for _, c := range components {
		if c.ParentID != nil {
			rels = append(rels, NewRelationship(component.RelContains, *c.ParentID, c.ID, nil))
			rels = append(rels, NewRelationship(component.RelContainedBy, c.ID, *c.ParentID, nil))
		}
		for l := c.Location.StartLine; l <= c.Location.EndLine; l++ {
			if existing, ok := byLine[l]; !ok || existing.Location.EndLine-existing.Location.StartLine > c.Location.EndLine-c.Location.StartLine {
				byLine[l] = c
			}
		}
	}

	it := NewNodeIterator(tree.RootNode())
	for node := it.Next(); node != nil; node = it.Next() {
		var textNode, destNode *sitter.Node
		switch node.Type() {
		case "inline_link", "link":
			textNode = node.ChildByFieldName("text")
			destNode = node.ChildByFieldName("destination")
			if destNode == nil {
				destNode = FindChildByType(node, "link_destination")
			}
			if textNode == nil {
				textNode = FindChildByType(node, "link_text")
			}
		case "link_reference_definition":
			destNode = FindChildByType(node, "link_destination")
		default:
			continue
		}
		if destNode == nil {
			continue
		}
		dest := strings.TrimSpace(Content(destNode, source))
		if dest == "" {
			continue
		}
		line := int(node.StartPoint().Row) + 1
		owner, ok := byLine[line]
		if !ok {
			continue
		}

		var target string
		if uriSchemePattern.MatchString(dest) {
			target = component.ExternalTarget(dest)
		} else {
			target = component.UnresolvedTarget(dest)
		}
		linkText := ""
		if textNode != nil {
			linkText = Content(textNode, source)
		}
		rels = append(rels, NewRelationship(component.RelDocuments, owner.ID, target, component.Metadata{
			"linkText": linkText,
			"syntax":   "markdown_link",
		}))
	}

	for _, m := range explicitIDRefPattern.FindAllSubmatchIndex(source, -1) {
		refID := string(source[m[2]:m[3]])
		line := 1 + strings.Count(string(source[:m[0]]), "\n")
		owner, ok := byLine[line]
		if !ok {
			continue
		}
		rels = append(rels, NewRelationship(component.RelDocuments, owner.ID, component.ExplicitIDTarget(refID), component.Metadata{
			"syntax": "explicit_id_ref",
		}))
	}

	return rels, nil
}
