// Package docresolve implements the Documentation Resolver: it turns the
// `documents` sentinel edges the markdown extractor leaves behind into
// concrete `documents`/`references` relationships against code and other
// doc components, following spec.md §4.6's ordered resolution rules. It
// runs as its own pipeline phase, after the cross-file resolver — which
// explicitly skips RelDocuments edges so the two never race over the same
// rows (see resolve.Resolver.Resolve).
package docresolve

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/madeindigio/felix-index/internal/store"
	"github.com/madeindigio/felix-index/pkg/component"
)

// batchSize matches spec.md §4.6's flush batching.
const batchSize = 500

const (
	reasonExplicitID     = "explicit_id"
	reasonMarkdownAnchor = "markdown_anchor"
	reasonMarkdownLink   = "markdown_link"
	reasonExternalIgnore = "external_ignored"
	reasonNoMatch        = "no_match"
)

// docLanguages is the set of languages the resolver treats as prose rather
// than code when deciding what counts as "a doc component" vs. "a code
// component of the target file" (spec §4.6 "Inputs").
var docLanguages = map[component.Language]bool{
	component.LanguageMarkdown:      true,
	component.LanguageDocumentation: true,
	component.LanguageIndex:         true,
}

// Stats tallies one documentation-resolution pass.
type Stats struct {
	Examined int
	Resolved int
	Ignored  int
	// Unresolved counts links whose target file/anchor/id could not be found.
	Unresolved int
}

// Resolver resolves a project's pending documentation links.
type Resolver struct {
	store *store.Store
}

func New(s *store.Store) *Resolver { return &Resolver{store: s} }

// edge is one resolved output relationship a single parsed link can expand
// into — rule 5 alone can produce both a references edge to a heading and
// one documents edge per code component in the target file.
type edge struct {
	Type       component.RelationshipType
	TargetID   string
	Confidence float64
	Reason     string
}

// Resolve runs one full pass over projectID's pending documentation links.
func (r *Resolver) Resolve(ctx context.Context, projectID string) (Stats, error) {
	var stats Stats

	rels, err := r.store.FindUnresolvedRelationshipsByType(ctx, projectID, component.RelDocuments, 5000)
	if err != nil {
		return stats, fmt.Errorf("load unresolved documentation relationships: %w", err)
	}
	if len(rels) == 0 {
		return stats, nil
	}

	var pending []*component.Relationship

	for i := range rels {
		rel := &rels[i]
		stats.Examined++

		source, err := r.store.GetComponent(ctx, rel.SourceID)
		if err != nil {
			slog.Warn("documentation resolver: load source failed", "relationship_id", rel.ID, "error", err)
			continue
		}

		edges, outcome, err := r.resolveOne(ctx, projectID, rel, source)
		if err != nil {
			slog.Warn("documentation resolver: resolve failed", "relationship_id", rel.ID, "error", err)
			continue
		}

		switch outcome {
		case "ignored":
			if err := r.store.MarkRelationshipUnresolved(ctx, rel.ID, reasonExternalIgnore); err != nil {
				slog.Warn("documentation resolver: mark ignored failed", "relationship_id", rel.ID, "error", err)
			}
			stats.Ignored++
		case "no_match":
			if err := r.store.MarkRelationshipUnresolved(ctx, rel.ID, reasonNoMatch); err != nil {
				slog.Warn("documentation resolver: mark unresolved failed", "relationship_id", rel.ID, "error", err)
			}
			stats.Unresolved++
		case "resolved":
			if err := r.store.RewriteRelationshipTarget(ctx, rel.ID, edges[0].TargetID); err != nil {
				slog.Warn("documentation resolver: rewrite target failed", "relationship_id", rel.ID, "error", err)
				continue
			}
			for _, e := range edges {
				pending = append(pending, &component.Relationship{
					ID:       derivedRelationshipID(rel.SourceID, e.Type, e.TargetID),
					Type:     e.Type,
					SourceID: rel.SourceID,
					TargetID: e.TargetID,
					Metadata: component.Metadata{
						"confidence": e.Confidence,
						"reason":     e.Reason,
						"isResolved": true,
					},
				})
			}
			stats.Resolved++
		}
	}

	for i := 0; i < len(pending); i += batchSize {
		end := i + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := r.store.UpsertRelationships(ctx, pending[i:end]); err != nil {
			return stats, fmt.Errorf("flush documentation relationships: %w", err)
		}
	}

	return stats, nil
}

// resolveOne applies the ordered resolution rules to a single parsed link.
func (r *Resolver) resolveOne(ctx context.Context, projectID string, rel *component.Relationship, source *component.Component) ([]edge, string, error) {
	kind, payload := component.SentinelPayload(rel.TargetID)

	switch kind {
	case "EXTERNAL":
		// Rule 4: external links produce no edges at all.
		return nil, "ignored", nil

	case "EXPLICITID":
		// Rule 1: an explicit `[[id:…]]` reference names a component id
		// directly — no path/name search needed.
		target, err := r.store.GetComponent(ctx, payload)
		if err != nil || target == nil {
			return nil, "no_match", nil
		}
		return []edge{{Type: component.RelReferences, TargetID: target.ID, Confidence: 0.95, Reason: reasonExplicitID}}, "resolved", nil

	case "UNRESOLVED":
		// fall through to path/anchor handling below.

	default:
		return nil, "no_match", nil
	}

	if source == nil {
		return nil, "no_match", nil
	}

	filePath, anchor := splitAnchorPayload(payload)

	var targetFile string
	switch {
	case filePath == "":
		// Rule 3: anchor-only link, resolved against the doc's own file.
		targetFile = source.FilePath
	default:
		// Rule 5: relative path, resolved against the doc's own directory.
		targetFile = resolveRelativePath(source.FilePath, filePath)
	}

	var edges []edge

	if anchor != "" {
		heading, err := r.findHeadingByAnchor(ctx, projectID, targetFile, anchor)
		if err != nil {
			return nil, "", err
		}
		if heading != nil {
			reason := reasonMarkdownAnchor
			if filePath != "" {
				reason = reasonMarkdownLink
			}
			edges = append(edges, edge{Type: component.RelReferences, TargetID: heading.ID, Confidence: 0.80, Reason: reason})
		}
	}

	if filePath != "" {
		codeComponents, err := r.findCodeComponents(ctx, projectID, targetFile)
		if err != nil {
			return nil, "", err
		}
		for _, c := range codeComponents {
			edges = append(edges, edge{Type: component.RelDocuments, TargetID: c.ID, Confidence: 0.80, Reason: reasonMarkdownLink})
		}
	}

	if len(edges) == 0 {
		return nil, "no_match", nil
	}
	return edges, "resolved", nil
}

// findHeadingByAnchor looks for a doc component in filePath whose
// metadata.anchor matches frag.
func (r *Resolver) findHeadingByAnchor(ctx context.Context, projectID, filePath, frag string) (*component.Component, error) {
	inFile, err := r.store.FindComponentsByFile(ctx, projectID, filePath)
	if err != nil {
		return nil, fmt.Errorf("find components by file %s: %w", filePath, err)
	}
	for i := range inFile {
		c := &inFile[i]
		if docLanguages[c.Language] && c.Metadata.String("anchor") == frag {
			return c, nil
		}
	}
	return nil, nil
}

// findCodeComponents returns every non-doc component in filePath — the
// symbols a documentation link always connects to under rule 5.
func (r *Resolver) findCodeComponents(ctx context.Context, projectID, filePath string) ([]component.Component, error) {
	inFile, err := r.store.FindComponentsByFile(ctx, projectID, filePath)
	if err != nil {
		return nil, fmt.Errorf("find components by file %s: %w", filePath, err)
	}
	var out []component.Component
	for _, c := range inFile {
		if !docLanguages[c.Language] {
			out = append(out, c)
		}
	}
	return out, nil
}

// splitAnchorPayload splits a "path#anchor" sentinel payload into its two
// parts. A leading "#" (anchor-only, rule 3) yields an empty path.
func splitAnchorPayload(payload string) (filePath, anchor string) {
	idx := strings.Index(payload, "#")
	if idx < 0 {
		return payload, ""
	}
	return payload[:idx], payload[idx+1:]
}

// resolveRelativePath resolves a markdown link's relative path against the
// linking document's own directory, POSIX-normalized per spec §4.6 rule 5.
func resolveRelativePath(sourceFilePath, relPath string) string {
	dir := path.Dir(sourceFilePath)
	return path.Clean(path.Join(dir, relPath))
}

// derivedRelationshipID gives the (source, type, target) triple a stable id
// so re-running resolution after a reindex upserts the same row instead of
// duplicating it.
func derivedRelationshipID(sourceID string, relType component.RelationshipType, targetID string) string {
	name := sourceID + "|" + string(relType) + "|" + targetID
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
