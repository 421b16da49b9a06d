// Package resolve turns the sentinel relationship targets every parser
// leaves behind (UNRESOLVED:<fqn>, RESOLVE:<name>) into concrete component
// ids once every file in a project has been parsed. No teacher package
// does this — the teacher's symbol tables have no sentinel targets to
// chase — so this is built from scratch, following the two-phase
// local-then-global resolution shape and the barrel re-export chain the
// TypeScript/JavaScript extractor's import metadata anticipates.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/madeindigio/felix-index/internal/store"
	"github.com/madeindigio/felix-index/pkg/component"
)

// maxBarrelDepth bounds how many "export { x } from './y'" hops the
// resolver will follow before giving up on a re-export chain.
const maxBarrelDepth = 8

// Stats tallies one resolution pass, reported back to the orchestrator and
// exposed to watch-state counters.
type Stats struct {
	Examined   int
	Resolved   int
	Unresolved int
}

// Resolver runs the cross-file resolution algorithm against a project's
// components and relationships in the store.
type Resolver struct {
	store *store.Store
}

func New(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// fqnIndex maps an FQN to every component sharing it — usually one, but
// legally more than one across languages (spec.md §4.4 tie-break rule).
type fqnIndex map[string][]component.Component

// Resolve runs one full pass over projectID: build the FQN index, then
// attempt to rewrite every relationship still pointing at a sentinel
// target. Safe to call repeatedly — already-resolved relationships are
// excluded by FindUnresolvedRelationships.
func (r *Resolver) Resolve(ctx context.Context, projectID string) (Stats, error) {
	var stats Stats

	rels, err := r.store.FindUnresolvedRelationships(ctx, projectID, 5000)
	if err != nil {
		return stats, fmt.Errorf("load unresolved relationships: %w", err)
	}
	if len(rels) == 0 {
		return stats, nil
	}

	idx, err := r.buildFQNIndex(ctx, projectID)
	if err != nil {
		return stats, fmt.Errorf("build fqn index: %w", err)
	}
	slog.Debug("cross-file resolver: fqn index built", "project_id", projectID, "fqn_count", len(idx))

	for i := range rels {
		rel := &rels[i]
		if rel.Type == component.RelDocuments {
			// Documentation links are a separate sentinel vocabulary
			// (EXPLICITID: plus path/anchor payloads that aren't FQNs) handled
			// by the documentation resolver's own pass; leave them alone here.
			continue
		}
		stats.Examined++

		resolved, reason, err := r.resolveOne(ctx, projectID, rel, idx, 0)
		if err != nil {
			slog.Warn("resolve relationship failed", "relationship_id", rel.ID, "error", err)
			continue
		}
		if resolved != nil {
			if err := r.store.RewriteRelationshipTarget(ctx, rel.ID, resolved.ID); err != nil {
				slog.Warn("rewrite relationship target failed", "relationship_id", rel.ID, "error", err)
				continue
			}
			stats.Resolved++
			continue
		}

		if err := r.store.MarkRelationshipUnresolved(ctx, rel.ID, reason); err != nil {
			slog.Warn("mark relationship unresolved failed", "relationship_id", rel.ID, "error", err)
		}
		stats.Unresolved++
	}

	return stats, nil
}

// buildFQNIndex loads every FQN-bearing component once per pass (spec.md
// §4.4 step 1), avoiding a store round-trip per relationship for the exact
// FQN lookup that dominates resolution traffic.
func (r *Resolver) buildFQNIndex(ctx context.Context, projectID string) (fqnIndex, error) {
	components, err := r.store.FindAllWithFQN(ctx, projectID)
	if err != nil {
		return nil, err
	}
	idx := make(fqnIndex, len(components))
	for _, c := range components {
		fqn := c.Metadata.FQN()
		idx[fqn] = append(idx[fqn], c)
	}
	return idx, nil
}

// resolveOne attempts to resolve a single relationship, following barrel
// re-export chains up to maxBarrelDepth. Returns the matched component (nil
// if unresolved) and, when unresolved, a reason string for metadata.
func (r *Resolver) resolveOne(ctx context.Context, projectID string, rel *component.Relationship, idx fqnIndex, depth int) (*component.Component, string, error) {
	if depth > maxBarrelDepth {
		return nil, "barrel_depth_exceeded", nil
	}

	kind, payload := component.SentinelPayload(rel.TargetID)
	switch kind {
	case "EXTERNAL":
		// Intentionally external (bare package specifier, stdlib import,
		// etc.) — never resolvable to a component in this project.
		return nil, "external_target", nil
	case "UNRESOLVED", "RESOLVE":
		// fall through
	default:
		return nil, "not_a_sentinel", nil
	}

	source, err := r.store.GetComponent(ctx, rel.SourceID)
	if err != nil {
		return nil, "", fmt.Errorf("load source component %s: %w", rel.SourceID, err)
	}

	var candidates []component.Component

	if modulePath, importedName, ok := splitModuleImport(payload); ok {
		candidates, err = r.resolveModuleImport(ctx, projectID, source, modulePath, importedName)
		if err != nil {
			return nil, "", err
		}
	} else {
		candidates = idx[payload]
		if len(candidates) == 0 && kind == "RESOLVE" {
			// RESOLVE: only a bare name was known at parse time — fall back
			// to a name search, same as the FQN path once narrowed.
			matches, err := r.store.FindComponentsByName(ctx, projectID, payload, nil, 20)
			if err != nil {
				return nil, "", fmt.Errorf("find by name %s: %w", payload, err)
			}
			for _, m := range matches {
				if m.Name == payload {
					candidates = append(candidates, m)
				}
			}
		}
	}

	if len(candidates) == 0 {
		return nil, "no_match", nil
	}

	chosen := pickCandidate(candidates, source)

	// Follow a barrel re-export chain: if the chosen component is itself an
	// export record forwarding to another module, resolve that one instead.
	if chosen.Type == component.TypeExport {
		if from := chosen.Metadata.String("from_module"); from != "" {
			forwarded := component.UnresolvedTarget(from + "#" + chosen.Metadata.String("imported_name"))
			next := &component.Relationship{SourceID: chosen.ID, TargetID: forwarded}
			target, reason, err := r.resolveOne(ctx, projectID, next, idx, depth+1)
			if err != nil {
				return nil, "", err
			}
			if target != nil {
				return target, "", nil
			}
			return nil, reason, nil
		}
	}

	return &chosen, "", nil
}

// splitModuleImport splits a "<module-specifier>#<importedName>" payload
// (the shape the TypeScript/Python/Rust extractors build for relative
// imports) into its two parts. Plain FQN payloads have no "#" and are left
// to the direct FQN lookup.
func splitModuleImport(payload string) (modulePath, importedName string, ok bool) {
	idx := strings.LastIndex(payload, "#")
	if idx < 0 {
		return "", "", false
	}
	return payload[:idx], payload[idx+1:], true
}

// resolveModuleImport resolves a relative module specifier against the
// importing component's file path, then looks for an exported symbol with
// importedName in the candidate target files.
func (r *Resolver) resolveModuleImport(ctx context.Context, projectID string, source *component.Component, modulePath, importedName string) ([]component.Component, error) {
	if source == nil {
		return nil, nil
	}
	dir := path.Dir(source.FilePath)
	base := path.Clean(path.Join(dir, modulePath))

	for _, candidatePath := range candidateFilePaths(base) {
		inFile, err := r.store.FindComponentsByFile(ctx, projectID, candidatePath)
		if err != nil {
			return nil, fmt.Errorf("find components by file %s: %w", candidatePath, err)
		}
		var matches []component.Component
		for _, c := range inFile {
			if c.Name == importedName || (importedName == "default" && c.Type != component.TypeImport) {
				matches = append(matches, c)
			}
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}
	return nil, nil
}

// candidateFilePaths expands an extension-less module resolution base into
// the file paths a bundler-less resolver would try, in priority order:
// exact path, common source extensions, then an index file inside a
// directory of that name.
func candidateFilePaths(base string) []string {
	exts := []string{"", ".ts", ".tsx", ".js", ".jsx", ".py", ".rs", ".go", ".md"}
	var out []string
	for _, ext := range exts {
		out = append(out, base+ext)
	}
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
		out = append(out, path.Join(base, "index"+ext))
	}
	return out
}

// pickCandidate applies the spec's tie-break rule: same language as the
// importing component first, then alphabetical file path.
func pickCandidate(candidates []component.Component, source *component.Component) component.Component {
	if len(candidates) == 1 {
		return candidates[0]
	}
	sorted := make([]component.Component, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if source != nil {
			iSame := sorted[i].Language == source.Language
			jSame := sorted[j].Language == source.Language
			if iSame != jSame {
				return iSame
			}
		}
		return sorted[i].FilePath < sorted[j].FilePath
	})
	return sorted[0]
}
