package query

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/madeindigio/felix-index/internal/store"
	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/madeindigio/felix-index/pkg/embedder"
)

// defaultFanoutK is the floor on how many candidates are pulled per entity
// type before filtering and re-ranking (spec.md §4.9 "k = max(50, limit)").
const defaultFanoutK = 50

// Engine runs the Hybrid Query Engine's fan-out/re-rank/merge/project
// pipeline over one project's stored components, work items, and
// embeddings.
type Engine struct {
	store    *store.Store
	embedder embedder.Embedder
}

// New builds an Engine bound to one store and embedding service.
func New(s *store.Store, e embedder.Embedder) *Engine {
	return &Engine{store: s, embedder: e}
}

// Search runs the full pipeline: embed the core query once, fan out across
// every requested entity type with at least one stored embedding, re-rank
// each type's candidates, merge, and project to the requested view.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	req.Resolve()
	if req.Limit <= 0 {
		req.Limit = 20
	}
	entityTypes := req.EntityTypes
	if len(entityTypes) == 0 {
		entityTypes = []component.EntityKind{
			component.EntityComponent, component.EntityTask, component.EntityNote, component.EntityRule,
		}
	}

	if req.Core == "" {
		return &Response{}, nil
	}

	coreVector, err := e.embedder.EmbedQuery(ctx, req.Core)
	if err != nil {
		return nil, fmt.Errorf("embed core query: %w", err)
	}

	var contextText string
	if req.Context != "" || len(req.Topics) > 0 {
		contextText = strings.TrimSpace(req.Context + "\n" + strings.Join(req.Topics, " "))
	}
	var contextVector []float32
	if contextText != "" {
		contextVector, err = e.embedder.EmbedQuery(ctx, contextText)
		if err != nil {
			return nil, fmt.Errorf("embed context: %w", err)
		}
	}

	k := defaultFanoutK
	if req.Limit > k {
		k = req.Limit
	}

	byType := make(map[string][]*candidate)
	for _, kind := range entityTypes {
		bucket, err := e.fanOut(ctx, req, kind, coreVector, contextVector, k)
		if err != nil {
			return nil, fmt.Errorf("fan out %s: %w", kind, err)
		}
		if len(bucket) == 0 {
			continue
		}
		zScoreNormalize(bucket)
		for _, c := range bucket {
			scoreCandidate(c)
		}
		byType[string(kind)] = bucket
	}

	merged := mergeAndRank(byType, req.MaxPerType, req.Limit)
	hits := project(merged, req.View, req.Fields)

	return &Response{Hits: hits, Total: len(hits)}, nil
}

// fanOut runs one entity type's semantic search, applies hard filters, and
// loads enough detail to score name-match/context-overlap/analytics.
func (e *Engine) fanOut(ctx context.Context, req Request, kind component.EntityKind, coreVector, contextVector []float32, k int) ([]*candidate, error) {
	matches, err := e.store.SearchSimilarEmbeddings(ctx, req.ProjectID, coreVector, []string{string(kind)}, k)
	if err != nil {
		return nil, err
	}

	var out []*candidate
	for _, m := range matches {
		if m.Similarity < req.MinSimilarity {
			continue
		}
		c, err := e.hydrate(ctx, m, kind)
		if err != nil || c == nil {
			continue
		}
		if !passesFilters(c, req, kind) {
			continue
		}
		c.nameMatch = NameMatchScore(req.Core, candidateName(c))
		if contextVector != nil {
			if vec, err := e.store.GetEmbeddingVector(ctx, c.EntityID); err == nil && vec != nil {
				c.contextOverlap = cosineSimilarity(contextVector, vec)
			}
		}
		if kind == component.EntityRule {
			c.analytics = analyticsScore(c)
		}
		out = append(out, c)
	}
	return out, nil
}

// hydrate loads the full entity behind a similarity match so its name, file
// path, and fingerprint are available for re-ranking.
func (e *Engine) hydrate(ctx context.Context, m store.SimilarityMatch, kind component.EntityKind) (*candidate, error) {
	c := &candidate{EntityID: m.EntityID, EntityKind: kind, Similarity: m.Similarity}

	if kind == component.EntityComponent {
		comp, err := e.store.GetComponent(ctx, m.EntityID)
		if err != nil || comp == nil {
			return nil, err
		}
		c.component = comp
		c.filePath = comp.FilePath
		return c, nil
	}

	item, err := e.store.GetWorkItem(ctx, m.EntityID)
	if err != nil || item == nil {
		return nil, err
	}
	c.title = item.Title
	c.content = item.Content
	return c, nil
}

func candidateName(c *candidate) string {
	if c.component != nil {
		return c.component.Name
	}
	return c.title
}

// analyticsScore is left at 0 pending a real usage-analytics source: the
// spec names an "analytics" factor for rule re-ranking without defining
// where it comes from. Recorded as an Open Question decision in DESIGN.md
// rather than fabricating a metrics subsystem to back it.
func analyticsScore(c *candidate) float64 {
	return 0
}

// passesFilters applies spec.md §4.9's hard filters: component types,
// language aliases, and path include/exclude substrings.
func passesFilters(c *candidate, req Request, kind component.EntityKind) bool {
	if kind == component.EntityComponent && c.component != nil {
		if len(req.ComponentTypes) > 0 && !containsType(req.ComponentTypes, c.component.Type) {
			return false
		}
		if len(req.Languages) > 0 && !containsLanguage(req.Languages, c.component.Language) {
			return false
		}
	}
	if req.PathInclude != "" && !strings.Contains(c.filePath, req.PathInclude) {
		return false
	}
	if req.PathExclude != "" && strings.Contains(c.filePath, req.PathExclude) {
		return false
	}
	return true
}

func containsType(types []component.Type, t component.Type) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

func containsLanguage(langs []component.Language, l component.Language) bool {
	for _, want := range langs {
		if want == l {
			return true
		}
	}
	return false
}

// cosineSimilarity computes cosine similarity between two equal-length
// float32 vectors; 0 if either is empty or the dimensions mismatch
// (a mismatch can occur after an embedding-model change: the content hash
// the embedding queue checks does not include the model, so vectors from
// the old model stay stored until the component's fingerprint changes).
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
