// Package query implements the Hybrid Query Engine: dual-channel query
// parsing, per-entity-type semantic fan-out, multi-signal re-ranking,
// merge, view projection, and lens-based subgraph expansion. Grounded on
// the teacher's internal/storage/surrealdb_hybrid.go (vector+graph+fact
// fan-out/merge shape) and pkg/mcp_tools/string_similarity.go (levenshtein
// name matching), generalized from the teacher's single flat similarity
// search into the multi-type, multi-signal scoring pipeline this module
// implements.
package query

import "github.com/madeindigio/felix-index/pkg/component"

// View is a named projection preset.
type View string

const (
	ViewIDs        View = "ids"
	ViewNames      View = "names"
	ViewFiles      View = "files"
	ViewFilesLines View = "files+lines"
	ViewFull       View = "full"
)

// Request is one search call's fully-resolved parameters, after dual-channel
// parsing has separated core/context/topics and defaults have been applied.
type Request struct {
	// Raw free-form input; parsed into Core/Context/Topics if those are
	// empty. Structured Core/Context always win when set directly.
	Text string

	Core    string
	Context string
	Topics  []string

	EntityTypes []component.EntityKind

	ComponentTypes []component.Type
	Languages      []component.Language
	PathInclude    string
	PathExclude    string

	MinSimilarity float64
	Limit         int
	MaxPerType    int

	View   View
	Fields []string

	ProjectID string
}

// candidate is one fan-out hit carried through scoring before projection.
type candidate struct {
	EntityID   string
	EntityKind component.EntityKind
	Similarity float64 // raw cosine similarity from the store
	zScore     float64 // normalized within its entity type's candidate set

	component *component.Component // populated for EntityComponent hits
	// title/content back name-match and context-overlap scoring for
	// non-component entity kinds (tasks/notes/rules), which have no
	// structural Name/FilePath the way a Component does.
	title    string
	content  string
	filePath string

	nameMatch      float64
	contextOverlap float64
	analytics      float64
	finalScore     float64
}

// Hit is one projected, user-visible result.
type Hit struct {
	EntityID   string             `json:"entity_id"`
	EntityKind component.EntityKind `json:"entity_kind"`
	Name       string             `json:"name,omitempty"`
	FilePath   string             `json:"file_path,omitempty"`
	Location   *component.Location `json:"location,omitempty"`
	Score      float64            `json:"score"`
	Skeleton   string             `json:"skeleton,omitempty"`
	Code       string             `json:"code,omitempty"`
	Content    string             `json:"content,omitempty"`
}

// Response is the engine's final output: ranked, merged, projected hits.
type Response struct {
	Hits  []Hit `json:"hits"`
	Total int   `json:"total"`
}

// entityTypeWeight implements spec.md §4.9's per-entity-type score weights.
func entityTypeWeight(kind component.EntityKind) float64 {
	switch kind {
	case component.EntityComponent:
		return 1.0
	case component.EntityRule:
		return 0.8
	case component.EntityTask:
		return 0.7
	case component.EntityNote:
		return 0.6
	default:
		return 0.5
	}
}
