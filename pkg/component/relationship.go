package component

import "strings"

// RelationshipType is the canonical, snake_case-normalized edge type between
// two components. Several variants (dash/underscore/camel) appear across
// language extractors; callers should run names through CanonicalRelationshipType
// at ingestion rather than special-casing the variants downstream.
type RelationshipType string

const (
	RelContains     RelationshipType = "contains"
	RelContainedBy  RelationshipType = "contained_by"
	RelExtends      RelationshipType = "extends"
	RelImplements   RelationshipType = "implements"
	RelUses         RelationshipType = "uses"
	RelCalls        RelationshipType = "calls"
	RelCalledBy     RelationshipType = "called_by"
	RelImportsFrom  RelationshipType = "imports_from"
	RelInNamespace  RelationshipType = "in_namespace"
	RelDependsOn    RelationshipType = "depends_on"
	RelReferences   RelationshipType = "references"
	RelDocuments    RelationshipType = "documents"
	RelResolvesTo   RelationshipType = "resolves_to"
	RelUsesField    RelationshipType = "uses_field"
	RelTransforms   RelationshipType = "transforms_data"
	RelPassesTo     RelationshipType = "passes_to"
	RelReturnsFrom  RelationshipType = "returns_from"
	RelReadsFrom    RelationshipType = "reads_from"
	RelWritesTo     RelationshipType = "writes_to"
	RelDerivesFrom  RelationshipType = "derives_from"
	RelModifies     RelationshipType = "modifies"
)

// CanonicalRelationshipType normalizes dash/camel variants seen across
// language extractors into one snake_case enum value.
func CanonicalRelationshipType(raw string) RelationshipType {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return RelationshipType(s)
}

// Sentinel target prefixes. A relationship target_id is either a concrete
// component id, or one of these placeholders awaiting later resolution.
// Explicit sentinel strings (rather than a nullable target) let queries and
// audits distinguish "not yet resolved" from "intentionally external".
const (
	SentinelUnresolved = "UNRESOLVED:"
	SentinelExternal   = "EXTERNAL:"
	SentinelResolve    = "RESOLVE:"
	SentinelExplicitID = "EXPLICITID:"
)

// UnresolvedTarget builds an UNRESOLVED:<fqn> sentinel target.
func UnresolvedTarget(fqn string) string { return SentinelUnresolved + fqn }

// ExternalTarget builds an EXTERNAL:<module> sentinel target.
func ExternalTarget(module string) string { return SentinelExternal + module }

// ResolveTarget builds a RESOLVE:<name> sentinel target, used when only a
// bare name (not a full FQN) is known at parse time.
func ResolveTarget(name string) string { return SentinelResolve + name }

// ExplicitIDTarget builds an EXPLICITID:<id> sentinel target, used when a
// parser finds a literal component id reference (e.g. markdown's `[[id:…]]`
// syntax) rather than a name it has to search for.
func ExplicitIDTarget(id string) string { return SentinelExplicitID + id }

// IsSentinel reports whether targetID is a placeholder awaiting resolution
// rather than a concrete component id.
func IsSentinel(targetID string) bool {
	return strings.HasPrefix(targetID, SentinelUnresolved) ||
		strings.HasPrefix(targetID, SentinelExternal) ||
		strings.HasPrefix(targetID, SentinelResolve) ||
		strings.HasPrefix(targetID, SentinelExplicitID)
}

// SentinelPayload strips the sentinel prefix, returning the fqn/module/name
// portion and which kind of sentinel it was ("" if targetID is not a sentinel).
func SentinelPayload(targetID string) (kind, payload string) {
	switch {
	case strings.HasPrefix(targetID, SentinelUnresolved):
		return "UNRESOLVED", strings.TrimPrefix(targetID, SentinelUnresolved)
	case strings.HasPrefix(targetID, SentinelExternal):
		return "EXTERNAL", strings.TrimPrefix(targetID, SentinelExternal)
	case strings.HasPrefix(targetID, SentinelResolve):
		return "RESOLVE", strings.TrimPrefix(targetID, SentinelResolve)
	case strings.HasPrefix(targetID, SentinelExplicitID):
		return "EXPLICITID", strings.TrimPrefix(targetID, SentinelExplicitID)
	default:
		return "", ""
	}
}

// HierarchicalRelationshipTypes are AST-structural edges (container
// relationships) that the query engine's subgraph expansion filters out by
// default, since they reflect parse-tree shape rather than a semantic edge.
var HierarchicalRelationshipTypes = map[RelationshipType]bool{
	RelContains:    true,
	RelContainedBy: true,
	RelInNamespace: true,
}

// Relationship is a typed directed edge between two components. TargetID may
// be a concrete component id or a sentinel placeholder (see Sentinel*
// helpers) until the cross-file resolver rewrites it.
type Relationship struct {
	ID       string           `json:"id"`
	Type     RelationshipType `json:"type"`
	SourceID string           `json:"source_id"`
	TargetID string           `json:"target_id"`
	Metadata Metadata         `json:"metadata,omitempty"`
}

// IsResolved reports whether the relationship's target has been rewritten
// to a concrete component id (metadata.isResolved==true), per invariant P3.
func (r *Relationship) IsResolved() bool {
	return r.Metadata.Bool("isResolved")
}

// MarkResolved rewrites TargetID to a concrete component id and stamps
// resolution metadata; used by the cross-file and documentation resolvers.
func (r *Relationship) MarkResolved(targetID string) {
	r.TargetID = targetID
	if r.Metadata == nil {
		r.Metadata = Metadata{}
	}
	r.Metadata["isResolved"] = true
}

// MarkUnresolved leaves the sentinel target in place and records why
// resolution failed, so a later pass or an audit query can explain it.
func (r *Relationship) MarkUnresolved(reason string) {
	if r.Metadata == nil {
		r.Metadata = Metadata{}
	}
	r.Metadata["isResolved"] = false
	r.Metadata["unresolvedReason"] = reason
}
