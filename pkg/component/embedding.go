package component

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// EntityKind is the kind of entity an Embedding row belongs to.
type EntityKind string

const (
	EntityComponent EntityKind = "component"
	EntityTask      EntityKind = "task"
	EntityNote      EntityKind = "note"
	EntityRule      EntityKind = "rule"
)

// Embedding is a stored vector for one entity, keyed by entity kind+id and
// stamped with the model and content hash that produced it. An embedding
// row is only valid while ContentHash matches the entity's current
// fingerprint; see invariant on embedding freshness.
type Embedding struct {
	EntityKind  EntityKind `json:"entity_kind"`
	EntityID    string     `json:"entity_id"`
	Vector      []float32  `json:"vector"`
	ModelID     string     `json:"model_id"`
	ContentHash string     `json:"content_hash"`
}

// Fingerprint builds the embedding-relevant text for a component: language,
// kind, name, signature, docstring, and the first N lines of code. Hashing
// this (via ContentHash) lets the embedding queue detect when a component's
// embedding-relevant content has changed, so edits past the first
// maxCodeLines lines of code do not trigger re-embedding (any change within
// those lines, including a reformat, does).
func Fingerprint(c *Component, maxCodeLines int) string {
	var b strings.Builder
	b.WriteString(string(c.Language))
	b.WriteString("\n")
	b.WriteString(string(c.Type))
	b.WriteString("\n")
	b.WriteString(c.Name)
	b.WriteString("\n")
	if sig := c.Metadata.String("signature"); sig != "" {
		b.WriteString(sig)
		b.WriteString("\n")
	}
	if doc := c.Metadata.String("doc_string"); doc != "" {
		b.WriteString(doc)
		b.WriteString("\n")
	}
	if c.Code != "" {
		lines := strings.Split(c.Code, "\n")
		if maxCodeLines > 0 && len(lines) > maxCodeLines {
			lines = lines[:maxCodeLines]
		}
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}

// ContentHash returns the sha256 hex digest of a fingerprint string.
func ContentHash(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}
