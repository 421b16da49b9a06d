package query

import (
	"fmt"
	"strings"

	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/toon-format/toon-go"
)

// project renders scored candidates to Hits per the requested view preset
// or explicit field list (spec.md §4.9 "Projection").
func project(candidates []*candidate, view View, fields []string) []Hit {
	if view == "" && len(fields) == 0 {
		view = ViewFull
	}

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		hits = append(hits, projectOne(c, view, fields))
	}
	return hits
}

func projectOne(c *candidate, view View, fields []string) Hit {
	h := Hit{EntityID: c.EntityID, EntityKind: c.EntityKind, Score: c.finalScore}

	switch view {
	case ViewIDs:
		return h
	case ViewNames:
		h.Name = candidateName(c)
		return h
	case ViewFiles:
		h.Name = candidateName(c)
		h.FilePath = c.filePath
		return h
	case ViewFilesLines:
		h.Name = candidateName(c)
		h.FilePath = c.filePath
		if c.component != nil {
			loc := c.component.Location
			h.Location = &loc
		}
		return h
	case ViewFull:
		h.Name = candidateName(c)
		h.FilePath = c.filePath
		if c.component != nil {
			loc := c.component.Location
			h.Location = &loc
			h.Code = c.component.Code
			h.Skeleton = Skeleton(c.component, nil)
		} else {
			h.Content = c.content
		}
		return h
	}

	return applyExplicitFields(c, h, fields)
}

// applyExplicitFields populates only the requested field names, falling
// back to a full projection's values for any field it doesn't recognize
// directly (so "fields" is a strict subset, never an error).
func applyExplicitFields(c *candidate, base Hit, fields []string) Hit {
	full := projectOne(c, ViewFull, nil)
	out := Hit{EntityID: base.EntityID, EntityKind: base.EntityKind, Score: base.Score}
	for _, f := range fields {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "name":
			out.Name = full.Name
		case "file_path", "file":
			out.FilePath = full.FilePath
		case "location", "lines":
			out.Location = full.Location
		case "code":
			out.Code = full.Code
		case "content":
			out.Content = full.Content
		case "skeleton":
			out.Skeleton = full.Skeleton
		}
	}
	return out
}

// Skeleton renders a component's signature plus its children's signatures,
// one per line, per spec.md §4.9 "skeleton rendering (signature + child
// member signatures)". children is nil when the caller hasn't loaded them
// (e.g. a flat search hit); subgraph expansion passes the seed's children.
func Skeleton(c *component.Component, children []*component.Component) string {
	var b strings.Builder
	b.WriteString(signatureLine(c))
	for _, child := range children {
		b.WriteString("\n  ")
		b.WriteString(signatureLine(child))
	}
	return b.String()
}

func signatureLine(c *component.Component) string {
	if c == nil {
		return ""
	}
	if sig := c.Metadata.String("signature"); sig != "" {
		return sig
	}
	return fmt.Sprintf("%s %s", c.Type, c.Name)
}

// EncodeTOON renders data compactly via TOON, the format the teacher's own
// mcp_tools.MarshalTOON uses for tool-result payloads, for callers that
// want a compact non-JSON text form of a result. The view presets in
// project do not call it; they return structured values.
func EncodeTOON(data interface{}) string {
	out, err := toon.MarshalString(data, toon.WithLengthMarkers(true))
	if err != nil {
		return fmt.Sprintf("error: failed to marshal to TOON: %v", err)
	}
	return out
}
