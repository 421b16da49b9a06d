package query

import (
	"strings"

	"github.com/madeindigio/felix-index/pkg/component"
)

const (
	prefixUserQuery     = "User Query:"
	prefixSystemContext = "System Context:"
	prefixTopics        = "Topics:"
)

// ParseFreeform splits free-form input into the three optional sections
// spec.md §4.9 names, one per prefix line. Any text before the first
// recognized prefix is treated as the user query section. Structured
// overrides (Core/Context set directly on a Request) always win over what
// this function extracts — callers apply ParseFreeform first, then let an
// explicit Core/Context clobber the result.
func ParseFreeform(text string) (core, context string, topics []string) {
	lines := strings.Split(text, "\n")

	var section string
	var userBuf, contextBuf, topicsBuf []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, prefixUserQuery):
			section = "user"
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, prefixUserQuery))
			if rest != "" {
				userBuf = append(userBuf, rest)
			}
			continue
		case strings.HasPrefix(trimmed, prefixSystemContext):
			section = "context"
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, prefixSystemContext))
			if rest != "" {
				contextBuf = append(contextBuf, rest)
			}
			continue
		case strings.HasPrefix(trimmed, prefixTopics):
			section = "topics"
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, prefixTopics))
			if rest != "" {
				topicsBuf = append(topicsBuf, rest)
			}
			continue
		}

		switch section {
		case "context":
			contextBuf = append(contextBuf, line)
		case "topics":
			topicsBuf = append(topicsBuf, line)
		default:
			// No section header seen yet, or inside the user-query section:
			// both accumulate into the core query text.
			userBuf = append(userBuf, line)
		}
	}

	core = strings.TrimSpace(strings.Join(userBuf, "\n"))
	context = strings.TrimSpace(strings.Join(contextBuf, "\n"))
	topics = splitTopics(strings.Join(topicsBuf, "\n"))
	return core, context, topics
}

// splitTopics accepts either comma-separated or newline-separated topic
// lists, trimming blanks.
func splitTopics(raw string) []string {
	raw = strings.ReplaceAll(raw, "\n", ",")
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve fills Core/Context/Topics from Text when they aren't already set
// by a structured override, per spec.md §4.9 "Structured inputs q/core
// override the extracted user text; context overrides system text."
func (r *Request) Resolve() {
	if r.Core != "" && r.Context != "" && len(r.Topics) > 0 {
		return
	}
	parsedCore, parsedContext, parsedTopics := ParseFreeform(r.Text)
	if r.Core == "" {
		r.Core = parsedCore
	}
	if r.Context == "" {
		r.Context = parsedContext
	}
	if len(r.Topics) == 0 {
		r.Topics = parsedTopics
	}
}

// languageAliases maps common shorthand to the canonical component.Language
// values, per spec.md §4.9 "language aliases (ts→typescript, py→python, …)".
var languageAliases = map[string]component.Language{
	"ts":  component.LanguageTypeScript,
	"tsx": component.LanguageTypeScript,
	"js":  component.LanguageJavaScript,
	"jsx": component.LanguageJavaScript,
	"py":  component.LanguagePython,
	"rs":  component.LanguageRust,
	"md":  component.LanguageMarkdown,
	"kt":  component.LanguageKotlin,
}

// NormalizeLanguage resolves an alias or lower-cases a language name already
// matching a component.Language value.
func NormalizeLanguage(raw string) component.Language {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lang, ok := languageAliases[lower]; ok {
		return lang
	}
	return component.Language(lower)
}
