package query

import (
	"testing"

	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/stretchr/testify/assert"
)

func TestParseFreeformSplitsThreeSections(t *testing.T) {
	text := "User Query: find the retry logic\nSystem Context: reviewing http client\nTopics: retries, backoff"
	core, context, topics := ParseFreeform(text)

	assert.Equal(t, "find the retry logic", core)
	assert.Equal(t, "reviewing http client", context)
	assert.Equal(t, []string{"retries", "backoff"}, topics)
}

func TestParseFreeformTreatsLeadingTextAsCore(t *testing.T) {
	core, context, topics := ParseFreeform("what does the parser registry do")

	assert.Equal(t, "what does the parser registry do", core)
	assert.Empty(t, context)
	assert.Empty(t, topics)
}

func TestParseFreeformTopicsAcceptNewlineSeparated(t *testing.T) {
	_, _, topics := ParseFreeform("Topics:\nretries\nbackoff\n")
	assert.Equal(t, []string{"retries", "backoff"}, topics)
}

func TestRequestResolvePrefersStructuredOverrides(t *testing.T) {
	r := Request{
		Text: "User Query: ignored\nSystem Context: also ignored",
		Core: "explicit core",
	}
	r.Resolve()

	assert.Equal(t, "explicit core", r.Core)
	assert.Equal(t, "also ignored", r.Context)
}

func TestRequestResolveFillsFromTextWhenUnset(t *testing.T) {
	r := Request{Text: "User Query: locate the watcher\nTopics: fsnotify"}
	r.Resolve()

	assert.Equal(t, "locate the watcher", r.Core)
	assert.Equal(t, []string{"fsnotify"}, r.Topics)
}

func TestNormalizeLanguageResolvesAliases(t *testing.T) {
	assert.Equal(t, component.LanguageTypeScript, NormalizeLanguage("ts"))
	assert.Equal(t, component.LanguagePython, NormalizeLanguage("PY"))
	assert.Equal(t, component.Language("go"), NormalizeLanguage("Go"))
}
