package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/markdown"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/madeindigio/felix-index/pkg/component"
)

// grammar pairs a component.Language with its tree-sitter grammar and the
// file extensions that select it.
type grammar struct {
	lang       component.Language
	extensions []string
	get        func() *sitter.Language
}

// registeredGrammars is the set of languages this repo grounds a real
// extractor on (see DESIGN.md). The teacher additionally wires Java,
// Kotlin, Swift, C, Lua, TOML, Svelte and Vue grammars; those extractors
// were dropped rather than left unwired (see DESIGN.md "Dropped teacher
// modules") since nothing in SPEC_FULL.md exercises them and the generic
// fallback extractor still produces structural components for any
// tree-sitter grammar a caller registers.
var registeredGrammars = []grammar{
	{component.LanguageGo, []string{"go"}, golang.GetLanguage},
	{component.LanguageTypeScript, []string{"ts", "mts", "cts"}, typescript.GetLanguage},
	{component.LanguageJavaScript, []string{"js", "mjs", "cjs", "jsx"}, javascript.GetLanguage},
	{component.LanguagePHP, []string{"php", "phtml"}, php.GetLanguage},
	{component.LanguageRust, []string{"rs"}, rust.GetLanguage},
	{component.LanguagePython, []string{"py", "pyw", "pyi"}, python.GetLanguage},
	{component.LanguageMarkdown, []string{"md", "markdown"}, markdown.GetLanguage},
}

var extensionToLanguage map[string]component.Language
var languageToGrammar map[component.Language]func() *sitter.Language

func init() {
	extensionToLanguage = make(map[string]component.Language)
	languageToGrammar = make(map[component.Language]func() *sitter.Language)
	for _, g := range registeredGrammars {
		languageToGrammar[g.lang] = g.get
		for _, ext := range g.extensions {
			extensionToLanguage[ext] = g.lang
		}
	}
}

// LanguageByExtension maps a bare file extension (no leading dot) to a
// supported language.
func LanguageByExtension(ext string) (component.Language, bool) {
	lang, ok := extensionToLanguage[strings.ToLower(ext)]
	return lang, ok
}

// Grammar returns the tree-sitter grammar for a language.
func Grammar(lang component.Language) (*sitter.Language, bool) {
	get, ok := languageToGrammar[lang]
	if !ok {
		return nil, false
	}
	return get(), true
}

// SupportedExtensions returns every extension a registered grammar claims;
// the Parser Registry (§2.2) exposes the union of these to discovery.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionToLanguage))
	for ext := range extensionToLanguage {
		exts = append(exts, ext)
	}
	return exts
}
