package parser

import (
	"context"
	"fmt"
	"sync"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/madeindigio/felix-index/pkg/component"
)

// Registry maps languages to LanguageExtractor implementations and caches
// one tree-sitter *sitter.Parser per language. A single Registry built by
// NewRegistry is shared by all of the orchestrator's parse workers; mu
// guards the parser cache only, not the use of a cached parser.
type Registry struct {
	extractors map[component.Language]LanguageExtractor
	sitters    map[component.Language]*sitter.Parser
	mu         sync.Mutex
}

// NewRegistry builds a registry with every grounded extractor registered.
func NewRegistry(cfg ExtractorConfig) *Registry {
	r := &Registry{
		extractors: make(map[component.Language]LanguageExtractor),
		sitters:    make(map[component.Language]*sitter.Parser),
	}
	r.Register(NewGoExtractor(cfg))
	r.Register(NewTypeScriptExtractor(cfg, component.LanguageTypeScript))
	r.Register(NewTypeScriptExtractor(cfg, component.LanguageJavaScript))
	r.Register(NewPHPExtractor(cfg))
	r.Register(NewPythonExtractor(cfg))
	r.Register(NewRustExtractor(cfg))
	r.Register(NewMarkdownExtractor(cfg))
	return r
}

// Register adds or replaces the extractor for its language.
func (r *Registry) Register(e LanguageExtractor) {
	r.extractors[e.Language()] = e
}

// Extractor returns the extractor registered for lang, and whether one is
// registered (Parse falls back to a generic extractor when a language has
// a grammar but no dedicated LanguageExtractor implementation).
func (r *Registry) Extractor(lang component.Language) (LanguageExtractor, bool) {
	e, ok := r.extractors[lang]
	return e, ok
}

// Extensions returns the union of file extensions every registered grammar
// claims, per §2.2 "exposes the union of supported extensions".
func (r *Registry) Extensions() []string { return SupportedExtensions() }

func (r *Registry) sitterParser(lang component.Language) (*sitter.Parser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.sitters[lang]; ok {
		return p, nil
	}
	grammar, ok := Grammar(lang)
	if !ok {
		return nil, fmt.Errorf("no grammar registered for language %q", lang)
	}
	p := sitter.NewParser()
	p.SetLanguage(grammar)
	r.sitters[lang] = p
	return p, nil
}

// Parse invokes the language's tree-sitter grammar and extractor, wrapping
// the call in a timeout and a panic guard per §4.2 so a single malformed
// file cannot abort the pipeline.
func (r *Registry) Parse(ctx context.Context, filePath string, content []byte, lang component.Language, projectID string, timeout time.Duration) (outcome *ParseOutcome, err error) {
	start := time.Now()
	outcome = &ParseOutcome{Language: lang}

	defer func() {
		outcome.ParseTimeMs = time.Since(start).Milliseconds()
		if rec := recover(); rec != nil {
			outcome.Diagnostics = append(outcome.Diagnostics, Diagnostic{
				Severity: "error",
				Message:  fmt.Sprintf("parser panic: %v", rec),
			})
		}
	}()

	sp, serr := r.sitterParser(lang)
	if serr != nil {
		outcome.Diagnostics = append(outcome.Diagnostics, Diagnostic{Severity: "error", Message: serr.Error()})
		return outcome, nil
	}

	parseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tree, perr := sp.ParseCtx(parseCtx, nil, content)
	if perr != nil {
		outcome.Diagnostics = append(outcome.Diagnostics, Diagnostic{Severity: "error", Message: perr.Error()})
		return outcome, nil
	}

	extractor, ok := r.Extractor(lang)
	if !ok {
		extractor = NewGenericExtractor(DefaultExtractorConfig(), lang)
	}

	outcome.Diagnostics = append(outcome.Diagnostics, extractor.ValidateSyntax(content)...)

	components, cerr := extractor.DetectComponents(tree, content, filePath, projectID)
	if cerr != nil {
		outcome.Diagnostics = append(outcome.Diagnostics, Diagnostic{Severity: "error", Message: cerr.Error()})
		return outcome, nil
	}
	outcome.Components = components

	rels, rerr := extractor.DetectRelationships(tree, content, filePath, components)
	if rerr != nil {
		outcome.Diagnostics = append(outcome.Diagnostics, Diagnostic{Severity: "warning", Message: rerr.Error()})
	}
	outcome.Relationships = rels

	return outcome, nil
}

// Close releases every cached tree-sitter parser.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.sitters {
		p.Close()
	}
	r.sitters = make(map[component.Language]*sitter.Parser)
}
