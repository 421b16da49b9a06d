// Package discover walks a project directory, applies ignore patterns (the
// project's own + every registered language's defaults), and reports the
// set of source files worth parsing, along with their content hash so the
// orchestrator can skip files that have not changed since the last index.
package discover

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/madeindigio/felix-index/pkg/parser"
)

// Scanner discovers and filters source files under a project root.
type Scanner struct {
	// IgnorePatterns are glob patterns (doublestar `**` supported) excluded
	// from scanning, in addition to every registered extractor's
	// GetIgnorePatterns() and DefaultIgnorePatterns().
	IgnorePatterns []string

	// MaxFileSize is the largest file (bytes) that will be read and hashed;
	// larger files are skipped and counted in SkippedReason["too_large"].
	MaxFileSize int64

	// IncludeLanguages restricts discovery to these languages; empty means
	// every language the Registry supports.
	IncludeLanguages []component.Language

	registry *parser.Registry
}

// NewScanner builds a Scanner seeded with the default ignore patterns plus
// every registered extractor's language-specific patterns.
func NewScanner(reg *parser.Registry) *Scanner {
	s := &Scanner{
		IgnorePatterns: DefaultIgnorePatterns(),
		MaxFileSize:    1024 * 1024,
		registry:       reg,
	}
	for _, lang := range []component.Language{
		component.LanguageGo, component.LanguageTypeScript, component.LanguageJavaScript,
		component.LanguagePHP, component.LanguageRust, component.LanguagePython,
		component.LanguageMarkdown,
	} {
		if e, ok := reg.Extractor(lang); ok {
			// Extractors write directories with a trailing slash ("vendor/");
			// shouldExclude matches bare names, so the slash is dropped here.
			for _, p := range e.GetIgnorePatterns() {
				s.IgnorePatterns = append(s.IgnorePatterns, strings.TrimSuffix(p, "/"))
			}
		}
	}
	return s
}

// DefaultIgnorePatterns returns the VCS/dependency/build-output directories
// excluded regardless of language, matched as `**/<pattern>` or `**/<pattern>/**`.
func DefaultIgnorePatterns() []string {
	return []string{
		".git", ".svn", ".hg",
		"node_modules", ".next", ".nuxt",
		".venv", "venv", "__pycache__", ".mypy_cache", ".pytest_cache",
		"target", "dist", "build", "out", "bin",
		".idea", ".vscode",
		".cache", "tmp", "temp", "coverage",
		"*.min.js", "*.min.css",
		"*.lock", "go.sum", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	}
}

// MergeIgnorePatterns adds project-configured patterns, skipping duplicates.
func (s *Scanner) MergeIgnorePatterns(patterns []string) {
	existing := make(map[string]bool, len(s.IgnorePatterns))
	for _, p := range s.IgnorePatterns {
		existing[p] = true
	}
	for _, p := range patterns {
		if !existing[p] {
			s.IgnorePatterns = append(s.IgnorePatterns, p)
			existing[p] = true
		}
	}
}

// File is a discovered source file ready for parsing.
type File struct {
	AbsPath  string
	RelPath  string
	Language component.Language
	Size     int64
	Hash     string
}

// Result is the outcome of one full-tree scan.
type Result struct {
	RootPath      string
	Files         []File
	ByLanguage    map[component.Language][]File
	Errors        []error
	TotalFiles    int
	TotalSize     int64
	SkippedFiles  int
	SkippedReason map[string]int
}

// Scan walks rootPath, applying ignore patterns and extension matching, and
// hashing every file kept for indexing.
func (s *Scanner) Scan(rootPath string) (*Result, error) {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RootPath:      absRoot,
		ByLanguage:    make(map[component.Language][]File),
		SkippedReason: make(map[string]int),
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			result.Errors = append(result.Errors, werr)
			return nil
		}

		relPath, rerr := filepath.Rel(absRoot, path)
		if rerr != nil {
			relPath = path
		}

		if s.shouldExclude(relPath) {
			result.SkippedReason["excluded"]++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		lang, ok := parser.LanguageByExtension(ext)
		if !ok {
			result.SkippedFiles++
			result.SkippedReason["unsupported_extension"]++
			return nil
		}
		if len(s.IncludeLanguages) > 0 && !s.containsLanguage(lang) {
			result.SkippedFiles++
			result.SkippedReason["language_filtered"]++
			return nil
		}

		info, ierr := d.Info()
		if ierr != nil {
			result.Errors = append(result.Errors, ierr)
			return nil
		}
		if info.Size() > s.MaxFileSize {
			result.SkippedFiles++
			result.SkippedReason["too_large"]++
			return nil
		}

		hash, herr := hashFile(path)
		if herr != nil {
			result.Errors = append(result.Errors, herr)
			return nil
		}

		f := File{AbsPath: path, RelPath: relPath, Language: lang, Size: info.Size(), Hash: hash}
		result.Files = append(result.Files, f)
		result.ByLanguage[lang] = append(result.ByLanguage[lang], f)
		result.TotalFiles++
		result.TotalSize += info.Size()
		return nil
	})

	return result, err
}

// ShouldExclude reports whether relPath would be skipped by Scan, exported
// so the watcher can apply "the same ignore rules as discovery" (spec.md
// §4.8) to live filesystem events without duplicating the pattern logic.
func (s *Scanner) ShouldExclude(relPath string) bool {
	return s.shouldExclude(relPath)
}

// shouldExclude reports whether relPath matches any ignore pattern, tried
// both as a `**/<pattern>` glob (directory/file name match at any depth) and
// as a `**/<pattern>/**` glob (anything under an excluded directory).
func (s *Scanner) shouldExclude(relPath string) bool {
	if relPath == "." {
		return false
	}
	slashPath := filepath.ToSlash(relPath)
	name := filepath.Base(relPath)

	for _, pattern := range s.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
		if ok, _ := doublestar.Match("**/"+pattern, slashPath); ok {
			return true
		}
		if ok, _ := doublestar.Match("**/"+pattern+"/**", slashPath); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, slashPath); ok {
			return true
		}
	}

	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		allowedHidden := map[string]bool{".github": true, ".gitlab": true, ".felix": false}
		if allow, known := allowedHidden[name]; !known || !allow {
			return true
		}
	}

	return false
}

func (s *Scanner) containsLanguage(lang component.Language) bool {
	for _, l := range s.IncludeLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
