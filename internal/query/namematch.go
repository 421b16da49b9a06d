package query

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// NameMatchScore implements spec.md §4.9's five-level ladder: exact (1.0),
// exact-no-spaces (0.9), prefix (0.75), all-tokens-present (0.6), substring
// (0.5), else 0. Grounded on the teacher's string_similarity.go
// normalization (lower-case + trim) and use of agnivade/levenshtein, though
// the ladder itself compares normalized strings directly rather than by
// edit distance — levenshtein distance is kept for the "all tokens present"
// near-miss step below, matching the teacher's tolerant-matching idiom.
func NameMatchScore(query, name string) float64 {
	q := normalize(query)
	n := normalize(name)
	if q == "" || n == "" {
		return 0
	}

	if q == n {
		return 1.0
	}

	qNoSpace := strings.ReplaceAll(q, " ", "")
	nNoSpace := strings.ReplaceAll(n, " ", "")
	if qNoSpace == nNoSpace {
		return 0.9
	}

	if strings.HasPrefix(n, q) {
		return 0.75
	}

	if allTokensPresent(q, n) {
		return 0.6
	}

	if strings.Contains(n, q) {
		return 0.5
	}

	return 0
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// allTokensPresent reports whether every whitespace/underscore/dash-
// separated token of query appears somewhere in name, tolerating a single
// near-miss per token via a small levenshtein budget (edit distance <= 1 for
// tokens of length > 3) so minor typos in the core query still count as a
// token match — the tolerant-matching idea carried over from the teacher's
// FindSimilarStrings.
func allTokensPresent(query, name string) bool {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			continue
		}
		if !fuzzyTokenPresent(tok, name) {
			return false
		}
	}
	return true
}

func fuzzyTokenPresent(tok, name string) bool {
	if len(tok) <= 3 {
		return false
	}
	for _, candidate := range tokenize(name) {
		if levenshtein.ComputeDistance(tok, candidate) <= 1 {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '.'
	})
}
