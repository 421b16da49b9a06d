package query

import (
	"math"
	"sort"
	"strings"
)

// demotionPatterns are path substrings that indicate generated/vendored/
// noise content, demoted rather than excluded (spec.md §4.9 "Apply path
// demotion... e.g. coverage/lcov/node_modules").
var demotionPatterns = []string{"coverage", "lcov", "node_modules", "vendor", "dist/", "/dist", "build/", "/build"}

const pathDemotionPenalty = 0.2

// zScoreNormalize normalizes similarities within one entity type's candidate
// set by z-score, then min-max clips to [0,1] (spec.md §4.9 "Re-ranking").
func zScoreNormalize(candidates []*candidate) {
	n := len(candidates)
	if n == 0 {
		return
	}
	if n == 1 {
		candidates[0].zScore = 1.0
		return
	}

	var sum, sumSq float64
	for _, c := range candidates {
		sum += c.Similarity
		sumSq += c.Similarity * c.Similarity
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	stddev := math.Sqrt(variance)

	raw := make([]float64, n)
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for i, c := range candidates {
		var z float64
		if stddev == 0 {
			z = 0
		} else {
			z = (c.Similarity - mean) / stddev
		}
		raw[i] = z
		if z < minZ {
			minZ = z
		}
		if z > maxZ {
			maxZ = z
		}
	}

	for i, c := range candidates {
		if maxZ == minZ {
			c.zScore = 1.0
			continue
		}
		clipped := (raw[i] - minZ) / (maxZ - minZ)
		c.zScore = clampUnit(clipped)
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// pathDemotionApplies reports whether filePath matches any demotion pattern.
func pathDemotionApplies(filePath string) bool {
	lower := strings.ToLower(filePath)
	for _, pattern := range demotionPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// scoreCandidate computes spec.md §4.9's final per-candidate score: weighted
// sum of normalized similarity, name match, context overlap, and analytics
// (rules only), path-demoted, capped to 1.0. nameMatch/contextOverlap/
// analytics must already be populated on c by the caller.
func scoreCandidate(c *candidate) {
	const (
		wSimilarity = 0.5
		wNameMatch  = 0.25
		wContext    = 0.15
		wAnalytics  = 0.10
	)

	weighted := wSimilarity*c.zScore + wNameMatch*c.nameMatch + wContext*c.contextOverlap
	if c.EntityKind == "rule" {
		weighted += wAnalytics * c.analytics
	}
	weighted *= entityTypeWeight(c.EntityKind)

	if pathDemotionApplies(c.filePath) {
		weighted -= pathDemotionPenalty
	}

	c.finalScore = clampUnit(weighted)
}

// mergeAndRank concatenates every entity type's scored candidates, sorts by
// final score descending, applies an optional per-type cap, then the global
// limit (spec.md §4.9 "Merge").
func mergeAndRank(byType map[string][]*candidate, maxPerType, limit int) []*candidate {
	var all []*candidate
	for _, bucket := range byType {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].finalScore > bucket[j].finalScore })
		if maxPerType > 0 && len(bucket) > maxPerType {
			bucket = bucket[:maxPerType]
		}
		all = append(all, bucket...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].finalScore > all[j].finalScore })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
