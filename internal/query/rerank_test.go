package query

import (
	"testing"

	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/stretchr/testify/assert"
)

func TestZScoreNormalizeSingleCandidateIsOne(t *testing.T) {
	c := &candidate{Similarity: 0.42}
	zScoreNormalize([]*candidate{c})
	assert.Equal(t, 1.0, c.zScore)
}

func TestZScoreNormalizeRanksHighestSimilarityHighest(t *testing.T) {
	low := &candidate{Similarity: 0.1}
	mid := &candidate{Similarity: 0.5}
	high := &candidate{Similarity: 0.9}
	candidates := []*candidate{low, mid, high}

	zScoreNormalize(candidates)

	assert.Equal(t, 0.0, low.zScore)
	assert.Equal(t, 1.0, high.zScore)
	assert.True(t, mid.zScore > low.zScore && mid.zScore < high.zScore)
}

func TestZScoreNormalizeConstantSimilaritiesAllOne(t *testing.T) {
	a := &candidate{Similarity: 0.5}
	b := &candidate{Similarity: 0.5}
	zScoreNormalize([]*candidate{a, b})

	assert.Equal(t, 1.0, a.zScore)
	assert.Equal(t, 1.0, b.zScore)
}

func TestPathDemotionAppliesMatchesKnownPatterns(t *testing.T) {
	assert.True(t, pathDemotionApplies("coverage/lcov.info"))
	assert.True(t, pathDemotionApplies("project/node_modules/lib/index.js"))
	assert.False(t, pathDemotionApplies("internal/query/engine.go"))
}

func TestScoreCandidateAppliesPathDemotion(t *testing.T) {
	clean := &candidate{EntityKind: component.EntityComponent, zScore: 1.0, nameMatch: 1.0, filePath: "internal/query/engine.go"}
	demoted := &candidate{EntityKind: component.EntityComponent, zScore: 1.0, nameMatch: 1.0, filePath: "vendor/pkg/engine.go"}

	scoreCandidate(clean)
	scoreCandidate(demoted)

	assert.InDelta(t, clean.finalScore-0.2, demoted.finalScore, 1e-9)
}

func TestScoreCandidateWeightsEntityTypes(t *testing.T) {
	comp := &candidate{EntityKind: component.EntityComponent, zScore: 1.0, nameMatch: 1.0}
	note := &candidate{EntityKind: component.EntityNote, zScore: 1.0, nameMatch: 1.0}

	scoreCandidate(comp)
	scoreCandidate(note)

	assert.True(t, comp.finalScore > note.finalScore)
}

func TestScoreCandidateMaxSignalsStayWithinUnitRange(t *testing.T) {
	c := &candidate{EntityKind: component.EntityComponent, zScore: 1.0, nameMatch: 1.0, contextOverlap: 1.0, analytics: 1.0}
	scoreCandidate(c)
	assert.InDelta(t, 0.9, c.finalScore, 1e-9)
	assert.LessOrEqual(t, c.finalScore, 1.0)
}

func TestMergeAndRankAppliesPerTypeCapAndLimit(t *testing.T) {
	byType := map[string][]*candidate{
		"component": {
			{EntityID: "c1", finalScore: 0.9},
			{EntityID: "c2", finalScore: 0.8},
			{EntityID: "c3", finalScore: 0.7},
		},
		"note": {
			{EntityID: "n1", finalScore: 0.95},
		},
	}

	merged := mergeAndRank(byType, 2, 2)

	assert.Len(t, merged, 2)
	assert.Equal(t, "n1", merged[0].EntityID)
	assert.Equal(t, "c1", merged[1].EntityID)
}

func TestMergeAndRankNoLimitsReturnsEverything(t *testing.T) {
	byType := map[string][]*candidate{
		"component": {{EntityID: "c1", finalScore: 0.5}, {EntityID: "c2", finalScore: 0.9}},
	}
	merged := mergeAndRank(byType, 0, 0)
	assert.Len(t, merged, 2)
	assert.Equal(t, "c2", merged[0].EntityID)
}
