package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameMatchScoreExact(t *testing.T) {
	assert.Equal(t, 1.0, NameMatchScore("ParseFile", "ParseFile"))
	assert.Equal(t, 1.0, NameMatchScore("  ParseFile ", "parsefile"))
}

func TestNameMatchScoreExactNoSpaces(t *testing.T) {
	assert.Equal(t, 0.9, NameMatchScore("parse file", "parsefile"))
}

func TestNameMatchScorePrefix(t *testing.T) {
	assert.Equal(t, 0.75, NameMatchScore("parse", "parseFileIntoComponents"))
}

func TestNameMatchScoreAllTokensPresent(t *testing.T) {
	assert.Equal(t, 0.6, NameMatchScore("file parse", "parseFileIntoComponents"))
}

func TestNameMatchScoreNoMatch(t *testing.T) {
	assert.Equal(t, 0.0, NameMatchScore("watcher", "embeddingQueue"))
}

func TestNameMatchScoreEmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, NameMatchScore("", "anything"))
	assert.Equal(t, 0.0, NameMatchScore("anything", ""))
}
