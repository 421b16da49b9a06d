package orchestrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveConcurrencyPrefersExplicitOverride(t *testing.T) {
	t.Setenv("INDEX_CONCURRENCY", "3")
	assert.Equal(t, 5, ResolveConcurrency(5))
}

func TestResolveConcurrencyClampsExplicitOverride(t *testing.T) {
	assert.Equal(t, 8, ResolveConcurrency(99))
	assert.Equal(t, 1, ResolveConcurrency(-3))
}

func TestResolveConcurrencyFallsBackToEnv(t *testing.T) {
	t.Setenv("INDEX_CONCURRENCY", "4")
	assert.Equal(t, 4, ResolveConcurrency(0))
}

func TestResolveConcurrencyClampsEnvOverride(t *testing.T) {
	t.Setenv("INDEX_CONCURRENCY", "20")
	assert.Equal(t, 8, ResolveConcurrency(0))
}

func TestResolveConcurrencyIgnoresInvalidEnv(t *testing.T) {
	t.Setenv("INDEX_CONCURRENCY", "not-a-number")
	got := ResolveConcurrency(0)
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 8)
}

func TestRecordErrorBoundsSliceButKeepsFullCount(t *testing.T) {
	o := &Orchestrator{config: Config{MaxSurfacedErrors: 2}}
	result := &Result{}
	o.recordError(result, "first")
	o.recordError(result, "second")
	o.recordError(result, "third")

	assert.Equal(t, 3, result.ErrorCount)
	assert.Equal(t, []string{"first", "second"}, result.Errors)
}

func TestNewAppliesConfigDefaults(t *testing.T) {
	o := New(nil, nil, nil, nil, Config{})
	assert.Equal(t, maxSurfacedErrors, o.config.MaxSurfacedErrors)
	assert.Equal(t, defaultParseTimeout, o.config.ParseTimeout)
}

func TestClampHelper(t *testing.T) {
	assert.Equal(t, 1, clamp(0, 1, 8))
	assert.Equal(t, 8, clamp(100, 1, 8))
	assert.Equal(t, 5, clamp(5, 1, 8))
}

