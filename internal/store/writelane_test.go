package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("transaction conflict, retry the statement")))
	assert.True(t, isRetryable(errors.New("resource busy")))
	assert.True(t, isRetryable(errors.New("row is LOCKED")))
	assert.False(t, isRetryable(errors.New("field 'name' is required")))
	assert.False(t, isRetryable(nil))
}

func TestWriteLaneRetriesTransientFailures(t *testing.T) {
	lane := newWriteLane(&Store{}, RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 5})
	defer lane.close()

	attempts := 0
	err := lane.attempt(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transaction conflict")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWriteLaneGivesUpOnPermanentFailure(t *testing.T) {
	lane := newWriteLane(&Store{}, RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 5})
	defer lane.close()

	attempts := 0
	err := lane.attempt(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("invalid field reference")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWriteLaneExhaustsAttemptsOnPersistentConflict(t *testing.T) {
	lane := newWriteLane(&Store{}, RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, MaxAttempts: 3})
	defer lane.close()

	attempts := 0
	err := lane.attempt(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("transaction conflict")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithTxnRetrySubmitsThroughLane(t *testing.T) {
	s := &Store{}
	s.lane = newWriteLane(s, RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 3})
	defer s.lane.close()

	called := false
	err := s.withTxnRetry(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestWithTxnRetryRespectsContextCancellation(t *testing.T) {
	s := &Store{}
	s.lane = newWriteLane(s, defaultRetryPolicy())
	defer s.lane.close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.withTxnRetry(ctx, func(ctx context.Context) error {
		t.Fatal("fn should not run once context is already cancelled")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
