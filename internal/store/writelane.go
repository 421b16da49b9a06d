package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RetryPolicy controls the single-writer lane's backoff on a failed write.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

// defaultRetryPolicy: 100ms initial delay, doubling, capped at 1s, 10
// attempts — spec.md §4.3's retry/backoff parameters for the write lane.
func defaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		MaxAttempts:  10,
	}
}

// writeJob is one unit of mailbox work: run fn against the owning Store and
// deliver its error on done.
type writeJob struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// writeLane serializes every mutating store operation through one draining
// goroutine, so SurrealDB never sees concurrent write transactions from this
// process, and retries a failed attempt with exponential backoff before
// giving up. The teacher calls a `withTxnRetry` method that is never defined
// anywhere in its tree; this is the from-scratch implementation spec.md §9
// "Single-writer lane" and §4.3 describe.
type writeLane struct {
	store  *Store
	policy RetryPolicy
	jobs   chan writeJob
	done   chan struct{}
}

func newWriteLane(s *Store, policy RetryPolicy) *writeLane {
	l := &writeLane{
		store:  s,
		policy: policy,
		jobs:   make(chan writeJob, 256),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *writeLane) run() {
	defer close(l.done)
	for job := range l.jobs {
		job.done <- l.attempt(job.ctx, job.fn)
	}
}

func (l *writeLane) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := l.policy.InitialDelay
	var lastErr error
	for i := 0; i < l.policy.MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > l.policy.MaxDelay {
			delay = l.policy.MaxDelay
		}
	}
	return fmt.Errorf("write lane: giving up after %d attempts: %w", l.policy.MaxAttempts, lastErr)
}

// isRetryable reports whether err looks like a transient transaction
// conflict worth retrying rather than a permanent failure (bad query,
// constraint violation) that retrying would never fix.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"transaction", "conflict", "retry", "locked", "busy"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// withTxnRetry submits fn to the write lane and blocks until it completes
// (possibly after several backed-off retries), exactly the call shape the
// teacher's SaveCodeSymbol assumed but never got an implementation for.
func (s *Store) withTxnRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	job := writeJob{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case s.lane.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *writeLane) close() {
	close(l.jobs)
	<-l.done
}
