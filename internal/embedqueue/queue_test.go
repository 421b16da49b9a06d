package embedqueue

import (
	"context"
	"testing"
	"time"

	"github.com/madeindigio/felix-index/internal/store"
	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueAccumulatesPending(t *testing.T) {
	q := New(nil, nil, 0)
	assert.Equal(t, defaultBatchSize, q.batchSize)

	q.Enqueue(context.Background(), []*component.Component{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	})
	assert.Equal(t, 3, q.Pending())
}

func TestEnqueueBlocksAtHighWaterMark(t *testing.T) {
	q := New(nil, nil, 0)

	full := make([]*component.Component, defaultHighWaterMark)
	for i := range full {
		full[i] = &component.Component{ID: "x"}
	}
	q.Enqueue(context.Background(), full)
	require.Equal(t, defaultHighWaterMark, q.Pending())

	done := make(chan struct{})
	go func() {
		q.Enqueue(context.Background(), []*component.Component{{ID: "blocked"}})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("enqueue should have blocked at the high-water mark")
	case <-time.After(50 * time.Millisecond):
	}

	// Draining (as Flush would, via the broadcast) releases the waiter.
	q.mu.Lock()
	q.pending = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue did not unblock after drain")
	}
}

func TestFlushNoopWhenEmpty(t *testing.T) {
	q := New(nil, nil, 0)
	result, err := q.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FlushResult{}, result)
}

func TestFlushWorkItemsNoopWhenEmpty(t *testing.T) {
	q := New(nil, nil, 0)
	result, err := q.FlushWorkItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{}, result)
}

func TestWorkItemEntityKind(t *testing.T) {
	assert.Equal(t, component.EntityTask, workItemEntityKind(store.WorkItemTask))
	assert.Equal(t, component.EntityRule, workItemEntityKind(store.WorkItemRule))
	assert.Equal(t, component.EntityNote, workItemEntityKind(store.WorkItemNote))
}
