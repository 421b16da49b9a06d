// Package embedqueue batches components for embedding and dispatches them
// to the pluggable EmbeddingService, following the teacher's
// indexer_embeddings.go shape: batch submission, partial-failure
// tolerance (a few bad batches don't sink the whole flush), and a fixed
// cap (defaultMaxCodeLines) on how many source lines feed each fingerprint.
package embedqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/madeindigio/felix-index/internal/store"
	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/madeindigio/felix-index/pkg/embedder"
)

// defaultBatchSize matches spec.md §4.5's default batch dispatch size.
const defaultBatchSize = 32

// defaultHighWaterMark is the soft backpressure limit: enqueue blocks the
// caller cooperatively once the pending set crosses it, until a flush
// drains at least one batch.
const defaultHighWaterMark = 512

// defaultMaxCodeLines bounds how much of a component's source feeds the
// fingerprint, matching the teacher's ~900-char embedding text budget
// without depending on a GGUF-specific MaxChars() accessor this repo's
// network embedders don't expose.
const defaultMaxCodeLines = 40

// FlushResult reports one flush's outcome, the contract's
// `{processed, failed}` pair.
type FlushResult struct {
	Processed int
	Failed    int
}

// Queue accumulates components pending embedding and dispatches them in
// batches to an Embedder, persisting results (and their fingerprint hash)
// through the Store.
type Queue struct {
	embedder  embedder.Embedder
	store     *store.Store
	batchSize int

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*component.Component
}

// New builds a Queue. batchSize <= 0 uses the spec default of 32.
func New(e embedder.Embedder, s *store.Store, batchSize int) *Queue {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	q := &Queue{embedder: e, store: s, batchSize: batchSize}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds components to the pending set, blocking cooperatively while
// the soft high-water mark is exceeded (spec.md §4.5 "Backpressure") —
// it returns once there is room, without itself triggering a flush.
func (q *Queue) Enqueue(ctx context.Context, components []*component.Component) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) >= defaultHighWaterMark {
		if ctx.Err() != nil {
			return
		}
		q.cond.Wait()
	}
	q.pending = append(q.pending, components...)
}

// Flush dispatches every pending component in batches of batchSize,
// skipping components whose stored embedding already matches their current
// fingerprint. Idempotent: a failed embedding-service call is tallied in
// the result's Failed count and the flush goes on with the next batch. An
// error is returned only when every attempted embedding failed (the counts
// are returned alongside it); the caller (orchestrator) decides whether to
// surface it.
func (q *Queue) Flush(ctx context.Context) (FlushResult, error) {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	var result FlushResult
	if len(batch) == 0 {
		return result, nil
	}

	toEmbed, fingerprints, hashes := q.filterUnchanged(ctx, batch)
	for i := 0; i < len(toEmbed); i += q.batchSize {
		end := i + q.batchSize
		if end > len(toEmbed) {
			end = len(toEmbed)
		}
		slice := toEmbed[i:end]
		texts := fingerprints[i:end]

		vectors, err := q.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			slog.Warn("embedding batch failed, skipping", "batch_start", i, "batch_size", len(slice), "error", err)
			result.Failed += len(slice)
			continue
		}

		for j, vec := range vectors {
			c := slice[j]
			if vec == nil {
				slog.Warn("nil embedding for component, skipping", "component_id", c.ID, "name", c.Name)
				result.Failed++
				continue
			}
			rec := &store.EmbeddingRecord{
				EntityID:    c.ID,
				EntityKind:  string(component.EntityComponent),
				ProjectID:   c.ProjectID,
				Vector:      vec,
				ContentHash: hashes[i+j],
			}
			if err := q.store.UpsertEmbedding(ctx, rec); err != nil {
				slog.Warn("persist embedding failed", "component_id", c.ID, "error", err)
				result.Failed++
				continue
			}
			result.Processed++
		}
	}

	if result.Failed > 0 && result.Processed == 0 {
		return result, fmt.Errorf("embedding queue: all %d embeddings failed", result.Failed)
	}
	return result, nil
}

// filterUnchanged drops components whose stored content hash already
// matches their current fingerprint, and returns the fingerprint text and
// hash alongside each component still needing embedding, index-aligned.
func (q *Queue) filterUnchanged(ctx context.Context, components []*component.Component) ([]*component.Component, []string, []string) {
	var toEmbed []*component.Component
	var texts []string
	var hashes []string

	for _, c := range components {
		fingerprint := component.Fingerprint(c, defaultMaxCodeLines)
		hash := component.ContentHash(fingerprint)

		existing, err := q.store.GetEmbeddingContentHash(ctx, c.ID)
		if err == nil && existing == hash {
			continue
		}

		toEmbed = append(toEmbed, c)
		texts = append(texts, fingerprint)
		hashes = append(hashes, hash)
	}

	return toEmbed, texts, hashes
}

// Pending reports how many components are currently queued, for health
// counters and tests.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// workItemFingerprint holds one work item alongside the text and hash it
// will be embedded and persisted with.
type workItemFingerprint struct {
	item        *store.WorkItem
	fingerprint string
	hash        string
}

// FlushWorkItems embeds and persists vectors for tasks/notes/rules — the
// non-component entity kinds spec.md §4.7's embed phase also covers.
// WorkItem carries no signature/docstring/code the way a Component does, so
// it fingerprints on title+content rather than component.Fingerprint, but
// otherwise follows Flush's invalidate/batch/tolerate-partial-failure shape
// exactly so the two embedding paths behave identically to a caller.
func (q *Queue) FlushWorkItems(ctx context.Context, items []*store.WorkItem) (FlushResult, error) {
	var result FlushResult
	if len(items) == 0 {
		return result, nil
	}

	var toEmbed []workItemFingerprint
	for _, it := range items {
		fingerprint := it.Title + "\n" + it.Content
		hash := component.ContentHash(fingerprint)
		existing, err := q.store.GetEmbeddingContentHash(ctx, it.ID)
		if err == nil && existing == hash {
			continue
		}
		toEmbed = append(toEmbed, workItemFingerprint{item: it, fingerprint: fingerprint, hash: hash})
	}

	for i := 0; i < len(toEmbed); i += q.batchSize {
		end := i + q.batchSize
		if end > len(toEmbed) {
			end = len(toEmbed)
		}
		slice := toEmbed[i:end]
		texts := make([]string, len(slice))
		for j, p := range slice {
			texts[j] = p.fingerprint
		}

		vectors, err := q.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			slog.Warn("work item embedding batch failed, skipping", "batch_start", i, "batch_size", len(slice), "error", err)
			result.Failed += len(slice)
			continue
		}

		for j, vec := range vectors {
			p := slice[j]
			if vec == nil {
				slog.Warn("nil embedding for work item, skipping", "work_item_id", p.item.ID)
				result.Failed++
				continue
			}
			rec := &store.EmbeddingRecord{
				EntityID:    p.item.ID,
				EntityKind:  string(workItemEntityKind(p.item.Kind)),
				ProjectID:   p.item.ProjectID,
				Vector:      vec,
				ContentHash: p.hash,
			}
			if err := q.store.UpsertEmbedding(ctx, rec); err != nil {
				slog.Warn("persist work item embedding failed", "work_item_id", p.item.ID, "error", err)
				result.Failed++
				continue
			}
			result.Processed++
		}
	}

	if result.Failed > 0 && result.Processed == 0 {
		return result, fmt.Errorf("embedding queue: all %d work item embeddings failed", result.Failed)
	}
	return result, nil
}

// workItemEntityKind maps a WorkItemKind onto the EntityKind embeddings are
// filed under.
func workItemEntityKind(k store.WorkItemKind) component.EntityKind {
	switch k {
	case store.WorkItemTask:
		return component.EntityTask
	case store.WorkItemRule:
		return component.EntityRule
	default:
		return component.EntityNote
	}
}
