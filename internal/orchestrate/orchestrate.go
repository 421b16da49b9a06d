// Package orchestrate runs the indexing pipeline phases — discovery,
// parse+persist, cross-file resolve, embed, documentation resolve — over a
// project, timing each phase and aggregating counts and errors into one
// result the caller can act on. Grounded on the teacher's indexer.go
// (IndexProject/processFiles/processFileWithParser worker-pool shape) and
// indexer_progress.go (live per-project progress tracking), generalized
// from a single flat symbol-extraction pass into this repo's five-phase,
// multi-stage-resolver pipeline.
package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/madeindigio/felix-index/internal/discover"
	"github.com/madeindigio/felix-index/internal/docresolve"
	"github.com/madeindigio/felix-index/internal/embedqueue"
	"github.com/madeindigio/felix-index/internal/resolve"
	"github.com/madeindigio/felix-index/internal/store"
	"github.com/madeindigio/felix-index/pkg/component"
	"github.com/madeindigio/felix-index/pkg/parser"
)

// maxSurfacedErrors bounds the errors[] slice returned to the caller; the
// full count is preserved separately so nothing is silently lost, only
// truncated for display (spec.md §4.7 "bounded error list").
const maxSurfacedErrors = 25

// defaultParseTimeout bounds how long a single file's tree-sitter parse may
// run before the registry's own timeout guard (§4.2) kicks in.
const defaultParseTimeout = 10 * time.Second

// Config tunes one Orchestrator's concurrency and error-surfacing limits.
type Config struct {
	// ConcurrencyOverride, if non-zero, wins over INDEX_CONCURRENCY and the
	// cpu_count-1 default (spec.md §4.7 "Concurrency control").
	ConcurrencyOverride int
	MaxSurfacedErrors   int
	ParseTimeout        time.Duration
}

// ResolveConcurrency implements spec.md §4.7's clamp formula:
// C = clamp(user_override ?? env_override ?? max(1, cpu_count-1), 1, 8).
func ResolveConcurrency(override int) int {
	if override != 0 {
		return clamp(override, 1, 8)
	}
	if raw := os.Getenv("INDEX_CONCURRENCY"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return clamp(n, 1, 8)
		}
	}
	return clamp(max(1, runtime.NumCPU()-1), 1, 8)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// PhaseTiming records how long one named pipeline phase took.
type PhaseTiming struct {
	Name     string
	Duration time.Duration
}

// Result is the pipeline's user-visible outcome (spec.md §4.7
// "User-visible behavior").
type Result struct {
	Success            bool
	FilesProcessed     int
	FilesSkipped       int
	ComponentCount     int
	RelationshipCount  int
	Errors             []string
	ErrorCount         int
	Warnings           []string
	Phases             []PhaseTiming
	ProcessingTime     time.Duration
	StartedAt          time.Time
	EndedAt            time.Time
}

// Orchestrator wires discovery, parsing, the two resolvers, and the
// embedding queue into one pipeline per project.
type Orchestrator struct {
	store       *store.Store
	registry    *parser.Registry
	resolver    *resolve.Resolver
	docResolver *docresolve.Resolver
	embedQueue  *embedqueue.Queue
	scheduler   *resolve.Scheduler
	config      Config
}

// New builds an Orchestrator. scheduler may be nil if the caller doesn't
// want incremental paths to request a debounced follow-up resolve.
func New(s *store.Store, reg *parser.Registry, embedQueue *embedqueue.Queue, scheduler *resolve.Scheduler, cfg Config) *Orchestrator {
	if cfg.MaxSurfacedErrors <= 0 {
		cfg.MaxSurfacedErrors = maxSurfacedErrors
	}
	if cfg.ParseTimeout <= 0 {
		cfg.ParseTimeout = defaultParseTimeout
	}
	return &Orchestrator{
		store:       s,
		registry:    reg,
		resolver:    resolve.New(s),
		docResolver: docresolve.New(s),
		embedQueue:  embedQueue,
		scheduler:   scheduler,
		config:      cfg,
	}
}

// fileOutcome is one worker's result for a single discovered file.
type fileOutcome struct {
	file         discover.File
	skipped      bool
	components   []*component.Component
	relationships []*component.Relationship
	err          error
	warnings     []string
}

// IndexProject runs all five phases over every file under rootPath. force
// re-parses every file even if its content hash hasn't changed.
func (o *Orchestrator) IndexProject(ctx context.Context, projectID, rootPath string, force bool) (*Result, error) {
	result := &Result{StartedAt: time.Now()}
	defer func() {
		result.EndedAt = time.Now()
		result.ProcessingTime = result.EndedAt.Sub(result.StartedAt)
		result.Success = len(result.Errors) == 0 && result.ErrorCount == 0
	}()

	// Phase 1: discovery.
	discoveryStart := time.Now()
	scanner := discover.NewScanner(o.registry)
	scan, err := scanner.Scan(rootPath)
	result.Phases = append(result.Phases, PhaseTiming{Name: "discovery", Duration: time.Since(discoveryStart)})
	if err != nil {
		return result, fmt.Errorf("discovery: %w", err)
	}

	// Phase 2: parse + persist.
	parseStart := time.Now()
	outcomes := o.parseAndPersistAll(ctx, projectID, scan.Files, force)
	result.Phases = append(result.Phases, PhaseTiming{Name: "parse_persist", Duration: time.Since(parseStart)})

	for _, oc := range outcomes {
		if oc.skipped {
			result.FilesSkipped++
			continue
		}
		result.FilesProcessed++
		result.ComponentCount += len(oc.components)
		result.RelationshipCount += len(oc.relationships)
		result.Warnings = append(result.Warnings, oc.warnings...)
		if oc.err != nil {
			o.recordError(result, fmt.Sprintf("%s: %v", oc.file.RelPath, oc.err))
		}
	}

	// Phase 3: cross-file resolve.
	resolveStart := time.Now()
	if stats, err := o.resolver.Resolve(ctx, projectID); err != nil {
		o.recordError(result, fmt.Sprintf("resolve: %v", err))
	} else {
		slog.Debug("cross-file resolve complete", "project_id", projectID,
			"examined", stats.Examined, "resolved", stats.Resolved, "unresolved", stats.Unresolved)
	}
	result.Phases = append(result.Phases, PhaseTiming{Name: "resolve", Duration: time.Since(resolveStart)})

	// Phase 4: embed (components; tasks/notes/rules are embedded by the
	// caller via embedQueue.FlushWorkItems once it has the work item set —
	// the orchestrator only owns the component-embedding path since it's the
	// only entity kind discovery produces).
	embedStart := time.Now()
	if o.embedQueue != nil {
		if _, err := o.embedQueue.Flush(ctx); err != nil {
			// Embedding failures are recorded, not fatal (spec.md §8 taxonomy
			// item 4) — surfaced as a warning, not an error.
			result.Warnings = append(result.Warnings, fmt.Sprintf("embed: %v", err))
		}
	}
	result.Phases = append(result.Phases, PhaseTiming{Name: "embed", Duration: time.Since(embedStart)})

	// Phase 5: documentation resolve.
	docStart := time.Now()
	if stats, err := o.docResolver.Resolve(ctx, projectID); err != nil {
		// Documentation resolution failures are logged and counted, not
		// fatal (spec.md §8 taxonomy item 5).
		result.Warnings = append(result.Warnings, fmt.Sprintf("docs: %v", err))
	} else {
		slog.Debug("documentation resolve complete", "project_id", projectID,
			"examined", stats.Examined, "resolved", stats.Resolved, "ignored", stats.Ignored)
	}
	result.Phases = append(result.Phases, PhaseTiming{Name: "docs", Duration: time.Since(docStart)})

	return result, nil
}

// recordError appends to the bounded Errors slice while always incrementing
// the true ErrorCount, so counts are never lost to truncation.
func (o *Orchestrator) recordError(result *Result, msg string) {
	result.ErrorCount++
	if len(result.Errors) < o.config.MaxSurfacedErrors {
		result.Errors = append(result.Errors, msg)
	}
}

// parseAndPersistAll runs phase 2 across a worker pool of ResolveConcurrency
// size. File completion order is not guaranteed; each file's own delete-old
// then write-new sequence is, since one worker owns a file start-to-finish.
func (o *Orchestrator) parseAndPersistAll(ctx context.Context, projectID string, files []discover.File, force bool) []fileOutcome {
	concurrency := ResolveConcurrency(o.config.ConcurrencyOverride)

	fileChan := make(chan discover.File, len(files))
	outChan := make(chan fileOutcome, len(files))
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range fileChan {
				outChan <- o.processFile(ctx, projectID, f, force)
			}
		}()
	}

	for _, f := range files {
		fileChan <- f
	}
	close(fileChan)
	wg.Wait()
	close(outChan)

	outcomes := make([]fileOutcome, 0, len(files))
	for oc := range outChan {
		outcomes = append(outcomes, oc)
	}
	return outcomes
}

// processFile runs phase 2 for a single file: parse, replace its stale
// components/relationships atomically-per-file, persist the fresh ones, and
// enqueue its components for embedding.
func (o *Orchestrator) processFile(ctx context.Context, projectID string, f discover.File, force bool) fileOutcome {
	oc := fileOutcome{file: f}

	if !force {
		if existingHash, ok, err := o.store.GetFileHash(ctx, projectID, f.RelPath); err == nil && ok && existingHash == f.Hash {
			oc.skipped = true
			return oc
		}
	}

	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		oc.err = fmt.Errorf("read file: %w", err)
		return oc
	}

	outcome, err := o.registry.Parse(ctx, f.RelPath, content, f.Language, projectID, o.config.ParseTimeout)
	if err != nil {
		// The registry only returns a non-nil error for conditions outside
		// per-file parsing (none currently) — per-file parse failures are
		// carried as diagnostics on outcome instead, matching spec.md §8's
		// "unhandled errors outside of parsing propagate" split.
		oc.err = fmt.Errorf("parse: %w", err)
		return oc
	}
	for _, d := range outcome.Diagnostics {
		if d.Severity == "error" {
			oc.err = fmt.Errorf("%s", d.Message)
		} else {
			oc.warnings = append(oc.warnings, fmt.Sprintf("%s: %s", f.RelPath, d.Message))
		}
	}

	existing, err := o.store.FindComponentsByFile(ctx, projectID, f.RelPath)
	if err != nil {
		oc.err = fmt.Errorf("load existing components: %w", err)
		return oc
	}
	if len(existing) > 0 {
		ids := make([]string, len(existing))
		for i, c := range existing {
			ids[i] = c.ID
		}
		if err := o.store.DeleteRelationshipsBySource(ctx, ids); err != nil {
			oc.err = fmt.Errorf("delete stale relationships: %w", err)
			return oc
		}
		if err := o.store.DeleteComponentsByFile(ctx, projectID, f.RelPath); err != nil {
			oc.err = fmt.Errorf("delete stale components: %w", err)
			return oc
		}
	}

	for _, c := range outcome.Components {
		c.ProjectID = projectID
		c.FilePath = f.RelPath
	}
	if err := o.store.UpsertComponents(ctx, outcome.Components); err != nil {
		oc.err = fmt.Errorf("persist components: %w", err)
		return oc
	}
	if err := o.store.UpsertRelationships(ctx, outcome.Relationships); err != nil {
		oc.err = fmt.Errorf("persist relationships: %w", err)
		return oc
	}
	if err := o.store.UpsertFileRecord(ctx, &store.FileRecord{
		ProjectID: projectID, FilePath: f.RelPath, Language: f.Language,
		Hash: f.Hash, ComponentCount: len(outcome.Components),
	}); err != nil {
		oc.err = fmt.Errorf("persist file record: %w", err)
		return oc
	}

	if o.embedQueue != nil {
		o.embedQueue.Enqueue(ctx, outcome.Components)
	}

	oc.components = outcome.Components
	oc.relationships = outcome.Relationships
	return oc
}

// IndexFile runs phase 2 (parse + persist) for a single file (spec.md §4.7
// "Incremental paths" — index_file/update_file), then schedules a debounced
// project-wide resolve rather than blocking the caller on a full pass. It
// runs no resolve of its own for the file: its sentinel targets are only
// rewritten by that scheduled pass, and by none at all when the Orchestrator
// has no scheduler.
func (o *Orchestrator) IndexFile(ctx context.Context, projectID, rootPath, relPath string) error {
	scanner := discover.NewScanner(o.registry)
	scan, err := scanner.Scan(rootPath)
	if err != nil {
		return fmt.Errorf("scan for single file: %w", err)
	}
	for _, f := range scan.Files {
		if f.RelPath != relPath {
			continue
		}
		oc := o.processFile(ctx, projectID, f, true)
		if oc.err != nil {
			return oc.err
		}
		if o.scheduler != nil {
			o.scheduler.Request(projectID)
		}
		return nil
	}
	return fmt.Errorf("file not found or not indexable: %s", relPath)
}

// RemoveFile deletes every component relPath owns. Outgoing edges cascade via
// DeleteRelationshipsBySource. Incoming edges from OTHER files (e.g. B's
// resolved imports_from -> one of relPath's components) are not covered by
// that call — per spec.md §3.1 a relationship is "cascade-deleted when either
// endpoint is deleted" — so they are reverted to an UNRESOLVED:<fqn> sentinel
// when the removed component carries a fqn (letting the edge re-resolve if a
// same-named component reappears), or deleted outright when it doesn't. This
// keeps invariant P2 (no relationship referencing relPath survives) and P3
// (isResolved==true implies the target still exists) without a resolve pass;
// processFile's own re-parse path only gets away with DeleteRelationshipsBySource
// alone because deterministic ids mean a re-parsed file's components come
// back under the same ids, so incoming edges never dangle there.
func (o *Orchestrator) RemoveFile(ctx context.Context, projectID, relPath string) error {
	existing, err := o.store.FindComponentsByFile(ctx, projectID, relPath)
	if err != nil {
		return fmt.Errorf("load components for removal: %w", err)
	}
	if len(existing) > 0 {
		ids := make([]string, len(existing))
		unresolveTargets := make(map[string]string)
		var deleteTargets []string
		for i, c := range existing {
			ids[i] = c.ID
			if fqn := c.Metadata.FQN(); fqn != "" {
				unresolveTargets[c.ID] = fqn
			} else {
				deleteTargets = append(deleteTargets, c.ID)
			}
		}
		if err := o.store.DeleteRelationshipsBySource(ctx, ids); err != nil {
			return fmt.Errorf("delete relationships for removed file: %w", err)
		}
		if len(unresolveTargets) > 0 {
			if err := o.store.UnresolveRelationshipsByTarget(ctx, unresolveTargets); err != nil {
				return fmt.Errorf("unresolve incoming relationships for removed file: %w", err)
			}
		}
		if len(deleteTargets) > 0 {
			if err := o.store.DeleteRelationshipsByTarget(ctx, deleteTargets); err != nil {
				return fmt.Errorf("delete incoming relationships for removed file: %w", err)
			}
		}
	}
	if err := o.store.DeleteComponentsByFile(ctx, projectID, relPath); err != nil {
		return fmt.Errorf("delete components for removed file: %w", err)
	}
	return o.store.DeleteFileRecord(ctx, projectID, relPath)
}

// defaultReconcileBatchLimit matches spec.md §4.7's reconcile default, used
// when the caller passes batchLimit <= 0.
const defaultReconcileBatchLimit = 100

// ReconcileResult reports one reconcile pass's outcome, the
// `{scanned, reindexed, since, now}` contract.
type ReconcileResult struct {
	Scanned   int
	Reindexed int
	Since     time.Time
	Now       time.Time
}

// Reconcile catches files the watcher missed: it stats every known file
// path against disk and re-indexes any whose mtime is newer than since
// (defaulting to the project's persisted watermark), stopping once
// batchLimit files have been reindexed, then persists now as the new
// watermark (spec.md §4.7 "Reconcile").
func (o *Orchestrator) Reconcile(ctx context.Context, projectID, rootPath string, since *time.Time, batchLimit int) (ReconcileResult, error) {
	if batchLimit <= 0 {
		if raw := os.Getenv("RECONCILE_BATCH_LIMIT"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				batchLimit = n
			}
		}
	}
	if batchLimit <= 0 {
		batchLimit = defaultReconcileBatchLimit
	}

	now := time.Now()
	result := ReconcileResult{Now: now}

	watermark := since
	if watermark == nil {
		stored, err := o.store.GetReconcileWatermark(ctx, projectID)
		if err != nil {
			return result, fmt.Errorf("load reconcile watermark: %w", err)
		}
		watermark = stored
	}
	if watermark != nil {
		result.Since = *watermark
	}

	paths, err := o.store.ListFilePaths(ctx, projectID)
	if err != nil {
		return result, fmt.Errorf("list known file paths: %w", err)
	}
	result.Scanned = len(paths)

	for _, relPath := range paths {
		if result.Reindexed >= batchLimit {
			break
		}
		info, statErr := os.Stat(filepath.Join(rootPath, relPath))
		if statErr != nil {
			// A missing file means unlink was missed too; remove it rather
			// than leaving a stale record a future reconcile keeps re-statting.
			if err := o.RemoveFile(ctx, projectID, relPath); err != nil {
				slog.Warn("reconcile: remove missing file failed", "file_path", relPath, "error", err)
			}
			continue
		}
		if watermark != nil && !info.ModTime().After(*watermark) {
			continue
		}
		if err := o.IndexFile(ctx, projectID, rootPath, relPath); err != nil {
			slog.Warn("reconcile: reindex failed", "file_path", relPath, "error", err)
			continue
		}
		result.Reindexed++
	}

	if err := o.store.SetReconcileWatermark(ctx, projectID, now); err != nil {
		return result, fmt.Errorf("persist reconcile watermark: %w", err)
	}
	return result, nil
}
