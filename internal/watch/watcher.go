// Package watch streams filesystem add/change/unlink events per project and
// drives the orchestrator's incremental entry points, catching up with one
// reconcile pass when each watcher starts. Grounded on the teacher's
// internal/indexer/code_watcher.go (fsnotify recursive watch, debounced
// event loop, ScanOutdatedFiles reconcile shape) and watcher_manager.go
// (lifecycle/activation bookkeeping) — generalized from the teacher's
// "only one project watched at a time" resource constraint to one watcher
// goroutine per active project, matching spec.md §4.10 ("Each project has
// its own stores, watcher, degradation scheduler, and background queues").
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/madeindigio/felix-index/internal/discover"
	"github.com/madeindigio/felix-index/internal/orchestrate"
	"github.com/madeindigio/felix-index/pkg/parser"
)

// defaultStabilityWindow is the "write-finish stability window" spec.md
// §4.8 describes: rapid-fire writes to the same file are coalesced into one
// reindex, fired this long after the last observed event.
const defaultStabilityWindow = 200 * time.Millisecond

const tickInterval = 100 * time.Millisecond

// Counters tracks one watcher's lifetime event stats, consumed by health
// endpoints per spec.md §4.8 "Counters".
type Counters struct {
	mu        sync.Mutex
	Add       int
	Change    int
	Unlink    int
	LastEvent time.Time
	Ready     bool
}

func (c *Counters) recordAdd()    { c.mu.Lock(); c.Add++; c.LastEvent = time.Now(); c.mu.Unlock() }
func (c *Counters) recordChange() { c.mu.Lock(); c.Change++; c.LastEvent = time.Now(); c.mu.Unlock() }
func (c *Counters) recordUnlink() { c.mu.Lock(); c.Unlink++; c.LastEvent = time.Now(); c.mu.Unlock() }
func (c *Counters) markReady()    { c.mu.Lock(); c.Ready = true; c.mu.Unlock() }

// Snapshot returns a copy of the current counters, safe to read concurrently
// with the watcher's own updates.
func (c *Counters) Snapshot() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counters{Add: c.Add, Change: c.Change, Unlink: c.Unlink, LastEvent: c.LastEvent, Ready: c.Ready}
}

// Watcher streams fsnotify events for one project's root path, recursively
// watching subdirectories it discovers (fsnotify itself is not recursive).
type Watcher struct {
	projectID string
	rootPath  string
	orch      *orchestrate.Orchestrator
	registry  *parser.Registry
	scanner   *discover.Scanner
	fsw       *fsnotify.Watcher
	cancel    context.CancelFunc
	once      sync.Once
	counters  Counters
	stability time.Duration
}

// Start creates and starts a watcher for one project, recursively adding
// every non-excluded subdirectory under rootPath, then launches its event
// loop in the background. Returns immediately.
func Start(parentCtx context.Context, projectID, rootPath string, orch *orchestrate.Orchestrator, reg *parser.Registry) (*Watcher, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, os.ErrNotExist
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parentCtx)
	w := &Watcher{
		projectID: projectID,
		rootPath:  rootPath,
		orch:      orch,
		registry:  reg,
		scanner:   discover.NewScanner(reg),
		fsw:       fsw,
		cancel:    cancel,
		stability: defaultStabilityWindow,
	}

	if err := w.addRecursive(rootPath); err != nil {
		fsw.Close()
		cancel()
		return nil, err
	}

	go w.run(ctx)

	slog.Info("filesystem watcher started", "project_id", projectID, "path", rootPath)
	return w, nil
}

// Enabled reports whether DISABLE_FILE_WATCHER=true has turned off watching
// entirely (spec.md §6.5 environment toggles).
func Enabled() bool {
	v, _ := strconv.ParseBool(os.Getenv("DISABLE_FILE_WATCHER"))
	return !v
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.rootPath, path)
		if relErr == nil && rel != "." && w.scanner.ShouldExclude(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			slog.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Stop cancels the watcher's event loop and closes the underlying fsnotify
// handle; idempotent.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		w.cancel()
		_ = w.fsw.Close()
		slog.Info("filesystem watcher stopped", "project_id", w.projectID, "path", w.rootPath)
	})
}

// Counters returns a snapshot of this watcher's event stats.
func (w *Watcher) Counters() Counters { return w.counters.Snapshot() }

func (w *Watcher) run(ctx context.Context) {
	pending := make(map[string]time.Time)

	// The ready event (no backlog of fsnotify setup errors, watcher fully
	// attached) triggers a single reconcile pass to catch anything that
	// changed between process start and the watcher coming online.
	go func() {
		if _, err := w.orch.Reconcile(ctx, w.projectID, w.rootPath, nil, 0); err != nil {
			slog.Warn("startup reconcile failed", "project_id", w.projectID, "error", err)
		}
		w.counters.markReady()
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, evt, pending)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("filesystem watcher error", "project_id", w.projectID, "error", err)

		case now := <-ticker.C:
			for path, seenAt := range pending {
				if now.Sub(seenAt) >= w.stability {
					w.reindex(ctx, path)
					delete(pending, path)
				}
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, evt fsnotify.Event, pending map[string]time.Time) {
	if evt.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			rel, relErr := filepath.Rel(w.rootPath, evt.Name)
			if relErr == nil && !w.scanner.ShouldExclude(rel) {
				if err := w.fsw.Add(evt.Name); err != nil {
					slog.Warn("failed to watch new directory", "path", evt.Name, "error", err)
				}
			}
			return
		}
	}

	if !w.isIndexable(evt.Name) {
		return
	}

	if evt.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.counters.recordUnlink()
		rel := w.relativePath(evt.Name)
		if err := w.orch.RemoveFile(ctx, w.projectID, rel); err != nil {
			slog.Warn("failed to remove file from index", "file", rel, "error", err)
		}
		delete(pending, evt.Name)
		return
	}

	if evt.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if evt.Op&fsnotify.Create == fsnotify.Create {
			w.counters.recordAdd()
		} else {
			w.counters.recordChange()
		}
		pending[evt.Name] = time.Now()
	}
}

func (w *Watcher) reindex(ctx context.Context, absPath string) {
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return
	}
	rel := w.relativePath(absPath)
	start := time.Now()
	if err := w.orch.IndexFile(ctx, w.projectID, w.rootPath, rel); err != nil {
		slog.Warn("failed to reindex changed file", "file", rel, "error", err)
		return
	}
	slog.Debug("file reindexed after change", "file", rel, "duration", time.Since(start))
}

func (w *Watcher) isIndexable(path string) bool {
	ext := filepath.Ext(path)
	if ext == "" {
		return false
	}
	_, ok := parser.LanguageByExtension(ext[1:])
	return ok
}

func (w *Watcher) relativePath(full string) string {
	rel, err := filepath.Rel(w.rootPath, full)
	if err != nil {
		return filepath.Base(full)
	}
	return filepath.ToSlash(rel)
}
