// Package registry implements the Project Registry (spec.md §4.10):
// set_project/index_project/get_project/cleanup over a shared store,
// orchestrator, and watcher manager, disambiguating project names and
// deduplicating concurrent opens of the same path.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/madeindigio/felix-index/internal/embedqueue"
	"github.com/madeindigio/felix-index/internal/orchestrate"
	"github.com/madeindigio/felix-index/internal/store"
	"github.com/madeindigio/felix-index/internal/watch"
)

// Registry owns project lifecycle (open/index/lookup/cleanup) over the
// shared store, orchestrator, and per-project watcher manager this process
// runs. Each project logically owns its own store rows, watcher, and
// debounce slot — scoped by project_id in the shared backing Store and
// resolve.Scheduler this Registry wires together, rather than one OS
// process/connection per project. The embedqueue.Queue is shared without
// partitioning: one pending list for all projects, drained by each Flush. See DESIGN.md for why this shared-backend
// reading of "its own stores" was chosen over literal per-project
// connections.
type Registry struct {
	store      *store.Store
	orch       *orchestrate.Orchestrator
	watchers   *watch.Manager
	embedQueue *embedqueue.Queue

	opens singleflight.Group
}

// New builds a Registry sharing one store/orchestrator/watcher manager
// across every project it opens.
func New(s *store.Store, orch *orchestrate.Orchestrator, watchers *watch.Manager, embedQueue *embedqueue.Queue) *Registry {
	return &Registry{store: s, orch: orch, watchers: watchers, embedQueue: embedQueue}
}

// SetProject opens path as a project: creates its registry row if this is
// the first time the path has been seen, starts its filesystem watcher, and
// kicks off post-connect background tasks. Concurrent calls for the same
// path share one creation future via singleflight, so a flood of callers
// opening the same workspace at startup only does the work once.
func (r *Registry) SetProject(ctx context.Context, path string) (*store.Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("set project: resolve path %s: %w", path, err)
	}

	result, err, _ := r.opens.Do(absPath, func() (interface{}, error) {
		return r.openProject(ctx, absPath)
	})
	if err != nil {
		return nil, err
	}
	return result.(*store.Project), nil
}

func (r *Registry) openProject(ctx context.Context, absPath string) (*store.Project, error) {
	existing, err := r.store.FindProjectByRootPath(ctx, absPath)
	if err != nil {
		return nil, fmt.Errorf("set project: look up %s: %w", absPath, err)
	}
	if existing != nil {
		r.activateWatcher(ctx, existing)
		return existing, nil
	}

	id := store.DeriveProjectID(absPath)
	name, err := r.disambiguatedName(ctx, absPath)
	if err != nil {
		return nil, fmt.Errorf("set project: name %s: %w", absPath, err)
	}

	project := &store.Project{ID: id, Name: name, RootPath: absPath, WatchEnabled: true}
	if err := r.store.UpsertProject(ctx, project); err != nil {
		return nil, fmt.Errorf("set project: create %s: %w", absPath, err)
	}

	r.activateWatcher(ctx, project)
	go r.runPostConnectTasks(project)

	slog.Info("project opened", "project_id", project.ID, "name", project.Name, "root_path", absPath)
	return project, nil
}

func (r *Registry) activateWatcher(ctx context.Context, p *store.Project) {
	if r.watchers == nil || !p.WatchEnabled {
		return
	}
	if err := r.watchers.Activate(ctx, p.ID, p.RootPath); err != nil {
		slog.Warn("failed to activate watcher", "project_id", p.ID, "error", err)
	}
}

// disambiguatedName derives a display name from the path's base directory,
// appending the parent directory and then an incrementing suffix if that
// name is already taken by a project at a different path (spec.md §4.10
// "Name collisions ... disambiguated deterministically").
func (r *Registry) disambiguatedName(ctx context.Context, absPath string) (string, error) {
	base := filepath.Base(absPath)
	if taken, err := r.nameTaken(ctx, base); err != nil {
		return "", err
	} else if !taken {
		return base, nil
	}

	parent := filepath.Base(filepath.Dir(absPath))
	candidate := fmt.Sprintf("%s-%s", parent, base)
	if taken, err := r.nameTaken(ctx, candidate); err != nil {
		return "", err
	} else if !taken {
		return candidate, nil
	}

	for suffix := 2; ; suffix++ {
		next := fmt.Sprintf("%s-%d", candidate, suffix)
		taken, err := r.nameTaken(ctx, next)
		if err != nil {
			return "", err
		}
		if !taken {
			return next, nil
		}
	}
}

func (r *Registry) nameTaken(ctx context.Context, name string) (bool, error) {
	p, err := r.store.FindProjectByName(ctx, name)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// IndexProject runs a full index pass over an already-opened project,
// resolving path to its project id the way SetProject would.
func (r *Registry) IndexProject(ctx context.Context, path string, force bool) (*orchestrate.Result, error) {
	project, err := r.SetProject(ctx, path)
	if err != nil {
		return nil, err
	}
	return r.orch.IndexProject(ctx, project.ID, project.RootPath, force)
}

// GetProject resolves nameOrPath to a registered project, trying it as an
// absolute path first (the common case — callers usually have a path) and
// falling back to a name lookup.
func (r *Registry) GetProject(ctx context.Context, nameOrPath string) (*store.Project, error) {
	if absPath, err := filepath.Abs(nameOrPath); err == nil {
		if p, err := r.store.FindProjectByRootPath(ctx, absPath); err != nil {
			return nil, fmt.Errorf("get project: look up path %s: %w", absPath, err)
		} else if p != nil {
			return p, nil
		}
	}
	p, err := r.store.FindProjectByName(ctx, nameOrPath)
	if err != nil {
		return nil, fmt.Errorf("get project: look up name %s: %w", nameOrPath, err)
	}
	if p == nil {
		return nil, fmt.Errorf("project not found: %s", nameOrPath)
	}
	return p, nil
}

// Cleanup stops every active watcher. Cooperative and idempotent: each
// Watcher's Stop is itself idempotent (sync.Once-guarded), so calling
// Cleanup more than once, or concurrently with shutdown, is safe.
func (r *Registry) Cleanup(ctx context.Context) error {
	if r.watchers != nil {
		r.watchers.StopAll()
	}
	return nil
}

// runPostConnectTasks performs the detached work spec.md §4.10 describes as
// happening "after a project opens" without blocking SetProject: filling in
// any embeddings the indexing pass didn't generate synchronously, and
// auto-attaching documentation bundles named by the project's manifest.
func (r *Registry) runPostConnectTasks(p *store.Project) {
	ctx := context.Background()

	if r.embedQueue != nil {
		if result, err := r.embedQueue.Flush(ctx); err != nil {
			slog.Warn("post-connect embedding flush failed", "project_id", p.ID, "error", err)
		} else {
			slog.Info("post-connect embedding flush complete", "project_id", p.ID, "processed", result.Processed, "failed", result.Failed)
		}
	}

	manifest, err := LoadDocBundleManifest(p.RootPath)
	if err != nil {
		slog.Warn("failed to read doc bundle manifest", "project_id", p.ID, "error", err)
		return
	}
	if manifest == nil {
		return
	}

	for _, bundle := range manifest.Bundles {
		bundlePath := bundle
		if !filepath.IsAbs(bundlePath) {
			bundlePath = filepath.Join(p.RootPath, bundlePath)
		}
		if _, err := r.orch.IndexProject(ctx, p.ID, bundlePath, false); err != nil {
			slog.Warn("failed to auto-attach doc bundle", "project_id", p.ID, "bundle", bundle, "error", err)
			continue
		}
		slog.Info("doc bundle attached", "project_id", p.ID, "bundle", bundle)
	}
}
