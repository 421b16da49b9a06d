package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/madeindigio/felix-index/internal/orchestrate"
	"github.com/madeindigio/felix-index/pkg/parser"
)

// Manager owns one Watcher per actively-watched project. Unlike the
// teacher's WatcherManager — which enforces a single active watcher across
// the whole process as a resource constraint — this Manager keeps one
// goroutine per project, matching spec.md §4.10's "each project has its own
// ... watcher" and §4.8's otherwise-unqualified per-watcher contract.
type Manager struct {
	mu       sync.RWMutex
	watchers map[string]*Watcher
	orch     *orchestrate.Orchestrator
	registry *parser.Registry
}

// NewManager builds a Manager sharing one Orchestrator and parser Registry
// across every project it watches.
func NewManager(orch *orchestrate.Orchestrator, reg *parser.Registry) *Manager {
	return &Manager{
		watchers: make(map[string]*Watcher),
		orch:     orch,
		registry: reg,
	}
}

// Activate starts (or no-ops if already running) watching for projectID at
// rootPath. Returns an error if watching is disabled process-wide via
// DISABLE_FILE_WATCHER.
func (m *Manager) Activate(ctx context.Context, projectID, rootPath string) error {
	if !Enabled() {
		return fmt.Errorf("filesystem watcher disabled (DISABLE_FILE_WATCHER=true)")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, active := m.watchers[projectID]; active {
		return nil
	}

	w, err := Start(ctx, projectID, rootPath, m.orch, m.registry)
	if err != nil {
		return fmt.Errorf("start watcher for project %s: %w", projectID, err)
	}
	m.watchers[projectID] = w
	return nil
}

// Deactivate stops the watcher for projectID, if any is running.
func (m *Manager) Deactivate(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.watchers[projectID]
	if !ok {
		return
	}
	w.Stop()
	delete(m.watchers, projectID)
}

// IsActive reports whether projectID currently has a running watcher.
func (m *Manager) IsActive(projectID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.watchers[projectID]
	return ok
}

// Counters returns the event counters for projectID's watcher, or the zero
// value and false if it isn't being watched.
func (m *Manager) Counters(projectID string) (Counters, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.watchers[projectID]
	if !ok {
		return Counters{}, false
	}
	return w.Counters(), true
}

// ActiveProjects lists every project currently being watched.
func (m *Manager) ActiveProjects() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.watchers))
	for id := range m.watchers {
		out = append(out, id)
	}
	return out
}

// StopAll stops every active watcher, for application shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, w := range m.watchers {
		w.Stop()
		delete(m.watchers, id)
	}
	slog.Info("watcher manager stopped all watchers")
}
