package resolve

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// defaultDebounceWindow matches spec.md §4.4: resolution runs once per
// window on the latest state rather than once per file-update notification.
const defaultDebounceWindow = 500 * time.Millisecond

// Scheduler coalesces repeated Request calls for the same project into a
// single Resolve pass, mirroring the teacher's code_watcher.go debounce-map
// pattern (last-write-wins timestamp, polled by a ticker) rather than a
// per-file timer per project.
type Scheduler struct {
	resolver *Resolver
	window   time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
	running map[string]bool

	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

// NewScheduler starts the debounce loop in the background; call Stop to
// shut it down.
func NewScheduler(resolver *Resolver, window time.Duration) *Scheduler {
	if window <= 0 {
		window = defaultDebounceWindow
	}
	s := &Scheduler{
		resolver: resolver,
		window:   window,
		pending:  make(map[string]time.Time),
		running:  make(map[string]bool),
		ticker:   time.NewTicker(window / 2),
		stop:     make(chan struct{}),
	}
	go s.run()
	return s
}

// Request schedules projectID for resolution; repeated calls within the
// debounce window collapse into a single pass on the latest state.
func (s *Scheduler) Request(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[projectID] = time.Now()
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.stop:
			return
		case now := <-s.ticker.C:
			s.fireDue(now)
		}
	}
}

func (s *Scheduler) fireDue(now time.Time) {
	s.mu.Lock()
	var due []string
	for projectID, t := range s.pending {
		if s.running[projectID] {
			continue
		}
		if now.Sub(t) >= s.window {
			due = append(due, projectID)
			delete(s.pending, projectID)
			s.running[projectID] = true
		}
	}
	s.mu.Unlock()

	for _, projectID := range due {
		go s.resolveAndRelease(projectID)
	}
}

func (s *Scheduler) resolveAndRelease(projectID string) {
	defer func() {
		s.mu.Lock()
		delete(s.running, projectID)
		s.mu.Unlock()
	}()

	stats, err := s.resolver.Resolve(context.Background(), projectID)
	if err != nil {
		slog.Warn("scheduled resolution failed", "project_id", projectID, "error", err)
		return
	}
	slog.Debug("scheduled resolution complete", "project_id", projectID,
		"examined", stats.Examined, "resolved", stats.Resolved, "unresolved", stats.Unresolved)
}

// Stop halts the debounce loop (idempotent).
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.ticker.Stop()
	})
}
