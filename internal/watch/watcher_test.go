package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersSnapshotIndependent(t *testing.T) {
	var c Counters
	c.recordAdd()
	c.recordChange()
	c.recordChange()
	c.recordUnlink()
	c.markReady()

	snap := c.Snapshot()
	assert.Equal(t, 1, snap.Add)
	assert.Equal(t, 2, snap.Change)
	assert.Equal(t, 1, snap.Unlink)
	assert.True(t, snap.Ready)
	assert.False(t, snap.LastEvent.IsZero())

	c.recordAdd()
	assert.Equal(t, 1, snap.Add, "snapshot must not change after further recording")
}

func TestEnabledDefaultsTrue(t *testing.T) {
	assert.True(t, Enabled())
}

func TestEnabledRespectsDisableFlag(t *testing.T) {
	t.Setenv("DISABLE_FILE_WATCHER", "true")
	assert.False(t, Enabled())
}

func TestWatcherRelativePath(t *testing.T) {
	w := &Watcher{rootPath: "/project/root"}
	assert.Equal(t, "src/main.go", w.relativePath("/project/root/src/main.go"))
}

func TestWatcherIsIndexable(t *testing.T) {
	w := &Watcher{}
	assert.True(t, w.isIndexable("/a/b/main.go"))
	assert.False(t, w.isIndexable("/a/b/README"))
	assert.False(t, w.isIndexable("/a/b/image.png"))
}

func TestManagerIsActiveFalseWhenUnknown(t *testing.T) {
	m := NewManager(nil, nil)
	assert.False(t, m.IsActive("nonexistent"))
	_, ok := m.Counters("nonexistent")
	assert.False(t, ok)
	assert.Empty(t, m.ActiveProjects())
}
