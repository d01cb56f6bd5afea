package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag/coderag/internal/config"
	"github.com/coderag/coderag/internal/indexer"
)

// Test Plan for Watcher:
// - New watches the root directory successfully and can be stopped
// - New rejects a nonexistent root directory
// - a tracked-extension file change triggers an Update call after the debounce window
// - rapid successive writes are coalesced into a single Update call
// - an untracked extension never triggers Update
// - Pause suppresses Update until Resume, which then fires once for the accumulated changes

type fakeUpdater struct {
	mu    sync.Mutex
	calls int
	done  chan struct{}
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{done: make(chan struct{}, 16)}
}

func (f *fakeUpdater) Update(ctx context.Context) (*indexer.Stats, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	f.done <- struct{}{}
	return &indexer.Stats{}, nil
}

func (f *fakeUpdater) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testWatchConfig() *config.Config {
	cfg := config.Default()
	cfg.Ingestion.Code = []string{"**/*.go"}
	cfg.Ingestion.Docs = []string{"**/*.md"}
	return cfg
}

func TestNew_WatchesRootSuccessfully(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	w, err := New(root, testWatchConfig(), newFakeUpdater(), nil)
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Stop())
}

func TestNew_RejectsNonexistentRoot(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	missing := filepath.Join(root, "does-not-exist")

	w, err := New(missing, testWatchConfig(), newFakeUpdater(), nil)
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestWatcher_TrackedExtensionChange_TriggersUpdate(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	updater := newFakeUpdater()

	w, err := New(root, testWatchConfig(), updater, nil)
	require.NoError(t, err)
	defer w.Stop()

	w.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0644))

	select {
	case <-updater.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Update to fire")
	}
	assert.Equal(t, 1, updater.callCount())
}

func TestWatcher_RapidWrites_CoalesceIntoOneUpdate(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	updater := newFakeUpdater()

	w, err := New(root, testWatchConfig(), updater, nil)
	require.NoError(t, err)
	defer w.Stop()

	w.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(root, "main.go")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("package main"), 0644))
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-updater.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Update to fire")
	}

	// give a further debounce window a chance to (incorrectly) fire twice
	time.Sleep(700 * time.Millisecond)
	assert.Equal(t, 1, updater.callCount())
}

func TestWatcher_UntrackedExtension_NeverTriggersUpdate(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	updater := newFakeUpdater()

	w, err := New(root, testWatchConfig(), updater, nil)
	require.NoError(t, err)
	defer w.Stop()

	w.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0644))

	select {
	case <-updater.done:
		t.Fatal("Update fired for an untracked extension")
	case <-time.After(800 * time.Millisecond):
	}
	assert.Equal(t, 0, updater.callCount())
}

func TestWatcher_PauseSuppressesUntilResume(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	updater := newFakeUpdater()

	w, err := New(root, testWatchConfig(), updater, nil)
	require.NoError(t, err)
	defer w.Stop()

	w.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	w.Pause()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0644))

	select {
	case <-updater.done:
		t.Fatal("Update fired while paused")
	case <-time.After(800 * time.Millisecond):
	}
	assert.Equal(t, 0, updater.callCount())

	w.Resume()
	select {
	case <-updater.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Update to fire after Resume")
	}
	assert.Equal(t, 1, updater.callCount())
}
