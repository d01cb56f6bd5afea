// Package watch monitors a project directory for filesystem changes and
// drives incremental reindexing. Adapted from the original file watcher's
// debounce/pause-resume machinery, wired here to call an indexer session's
// incremental Update instead of a callback over changed file names.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/coderag/coderag/internal/config"
	"github.com/coderag/coderag/internal/indexer"
)

// Updater is the subset of *indexer.Session the watcher depends on. Kept as
// an interface so tests can drive it with a fake.
type Updater interface {
	Update(ctx context.Context) (*indexer.Stats, error)
}

// Watcher watches a project root recursively and triggers a debounced
// incremental Update whenever tracked source or doc files change.
type Watcher struct {
	watcher    *fsnotify.Watcher
	rootDir    string
	extensions map[string]bool
	updater    Updater
	logger     *log.Logger

	debounceTime time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	pausedMu sync.RWMutex
	paused   bool

	accumulatedMu sync.Mutex
	accumulated   map[string]bool

	timerMu       sync.Mutex
	debounceTimer *time.Timer

	stopOnce sync.Once
	doneCh   chan struct{}

	maxDirectories  int
	maxDepth        int
	watchedDirCount int
	countMu         sync.Mutex
}

// skippedDirs never get watched or recursed into, regardless of extension
// configuration.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".coderag":     true,
	"vendor":       true,
}

// New creates a watcher rooted at rootDir, tracking the extensions implied
// by cfg's code and doc glob patterns. It registers rootDir and every
// eligible subdirectory with fsnotify before returning.
func New(rootDir string, cfg *config.Config, updater Updater, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	maxDirectories, maxDepth := 1000, 10
	if isTestMode() {
		maxDirectories, maxDepth = 50, 5
	}

	w := &Watcher{
		watcher:        fsw,
		rootDir:        rootDir,
		extensions:     extensionSet(cfg.Ingestion.Code, cfg.Ingestion.Docs),
		updater:        updater,
		logger:         logger,
		debounceTime:   500 * time.Millisecond,
		accumulated:    make(map[string]bool),
		doneCh:         make(chan struct{}),
		maxDirectories: maxDirectories,
		maxDepth:       maxDepth,
	}

	if err := w.addDirectoriesRecursively(rootDir, 0); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// extensionSet derives a `.ext` lookup table from glob patterns shaped like
// "**/*.go". Patterns that don't carry a literal extension are ignored.
func extensionSet(patternGroups ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, group := range patternGroups {
		for _, pattern := range group {
			ext := filepath.Ext(pattern)
			if ext == "" || strings.ContainsAny(ext, "*?[") {
				continue
			}
			set[ext] = true
		}
	}
	return set
}

func isTestMode() bool {
	for _, arg := range os.Args {
		if strings.Contains(arg, ".test") || strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

// Start begins watching in the background. The supplied ctx governs the
// watcher's lifetime; cancelling it (or calling Stop) ends the watch loop.
func (w *Watcher) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	go w.watch()
}

// Stop ends the watch loop and releases the underlying fsnotify watcher.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.watcher.Close()
	})
	return err
}

// Pause stops triggering updates but keeps accumulating changed paths.
func (w *Watcher) Pause() {
	w.pausedMu.Lock()
	defer w.pausedMu.Unlock()
	w.paused = true
}

// Resume resumes triggering updates, firing immediately if changes piled up
// while paused.
func (w *Watcher) Resume() {
	w.pausedMu.Lock()
	wasPaused := w.paused
	w.paused = false
	w.pausedMu.Unlock()

	if !wasPaused {
		return
	}

	w.accumulatedMu.Lock()
	n := len(w.accumulated)
	w.accumulated = make(map[string]bool)
	w.accumulatedMu.Unlock()

	if n > 0 {
		w.triggerUpdate()
	}
}

func (w *Watcher) watch() {
	defer close(w.doneCh)

	debounceCh := make(chan struct{}, 1)

	for {
		select {
		case <-w.ctx.Done():
			w.stopDebounceTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDirectoriesRecursively(event.Name, 0); err != nil {
						w.logger.Printf("watch: failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}

			if !w.shouldProcessEvent(event) {
				continue
			}

			w.accumulatedMu.Lock()
			w.accumulated[event.Name] = true
			w.accumulatedMu.Unlock()

			w.resetDebounceTimer(debounceCh)

		case <-debounceCh:
			w.handleDebounceExpired()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watch: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) handleDebounceExpired() {
	w.pausedMu.RLock()
	paused := w.paused
	w.pausedMu.RUnlock()
	if paused {
		return
	}

	w.accumulatedMu.Lock()
	n := len(w.accumulated)
	w.accumulated = make(map[string]bool)
	w.accumulatedMu.Unlock()

	if n > 0 {
		w.triggerUpdate()
	}
}

func (w *Watcher) triggerUpdate() {
	stats, err := w.updater.Update(w.ctx)
	if err != nil {
		w.logger.Printf("watch: incremental update failed: %v", err)
		return
	}
	w.logger.Printf("watch: update complete (added=%d modified=%d deleted=%d chunks_indexed=%d chunks_removed=%d)",
		stats.FilesAdded, stats.FilesModified, stats.FilesDeleted, stats.ChunksIndexed, stats.ChunksRemoved)
}

func (w *Watcher) resetDebounceTimer(debounceCh chan struct{}) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.debounceTimer != nil {
		if !w.debounceTimer.Stop() {
			select {
			case <-w.debounceTimer.C:
			default:
			}
		}
	}

	w.debounceTimer = time.AfterFunc(w.debounceTime, func() {
		select {
		case debounceCh <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopDebounceTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
		return false
	}
	return w.extensions[filepath.Ext(event.Name)]
}

func (w *Watcher) addDirectoriesRecursively(rootPath string, depth int) error {
	if depth > w.maxDepth {
		return fmt.Errorf("watch: max depth %d exceeded at path %s", w.maxDepth, rootPath)
	}

	if skippedDirs[filepath.Base(rootPath)] {
		return nil
	}

	w.countMu.Lock()
	if w.watchedDirCount >= w.maxDirectories {
		count := w.watchedDirCount
		w.countMu.Unlock()
		return fmt.Errorf("watch: directory limit reached: %d directories already watched (max: %d)", count, w.maxDirectories)
	}
	w.countMu.Unlock()

	entries, err := os.ReadDir(rootPath)
	if err != nil {
		return err
	}

	w.countMu.Lock()
	w.watchedDirCount++
	current := w.watchedDirCount
	w.countMu.Unlock()

	if err := w.watcher.Add(rootPath); err != nil {
		w.countMu.Lock()
		w.watchedDirCount--
		w.countMu.Unlock()
		return fmt.Errorf("watch: failed to watch directory %s: %w", rootPath, err)
	}

	if current >= w.maxDirectories*9/10 {
		w.logger.Printf("watch: watching %d directories (approaching limit of %d)", current, w.maxDirectories)
	}

	for _, entry := range entries {
		if !entry.IsDir() || skippedDirs[entry.Name()] {
			continue
		}
		subPath := filepath.Join(rootPath, entry.Name())
		if err := w.addDirectoriesRecursively(subPath, depth+1); err != nil {
			w.logger.Printf("watch: %v", err)
		}
	}

	return nil
}
