package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"careerkit/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Registry when its prompt files or bundle change
type Watcher struct {
	mu sync.Mutex

	registry      *Registry
	files         []string
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	doneChan   chan struct{}
	reloadChan chan struct{}

	// onReload is called after every reload attempt, mainly for tests
	onReload func(error)
	logger   *errors.Logger
	running  bool
}

// NewWatcher creates a watcher for the registry's prompt files
func NewWatcher(registry *Registry, debounceDelay time.Duration, logger *errors.Logger) *Watcher {
	if debounceDelay == 0 {
		debounceDelay = 250 * time.Millisecond
	}

	files := make([]string, 0, len(registry.WatchedFiles()))
	for _, file := range registry.WatchedFiles() {
		if abs, err := filepath.Abs(file); err == nil {
			file = abs
		}
		files = append(files, file)
	}

	return &Watcher{
		registry:      registry,
		files:         files,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		logger:        logger,
	}
}

// OnReload registers a callback invoked with the result of every reload
func (w *Watcher) OnReload(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// Start begins watching. It is a no-op when no files are configured.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("prompt watcher is already running")
	}
	if len(w.files) == 0 {
		close(w.doneChan)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Directories are watched so editors that replace files atomically still trigger
	dirs := make(map[string]struct{})
	for _, file := range w.files {
		dir := filepath.Dir(file)
		if _, seen := dirs[dir]; seen {
			continue
		}
		dirs[dir] = struct{}{}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	w.fsWatcher = watcher
	w.running = true
	go w.watchLoop()

	if w.logger != nil {
		w.logger.Info("Prompt watcher started", "files", w.files, "debounce_delay", w.debounceDelay)
	}
	return nil
}

// Stop stops watching and waits for the watch loop to exit
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	close(w.stopChan)
	w.mu.Unlock()

	<-w.doneChan
	return w.fsWatcher.Close()
}

func (w *Watcher) watchLoop() {
	defer close(w.doneChan)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.LogError(err, "Prompt watcher error")
			}

		case <-w.reloadChan:
			w.reload()

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) reload() {
	err := w.registry.Reload()
	if w.logger != nil {
		if err != nil {
			w.logger.LogError(err, "Prompt reload failed, keeping previous templates")
		} else {
			w.logger.Info("Prompt templates reloaded", "sources", w.registry.Sources())
		}
	}

	w.mu.Lock()
	callback := w.onReload
	w.mu.Unlock()
	if callback != nil {
		callback(err)
	}
}

// shouldProcessEvent reports whether the event touches a watched file
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := event.Name
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	for _, file := range w.files {
		if name == file {
			// A rename away from the path leaves nothing to read
			if event.Has(fsnotify.Rename) {
				if _, err := os.Stat(file); err != nil {
					return false
				}
			}
			return true
		}
	}
	return false
}

// scheduleReload schedules a debounced reload
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}
