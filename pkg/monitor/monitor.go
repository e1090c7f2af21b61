package monitor

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cityquest-mcp-service/pkg/logging"
)

// DefaultDebounceDelay coalesces the burst of writes editors emit on save
const DefaultDebounceDelay = 500 * time.Millisecond

// Event types reported to callbacks
const (
	EventCreate = "create"
	EventModify = "modify"
	EventDelete = "delete"
)

// FileEvent represents a debounced file system event
type FileEvent struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// FileSystemMonitor watches template and prompt directories for changes.
// Only files whose extension is in the configured set are reported.
type FileSystemMonitor struct {
	watcher       *fsnotify.Watcher
	debounceDelay time.Duration
	extensions    map[string]bool
	logger        *logging.StructuredLogger

	mu        sync.Mutex
	callbacks []func(FileEvent)
	timers    map[string]*time.Timer
	started   bool
	closed    bool
}

// NewFileSystemMonitor creates a monitor reporting files with the given extensions
func NewFileSystemMonitor(extensions ...string) (*FileSystemMonitor, error) {
	if len(extensions) == 0 {
		return nil, fmt.Errorf("at least one file extension is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[strings.ToLower(ext)] = true
	}

	return &FileSystemMonitor{
		watcher:       watcher,
		debounceDelay: DefaultDebounceDelay,
		extensions:    exts,
		logger:        logging.NewStructuredLogger("file_monitor"),
		callbacks:     make([]func(FileEvent), 0),
		timers:        make(map[string]*time.Timer),
	}, nil
}

// SetLogger replaces the monitor's logger
func (fsm *FileSystemMonitor) SetLogger(logger *logging.StructuredLogger) {
	if logger != nil {
		fsm.logger = logger
	}
}

// SetDebounceDelay changes the per-file debounce window
func (fsm *FileSystemMonitor) SetDebounceDelay(delay time.Duration) {
	fsm.mu.Lock()
	defer fsm.mu.Unlock()
	fsm.debounceDelay = delay
}

// WatchDirectory starts watching a directory and registers callback for its events
func (fsm *FileSystemMonitor) WatchDirectory(path string, callback func(FileEvent)) error {
	if err := fsm.watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", path, err)
	}

	fsm.mu.Lock()
	fsm.callbacks = append(fsm.callbacks, callback)
	start := !fsm.started
	fsm.started = true
	fsm.mu.Unlock()

	if start {
		go fsm.monitorEvents()
	}

	fsm.logger.WithContext("directory", path).Info("Started monitoring directory")
	return nil
}

// StopWatching stops the file system monitoring. Calling it twice is a no-op.
func (fsm *FileSystemMonitor) StopWatching() error {
	fsm.mu.Lock()
	if fsm.closed {
		fsm.mu.Unlock()
		return nil
	}
	fsm.closed = true
	for name, timer := range fsm.timers {
		timer.Stop()
		delete(fsm.timers, name)
	}
	fsm.mu.Unlock()

	return fsm.watcher.Close()
}

// Matches reports whether a path carries one of the watched extensions
func (fsm *FileSystemMonitor) Matches(path string) bool {
	return fsm.extensions[strings.ToLower(filepath.Ext(path))]
}

func (fsm *FileSystemMonitor) monitorEvents() {
	for {
		select {
		case event, ok := <-fsm.watcher.Events:
			if !ok {
				return
			}
			if !fsm.Matches(event.Name) {
				continue
			}
			fsm.debounce(event)

		case err, ok := <-fsm.watcher.Errors:
			if !ok {
				return
			}
			fsm.logger.WithError(err).Warn("File watcher error")
		}
	}
}

// debounce restarts the timer for the event's file
func (fsm *FileSystemMonitor) debounce(event fsnotify.Event) {
	fsm.mu.Lock()
	defer fsm.mu.Unlock()

	if fsm.closed {
		return
	}
	if timer, exists := fsm.timers[event.Name]; exists {
		timer.Stop()
	}
	fsm.timers[event.Name] = time.AfterFunc(fsm.debounceDelay, func() {
		fsm.mu.Lock()
		delete(fsm.timers, event.Name)
		fsm.mu.Unlock()
		fsm.processEvent(event)
	})
}

// processEvent converts fsnotify events to FileEvent and calls callbacks
func (fsm *FileSystemMonitor) processEvent(event fsnotify.Event) {
	var eventType string
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreate
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventModify
	case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventDelete
	default:
		return
	}

	fileEvent := FileEvent{Type: eventType, Path: event.Name}

	fsm.mu.Lock()
	callbacks := make([]func(FileEvent), len(fsm.callbacks))
	copy(callbacks, fsm.callbacks)
	fsm.mu.Unlock()

	for _, callback := range callbacks {
		callback(fileEvent)
	}

	fsm.logger.LogFileSystemEvent(eventType, event.Name, nil)
}
