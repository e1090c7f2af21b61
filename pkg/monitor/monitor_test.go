package monitor

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityquest-mcp-service/pkg/logging"
)

func newTestMonitor(t *testing.T, extensions ...string) (string, *FileSystemMonitor) {
	t.Helper()

	monitor, err := NewFileSystemMonitor(extensions...)
	require.NoError(t, err)
	var buf bytes.Buffer
	monitor.SetLogger(logging.NewStructuredLoggerWithWriter("file_monitor", &buf))
	monitor.SetDebounceDelay(100 * time.Millisecond)
	t.Cleanup(func() { monitor.StopWatching() })

	return t.TempDir(), monitor
}

type eventCollector struct {
	mu     sync.Mutex
	events []FileEvent
}

func (c *eventCollector) add(event FileEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *eventCollector) snapshot() []FileEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FileEvent, len(c.events))
	copy(out, c.events)
	return out
}

func TestNewFileSystemMonitor(t *testing.T) {
	t.Run("Normalizes extensions", func(t *testing.T) {
		monitor, err := NewFileSystemMonitor("html", ".MD")
		require.NoError(t, err)
		defer monitor.StopWatching()

		assert.Equal(t, DefaultDebounceDelay, monitor.debounceDelay)
		assert.True(t, monitor.Matches("templates/update-score.html"))
		assert.True(t, monitor.Matches("templates/briefing.md"))
		assert.False(t, monitor.Matches("templates/notes.txt"))
	})

	t.Run("Requires an extension", func(t *testing.T) {
		_, err := NewFileSystemMonitor()
		assert.Error(t, err)
	})
}

func TestWatchDirectoryErrors(t *testing.T) {
	_, monitor := newTestMonitor(t, ".html")
	err := monitor.WatchDirectory("/non/existent/path", func(FileEvent) {})
	assert.Error(t, err)
}

func TestStopWatchingTwice(t *testing.T) {
	monitor, err := NewFileSystemMonitor(".html")
	require.NoError(t, err)

	assert.NoError(t, monitor.StopWatching())
	assert.NoError(t, monitor.StopWatching())
}

func TestFileFiltering(t *testing.T) {
	dir, monitor := newTestMonitor(t, ".html", ".md")
	collector := &eventCollector{}
	require.NoError(t, monitor.WatchDirectory(dir, collector.add))

	widgetPath := filepath.Join(dir, "calculator.html")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(widgetPath, []byte("<div>Hello, World!</div>"), 0o644))

	assert.Eventually(t, func() bool {
		return len(collector.snapshot()) > 0
	}, 2*time.Second, 50*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	for _, event := range collector.snapshot() {
		assert.Equal(t, widgetPath, event.Path)
		assert.Contains(t, []string{EventCreate, EventModify}, event.Type)
	}
}

func TestDebounceCoalescesWrites(t *testing.T) {
	dir, monitor := newTestMonitor(t, ".md")
	collector := &eventCollector{}
	require.NoError(t, monitor.WatchDirectory(dir, collector.add))

	path := filepath.Join(dir, "briefing.md")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("# Start a New Adventure\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return len(collector.snapshot()) > 0
	}, 2*time.Second, 50*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	assert.Len(t, collector.snapshot(), 1, "rapid writes to one file should produce one event")
}

func TestMultipleCallbacks(t *testing.T) {
	dir, monitor := newTestMonitor(t, ".html")
	first, second := &eventCollector{}, &eventCollector{}
	require.NoError(t, monitor.WatchDirectory(dir, first.add))
	require.NoError(t, monitor.WatchDirectory(dir, second.add))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "video-summary.html"), []byte("<div></div>"), 0o644))

	assert.Eventually(t, func() bool {
		return len(first.snapshot()) > 0 && len(second.snapshot()) > 0
	}, 2*time.Second, 50*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, len(first.snapshot()), len(second.snapshot()))
}

func TestDeleteEvent(t *testing.T) {
	dir, monitor := newTestMonitor(t, ".html")
	path := filepath.Join(dir, "update-score.html")
	require.NoError(t, os.WriteFile(path, []byte("<div></div>"), 0o644))

	collector := &eventCollector{}
	require.NoError(t, monitor.WatchDirectory(dir, collector.add))
	require.NoError(t, os.Remove(path))

	assert.Eventually(t, func() bool {
		for _, event := range collector.snapshot() {
			if event.Type == EventDelete && event.Path == path {
				return true
			}
		}
		return false
	}, 2*time.Second, 50*time.Millisecond)
}
