package telemetry

import (
	"io"
	"strings"
	"sync"
	"time"
)

type LogEntry struct {
	Timestamp time.Time
	Message   string
}

// LogCapture keeps the most recent log lines in memory and fans every write out to
// extra writers and subscribers. It is the io.Writer behind the slog handler.
type LogCapture struct {
	mu          sync.RWMutex
	entries     []LogEntry
	maxSize     int
	writers     []io.Writer
	subscribers []chan LogEntry
}

func NewLogCapture(maxSize int) *LogCapture {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LogCapture{
		entries: make([]LogEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

func (lc *LogCapture) Write(p []byte) (int, error) {
	entry := LogEntry{
		Timestamp: time.Now(),
		Message:   strings.TrimRight(string(p), "\n"),
	}

	lc.mu.Lock()
	if len(lc.entries) >= lc.maxSize {
		lc.entries = lc.entries[1:]
	}
	lc.entries = append(lc.entries, entry)
	writers := lc.writers
	subscribers := lc.subscribers
	lc.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- entry:
		default:
			// Subscriber is behind, drop the entry
		}
	}

	for _, w := range writers {
		w.Write(p)
	}

	return len(p), nil
}

func (lc *LogCapture) AddWriter(w io.Writer) {
	lc.mu.Lock()
	lc.writers = append(lc.writers, w)
	lc.mu.Unlock()
}

// Subscribe returns a channel receiving every entry written from now on.
// Entries are dropped rather than blocking the logger when the buffer is full.
func (lc *LogCapture) Subscribe(buffer int) <-chan LogEntry {
	ch := make(chan LogEntry, buffer)
	lc.mu.Lock()
	lc.subscribers = append(lc.subscribers, ch)
	lc.mu.Unlock()
	return ch
}

func (lc *LogCapture) GetRecentLogs(limit int) []LogEntry {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	start := 0
	if len(lc.entries) > limit {
		start = len(lc.entries) - limit
	}

	result := make([]LogEntry, len(lc.entries)-start)
	copy(result, lc.entries[start:])
	return result
}

func (lc *LogCapture) GetAllLogs() []LogEntry {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	result := make([]LogEntry, len(lc.entries))
	copy(result, lc.entries)
	return result
}
