package telemetry

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is the slice of the store the collector needs for totals.
type Counter interface {
	CountUsers(ctx context.Context) (int, error)
	CountAccounts(ctx context.Context) (int, error)
}

type StatsCollector struct {
	counter Counter

	totalCommands  int64
	failedCommands int64

	mu           sync.Mutex
	commandCount map[string]int64

	startTime time.Time
}

type CommandStats struct {
	Command string
	Count   int64
}

type Stats struct {
	UserCount      int
	AccountCount   int
	TotalCommands  int64
	FailedCommands int64
	Commands       []CommandStats
	Uptime         time.Duration
	GoRoutines     int
	MemoryUsage    string
	LastUpdated    time.Time
}

func NewStatsCollector(counter Counter) *StatsCollector {
	return &StatsCollector{
		counter:      counter,
		commandCount: make(map[string]int64),
		startTime:    time.Now(),
	}
}

// SetCounter attaches the store once it is open, so totals can be reported.
func (sc *StatsCollector) SetCounter(counter Counter) {
	sc.mu.Lock()
	sc.counter = counter
	sc.mu.Unlock()
}

// RecordCommand counts one dispatched shell or TUI command and whether it failed.
func (sc *StatsCollector) RecordCommand(command string, err error) {
	atomic.AddInt64(&sc.totalCommands, 1)
	if err != nil {
		atomic.AddInt64(&sc.failedCommands, 1)
	}

	sc.mu.Lock()
	sc.commandCount[command]++
	sc.mu.Unlock()
}

func (sc *StatsCollector) CollectStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		LastUpdated: time.Now(),
		Uptime:      time.Since(sc.startTime),
		GoRoutines:  runtime.NumGoroutine(),
	}

	sc.mu.Lock()
	counter := sc.counter
	sc.mu.Unlock()

	if counter != nil {
		users, err := counter.CountUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count users: %w", err)
		}
		stats.UserCount = users

		accounts, err := counter.CountAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count accounts: %w", err)
		}
		stats.AccountCount = accounts
	}

	stats.TotalCommands = atomic.LoadInt64(&sc.totalCommands)
	stats.FailedCommands = atomic.LoadInt64(&sc.failedCommands)

	sc.mu.Lock()
	for command, count := range sc.commandCount {
		stats.Commands = append(stats.Commands, CommandStats{Command: command, Count: count})
	}
	sc.mu.Unlock()

	sort.Slice(stats.Commands, func(i, j int) bool {
		if stats.Commands[i].Count != stats.Commands[j].Count {
			return stats.Commands[i].Count > stats.Commands[j].Count
		}
		return stats.Commands[i].Command < stats.Commands[j].Command
	})

	// Memory stats
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.MemoryUsage = formatBytes(m.Alloc)

	return stats, nil
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
