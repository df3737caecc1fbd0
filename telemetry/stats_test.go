package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	users    int
	accounts int
	err      error
}

func (f fakeCounter) CountUsers(ctx context.Context) (int, error)    { return f.users, f.err }
func (f fakeCounter) CountAccounts(ctx context.Context) (int, error) { return f.accounts, f.err }

func TestStatsCollector_RecordCommand(t *testing.T) {
	collector := NewStatsCollector(fakeCounter{users: 2, accounts: 5})

	collector.RecordCommand("register", nil)
	collector.RecordCommand("accounts", nil)
	collector.RecordCommand("accounts", errors.New("user not found"))
	collector.RecordCommand("help", nil)

	stats, err := collector.CollectStats(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, stats.UserCount)
	require.Equal(t, 5, stats.AccountCount)
	require.Equal(t, int64(4), stats.TotalCommands)
	require.Equal(t, int64(1), stats.FailedCommands)
	require.Equal(t, []CommandStats{
		{Command: "accounts", Count: 2},
		{Command: "help", Count: 1},
		{Command: "register", Count: 1},
	}, stats.Commands)
	require.NotEmpty(t, stats.MemoryUsage)
}

func TestStatsCollector_WithoutCounter(t *testing.T) {
	stats, err := NewStatsCollector(nil).CollectStats(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.UserCount)
	require.Zero(t, stats.TotalCommands)
	require.Empty(t, stats.Commands)
}

func TestStatsCollector_SetCounter(t *testing.T) {
	tel := New(WithCLIMode(true))

	stats, err := tel.StatsCollector.CollectStats(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.UserCount)

	tel.StatsCollector.RecordCommand("register", nil)
	tel.StatsCollector.SetCounter(fakeCounter{users: 3, accounts: 7})

	stats, err = tel.StatsCollector.CollectStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.UserCount)
	require.Equal(t, 7, stats.AccountCount)
	require.Equal(t, int64(1), stats.TotalCommands, "Counts recorded before the store was attached are kept")
}

func TestStatsCollector_CounterError(t *testing.T) {
	collector := NewStatsCollector(fakeCounter{err: errors.New("database is closed")})

	_, err := collector.CollectStats(context.Background())
	require.ErrorContains(t, err, "failed to count users")
}

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "512 B", formatBytes(512))
	require.Equal(t, "1.0 KB", formatBytes(1024))
	require.Equal(t, "1.5 MB", formatBytes(1536*1024))
}
