package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/brunoscheufler/bankterminal/store"
	"github.com/stretchr/testify/require"
)

func TestSimulator_SeedsAndVerifies(t *testing.T) {
	bank, err := store.NewSQLiteStore(store.InMemoryStoreOptions())
	require.NoError(t, err)
	defer bank.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim := NewSimulator(bank, logger, SimulatorOptions{UserCount: 4, AccountsPerUser: 3})

	result, err := sim.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Users, 4)
	require.Equal(t, 12, result.Accounts)

	users, err := bank.CountUsers(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, users)

	accounts, err := bank.CountAccounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, accounts)

	for _, u := range result.Users {
		require.Regexp(t, `^demo[0-9a-f]{8}$`, u.UserID)
	}
}

func TestSimulator_NothingToSeed(t *testing.T) {
	bank, err := store.NewSQLiteStore(store.InMemoryStoreOptions())
	require.NoError(t, err)
	defer bank.Close()

	result, err := NewSimulator(bank, nil, SimulatorOptions{}).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, result.Users)
}

type failingBank struct {
	simulatorBank
}

func (failingBank) AddUser(ctx context.Context, u store.User) (int64, error) {
	return 0, errors.New("disk I/O error")
}

func TestSimulator_ReportsStoreErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim := NewSimulator(failingBank{}, logger, SimulatorOptions{UserCount: 2, AccountsPerUser: 1})

	_, err := sim.Run(context.Background())
	require.ErrorContains(t, err, "disk I/O error")
}
