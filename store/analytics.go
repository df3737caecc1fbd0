package store

import (
	"context"
	"fmt"
	"sort"
)

// UserStats pairs a user with the number of accounts they hold.
type UserStats struct {
	User         User
	AccountCount int
}

// GetUserStats returns every user with their account count, most accounts first.
// Users with equal counts keep their ListUsers order.
func GetUserStats(ctx context.Context, userStore UserStore) ([]UserStats, error) {
	users, err := userStore.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	stats := make([]UserStats, 0, len(users))
	for _, user := range users {
		_, accounts, err := userStore.GetUserAccounts(ctx, user.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load accounts for %s: %w", user.UserID, err)
		}

		stats = append(stats, UserStats{
			User:         user,
			AccountCount: len(accounts),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].AccountCount > stats[j].AccountCount
	})

	return stats, nil
}
