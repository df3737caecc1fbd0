package store

import (
	"context"
	"errors"
	"time"
)

type User struct {
	UserID string `json:"userId" validate:"required,alphanum,max=64"`
	Name   string `json:"name" validate:"required,max=128"`
}

type Account struct {
	AccountID int64       `json:"accountId"`
	UserID    string      `json:"userId"`
	Type      AccountType `json:"accountType"`
	Balance   float64     `json:"balance"`
}

type UserStore interface {
	// AddUser returns the number of rows inserted: 1 for a new user, 0 if the ID is taken.
	AddUser(ctx context.Context, u User) (int64, error)
	GetUser(ctx context.Context, userID string) (User, error)
	GetUserAccounts(ctx context.Context, userID string) (User, []Account, error)
	ListUsers(ctx context.Context) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
}

type AccountStore interface {
	CreateAccount(ctx context.Context, u User, accountType AccountType) (Account, error)
	GetAccount(ctx context.Context, userID string, accountID int64) (Account, error)
	CountAccounts(ctx context.Context) (int, error)
}

// Store is the full persistence surface handed to the shell and the TUI.
type Store interface {
	UserStore
	AccountStore
	HealthCheck(ctx context.Context) error
	Close() error
}

// Custom error types for better error handling
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidUser        = errors.New("invalid user")
)

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
	EnableWAL       bool
}

// DefaultDatabaseConfig returns sensible defaults for database configuration
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		ConnMaxLifetime: 0,
		BusyTimeout:     5 * time.Second,
		EnableWAL:       true,
	}
}
