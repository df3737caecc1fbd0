package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/brunoscheufler/bankterminal/store"
	"github.com/google/uuid"
)

// SimulatorOptions controls how much demo data the simulator seeds
type SimulatorOptions struct {
	UserCount       int
	AccountsPerUser int
}

// SimulationResult summarizes one seeding run
type SimulationResult struct {
	Users    []store.User
	Accounts int
}

type simulatorBank interface {
	AddUser(ctx context.Context, u store.User) (int64, error)
	GetUserAccounts(ctx context.Context, userID string) (store.User, []store.Account, error)
	CreateAccount(ctx context.Context, u store.User, accountType store.AccountType) (store.Account, error)
}

// Simulator registers demo users concurrently, opens accounts for each of them
// and then reads every user back to check the store returned exactly what was created.
type Simulator struct {
	bank    simulatorBank
	logger  *slog.Logger
	options SimulatorOptions
}

type userLoop struct {
	user   store.User
	bank   simulatorBank
	logger *slog.Logger

	// Account IDs handed out by the store for this user
	created map[int64]store.AccountType
}

func NewSimulator(bank simulatorBank, logger *slog.Logger, options SimulatorOptions) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		bank:    bank,
		logger:  logger,
		options: options,
	}
}

func (s *Simulator) Run(ctx context.Context) (SimulationResult, error) {
	s.logger.Info("Seeding demo data",
		"users", s.options.UserCount,
		"accounts_per_user", s.options.AccountsPerUser,
	)

	loops := make([]*userLoop, 0, s.options.UserCount)
	for i := 0; i < s.options.UserCount; i++ {
		loops = append(loops, &userLoop{
			user:    demoUser(i + 1),
			bank:    s.bank,
			logger:  s.logger,
			created: make(map[int64]store.AccountType),
		})
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, loop := range loops {
		wg.Add(1)
		go func(loop *userLoop) {
			defer wg.Done()
			if err := loop.run(ctx, s.options.AccountsPerUser); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(loop)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return SimulationResult{}, err
	}

	result := SimulationResult{}
	for _, loop := range loops {
		if err := loop.verify(ctx); err != nil {
			return SimulationResult{}, err
		}
		result.Users = append(result.Users, loop.user)
		result.Accounts += len(loop.created)
	}

	s.logger.Info("Demo data seeded", "users", len(result.Users), "accounts", result.Accounts)
	return result, nil
}

func demoUser(n int) store.User {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return store.User{
		UserID: "demo" + suffix,
		Name:   fmt.Sprintf("Demo User %d", n),
	}
}

func (l *userLoop) run(ctx context.Context, accounts int) error {
	rows, err := l.bank.AddUser(ctx, l.user)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", l.user.UserID, err)
	}
	if rows != 1 {
		return fmt.Errorf("user %s already exists", l.user.UserID)
	}

	types := store.AccountTypes()
	for i := 0; i < accounts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		accountType := types[rand.Intn(len(types))]
		account, err := l.bank.CreateAccount(ctx, l.user, accountType)
		if err != nil {
			return fmt.Errorf("failed to create account for %s: %w", l.user.UserID, err)
		}
		l.created[account.AccountID] = accountType
	}

	l.logger.Debug("demo user seeded", "user_id", l.user.UserID, "accounts", len(l.created))
	return nil
}

// verify checks that the store lists exactly the accounts this loop created.
func (l *userLoop) verify(ctx context.Context) error {
	_, accounts, err := l.bank.GetUserAccounts(ctx, l.user.UserID)
	if err != nil {
		return fmt.Errorf("failed to read back %s: %w", l.user.UserID, err)
	}

	if len(accounts) != len(l.created) {
		return fmt.Errorf("user %s has %d accounts, expected %d", l.user.UserID, len(accounts), len(l.created))
	}
	for _, account := range accounts {
		accountType, ok := l.created[account.AccountID]
		if !ok {
			return fmt.Errorf("user %s lists unexpected account #%d", l.user.UserID, account.AccountID)
		}
		if accountType != account.Type || account.Balance != 0 {
			l.logger.Error("account mismatch", "user_id", l.user.UserID, "account_id", account.AccountID)
			return fmt.Errorf("account #%d of %s does not match what was created", account.AccountID, l.user.UserID)
		}
	}
	return nil
}
