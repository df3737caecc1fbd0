package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/brunoscheufler/bankterminal/store"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// register creates a new user. A taken user ID leaves the existing user untouched.
func (s *Shell) register(ctx context.Context) error {
	name, err := s.readLine(ctx, "Enter your name: ")
	if err != nil {
		return err
	}

	userID, err := s.readLine(ctx, "Enter your username (no spaces/special chars): ")
	if err != nil {
		return err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	rows, err := s.bank.AddUser(storeCtx, store.User{UserID: userID, Name: name})
	if err != nil {
		var invalid *store.ValidationError
		if errors.As(err, &invalid) {
			return userErrorf(err, "Could not register: %s.", strings.Join(invalid.Reasons, "; "))
		}
		return fmt.Errorf("failed to register new user: %w", err)
	}

	if rows != 1 {
		return userErrorf(nil, "This userID already exists. Please choose a new one.")
	}

	s.logger.Info("user registered", "user_id", userID)
	s.successColor.Fprintf(s.out, "Welcome %s, you are now registered.\n", name)
	return nil
}

// accounts lists the user's accounts and then offers the account menu.
func (s *Shell) accounts(ctx context.Context) error {
	userID, err := s.readLine(ctx, "Enter your username: ")
	if err != nil {
		return err
	}

	user, accounts, err := s.loadAccounts(ctx, userID)
	if err != nil {
		return err
	}

	s.renderAccounts(user, accounts)
	return s.accountMenu(ctx, user)
}

func (s *Shell) loadAccounts(ctx context.Context, userID string) (store.User, []store.Account, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, accounts, err := s.bank.GetUserAccounts(storeCtx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return store.User{}, nil, userErrorf(err, "No user with ID '%s' exists.", userID)
		}
		return store.User{}, nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	return user, accounts, nil
}

func (s *Shell) renderAccounts(user store.User, accounts []store.Account) {
	s.headingColor.Fprintf(s.out, "Accounts for %s (%s):\n", user.Name, user.UserID)

	if len(accounts) == 0 {
		fmt.Fprintln(s.out, "You have no accounts yet.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Type", "Balance")
	for _, account := range accounts {
		t.Row(strconv.FormatInt(account.AccountID, 10), account.Type.String(), formatBalance(account.Balance))
	}
	fmt.Fprintln(s.out, t.Render())
}

const accountMenu = `What would you like to do?
  1) Create account
  2) Select account
  3) Back
`

// accountMenu loops until the user goes back. Failed actions are reported in place.
func (s *Shell) accountMenu(ctx context.Context, user store.User) error {
	for {
		fmt.Fprint(s.out, accountMenu)
		choice, err := s.readLine(ctx, "Enter a choice: ")
		if err != nil {
			return err
		}

		var actionErr error
		switch choice {
		case "1":
			actionErr = s.createAccount(ctx, user)
		case "2":
			actionErr = s.selectAccount(ctx, user)
		case "3", "back", "":
			return nil
		default:
			actionErr = userErrorf(nil, "Please enter 1, 2 or 3.")
		}

		switch {
		case actionErr == nil:
		case endsSession(ctx, actionErr):
			return actionErr
		default:
			s.report(actionErr)
		}
	}
}

func (s *Shell) createAccount(ctx context.Context, user store.User) error {
	fmt.Fprintln(s.out, "Choose an account type:")
	for i, accountType := range store.AccountTypes() {
		fmt.Fprintf(s.out, "  %d) %s\n", i+1, accountType)
	}

	raw, err := s.readLine(ctx, "Enter a choice: ")
	if err != nil {
		return err
	}

	choice, err := strconv.Atoi(raw)
	if err != nil {
		return userErrorf(err, "'%s' is not a menu number.", raw)
	}

	accountType, err := store.AccountTypeFromChoice(choice)
	if err != nil {
		return userErrorf(err, "There is no account type %d.", choice)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	account, err := s.bank.CreateAccount(storeCtx, user, accountType)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return userErrorf(err, "No user with ID '%s' exists.", user.UserID)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account created", "user_id", user.UserID, "account_id", account.AccountID, "account_type", account.Type)
	s.successColor.Fprintf(s.out, "Created %s account #%d.\n", account.Type, account.AccountID)
	return nil
}

func (s *Shell) selectAccount(ctx context.Context, user store.User) error {
	raw, err := s.readLine(ctx, "Enter an account ID: ")
	if err != nil {
		return err
	}

	accountID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return userErrorf(err, "'%s' is not an account ID.", raw)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	account, err := s.bank.GetAccount(storeCtx, user.UserID, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return userErrorf(err, "You have no account #%d.", accountID)
		}
		return fmt.Errorf("failed to select account: %w", err)
	}

	s.headingColor.Fprintf(s.out, "Account #%d\n", account.AccountID)
	fmt.Fprintf(s.out, "  Type:    %s\n", account.Type)
	fmt.Fprintf(s.out, "  Balance: %s\n", formatBalance(account.Balance))
	return nil
}

func formatBalance(balance float64) string {
	return fmt.Sprintf("$%.2f", balance)
}
