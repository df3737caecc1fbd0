package cli

import (
	"context"
	"errors"

	"github.com/brunoscheufler/bankterminal/store"
	"github.com/brunoscheufler/bankterminal/telemetry"
	tea "github.com/charmbracelet/bubbletea"
)

// Bank is the part of the store the TUI reads from and writes to.
type Bank interface {
	store.UserStore
	CreateAccount(ctx context.Context, u store.User, accountType store.AccountType) (store.Account, error)
}

type CLIOptions struct {
	Theme string
}

// RunCLI runs the full-screen terminal until the user quits or ctx is cancelled.
func RunCLI(ctx context.Context, bank Bank, tel *telemetry.Telemetry, options CLIOptions) error {
	model := NewModel(ctx, bank, tel, options)
	defer model.cancel()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
