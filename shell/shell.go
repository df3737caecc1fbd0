// Package shell implements the line-oriented bank terminal: it prompts for a
// command, collects free-form input, calls the store and renders the result.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/brunoscheufler/bankterminal/constants"
	"github.com/brunoscheufler/bankterminal/store"
	"github.com/brunoscheufler/bankterminal/telemetry"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

const (
	exitCmd     = "exit"
	helpCmd     = "help"
	registerCmd = "register"
	accountsCmd = "accounts"

	commandPrompt = "Enter a command (help for full list): "
)

// Bank is the part of the store the shell drives.
type Bank interface {
	AddUser(ctx context.Context, u store.User) (int64, error)
	GetUserAccounts(ctx context.Context, userID string) (store.User, []store.Account, error)
	CreateAccount(ctx context.Context, u store.User, accountType store.AccountType) (store.Account, error)
	GetAccount(ctx context.Context, userID string, accountID int64) (store.Account, error)
}

type command struct {
	name        string
	description string
	run         func(ctx context.Context) error
}

type readResult struct {
	line string
	err  error
}

type Shell struct {
	bank     Bank
	in       *bufio.Reader
	lines    chan readResult
	readOnce sync.Once
	out      io.Writer
	logger   *slog.Logger
	stats    *telemetry.StatsCollector
	commands map[string]command

	errorColor   *color.Color
	successColor *color.Color
	headingColor *color.Color
}

// Option defines a functional option for configuring Shell
type Option func(*Shell)

func WithInput(r io.Reader) Option {
	return func(s *Shell) {
		s.in = bufio.NewReader(r)
	}
}

func WithOutput(w io.Writer) Option {
	return func(s *Shell) {
		s.out = w
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Shell) {
		s.logger = logger
	}
}

func WithStats(stats *telemetry.StatsCollector) Option {
	return func(s *Shell) {
		s.stats = stats
	}
}

// WithColor forces colored output on or off.
func WithColor(enabled bool) Option {
	return func(s *Shell) {
		for _, c := range []*color.Color{s.errorColor, s.successColor, s.headingColor} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

func New(bank Bank, opts ...Option) *Shell {
	s := &Shell{
		bank:         bank,
		in:           bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		logger:       slog.Default(),
		errorColor:   color.New(color.FgRed),
		successColor: color.New(color.FgGreen),
		headingColor: color.New(color.Bold),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stats == nil {
		s.stats = telemetry.NewStatsCollector(nil)
	}

	s.logger = s.logger.With("session_id", uuid.NewString())
	s.commands = map[string]command{
		helpCmd:     {name: helpCmd, description: "shows this list", run: s.help},
		registerCmd: {name: registerCmd, description: "creates a new user", run: s.register},
		accountsCmd: {name: accountsCmd, description: "lists, creates and selects your accounts", run: s.accounts},
		exitCmd:     {name: exitCmd, description: "closes the bank terminal"},
	}
	return s
}

// Run reads and dispatches commands until exit, end of input or cancellation.
// A failing command is reported and the loop carries on.
func (s *Shell) Run(ctx context.Context) error {
	s.logger.Debug("shell session started")
	defer s.logger.Debug("shell session ended")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := s.readLine(ctx, commandPrompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return fmt.Errorf("failed to read command: %w", err)
		}

		if line == "" {
			continue
		}
		if line == exitCmd {
			s.stats.RecordCommand(exitCmd, nil)
			return nil
		}

		if err := s.dispatch(ctx, line); err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

func (s *Shell) dispatch(ctx context.Context, line string) error {
	cmd, ok := s.commands[line]
	if !ok {
		err := fmt.Errorf("unknown command %q", line)
		s.stats.RecordCommand("unknown", err)
		s.errorColor.Fprintf(s.out, "Unknown command: '%s'\n", line)
		return nil
	}

	err := cmd.run(ctx)
	s.stats.RecordCommand(cmd.name, err)
	if err == nil || endsSession(ctx, err) {
		return err
	}

	s.report(err)
	return nil
}

func (s *Shell) help(ctx context.Context) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "\t%s - %s\n", name, s.commands[name].description)
	}
	s.headingColor.Fprint(s.out, b.String())
	return nil
}

// userError is an expected failure whose message is shown to the user as is.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func userErrorf(err error, format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...), err: err}
}

func (s *Shell) report(err error) {
	var ue *userError
	if errors.As(err, &ue) {
		s.errorColor.Fprintln(s.out, ue.msg)
		return
	}

	s.logger.Error("command failed", "error", err)
	s.errorColor.Fprintf(s.out, "Something went wrong talking to the database: %v\n", err)
}

// endsSession reports whether err stops the whole session rather than one command:
// end of input, or cancellation of the session context.
func endsSession(ctx context.Context, err error) bool {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return ctx.Err() != nil
	}
	return false
}

// readLine prompts and waits for the next line or for ctx to be done.
func (s *Shell) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.readOnce.Do(s.startReader)

	fmt.Fprint(s.out, prompt)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			// Accept a final line that is not newline-terminated.
			if !errors.Is(res.err, io.EOF) || res.line == "" {
				return "", res.err
			}
		}
		return strings.TrimSpace(res.line), nil
	}
}

// startReader moves blocking reads off the command loop so a cancelled
// context is noticed while the prompt waits. The channel closes after the
// first read error.
func (s *Shell) startReader() {
	s.lines = make(chan readResult, 1)
	go func() {
		defer close(s.lines)
		for {
			line, err := s.in.ReadString('\n')
			s.lines <- readResult{line: line, err: err}
			if err != nil {
				return
			}
		}
	}()
}

func (s *Shell) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, constants.CommandTimeout)
}
