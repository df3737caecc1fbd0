package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brunoscheufler/bankterminal/constants"
	"github.com/brunoscheufler/bankterminal/store"
	"github.com/brunoscheufler/bankterminal/telemetry"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

var errUserExists = errors.New("user already exists")

type pane int

const (
	usersPane pane = iota
	accountsPane
	registerPane
)

// Model represents the main TUI model
type Model struct {
	bank    Bank
	tel     *telemetry.Telemetry
	options CLIOptions

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc

	// Screen dimensions
	width  int
	height int

	usersTable    table.Model
	accountsTable table.Model
	logsViewport  viewport.Model
	help          help.Model
	form          registerForm
	theme         Theme
	focus         pane

	logs     <-chan telemetry.LogEntry
	logLines []string

	users    []store.UserStats
	owner    store.User
	accounts []store.Account
	stats    *telemetry.Stats

	status    string
	statusErr bool

	lastStatsUpdate time.Time
}

// registerForm collects the two fields of a new user.
type registerForm struct {
	name   textinput.Model
	userID textinput.Model
}

func newRegisterForm() registerForm {
	name := textinput.New()
	name.Prompt = "Name:     "
	name.Placeholder = "Alice Example"
	name.CharLimit = 128

	userID := textinput.New()
	userID.Prompt = "Username: "
	userID.Placeholder = "no spaces/special chars"
	userID.CharLimit = 64

	return registerForm{name: name, userID: userID}
}

func (f *registerForm) open() tea.Cmd {
	f.name.Reset()
	f.userID.Reset()
	f.userID.Blur()
	return f.name.Focus()
}

func (f *registerForm) toggle() tea.Cmd {
	if f.name.Focused() {
		f.name.Blur()
		return f.userID.Focus()
	}
	f.userID.Blur()
	return f.name.Focus()
}

func (f registerForm) user() store.User {
	return store.User{
		UserID: strings.TrimSpace(f.userID.Value()),
		Name:   strings.TrimSpace(f.name.Value()),
	}
}

// Key bindings
type keyMap struct {
	focus         pane
	Up            key.Binding
	Down          key.Binding
	Switch        key.Binding
	Load          key.Binding
	Register      key.Binding
	CreateCheque  key.Binding
	CreateSavings key.Binding
	Submit        key.Binding
	Cancel        key.Binding
	Quit          key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	switch k.focus {
	case registerPane:
		return []key.Binding{k.Switch, k.Submit, k.Cancel}
	case accountsPane:
		return []key.Binding{k.Up, k.Down, k.Switch, k.CreateCheque, k.CreateSavings, k.Register, k.Quit}
	default:
		return []key.Binding{k.Up, k.Down, k.Load, k.Switch, k.CreateCheque, k.CreateSavings, k.Register, k.Quit}
	}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("↓/j", "down"),
	),
	Switch: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch"),
	),
	Load: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "show accounts"),
	),
	Register: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "register"),
	),
	CreateCheque: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "new chequing"),
	),
	CreateSavings: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "new savings"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

var (
	usersColumns = []table.Column{
		{Title: "Username", Width: 16},
		{Title: "Name", Width: 24},
		{Title: "Accounts", Width: 8},
	}
	accountsColumns = []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Type", Width: 10},
		{Title: "Balance", Width: 12},
	}
)

// NewModel creates a new TUI model
func NewModel(ctx context.Context, bank Bank, tel *telemetry.Telemetry, options CLIOptions) *Model {
	ctx, cancel := context.WithCancel(ctx)
	theme := GetTheme(options.Theme)

	usersTable := table.New(
		table.WithColumns(usersColumns),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(theme.tableStyles()),
	)
	accountsTable := table.New(
		table.WithColumns(accountsColumns),
		table.WithFocused(false),
		table.WithHeight(10),
		table.WithStyles(theme.tableStyles()),
	)

	m := &Model{
		bank:          bank,
		tel:           tel,
		options:       options,
		ctx:           ctx,
		cancel:        cancel,
		usersTable:    usersTable,
		accountsTable: accountsTable,
		logsViewport:  viewport.New(0, 0), // Sized on the first WindowSizeMsg
		help:          help.New(),
		form:          newRegisterForm(),
		theme:         theme,
		logs:          tel.LogCapture.Subscribe(constants.TUILogLines),
	}

	for _, entry := range tel.LogCapture.GetRecentLogs(constants.TUILogLines) {
		m.logLines = append(m.logLines, entry.Message)
	}
	m.logsViewport.SetContent(strings.Join(m.logLines, "\n"))
	m.logsViewport.GotoBottom()

	return m
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.loadUsers(),
		m.collectStats(),
		m.waitForLog(),
	)
}

// Message types for updates
type (
	tickMsg  time.Time
	logMsg   telemetry.LogEntry
	usersMsg struct {
		users []store.UserStats
		err   error
	}
	accountsMsg struct {
		user     store.User
		accounts []store.Account
		err      error
	}
	statsMsg struct {
		stats *telemetry.Stats
		err   error
	}
	registeredMsg struct {
		user store.User
		rows int64
		err  error
	}
	accountCreatedMsg struct {
		account store.Account
		err     error
	}
)

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.focus == registerPane {
			return m, m.updateForm(msg)
		}
		return m, m.handleKey(msg)

	case tickMsg:
		cmds := []tea.Cmd{m.tickCmd(), m.loadUsers()}
		if m.owner.UserID != "" {
			cmds = append(cmds, m.loadAccounts(m.owner.UserID))
		}

		now := time.Time(msg)
		if now.Sub(m.lastStatsUpdate) >= constants.DefaultStatsInterval {
			m.lastStatsUpdate = now
			cmds = append(cmds, m.collectStats())
		}
		return m, tea.Batch(cmds...)

	case usersMsg:
		if msg.err != nil {
			m.setError("Could not load users: %v", msg.err)
			return m, nil
		}
		m.users = msg.users
		m.usersTable.SetRows(userRows(msg.users))
		return m, nil

	case accountsMsg:
		if msg.err != nil {
			if errors.Is(msg.err, store.ErrUserNotFound) {
				m.setError("No user with ID '%s' exists.", msg.user.UserID)
			} else {
				m.setError("Could not load accounts: %v", msg.err)
			}
			return m, nil
		}
		m.owner = msg.user
		m.accounts = msg.accounts
		m.accountsTable.SetRows(accountRows(msg.accounts))
		return m, nil

	case statsMsg:
		if msg.err == nil {
			m.stats = msg.stats
		}
		return m, nil

	case registeredMsg:
		return m, m.handleRegistered(msg)

	case accountCreatedMsg:
		m.tel.StatsCollector.RecordCommand("create", msg.err)
		if msg.err != nil {
			m.setError("Could not create account: %v", msg.err)
			return m, nil
		}
		m.setStatus("Created %s account #%d.", msg.account.Type, msg.account.AccountID)
		return m, tea.Batch(m.loadAccounts(msg.account.UserID), m.loadUsers())

	case logMsg:
		m.appendLog(msg.Message)
		return m, m.waitForLog()
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		m.cancel()
		return tea.Quit

	case key.Matches(msg, keys.Switch):
		m.setFocus(m.otherTablePane())
		return nil

	case key.Matches(msg, keys.Register):
		m.setFocus(registerPane)
		return m.form.open()

	case key.Matches(msg, keys.CreateCheque):
		return m.createAccount(store.AccountTypeChequing)

	case key.Matches(msg, keys.CreateSavings):
		return m.createAccount(store.AccountTypeSavings)

	case key.Matches(msg, keys.Load):
		if m.focus != usersPane {
			return nil
		}
		cursor := m.usersTable.Cursor()
		if cursor < 0 || cursor >= len(m.users) {
			return nil
		}
		userID := m.users[cursor].User.UserID
		m.tel.StatsCollector.RecordCommand("accounts", nil)
		return m.loadAccounts(userID)
	}

	// Everything else moves the focused table's cursor.
	var cmd tea.Cmd
	if m.focus == accountsPane {
		m.accountsTable, cmd = m.accountsTable.Update(msg)
	} else {
		m.usersTable, cmd = m.usersTable.Update(msg)
	}
	return cmd
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Cancel):
		m.setFocus(usersPane)
		return nil

	case key.Matches(msg, keys.Switch):
		return m.form.toggle()

	case key.Matches(msg, keys.Submit):
		user := m.form.user()
		m.setFocus(usersPane)
		return m.register(user)
	}

	var cmd tea.Cmd
	if m.form.name.Focused() {
		m.form.name, cmd = m.form.name.Update(msg)
	} else {
		m.form.userID, cmd = m.form.userID.Update(msg)
	}
	return cmd
}

func (m *Model) handleRegistered(msg registeredMsg) tea.Cmd {
	var invalid *store.ValidationError
	switch {
	case errors.As(msg.err, &invalid):
		m.tel.StatsCollector.RecordCommand("register", msg.err)
		m.setError("Could not register: %s.", strings.Join(invalid.Reasons, "; "))
		return nil
	case msg.err != nil:
		m.tel.StatsCollector.RecordCommand("register", msg.err)
		m.setError("Could not register: %v", msg.err)
		return nil
	case msg.rows != 1:
		m.tel.StatsCollector.RecordCommand("register", errUserExists)
		m.setError("This userID already exists. Please choose a new one.")
		return nil
	}

	m.tel.StatsCollector.RecordCommand("register", nil)
	m.setStatus("Welcome %s, you are now registered.", msg.user.Name)
	return m.loadUsers()
}

func (m *Model) setFocus(p pane) {
	m.focus = p
	keys.focus = p

	m.usersTable.Blur()
	m.accountsTable.Blur()
	m.form.name.Blur()
	m.form.userID.Blur()

	switch p {
	case usersPane:
		m.usersTable.Focus()
	case accountsPane:
		m.accountsTable.Focus()
	}
}

func (m *Model) otherTablePane() pane {
	if m.focus == usersPane {
		return accountsPane
	}
	return usersPane
}

func (m *Model) setStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = false
}

func (m *Model) setError(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = true
}

func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > constants.TUILogLines {
		m.logLines = m.logLines[len(m.logLines)-constants.TUILogLines:]
	}
	m.logsViewport.SetContent(strings.Join(m.logLines, "\n"))
	m.logsViewport.GotoBottom()
}

func userRows(users []store.UserStats) []table.Row {
	rows := make([]table.Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, table.Row{u.User.UserID, u.User.Name, strconv.Itoa(u.AccountCount)})
	}
	return rows
}

func accountRows(accounts []store.Account) []table.Row {
	rows := make([]table.Row, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, table.Row{
			strconv.FormatInt(a.AccountID, 10),
			a.Type.String(),
			fmt.Sprintf("$%.2f", a.Balance),
		})
	}
	return rows
}

// tickCmd returns a command that sends a tick message every refresh interval
func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(constants.TUIRefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForLog forwards the next captured log line into the update loop
func (m *Model) waitForLog() tea.Cmd {
	return func() tea.Msg {
		select {
		case entry := <-m.logs:
			return logMsg(entry)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, constants.CommandTimeout)
}

func (m *Model) loadUsers() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.storeContext()
		defer cancel()

		users, err := store.GetUserStats(ctx, m.bank)
		return usersMsg{users: users, err: err}
	}
}

func (m *Model) loadAccounts(userID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.storeContext()
		defer cancel()

		user, accounts, err := m.bank.GetUserAccounts(ctx, userID)
		if err != nil {
			user.UserID = userID
		}
		return accountsMsg{user: user, accounts: accounts, err: err}
	}
}

func (m *Model) collectStats() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.storeContext()
		defer cancel()

		stats, err := m.tel.StatsCollector.CollectStats(ctx)
		return statsMsg{stats: stats, err: err}
	}
}

func (m *Model) register(user store.User) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.storeContext()
		defer cancel()

		rows, err := m.bank.AddUser(ctx, user)
		return registeredMsg{user: user, rows: rows, err: err}
	}
}

// createAccount opens an account for the user whose accounts are on screen.
func (m *Model) createAccount(accountType store.AccountType) tea.Cmd {
	if m.owner.UserID == "" {
		m.setError("Select a user with enter before creating an account.")
		return nil
	}

	owner := m.owner
	return func() tea.Msg {
		ctx, cancel := m.storeContext()
		defer cancel()

		account, err := m.bank.CreateAccount(ctx, owner, accountType)
		return accountCreatedMsg{account: account, err: err}
	}
}
