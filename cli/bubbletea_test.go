package cli

import (
	"context"
	"testing"
	"time"

	"github.com/brunoscheufler/bankterminal/store"
	"github.com/brunoscheufler/bankterminal/telemetry"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func setupModel(t *testing.T) (*Model, *store.SQLiteStore) {
	t.Helper()

	bank, err := store.NewSQLiteStore(store.InMemoryStoreOptions())
	require.NoError(t, err)
	t.Cleanup(func() { bank.Close() })

	tel := telemetry.New(telemetry.WithCLIMode(true))
	tel.StatsCollector.SetCounter(bank)
	m := NewModel(context.Background(), bank, tel, CLIOptions{Theme: "light"})
	t.Cleanup(m.cancel)
	return m, bank
}

func press(m *Model, keyName string) tea.Cmd {
	var msg tea.KeyMsg
	switch keyName {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keyName)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

// run executes a store command synchronously and feeds its result back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)

	_, next := m.Update(cmd())
	return next
}

func TestModel_RegisterThroughForm(t *testing.T) {
	m, bank := setupModel(t)

	press(m, "r")
	require.Equal(t, registerPane, m.focus)

	press(m, "Quinn Q") // 'q' goes to the form, not to quit
	press(m, "tab")
	press(m, "quinn")

	next := run(t, m, press(m, "enter"))
	require.Equal(t, usersPane, m.focus)
	require.False(t, m.statusErr)
	require.Equal(t, "Welcome Quinn Q, you are now registered.", m.status)

	user, err := bank.GetUser(context.Background(), "quinn")
	require.NoError(t, err)
	require.Equal(t, "Quinn Q", user.Name)

	run(t, m, next)
	require.Len(t, m.users, 1)
	require.Equal(t, "quinn", m.usersTable.Rows()[0][0])
}

func TestModel_RegisterRejectsDuplicateAndInvalid(t *testing.T) {
	m, bank := setupModel(t)
	_, err := bank.AddUser(context.Background(), store.User{UserID: "bob", Name: "Bob"})
	require.NoError(t, err)

	press(m, "r")
	press(m, "Robert")
	press(m, "tab")
	press(m, "bob")
	run(t, m, press(m, "enter"))

	require.True(t, m.statusErr)
	require.Equal(t, "This userID already exists. Please choose a new one.", m.status)

	press(m, "r")
	press(m, "Dave")
	press(m, "tab")
	press(m, "dave!")
	run(t, m, press(m, "enter"))

	require.True(t, m.statusErr)
	require.Contains(t, m.status, "Could not register: username may only contain letters and digits")

	user, err := bank.GetUser(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, "Bob", user.Name)
}

func TestModel_EscCancelsForm(t *testing.T) {
	m, bank := setupModel(t)

	press(m, "r")
	press(m, "Nobody")
	require.Nil(t, press(m, "esc"))
	require.Equal(t, usersPane, m.focus)

	count, err := bank.CountUsers(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestModel_LoadAccountsAndCreate(t *testing.T) {
	m, bank := setupModel(t)
	ctx := context.Background()

	for _, u := range []store.User{{UserID: "alice", Name: "Alice A"}, {UserID: "zed", Name: "Zed Z"}} {
		_, err := bank.AddUser(ctx, u)
		require.NoError(t, err)
	}
	_, err := bank.CreateAccount(ctx, store.User{UserID: "zed"}, store.AccountTypeChequing)
	require.NoError(t, err)

	run(t, m, m.loadUsers())
	require.Len(t, m.users, 2)
	// Users with more accounts come first.
	require.Equal(t, "zed", m.users[0].User.UserID)

	press(m, "down")
	run(t, m, press(m, "enter"))
	require.Equal(t, "alice", m.owner.UserID)
	require.Empty(t, m.accountsTable.Rows())

	next := run(t, m, press(m, "s"))
	require.Equal(t, "Created Savings account #2.", m.status)
	require.NotNil(t, next)

	run(t, m, m.loadAccounts("alice"))
	rows := m.accountsTable.Rows()
	require.Len(t, rows, 1)
	require.Equal(t, []string{"2", "Savings", "$0.00"}, []string(rows[0]))

	stats, err := m.tel.StatsCollector.CollectStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.UserCount)
	require.Equal(t, 2, stats.AccountCount)
	require.Equal(t, int64(2), stats.TotalCommands)
}

func TestModel_CreateRequiresSelectedUser(t *testing.T) {
	m, bank := setupModel(t)

	require.Nil(t, press(m, "c"))
	require.True(t, m.statusErr)

	count, err := bank.CountAccounts(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestModel_LoadAccountsUnknownUser(t *testing.T) {
	m, _ := setupModel(t)

	run(t, m, m.loadAccounts("ghost"))
	require.True(t, m.statusErr)
	require.Equal(t, "No user with ID 'ghost' exists.", m.status)
	require.Empty(t, m.owner.UserID)
}

func TestModel_LogsAreStreamed(t *testing.T) {
	m, _ := setupModel(t)

	m.tel.Logger.Info("hello from the store")
	next := run(t, m, m.waitForLog())

	require.NotNil(t, next)
	require.Contains(t, m.logLines[len(m.logLines)-1], "hello from the store")
}

func TestModel_QuitAndView(t *testing.T) {
	m, _ := setupModel(t)

	require.Equal(t, "Loading bank terminal...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	view := m.View()
	require.Contains(t, view, "Bank of Ryan")
	require.Contains(t, view, "Users")
	require.Contains(t, view, "Logs")

	cmd := press(m, "q")
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Error(t, m.ctx.Err())
}

func TestFormatStats(t *testing.T) {
	line := formatStats(&telemetry.Stats{UserCount: 3, AccountCount: 5, MemoryUsage: "1.0 MB"}, DarkTheme)

	require.Contains(t, line, "Users: ")
	require.Contains(t, line, "1.0 MB")
	require.Contains(t, formatStats(nil, DarkTheme), "Collecting stats")
	require.Equal(t, "1h2m", formatDuration(62*time.Minute))
	require.Equal(t, LightTheme, GetTheme("light"))
	require.Equal(t, DarkTheme, GetTheme("solarized"))
}
