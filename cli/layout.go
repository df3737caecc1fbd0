package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const (
	titleHeight  = 1
	statsHeight  = 1
	statusHeight = 1
	helpHeight   = 1
	borderHeight = 2
)

// View renders the interface
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading bank terminal..."
	}

	title := m.theme.titleStyle().Render("Bank of Ryan")
	stats := formatStats(m.stats, m.theme)

	tables := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderPanel("Users", m.usersTable.View(), m.focus == usersPane),
		m.renderPanel(m.accountsTitle(), m.accountsTable.View(), m.focus == accountsPane),
	)

	sections := []string{title, stats, tables}
	if m.focus == registerPane {
		sections = append(sections, m.renderForm())
	}
	sections = append(sections,
		m.renderStatus(),
		m.renderPanel("Logs", m.logsViewport.View(), false),
		lipgloss.NewStyle().Foreground(m.theme.Subtle).Render(m.help.View(keys)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) accountsTitle() string {
	if m.owner.UserID == "" {
		return "Accounts"
	}
	return fmt.Sprintf("Accounts for %s (%s)", m.owner.Name, m.owner.UserID)
}

func (m *Model) renderPanel(title, body string, focused bool) string {
	style := m.theme.panelStyle()
	if focused {
		style = style.BorderForeground(m.theme.Accent)
	}
	return style.Render(m.theme.titleStyle().Render(title) + "\n" + body)
}

func (m *Model) renderForm() string {
	body := m.form.name.View() + "\n" + m.form.userID.View()
	return m.renderPanel("Register", body, true)
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	color := m.theme.Success
	if m.statusErr {
		color = m.theme.Error
	}
	return lipgloss.NewStyle().Foreground(color).Render(m.status)
}

// resize splits the screen between the two tables and the logs pane.
func (m *Model) resize() {
	available := m.height - titleHeight - statsHeight - statusHeight - helpHeight - 2*borderHeight
	if available < 4 {
		available = 4
	}

	tableHeight := available / 2
	m.usersTable.SetHeight(tableHeight)
	m.accountsTable.SetHeight(tableHeight)

	halfWidth := m.width/2 - 4
	if halfWidth < 20 {
		halfWidth = 20
	}
	m.usersTable.SetWidth(halfWidth)
	m.accountsTable.SetWidth(halfWidth)

	m.logsViewport.Width = m.width - 4
	m.logsViewport.Height = available - tableHeight - borderHeight
	if m.logsViewport.Height < 1 {
		m.logsViewport.Height = 1
	}
	m.logsViewport.GotoBottom()

	m.help.Width = m.width
	m.form.name.Width = halfWidth
	m.form.userID.Width = halfWidth
}
