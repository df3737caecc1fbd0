package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/brunoscheufler/bankterminal/telemetry"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme of the TUI
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
	Subtle    lipgloss.Color
	Highlight lipgloss.Color
}

var (
	DarkTheme = Theme{
		Name:      "dark",
		Primary:   lipgloss.Color("#FFFFFF"),
		Secondary: lipgloss.Color("#808080"),
		Accent:    lipgloss.Color("#00FFFF"),
		Success:   lipgloss.Color("#00FF00"),
		Warning:   lipgloss.Color("#FFFF00"),
		Error:     lipgloss.Color("#FF0000"),
		Border:    lipgloss.Color("#0000FF"),
		Subtle:    lipgloss.Color("#666666"),
		Highlight: lipgloss.Color("#FFFF00"),
	}

	LightTheme = Theme{
		Name:      "light",
		Primary:   lipgloss.Color("#000000"),
		Secondary: lipgloss.Color("#404040"),
		Accent:    lipgloss.Color("#008080"),
		Success:   lipgloss.Color("#006400"),
		Warning:   lipgloss.Color("#FF8C00"),
		Error:     lipgloss.Color("#8B0000"),
		Border:    lipgloss.Color("#000080"),
		Subtle:    lipgloss.Color("#999999"),
		Highlight: lipgloss.Color("#000080"),
	}
)

func GetTheme(themeName string) Theme {
	switch themeName {
	case "light":
		return LightTheme
	case "dark":
		fallthrough
	default:
		return DarkTheme
	}
}

func (t Theme) tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Bold(false).
		Foreground(t.Highlight)
	styles.Selected = styles.Selected.
		Foreground(t.Primary).
		Background(t.Accent).
		Bold(false)
	return styles
}

func (t Theme) panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Highlight).
		Bold(true)
}

// formatStats renders the one-line summary shown under the title.
func formatStats(stats *telemetry.Stats, theme Theme) string {
	if stats == nil {
		return lipgloss.NewStyle().Foreground(theme.Subtle).Render("Collecting stats...")
	}

	label := lipgloss.NewStyle().Foreground(theme.Secondary)
	value := lipgloss.NewStyle().Foreground(theme.Accent)
	failed := value
	if stats.FailedCommands > 0 {
		failed = lipgloss.NewStyle().Foreground(theme.Warning)
	}

	parts := []string{
		label.Render("Users: ") + value.Render(fmt.Sprint(stats.UserCount)),
		label.Render("Accounts: ") + value.Render(fmt.Sprint(stats.AccountCount)),
		label.Render("Commands: ") + value.Render(fmt.Sprint(stats.TotalCommands)),
		label.Render("Errors: ") + failed.Render(fmt.Sprint(stats.FailedCommands)),
		label.Render("Uptime: ") + value.Render(formatDuration(stats.Uptime)),
		label.Render("Memory: ") + value.Render(stats.MemoryUsage),
	}
	return strings.Join(parts, label.Render("  |  "))
}

func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
