package components

import (
	"fmt"

	"github.com/theirongolddev/cloudburn/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the bottom status bar shows.
type StatusInfo struct {
	DataAge     string
	Refreshing  bool
	AutoRefresh bool
	Message     string
	IsError     bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	msgStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	if info.IsError {
		msgStyle = msgStyle.Foreground(t.Over)
	}

	left := base.Render(" [?]help  [r]efresh  [a]dd budget  [q]uit")
	if info.Message != "" {
		left += base.Render("  ") + msgStyle.Render(info.Message)
	}

	right := ""
	switch {
	case info.Refreshing:
		right = "refreshing… "
	case info.DataAge != "":
		right = fmt.Sprintf("Data: %s ", info.DataAge)
	}
	if info.AutoRefresh {
		right = "↻ " + right
	}
	rightR := base.Render(right)

	padding := width - lipgloss.Width(left) - lipgloss.Width(rightR)
	if padding < 0 {
		padding = 0
	}

	return lipgloss.NewStyle().Background(t.Surface).Width(width).
		Render(left + base.Render(fmt.Sprintf("%*s", padding, "")) + rightR)
}
