package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/cli"
	"github.com/theirongolddev/cloudburn/internal/tui/components"
	"github.com/theirongolddev/cloudburn/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderWeeksTab(cw int) string {
	t := theme.Active
	if a.data == nil || len(a.data.Weeks) == 0 {
		return a.renderEmpty(cw, "No weekly data.")
	}

	cur := a.currency()
	today := a.data.Today
	weeks := a.data.Weeks

	peak, total := 0.0, 0.0
	for _, w := range weeks {
		peak = max(peak, w.Spent)
		total += w.Spent
	}
	if peak == 0 {
		peak = 1
	}

	innerW := components.CardInnerWidth(cw)
	barMax := max(innerW-60, 10)

	headStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	nowStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	barStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Warning).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(headStyle.Render(fmt.Sprintf("  %-4s %-25s %4s %11s %11s", "Week", "Days", "#", "Spent", "Per day")))
	b.WriteString("\n")
	for _, w := range weeks {
		mark := spaceStyle.Render("  ")
		if w.Range.Contains(today) {
			mark = nowStyle.Render("▸ ")
		}
		b.WriteString(mark)
		b.WriteString(rowStyle.Render(fmt.Sprintf("W%-3d %-25s %4d %11s %11s ",
			w.Week, cli.FormatRange(w.Range), w.Range.Days(),
			cli.FormatMoney(w.Spent, cur), cli.FormatMoney(w.DailyAverage(), cur))))
		barLen := int(w.Spent / peak * float64(barMax))
		b.WriteString(barStyle.Render(strings.Repeat("█", barLen)))
		if w.Failed {
			b.WriteString(warnStyle.Render(" ⚠ fetch failed"))
		}
		b.WriteString("\n")
	}
	b.WriteString(headStyle.Render(fmt.Sprintf("  %-4s %-25s %4s %11s", "", "Month to date", "", cli.FormatMoney(total, cur))))

	title := fmt.Sprintf("%s %d · monthly weeks", today.Month(), today.Year())
	return components.ContentCard(title, b.String(), cw)
}
