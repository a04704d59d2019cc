package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/cli"
	"github.com/theirongolddev/cloudburn/internal/pipeline"
	"github.com/theirongolddev/cloudburn/internal/tui/components"
	"github.com/theirongolddev/cloudburn/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderPeriodsTab(cw int) string {
	t := theme.Active
	v, ok := a.selectedView()
	if !ok {
		return a.renderEmpty(cw, "No budgets configured. Press [a] to add one.")
	}
	if v.err != nil || v.status == nil {
		msg := "no data"
		if v.err != nil {
			msg = v.err.Error()
		}
		return components.ContentCard(v.budget.Name,
			lipgloss.NewStyle().Foreground(t.Over).Background(t.Surface).Render(msg), cw)
	}

	st := v.status
	cur := a.currency()
	today := a.data.Today
	innerW := components.CardInnerWidth(cw)

	headStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	nowStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	const (
		rangeW = 25
		moneyW = 11
	)
	barW := max(innerW-2-rangeW-3*moneyW-4-8, 10)

	var rows strings.Builder
	rows.WriteString(headStyle.Render(fmt.Sprintf("  %-*s %*s %*s %*s  %s",
		rangeW, "Period", moneyW, "Budget", moneyW, "Spent", moneyW, "Remaining", "Utilization")))
	rows.WriteString("\n")

	for i, ps := range st.Periods {
		mark := spaceStyle.Render("  ")
		style := rowStyle
		if ps.Period.Range().Contains(today) {
			mark = nowStyle.Render("▸ ")
		} else if ps.Period.Start.After(today) {
			style = dimStyle
		}
		rows.WriteString(mark)
		rows.WriteString(style.Render(fmt.Sprintf("%-*s %*s %*s %*s",
			rangeW, cli.FormatRange(ps.Period.Range()),
			moneyW, cli.FormatMoney(ps.Period.BudgetAmount, cur),
			moneyW, cli.FormatMoney(ps.Spent, cur),
			moneyW, cli.FormatMoney(ps.Remaining, cur))))
		rows.WriteString(spaceStyle.Render("  "))
		rows.WriteString(components.UtilizationBar("", ps.UtilizationPercent, "", 0, barW))
		if i < len(st.Periods)-1 {
			rows.WriteString("\n")
		}
	}

	title := fmt.Sprintf("%s · %s periods", v.budget.Name, v.budget.PeriodType)
	out := components.FocusCard(title, rows.String(), cw)

	if ps, ok := currentPeriod(st, today); ok && len(ps.SubPeriods) > 0 {
		cumulative := make([]float64, len(ps.SubPeriods))
		var sub strings.Builder
		for i, sp := range ps.SubPeriods {
			cumulative[i] = sp.CumulativeSpent
			line := fmt.Sprintf("%-*s %*s  running %s",
				rangeW, cli.FormatRange(sp.Range),
				moneyW, cli.FormatMoney(sp.Spent, cur),
				cli.FormatMoney(sp.CumulativeSpent, cur))
			switch {
			case sp.Failed:
				sub.WriteString(lipgloss.NewStyle().Foreground(t.Warning).Background(t.Surface).Render(line + "  ⚠ fetch failed"))
			case sp.Range.From.After(today):
				sub.WriteString(dimStyle.Render(line))
			default:
				sub.WriteString(rowStyle.Render(line))
			}
			sub.WriteString("\n")
		}
		sub.WriteString(dimStyle.Render("cumulative ") +
			components.Sparkline(cumulative, t.ForUtilization(ps.UtilizationPercent)))

		out += "\n" + components.ContentCard("Current period by "+string(pipeline.SubGranularity(v.budget.PeriodType)), sub.String(), cw)
	}
	return out
}
