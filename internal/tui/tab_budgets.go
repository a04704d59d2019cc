package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/cli"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/tui/components"
	"github.com/theirongolddev/cloudburn/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// currency is the display currency of the configured source.
func (a App) currency() string {
	if c := a.cfg.Source.Currency; c != "" {
		return c
	}
	return "USD"
}

func (a App) renderBudgetsTab(cw int) string {
	t := theme.Active
	views := a.budgetViews()
	if len(views) == 0 {
		return a.renderEmpty(cw, "No budgets configured. Press [a] to add one.")
	}

	today := a.data.Today
	cur := a.currency()

	var periodBudget, periodSpent float64
	over, warn := 0, 0
	for _, v := range views {
		if v.status == nil {
			continue
		}
		ps, ok := currentPeriod(v.status, today)
		if !ok {
			continue
		}
		periodBudget += ps.Period.BudgetAmount
		periodSpent += ps.Spent
		switch {
		case ps.UtilizationPercent > 100:
			over++
		case ps.UtilizationPercent >= 80:
			warn++
		}
	}

	overColor := t.Under
	if over > 0 {
		overColor = t.Over
	} else if warn > 0 {
		overColor = t.Warning
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Budgets", Value: fmt.Sprintf("%d", len(views))},
		{Label: "Current periods", Value: cli.FormatMoney(periodBudget, cur), Delta: "budgeted"},
		{Label: "Spent", Value: cli.FormatMoney(periodSpent, cur),
			Delta: cli.FormatPercent(model.Utilization(periodSpent, periodBudget)) + " used",
			Color: t.ForUtilization(model.Utilization(periodSpent, periodBudget))},
		{Label: "Over / warning", Value: fmt.Sprintf("%d / %d", over, warn), Color: overColor},
	}, cw))
	b.WriteString("\n")

	// Utilization of the current period, one line per budget
	labelW := 4
	for _, v := range views {
		labelW = max(labelW, min(len([]rune(v.budget.Name)), 24))
	}
	innerW := components.CardInnerWidth(cw)
	barW := max(innerW-labelW-2-8-36, 10)

	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	errStyle := lipgloss.NewStyle().Foreground(t.Over).Background(t.Surface)
	markStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var rows strings.Builder
	for i, v := range views {
		mark := spaceStyle.Render("  ")
		if i == a.selected {
			mark = markStyle.Render("▸ ")
		}
		rows.WriteString(mark)

		switch {
		case v.err != nil:
			rows.WriteString(mutedStyle.Render(fmt.Sprintf("%-*s ", labelW, truncStr(v.budget.Name, labelW))))
			rows.WriteString(errStyle.Render(truncStr(v.err.Error(), innerW-labelW-3)))
		case v.status == nil:
			rows.WriteString(mutedStyle.Render(v.budget.Name))
		default:
			ps, ok := currentPeriod(v.status, today)
			if !ok {
				rows.WriteString(mutedStyle.Render(fmt.Sprintf("%-*s ", labelW, truncStr(v.budget.Name, labelW))))
				rows.WriteString(mutedStyle.Render("no active period"))
				break
			}
			detail := fmt.Sprintf("%s / %s · %dd left",
				cli.FormatMoney(ps.Spent, cur),
				cli.FormatMoney(ps.Period.BudgetAmount, cur),
				today.DaysUntil(ps.Period.End))
			rows.WriteString(components.UtilizationBar(v.budget.Name, ps.UtilizationPercent, detail, labelW, barW))
		}
		if i < len(views)-1 {
			rows.WriteString("\n")
		}
	}
	b.WriteString(components.ContentCard("Current period utilization", rows.String(), cw))
	b.WriteString("\n")

	if v, ok := a.selectedView(); ok {
		b.WriteString(a.renderBudgetDetail(v, cw))
	}
	return b.String()
}

// renderBudgetDetail summarizes the selected budget over the whole window.
func (a App) renderBudgetDetail(v budgetView, cw int) string {
	t := theme.Active
	cur := a.currency()
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Warning).Background(t.Surface)

	end := "open-ended"
	if v.budget.EndDate != nil {
		end = "until " + v.budget.EndDate.String()
	}

	lines := []string{
		labelStyle.Render("Recurrence  ") + valueStyle.Render(fmt.Sprintf("%s %s from %s, %s",
			cli.FormatMoney(v.budget.Amount, cur), v.budget.PeriodType, v.budget.StartDate, end)),
	}
	if st := v.status; st != nil {
		lines = append(lines,
			labelStyle.Render("Window      ")+valueStyle.Render(fmt.Sprintf("%s (%d periods)",
				cli.FormatRange(calendar.DateRange{From: st.From, To: st.To}), len(st.Periods))),
			labelStyle.Render("Spent       ")+valueStyle.Render(fmt.Sprintf("%s of %s (%s), %s remaining",
				cli.FormatMoney(st.TotalSpent, cur), cli.FormatMoney(st.TotalBudget, cur),
				cli.FormatPercent(st.UtilizationPercent), cli.FormatMoney(st.TotalRemaining, cur))),
		)
		if st.FailedFetches > 0 {
			lines = append(lines, warnStyle.Render(fmt.Sprintf(
				"⚠ %d sub-period fetches failed and count as zero", st.FailedFetches)))
		}
	}
	return components.FocusCard(v.budget.Name, strings.Join(lines, "\n"), cw)
}

func (a App) renderEmpty(cw int, msg string) string {
	t := theme.Active
	body := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(msg)
	if a.loadErr != nil {
		body += "\n" + lipgloss.NewStyle().Foreground(t.Over).Background(t.Surface).Render(a.loadErr.Error())
	}
	return components.ContentCard("", body, cw)
}
