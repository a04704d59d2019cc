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

const maxChangesShown = 6

func (a App) renderTrendTab(cw, h int) string {
	t := theme.Active
	if a.data == nil {
		return a.renderEmpty(cw, "No data loaded.")
	}
	if a.data.TrendErr != nil {
		return components.ContentCard("Trend",
			lipgloss.NewStyle().Foreground(t.Over).Background(t.Surface).Render(a.data.TrendErr.Error()), cw)
	}
	tr := a.data.Trend
	if tr == nil || len(tr.Periods) == 0 {
		return a.renderEmpty(cw, "No trend periods in this window.")
	}

	cur := a.currency()
	observed := tr.Observed()
	var projectedCost float64
	for _, p := range tr.Periods {
		if p.Projected {
			projectedCost += p.Cost
		}
	}

	dirColor := t.TextPrimary
	switch tr.Direction {
	case model.TrendIncreasing:
		dirColor = t.Warning
	case model.TrendDecreasing:
		dirColor = t.Under
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Direction", Value: string(tr.Direction), Color: dirColor},
		{Label: "Growth / period", Value: cli.FormatChange(tr.GrowthRate)},
		{Label: "Historical avg", Value: cli.FormatMoney(tr.HistoricalAverage, cur),
			Delta: fmt.Sprintf("%d observed", len(observed))},
		{Label: "Projected", Value: cli.FormatMoney(projectedCost, cur),
			Delta: fmt.Sprintf("%d periods", len(tr.Periods)-len(observed)), Color: t.Projected},
	}, cw))
	b.WriteString("\n")

	bars := make([]components.Bar, len(tr.Periods))
	for i, p := range tr.Periods {
		bars[i] = components.Bar{Label: shortLabel(p.From, tr.Granularity), Value: p.Cost, Projected: p.Projected}
	}
	limit := 0.0
	title := fmt.Sprintf("Cost per %s", tr.Granularity)
	if tb := a.data.TrendBudget; tb != nil {
		limit = budgetLimit(*tb, tr.Granularity)
		title += " · " + tb.Name
	}
	if a.resourceType != "" {
		title += " · " + a.resourceType
	}

	chartH := max(h-18, 6)
	innerW := components.CardInnerWidth(cw)
	legend := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Render("█ observed  ") +
		lipgloss.NewStyle().Foreground(t.Projected).Background(t.Surface).Render("█ projected")
	if limit > 0 {
		legend += lipgloss.NewStyle().Foreground(t.Over).Background(t.Surface).Render("  ┄ budget " + cli.FormatMoney(limit, cur))
	}
	b.WriteString(components.ContentCard(title, components.BarChart(bars, limit, innerW, chartH)+"\n"+legend, cw))
	b.WriteString("\n")

	if len(tr.PeriodChanges) > 0 {
		b.WriteString(components.ContentCard("Recent changes", a.renderChanges(tr.PeriodChanges), cw))
	}
	if tr.FailedFetches > 0 {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Warning).Render(
			fmt.Sprintf(" ⚠ %d period fetches failed and count as zero", tr.FailedFetches)))
	}
	return b.String()
}

func (a App) renderChanges(changes []model.PeriodChange) string {
	t := theme.Active
	cur := a.currency()
	start := max(0, len(changes)-maxChangesShown)

	upStyle := lipgloss.NewStyle().Foreground(t.Warning).Background(t.Surface)
	downStyle := lipgloss.NewStyle().Foreground(t.Under).Background(t.Surface)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	lines := make([]string, 0, maxChangesShown)
	for _, c := range changes[start:] {
		style := downStyle
		if c.ChangeAmount > 0 {
			style = upStyle
		}
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-14s → %-14s ", c.FromPeriod, c.ToPeriod))+
			style.Render(fmt.Sprintf("%8s  %s",
				cli.FormatChange(c.ChangePercent), cli.FormatDelta(c.ChangeAmount, 0, cur))))
	}
	return strings.Join(lines, "\n")
}

// shortLabel is a compact axis label for the bucket starting at d.
func shortLabel(d calendar.Date, g calendar.Granularity) string {
	switch g {
	case calendar.Month:
		return d.Time().Format("Jan")
	case calendar.Week:
		if wk := calendar.WeekOfMonth(d); wk > 1 {
			return fmt.Sprintf("W%d", wk)
		}
		return d.Time().Format("Jan")
	default:
		if d.Day() == 1 {
			return d.Time().Format("Jan")
		}
		return fmt.Sprintf("%d", d.Day())
	}
}

// budgetLimit converts a budget amount to one bucket of g. Only month buckets
// line up with budget periods; finer buckets get no line.
func budgetLimit(b model.Budget, g calendar.Granularity) float64 {
	if g != calendar.Month {
		return 0
	}
	return b.Amount / float64(b.PeriodType.Months())
}
