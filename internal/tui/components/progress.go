package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders a loading bar for a 0-1 fraction with its percentage.
func ProgressBar(frac float64, width int) string {
	t := theme.Active
	filled := int(frac * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	barColor := t.Cyan
	if frac >= 0.5 {
		barColor = t.Accent
	}

	filledStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", width-filled)))

	return b.String() + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%.0f%%", frac*100))
}

// ColorForPct returns the health color for a utilization percentage
// (0-100 scale, may exceed 100).
func ColorForPct(pct float64) string {
	return string(theme.Active.ForUtilization(pct))
}

// UtilizationBar renders a labeled budget utilization bar. The fill is capped
// at the bar width; the percentage is printed as is.
func UtilizationBar(label string, pct float64, detail string, labelW, barWidth int) string {
	t := theme.Active

	fill := pct / 100
	if fill < 0 {
		fill = 0
	}
	if fill > 1 {
		fill = 1
	}

	bar := progress.New(
		progress.WithSolidFill(ColorForPct(pct)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorForPct(pct))).Background(t.Surface).Bold(true)
	detailStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	out := ""
	if labelW > 0 {
		out = labelStyle.Render(fmt.Sprintf("%-*s", labelW, truncate(label, labelW))) + spaceStyle.Render(" ")
	}
	out += bar.ViewAs(fill) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%5.1f%%", pct))
	if detail != "" {
		out += spaceStyle.Render("  ") + detailStyle.Render(detail)
	}
	return out
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit || limit <= 0 {
		return s
	}
	return string(r[:limit-1]) + "…"
}
