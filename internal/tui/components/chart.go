package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Bar is one column of a BarChart.
type Bar struct {
	Label     string
	Value     float64
	Projected bool
}

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		idx = max(0, min(idx, len(blocks)-1))
		buf.WriteRune(blocks[idx])
	}

	return style.Render(buf.String())
}

// BarChart renders a bar chart with a labeled Y axis. Projected bars use the
// theme's projection color. A positive limit draws a dashed line at that value
// across empty cells.
func BarChart(bars []Bar, limit float64, width, height int) string {
	if len(bars) == 0 {
		return ""
	}
	t := theme.Active
	if width < 15 || height < 3 {
		values := make([]float64, len(bars))
		for i, b := range bars {
			values[i] = b.Value
		}
		return Sparkline(values, t.Accent)
	}

	maxVal := limit
	for _, b := range bars {
		maxVal = math.Max(maxVal, b.Value)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	tickStep := chartTickStep(maxVal)
	maxIntervals := max(height/2, 2)
	for int(math.Ceil(maxVal/tickStep)) > maxIntervals {
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	numIntervals := max(int(math.Round(ceiling/tickStep)), 1)
	rowsPerTick := max(height/numIntervals, 2)
	chartH := rowsPerTick * numIntervals

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	tickLabels := make(map[int]string, numIntervals)
	for i := 1; i <= numIntervals; i++ {
		tickLabels[i*rowsPerTick] = formatChartLabel(tickStep * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)
	bars = fitBars(bars, chartW)
	n := len(bars)

	gap := 1
	if n <= 1 {
		gap = 0
	}
	barW := chartW
	if n > 1 {
		barW = (chartW - (n - 1)) / n
	}
	barW = min(max(barW, 2), 6)
	axisLen := n*barW + max(0, n-1)*gap

	limitRow := -1
	if limit > 0 {
		limitRow = int(math.Round(limit / ceiling * float64(chartH)))
	}

	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Background(t.Surface)
	limitStyle := lipgloss.NewStyle().Foreground(t.Over).Background(t.Surface)

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		observedColor := t.Accent
		if float64(row)/float64(chartH) > 0.8 {
			observedColor = t.AccentBright
		}

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, tickLabels[row])))
		b.WriteString(axisStyle.Render("│"))

		for i, bar := range bars {
			if i > 0 && gap > 0 {
				if row == limitRow {
					b.WriteString(limitStyle.Render(strings.Repeat("┄", gap)))
				} else {
					b.WriteString(emptyStyle.Render(strings.Repeat(" ", gap)))
				}
			}
			color := observedColor
			if bar.Projected {
				color = t.Projected
			}
			barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

			switch {
			case bar.Value >= rowTop:
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case bar.Value > rowBottom:
				idx := int((bar.Value - rowBottom) / (rowTop - rowBottom) * 8)
				idx = max(1, min(idx, 8))
				b.WriteString(barStyle.Render(strings.Repeat(string(blocks[idx]), barW)))
			case row == limitRow:
				b.WriteString(limitStyle.Render(strings.Repeat("┄", barW)))
			default:
				b.WriteString(emptyStyle.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└" + strings.Repeat("─", axisLen)))

	if labels := axisLabels(bars, barW, gap, axisLen); labels != "" {
		b.WriteString("\n")
		b.WriteString(emptyStyle.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(labels))
	}

	return b.String()
}

// fitBars samples bars down so each keeps at least two columns plus a gap.
func fitBars(bars []Bar, chartW int) []Bar {
	n := len(bars)
	if n <= 1 || (chartW-(n-1))/n >= 2 {
		return bars
	}
	maxN := max((chartW+1)/3, 2)
	sampled := make([]Bar, maxN)
	for i := range sampled {
		sampled[i] = bars[i*(n-1)/(maxN-1)]
	}
	return sampled
}

// axisLabels lays out bar labels under the axis without overlap. The last
// label is always shown when it fits.
func axisLabels(bars []Bar, barW, gap, axisLen int) string {
	n := len(bars)
	if n == 0 || bars[0].Label == "" {
		return ""
	}
	buf := []byte(strings.Repeat(" ", axisLen))

	labelStep := max(1, (n*8)/(axisLen+1))
	lastEnd := -1
	for i := 0; i < n; i += labelStep {
		pos := i * (barW + gap)
		lbl := bars[i].Label
		end := pos + len(lbl)
		if pos <= lastEnd {
			continue
		}
		if end > axisLen {
			end = axisLen
			if end-pos < 3 {
				continue
			}
			lbl = lbl[:end-pos]
		}
		copy(buf[pos:end], lbl)
		lastEnd = end + 1
	}
	if n > 1 {
		lbl := bars[n-1].Label
		pos := (n - 1) * (barW + gap)
		if pos+len(lbl) > axisLen {
			pos = axisLen - len(lbl)
		}
		if pos >= 0 && pos > lastEnd {
			copy(buf[pos:pos+len(lbl)], lbl)
		}
	}
	return strings.TrimRight(string(buf), " ")
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(v float64) string {
	switch {
	case v >= 1e6:
		return trimZero(fmt.Sprintf("%.1f", v/1e6)) + "M"
	case v >= 1e3:
		return trimZero(fmt.Sprintf("%.1f", v/1e3)) + "k"
	case v == math.Trunc(v):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}
