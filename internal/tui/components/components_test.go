package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/theirongolddev/cloudburn/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	if shortLines >= tallLines {
		t.Fatal("Test setup error: short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Errorf("Joined height should match tallest card: got %d, want %d", len(lines), tallLines)
	}

	for i, line := range lines {
		if w := lipgloss.Width(line); w != 44 {
			t.Errorf("line %d width = %d, want 44", i, w)
		}
		// The padding below the short card must carry a background
		if i >= shortLines && strings.Count(line, "\x1b[") < 2 {
			t.Errorf("line %d padding is unstyled: %q", i, line)
		}
	}
}

func TestLayoutRowSumsToTotal(t *testing.T) {
	widths := LayoutRow(100, 3)
	if len(widths) != 3 || widths[0] != 34 || widths[1] != 33 || widths[2] != 33 {
		t.Errorf("LayoutRow(100, 3) = %v", widths)
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow with n=0 should be nil")
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	row := MetricCardRow([]Metric{
		{Label: "Spent", Value: "$850"},
		{Label: "Budget", Value: "$1,000", Delta: "monthly"},
	}, 61)
	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 61 {
			t.Errorf("line %d width = %d, want 61", i, w)
		}
	}
}

func TestTabVisualWidth(t *testing.T) {
	budgets := Tabs[0]
	if got := TabVisualWidth(budgets, true); got != len("Budgets")+2 {
		t.Errorf("active width = %d", got)
	}
	if got := TabVisualWidth(budgets, false); got != len("Budgets")+2 {
		t.Errorf("inactive width = %d", got)
	}
	settings := Tabs[len(Tabs)-1]
	if got := TabVisualWidth(settings, false); got != len("Settings")+5 {
		t.Errorf("inactive settings width = %d, want name + padding + [x]", got)
	}
}

func TestTabIdxByKey(t *testing.T) {
	if got := TabIdxByKey('t'); got != 2 {
		t.Errorf("TabIdxByKey('t') = %d, want 2", got)
	}
	if got := TabIdxByKey('z'); got != -1 {
		t.Errorf("TabIdxByKey('z') = %d, want -1", got)
	}
}

func TestColorForPct(t *testing.T) {
	theme.SetActive("terminal")
	defer theme.SetActive("flexoki-dark")

	tests := []struct {
		pct  float64
		want lipgloss.Color
	}{
		{0, theme.Terminal.Under},
		{79.9, theme.Terminal.Under},
		{80, theme.Terminal.Warning},
		{100, theme.Terminal.Warning},
		{100.1, theme.Terminal.Over},
	}
	for _, tt := range tests {
		if got := ColorForPct(tt.pct); got != string(tt.want) {
			t.Errorf("ColorForPct(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestUtilizationBarShowsPercent(t *testing.T) {
	out := UtilizationBar("infra", 125, "$1,250 / $1,000", 8, 20)
	plain := stripANSI(out)
	if !strings.Contains(plain, "125.0%") {
		t.Errorf("missing percentage: %q", plain)
	}
	if !strings.HasPrefix(plain, "infra   ") {
		t.Errorf("label not padded: %q", plain)
	}
}

func TestBarChartHeightAndLabels(t *testing.T) {
	bars := []Bar{
		{Label: "W1", Value: 100},
		{Label: "W2", Value: 150},
		{Label: "W3", Value: 120, Projected: true},
	}
	out := BarChart(bars, 140, 40, 8)
	lines := strings.Split(out, "\n")
	last := stripANSI(lines[len(lines)-1])
	if !strings.Contains(last, "W1") || !strings.Contains(last, "W3") {
		t.Errorf("label row = %q", last)
	}
	if !strings.Contains(stripANSI(out), "┄") {
		t.Error("limit line not drawn")
	}
}

func TestBarChartFallsBackToSparkline(t *testing.T) {
	out := stripANSI(BarChart([]Bar{{Value: 1}, {Value: 2}}, 0, 10, 2))
	if out != "▄█" {
		t.Errorf("narrow chart = %q, want sparkline", out)
	}
}

func TestFitBarsSamples(t *testing.T) {
	bars := make([]Bar, 60)
	for i := range bars {
		bars[i] = Bar{Value: float64(i)}
	}
	got := fitBars(bars, 30)
	if len(got) != 10 {
		t.Fatalf("fitBars len = %d, want 10", len(got))
	}
	if got[0].Value != 0 || got[len(got)-1].Value != 59 {
		t.Errorf("sampling should keep both ends: %v .. %v", got[0].Value, got[len(got)-1].Value)
	}
}

func TestFormatChartLabel(t *testing.T) {
	tests := map[float64]string{
		0:       "0",
		2.5:     "2.5",
		500:     "500",
		2000:    "2k",
		2500:    "2.5k",
		3000000: "3M",
	}
	for v, want := range tests {
		if got := formatChartLabel(v); got != want {
			t.Errorf("formatChartLabel(%v) = %q, want %q", v, got, want)
		}
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEsc = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
