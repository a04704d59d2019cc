package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/config"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
	"github.com/theirongolddev/cloudburn/internal/tui/components"

	tea "github.com/charmbracelet/bubbletea"
)

func d(s string) calendar.Date { return calendar.MustParseDate(s) }

// dailySource bills a flat amount per day.
func dailySource(perDay float64) source.ConsumptionSource {
	return source.Func(func(_ context.Context, q source.Query) (*source.Result, error) {
		res := &source.Result{Currency: "USD"}
		for day := q.Span.From; day.Before(q.Span.To); day = day.AddDays(1) {
			res.Entries = append(res.Entries, model.ConsumptionEntry{
				ResourceType: "compute", From: day, To: day.AddDays(1), Quantity: 1, UnitPrice: perDay,
			})
		}
		return res, nil
	})
}

func testApp(t *testing.T, budgets ...config.BudgetConfig) App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Budgets = budgets
	return NewApp(Options{
		Config:     cfg,
		ConfigPath: t.TempDir() + "/config.toml",
		Source:     dailySource(10),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Days:       30,
		Today:      func() calendar.Date { return d("2024-03-15") },
	})
}

// drive runs cmd and feeds the resulting messages back until the load ends.
func drive(t *testing.T, a App, cmd tea.Cmd) App {
	t.Helper()
	for i := 0; cmd != nil && i < 100; i++ {
		msg := cmd()
		m, next := a.Update(msg)
		a = m.(App)
		if _, done := msg.(DataLoadedMsg); done {
			return a
		}
		cmd = next
	}
	t.Fatal("load did not finish")
	return a
}

func TestLoadComputesStatusesTrendAndWeeks(t *testing.T) {
	a := testApp(t, config.BudgetConfig{Name: "infra", PeriodType: "monthly", Amount: 1000, StartDate: "2024-01-01"})
	cmd := a.load(false)
	a = drive(t, a, cmd)

	if !a.loaded || a.data == nil {
		t.Fatal("app not loaded")
	}
	if len(a.data.Statuses) != 1 || a.data.Statuses[0] == nil {
		t.Fatalf("statuses = %+v, errs = %v", a.data.Statuses, a.data.StatusErrs)
	}

	ps, ok := currentPeriod(a.data.Statuses[0], d("2024-03-15"))
	if !ok {
		t.Fatal("no current period")
	}
	// The source bills every queried day, including the rest of March
	if ps.Spent != 310 {
		t.Errorf("March spent = %v, want 310", ps.Spent)
	}

	if a.data.TrendErr != nil {
		t.Fatalf("trend error: %v", a.data.TrendErr)
	}
	last := a.data.Trend.Periods[len(a.data.Trend.Periods)-1]
	if !last.Projected || !last.To.Equal(d("2024-03-31")) {
		t.Errorf("trend should project to the end of the budget period, last = %+v", last)
	}
	if len(a.data.Weeks) != 3 {
		t.Errorf("weeks up to the 15th = %d, want 3", len(a.data.Weeks))
	}
}

func TestViewRendersEveryTab(t *testing.T) {
	a := testApp(t,
		config.BudgetConfig{Name: "infra", PeriodType: "monthly", Amount: 1000, StartDate: "2024-01-01"},
		config.BudgetConfig{Name: "data", PeriodType: "quarterly", Amount: 900, StartDate: "2024-01-01"},
	)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 140, Height: 45})
	a = m.(App)
	cmd := a.load(false)
	a = drive(t, a, cmd)

	want := []string{"Current period utilization", "Current period by week", "Cost per week", "monthly weeks", "Config file"}
	for i := range components.Tabs {
		a.activeTab = i
		if out := a.View(); !strings.Contains(out, want[i]) {
			t.Errorf("tab %d view missing %q", i, want[i])
		}
	}
}

func TestFirstRunOpensForm(t *testing.T) {
	a := testApp(t)
	if !a.needSetup {
		t.Fatal("needSetup should be set without budgets")
	}
	cmd := a.load(false)
	a = drive(t, a, cmd)
	if a.form == nil {
		t.Error("form should open after the first load")
	}
}

func TestKeysChangeQuery(t *testing.T) {
	a := testApp(t, config.BudgetConfig{Name: "infra", PeriodType: "monthly", Amount: 1000, StartDate: "2024-01-01"})
	cmd := a.load(false)
	a = drive(t, a, cmd)

	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	a = m.(App)
	if a.granularity != calendar.Month {
		t.Errorf("granularity = %s, want month", a.granularity)
	}

	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	a = m.(App)
	if a.days != 60 {
		t.Errorf("days = %d, want 60", a.days)
	}

	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	a = m.(App)
	if a.activeTab != 2 {
		t.Errorf("activeTab = %d, want 2", a.activeTab)
	}
}

func TestStaleJobMessagesAreIgnored(t *testing.T) {
	a := testApp(t, config.BudgetConfig{Name: "infra", PeriodType: "monthly", Amount: 1000, StartDate: "2024-01-01"})
	m, _ := a.Update(DataLoadedMsg{JobID: "old", Data: &dashboardData{}})
	if m.(App).loaded {
		t.Error("a message from an unknown job must not mark the app loaded")
	}
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0

		for i := range components.Tabs {
			w := tabWidthForTest(i, active)
			x := pos + w/2 // midpoint inside this tab
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w + 1 // separator
		}
	}
}

func tabWidthForTest(tabIdx, activeIdx int) int {
	nameWidths := []int{
		len("Budgets"),
		len("Periods"),
		len("Trend"),
		len("Weeks"),
		len("Settings"),
	}

	w := nameWidths[tabIdx] + 2 // horizontal padding in tab renderer
	if tabIdx != activeIdx && tabIdx == 4 {
		w += 3 // inactive Settings adds "[x]"
	}
	return w
}

func TestStepWindow(t *testing.T) {
	tests := []struct{ days, dir, want int }{
		{30, 1, 60},
		{45, 1, 60},
		{365, 1, 365},
		{90, -1, 60},
		{30, -1, 30},
		{7, -1, 30},
	}
	for _, tt := range tests {
		if got := stepWindow(tt.days, tt.dir); got != tt.want {
			t.Errorf("stepWindow(%d, %d) = %d, want %d", tt.days, tt.dir, got, tt.want)
		}
	}
}

func TestBudgetLimit(t *testing.T) {
	b := model.Budget{PeriodType: model.Quarterly, Amount: 900}
	if got := budgetLimit(b, calendar.Month); got != 300 {
		t.Errorf("quarterly per month = %v, want 300", got)
	}
	if got := budgetLimit(b, calendar.Week); got != 0 {
		t.Errorf("weekly buckets should have no limit, got %v", got)
	}
}

func TestShortLabel(t *testing.T) {
	tests := []struct {
		d    string
		g    calendar.Granularity
		want string
	}{
		{"2024-03-01", calendar.Month, "Mar"},
		{"2024-03-01", calendar.Week, "Mar"},
		{"2024-03-15", calendar.Week, "W3"},
		{"2024-03-01", calendar.Day, "Mar"},
		{"2024-03-09", calendar.Day, "9"},
	}
	for _, tt := range tests {
		if got := shortLabel(d(tt.d), tt.g); got != tt.want {
			t.Errorf("shortLabel(%s, %s) = %q, want %q", tt.d, tt.g, got, tt.want)
		}
	}
}

func TestBudgetFormValues(t *testing.T) {
	v := NewBudgetFormValues(d("2024-03-15"))
	if v.StartDate != "2024-03-01" || v.PeriodType != "monthly" {
		t.Errorf("defaults = %+v", v)
	}

	v.Name = " ml training "
	v.Amount = "$12,500"
	b, err := v.Budget()
	if err != nil {
		t.Fatalf("Budget: %v", err)
	}
	if b.Name != "ml training" || b.Amount != 12500 || b.EndDate != nil {
		t.Errorf("budget = %+v", b)
	}

	v.Amount = "-1"
	if _, err := v.Budget(); err == nil {
		t.Error("negative amount should fail")
	}
}
