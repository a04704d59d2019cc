// Package tui provides the interactive Bubble Tea dashboard for cloudburn.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/config"
	"github.com/theirongolddev/cloudburn/internal/jobs"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
	"github.com/theirongolddev/cloudburn/internal/tui/components"
	"github.com/theirongolddev/cloudburn/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Options wires the dashboard to its collaborators.
type Options struct {
	Config     config.Config
	ConfigPath string
	Source     source.ConsumptionSource
	Runner     *jobs.Runner
	Logger     *slog.Logger

	// Days and Granularity override the config defaults when set.
	Days        int
	Granularity calendar.Granularity

	// Today defaults to calendar.Today.
	Today func() calendar.Date
}

// App is the root Bubble Tea model.
type App struct {
	cfg        config.Config
	configPath string
	src        source.ConsumptionSource
	runner     *jobs.Runner
	logger     *slog.Logger
	today      func() calendar.Date

	// Data
	data     *dashboardData
	loaded   bool
	loadTime time.Duration
	loadErr  error
	job      *jobs.Job

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	selected  int

	// Query state
	days         int
	granularity  calendar.Granularity
	resourceType string

	// Trend filter input
	filtering   bool
	filterInput textinput.Model

	// Add-budget form, also shown on first run
	form      *huh.Form
	formVals  *BudgetFormValues
	needSetup bool

	// Loading
	spinner     spinner.Model
	progress    int
	progressMax int

	// One-line feedback in the status bar
	message    string
	messageErr bool
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5

	defaultRefreshInterval = 5 * time.Minute
)

// windowSteps are the look-back windows cycled with + and -.
var windowSteps = []int{30, 60, 90, 180, 365}

// NewApp creates the dashboard. It does not start loading until Init.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	days := opts.Days
	if days <= 0 {
		days = opts.Config.General.DefaultDays
	}
	if days <= 0 {
		days = 90
	}
	g := opts.Granularity
	if !g.Valid() {
		g = calendar.Granularity(opts.Config.General.Granularity)
	}
	if !g.Valid() {
		g = calendar.Week
	}
	today := opts.Today
	if today == nil {
		today = calendar.Today
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runner := opts.Runner
	if runner == nil {
		runner = jobs.NewRunner(8)
	}

	ti := textinput.New()
	ti.Placeholder = "resource type, e.g. compute"
	ti.Prompt = "filter: "
	ti.CharLimit = 64
	ti.Width = 40

	return App{
		cfg:             opts.Config,
		configPath:      opts.ConfigPath,
		src:             opts.Source,
		runner:          runner,
		logger:          logger,
		today:           today,
		refreshInterval: defaultRefreshInterval,
		days:            days,
		granularity:     g,
		filterInput:     ti,
		spinner:         sp,
		needSetup:       len(opts.Config.Budgets) == 0,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, tickCmd(), a.load(false))
}

// load starts a dashboard load. An invalid budget list loads no budgets and
// is reported in the status bar.
func (a *App) load(background bool) tea.Cmd {
	if a.job != nil {
		a.job.Cancel()
	}
	budgets, err := a.cfg.BudgetList()
	if err != nil {
		budgets = nil
	}
	if a.selected >= len(budgets) {
		a.selected = max(0, len(budgets)-1)
	}
	if background {
		a.refreshing = true
	} else {
		a.progress, a.progressMax = 0, 0
	}

	req := loadRequest{
		src:          a.src,
		logger:       a.logger,
		budgets:      budgets,
		selected:     a.selected,
		days:         a.days,
		granularity:  a.granularity,
		resourceType: a.resourceType,
		region:       a.cfg.Source.Region,
		account:      a.cfg.Source.Account,
		today:        a.today(),
		configErr:    err,
	}
	return startLoadCmd(a.runner, req, background)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.form != nil {
			a.form = a.form.WithWidth(min(msg.Width, 80)).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.form != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.moveSelection(-1)
		case tea.MouseButtonWheelDown:
			a.moveSelection(1)
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case jobStartedMsg:
		a.job = msg.job
		return a, waitForJob(msg.job, msg.background)

	case ProgressMsg:
		if a.job == nil || msg.JobID != a.job.ID {
			return a, nil
		}
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForJob(a.job, a.refreshing)

	case DataLoadedMsg:
		if a.job == nil || msg.JobID != a.job.ID {
			return a, nil
		}
		a.job = nil
		a.refreshing = false
		a.lastRefresh = time.Now()
		a.loadTime = msg.LoadTime
		a.loadErr = msg.Err
		if msg.Data != nil {
			a.data = msg.Data
		}
		if !a.loaded {
			a.loaded = true
			if a.needSetup {
				cmd := a.openForm()
				return a, cmd
			}
		}
		switch {
		case msg.Err != nil:
			a.setError(msg.Err)
		case a.data != nil && a.data.ConfigErr != nil:
			a.setError(fmt.Errorf("config: %w", a.data.ConfigErr))
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && a.job == nil && a.form == nil &&
			time.Since(a.lastRefresh) >= a.refreshInterval {
			cmds = append(cmds, a.load(true))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward everything else (cursor blinks, etc.) to the open form
	if a.form != nil {
		return a.updateForm(msg)
	}
	if a.filtering {
		var cmd tea.Cmd
		a.filterInput, cmd = a.filterInput.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if a.form != nil {
		return a.updateForm(msg)
	}

	if !a.loaded {
		if key == "q" {
			return a, tea.Quit
		}
		return a, nil
	}

	if a.filtering {
		return a.updateFilter(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "left", "h":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "l":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "j", "down":
		a.moveSelection(1)
		return a, nil
	case "k", "up":
		a.moveSelection(-1)
		return a, nil
	case "enter":
		// Recompute the trend against the newly selected budget
		cmd := a.load(true)
		return a, cmd
	case "r":
		a.message = ""
		cmd := a.load(true)
		return a, cmd
	case "R":
		a.autoRefresh = !a.autoRefresh
		a.setMessage(fmt.Sprintf("auto-refresh %s", onOff(a.autoRefresh)))
		return a, nil
	case "a":
		cmd := a.openForm()
		return a, cmd
	case "g":
		a.granularity = nextGranularity(a.granularity)
		a.setMessage("granularity: " + string(a.granularity))
		cmd := a.load(true)
		return a, cmd
	case "+", "=":
		a.days = stepWindow(a.days, 1)
		a.setMessage(fmt.Sprintf("window: %d days", a.days))
		cmd := a.load(true)
		return a, cmd
	case "-":
		a.days = stepWindow(a.days, -1)
		a.setMessage(fmt.Sprintf("window: %d days", a.days))
		cmd := a.load(true)
		return a, cmd
	case "/":
		a.filtering = true
		a.filterInput.SetValue(a.resourceType)
		cmd := a.filterInput.Focus()
		return a, cmd
	case "T":
		next := theme.Next()
		theme.SetActive(next.Name)
		a.cfg.Appearance.Theme = next.Name
		a.saveConfig("theme: " + next.Name)
		return a, nil
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

// updateFilter handles keys while the resource-type filter is focused.
func (a App) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.filtering = false
		a.filterInput.Blur()
		a.resourceType = strings.TrimSpace(a.filterInput.Value())
		cmd := a.load(true)
		return a, cmd
	case "esc":
		a.filtering = false
		a.filterInput.Blur()
		return a, nil
	}
	var cmd tea.Cmd
	a.filterInput, cmd = a.filterInput.Update(msg)
	return a, cmd
}

func (a *App) openForm() tea.Cmd {
	a.formVals = NewBudgetFormValues(a.today())
	a.form = NewBudgetForm(a.cfg, a.formVals)
	if a.width > 0 {
		a.form = a.form.WithWidth(min(a.width, 80)).WithHeight(a.height)
	}
	return a.form.Init()
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		vals := *a.formVals
		a.form, a.formVals = nil, nil
		a.needSetup = false

		b, err := vals.Budget()
		if err == nil {
			err = a.cfg.AddBudget(b)
		}
		if err != nil {
			a.setError(err)
			return a, nil
		}
		a.selected = len(a.cfg.Budgets) - 1
		a.saveConfig("added budget " + b.Name)
		cmd := a.load(true)
		return a, cmd

	case huh.StateAborted:
		a.form, a.formVals = nil, nil
		a.needSetup = false
		return a, nil
	}

	return a, cmd
}

func (a *App) saveConfig(okMsg string) {
	if err := config.SaveTo(a.configPath, a.cfg); err != nil {
		a.setError(fmt.Errorf("saving config: %w", err))
		return
	}
	a.setMessage(okMsg)
}

func (a *App) setMessage(s string) {
	a.message, a.messageErr = s, false
}

func (a *App) setError(err error) {
	a.message, a.messageErr = err.Error(), true
}

func (a *App) moveSelection(delta int) {
	if a.data == nil || len(a.data.Budgets) == 0 {
		return
	}
	a.selected = max(0, min(a.selected+delta, len(a.data.Budgets)-1))
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.form != nil {
		return a.viewForm()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  cloudburn needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewForm() string {
	t := theme.Active
	title := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render("◈ cloudburn")
	hint := ""
	if a.needSetup {
		hint = lipgloss.NewStyle().Foreground(t.TextMuted).Render("  No budgets configured yet. Add one to get started.")
	}
	body := title + hint + "\n\n" + a.form.View()
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, body)
}

func (a App) viewLoading() string {
	t := theme.Active
	w := a.width
	h := a.height

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ cloudburn"))
	b.WriteString(subtitleStyle.Render(" · Budget & Trend Analytics"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := max(min(40, w-30), 20)
		frac := float64(a.progress) / float64(a.progressMax)
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Computing budgets and trends\n\n"))
		b.WriteString(components.ProgressBar(frac, barW))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(fmt.Sprintf("%d", a.progress)))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(fmt.Sprintf("%d", a.progressMax)))
		b.WriteString(subtitleStyle.Render(" steps"))
	} else {
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Fetching consumption..."))
	}

	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"b p t w x", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Select budget"},
			{"Enter", "Trend for selected budget"},
		}},
		{"Query", []struct{ key, desc string }{
			{"g", "Cycle granularity"},
			{"+ -", "Widen / narrow window"},
			{"/", "Filter trend by resource type"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"a", "Add budget"},
			{"r", "Refresh data"},
			{"R", "Toggle auto-refresh"},
			{"T", "Next theme"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(s.title))
		b.WriteString("\n")
		for _, bind := range s.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tab bar + query pill
	pillStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	pill := pillStyle.Render(" ") + accentStyle.Render(fmt.Sprintf("%dd", a.days)) +
		pillStyle.Render(" │ ") + accentStyle.Render(string(a.granularity))
	if a.resourceType != "" {
		pill += pillStyle.Render(" │ ") + accentStyle.Render(a.resourceType)
	}
	if region := a.cfg.Source.Region; region != "" {
		pill += pillStyle.Render(" │ ") + accentStyle.Render(region)
	}
	if a.data != nil {
		pill += pillStyle.Render(" │ today ") + accentStyle.Render(a.data.Today.String())
	}
	pill += pillStyle.Render(" ")

	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(pill)
	if a.filtering {
		header += "\n" + lipgloss.NewStyle().Background(t.Surface).Width(w).Render(" "+a.filterInput.View())
	}

	// 2. Status bar
	statusBar := components.RenderStatusBar(w, components.StatusInfo{
		DataAge:     fmt.Sprintf("%.1fs", a.loadTime.Seconds()),
		Refreshing:  a.refreshing,
		AutoRefresh: a.autoRefresh,
		Message:     a.message,
		IsError:     a.messageErr,
	})

	// 3. Content zone height
	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	// 4. Tab content
	var content string
	switch a.activeTab {
	case 0:
		content = a.renderBudgetsTab(cw)
	case 1:
		content = a.renderPeriodsTab(cw)
	case 2:
		content = a.renderTrendTab(cw, contentH)
	case 3:
		content = a.renderWeeksTab(cw)
	case 4:
		content = a.renderSettingsTab(cw)
	}

	// 5. Truncate + pad to exactly contentH lines, fill backgrounds
	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Helpers ────────────────────────────────────────────────────

// budgetView is one budget with the outcome of its status computation.
type budgetView struct {
	budget model.Budget
	status *model.BudgetStatus
	err    error
}

// budgetViews pairs every loaded budget with its status.
func (a App) budgetViews() []budgetView {
	if a.data == nil {
		return nil
	}
	out := make([]budgetView, len(a.data.Budgets))
	for i, b := range a.data.Budgets {
		out[i] = budgetView{budget: b, status: a.data.Statuses[i], err: a.data.StatusErrs[i]}
	}
	return out
}

// selectedView returns the selected budget, if any are loaded.
func (a App) selectedView() (budgetView, bool) {
	views := a.budgetViews()
	if a.selected < 0 || a.selected >= len(views) {
		return budgetView{}, false
	}
	return views[a.selected], true
}

func nextGranularity(g calendar.Granularity) calendar.Granularity {
	switch g {
	case calendar.Day:
		return calendar.Week
	case calendar.Week:
		return calendar.Month
	default:
		return calendar.Day
	}
}

// stepWindow moves days to the next or previous entry of windowSteps.
func stepWindow(days, dir int) int {
	if dir > 0 {
		for _, s := range windowSteps {
			if s > days {
				return s
			}
		}
		return windowSteps[len(windowSteps)-1]
	}
	for i := len(windowSteps) - 1; i >= 0; i-- {
		if windowSteps[i] < days {
			return windowSteps[i]
		}
	}
	return windowSteps[0]
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow RenderTabBar: tabs separated by one column.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
