package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/jobs"
	"github.com/theirongolddev/cloudburn/internal/pipeline"
	"github.com/theirongolddev/cloudburn/internal/tui"
	"github.com/theirongolddev/cloudburn/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var flagTUIGranularity string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&flagTUIGranularity, "granularity", "g", "", "Trend granularity: day, week or month")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	// The alternate screen owns the terminal, so logs go to a file.
	if err := os.MkdirAll(pipeline.DataDir(), 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	//nolint:gosec // log path lives under the user's data directory
	logf, err := os.OpenFile(filepath.Join(pipeline.DataDir(), "tui.log"), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open tui log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	e, err := loadEnvTo(logf)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	var g calendar.Granularity
	if flagTUIGranularity != "" {
		if g, err = calendar.ParseGranularity(flagTUIGranularity); err != nil {
			return err
		}
	}

	theme.SetActive(e.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		Config:      e.cfg,
		ConfigPath:  e.path,
		Source:      e.src,
		Runner:      jobs.NewRunner(8),
		Logger:      e.logger.Logger,
		Days:        flagDays,
		Granularity: g,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
