package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/config"
	"github.com/theirongolddev/cloudburn/internal/tui/components"
	"github.com/theirongolddev/cloudburn/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)

	row := func(label, value, key string) string {
		s := labelStyle.Render(fmt.Sprintf("%-16s", label)) + valueStyle.Render(value)
		if key != "" {
			s += labelStyle.Render("  ") + keyStyle.Render("["+key+"]")
		}
		return s
	}

	src := a.cfg.Source
	location := src.DBPath
	if src.Kind == config.SourceHTTP {
		location = src.BaseURL
	}
	if location == "" {
		location = "(default)"
	}
	apiKey := "not set"
	if config.GetAPIKey(a.cfg) != "" {
		apiKey = "set"
	}

	sourceRows := []string{
		row("Kind", src.Kind, ""),
		row("Location", location, ""),
		row("Region", orDash(src.Region), ""),
		row("Account", orDash(src.Account), ""),
	}
	if src.Kind == config.SourceHTTP {
		sourceRows = append(sourceRows,
			row("API key", apiKey, ""),
			row("Rate limit", fmt.Sprintf("%g req/s", src.RequestsPerSec), ""))
	}
	sourceRows = append(sourceRows, row("Cache", fmt.Sprintf("%d entries, %ds TTL", src.CacheSize, src.CacheTTLSec), ""))

	viewRows := []string{
		row("Window", fmt.Sprintf("%d days", a.days), "+/-"),
		row("Granularity", string(a.granularity), "g"),
		row("Resource type", orDash(a.resourceType), "/"),
		row("Theme", t.Name, "T"),
		row("Auto-refresh", fmt.Sprintf("%s (every %s)", onOff(a.autoRefresh), a.refreshInterval), "R"),
		row("Config file", a.configPathOrDefault(), ""),
	}

	widths := components.LayoutRow(cw, 2)
	if a.isCompactLayout() {
		return components.ContentCard("Source", strings.Join(sourceRows, "\n"), cw) + "\n" +
			components.ContentCard("View", strings.Join(viewRows, "\n"), cw)
	}
	return components.CardRow([]string{
		components.ContentCard("Source", strings.Join(sourceRows, "\n"), widths[0]),
		components.ContentCard("View", strings.Join(viewRows, "\n"), widths[1]),
	})
}

func (a App) configPathOrDefault() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.ConfigPath()
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
