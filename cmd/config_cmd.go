// Package cmd implements the cloudburn CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/cloudburn/internal/config"
	"github.com/theirongolddev/cloudburn/internal/pipeline"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	e, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	cfg := e.cfg

	fmt.Printf("  Config file: %s\n", e.path)
	if config.Exists(e.path) {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default days: %d\n", cfg.General.DefaultDays)
	fmt.Printf("    Granularity:  %s\n", cfg.General.Granularity)
	if cfg.General.ExportDir != "" {
		fmt.Printf("    Export dir:   %s\n", cfg.General.ExportDir)
	}
	fmt.Println()

	fmt.Println("  [Source]")
	fmt.Printf("    Kind:     %s\n", cfg.Source.Kind)
	switch cfg.Source.Kind {
	case config.SourceHTTP:
		fmt.Printf("    Base URL: %s\n", cfg.Source.BaseURL)
		if key := config.GetAPIKey(cfg); key != "" {
			fmt.Printf("    API key:  %s\n", maskAPIKey(key))
		} else {
			fmt.Println("    API key:  not configured")
		}
		fmt.Printf("    Timeout:  %ds, %.1f req/s\n", cfg.Source.TimeoutSec, cfg.Source.RequestsPerSec)
	default:
		db := cfg.Source.DBPath
		if db == "" {
			db = pipeline.StorePath()
		}
		fmt.Printf("    Database: %s\n", db)
	}
	if cfg.Source.Region != "" {
		fmt.Printf("    Region:   %s\n", cfg.Source.Region)
	}
	if cfg.Source.Account != "" {
		fmt.Printf("    Account:  %s\n", cfg.Source.Account)
	}
	fmt.Printf("    Cache:    %d entries, %ds TTL\n", cfg.Source.CacheSize, cfg.Source.CacheTTLSec)
	fmt.Println()

	fmt.Println("  [Budgets]")
	if len(cfg.Budgets) == 0 {
		fmt.Println("    none")
	}
	for _, b := range cfg.Budgets {
		end := ""
		if b.EndDate != "" {
			end = " until " + b.EndDate
		}
		fmt.Printf("    %-20s %10.2f %-9s from %s%s\n", b.Name, b.Amount, b.PeriodType, b.StartDate, end)
	}
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:      %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Schedule:     %s\n", cfg.Daemon.Schedule)
	fmt.Printf("    Watch config: %v\n", cfg.Daemon.WatchConfig)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level:  %s\n", cfg.Log.Level)
	fmt.Printf("    Format: %s\n", cfg.Log.Format)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	if n := len(cfg.Pricing.Rates); n > 0 {
		fmt.Println("  [Pricing]")
		fmt.Printf("    %d rates configured\n", n)
		fmt.Println()
	}

	fmt.Println("  Run `cloudburn budget add` to add a budget.")
	return nil
}

func maskAPIKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
