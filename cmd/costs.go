package cmd

import (
	"context"
	"fmt"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/cli"
	"github.com/theirongolddev/cloudburn/internal/pipeline"

	"github.com/spf13/cobra"
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Cost breakdown by resource type over the last --days",
	Args:  cobra.NoArgs,
	RunE:  runCosts,
}

func init() {
	rootCmd.AddCommand(costsCmd)
}

func runCosts(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	days := e.days()
	today := calendar.Today()
	window := calendar.DateRange{From: today.AddDays(-days), To: today.AddDays(-1)}

	bd, err := pipeline.ComputeBreakdown(context.Background(), e.src, window,
		pipeline.WithLogger(e.logger.Logger),
		pipeline.WithRegion(e.region()),
		pipeline.WithAccount(e.account()),
		pipeline.WithProgress(progress("Fetching months")),
	)
	if err != nil {
		return err
	}
	if bd.EntryCount == 0 {
		fmt.Printf("\n  No consumption between %s.\n", cli.FormatRange(window))
		return nil
	}

	currency := e.currency()
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("COST BREAKDOWN  Last %dd", days)))
	fmt.Println()

	rows := make([][]string, 0, len(bd.Resources)+2)
	for _, rs := range bd.Resources {
		trend := "="
		switch rs.TrendDirection {
		case 1:
			trend = cli.Warn("▲")
		case -1:
			trend = cli.Muted("▼")
		}
		rows = append(rows, []string{
			rs.ResourceType,
			cli.FormatQuantity(rs.Quantity),
			cli.FormatMoney(rs.Cost, currency),
			cli.FormatPercent(rs.SharePercent),
			cli.FormatDelta(rs.Cost, rs.PreviousCost, currency),
			trend,
		})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{
		"TOTAL", "",
		cli.FormatMoney(bd.TotalCost, currency), "",
		cli.FormatDelta(bd.TotalCost, bd.PreviousCost, currency), "",
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "By Resource Type",
		Headers: []string{"Resource", "Quantity", "Cost", "Share", "vs prev", ""},
		Rows:    rows,
	}))

	// Period comparison
	if bd.PreviousCost > 0 {
		peak := max(bd.TotalCost, bd.PreviousCost)
		fmt.Printf("  Period Comparison (%s)\n", cli.FormatChange(bd.ChangePercent))
		fmt.Printf("  This %dd  %s  %s\n", days,
			cli.RenderHorizontalBar(bd.TotalCost, peak, 30, false),
			cli.FormatMoney(bd.TotalCost, currency))
		fmt.Printf("  Prev %dd  %s  %s\n\n", days,
			cli.RenderHorizontalBar(bd.PreviousCost, peak, 30, false),
			cli.FormatMoney(bd.PreviousCost, currency))
	}

	daily := make([]float64, len(bd.Days))
	for i, d := range bd.Days {
		daily[i] = d.Cost
	}
	fmt.Printf("  Daily   %s\n", cli.RenderSparkline(daily))
	fmt.Printf("  %s/day over %d active days\n", cli.FormatMoney(bd.CostPerDay, currency), bd.ActiveDays)
	if bd.FailedFetches > 0 {
		fmt.Printf("  %s\n", cli.Warn(fmt.Sprintf("%d month fetches failed and were counted as zero", bd.FailedFetches)))
	}
	fmt.Println()
	return nil
}
