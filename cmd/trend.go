package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/cli"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/pipeline"
	"github.com/theirongolddev/cloudburn/internal/trend"

	"github.com/spf13/cobra"
)

var (
	flagTrendFrom         string
	flagTrendTo           string
	flagTrendGranularity  string
	flagTrendResourceType string
	flagTrendBudget       string
	flagTrendUntil        string
	flagTrendJSON         bool
)

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show the cost trend per day, week or month with a projection",
	Args:  cobra.NoArgs,
	RunE:  runTrend,
}

func init() {
	trendCmd.Flags().StringVar(&flagTrendFrom, "from", "", "Series start YYYY-MM-DD (default today minus --days)")
	trendCmd.Flags().StringVar(&flagTrendTo, "to", "", "Series end YYYY-MM-DD; periods from today on are projected (default end of this month)")
	trendCmd.Flags().StringVarP(&flagTrendGranularity, "granularity", "g", "", "day, week or month (default from config)")
	trendCmd.Flags().StringVarP(&flagTrendResourceType, "resource-type", "r", "", "Only count this resource type")
	trendCmd.Flags().StringVarP(&flagTrendBudget, "budget", "b", "", "Split projected periods at this budget's boundaries")
	trendCmd.Flags().StringVar(&flagTrendUntil, "until", "", "Extend the projection to YYYY-MM-DD")
	trendCmd.Flags().BoolVar(&flagTrendJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(trendCmd)
}

func runTrend(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	today := calendar.Today()
	req := pipeline.TrendRequest{
		ResourceType: flagTrendResourceType,
		Region:       e.region(),
		Account:      e.account(),
		Today:        today,
	}
	if req.From, err = dateFlag("from", flagTrendFrom, today.AddDays(-e.days())); err != nil {
		return err
	}
	if req.To, err = dateFlag("to", flagTrendTo, today.LastOfMonth()); err != nil {
		return err
	}

	g := flagTrendGranularity
	if g == "" {
		g = e.cfg.General.Granularity
	}
	if req.Granularity, err = calendar.ParseGranularity(g); err != nil {
		return err
	}

	if flagTrendBudget != "" {
		b, err := e.cfg.FindBudget(flagTrendBudget)
		if err != nil {
			return err
		}
		req.Budget = &b
	}

	result, err := pipeline.ComputeTrend(context.Background(), req, e.src,
		pipeline.WithLogger(e.logger.Logger),
		pipeline.WithProgress(progress("Fetching periods")),
	)
	if err != nil {
		return err
	}

	if flagTrendUntil != "" {
		until, err := calendar.ParseDate(flagTrendUntil)
		if err != nil {
			return fmt.Errorf("--until: %w", err)
		}
		projected, err := trend.ProjectUntil(*result, until, req.Budget)
		if err != nil {
			return err
		}
		result = &projected
	}

	if flagTrendJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printTrend(result, req, e.currency())
	return nil
}

func printTrend(r *model.TrendResult, req pipeline.TrendRequest, currency string) {
	title := fmt.Sprintf("COST TREND  ·  %s", r.Granularity)
	if req.ResourceType != "" {
		title += "  ·  " + req.ResourceType
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()

	peak := 0.0
	for _, p := range r.Periods {
		peak = max(peak, p.Cost)
	}

	rows := make([][]string, 0, len(r.Periods))
	var prev *model.TrendPeriod
	for i := range r.Periods {
		p := r.Periods[i]
		label := p.Label
		change := ""
		if p.Projected {
			label += " (proj)"
		} else if prev != nil {
			change = cli.FormatDelta(p.Cost, prev.Cost, currency)
		}
		rows = append(rows, []string{
			label,
			cli.FormatRange(p.Bounds()),
			cli.FormatMoney(p.Cost, currency),
			change,
			cli.RenderHorizontalBar(p.Cost, peak, 24, p.Projected),
		})
		if !p.Projected {
			prev = &r.Periods[i]
		}
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Periods",
		Headers: []string{"Period", "Dates", "Cost", "Change", ""},
		Rows:    rows,
	}))
	fmt.Println()

	direction := string(r.Direction)
	switch r.Direction {
	case model.TrendIncreasing:
		direction = cli.Warn(direction)
	case model.TrendDecreasing, model.TrendStable:
		direction = cli.Muted(direction)
	}
	fmt.Printf("  Direction:          %s\n", direction)
	fmt.Printf("  Growth per period:  %s\n", cli.FormatChange(r.GrowthRate))
	fmt.Printf("  Historical average: %s\n", cli.FormatMoney(r.HistoricalAverage, currency))
	fmt.Printf("  Total (%d periods): %s\n", r.PeriodCount, cli.FormatMoney(r.TotalCost, currency))
	if r.FailedFetches > 0 {
		fmt.Printf("  %s\n", cli.Warn(fmt.Sprintf("%d period fetches failed and were counted as zero", r.FailedFetches)))
	}
	fmt.Println()
}
