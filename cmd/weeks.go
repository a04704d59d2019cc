package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/cli"
	"github.com/theirongolddev/cloudburn/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagWeeksSpend bool

var weeksCmd = &cobra.Command{
	Use:   "weeks [YEAR MONTH]",
	Short: "Show the monthly-week partition of a month",
	Long: "Weeks run Monday to Sunday inside the month. The first week starts on the 1st,\n" +
		"the last week absorbs any days after the fourth Sunday.",
	Args: cobra.RangeArgs(0, 2),
	RunE: runWeeks,
}

func init() {
	weeksCmd.Flags().BoolVarP(&flagWeeksSpend, "spend", "s", false, "Fetch spend per week")
	rootCmd.AddCommand(weeksCmd)
}

func runWeeks(_ *cobra.Command, args []string) error {
	today := calendar.Today()
	year, month := today.Year(), today.Month()
	switch len(args) {
	case 1:
		return fmt.Errorf("need both YEAR and MONTH, got %q", args[0])
	case 2:
		var err error
		if year, month, err = parseYearMonth(args[0], args[1]); err != nil {
			return err
		}
	}

	title := fmt.Sprintf("%s %d", month, year)
	if !flagWeeksSpend {
		rows := [][]string{}
		for i, w := range calendar.WeeksOfMonth(year, month) {
			rows = append(rows, []string{
				fmt.Sprintf("W%d", i+1),
				fmt.Sprintf("%s %s", cli.FormatDayOfWeek(w.From), w.From),
				fmt.Sprintf("%s %s", cli.FormatDayOfWeek(w.To), w.To),
				strconv.Itoa(w.Days()),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   title,
			Headers: []string{"Week", "From", "To", "Days"},
			Rows:    rows,
		}))
		fmt.Println()
		return nil
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	// Weeks that have not started yet are left out.
	weeks := pipeline.ComputeMonthWeeks(context.Background(), e.src, year, month, today,
		pipeline.WithLogger(e.logger.Logger),
		pipeline.WithRegion(e.region()),
		pipeline.WithAccount(e.account()),
		pipeline.WithProgress(progress("Fetching weeks")),
	)

	currency := e.currency()
	var total float64
	failed := 0
	rows := make([][]string, 0, len(weeks)+2)
	for _, w := range weeks {
		spent := cli.FormatMoney(w.Spent, currency)
		if w.Failed {
			spent = cli.Warn("failed")
			failed++
		}
		total += w.Spent
		rows = append(rows, []string{
			fmt.Sprintf("W%d", w.Week),
			cli.FormatRange(w.Range),
			strconv.Itoa(w.Range.Days()),
			spent,
			cli.FormatMoney(w.DailyAverage(), currency),
		})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"Total", "", "", cli.FormatMoney(total, currency), ""})

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   title,
		Headers: []string{"Week", "Dates", "Days", "Spent", "Per day"},
		Rows:    rows,
	}))
	if failed > 0 {
		fmt.Printf("  %s\n", cli.Warn(fmt.Sprintf("%d week fetches failed and were counted as zero", failed)))
	}
	fmt.Println()
	return nil
}

func parseYearMonth(ys, ms string) (int, time.Month, error) {
	year, err := strconv.Atoi(ys)
	if err != nil || year < 1 {
		return 0, 0, &calendar.ValidationError{Field: "year", Value: ys, Reason: "expected a positive number"}
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 1 || m > 12 {
		return 0, 0, &calendar.ValidationError{Field: "month", Value: ms, Reason: "expected 1 to 12"}
	}
	return year, time.Month(m), nil
}
