package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/cli"
	"github.com/theirongolddev/cloudburn/internal/config"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/pipeline"
	"github.com/theirongolddev/cloudburn/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	flagStatusFrom string
	flagStatusTo   string

	flagAddName   string
	flagAddPeriod string
	flagAddAmount string
	flagAddStart  string
	flagAddEnd    string
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage budgets and show their status",
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show per-period spend against one or all budgets",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBudgetStatus,
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List budgets with current period utilization",
	Args:  cobra.NoArgs,
	RunE:  runBudgetList,
}

var budgetAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a budget (interactive without --name)",
	Args:  cobra.NoArgs,
	RunE:  runBudgetAdd,
}

var budgetRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a budget",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetRemove,
}

func init() {
	budgetStatusCmd.Flags().StringVar(&flagStatusFrom, "from", "", "Window start YYYY-MM-DD (default today minus --days)")
	budgetStatusCmd.Flags().StringVar(&flagStatusTo, "to", "", "Window end YYYY-MM-DD (default today)")

	budgetAddCmd.Flags().StringVar(&flagAddName, "name", "", "Budget name")
	budgetAddCmd.Flags().StringVar(&flagAddPeriod, "period", string(model.Monthly), "monthly, quarterly or yearly")
	budgetAddCmd.Flags().StringVar(&flagAddAmount, "amount", "", "Amount per period")
	budgetAddCmd.Flags().StringVar(&flagAddStart, "start", "", "First day YYYY-MM-DD (default first of this month)")
	budgetAddCmd.Flags().StringVar(&flagAddEnd, "end", "", "Last day YYYY-MM-DD (default open-ended)")

	budgetCmd.AddCommand(budgetStatusCmd, budgetListCmd, budgetAddCmd, budgetRemoveCmd)
	rootCmd.AddCommand(budgetCmd)
}

func runBudgetStatus(_ *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	today := calendar.Today()
	from, err := dateFlag("from", flagStatusFrom, today.AddDays(-e.days()))
	if err != nil {
		return err
	}
	to, err := dateFlag("to", flagStatusTo, today)
	if err != nil {
		return err
	}

	var budgets []model.Budget
	if len(args) == 1 {
		b, err := e.cfg.FindBudget(args[0])
		if err != nil {
			return err
		}
		budgets = []model.Budget{b}
	} else {
		budgets, err = e.cfg.BudgetList()
		if err != nil {
			return err
		}
	}
	if len(budgets) == 0 {
		fmt.Println("\n  No budgets configured. Add one with `cloudburn budget add`.")
		return nil
	}

	ctx := context.Background()
	for _, b := range budgets {
		st, err := pipeline.ComputeStatus(ctx, b, e.src, from, to,
			pipeline.WithLogger(e.logger.Logger),
			pipeline.WithRegion(e.region()),
			pipeline.WithAccount(e.account()),
			pipeline.WithProgress(progress("Fetching "+b.Name)),
		)
		if err != nil {
			return fmt.Errorf("budget %q: %w", b.Name, err)
		}
		printBudgetStatus(st, today, e.currency())
	}
	return nil
}

func printBudgetStatus(st *model.BudgetStatus, today calendar.Date, currency string) {
	b := st.Budget
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s  ·  %s %s", strings.ToUpper(b.Name),
		cli.FormatMoney(b.Amount, currency), b.PeriodType)))
	fmt.Println()

	rows := make([][]string, 0, len(st.Periods)+1)
	for _, ps := range st.Periods {
		label := cli.FormatRange(ps.Period.Range())
		if ps.Period.Range().Contains(today) {
			label += " *"
		}
		rows = append(rows, []string{
			label,
			cli.FormatMoney(ps.Period.BudgetAmount, currency),
			cli.FormatMoney(ps.Spent, currency),
			cli.FormatMoney(ps.Remaining, currency),
			cli.RenderUtilizationBar(ps.UtilizationPercent, 20),
		})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{
		"Total",
		cli.FormatMoney(st.TotalBudget, currency),
		cli.FormatMoney(st.TotalSpent, currency),
		cli.FormatMoney(st.TotalRemaining, currency),
		cli.FormatPercent(st.UtilizationPercent),
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Periods " + cli.FormatRange(calendar.DateRange{From: st.From, To: st.To}),
		Headers: []string{"Period", "Budget", "Spent", "Remaining", "Utilization"},
		Rows:    rows,
	}))

	if st.FailedFetches > 0 {
		fmt.Printf("  %s\n", cli.Warn(fmt.Sprintf("%d sub-period fetches failed and were counted as zero", st.FailedFetches)))
	}
	fmt.Println()
}

func runBudgetList(_ *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	budgets, err := e.cfg.BudgetList()
	if err != nil {
		return err
	}
	if len(budgets) == 0 {
		fmt.Println()
		fmt.Println("  No budgets configured.")
		fmt.Println()
		fmt.Println("  Add one:")
		fmt.Println("    cloudburn budget add                                          (interactive)")
		fmt.Println("    cloudburn budget add --name infra --amount 1000 --period monthly")
		fmt.Println()
		return nil
	}

	today := calendar.Today()
	currency := e.currency()
	ctx := context.Background()

	rows := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		end := "-"
		if b.EndDate != nil {
			end = b.EndDate.String()
		}
		row := []string{b.Name, string(b.PeriodType), cli.FormatMoney(b.Amount, currency), b.StartDate.String(), end}

		st, err := pipeline.ComputeStatus(ctx, b, e.src, today, today,
			pipeline.WithLogger(e.logger.Logger),
			pipeline.WithRegion(e.region()),
			pipeline.WithAccount(e.account()),
		)
		switch {
		case err != nil:
			row = append(row, cli.Warn(err.Error()))
		case len(st.Periods) == 0:
			row = append(row, cli.Muted("not active"))
		default:
			row = append(row, cli.RenderUtilizationBar(st.Periods[0].UtilizationPercent, 16))
		}
		rows = append(rows, row)
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Budgets",
		Headers: []string{"Name", "Period", "Amount", "Start", "End", "Current"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

func runBudgetAdd(_ *cobra.Command, _ []string) error {
	e, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	v := tui.NewBudgetFormValues(calendar.Today())
	if flagAddName == "" {
		form := tui.NewBudgetForm(e.cfg, v).WithTheme(huh.ThemeCharm())
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Println("  Cancelled.")
				return nil
			}
			return err
		}
	} else {
		v.Name = flagAddName
		v.PeriodType = flagAddPeriod
		v.Amount = flagAddAmount
		if flagAddStart != "" {
			v.StartDate = flagAddStart
		}
		v.EndDate = flagAddEnd
	}

	b, err := v.Budget()
	if err != nil {
		return err
	}
	if err := e.cfg.AddBudget(b); err != nil {
		return err
	}
	if err := config.SaveTo(e.path, e.cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("  Added budget %q: %s %s from %s\n", b.Name, cli.FormatMoney(b.Amount, e.currency()), b.PeriodType, b.StartDate)
	fmt.Printf("  Saved to %s\n", e.path)
	return nil
}

func runBudgetRemove(_ *cobra.Command, args []string) error {
	e, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	if !e.cfg.RemoveBudget(args[0]) {
		return fmt.Errorf("no budget named %q", args[0])
	}
	if err := config.SaveTo(e.path, e.cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("  Removed budget %q\n", args[0])
	return nil
}
