package tui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/config"
	"github.com/theirongolddev/cloudburn/internal/model"

	"github.com/charmbracelet/huh"
)

// BudgetFormValues holds the raw answers of the add-budget form.
type BudgetFormValues struct {
	Name       string
	PeriodType string
	Amount     string
	StartDate  string
	EndDate    string
}

// NewBudgetFormValues pre-fills a monthly budget starting this month.
func NewBudgetFormValues(today calendar.Date) *BudgetFormValues {
	return &BudgetFormValues{
		PeriodType: string(model.Monthly),
		StartDate:  today.FirstOfMonth().String(),
	}
}

// NewBudgetForm builds the add-budget form. Names already in cfg are rejected
// while typing.
func NewBudgetForm(cfg config.Config, v *BudgetFormValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("New budget").
				Description("A budget repeats every period from its start date\nuntil the optional end date."),
			huh.NewInput().
				Title("Name").
				Placeholder("production-infra").
				Value(&v.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					if _, err := cfg.FindBudget(s); err == nil {
						return errors.New("a budget with this name already exists")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Period").
				Options(
					huh.NewOption("Monthly", string(model.Monthly)),
					huh.NewOption("Quarterly", string(model.Quarterly)),
					huh.NewOption("Yearly", string(model.Yearly)),
				).
				Value(&v.PeriodType),
			huh.NewInput().
				Title("Amount per period").
				Placeholder("1000").
				Value(&v.Amount).
				Validate(func(s string) error {
					_, err := parseAmount(s)
					return err
				}),
			huh.NewInput().
				Title("Start date").
				Placeholder(calendar.Layout).
				Value(&v.StartDate).
				Validate(func(s string) error {
					_, err := calendar.ParseDate(strings.TrimSpace(s))
					return err
				}),
			huh.NewInput().
				Title("End date (optional)").
				Placeholder(calendar.Layout).
				Value(&v.EndDate).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					_, err := calendar.ParseDate(strings.TrimSpace(s))
					return err
				}),
		),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(true)
}

// Budget converts the answers into a validated budget.
func (v BudgetFormValues) Budget() (model.Budget, error) {
	amount, err := parseAmount(v.Amount)
	if err != nil {
		return model.Budget{}, err
	}
	bc := config.BudgetConfig{
		Name:       strings.TrimSpace(v.Name),
		PeriodType: v.PeriodType,
		Amount:     amount,
		StartDate:  strings.TrimSpace(v.StartDate),
		EndDate:    strings.TrimSpace(v.EndDate),
	}
	return bc.ToBudget()
}

func parseAmount(s string) (float64, error) {
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || amount <= 0 {
		return 0, &calendar.ValidationError{Field: "amount", Value: s, Reason: "must be a positive number"}
	}
	return amount, nil
}
