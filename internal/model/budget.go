// Package model defines the value types exchanged between the budget and
// trend engines and their callers. Nothing here is persisted directly.
package model

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/calendar"
)

// PeriodType is a budget's recurrence.
type PeriodType string

const (
	Monthly   PeriodType = "monthly"
	Quarterly PeriodType = "quarterly"
	Yearly    PeriodType = "yearly"
)

// ParsePeriodType accepts monthly, quarterly and yearly (case-insensitive).
func ParsePeriodType(s string) (PeriodType, error) {
	pt := PeriodType(strings.ToLower(strings.TrimSpace(s)))
	if !pt.Valid() {
		return "", &calendar.ValidationError{
			Field:  "period_type",
			Value:  s,
			Reason: "expected monthly, quarterly or yearly",
		}
	}
	return pt, nil
}

// Valid reports whether pt is a known recurrence.
func (pt PeriodType) Valid() bool {
	return pt == Monthly || pt == Quarterly || pt == Yearly
}

// Months returns the recurrence length in months, or 0 for unknown types.
func (pt PeriodType) Months() int {
	switch pt {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case Yearly:
		return 12
	}
	return 0
}

// Budget is an immutable budget definition. EndDate, when set, is an
// exclusive bound on recurrence: no period starts on or after it.
type Budget struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name"`
	PeriodType PeriodType     `json:"period_type"`
	Amount     float64        `json:"amount"`
	StartDate  calendar.Date  `json:"start_date"`
	EndDate    *calendar.Date `json:"end_date,omitempty"`
}

// Validate checks the budget invariants.
func (b Budget) Validate() error {
	if !b.PeriodType.Valid() {
		return &calendar.ValidationError{Field: "period_type", Value: string(b.PeriodType),
			Reason: "expected monthly, quarterly or yearly"}
	}
	if b.Amount <= 0 {
		return &calendar.ValidationError{Field: "amount", Value: fmt.Sprintf("%g", b.Amount),
			Reason: "must be positive"}
	}
	if b.StartDate.IsZero() {
		return &calendar.ValidationError{Field: "start_date", Reason: "is required"}
	}
	if b.EndDate != nil && !b.EndDate.After(b.StartDate) {
		return &calendar.ValidationError{Field: "end_date", Value: b.EndDate.String(),
			Reason: fmt.Sprintf("must be after start_date %s", b.StartDate)}
	}
	return nil
}

// BudgetPeriod is one billing cycle of a budget. Index counts from the
// budget's first period; End is inclusive.
type BudgetPeriod struct {
	Index        int           `json:"index"`
	Start        calendar.Date `json:"start_date"`
	End          calendar.Date `json:"end_date"`
	BudgetAmount float64       `json:"budget_amount"`
}

// Range returns the period as an inclusive range.
func (p BudgetPeriod) Range() calendar.DateRange {
	return calendar.DateRange{From: p.Start, To: p.End}
}

// SubPeriodSpend is the spend of one fetched sub-period together with the
// running total of its budget period up to and including it.
type SubPeriodSpend struct {
	Range           calendar.DateRange `json:"range"`
	Spent           float64            `json:"spent"`
	CumulativeSpent float64            `json:"cumulative_spent"`
	EntryCount      int                `json:"entry_count"`
	Failed          bool               `json:"failed,omitempty"`
}

// PeriodStatus is the spend of a single budget period.
type PeriodStatus struct {
	Period             BudgetPeriod     `json:"period"`
	Spent              float64          `json:"spent"`
	Remaining          float64          `json:"remaining"`
	UtilizationPercent float64          `json:"utilization_percent"`
	SubPeriods         []SubPeriodSpend `json:"sub_periods,omitempty"`
}

// BudgetStatus is the result of a budget status computation.
type BudgetStatus struct {
	Budget             Budget         `json:"budget"`
	From               calendar.Date  `json:"from_date"`
	To                 calendar.Date  `json:"to_date"`
	Periods            []PeriodStatus `json:"periods"`
	TotalBudget        float64        `json:"total_budget"`
	TotalSpent         float64        `json:"total_spent"`
	TotalRemaining     float64        `json:"total_remaining"`
	UtilizationPercent float64        `json:"utilization_percent"`
	FailedFetches      int            `json:"failed_fetches"`
}

// Utilization returns spent/amount*100, or 0 when amount is 0.
func Utilization(spent, amount float64) float64 {
	if amount == 0 {
		return 0
	}
	return spent / amount * 100
}
