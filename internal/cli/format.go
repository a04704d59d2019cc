// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/calendar"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// FormatQuantity formats a usage quantity with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M", 0.25 -> "0.25"
func FormatQuantity(q float64) string {
	abs := math.Abs(q)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", q/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", q/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", q/1_000)
	case abs == math.Trunc(abs):
		return strconv.FormatFloat(q, 'f', 0, 64)
	default:
		return strconv.FormatFloat(q, 'f', 2, 64)
	}
}

// FormatMoney formats an amount in the given ISO currency. Known currencies
// use their symbol; others are prefixed with the code.
func FormatMoney(amount float64, currency string) string {
	if amount < 0 {
		return "-" + FormatMoney(-amount, currency)
	}
	sym, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		sym = strings.ToUpper(currency) + " "
	}
	if amount >= 1000 {
		return sym + FormatNumber(int64(math.Round(amount)))
	}
	if amount >= 100 {
		return sym + fmt.Sprintf("%.0f", amount)
	}
	if amount >= 10 {
		return sym + fmt.Sprintf("%.1f", amount)
	}
	return sym + fmt.Sprintf("%.2f", amount)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a value that is already a percentage (0-100 scale).
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatChange formats a signed percentage change, e.g. "+12.5%" or "-3.0%".
func FormatChange(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.1f%%", pct)
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatDelta formats the difference between two amounts with a sign.
func FormatDelta(current, previous float64, currency string) string {
	delta := current - previous
	if delta >= 0 {
		return "+" + FormatMoney(delta, currency)
	}
	return "-" + FormatMoney(-delta, currency)
}

// FormatRange formats an inclusive date range. Single days print once.
func FormatRange(r calendar.DateRange) string {
	if r.From.Equal(r.To) {
		return r.From.String()
	}
	return r.From.String() + " → " + r.To.String()
}

// FormatDayOfWeek returns a 3-letter day abbreviation for d.
func FormatDayOfWeek(d calendar.Date) string {
	return d.Time().Weekday().String()[:3]
}
