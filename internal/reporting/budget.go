package reporting

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// WindowSize is the number of months in a budget comparison.
const WindowSize = 6

// WindowMode selects how the comparison months are enumerated.
type WindowMode string

const (
	// WindowCalendar steps back whole calendar months.
	WindowCalendar WindowMode = "calendar"
	// WindowApprox30 steps back 30 days at a time and labels each step with
	// its month. Labels may repeat or be skipped.
	WindowApprox30 WindowMode = "approx30"
)

func ParseWindowMode(s string) (WindowMode, error) {
	switch m := WindowMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return WindowCalendar, nil
	case WindowCalendar, WindowApprox30:
		return m, nil
	default:
		return "", fmt.Errorf("unknown budget window mode %q", s)
	}
}

// Months returns n month labels ending at now's month, oldest first.
func (m WindowMode) Months(now time.Time, n int) []core.YearMonth {
	out := make([]core.YearMonth, n)
	current := core.YearMonthOf(now)
	for i := 0; i < n; i++ {
		var ym core.YearMonth
		if m == WindowApprox30 {
			ym = core.YearMonthOf(now.AddDate(0, 0, -30*i))
		} else {
			ym = current.AddMonths(-i)
		}
		out[n-1-i] = ym
	}
	return out
}

// CompareBudgets pairs each month with its budget and actual spend. Missing
// budgets and months without expenses compare as zero.
func CompareBudgets(months []core.YearMonth, budgets map[core.YearMonth]core.Money, expenses []core.Expense) []core.BudgetComparison {
	actual := make(map[core.YearMonth]core.Money)
	for _, e := range expenses {
		ym := e.Date.YearMonth()
		actual[ym] = actual[ym].Add(e.Amount)
	}
	out := make([]core.BudgetComparison, len(months))
	for i, ym := range months {
		out[i] = core.BudgetComparison{Month: ym, Budget: budgets[ym], Actual: actual[ym]}
	}
	return out
}
