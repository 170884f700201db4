// Package reporting turns a user's ledger into totals, series and budget
// comparisons. Every figure is recomputed from the store on each call.
package reporting

import (
	"sort"

	"fintrack/internal/core"
)

// Total sums the amounts of expenses. It is zero for an empty slice.
func Total(expenses []core.Expense) core.Money {
	var m core.Money
	for _, e := range expenses {
		m = m.Add(e.Amount)
	}
	return m
}

// YearToDate sums the expenses dated in year.
func YearToDate(expenses []core.Expense, year int) core.Money {
	var m core.Money
	for _, e := range expenses {
		if e.Date.Year() == year {
			m = m.Add(e.Amount)
		}
	}
	return m
}

// MonthlyAverage is the mean of the per-month sums of year, counting only
// months that have at least one expense.
func MonthlyAverage(expenses []core.Expense, year int) core.Money {
	byMonth := make(map[core.YearMonth]int64)
	for _, e := range expenses {
		if e.Date.Year() != year {
			continue
		}
		byMonth[e.Date.YearMonth()] += e.Amount.Cents
	}
	sums := make([]int64, 0, len(byMonth))
	for _, c := range byMonth {
		sums = append(sums, c)
	}
	return core.MeanCents(sums)
}

// CategoryBreakdown groups amounts by category, sorted by name.
func CategoryBreakdown(expenses []core.Expense) []core.CategoryAmount {
	byName := make(map[string]core.Money)
	for _, e := range expenses {
		byName[e.Category] = byName[e.Category].Add(e.Amount)
	}
	out := make([]core.CategoryAmount, 0, len(byName))
	for name, amount := range byName {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MonthlySeries groups amounts by month in ascending order. A nil year
// keeps every month.
func MonthlySeries(expenses []core.Expense, year *int) []core.MonthTotal {
	byMonth := make(map[core.YearMonth]core.Money)
	for _, e := range expenses {
		if year != nil && e.Date.Year() != *year {
			continue
		}
		ym := e.Date.YearMonth()
		byMonth[ym] = byMonth[ym].Add(e.Amount)
	}
	out := make([]core.MonthTotal, 0, len(byMonth))
	for ym, total := range byMonth {
		out = append(out, core.MonthTotal{Month: ym, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.String() < out[j].Month.String() })
	return out
}
