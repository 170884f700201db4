package services

import (
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// ErrNotMaterialized is returned for frequencies whose occurrences are not
// turned into expenses.
var ErrNotMaterialized = errors.New("frequency is stored only")

// DuenessChecker decides when a template produces its next expense and
// which day that expense is dated.
type DuenessChecker interface {
	// IsDue reports whether a template last run on lastExecution (zero if
	// never) should run on today. A template is never due before its
	// occurrence day in the current period.
	IsDue(lastExecution, today, startDate core.Date) bool
	// Occurrence is the scheduled day of the period containing today.
	Occurrence(today, startDate core.Date) core.Date
}

// MonthlyChecker runs once per calendar month, on or after the start date's
// day of month (clamped to the month's length).
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastExecution, today, startDate core.Date) bool {
	if !lastExecution.IsZero() && lastExecution.YearMonth() == today.YearMonth() {
		return false
	}
	return today.Day() >= clampDay(today.Year(), today.Month(), startDate.Day())
}

func (MonthlyChecker) Occurrence(today, startDate core.Date) core.Date {
	day := clampDay(today.Year(), today.Month(), startDate.Day())
	return core.NewDate(today.Year(), int(today.Month()), day)
}

// YearlyChecker runs once per calendar year, on or after the start date's
// month and day.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastExecution, today, startDate core.Date) bool {
	if !lastExecution.IsZero() && lastExecution.Year() == today.Year() {
		return false
	}
	if today.Month() != startDate.Month() {
		return today.Month() > startDate.Month()
	}
	return today.Day() >= clampDay(today.Year(), today.Month(), startDate.Day())
}

func (YearlyChecker) Occurrence(today, startDate core.Date) core.Date {
	day := clampDay(today.Year(), startDate.Month(), startDate.Day())
	return core.NewDate(today.Year(), int(startDate.Month()), day)
}

func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

var duenessStrategies = map[core.RepetitionTypes]DuenessChecker{
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker for a frequency, or ErrNotMaterialized
// for daily and weekly templates.
func GetDuenessChecker(frequency core.RepetitionTypes) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if ok {
		return checker, nil
	}
	if _, err := core.ParseRepetition(string(frequency)); err == nil {
		return nil, ErrNotMaterialized
	}
	return nil, fmt.Errorf("unknown repetition type: %s", frequency)
}
