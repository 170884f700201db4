package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// YearMonth identifies a calendar month. Its String form (YYYY-MM) sorts
// lexicographically in chronological order.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses YYYY-MM. The boolean is false for anything else.
func ParseYearMonth(s string) (YearMonth, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[4] != '-' {
		return YearMonth{}, false
	}
	y, ok := parseYear(s[:4])
	if !ok {
		return YearMonth{}, false
	}
	m, err := strconv.Atoi(s[5:])
	if err != nil || m < 1 || m > 12 || !isDigits(s[5:]) {
		return YearMonth{}, false
	}
	return YearMonth{Year: y, Month: time.Month(m)}, true
}

// YearMonthOf returns the month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) Valid() bool {
	return ym.Year >= 1 && ym.Year <= 9999 && ym.Month >= time.January && ym.Month <= time.December
}

// AddMonths steps by whole calendar months.
func (ym YearMonth) AddMonths(n int) YearMonth {
	t := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return YearMonthOf(t)
}

// FirstDay is the first calendar day of the month.
func (ym YearMonth) FirstDay() Date {
	return NewDate(ym.Year, int(ym.Month), 1)
}

func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(b []byte) error {
	v, ok := ParseYearMonth(string(b))
	if !ok {
		return ErrInvalidMonth
	}
	*ym = v
	return nil
}

// PeriodKind tells which of the mutually exclusive filters a Period applies.
type PeriodKind int

const (
	PeriodAll PeriodKind = iota
	PeriodYear
	PeriodMonth
)

// Period is a resolved time window over expense dates.
type Period struct {
	Kind  PeriodKind
	Year  int       // set for PeriodYear
	Month YearMonth // set for PeriodMonth
}

// AllTime is the unfiltered period.
var AllTime = Period{Kind: PeriodAll}

// ResolvePeriod turns optional month/year query values into a Period.
// A well-formed month wins over year. Malformed values are treated as
// absent, so resolution never fails.
func ResolvePeriod(month, year string) Period {
	if ym, ok := ParseYearMonth(month); ok {
		return MonthPeriod(ym)
	}
	if y, ok := parseYear(year); ok {
		return YearPeriod(y)
	}
	return AllTime
}

func MonthPeriod(ym YearMonth) Period {
	return Period{Kind: PeriodMonth, Month: ym}
}

func YearPeriod(year int) Period {
	return Period{Kind: PeriodYear, Year: year}
}

// Range returns the half-open day range [from, to) covered by the period.
// ok is false for PeriodAll.
func (p Period) Range() (from, to Date, ok bool) {
	switch p.Kind {
	case PeriodMonth:
		return p.Month.FirstDay(), p.Month.AddMonths(1).FirstDay(), true
	case PeriodYear:
		return NewDate(p.Year, 1, 1), NewDate(p.Year+1, 1, 1), true
	}
	return Date{}, Date{}, false
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d Date) bool {
	switch p.Kind {
	case PeriodMonth:
		return d.Year() == p.Month.Year && d.Month() == p.Month.Month
	case PeriodYear:
		return d.Year() == p.Year
	}
	return true
}

func (p Period) String() string {
	switch p.Kind {
	case PeriodMonth:
		return p.Month.String()
	case PeriodYear:
		return strconv.Itoa(p.Year)
	}
	return "all"
}

// CurrentYear is the single source of the "no year given" default.
func CurrentYear(now time.Time) int {
	return now.Year()
}

// ResolveYear parses YYYY and falls back to the current calendar year.
func ResolveYear(year string, now time.Time) int {
	if y, ok := parseYear(year); ok {
		return y
	}
	return CurrentYear(now)
}

// ParseYear parses an optional YYYY query value.
func ParseYear(s string) (int, bool) {
	return parseYear(s)
}

func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 4 || !isDigits(s) {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1 {
		return 0, false
	}
	return y, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
