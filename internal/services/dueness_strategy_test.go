package services

import (
	"errors"
	"testing"

	"fintrack/internal/core"
)

func TestMonthlyChecker_IsDue(t *testing.T) {
	checker := MonthlyChecker{}

	tests := []struct {
		name          string
		lastExecution core.Date
		today         core.Date
		startDate     core.Date
		want          bool
	}{
		{
			name:      "never executed - past target day - is due",
			today:     core.NewDate(2024, 1, 15),
			startDate: core.NewDate(2024, 1, 10),
			want:      true,
		},
		{
			name:      "never executed - before target day - not due",
			today:     core.NewDate(2026, 1, 10),
			startDate: core.NewDate(2025, 12, 25),
			want:      false,
		},
		{
			name:      "never executed - on target day - is due",
			today:     core.NewDate(2026, 1, 25),
			startDate: core.NewDate(2025, 12, 25),
			want:      true,
		},
		{
			name:          "executed this month - not due",
			lastExecution: core.NewDate(2024, 1, 10),
			today:         core.NewDate(2024, 1, 15),
			startDate:     core.NewDate(2024, 1, 10),
			want:          false,
		},
		{
			name:          "new month but before target day - not due",
			lastExecution: core.NewDate(2024, 1, 15),
			today:         core.NewDate(2024, 2, 10),
			startDate:     core.NewDate(2024, 1, 15),
			want:          false,
		},
		{
			name:          "new month and on target day - is due",
			lastExecution: core.NewDate(2024, 1, 15),
			today:         core.NewDate(2024, 2, 15),
			startDate:     core.NewDate(2024, 1, 15),
			want:          true,
		},
		{
			name:          "target day 31 in February - adjusts to 29",
			lastExecution: core.NewDate(2024, 1, 31),
			today:         core.NewDate(2024, 2, 29),
			startDate:     core.NewDate(2024, 1, 31),
			want:          true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastExecution, tt.today, tt.startDate)
			if got != tt.want {
				t.Errorf("MonthlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYearlyChecker_IsDue(t *testing.T) {
	checker := YearlyChecker{}
	start := core.NewDate(2023, 6, 15)

	tests := []struct {
		name          string
		lastExecution core.Date
		today         core.Date
		want          bool
	}{
		{"never executed - before target month - not due", core.Date{}, core.NewDate(2024, 1, 1), false},
		{"never executed - past target day - is due", core.Date{}, core.NewDate(2024, 7, 1), true},
		{"executed this year - not due", core.NewDate(2024, 6, 15), core.NewDate(2024, 12, 1), false},
		{"new year before target month - not due", core.NewDate(2023, 6, 15), core.NewDate(2024, 5, 30), false},
		{"new year target month before day - not due", core.NewDate(2023, 6, 15), core.NewDate(2024, 6, 14), false},
		{"new year on target day - is due", core.NewDate(2023, 6, 15), core.NewDate(2024, 6, 15), true},
		{"new year past target month - is due", core.NewDate(2023, 6, 15), core.NewDate(2024, 9, 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastExecution, tt.today, start)
			if got != tt.want {
				t.Errorf("YearlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOccurrence(t *testing.T) {
	tests := []struct {
		name    string
		checker DuenessChecker
		today   core.Date
		start   core.Date
		want    string
	}{
		{"monthly on start day", MonthlyChecker{}, core.NewDate(2026, 3, 20), core.NewDate(2026, 1, 15), "2026-03-15"},
		{"monthly clamps to month end", MonthlyChecker{}, core.NewDate(2026, 2, 28), core.NewDate(2026, 1, 31), "2026-02-28"},
		{"yearly", YearlyChecker{}, core.NewDate(2027, 8, 1), core.NewDate(2026, 6, 15), "2027-06-15"},
		{"yearly leap day", YearlyChecker{}, core.NewDate(2027, 3, 1), core.NewDate(2024, 2, 29), "2027-02-28"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.checker.Occurrence(tt.today, tt.start).String(); got != tt.want {
				t.Errorf("Occurrence() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGetDuenessChecker(t *testing.T) {
	tests := []struct {
		frequency core.RepetitionTypes
		wantErr   error
	}{
		{core.Monthly, nil},
		{core.Yearly, nil},
		{core.Daily, ErrNotMaterialized},
		{core.Weekly, ErrNotMaterialized},
	}
	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			checker, err := GetDuenessChecker(tt.frequency)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("GetDuenessChecker(%s) err = %v, want %v", tt.frequency, err, tt.wantErr)
			}
			if tt.wantErr == nil && checker == nil {
				t.Fatalf("GetDuenessChecker(%s) returned nil checker", tt.frequency)
			}
		})
	}

	if _, err := GetDuenessChecker("hourly"); err == nil || errors.Is(err, ErrNotMaterialized) {
		t.Fatalf("unknown frequency err = %v", err)
	}
}
