package reporting

import (
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

func labels(months []core.YearMonth) string {
	out := make([]string, len(months))
	for i, m := range months {
		out[i] = m.String()
	}
	return strings.Join(out, ",")
}

func TestWindowMonths(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		mode WindowMode
		want string
	}{
		{WindowCalendar, "2025-10,2025-11,2025-12,2026-01,2026-02,2026-03"},
		// 30-day steps skip February and repeat December and March
		{WindowApprox30, "2025-11,2025-12,2025-12,2026-01,2026-03,2026-03"},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			if got := labels(tc.mode.Months(now, WindowSize)); got != tc.want {
				t.Fatalf("Months = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseWindowMode(t *testing.T) {
	cases := []struct {
		in      string
		want    WindowMode
		wantErr bool
	}{
		{"", WindowCalendar, false},
		{"calendar", WindowCalendar, false},
		{" APPROX30 ", WindowApprox30, false},
		{"weekly", "", true},
	}
	for _, tc := range cases {
		got, err := ParseWindowMode(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("ParseWindowMode(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestCompareBudgets(t *testing.T) {
	jan := core.YearMonth{Year: 2026, Month: time.January}
	dec := core.YearMonth{Year: 2025, Month: time.December}
	got := CompareBudgets(
		[]core.YearMonth{dec, jan},
		map[core.YearMonth]core.Money{jan: {Cents: 275000}},
		januaryLedger(),
	)
	if len(got) != 2 {
		t.Fatalf("got %d entries", len(got))
	}
	if got[0].Month != dec || got[0].Budget.Cents != 0 || got[0].Actual.Cents != 0 {
		t.Fatalf("december = %+v", got[0])
	}
	if got[1].Budget.String() != "2750.00" || got[1].Actual.String() != "197.50" {
		t.Fatalf("january = %+v", got[1])
	}
}
