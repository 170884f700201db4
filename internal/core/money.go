// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Decimal text at the edges (forms, JSON,
// CSV) goes through shopspring/decimal so no value ever passes through a float.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is accepted; negative
// values, signs, exponents and empty input are rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	if strings.Count(s, ".") > 1 || s == "." {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	// Keep clear of int64 overflow
	if cents.GreaterThan(decimal.NewFromInt(1 << 53)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseMoney is ParseDecimalToCents wrapped in a Money.
func ParseMoney(s string) (Money, error) {
	c, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: c}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders plain decimal text with two fractional digits ("197.50").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// MarshalJSON emits a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	var raw json.Number
	if err := json.Unmarshal(b, &raw); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrInvalidAmount
		}
		raw = json.Number(s)
	}
	c, err := ParseDecimalToCents(raw.String())
	if err != nil {
		return err
	}
	m.Cents = c
	return nil
}

// MeanCents returns the arithmetic mean of the given cent sums rounded half
// away from zero, or zero for an empty input.
func MeanCents(sums []int64) Money {
	if len(sums) == 0 {
		return Money{}
	}
	var total int64
	for _, s := range sums {
		total += s
	}
	mean := decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(len(sums))))
	return Money{Cents: mean.Round(0).IntPart()}
}
