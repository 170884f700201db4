package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

// DateLayout is the ISO calendar-day form used for storage, query and export.
const DateLayout = "2006-01-02"

type (
	RepetitionTypes string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64     `json:"id"`
		Username     string    `json:"username"`
		PasswordHash string    `json:"-"`
		Email        string    `json:"email,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Expense struct {
		ID          int64  `json:"id"`
		UserID      int64  `json:"-"`
		Date        Date   `json:"date"`
		Amount      Money  `json:"amount"`
		Category    string `json:"category"`
		Description string `json:"description"`
		RecurringID int64  `json:"recurring_id,omitempty"` // 0 when entered manually
	}

	Category struct {
		ID     int64  `json:"id"`
		UserID int64  `json:"-"` // 0 for global defaults
		Name   string `json:"name"`
	}

	Budget struct {
		UserID int64     `json:"-"`
		Month  YearMonth `json:"month"`
		Amount Money     `json:"amount"`
	}

	RecurringTemplate struct {
		ID            int64           `json:"id"`
		UserID        int64           `json:"-"`
		Amount        Money           `json:"amount"`
		Category      string          `json:"category"`
		Description   string          `json:"description"`
		Every         RepetitionTypes `json:"frequency"`
		StartDate     Date            `json:"start_date"`
		EndDate       Date            `json:"end_date"`       // zero when open-ended
		LastExecution Date            `json:"last_execution"` // zero until first materialization
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyCategory     = errors.New("empty category")
	ErrDescriptionLength = errors.New("description too long (max 200 characters)")
	ErrInvalidRepetition = errors.New("invalid repetition type")
	ErrEndBeforeStart    = errors.New("end date must not be before start date")
	ErrEmptyUsername     = errors.New("empty username")
)

const maxDescriptionLen = 200

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ParseDateOrToday returns today (in now's location) for a blank input.
func ParseDateOrToday(s string, now time.Time) (Date, error) {
	if strings.TrimSpace(s) == "" {
		return NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	return ParseDate(s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Description) > maxDescriptionLen {
		return ErrDescriptionLength
	}
	return nil
}

func (b Budget) Validate() error {
	if !b.Month.Valid() {
		return ErrInvalidMonth
	}
	return b.Amount.Validate()
}

// ParseRepetition normalizes a frequency name.
func ParseRepetition(s string) (RepetitionTypes, error) {
	r := RepetitionTypes(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return r, nil
	}
	return "", ErrInvalidRepetition
}

// Materialized reports whether occurrences of this frequency are turned into expenses.
// Sub-monthly rules are stored only.
func (r RepetitionTypes) Materialized() bool {
	return r == Monthly || r == Yearly
}

func (rt RecurringTemplate) Validate() error {
	if err := rt.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate.Time) {
		return ErrEndBeforeStart
	}
	if _, err := ParseRepetition(string(rt.Every)); err != nil {
		return err
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(rt.Category) == "" {
		return ErrEmptyCategory
	}
	if len(rt.Description) > maxDescriptionLen {
		return ErrDescriptionLength
	}
	return nil
}

// ActiveOn reports whether the template covers the given day.
func (rt RecurringTemplate) ActiveOn(d Date) bool {
	if d.Before(rt.StartDate.Time) {
		return false
	}
	return rt.EndDate.IsZero() || !d.After(rt.EndDate.Time)
}
