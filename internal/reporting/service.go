package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Ledger is the read side of the store the reports are computed from.
type Ledger interface {
	ListExpenses(ctx context.Context, userID int64, p core.Period) ([]core.Expense, error)
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	GetBudget(ctx context.Context, userID int64, month core.YearMonth) (core.Budget, error)
}

// Summary is the overview of one period of a user's ledger.
type Summary struct {
	Period         string                `json:"period"`
	Expenses       []core.Expense        `json:"expenses"`
	Total          core.Money            `json:"total"`
	LedgerTotal    core.Money            `json:"ledger_total"`
	Year           int                   `json:"year"`
	YearToDate     core.Money            `json:"year_to_date"`
	MonthlyAverage core.Money            `json:"monthly_average"`
	Budget         *core.Money           `json:"budget,omitempty"` // set only for a month period with a stored budget
	Breakdown      []core.CategoryAmount `json:"breakdown"`
	Categories     []string              `json:"categories"`
}

type Service struct {
	ledger Ledger
	mode   WindowMode
	now    func() time.Time
}

type Option func(*Service)

// WithWindowMode sets how BudgetVsActual enumerates months.
func WithWindowMode(m WindowMode) Option {
	return func(s *Service) { s.mode = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(ledger Ledger, opts ...Option) *Service {
	s := &Service{ledger: ledger, mode: WindowCalendar, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary reports on the period selected by month/year. Year-scoped figures
// use year, or the current year when it is absent or malformed.
func (s *Service) Summary(ctx context.Context, userID int64, month, year string) (Summary, error) {
	period := core.ResolvePeriod(month, year)
	all, err := s.ledger.ListExpenses(ctx, userID, core.AllTime)
	if err != nil {
		return Summary{}, fmt.Errorf("load ledger: %w", err)
	}

	filtered := make([]core.Expense, 0, len(all))
	for _, e := range all {
		if period.Contains(e.Date) {
			filtered = append(filtered, e)
		}
	}

	y := core.ResolveYear(year, s.now())
	sum := Summary{
		Period:         period.String(),
		Expenses:       filtered,
		Total:          Total(filtered),
		LedgerTotal:    Total(all),
		Year:           y,
		YearToDate:     YearToDate(all, y),
		MonthlyAverage: MonthlyAverage(all, y),
		Breakdown:      CategoryBreakdown(all),
	}

	if period.Kind == core.PeriodMonth {
		b, err := s.ledger.GetBudget(ctx, userID, period.Month)
		switch {
		case err == nil:
			sum.Budget = &b.Amount
		case !errors.Is(err, storage.ErrNotFound):
			return Summary{}, fmt.Errorf("load budget: %w", err)
		}
	}

	if sum.Categories, err = s.Categories(ctx, userID); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// MonthlySeries returns per-month totals ascending, restricted to year when
// it is a valid YYYY.
func (s *Service) MonthlySeries(ctx context.Context, userID int64, year string) ([]core.MonthTotal, error) {
	p := core.AllTime
	var yp *int
	if y, ok := core.ParseYear(year); ok {
		p = core.YearPeriod(y)
		yp = &y
	}
	expenses, err := s.ledger.ListExpenses(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return MonthlySeries(expenses, yp), nil
}

// CategoryBreakdown covers the whole history of the user.
func (s *Service) CategoryBreakdown(ctx context.Context, userID int64) ([]core.CategoryAmount, error) {
	expenses, err := s.ledger.ListExpenses(ctx, userID, core.AllTime)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return CategoryBreakdown(expenses), nil
}

// BudgetVsActual compares the last WindowSize months, oldest first.
func (s *Service) BudgetVsActual(ctx context.Context, userID int64) ([]core.BudgetComparison, error) {
	months := s.mode.Months(s.now(), WindowSize)

	budgets := make(map[core.YearMonth]core.Money, len(months))
	var expenses []core.Expense
	for _, ym := range months {
		if _, seen := budgets[ym]; seen {
			continue
		}
		b, err := s.ledger.GetBudget(ctx, userID, ym)
		switch {
		case err == nil:
			budgets[ym] = b.Amount
		case errors.Is(err, storage.ErrNotFound):
			budgets[ym] = core.Money{}
		default:
			return nil, fmt.Errorf("load budget %s: %w", ym, err)
		}

		got, err := s.ledger.ListExpenses(ctx, userID, core.MonthPeriod(ym))
		if err != nil {
			return nil, fmt.Errorf("load ledger %s: %w", ym, err)
		}
		expenses = append(expenses, got...)
	}
	return CompareBudgets(months, budgets, expenses), nil
}

// Categories lists the category names available to the user, sorted.
func (s *Service) Categories(ctx context.Context, userID int64) ([]string, error) {
	cats, err := s.ledger.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names, nil
}

// ExportRows returns the filtered ledger as export rows, newest first.
func (s *Service) ExportRows(ctx context.Context, userID int64, month, year string) ([]core.ExportRow, error) {
	expenses, err := s.ledger.ListExpenses(ctx, userID, core.ResolvePeriod(month, year))
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return ExportRowsOf(expenses), nil
}
