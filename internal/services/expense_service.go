// Package services holds the ledger write path and the recurring materializer.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// EventPublisher receives a notification after every successful write.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev amqp.LedgerEvent) error
}

// ExpenseInput is an add or edit request as submitted. A blank Date means
// today on add and "unchanged" on edit.
type ExpenseInput struct {
	Date        string
	Amount      string
	Category    string
	Description string
}

// RecurringInput is a recurring template as submitted. A blank StartDate
// means today and a blank EndDate leaves the template open-ended.
type RecurringInput struct {
	Amount      string
	Category    string
	Description string
	Frequency   string
	StartDate   string
	EndDate     string
}

// LedgerService validates and persists ledger writes for one user at a time,
// then announces them. Publishing never fails a write.
type LedgerService struct {
	store     storage.Store
	publisher EventPublisher
	now       func() time.Time
}

// NewLedgerService wires the store to an optional publisher (nil disables events).
func NewLedgerService(store storage.Store, publisher EventPublisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher, now: time.Now}
}

func (s *LedgerService) AddExpense(ctx context.Context, userID int64, in ExpenseInput) (core.Expense, error) {
	d, err := core.ParseDateOrToday(in.Date, s.now())
	if err != nil {
		return core.Expense{}, err
	}
	e, err := buildExpense(userID, d, in)
	if err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.InsertExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.publish(ctx, amqp.ExpenseCreated, userID, saved.Date.YearMonth())
	return saved, nil
}

// UpdateExpense edits an expense owned by userID. Editing a record that does
// not exist or belongs to someone else does nothing.
func (s *LedgerService) UpdateExpense(ctx context.Context, userID, id int64, in ExpenseInput) error {
	existing, err := s.store.GetExpense(ctx, userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		slog.DebugContext(ctx, "Ignoring edit of unknown expense", "id", id, "user_id", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}

	d := existing.Date
	if strings.TrimSpace(in.Date) != "" {
		if d, err = core.ParseDate(in.Date); err != nil {
			return err
		}
	}
	e, err := buildExpense(userID, d, in)
	if err != nil {
		return err
	}
	e.ID = id
	e.RecurringID = existing.RecurringID

	err = s.store.UpdateExpense(ctx, e)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	s.publish(ctx, amqp.ExpenseUpdated, userID, e.Date.YearMonth())
	if existing.Date.YearMonth() != e.Date.YearMonth() {
		s.publish(ctx, amqp.ExpenseUpdated, userID, existing.Date.YearMonth())
	}
	return nil
}

// DeleteExpense removes an expense owned by userID; anything else is a no-op.
func (s *LedgerService) DeleteExpense(ctx context.Context, userID, id int64) error {
	existing, err := s.store.GetExpense(ctx, userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}

	if err := s.store.DeleteExpense(ctx, userID, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publish(ctx, amqp.ExpenseDeleted, userID, existing.Date.YearMonth())
	return nil
}

// AddCategory creates a category for userID. Blank names are ignored and
// existing names are left alone.
func (s *LedgerService) AddCategory(ctx context.Context, userID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if err := s.store.UpsertCategory(ctx, userID, name); err != nil {
		return fmt.Errorf("add category: %w", err)
	}
	s.publish(ctx, amqp.CategoryAdded, userID, core.YearMonth{})
	return nil
}

// SetBudget overwrites the budget of month. A blank amount sets it to zero.
func (s *LedgerService) SetBudget(ctx context.Context, userID int64, month, amount string) (core.Budget, error) {
	ym, ok := core.ParseYearMonth(month)
	if !ok {
		return core.Budget{}, core.ErrInvalidMonth
	}
	var m core.Money
	if strings.TrimSpace(amount) != "" {
		var err error
		if m, err = core.ParseMoney(amount); err != nil {
			return core.Budget{}, err
		}
	}

	b := core.Budget{UserID: userID, Month: ym, Amount: m}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.store.UpsertBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("set budget: %w", err)
	}
	s.publish(ctx, amqp.BudgetSet, userID, ym)
	return b, nil
}

func (s *LedgerService) AddRecurring(ctx context.Context, userID int64, in RecurringInput) (core.RecurringTemplate, error) {
	if strings.TrimSpace(in.Amount) == "" {
		return core.RecurringTemplate{}, core.ErrInvalidAmount
	}
	amount, err := core.ParseMoney(in.Amount)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	every, err := core.ParseRepetition(in.Frequency)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	start, err := core.ParseDateOrToday(in.StartDate, s.now())
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	var end core.Date
	if strings.TrimSpace(in.EndDate) != "" {
		if end, err = core.ParseDate(in.EndDate); err != nil {
			return core.RecurringTemplate{}, err
		}
	}

	rt := core.RecurringTemplate{
		UserID:      userID,
		Amount:      amount,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Every:       every,
		StartDate:   start,
		EndDate:     end,
	}
	if err := rt.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	saved, err := s.store.InsertRecurringTemplate(ctx, rt)
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("save recurring template: %w", err)
	}
	s.publish(ctx, amqp.RecurringCreated, userID, core.YearMonth{})
	return saved, nil
}

func (s *LedgerService) ListExpenses(ctx context.Context, userID int64, month, year string) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, userID, core.ResolvePeriod(month, year))
}

func (s *LedgerService) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, userID)
}

func (s *LedgerService) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.store.ListCategories(ctx, userID)
}

func (s *LedgerService) ListRecurring(ctx context.Context, userID int64) ([]core.RecurringTemplate, error) {
	return s.store.ListRecurringTemplates(ctx, userID)
}

// insertMaterialized stores an expense produced from a template.
func (s *LedgerService) insertMaterialized(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	saved, err := s.store.InsertExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.publish(ctx, amqp.ExpenseCreated, e.UserID, e.Date.YearMonth())
	return saved, nil
}

func (s *LedgerService) publish(ctx context.Context, kind amqp.EventKind, userID int64, month core.YearMonth) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewLedgerEvent(kind, userID, month)
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind,
			"user_id", userID,
			"error", err)
	}
}

func buildExpense(userID int64, d core.Date, in ExpenseInput) (core.Expense, error) {
	if strings.TrimSpace(in.Amount) == "" {
		return core.Expense{}, core.ErrInvalidAmount
	}
	amount, err := core.ParseMoney(in.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		UserID:      userID,
		Date:        d,
		Amount:      amount,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}
