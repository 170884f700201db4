// Package storage holds the ledger persistence layer: the Store contract,
// the SQLite and PostgreSQL repositories and their embedded migrations.
package storage

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

var (
	// ErrNotFound covers both missing rows and rows owned by another user.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned when a signup collides with an existing user.
	ErrUsernameTaken = errors.New("username already exists")
)

type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUserByID(ctx context.Context, id int64) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		// ListUserIDs returns every user id in ascending order.
		ListUserIDs(ctx context.Context) ([]int64, error)
	}

	// ExpenseStore is user scoped: every lookup and mutation filters on the owner.
	ExpenseStore interface {
		// ListExpenses returns the user's records inside p, newest date first.
		ListExpenses(ctx context.Context, userID int64, p core.Period) ([]core.Expense, error)
		GetExpense(ctx context.Context, userID, id int64) (core.Expense, error)
		InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// UpdateExpense returns ErrNotFound when e.ID is not owned by e.UserID.
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, userID, id int64) error
	}

	CategoryStore interface {
		// ListCategories returns the user's categories and global defaults, by name.
		ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
		// UpsertCategory is a no-op when (user, name) already exists.
		UpsertCategory(ctx context.Context, userID int64, name string) error
	}

	BudgetStore interface {
		GetBudget(ctx context.Context, userID int64, month core.YearMonth) (core.Budget, error)
		// ListBudgets returns budgets newest month first.
		ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
		// UpsertBudget overwrites the amount of an existing (user, month).
		UpsertBudget(ctx context.Context, b core.Budget) error
	}

	RecurringStore interface {
		// ListRecurringTemplates returns templates newest start date first.
		ListRecurringTemplates(ctx context.Context, userID int64) ([]core.RecurringTemplate, error)
		InsertRecurringTemplate(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error)
		// ListActiveRecurring returns every user's templates active on the given day.
		ListActiveRecurring(ctx context.Context, on core.Date) ([]core.RecurringTemplate, error)
		MarkRecurringExecuted(ctx context.Context, id int64, on core.Date) error
	}

	Store interface {
		UserStore
		ExpenseStore
		CategoryStore
		BudgetStore
		RecurringStore
		Ping(ctx context.Context) error
		Close() error
	}
)
