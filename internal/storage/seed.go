package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

type seedUser struct {
	username, password, email string
}

var (
	demoUsers = []seedUser{
		{"demo", "demo123", "demo@example.com"},
		{"alice", "alice123", "alice@example.com"},
	}

	// user index into demoUsers, then the record
	demoExpenses = []struct {
		user                  int
		date                  string
		cents                 int64
		category, description string
	}{
		{0, "2026-01-01", 1250, "Food", "Lunch"},
		{0, "2026-01-02", 4000, "Transport", "Monthly pass"},
		{0, "2026-01-03", 2500, "Entertainment", "Movie"},
		{0, "2026-01-04", 12000, "Shopping", "Clothes"},
		{1, "2026-01-05", 1500, "Food", "Coffee"},
	}

	demoCategories = []struct {
		user int
		name string
	}{
		{0, "Food"}, {0, "Transport"}, {0, "Entertainment"}, {0, "Shopping"},
		{1, "Food"}, {1, "Utilities"}, {1, "Entertainment"},
	}

	demoBudgets = []struct {
		user  int
		month string
		cents int64
	}{
		{0, "2026-01", 275000},
		{0, "2026-02", 250000},
		{1, "2026-01", 300000},
	}

	demoRecurring = []struct {
		user                  int
		cents                 int64
		category, description string
	}{
		{0, 5000, "Transport", "Monthly gym"},
		{1, 3000, "Utilities", "Streaming service"},
	}
)

// SeedDemo loads the demo dataset. It does nothing when the demo user
// already exists. hash turns a plain password into its stored form.
func SeedDemo(ctx context.Context, s Store, hash func(string) (string, error)) error {
	if _, err := s.GetUserByUsername(ctx, demoUsers[0].username); err == nil {
		slog.InfoContext(ctx, "Demo data already present, skipping seed")
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("check demo user: %w", err)
	}

	ids := make([]int64, len(demoUsers))
	for i, su := range demoUsers {
		h, err := hash(su.password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", su.username, err)
		}
		u, err := s.CreateUser(ctx, core.User{Username: su.username, PasswordHash: h, Email: su.email})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.username, err)
		}
		ids[i] = u.ID
	}

	for _, de := range demoExpenses {
		d, err := core.ParseDate(de.date)
		if err != nil {
			return err
		}
		if _, err := s.InsertExpense(ctx, core.Expense{
			UserID:      ids[de.user],
			Date:        d,
			Amount:      core.Money{Cents: de.cents},
			Category:    de.category,
			Description: de.description,
		}); err != nil {
			return fmt.Errorf("seed expense: %w", err)
		}
	}

	for _, dc := range demoCategories {
		if err := s.UpsertCategory(ctx, ids[dc.user], dc.name); err != nil {
			return fmt.Errorf("seed category: %w", err)
		}
	}

	for _, db := range demoBudgets {
		ym, _ := core.ParseYearMonth(db.month)
		if err := s.UpsertBudget(ctx, core.Budget{UserID: ids[db.user], Month: ym, Amount: core.Money{Cents: db.cents}}); err != nil {
			return fmt.Errorf("seed budget: %w", err)
		}
	}

	for _, dr := range demoRecurring {
		if _, err := s.InsertRecurringTemplate(ctx, core.RecurringTemplate{
			UserID:      ids[dr.user],
			Amount:      core.Money{Cents: dr.cents},
			Category:    dr.category,
			Description: dr.description,
			Every:       core.Monthly,
			StartDate:   core.NewDate(2026, 1, 1),
		}); err != nil {
			return fmt.Errorf("seed recurring template: %w", err)
		}
	}

	slog.InfoContext(ctx, "Demo data seeded",
		"users", len(demoUsers),
		"expenses", len(demoExpenses),
		"budgets", len(demoBudgets))
	return nil
}
