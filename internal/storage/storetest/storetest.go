// Package storetest holds behavior checks shared by every storage.Store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Run exercises s against the Store contract. s must be empty.
func Run(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	t.Run("duplicate username", func(t *testing.T) {
		_, err := s.CreateUser(ctx, core.User{Username: "alice", PasswordHash: "x"})
		if !errors.Is(err, storage.ErrUsernameTaken) {
			t.Fatalf("err = %v, want ErrUsernameTaken", err)
		}
	})

	t.Run("user lookups", func(t *testing.T) {
		u, err := s.GetUserByUsername(ctx, "alice")
		if err != nil || u.ID != alice {
			t.Fatalf("GetUserByUsername = %+v, %v", u, err)
		}
		if _, err := s.GetUserByID(ctx, 999999); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("missing user err = %v", err)
		}
		ids, err := s.ListUserIDs(ctx)
		if err != nil || len(ids) != 2 || ids[0] != alice || ids[1] != bob {
			t.Fatalf("ListUserIDs = %v, %v", ids, err)
		}
	})

	t.Run("expenses are user scoped and ordered", func(t *testing.T) {
		first := mustExpense(t, s, alice, "2026-01-10", 1000, "Food")
		mustExpense(t, s, alice, "2026-02-03", 2500, "Transport")
		mustExpense(t, s, alice, "2025-12-31", 700, "Food")
		mustExpense(t, s, bob, "2026-01-11", 9900, "Food")

		all, err := s.ListExpenses(ctx, alice, core.AllTime)
		if err != nil {
			t.Fatalf("ListExpenses: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("got %d expenses, want 3", len(all))
		}
		want := []string{"2026-02-03", "2026-01-10", "2025-12-31"}
		for i, e := range all {
			if e.Date.String() != want[i] {
				t.Fatalf("order[%d] = %s, want %s", i, e.Date, want[i])
			}
		}

		jan, _ := s.ListExpenses(ctx, alice, core.ResolvePeriod("2026-01", ""))
		if len(jan) != 1 || jan[0].ID != first.ID {
			t.Fatalf("month filter = %+v", jan)
		}
		y2026, _ := s.ListExpenses(ctx, alice, core.YearPeriod(2026))
		if len(y2026) != 2 {
			t.Fatalf("year filter returned %d", len(y2026))
		}

		if _, err := s.GetExpense(ctx, bob, first.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("foreign GetExpense err = %v", err)
		}
	})

	t.Run("update and delete respect ownership", func(t *testing.T) {
		e := mustExpense(t, s, alice, "2026-03-01", 100, "Misc")

		stolen := e
		stolen.UserID = bob
		stolen.Amount = core.Money{Cents: 1}
		if err := s.UpdateExpense(ctx, stolen); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("foreign update err = %v", err)
		}
		if err := s.DeleteExpense(ctx, bob, e.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("foreign delete err = %v", err)
		}

		e.Amount = core.Money{Cents: 250}
		e.Description = "edited"
		if err := s.UpdateExpense(ctx, e); err != nil {
			t.Fatalf("UpdateExpense: %v", err)
		}
		got, err := s.GetExpense(ctx, alice, e.ID)
		if err != nil || got.Amount.Cents != 250 || got.Description != "edited" {
			t.Fatalf("after update = %+v, %v", got, err)
		}

		if err := s.DeleteExpense(ctx, alice, e.ID); err != nil {
			t.Fatalf("DeleteExpense: %v", err)
		}
		if _, err := s.GetExpense(ctx, alice, e.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("deleted expense still present: %v", err)
		}
	})

	t.Run("categories merge globals and dedupe", func(t *testing.T) {
		for _, name := range []string{"Zoo", "Food", "Food"} {
			if err := s.UpsertCategory(ctx, alice, name); err != nil {
				t.Fatalf("UpsertCategory: %v", err)
			}
		}
		if err := s.UpsertCategory(ctx, 0, "Food"); err != nil {
			t.Fatalf("global UpsertCategory: %v", err)
		}
		if err := s.UpsertCategory(ctx, 0, "Bills"); err != nil {
			t.Fatalf("global UpsertCategory: %v", err)
		}

		cats, err := s.ListCategories(ctx, alice)
		if err != nil {
			t.Fatalf("ListCategories: %v", err)
		}
		var names []string
		for _, c := range cats {
			names = append(names, c.Name)
		}
		if len(names) != 3 || names[0] != "Bills" || names[1] != "Food" || names[2] != "Zoo" {
			t.Fatalf("categories = %v", names)
		}

		bobs, _ := s.ListCategories(ctx, bob)
		for _, c := range bobs {
			if c.Name == "Zoo" {
				t.Fatalf("bob sees alice's category")
			}
		}
	})

	t.Run("budget upsert overwrites", func(t *testing.T) {
		jan := core.YearMonth{Year: 2026, Month: 1}
		feb := core.YearMonth{Year: 2026, Month: 2}
		if _, err := s.GetBudget(ctx, alice, jan); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("missing budget err = %v", err)
		}
		for _, b := range []core.Budget{
			{UserID: alice, Month: jan, Amount: core.Money{Cents: 100}},
			{UserID: alice, Month: feb, Amount: core.Money{Cents: 200}},
			{UserID: alice, Month: jan, Amount: core.Money{Cents: 275000}},
		} {
			if err := s.UpsertBudget(ctx, b); err != nil {
				t.Fatalf("UpsertBudget: %v", err)
			}
		}
		b, err := s.GetBudget(ctx, alice, jan)
		if err != nil || b.Amount.Cents != 275000 {
			t.Fatalf("GetBudget = %+v, %v", b, err)
		}
		list, _ := s.ListBudgets(ctx, alice)
		if len(list) != 2 || list[0].Month != feb {
			t.Fatalf("ListBudgets = %+v", list)
		}
	})

	t.Run("recurring templates", func(t *testing.T) {
		older, err := s.InsertRecurringTemplate(ctx, core.RecurringTemplate{
			UserID: alice, Amount: core.Money{Cents: 5000}, Category: "Transport",
			Description: "gym", Every: core.Monthly, StartDate: core.NewDate(2026, 1, 1),
		})
		if err != nil {
			t.Fatalf("InsertRecurringTemplate: %v", err)
		}
		if _, err := s.InsertRecurringTemplate(ctx, core.RecurringTemplate{
			UserID: alice, Amount: core.Money{Cents: 100}, Category: "Fun",
			Every: core.Yearly, StartDate: core.NewDate(2026, 5, 1), EndDate: core.NewDate(2026, 6, 1),
		}); err != nil {
			t.Fatalf("InsertRecurringTemplate: %v", err)
		}

		list, err := s.ListRecurringTemplates(ctx, alice)
		if err != nil || len(list) != 2 || list[0].StartDate.String() != "2026-05-01" {
			t.Fatalf("ListRecurringTemplates = %+v, %v", list, err)
		}

		active, _ := s.ListActiveRecurring(ctx, core.NewDate(2026, 7, 1))
		if len(active) != 1 || active[0].ID != older.ID {
			t.Fatalf("active = %+v", active)
		}

		if err := s.MarkRecurringExecuted(ctx, older.ID, core.NewDate(2026, 7, 1)); err != nil {
			t.Fatalf("MarkRecurringExecuted: %v", err)
		}
		active, _ = s.ListActiveRecurring(ctx, core.NewDate(2026, 7, 2))
		if len(active) != 1 || active[0].LastExecution.String() != "2026-07-01" {
			t.Fatalf("last execution not recorded: %+v", active)
		}
	})
}

func mustUser(t *testing.T, s storage.Store, name string) int64 {
	t.Helper()
	u, err := s.CreateUser(context.Background(), core.User{Username: name, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u.ID
}

func mustExpense(t *testing.T, s storage.Store, userID int64, date string, cents int64, category string) core.Expense {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("ParseDate(%s): %v", date, err)
	}
	e, err := s.InsertExpense(context.Background(), core.Expense{
		UserID: userID, Date: d, Amount: core.Money{Cents: cents}, Category: category,
	})
	if err != nil {
		t.Fatalf("InsertExpense: %v", err)
	}
	return e
}
