package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

var _ Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

// sqliteDSN enables foreign keys and a busy timeout on every pooled connection.
func sqliteDSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, email) VALUES (?, ?, ?)`,
		u.Username, u.PasswordHash, u.Email)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, ErrUsernameTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id, "username", u.Username)
	return r.GetUserByID(ctx, id)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, email, created_at FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, email, created_at FROM users WHERE username = ?`, username))
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (core.User, error) {
	var (
		u       core.User
		created string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, ErrNotFound
		}
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = parseTimestamp(created)
	return u, nil
}

// Expenses

const expenseColumns = `id, user_id, date, amount_cents, category, description, COALESCE(recurring_id, 0)`

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, p core.Period) ([]core.Expense, error) {
	q := `SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if from, to, ok := p.Range(); ok {
		q += ` AND date >= ? AND date < ?`
		args = append(args, from.String(), to.String())
	}
	q += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, date, amount_cents, category, description, recurring_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Date.String(), e.Amount.Cents, e.Category, e.Description, nullID(e.RecurringID))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category,
		"date", e.Date.String())
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, amount_cents = ?, category = ?, description = ?
		 WHERE id = ? AND user_id = ?`,
		e.Date.String(), e.Amount.Cents, e.Category, e.Description, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return affectedOne(res, "update expense")
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if err := affectedOne(res, "delete expense"); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id, "user_id", userID)
	return nil
}

// Categories

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, COALESCE(user_id, 0), name FROM categories
		 WHERE user_id = ? OR user_id IS NULL
		 ORDER BY name, user_id IS NULL`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return dedupeCategories(out), nil
}

func (r *SQLiteRepository) UpsertCategory(ctx context.Context, userID int64, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		nullID(userID), name)
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

// Budgets

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID int64, month core.YearMonth) (core.Budget, error) {
	b := core.Budget{UserID: userID, Month: month}
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_cents FROM budgets WHERE user_id = ? AND month = ?`,
		userID, month.String()).Scan(&b.Amount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month, amount_cents FROM budgets WHERE user_id = ? ORDER BY month DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			b     = core.Budget{UserID: userID}
			month string
		)
		if err := rows.Scan(&month, &b.Amount.Cents); err != nil {
			return nil, fmt.Errorf("list budgets: %w", err)
		}
		ym, ok := core.ParseYearMonth(month)
		if !ok {
			return nil, fmt.Errorf("list budgets: bad month %q", month)
		}
		b.Month = ym
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, month, amount_cents) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, month) DO UPDATE SET amount_cents = excluded.amount_cents`,
		b.UserID, b.Month.String(), b.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget set", "user_id", b.UserID, "month", b.Month.String(), "amount_cents", b.Amount.Cents)
	return nil
}

// Recurring templates

const recurringColumns = `id, user_id, amount_cents, category, description, frequency, start_date,
	COALESCE(end_date, ''), COALESCE(last_execution_date, '')`

func (r *SQLiteRepository) ListRecurringTemplates(ctx context.Context, userID int64) ([]core.RecurringTemplate, error) {
	return r.queryRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE user_id = ? ORDER BY start_date DESC, id DESC`,
		userID)
}

func (r *SQLiteRepository) InsertRecurringTemplate(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_expenses (user_id, amount_cents, category, description, frequency, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rt.UserID, rt.Amount.Cents, rt.Category, rt.Description, string(rt.Every),
		rt.StartDate.String(), nullDate(rt.EndDate))
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("create recurring template: %w", err)
	}
	if rt.ID, err = res.LastInsertId(); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("create recurring template: %w", err)
	}

	slog.InfoContext(ctx, "Recurring template saved",
		"id", rt.ID,
		"user_id", rt.UserID,
		"frequency", rt.Every,
		"amount_cents", rt.Amount.Cents)
	return rt, nil
}

func (r *SQLiteRepository) ListActiveRecurring(ctx context.Context, on core.Date) ([]core.RecurringTemplate, error) {
	day := on.String()
	return r.queryRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses
		 WHERE start_date <= ? AND (end_date IS NULL OR end_date = '' OR end_date >= ?)
		 ORDER BY id`,
		day, day)
}

func (r *SQLiteRepository) MarkRecurringExecuted(ctx context.Context, id int64, on core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET last_execution_date = ? WHERE id = ?`, on.String(), id)
	if err != nil {
		return fmt.Errorf("mark recurring executed: %w", err)
	}
	return affectedOne(res, "mark recurring executed")
}

func (r *SQLiteRepository) queryRecurring(ctx context.Context, q string, args ...any) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		var (
			rt                   core.RecurringTemplate
			every                string
			start, end, lastExec string
		)
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.Amount.Cents, &rt.Category, &rt.Description,
			&every, &start, &end, &lastExec); err != nil {
			return nil, fmt.Errorf("list recurring templates: %w", err)
		}
		rt.Every = core.RepetitionTypes(every)
		if rt.StartDate, err = core.ParseDate(start); err != nil {
			return nil, fmt.Errorf("recurring template %d start date %q: %w", rt.ID, start, err)
		}
		rt.EndDate, _ = optionalDate(end)
		rt.LastExecution, _ = optionalDate(lastExec)
		out = append(out, rt)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	if err := s.Scan(&e.ID, &e.UserID, &date, &e.Amount.Cents, &e.Category, &e.Description, &e.RecurringID); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d date %q: %w", e.ID, date, err)
	}
	e.Date = d
	return e, nil
}

func affectedOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullDate(d core.Date) sql.NullString {
	return sql.NullString{String: d.String(), Valid: !d.IsZero()}
}

func optionalDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// dedupeCategories keeps the first entry per name; callers order user rows
// before global ones.
func dedupeCategories(in []core.Category) []core.Category {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, c := range in {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}
