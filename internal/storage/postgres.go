package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Store = (*PostgresRepository)(nil)

// PostgresRepository is the pgxpool-backed Store used when DATA_BACKEND=postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, email) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.Email).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return core.User{}, ErrUsernameTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, `WHERE username = $1`, username)
}

func (r *PostgresRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan user ids: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	var u core.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, email, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) ListExpenses(ctx context.Context, userID int64, p core.Period) ([]core.Expense, error) {
	q := `SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = $1`
	args := []any{userID}
	if from, to, ok := p.Range(); ok {
		q += ` AND date >= $2 AND date < $3`
		args = append(args, from.Time, to.Time)
	}
	q += ` ORDER BY date DESC, id DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanPgExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	e, err := scanPgExpense(r.pool.QueryRow(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO expenses (user_id, date, amount_cents, category, description, recurring_id)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		e.UserID, e.Date.Time, e.Amount.Cents, e.Category, e.Description, nullID(e.RecurringID)).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to PostgreSQL",
		"id", e.ID,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category,
		"date", e.Date.String())
	return e, nil
}

func (r *PostgresRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE expenses SET date = $1, amount_cents = $2, category = $3, description = $4
		 WHERE id = $5 AND user_id = $6`,
		e.Date.Time, e.Amount.Cents, e.Category, e.Description, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id, "user_id", userID)
	return nil
}

func (r *PostgresRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, COALESCE(user_id, 0), name FROM categories
		 WHERE user_id = $1 OR user_id IS NULL
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

func (r *PostgresRepository) UpsertCategory(ctx context.Context, userID int64, name string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (user_id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		nullID(userID), name)
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetBudget(ctx context.Context, userID int64, month core.YearMonth) (core.Budget, error) {
	b := core.Budget{UserID: userID, Month: month}
	err := r.pool.QueryRow(ctx,
		`SELECT amount_cents FROM budgets WHERE user_id = $1 AND month = $2`,
		userID, month.String()).Scan(&b.Amount.Cents)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT month, amount_cents FROM budgets WHERE user_id = $1 ORDER BY month DESC`, userID)
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

func (r *PostgresRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO budgets (user_id, month, amount_cents) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, month) DO UPDATE SET amount_cents = EXCLUDED.amount_cents`,
		b.UserID, b.Month.String(), b.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget set", "user_id", b.UserID, "month", b.Month.String(), "amount_cents", b.Amount.Cents)
	return nil
}

const pgRecurringColumns = `id, user_id, amount_cents, category, description, frequency, start_date, end_date, last_execution_date`

func (r *PostgresRepository) ListRecurringTemplates(ctx context.Context, userID int64) ([]core.RecurringTemplate, error) {
	return r.queryRecurring(ctx,
		`SELECT `+pgRecurringColumns+` FROM recurring_expenses WHERE user_id = $1 ORDER BY start_date DESC, id DESC`,
		userID)
}

func (r *PostgresRepository) InsertRecurringTemplate(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO recurring_expenses (user_id, amount_cents, category, description, frequency, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		rt.UserID, rt.Amount.Cents, rt.Category, rt.Description, string(rt.Every),
		rt.StartDate.Time, pgDate(rt.EndDate)).Scan(&rt.ID)
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("create recurring template: %w", err)
	}
	slog.InfoContext(ctx, "Recurring template saved",
		"id", rt.ID,
		"user_id", rt.UserID,
		"frequency", rt.Every,
		"amount_cents", rt.Amount.Cents)
	return rt, nil
}

func (r *PostgresRepository) ListActiveRecurring(ctx context.Context, on core.Date) ([]core.RecurringTemplate, error) {
	return r.queryRecurring(ctx,
		`SELECT `+pgRecurringColumns+` FROM recurring_expenses
		 WHERE start_date <= $1 AND (end_date IS NULL OR end_date >= $1)
		 ORDER BY id`,
		on.Time)
}

func (r *PostgresRepository) MarkRecurringExecuted(ctx context.Context, id int64, on core.Date) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE recurring_expenses SET last_execution_date = $1 WHERE id = $2`, on.Time, id)
	if err != nil {
		return fmt.Errorf("mark recurring executed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) queryRecurring(ctx context.Context, q string, args ...any) ([]core.RecurringTemplate, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		var (
			rt            core.RecurringTemplate
			every         string
			start         time.Time
			end, lastExec *time.Time
		)
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.Amount.Cents, &rt.Category, &rt.Description,
			&every, &start, &end, &lastExec); err != nil {
			return nil, fmt.Errorf("list recurring templates: %w", err)
		}
		rt.Every = core.RepetitionTypes(every)
		rt.StartDate = dateOf(start)
		if end != nil {
			rt.EndDate = dateOf(*end)
		}
		if lastExec != nil {
			rt.LastExecution = dateOf(*lastExec)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func scanPgExpense(row pgx.Row) (core.Expense, error) {
	var (
		e    core.Expense
		date time.Time
	)
	if err := row.Scan(&e.ID, &e.UserID, &date, &e.Amount.Cents, &e.Category, &e.Description, &e.RecurringID); err != nil {
		return core.Expense{}, err
	}
	e.Date = dateOf(date)
	return e, nil
}

func dateOf(t time.Time) core.Date {
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}

func pgDate(d core.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	return &d.Time
}
