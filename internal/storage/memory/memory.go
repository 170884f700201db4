// Package memory is a process-local storage.Store used for DATA_BACKEND=memory and tests.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu         sync.Mutex
	nextID     int64
	users      []core.User
	expenses   []core.Expense
	categories []core.Category
	budgets    map[budgetKey]core.Money
	recurring  []core.RecurringTemplate
}

type budgetKey struct {
	userID int64
	month  core.YearMonth
}

// New returns an empty store with the given global categories.
func New(globalCategories ...string) *Store {
	s := &Store{budgets: make(map[budgetKey]core.Money)}
	for _, name := range dedupe(globalCategories) {
		s.nextID++
		s.categories = append(s.categories, core.Category{ID: s.nextID, Name: name})
	}
	return s
}

// NewFromFiles seeds global categories from base/seed_categories.txt,
// one per line with # comments.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = []string{"Groceries", "Transport", "Utilities"}
	}
	return New(cats...)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return core.User{}, storage.ErrUsernameTaken
		}
	}
	u.ID = s.id()
	u.CreatedAt = time.Now().UTC()
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (s *Store) ListUserIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.users))
	for _, u := range s.users {
		ids = append(ids, u.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) ListExpenses(_ context.Context, userID int64, p core.Period) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID && p.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, userID, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.expenseIndex(userID, id); i >= 0 {
		return s.expenses[i], nil
	}
	return core.Expense{}, storage.ErrNotFound
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(e.UserID, e.ID)
	if i < 0 {
		return storage.ErrNotFound
	}
	e.RecurringID = s.expenses[i].RecurringID
	s.expenses[i] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(userID, id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
	return nil
}

func (s *Store) expenseIndex(userID, id int64) int {
	for i, e := range s.expenses {
		if e.ID == id && e.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *Store) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byName := make(map[string]core.Category)
	for _, c := range s.categories {
		if c.UserID != userID && c.UserID != 0 {
			continue
		}
		if prev, ok := byName[c.Name]; ok && prev.UserID != 0 {
			continue
		}
		byName[c.Name] = c
	}
	out := make([]core.Category, 0, len(byName))
	for _, c := range byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpsertCategory(_ context.Context, userID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.UserID == userID && c.Name == name {
			return nil
		}
	}
	s.categories = append(s.categories, core.Category{ID: s.id(), UserID: userID, Name: name})
	return nil
}

func (s *Store) GetBudget(_ context.Context, userID int64, month core.YearMonth) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	amount, ok := s.budgets[budgetKey{userID, month}]
	if !ok {
		return core.Budget{}, storage.ErrNotFound
	}
	return core.Budget{UserID: userID, Month: month, Amount: amount}, nil
}

func (s *Store) ListBudgets(_ context.Context, userID int64) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for k, amount := range s.budgets {
		if k.userID == userID {
			out = append(out, core.Budget{UserID: userID, Month: k.month, Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.String() > out[j].Month.String() })
	return out, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[budgetKey{b.UserID, b.Month}] = b.Amount
	return nil
}

func (s *Store) ListRecurringTemplates(_ context.Context, userID int64) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringTemplate
	for _, rt := range s.recurring {
		if rt.UserID == userID {
			out = append(out, rt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate.Time) {
			return out[i].StartDate.After(out[j].StartDate.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) InsertRecurringTemplate(_ context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	if err := rt.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rt.ID = s.id()
	s.recurring = append(s.recurring, rt)
	return rt, nil
}

func (s *Store) ListActiveRecurring(_ context.Context, on core.Date) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringTemplate
	for _, rt := range s.recurring {
		if rt.ActiveOn(on) {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (s *Store) MarkRecurringExecuted(_ context.Context, id int64, on core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recurring {
		if s.recurring[i].ID == id {
			s.recurring[i].LastExecution = on
			return nil
		}
	}
	return storage.ErrNotFound
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
