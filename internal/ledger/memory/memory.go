// Package memory is an in-process ledger store used for local runs and
// tests. Data is lost on restart.
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

	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
)

type Store struct {
	mu      sync.Mutex
	cats    []string
	nextID  int64
	txs     map[int64]core.Transaction
	series  map[string]core.RecurringSeries
	goals   []core.Goal
	budgets []core.Budget
	users   []core.User
	now     func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New(cats []string) *Store {
	cats = dedupe(cats)
	if len(cats) == 0 {
		cats = append([]string(nil), ledger.DefaultCategories...)
	}
	return &Store{
		cats:   cats,
		txs:    map[int64]core.Transaction{},
		series: map[string]core.RecurringSeries{},
		now:    time.Now,
	}
}

// NewFromFiles seeds categories from base/seed_categories.txt, one per line
// ('#' starts a comment). Missing files fall back to the defaults.
func NewFromFiles(base string) *Store {
	return New(readLines(filepath.Join(base, "seed_categories.txt")))
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	s.txs[t.ID] = t
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return t, nil
}

// ListTransactions returns matching rows newest first.
func (s *Store) ListTransactions(_ context.Context, f ledger.Filter) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.UserID != userID {
		return ledger.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) SeriesDates(_ context.Context, seriesID string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Time
	for _, t := range s.txs {
		if t.SeriesID == seriesID {
			out = append(out, t.Date)
		}
	}
	return out, nil
}

func (s *Store) CreateSeries(_ context.Context, rs core.RecurringSeries) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[rs.ID]; ok {
		return ledger.ErrDuplicate
	}
	if rs.CreatedAt.IsZero() {
		rs.CreatedAt = s.now()
	}
	s.series[rs.ID] = rs
	return nil
}

func (s *Store) ListGoals(_ context.Context, userID int64) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	core.SortGoals(out)
	return out, nil
}

func (s *Store) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.id()
	s.goals = append(s.goals, g)
	return g, nil
}

func (s *Store) LatestBudget(_ context.Context, userID int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.budgets) - 1; i >= 0; i-- {
		if s.budgets[i].UserID == userID {
			return s.budgets[i], nil
		}
	}
	return core.Budget{}, ledger.ErrNotFound
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Amount.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) ||
			(u.Email != "" && strings.EqualFold(existing.Email, u.Email)) {
			return core.User{}, ledger.ErrDuplicate
		}
	}
	u.ID = s.id()
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return core.User{}, ledger.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, ledger.ErrNotFound
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cats...), nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

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
	return out
}

// dedupe trims and drops repeats, keeping input order.
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
