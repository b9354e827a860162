package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ecofinance/internal/cache"
	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
)

// DashboardLoader gathers a user's ledger data for a period and computes
// the dashboard aggregates. Results are cached per user, period and day.
type DashboardLoader struct {
	txs     ledger.TransactionStore
	goals   ledger.GoalStore
	budgets ledger.BudgetStore
	months  int
	cache   cache.Cache[core.DashboardSummary]

	mu          sync.Mutex
	generations map[int64]uint64
}

func NewDashboardLoader(txs ledger.TransactionStore, goals ledger.GoalStore, budgets ledger.BudgetStore, c cache.Cache[core.DashboardSummary]) *DashboardLoader {
	return &DashboardLoader{
		txs:         txs,
		goals:       goals,
		budgets:     budgets,
		months:      6,
		cache:       c,
		generations: make(map[int64]uint64),
	}
}

func summaryKey(userID int64, p core.Period, today time.Time) string {
	return fmt.Sprintf("%d|%s|%s", userID, p, today.Format(time.DateOnly))
}

// Load returns the summary for period p as seen on today. The three stores
// are queried concurrently.
func (l *DashboardLoader) Load(ctx context.Context, userID int64, p core.Period, today time.Time) (core.DashboardSummary, error) {
	key := summaryKey(userID, p, today)
	if l.cache != nil {
		if s, ok := l.cache.Get(key); ok {
			return s, nil
		}
	}

	gen := l.generation(userID)

	var (
		txs    []core.Transaction
		goals  []core.Goal
		budget *core.Budget
	)
	to := p.End()
	if today.After(to) {
		to = today
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = l.txs.ListTransactions(gctx, ledger.Filter{UserID: userID, To: to})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		goals, err = l.goals.ListGoals(gctx, userID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		b, err := l.budgets.LatestBudget(gctx, userID)
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("latest budget: %w", err)
		}
		budget = &b
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.DashboardSummary{}, err
	}

	s := core.Summarize(core.SummaryInput{
		Period:       p,
		Today:        today,
		Transactions: txs,
		Goals:        goals,
		Budget:       budget,
		Months:       l.months,
	})
	l.store(userID, gen, key, s)
	return s, nil
}

func (l *DashboardLoader) generation(userID int64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[userID]
}

// store skips summaries computed before the user's last invalidation.
func (l *DashboardLoader) store(userID int64, gen uint64, key string, s core.DashboardSummary) {
	if l.cache == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generations[userID] == gen {
		l.cache.Set(key, s)
	}
}

// Invalidate drops the user's cached summaries.
func (l *DashboardLoader) Invalidate(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generations[userID]++
	if l.cache != nil {
		l.cache.DeletePrefix(fmt.Sprintf("%d|", userID))
	}
}
