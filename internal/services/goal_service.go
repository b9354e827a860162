package services

import (
	"context"
	"fmt"
	"time"

	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
)

// GoalService manages savings goals and the spending budget.
type GoalService struct {
	goals   ledger.GoalStore
	budgets ledger.BudgetStore
	inv     []Invalidator
}

func NewGoalService(goals ledger.GoalStore, budgets ledger.BudgetStore, inv ...Invalidator) *GoalService {
	return &GoalService{goals: goals, budgets: budgets, inv: inv}
}

// GoalOverview is the goals page: every goal with its status, plus the
// ones due soon and the overdue ones.
type GoalOverview struct {
	Goals   []core.GoalStatus
	DueSoon []core.GoalStatus
	Overdue []core.GoalStatus
}

// Overview classifies the user's goals as of today, ordered by deadline.
func (s *GoalService) Overview(ctx context.Context, userID int64, today time.Time) (GoalOverview, error) {
	goals, err := s.goals.ListGoals(ctx, userID)
	if err != nil {
		return GoalOverview{}, fmt.Errorf("list goals: %w", err)
	}
	core.SortGoals(goals)

	var o GoalOverview
	for _, g := range goals {
		st := g.Status(today)
		o.Goals = append(o.Goals, st)
		switch {
		case st.DueSoon():
			o.DueSoon = append(o.DueSoon, st)
		case st.Overdue():
			o.Overdue = append(o.Overdue, st)
		}
	}
	return o, nil
}

func (s *GoalService) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	created, err := s.goals.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	s.invalidate(g.UserID)
	return created, nil
}

// SetBudget records a new budget; the latest one is the active budget.
func (s *GoalService) SetBudget(ctx context.Context, userID int64, amount core.Money) (core.Budget, error) {
	if err := amount.Validate(); err != nil {
		return core.Budget{}, err
	}
	b, err := s.budgets.CreateBudget(ctx, core.Budget{UserID: userID, Amount: amount})
	if err != nil {
		return core.Budget{}, fmt.Errorf("set budget: %w", err)
	}
	s.invalidate(userID)
	return b, nil
}

// CurrentBudget returns the active budget, ledger.ErrNotFound when none.
func (s *GoalService) CurrentBudget(ctx context.Context, userID int64) (core.Budget, error) {
	return s.budgets.LatestBudget(ctx, userID)
}

func (s *GoalService) invalidate(userID int64) {
	for _, inv := range s.inv {
		inv.Invalidate(userID)
	}
}
