package core

import (
	"sort"
	"time"
)

// goalDueSoonDays is the window in which a goal counts as "por vencer".
const goalDueSoonDays = 10

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthAmount is the expense total of one month.
type MonthAmount struct {
	Period Period
	Amount Money
}

// GoalStatus is a goal with its computed progress and deadline status.
type GoalStatus struct {
	Goal
	Progress float64 // percent, one decimal
	DaysLeft int
	HasDue   bool
}

func (g GoalStatus) DueSoon() bool { return g.HasDue && g.DaysLeft >= 0 && g.DaysLeft <= goalDueSoonDays }
func (g GoalStatus) Overdue() bool { return g.HasDue && g.DaysLeft < 0 }

// DaysOverdue is the positive number of days past the deadline.
func (g GoalStatus) DaysOverdue() int {
	if g.DaysLeft < 0 {
		return -g.DaysLeft
	}
	return 0
}

// DashboardSummary is everything the dashboard page shows for a period.
type DashboardSummary struct {
	Period       Period
	Income       Money
	Expenses     Money
	Balance      Money
	ByCategory   []CategoryAmount
	Monthly      []MonthAmount
	Goals        []GoalStatus
	Budget       Money
	HasBudget    bool
	BudgetUsed   Money
	BudgetExceed bool
}

func (s DashboardSummary) DueSoon() []GoalStatus {
	var out []GoalStatus
	for _, g := range s.Goals {
		if g.DueSoon() {
			out = append(out, g)
		}
	}
	return out
}

func (s DashboardSummary) Overdue() []GoalStatus {
	var out []GoalStatus
	for _, g := range s.Goals {
		if g.Overdue() {
			out = append(out, g)
		}
	}
	return out
}

// Progress returns actual/target*100 rounded to one decimal.
func (g Goal) Progress() float64 {
	if !g.Target.IsPositive() {
		return 0
	}
	pct := g.Current.Decimal().Div(g.Target.Decimal()).Shift(2).Round(1)
	return pct.InexactFloat64()
}

// Status evaluates a goal against today.
func (g Goal) Status(today time.Time) GoalStatus {
	st := GoalStatus{Goal: g, Progress: g.Progress()}
	if !g.Deadline.IsZero() {
		st.HasDue = true
		st.DaysLeft = int(Day(g.Deadline).Sub(Day(today)).Hours() / 24)
	}
	return st
}

// Balance sums income minus expenses for rows dated on or before today.
// Future rows of recurring series are ignored until they happen.
func Balance(txs []Transaction, today time.Time) (income, expenses, balance Money) {
	cutoff := Day(today)
	for _, t := range txs {
		if Day(t.Date).After(cutoff) {
			continue
		}
		switch t.Type {
		case Income:
			income = income.Add(t.Amount)
		case Expense:
			expenses = expenses.Add(t.Amount)
		}
	}
	return income, expenses, income.Sub(expenses)
}

// CategoryBreakdown totals GASTO rows of the period per category, largest
// first; ties keep alphabetical order.
func CategoryBreakdown(txs []Transaction, p Period) []CategoryAmount {
	totals := map[string]Money{}
	for _, t := range txs {
		if t.Type != Expense || !p.Contains(t.Date) {
			continue
		}
		name := t.Category
		if name == "" {
			name = "Sin categoría"
		}
		totals[name] = totals[name].Add(t.Amount)
	}
	out := make([]CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Decimal().Cmp(out[j].Amount.Decimal()); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MonthlyExpenses totals GASTO rows for each of the months ending at end.
func MonthlyExpenses(txs []Transaction, end Period, months int) []MonthAmount {
	periods := RecentPeriods(end, months)
	idx := make(map[Period]int, len(periods))
	out := make([]MonthAmount, len(periods))
	for i, p := range periods {
		idx[p] = i
		out[i] = MonthAmount{Period: p}
	}
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		if i, ok := idx[PeriodOf(t.Date)]; ok {
			out[i].Amount = out[i].Amount.Add(t.Amount)
		}
	}
	return out
}

// SummaryInput groups what Summarize needs.
type SummaryInput struct {
	Period       Period
	Today        time.Time
	Transactions []Transaction
	Goals        []Goal
	Budget       *Budget
	Months       int
}

// Summarize computes the dashboard aggregates.
func Summarize(in SummaryInput) DashboardSummary {
	months := in.Months
	if months <= 0 {
		months = 6
	}
	s := DashboardSummary{Period: in.Period}
	s.Income, s.Expenses, s.Balance = Balance(in.Transactions, in.Today)
	s.ByCategory = CategoryBreakdown(in.Transactions, in.Period)
	s.Monthly = MonthlyExpenses(in.Transactions, in.Period, months)

	goals := append([]Goal(nil), in.Goals...)
	sortGoalsByDeadline(goals)
	for _, g := range goals {
		s.Goals = append(s.Goals, g.Status(in.Today))
	}

	if in.Budget != nil {
		s.HasBudget = true
		s.Budget = in.Budget.Amount
		for _, c := range s.ByCategory {
			if c.Name == SavingsCategory {
				continue
			}
			s.BudgetUsed = s.BudgetUsed.Add(c.Amount)
		}
		s.BudgetExceed = s.BudgetUsed.Decimal().GreaterThan(s.Budget.Decimal())
	}
	return s
}

// sortGoalsByDeadline orders goals by deadline, goals without one last.
func sortGoalsByDeadline(goals []Goal) {
	sort.SliceStable(goals, func(i, j int) bool {
		a, b := goals[i].Deadline, goals[j].Deadline
		switch {
		case a.IsZero() && b.IsZero():
			return goals[i].ID < goals[j].ID
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		}
		return a.Before(b)
	})
}

// SortGoals is the ordering used by the goals page.
func SortGoals(goals []Goal) { sortGoalsByDeadline(goals) }

// MonthGroup is one month of the transactions list.
type MonthGroup struct {
	Period       Period
	Transactions []Transaction
	Income       Money
	Expenses     Money
}

// GroupByMonth groups transactions by month, newest month first and newest
// row first within each month. Rows after today are dropped unless
// includeFuture is set.
func GroupByMonth(txs []Transaction, today time.Time, includeFuture bool) []MonthGroup {
	rows := make([]Transaction, 0, len(txs))
	cutoff := Day(today)
	for _, t := range txs {
		if !includeFuture && Day(t.Date).After(cutoff) {
			continue
		}
		rows = append(rows, t)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		return rows[i].ID > rows[j].ID
	})

	var groups []MonthGroup
	for _, t := range rows {
		p := PeriodOf(t.Date)
		if len(groups) == 0 || groups[len(groups)-1].Period != p {
			groups = append(groups, MonthGroup{Period: p})
		}
		g := &groups[len(groups)-1]
		g.Transactions = append(g.Transactions, t)
		if t.Type == Income {
			g.Income = g.Income.Add(t.Amount)
		} else {
			g.Expenses = g.Expenses.Add(t.Amount)
		}
	}
	return groups
}
