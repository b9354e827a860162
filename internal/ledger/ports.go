// Package ledger defines the storage ports of the finance ledger. The
// memory and storage (SQLite) packages implement them; google mirrors
// transactions to a spreadsheet.
package ledger

import (
	"context"
	"errors"
	"time"

	"ecofinance/internal/core"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Filter selects a user's transactions. From and To are inclusive
// calendar days; zero values leave that side open.
type Filter struct {
	UserID int64
	From   time.Time
	To     time.Time
}

// Match reports whether t passes the filter.
func (f Filter) Match(t core.Transaction) bool {
	if t.UserID != f.UserID {
		return false
	}
	d := core.Day(t.Date)
	if !f.From.IsZero() && d.Before(core.Day(f.From)) {
		return false
	}
	if !f.To.IsZero() && d.After(core.Day(f.To)) {
		return false
	}
	return true
}

// Ports for outbound adapters.
type (
	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
		ListTransactions(ctx context.Context, f Filter) ([]core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id int64) error
		// SeriesDates returns the dates already present in a recurring series.
		SeriesDates(ctx context.Context, seriesID string) ([]time.Time, error)
		CreateSeries(ctx context.Context, s core.RecurringSeries) error
	}

	GoalStore interface {
		ListGoals(ctx context.Context, userID int64) ([]core.Goal, error)
		CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	}

	BudgetStore interface {
		// LatestBudget returns ErrNotFound when the user never set one.
		LatestBudget(ctx context.Context, userID int64) (core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	}

	UserStore interface {
		// CreateUser returns ErrDuplicate when username or email is taken.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		UserByUsername(ctx context.Context, username string) (core.User, error)
		UserByID(ctx context.Context, id int64) (core.User, error)
	}

	CategoryLister interface {
		ListCategories(ctx context.Context) ([]string, error)
	}

	// Store is the full backend used by the server.
	Store interface {
		TransactionStore
		GoalStore
		BudgetStore
		UserStore
		CategoryLister
		Ping(ctx context.Context) error
		Close() error
	}

	// Mirror copies transactions to an external ledger.
	Mirror interface {
		AppendTransactions(ctx context.Context, txs []core.Transaction) (rowRef string, err error)
	}
)

// DefaultCategories seeds the category picker.
var DefaultCategories = []string{
	"Alimentación", "Transporte", "Vivienda", "Servicios", "Salud",
	"Educación", "Ocio", "Sueldo", core.SavingsCategory, "Otros",
}
