package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func money(t *testing.T, s string) core.Money {
	t.Helper()
	m, err := core.ParseMoney(s)
	if err != nil {
		t.Fatalf("ParseMoney(%q): %v", s, err)
	}
	return m
}

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestSeededCategories(t *testing.T) {
	repo := newTestRepo(t)
	cats, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 10 || cats[0] != "Alimentación" || cats[8] != core.SavingsCategory {
		t.Fatalf("categories = %v", cats)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.CreateSeries(ctx, core.RecurringSeries{ID: "serie-1", UserID: 1, Active: true}); err != nil {
		t.Fatalf("create series: %v", err)
	}
	if err := repo.CreateSeries(ctx, core.RecurringSeries{ID: "serie-1", UserID: 1}); !errors.Is(err, ledger.ErrDuplicate) {
		t.Fatalf("duplicate series = %v", err)
	}

	in := core.Transaction{
		UserID:      1,
		Description: "Arriendo",
		Amount:      money(t, "450000.50"),
		Type:        core.Expense,
		Date:        day(2024, 3, 5),
		Category:    "Vivienda",
		Recurring:   true,
		Periodicity: core.Monthly,
		StartDate:   day(2024, 3, 5),
		SeriesID:    "serie-1",
	}
	created, err := repo.CreateTransaction(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected id")
	}

	got, err := repo.GetTransaction(ctx, 1, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Amount.Equal(in.Amount) || !got.Date.Equal(in.Date) || got.Periodicity != core.Monthly ||
		!got.StartDate.Equal(in.StartDate) || !got.EndDate.IsZero() || got.SeriesID != "serie-1" || !got.Recurring {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := repo.GetTransaction(ctx, 2, created.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("other user get = %v", err)
	}

	dates, err := repo.SeriesDates(ctx, "serie-1")
	if err != nil || len(dates) != 1 || !dates[0].Equal(day(2024, 3, 5)) {
		t.Fatalf("series dates = %v, %v", dates, err)
	}
}

func TestListTransactionsFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, d := range []time.Time{day(2024, 2, 28), day(2024, 3, 1), day(2024, 3, 31), day(2024, 3, 15), day(2024, 4, 1)} {
		if _, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID: 1, Description: "x", Amount: core.MoneyFromInt(1000), Type: core.Expense, Date: d,
		}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: 2, Description: "y", Amount: core.MoneyFromInt(1), Type: core.Income, Date: day(2024, 3, 10),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListTransactions(ctx, ledger.Filter{UserID: 1, From: day(2024, 3, 1), To: day(2024, 3, 31)})
	if err != nil {
		t.Fatal(err)
	}
	want := []time.Time{day(2024, 3, 31), day(2024, 3, 15), day(2024, 3, 1)}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Date.Equal(want[i]) {
			t.Errorf("row %d date = %v, want %v", i, got[i].Date, want[i])
		}
	}

	all, err := repo.ListTransactions(ctx, ledger.Filter{UserID: 1})
	if err != nil || len(all) != 5 {
		t.Fatalf("open filter = %d rows, %v", len(all), err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: 1, Description: "Café", Amount: core.MoneyFromInt(2500), Type: core.Expense, Date: day(2024, 3, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteTransaction(ctx, 2, tx.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("delete by other user = %v", err)
	}
	if err := repo.DeleteTransaction(ctx, 1, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, 1, tx.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("second delete = %v", err)
	}
}

func TestGoalsAndBudgets(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.CreateGoal(ctx, core.Goal{UserID: 1, Name: "Sin fecha", Target: core.MoneyFromInt(100)}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateGoal(ctx, core.Goal{UserID: 1, Name: "Viaje", Target: core.MoneyFromInt(500), Current: core.MoneyFromInt(50), Deadline: day(2024, 12, 1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateGoal(ctx, core.Goal{UserID: 1, Name: "Malo", Target: core.MoneyFromInt(0)}); err == nil {
		t.Fatal("expected validation error for zero target")
	}

	goals, err := repo.ListGoals(ctx, 1)
	if err != nil || len(goals) != 2 {
		t.Fatalf("goals = %+v, %v", goals, err)
	}
	if goals[0].Name != "Viaje" || !goals[0].Deadline.Equal(day(2024, 12, 1)) || !goals[1].Deadline.IsZero() {
		t.Fatalf("goal order = %+v", goals)
	}

	if _, err := repo.LatestBudget(ctx, 1); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("no budget = %v", err)
	}
	if _, err := repo.CreateBudget(ctx, core.Budget{UserID: 1, Amount: core.MoneyFromInt(300000)}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateBudget(ctx, core.Budget{UserID: 1, Amount: core.MoneyFromInt(250000)}); err != nil {
		t.Fatal(err)
	}
	b, err := repo.LatestBudget(ctx, 1)
	if err != nil || !b.Amount.Equal(core.MoneyFromInt(250000)) || b.CreatedAt.IsZero() {
		t.Fatalf("latest budget = %+v, %v", b, err)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u, err := repo.CreateUser(ctx, core.User{Username: "ana", Email: "ana@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateUser(ctx, core.User{Username: "ANA", Email: "x@example.com", PasswordHash: "h"}); !errors.Is(err, ledger.ErrDuplicate) {
		t.Fatalf("username dup = %v", err)
	}
	if _, err := repo.CreateUser(ctx, core.User{Username: "bea", Email: "ANA@example.com", PasswordHash: "h"}); !errors.Is(err, ledger.ErrDuplicate) {
		t.Fatalf("email dup = %v", err)
	}
	if _, err := repo.CreateUser(ctx, core.User{Username: "carla", PasswordHash: "h"}); err != nil {
		t.Fatalf("empty email: %v", err)
	}
	if _, err := repo.CreateUser(ctx, core.User{Username: "dani", PasswordHash: "h"}); err != nil {
		t.Fatalf("second empty email: %v", err)
	}

	got, err := repo.UserByUsername(ctx, "Ana")
	if err != nil || got.ID != u.ID || got.PasswordHash != "h" {
		t.Fatalf("by username = %+v, %v", got, err)
	}
	if _, err := repo.UserByID(ctx, 999); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("missing user = %v", err)
	}
}
