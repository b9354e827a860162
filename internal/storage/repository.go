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

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
)

const timestampLayout = time.RFC3339

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	id, err := r.queries.CreateTransaction(ctx, toTransactionRow(t))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	t.ID = id

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"user_id", t.UserID,
		"amount_cents", t.Amount.Cents(),
		"series_id", t.SeriesID)
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return fromTransactionRow(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ledger.Filter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, f.UserID, formatDate(f.From), formatDate(f.To))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := fromTransactionRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SeriesDates(ctx context.Context, seriesID string) ([]time.Time, error) {
	raw, err := r.queries.SeriesDates(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("series dates %s: %w", seriesID, err)
	}
	out := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		d, err := core.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("series %s: bad stored date %q: %w", seriesID, s, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateSeries(ctx context.Context, s core.RecurringSeries) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}
	err := r.queries.CreateSeries(ctx, s.ID, s.UserID, s.Active, s.CreatedAt.UTC().Format(timestampLayout))
	if isUniqueViolation(err) {
		return ledger.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create series: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID int64) ([]core.Goal, error) {
	rows, err := r.queries.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.Goal, 0, len(rows))
	for _, row := range rows {
		g := core.Goal{
			ID:      row.ID,
			UserID:  row.UserID,
			Name:    row.Name,
			Target:  core.MoneyFromCents(row.TargetCents),
			Current: core.MoneyFromCents(row.CurrentCents),
		}
		if row.Deadline.Valid {
			if g.Deadline, err = core.ParseDate(row.Deadline.String); err != nil {
				return nil, fmt.Errorf("goal %d: bad deadline: %w", row.ID, err)
			}
		}
		out = append(out, g)
	}
	core.SortGoals(out)
	return out, nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	id, err := r.queries.CreateGoal(ctx, GoalRow{
		UserID:       g.UserID,
		Name:         g.Name,
		TargetCents:  g.Target.Cents(),
		CurrentCents: g.Current.Cents(),
		Deadline:     nullDate(g.Deadline),
	})
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	g.ID = id
	return g, nil
}

func (r *SQLiteRepository) LatestBudget(ctx context.Context, userID int64) (core.Budget, error) {
	row, err := r.queries.LatestBudget(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("latest budget: %w", err)
	}
	created, err := time.Parse(timestampLayout, row.CreatedAt)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d: bad timestamp: %w", row.ID, err)
	}
	return core.Budget{
		ID:        row.ID,
		UserID:    row.UserID,
		Amount:    core.MoneyFromCents(row.AmountCents),
		CreatedAt: created,
	}, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Amount.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.now()
	}
	b.CreatedAt = b.CreatedAt.UTC().Truncate(time.Second)
	id, err := r.queries.CreateBudget(ctx, b.UserID, b.Amount.Cents(), b.CreatedAt.Format(timestampLayout))
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	b.ID = id
	return b, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	id, err := r.queries.CreateUser(ctx, u.Username, u.Email, u.PasswordHash)
	if isUniqueViolation(err) {
		return core.User{}, ledger.ErrDuplicate
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	slog.InfoContext(ctx, "User registered", "id", id)
	return u, nil
}

func (r *SQLiteRepository) UserByUsername(ctx context.Context, username string) (core.User, error) {
	row, err := r.queries.UserByUsername(ctx, username)
	return userFromRow(row, err)
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.UserByID(ctx, id)
	return userFromRow(row, err)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if len(cats) == 0 {
		return append([]string(nil), ledger.DefaultCategories...), nil
	}
	return cats, nil
}

func userFromRow(row UserRow, err error) (core.User, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return core.User{ID: row.ID, Username: row.Username, Email: row.Email, PasswordHash: row.PasswordHash}, nil
}

func toTransactionRow(t core.Transaction) TransactionRow {
	row := TransactionRow{
		UserID:      t.UserID,
		Description: t.Description,
		AmountCents: t.Amount.Cents(),
		Type:        string(t.Type),
		Date:        formatDate(t.Date),
		Category:    t.Category,
		Recurring:   t.Recurring,
		StartDate:   nullDate(t.StartDate),
		EndDate:     nullDate(t.EndDate),
	}
	if t.Periodicity != "" {
		row.Periodicity = sql.NullString{String: string(t.Periodicity), Valid: true}
	}
	if t.SeriesID != "" {
		row.SeriesID = sql.NullString{String: t.SeriesID, Valid: true}
	}
	return row
}

func fromTransactionRow(row TransactionRow) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: bad date %q: %w", row.ID, row.Date, err)
	}
	t := core.Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		Description: row.Description,
		Amount:      core.MoneyFromCents(row.AmountCents),
		Type:        core.TransactionType(row.Type),
		Date:        date,
		Category:    row.Category,
		Recurring:   row.Recurring,
		Periodicity: core.Periodicity(row.Periodicity.String),
		SeriesID:    row.SeriesID.String,
	}
	if row.StartDate.Valid {
		if t.StartDate, err = core.ParseDate(row.StartDate.String); err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %d: bad start date: %w", row.ID, err)
		}
	}
	if row.EndDate.Valid {
		if t.EndDate, err = core.ParseDate(row.EndDate.String); err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %d: bad end date: %w", row.ID, err)
		}
	}
	return t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.DateOnly), Valid: true}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}
