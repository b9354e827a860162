package storage

import (
	"context"
	"database/sql"
	"strings"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table columns.

type TransactionRow struct {
	ID          int64
	UserID      int64
	Description string
	AmountCents int64
	Type        string
	Date        string
	Category    string
	Recurring   bool
	Periodicity sql.NullString
	StartDate   sql.NullString
	EndDate     sql.NullString
	SeriesID    sql.NullString
}

type GoalRow struct {
	ID           int64
	UserID       int64
	Name         string
	TargetCents  int64
	CurrentCents int64
	Deadline     sql.NullString
}

type BudgetRow struct {
	ID          int64
	UserID      int64
	AmountCents int64
	CreatedAt   string
}

type UserRow struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
}

const transactionColumns = `id, user_id, description, amount_cents, type, date, category,
	recurring, periodicity, start_date, end_date, series_id`

const createTransaction = `INSERT INTO transactions (
	user_id, description, amount_cents, type, date, category,
	recurring, periodicity, start_date, end_date, series_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateTransaction(ctx context.Context, r TransactionRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createTransaction,
		r.UserID, r.Description, r.AmountCents, r.Type, r.Date, r.Category,
		r.Recurring, r.Periodicity, r.StartDate, r.EndDate, r.SeriesID,
	).Scan(&id)
	return id, err
}

const getTransaction = `SELECT ` + transactionColumns + `
FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) GetTransaction(ctx context.Context, userID, id int64) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id, userID)
	return scanTransaction(row)
}

// ListTransactions filters on the inclusive [from, to] date range; empty
// bounds are open.
func (q *Queries) ListTransactions(ctx context.Context, userID int64, from, to string) ([]TransactionRow, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []interface{}{userID}
	)
	if from != "" {
		where = append(where, "date >= ?")
		args = append(args, from)
	}
	if to != "" {
		where = append(where, "date <= ?")
		args = append(args, to)
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, id DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, userID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const seriesDates = `SELECT date FROM transactions WHERE series_id = ?`

func (q *Queries) SeriesDates(ctx context.Context, seriesID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, seriesDates, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

const createSeries = `INSERT INTO recurring_series (id, user_id, active, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateSeries(ctx context.Context, id string, userID int64, active bool, createdAt string) error {
	_, err := q.db.ExecContext(ctx, createSeries, id, userID, active, createdAt)
	return err
}

const listGoals = `SELECT id, user_id, name, target_cents, current_cents, deadline
FROM goals WHERE user_id = ? ORDER BY id`

func (q *Queries) ListGoals(ctx context.Context, userID int64) ([]GoalRow, error) {
	rows, err := q.db.QueryContext(ctx, listGoals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GoalRow
	for rows.Next() {
		var i GoalRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.TargetCents, &i.CurrentCents, &i.Deadline); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createGoal = `INSERT INTO goals (user_id, name, target_cents, current_cents, deadline)
VALUES (?, ?, ?, ?, ?) RETURNING id`

func (q *Queries) CreateGoal(ctx context.Context, g GoalRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createGoal, g.UserID, g.Name, g.TargetCents, g.CurrentCents, g.Deadline).Scan(&id)
	return id, err
}

const latestBudget = `SELECT id, user_id, amount_cents, created_at
FROM budgets WHERE user_id = ? ORDER BY id DESC LIMIT 1`

func (q *Queries) LatestBudget(ctx context.Context, userID int64) (BudgetRow, error) {
	var i BudgetRow
	err := q.db.QueryRowContext(ctx, latestBudget, userID).Scan(&i.ID, &i.UserID, &i.AmountCents, &i.CreatedAt)
	return i, err
}

const createBudget = `INSERT INTO budgets (user_id, amount_cents, created_at) VALUES (?, ?, ?) RETURNING id`

func (q *Queries) CreateBudget(ctx context.Context, userID, amountCents int64, createdAt string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createBudget, userID, amountCents, createdAt).Scan(&id)
	return id, err
}

const createUser = `INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?) RETURNING id`

func (q *Queries) CreateUser(ctx context.Context, username, email, hash string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createUser, username, email, hash).Scan(&id)
	return id, err
}

const userByUsername = `SELECT id, username, email, password_hash FROM users WHERE username = ?`

func (q *Queries) UserByUsername(ctx context.Context, username string) (UserRow, error) {
	var i UserRow
	err := q.db.QueryRowContext(ctx, userByUsername, username).Scan(&i.ID, &i.Username, &i.Email, &i.PasswordHash)
	return i, err
}

const userByID = `SELECT id, username, email, password_hash FROM users WHERE id = ?`

func (q *Queries) UserByID(ctx context.Context, id int64) (UserRow, error) {
	var i UserRow
	err := q.db.QueryRowContext(ctx, userByID, id).Scan(&i.ID, &i.Username, &i.Email, &i.PasswordHash)
	return i, err
}

const listCategories = `SELECT name FROM categories ORDER BY sort_order, name`

func (q *Queries) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s scanner) (TransactionRow, error) {
	var i TransactionRow
	err := s.Scan(
		&i.ID, &i.UserID, &i.Description, &i.AmountCents, &i.Type, &i.Date, &i.Category,
		&i.Recurring, &i.Periodicity, &i.StartDate, &i.EndDate, &i.SeriesID,
	)
	return i, err
}
