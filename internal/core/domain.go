package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INGRESO"
	Expense TransactionType = "GASTO"
)

// SavingsCategory marks GASTO rows that are contributions to a savings goal
// rather than spending.
const SavingsCategory = "Aporte al objetivo"

const maxDescriptionLen = 255

type (
	TransactionType string

	Transaction struct {
		ID          int64
		UserID      int64
		Description string
		Amount      Money
		Type        TransactionType
		Date        time.Time
		Category    string

		Recurring   bool
		Periodicity Periodicity
		StartDate   time.Time
		EndDate     time.Time // zero when the series is open ended
		SeriesID    string
	}

	RecurringSeries struct {
		ID        string
		UserID    int64
		Active    bool
		CreatedAt time.Time
	}

	// Goal is a savings objective (ObjetivoAhorro).
	Goal struct {
		ID       int64
		UserID   int64
		Name     string
		Target   Money
		Current  Money
		Deadline time.Time // zero when there is none
	}

	// Budget is a monthly spending cap; the latest one wins.
	Budget struct {
		ID        int64
		UserID    int64
		Amount    Money
		CreatedAt time.Time
	}

	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidPeriodicity = errors.New("invalid periodicity")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrEmptyName          = errors.New("empty name")
)

// ParseTransactionType accepts INGRESO or GASTO, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToUpper(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", ErrInvalidType
}

// Label is the human readable name of the type.
func (t TransactionType) Label() string {
	switch t {
	case Income:
		return "Ingreso"
	case Expense:
		return "Gasto"
	}
	return string(t)
}

// IsSavings reports whether the row moves money into a goal.
func (t Transaction) IsSavings() bool {
	return t.Type == Expense && t.Category == SavingsCategory
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescriptionLen {
		return fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Type != Income && t.Type != Expense {
		return ErrInvalidType
	}
	if !t.Recurring {
		return nil
	}
	if _, ok := periodicityIncrements[t.Periodicity]; !ok {
		return ErrInvalidPeriodicity
	}
	if t.StartDate.IsZero() {
		return fmt.Errorf("recurring transaction needs a start date: %w", ErrInvalidDate)
	}
	if !t.EndDate.IsZero() && t.EndDate.Before(t.StartDate) {
		return errors.New("end date must be after start date")
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.Target.IsPositive() {
		return fmt.Errorf("target must be greater than zero: %w", ErrInvalidAmount)
	}
	if g.Current.IsNegative() {
		return fmt.Errorf("current amount cannot be negative: %w", ErrInvalidAmount)
	}
	return nil
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an HTML date input value (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
