// Package services orchestrates ledger operations across the store, the
// event broker, the spreadsheet mirror and the per-user caches.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
	applog "ecofinance/internal/log"
)

// EventPublisher announces stored transactions to the worker.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, t core.Transaction) error
}

// Invalidator drops a user's cached derived data.
type Invalidator interface {
	Invalidate(userID int64)
}

// TransactionService stores transactions and triggers the follow-up work:
// recurring expansion and the spreadsheet mirror run in the worker when a
// publisher is configured, inline otherwise.
type TransactionService struct {
	store       ledger.TransactionStore
	publisher   EventPublisher
	processor   *LedgerProcessor
	invalidate  []Invalidator
	logger      *applog.Logger
	newSeriesID func() string
}

func NewTransactionService(store ledger.TransactionStore, publisher EventPublisher, processor *LedgerProcessor, logger *applog.Logger, inv ...Invalidator) *TransactionService {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &TransactionService{
		store:       store,
		publisher:   publisher,
		processor:   processor,
		invalidate:  inv,
		logger:      logger.WithComponent(applog.ComponentLedger),
		newSeriesID: uuid.NewString,
	}
}

// Create validates and stores t. A recurring transaction opens a new
// series and is dated on its start date.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Recurring {
		t.Date = t.StartDate
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if t.Recurring {
		t.SeriesID = s.newSeriesID()
		if err := s.store.CreateSeries(ctx, core.RecurringSeries{ID: t.SeriesID, UserID: t.UserID, Active: true}); err != nil {
			return core.Transaction{}, fmt.Errorf("create series: %w", err)
		}
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created", applog.NewFields().
		WithOperation(applog.OpCreate).
		WithUser(created.UserID).
		WithTransaction(created.ID, string(created.Type), created.Category, created.Amount.String()).
		With(applog.FieldSeriesID, created.SeriesID).
		ToSlice()...)

	s.followUp(ctx, created)
	s.invalidateUser(created.UserID)
	return created, nil
}

// followUp hands the row to the worker, or processes it inline when no
// broker is available. Failures are logged: the row itself is saved.
func (s *TransactionService) followUp(ctx context.Context, t core.Transaction) {
	if s.publisher != nil {
		err := s.publisher.PublishTransactionCreated(ctx, t)
		if err == nil {
			return
		}
		s.logger.WarnContext(ctx, "Failed to publish ledger event, processing inline",
			applog.FieldTxID, t.ID, applog.FieldError, err)
	}
	if s.processor == nil {
		return
	}
	if err := s.processor.Process(ctx, t.UserID, t.ID); err != nil {
		s.logger.ErrorContext(ctx, "Inline ledger processing failed",
			applog.FieldTxID, t.ID, applog.FieldError, err)
	}
}

// Delete removes one of the user's transactions.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldUserID, userID,
		applog.FieldTxID, id)
	s.invalidateUser(userID)
	return nil
}

// ListByMonth returns the user's transactions grouped by month, newest
// first. Rows after today are left out unless includeFuture is set.
func (s *TransactionService) ListByMonth(ctx context.Context, userID int64, today time.Time, includeFuture bool) ([]core.MonthGroup, error) {
	txs, err := s.store.ListTransactions(ctx, ledger.Filter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return core.GroupByMonth(txs, today, includeFuture), nil
}

func (s *TransactionService) invalidateUser(userID int64) {
	for _, inv := range s.invalidate {
		inv.Invalidate(userID)
	}
}
