// Package worker consumes ledger events: it expands recurring series and
// mirrors new rows to the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecofinance/internal/amqp"
	"ecofinance/internal/ledger"
	applog "ecofinance/internal/log"
)

// Processor is the follow-up work for one stored transaction.
type Processor interface {
	Process(ctx context.Context, userID, id int64) error
}

type LedgerWorker struct {
	processor Processor
	logger    *applog.Logger
	timeout   time.Duration
}

func NewLedgerWorker(p Processor, logger *applog.Logger) *LedgerWorker {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &LedgerWorker{
		processor: p,
		logger:    logger.WithComponent(applog.ComponentWorker),
		timeout:   time.Minute,
	}
}

// HandleLedgerEvent processes one message. Rows deleted before the event
// arrives are acknowledged and skipped.
func (w *LedgerWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	err := w.processor.Process(ctx, msg.UserID, msg.ID)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		w.logger.WarnContext(ctx, "Transaction gone before processing, skipping",
			applog.FieldTxID, msg.ID,
			applog.FieldUserID, msg.UserID)
		return nil
	case err != nil:
		return fmt.Errorf("process transaction %d: %w", msg.ID, err)
	}

	w.logger.InfoContext(ctx, "Ledger event processed",
		applog.FieldTxID, msg.ID,
		applog.FieldSeriesID, msg.SeriesID,
		"version", msg.Version,
		"lag_ms", time.Since(msg.Timestamp).Milliseconds(),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Consumer is the broker side of the worker.
type Consumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler amqp.Handler) error
}

// Run consumes until ctx is cancelled.
func (w *LedgerWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Ledger worker started")
	err := c.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
	if errors.Is(err, context.Canceled) {
		w.logger.InfoContext(ctx, "Ledger worker stopped")
		return nil
	}
	return err
}
