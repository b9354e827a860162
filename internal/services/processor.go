package services

import (
	"context"
	"fmt"

	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
	applog "ecofinance/internal/log"
)

// LedgerProcessor does the follow-up work for a stored transaction: expand
// its recurring series and append the affected rows to the mirror.
type LedgerProcessor struct {
	store    ledger.TransactionStore
	expander *RecurringExpander
	mirror   ledger.Mirror
	inv      []Invalidator
	logger   *applog.Logger
}

// NewLedgerProcessor builds a processor; mirror may be nil.
func NewLedgerProcessor(store ledger.TransactionStore, mirror ledger.Mirror, logger *applog.Logger, inv ...Invalidator) *LedgerProcessor {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &LedgerProcessor{
		store:    store,
		expander: NewRecurringExpander(store, logger),
		mirror:   mirror,
		inv:      inv,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// Process handles transaction id of userID. It is safe to repeat: the
// expansion skips existing dates, and the mirror receives the whole series
// again so a failed append is retried in full.
func (p *LedgerProcessor) Process(ctx context.Context, userID, id int64) error {
	t, err := p.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", id, err)
	}

	rows := []core.Transaction{t}
	if t.Recurring && t.SeriesID != "" {
		created, err := p.expander.Expand(ctx, t)
		if err != nil {
			return err
		}
		if len(created) > 0 {
			for _, inv := range p.inv {
				inv.Invalidate(userID)
			}
		}
		if rows, err = p.seriesRows(ctx, t); err != nil {
			return err
		}
	}

	if p.mirror == nil {
		return nil
	}
	ref, err := p.mirror.AppendTransactions(ctx, rows)
	if err != nil {
		return fmt.Errorf("mirror transaction %d: %w", id, err)
	}
	p.logger.InfoContext(ctx, "Transactions mirrored",
		applog.FieldOperation, applog.OpMirror,
		applog.FieldTxID, id,
		applog.FieldSheetsRef, ref,
		"rows", len(rows))
	return nil
}

// seriesRows returns every row of base's series, oldest first.
func (p *LedgerProcessor) seriesRows(ctx context.Context, base core.Transaction) ([]core.Transaction, error) {
	all, err := p.store.ListTransactions(ctx, ledger.Filter{UserID: base.UserID, From: base.StartDate})
	if err != nil {
		return nil, fmt.Errorf("list series rows: %w", err)
	}
	var rows []core.Transaction
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].SeriesID == base.SeriesID {
			rows = append(rows, all[i])
		}
	}
	return rows, nil
}
