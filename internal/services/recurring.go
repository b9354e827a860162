package services

import (
	"context"
	"fmt"

	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
	applog "ecofinance/internal/log"
)

// RecurringExpander materializes the scheduled rows of a recurring series.
// Expanding the same series twice creates nothing new.
type RecurringExpander struct {
	store  ledger.TransactionStore
	logger *applog.Logger
}

func NewRecurringExpander(store ledger.TransactionStore, logger *applog.Logger) *RecurringExpander {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &RecurringExpander{store: store, logger: logger.WithComponent(applog.ComponentLedger)}
}

// Expand creates the missing occurrences after base and returns them.
func (e *RecurringExpander) Expand(ctx context.Context, base core.Transaction) ([]core.Transaction, error) {
	if !base.Recurring || base.SeriesID == "" {
		return nil, nil
	}

	existing, err := e.store.SeriesDates(ctx, base.SeriesID)
	if err != nil {
		return nil, fmt.Errorf("load series dates: %w", err)
	}

	pending := core.Occurrences(base, existing)
	created := make([]core.Transaction, 0, len(pending))
	for _, t := range pending {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		row, err := e.store.CreateTransaction(ctx, t)
		if err != nil {
			return created, fmt.Errorf("create occurrence %s: %w", t.Date.Format("2006-01-02"), err)
		}
		created = append(created, row)
	}

	e.logger.InfoContext(ctx, "Recurring series expanded",
		applog.FieldOperation, applog.OpExpand,
		applog.FieldSeriesID, base.SeriesID,
		applog.FieldUserID, base.UserID,
		"periodicity", string(base.Periodicity),
		"existing", len(existing),
		"created", len(created))
	return created, nil
}
