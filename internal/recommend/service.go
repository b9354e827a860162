// Package recommend produces the Markdown financial advice shown on the
// dashboard, either from an LLM or from local rules.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
)

// NoTransactionsMessage is returned for a period without activity.
const NoTransactionsMessage = "No hay transacciones registradas en este período. Agrega tus ingresos y gastos para recibir recomendaciones."

// Generator turns a period's transactions into Markdown advice.
type Generator interface {
	Generate(ctx context.Context, txs []core.Transaction) (string, error)
}

type TransactionLister interface {
	ListTransactions(ctx context.Context, f ledger.Filter) ([]core.Transaction, error)
}

// Service caches advice per user and period. Concurrent requests for the
// same key share one generator call. Invalidate bumps the user's generation:
// calls started before it neither fill the cache nor serve later requests.
type Service struct {
	txs     TransactionLister
	gen     Generator
	cache   *gocache.Cache
	group   singleflight.Group
	timeout time.Duration

	mu          sync.Mutex
	generations map[int64]uint64
}

func NewService(txs TransactionLister, gen Generator, ttl, timeout time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		txs:         txs,
		gen:         gen,
		cache:       gocache.New(ttl, 2*ttl),
		timeout:     timeout,
		generations: make(map[int64]uint64),
	}
}

func key(userID int64, p core.Period) string {
	return fmt.Sprintf("%d|%s", userID, p)
}

func (s *Service) generation(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// store caches text unless the user was invalidated after gen was read.
func (s *Service) store(userID int64, gen uint64, k, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[userID] != gen {
		return false
	}
	s.cache.SetDefault(k, text)
	return true
}

// Recommend returns advice for the user's transactions in period p. A
// caller whose ctx ends stops waiting; the shared call keeps running for
// the others.
func (s *Service) Recommend(ctx context.Context, userID int64, p core.Period) (string, error) {
	k := key(userID, p)
	if v, ok := s.cache.Get(k); ok {
		return v.(string), nil
	}

	gen := s.generation(userID)
	flight := fmt.Sprintf("%s#%d", k, gen)
	ch := s.group.DoChan(flight, func() (interface{}, error) {
		// the call outlives any single waiting request
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		txs, err := s.txs.ListTransactions(callCtx, ledger.Filter{UserID: userID, From: p.Start(), To: p.End()})
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		if len(txs) == 0 {
			return NoTransactionsMessage, nil
		}

		start := time.Now()
		text, err := s.gen.Generate(callCtx, txs)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Recommendation generated",
			"user_id", userID,
			"period", p.String(),
			"transactions", len(txs),
			"duration_ms", time.Since(start).Milliseconds())
		if !s.store(userID, gen, k, text) {
			slog.DebugContext(ctx, "Ledger changed during generation, result not cached", "key", k)
		}
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			slog.DebugContext(ctx, "Recommendation request shared in-flight call", "key", k)
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops every cached period of a user and detaches in-flight
// generations from the cache.
func (s *Service) Invalidate(userID int64) {
	prefix := fmt.Sprintf("%d|", userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[userID]++
	for k := range s.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			s.cache.Delete(k)
		}
	}
}
