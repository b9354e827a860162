package recommend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecofinance/internal/core"
	"ecofinance/internal/ledger/memory"
)

type countingGen struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (g *countingGen) Generate(ctx context.Context, txs []core.Transaction) (string, error) {
	g.calls.Add(1)
	if g.release != nil {
		<-g.release
	}
	if g.err != nil {
		return "", g.err
	}
	return "consejo", nil
}

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New(nil)
	_, err := s.CreateTransaction(context.Background(), core.Transaction{
		UserID: 1, Description: "Sueldo", Amount: core.MoneyFromInt(1000),
		Type: core.Income, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return s
}

var march = core.Period{Year: 2024, Month: 3}

func TestServiceCachesAndInvalidates(t *testing.T) {
	gen := &countingGen{}
	svc := NewService(seeded(t), gen, time.Minute, time.Second)

	for i := 0; i < 3; i++ {
		text, err := svc.Recommend(context.Background(), 1, march)
		require.NoError(t, err)
		assert.Equal(t, "consejo", text)
	}
	assert.Equal(t, int32(1), gen.calls.Load())

	svc.Invalidate(1)
	_, err := svc.Recommend(context.Background(), 1, march)
	require.NoError(t, err)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestServiceSharesInFlightCall(t *testing.T) {
	gen := &countingGen{release: make(chan struct{})}
	svc := NewService(seeded(t), gen, time.Minute, 5*time.Second)

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Recommend(context.Background(), 1, march)
		}(i)
	}
	// let the goroutines pile up on the in-flight call
	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	assert.Equal(t, int32(1), gen.calls.Load())
	for _, r := range results {
		assert.Equal(t, "consejo", r)
	}
}

func TestServiceInvalidateDuringGeneration(t *testing.T) {
	gen := &countingGen{release: make(chan struct{})}
	svc := NewService(seeded(t), gen, time.Minute, 5*time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		text, err := svc.Recommend(context.Background(), 1, march)
		assert.NoError(t, err)
		assert.Equal(t, "consejo", text)
	}()
	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	svc.Invalidate(1)
	close(gen.release)
	<-done

	_, err := svc.Recommend(context.Background(), 1, march)
	require.NoError(t, err)
	assert.Equal(t, int32(2), gen.calls.Load(), "result of the earlier call must not be cached")

	_, err = svc.Recommend(context.Background(), 1, march)
	require.NoError(t, err)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestServiceRequestAfterInvalidateDoesNotJoinOldCall(t *testing.T) {
	gen := &countingGen{release: make(chan struct{})}
	svc := NewService(seeded(t), gen, time.Minute, 5*time.Second)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.Recommend(context.Background(), 1, march)
	}()
	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	svc.Invalidate(1)
	go func() {
		defer wg.Done()
		_, _ = svc.Recommend(context.Background(), 1, march)
	}()
	require.Eventually(t, func() bool { return gen.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(gen.release)
	wg.Wait()
}

func TestServiceCancelledCallerStopsWaiting(t *testing.T) {
	gen := &countingGen{release: make(chan struct{})}
	defer close(gen.release)
	svc := NewService(seeded(t), gen, time.Minute, 5*time.Second)

	go func() { _, _ = svc.Recommend(context.Background(), 1, march) }()
	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := svc.Recommend(ctx, 1, march)
		errc <- err
	}()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting on the shared call")
	}
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestServiceErrorsAreNotCached(t *testing.T) {
	gen := &countingGen{err: errors.New("llm down")}
	svc := NewService(seeded(t), gen, time.Minute, time.Second)

	_, err := svc.Recommend(context.Background(), 1, march)
	require.EqualError(t, err, "llm down")
	_, err = svc.Recommend(context.Background(), 1, march)
	require.Error(t, err)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestServiceEmptyPeriod(t *testing.T) {
	gen := &countingGen{}
	svc := NewService(memory.New(nil), gen, time.Minute, time.Second)
	text, err := svc.Recommend(context.Background(), 1, march)
	require.NoError(t, err)
	assert.Equal(t, NoTransactionsMessage, text)
	assert.Zero(t, gen.calls.Load())
}

func TestStaticGenerator(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		{Type: core.Income, Amount: core.MoneyFromInt(100000), Date: day},
		{Type: core.Expense, Category: "Vivienda", Amount: core.MoneyFromInt(90000), Date: day},
		{Type: core.Expense, Category: "Ocio", Amount: core.MoneyFromInt(30000), Date: day},
		{Type: core.Expense, Category: core.SavingsCategory, Amount: core.MoneyFromInt(5000), Date: day},
	}
	text, err := StaticGenerator{}.Generate(context.Background(), txs)
	require.NoError(t, err)
	assert.Contains(t, text, "Gastos: **$120.000**")
	assert.Contains(t, text, "Aportes a objetivos: **$5.000**")
	assert.Contains(t, text, "superan tus ingresos** por $20.000")
	assert.Contains(t, text, "**Vivienda** concentra el 75%")
	assert.Contains(t, text, "Ahorraste el 5%")
}

var _ TransactionLister = (*memory.Store)(nil)
