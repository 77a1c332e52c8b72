package inventory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"checkngo/internal/domain"
	"checkngo/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedStore(t *testing.T, stocks ...int64) *repository.MemoryStore {
	t.Helper()
	st := repository.NewMemoryStore()
	for i, s := range stocks {
		p := &domain.Product{Title: "p", Price: decimal.NewFromInt(int64(i + 1)), Stock: s}
		require.NoError(t, st.Create(context.Background(), p))
	}
	return st
}

func stockOf(t *testing.T, st repository.StockStore, id int64) int64 {
	t.Helper()
	p, err := st.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestReserveAndDecrement_AllCommitted(t *testing.T) {
	st := seedStore(t, 5, 3)
	e := NewEngine(st, Options{}, quietLog())

	res, err := e.ReserveAndDecrement(context.Background(), []domain.CartLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	})
	require.NoError(t, err)
	require.True(t, res.AllCommitted())
	assert.Nil(t, res.FirstFailure())

	assert.Equal(t, int64(5), res.Lines[0].PreviousStock)
	assert.Equal(t, int64(3), res.Lines[0].NewStock)
	assert.Equal(t, int64(0), res.Lines[1].NewStock)
	assert.Equal(t, int64(3), stockOf(t, st, 1))
	assert.Equal(t, int64(0), stockOf(t, st, 2))
}

func TestReserveAndDecrement_PartialFailureKeepsEarlierDecrements(t *testing.T) {
	st := seedStore(t, 5, 1, 4)
	e := NewEngine(st, Options{}, quietLog())

	res, err := e.ReserveAndDecrement(context.Background(), []domain.CartLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 2},
		{ProductID: 3, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 3)

	assert.Equal(t, OutcomeCommitted, res.Lines[0].Outcome)
	assert.Equal(t, OutcomeFailed, res.Lines[1].Outcome)
	assert.Equal(t, OutcomeSkipped, res.Lines[2].Outcome)

	f := res.FirstFailure()
	require.NotNil(t, f)
	assert.Equal(t, FailInsufficientStock, f.Kind)
	assert.Equal(t, int64(2), f.ProductID)
	assert.Equal(t, int64(2), f.Requested)
	assert.Equal(t, int64(1), f.Available)

	// line 1 stays decremented, nothing is rolled back
	assert.Equal(t, int64(3), stockOf(t, st, 1))
	assert.Equal(t, int64(1), stockOf(t, st, 2))
	assert.Equal(t, int64(4), stockOf(t, st, 3))
}

func TestReserveAndDecrement_NotFound(t *testing.T) {
	st := seedStore(t, 5)
	e := NewEngine(st, Options{}, quietLog())

	res, err := e.ReserveAndDecrement(context.Background(), []domain.CartLine{{ProductID: 42, Quantity: 1}})
	require.NoError(t, err)
	f := res.FirstFailure()
	require.NotNil(t, f)
	assert.Equal(t, FailNotFound, f.Kind)
	assert.ErrorIs(t, f, repository.ErrNotFound)
}

func TestReserveAndDecrement_RejectsInvalidLineBeforeIO(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStockStore(ctrl) // no expectations: any call fails the test
	e := NewEngine(store, Options{}, quietLog())

	for _, q := range []int64{0, -3} {
		_, err := e.ReserveAndDecrement(context.Background(), []domain.CartLine{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: q},
		})
		assert.ErrorIs(t, err, ErrInvalidLine)
	}
}

func TestReserveAndDecrement_RetriesOnConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStockStore(ctrl)
	ctx := context.Background()

	gomock.InOrder(
		store.EXPECT().GetByID(gomock.Any(), int64(7)).Return(&domain.Product{ID: 7, Stock: 5}, nil),
		store.EXPECT().UpdateStock(gomock.Any(), int64(7), int64(5), int64(3)).Return(nil, repository.ErrConflict),
		store.EXPECT().GetByID(gomock.Any(), int64(7)).Return(&domain.Product{ID: 7, Stock: 4}, nil),
		store.EXPECT().UpdateStock(gomock.Any(), int64(7), int64(4), int64(2)).Return(&domain.Product{ID: 7, Stock: 2}, nil),
	)

	e := NewEngine(store, Options{ConflictRetries: 3}, quietLog())
	res, err := e.ReserveAndDecrement(ctx, []domain.CartLine{{ProductID: 7, Quantity: 2}})
	require.NoError(t, err)
	require.True(t, res.AllCommitted())
	assert.Equal(t, 1, res.Lines[0].Retries)
	assert.Equal(t, int64(4), res.Lines[0].PreviousStock)
	assert.Equal(t, int64(2), res.Lines[0].NewStock)
}

func TestReserveAndDecrement_ConflictRetriesExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStockStore(ctrl)

	store.EXPECT().GetByID(gomock.Any(), int64(7)).Return(&domain.Product{ID: 7, Stock: 5}, nil).Times(2)
	store.EXPECT().UpdateStock(gomock.Any(), int64(7), int64(5), int64(4)).Return(nil, repository.ErrConflict).Times(2)

	e := NewEngine(store, Options{ConflictRetries: 1}, quietLog())
	res, err := e.ReserveAndDecrement(context.Background(), []domain.CartLine{{ProductID: 7, Quantity: 1}})
	require.NoError(t, err)
	f := res.FirstFailure()
	require.NotNil(t, f)
	assert.Equal(t, FailConflict, f.Kind)
	assert.Equal(t, int64(5), f.Available)
	assert.ErrorIs(t, f, repository.ErrConflict)
}

func TestReserveAndDecrement_StoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStockStore(ctrl)
	transport := errors.New("dial tcp: connection refused")

	store.EXPECT().GetByID(gomock.Any(), int64(1)).Return(&domain.Product{ID: 1, Stock: 5}, nil)
	store.EXPECT().UpdateStock(gomock.Any(), int64(1), int64(5), int64(4)).Return(&domain.Product{ID: 1, Stock: 4}, nil)
	store.EXPECT().GetByID(gomock.Any(), int64(2)).Return(nil, transport)

	e := NewEngine(store, Options{ConflictRetries: 3}, quietLog())
	res, err := e.ReserveAndDecrement(context.Background(), []domain.CartLine{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
		{ProductID: 3, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Lines[0].Outcome)
	assert.Equal(t, OutcomeSkipped, res.Lines[2].Outcome)

	f := res.FirstFailure()
	require.NotNil(t, f)
	assert.Equal(t, FailUnavailable, f.Kind)
	assert.ErrorIs(t, f, transport)
}

func TestCompensate_RestoresCommittedLines(t *testing.T) {
	st := seedStore(t, 5, 2, 1)
	e := NewEngine(st, Options{}, quietLog())
	ctx := context.Background()

	res, err := e.ReserveAndDecrement(ctx, []domain.CartLine{
		{ProductID: 1, Quantity: 4},
		{ProductID: 2, Quantity: 2},
		{ProductID: 3, Quantity: 3},
	})
	require.NoError(t, err)
	require.False(t, res.AllCommitted())
	require.Len(t, res.Committed(), 2)

	// a sale that lands between the decrement and the undo is preserved
	_, err = st.UpdateStock(ctx, 1, 1, 0)
	require.NoError(t, err)

	require.NoError(t, e.Compensate(ctx, res))
	assert.Equal(t, int64(4), stockOf(t, st, 1))
	assert.Equal(t, int64(2), stockOf(t, st, 2))
	assert.Equal(t, int64(1), stockOf(t, st, 3))
}

func TestCompensate_ReportsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStockStore(ctrl)
	store.EXPECT().GetByID(gomock.Any(), int64(9)).Return(nil, repository.ErrUnavailable)

	e := NewEngine(store, Options{}, quietLog())
	err := e.Compensate(context.Background(), DecrementResult{Lines: []LineResult{
		{Line: domain.CartLine{ProductID: 9, Quantity: 2}, Outcome: OutcomeCommitted},
		{Line: domain.CartLine{ProductID: 10, Quantity: 1}, Outcome: OutcomeFailed},
	}})
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestReserveAndDecrement_NoOversellUnderContention(t *testing.T) {
	const initial = 10
	st := seedStore(t, initial)
	e := NewEngine(st, Options{ConflictRetries: 2}, quietLog())

	var (
		wg   sync.WaitGroup
		sold atomic.Int64
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(q int64) {
			defer wg.Done()
			res, err := e.ReserveAndDecrement(context.Background(), []domain.CartLine{{ProductID: 1, Quantity: q}})
			if err == nil && res.AllCommitted() {
				sold.Add(q)
			}
		}(int64(i%3 + 1))
	}
	wg.Wait()

	assert.LessOrEqual(t, sold.Load(), int64(initial))
	assert.Equal(t, initial-sold.Load(), stockOf(t, st, 1))
}

func TestReserveAndDecrement_TwoBuyersOneSucceeds(t *testing.T) {
	st := seedStore(t, 3)
	e := NewEngine(st, Options{ConflictRetries: 3}, quietLog())

	results := make([]DecrementResult, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.ReserveAndDecrement(context.Background(), []domain.CartLine{{ProductID: 1, Quantity: 2}})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, r := range results {
		if r.AllCommitted() {
			ok++
			continue
		}
		f := r.FirstFailure()
		require.NotNil(t, f)
		assert.Contains(t, []FailureKind{FailInsufficientStock, FailConflict}, f.Kind)
		assert.Equal(t, int64(2), f.Requested)
		assert.Contains(t, []int64{1, 3}, f.Available)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int64(1), stockOf(t, st, 1))
}
