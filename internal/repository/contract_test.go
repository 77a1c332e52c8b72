package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkngo/internal/domain"
)

// runCatalogContract проверяет поведение, общее для всех бэкендов каталога
func runCatalogContract(t *testing.T, newCatalog func(t *testing.T) Catalog) {
	t.Run("crud", func(t *testing.T) {
		ctx := context.Background()
		c := newCatalog(t)

		p := domain.Product{Title: "Apple Juice", Category: "groceries", Price: decimal.RequireFromString("10.25"), Stock: 5, Tags: []string{"drinks"}}
		require.NoError(t, c.Create(ctx, &p))
		require.NotZero(t, p.ID)
		assert.False(t, p.CreatedAt.IsZero())

		got, err := c.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Apple Juice", got.Title)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("10.25")), "price %s", got.Price)
		assert.Equal(t, []string{"drinks"}, got.Tags)

		dup := domain.Product{ID: p.ID, Title: "dup", Stock: 1}
		assert.ErrorIs(t, c.Create(ctx, &dup), ErrDuplicateID)

		got.Title = "Apple Juice 1L"
		got.Price = decimal.RequireFromString("11")
		require.NoError(t, c.Update(ctx, got))
		got, err = c.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Apple Juice 1L", got.Title)

		missing := domain.Product{ID: 9999, Title: "x"}
		assert.ErrorIs(t, c.Update(ctx, &missing), ErrNotFound)

		require.NoError(t, c.Delete(ctx, p.ID))
		_, err = c.GetByID(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, c.Delete(ctx, p.ID), ErrNotFound)
	})

	t.Run("conditional stock write", func(t *testing.T) {
		ctx := context.Background()
		c := newCatalog(t)
		p := domain.Product{Title: "Cola", Price: decimal.RequireFromString("1.5"), Stock: 5}
		require.NoError(t, c.Create(ctx, &p))

		up, err := c.UpdateStock(ctx, p.ID, 5, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), up.Stock)

		_, err = c.UpdateStock(ctx, p.ID, 5, 1)
		assert.ErrorIs(t, err, ErrConflict)

		_, err = c.UpdateStock(ctx, p.ID, 3, -1)
		assert.ErrorIs(t, err, ErrInvalidStock)

		_, err = c.UpdateStock(ctx, 9999, 0, 1)
		assert.ErrorIs(t, err, ErrNotFound)

		set, err := c.SetStock(ctx, p.ID, 40)
		require.NoError(t, err)
		assert.Equal(t, int64(40), set.Stock)
		_, err = c.SetStock(ctx, 9999, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("one winner per expected value", func(t *testing.T) {
		ctx := context.Background()
		c := newCatalog(t)
		p := domain.Product{Title: "Kiwi", Price: decimal.NewFromInt(2), Stock: 10}
		require.NoError(t, c.Create(ctx, &p))

		const writers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := c.UpdateStock(ctx, p.ID, 10, 9)
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				} else if !errors.Is(err, ErrConflict) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})

	t.Run("list filters", func(t *testing.T) {
		ctx := context.Background()
		c := newCatalog(t)
		for _, p := range []domain.Product{
			{Title: "Aspirin", Category: "pharmacy", Price: decimal.NewFromInt(100), Stock: 1},
			{Title: "Paracetamol", Category: "pharmacy", Price: decimal.NewFromInt(50), Stock: 1},
			{Title: "Ibuprofen 100%", Category: "pain", Price: decimal.NewFromInt(150), Stock: 1},
		} {
			p := p
			require.NoError(t, c.Create(ctx, &p))
		}

		list, err := c.List(ctx, ProductFilter{TitleSubstring: "ASPI"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Aspirin", list[0].Title)

		list, err = c.List(ctx, ProductFilter{TitleSubstring: "100%"})
		require.NoError(t, err)
		require.Len(t, list, 1)

		min := decimal.NewFromInt(100)
		list, err = c.List(ctx, ProductFilter{MinPrice: &min, Category: "Pharmacy"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Aspirin", list[0].Title)

		list, err = c.List(ctx, ProductFilter{})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Less(t, list[0].ID, list[1].ID)
	})

	t.Run("store directory", func(t *testing.T) {
		ctx := context.Background()
		c := newCatalog(t)
		require.NoError(t, c.PutStore(ctx, domain.Store{ID: 2, Name: "store two", Locations: []string{"Koramangala"}}))
		require.NoError(t, c.PutStore(ctx, domain.Store{ID: 1, Name: "Store One"}))
		require.NoError(t, c.PutStore(ctx, domain.Store{ID: 1, Name: "Store One", OpenTime: "09:00"}))

		list, err := c.ListStores(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, int64(1), list[0].ID)
		assert.Equal(t, "09:00", list[0].OpenTime)

		st, err := c.GetStoreByName(ctx, "STORE-TWO")
		require.NoError(t, err)
		assert.Equal(t, []string{"Koramangala"}, st.Locations)

		_, err = c.GetStoreByName(ctx, "store three")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
