//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pahanaedu/bookshop/internal/domain/catalog"
)

func TestItemRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	item := newTestItem("IT-GET-1", "25.99", 40)
	repo := insertItem(t, item)

	byID, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Code, byID.Code)
	assert.Equal(t, catalog.CategoryTextbook, byID.Category)
	assert.True(t, decimal.RequireFromString("25.99").Equal(byID.Price))
	assert.Equal(t, 40, byID.Stock)

	byCode, err := repo.GetByCode(ctx, item.Code)
	require.NoError(t, err)
	assert.Equal(t, item.ID, byCode.ID)
}

func TestItemRepository_UpsertUpdatesExistingCode(t *testing.T) {
	ctx := context.Background()
	item := newTestItem("IT-UPS-1", "10.00", 7)
	repo := insertItem(t, item)

	updated := item
	updated.Name = "Renamed"
	updated.Price = decimal.RequireFromString("12.50")
	updated.Stock = 9
	require.NoError(t, repo.Upsert(ctx, updated))

	got, err := repo.GetByCode(ctx, item.Code)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, decimal.RequireFromString("12.50").Equal(got.Price))
	assert.Equal(t, 9, got.Stock)
}

func TestItemRepository_GetMissing(t *testing.T) {
	ctx := context.Background()
	repo := insertItem(t, newTestItem("IT-MISS-1", "1.00", 1))

	_, err := repo.GetByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = repo.GetByCode(ctx, "NO-SUCH-CODE")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestItemRepository_ListLowStock(t *testing.T) {
	ctx := context.Background()
	depleted := newTestItem("IT-LOW-1", "5.00", 2)
	healthy := newTestItem("IT-LOW-2", "5.00", 50)
	repo := insertItem(t, depleted)
	insertItem(t, healthy)

	low, err := repo.ListLowStock(ctx)
	require.NoError(t, err)

	codes := make(map[string]bool, len(low))
	for _, it := range low {
		codes[it.Code] = true
	}
	assert.True(t, codes["IT-LOW-1"])
	assert.False(t, codes["IT-LOW-2"])
}

func TestItemRepository_TryDecrement(t *testing.T) {
	ctx := context.Background()
	item := newTestItem("IT-DEC-1", "9.99", 5)
	repo := insertItem(t, item)

	ok, err := repo.TryDecrement(ctx, item.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TryDecrement(ctx, item.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok, "decrement below zero must be refused")

	available, err := repo.Available(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, available)

	require.NoError(t, repo.Increment(ctx, item.ID, 3))
	available, err = repo.Available(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, available)
}

func TestItemRepository_TryDecrementConcurrent(t *testing.T) {
	ctx := context.Background()
	item := newTestItem("IT-RACE-1", "9.99", 10)
	repo := insertItem(t, item)

	const callers = 25
	results := make(chan bool, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryDecrement(ctx, item.ID, 1)
			if err != nil {
				t.Errorf("decrement: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	granted := 0
	for ok := range results {
		if ok {
			granted++
		}
	}
	assert.Equal(t, 10, granted, "exactly the available stock may be granted")

	available, err := repo.Available(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, available)
}

func TestItemRepository_UpsertBatch(t *testing.T) {
	ctx := context.Background()
	items := []catalog.Item{
		newTestItem("IT-BATCH-1", "1.00", 1),
		newTestItem("IT-BATCH-2", "2.00", 2),
		newTestItem("IT-BATCH-3", "3.00", 3),
	}
	repo := insertItem(t, newTestItem("IT-BATCH-0", "0.50", 1))

	require.NoError(t, repo.UpsertBatch(ctx, items))

	for _, want := range items {
		got, err := repo.GetByCode(ctx, want.Code)
		require.NoError(t, err)
		assert.Equal(t, want.Stock, got.Stock)
	}
}
