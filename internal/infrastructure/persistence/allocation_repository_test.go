package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/stock/internal/domain/stock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNewAllocation(t *testing.T, lotID, orderID uuid.UUID, quantity int64) *stock.Allocation {
	t.Helper()
	alloc, err := stock.NewAllocation(lotID, orderID, decimal.NewFromInt(quantity))
	require.NoError(t, err)
	return alloc
}

func TestAllocationRepository_CreateMany(t *testing.T) {
	db := setupStockTestDB(t)
	repo := NewGormAllocationRepository(db)
	ctx := context.Background()

	t.Run("persists all allocations", func(t *testing.T) {
		orderID := uuid.New()
		allocs := []*stock.Allocation{
			mustNewAllocation(t, uuid.New(), orderID, 3),
			mustNewAllocation(t, uuid.New(), orderID, 2),
		}

		require.NoError(t, repo.CreateMany(ctx, allocs))

		found, err := repo.FindByOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.CreateMany(ctx, nil))
	})
}

func TestAllocationRepository_FindByOrder(t *testing.T) {
	db := setupStockTestDB(t)
	repo := NewGormAllocationRepository(db)
	ctx := context.Background()

	orderID := uuid.New()

	first := mustNewAllocation(t, uuid.New(), orderID, 1)
	first.CreatedAt = time.Now().Add(-2 * time.Hour)
	second := mustNewAllocation(t, uuid.New(), orderID, 2)
	second.CreatedAt = time.Now().Add(-1 * time.Hour)
	released := mustNewAllocation(t, uuid.New(), orderID, 3)
	require.NoError(t, released.Release())

	require.NoError(t, repo.CreateMany(ctx, []*stock.Allocation{second, first, released}))
	require.NoError(t, repo.Create(ctx, mustNewAllocation(t, uuid.New(), uuid.New(), 9)))

	t.Run("returns all statuses oldest first", func(t *testing.T) {
		allocs, err := repo.FindByOrder(ctx, orderID)
		require.NoError(t, err)
		require.Len(t, allocs, 3)
		assert.Equal(t, first.ID, allocs[0].ID)
		assert.Equal(t, second.ID, allocs[1].ID)
	})

	t.Run("active filter excludes released", func(t *testing.T) {
		allocs, err := repo.FindActiveByOrder(ctx, orderID)
		require.NoError(t, err)
		require.Len(t, allocs, 2)
		for _, a := range allocs {
			assert.Equal(t, stock.AllocationStatusActive, a.Status)
		}
	})
}

func TestAllocationRepository_AllocatedQuantities(t *testing.T) {
	db := setupStockTestDB(t)
	repo := NewGormAllocationRepository(db)
	ctx := context.Background()

	lotA := uuid.New()
	lotB := uuid.New()
	lotEmpty := uuid.New()

	active := mustNewAllocation(t, lotA, uuid.New(), 3)
	fulfilled := mustNewAllocation(t, lotA, uuid.New(), 4)
	require.NoError(t, fulfilled.Fulfill())
	released := mustNewAllocation(t, lotA, uuid.New(), 100)
	require.NoError(t, released.Release())
	other := mustNewAllocation(t, lotB, uuid.New(), 2)

	require.NoError(t, repo.CreateMany(ctx, []*stock.Allocation{active, fulfilled, released, other}))

	t.Run("sums active and fulfilled, skips released", func(t *testing.T) {
		totals, err := repo.AllocatedQuantities(ctx, []uuid.UUID{lotA, lotB, lotEmpty})
		require.NoError(t, err)

		require.Contains(t, totals, lotA)
		assert.True(t, totals[lotA].Equal(decimal.NewFromInt(7)), "got %s", totals[lotA])
		assert.True(t, totals[lotB].Equal(decimal.NewFromInt(2)))
		assert.NotContains(t, totals, lotEmpty)
	})

	t.Run("single lot aggregate agrees", func(t *testing.T) {
		total, err := repo.AllocatedQuantity(ctx, lotA)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(7)))
	})

	t.Run("unallocated lot sums to zero", func(t *testing.T) {
		total, err := repo.AllocatedQuantity(ctx, lotEmpty)
		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})

	t.Run("empty id set returns empty map", func(t *testing.T) {
		totals, err := repo.AllocatedQuantities(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, totals)
	})
}

func TestAllocationRepository_UpdateStatusByOrder(t *testing.T) {
	db := setupStockTestDB(t)
	repo := NewGormAllocationRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	require.NoError(t, repo.CreateMany(ctx, []*stock.Allocation{
		mustNewAllocation(t, uuid.New(), orderID, 1),
		mustNewAllocation(t, uuid.New(), orderID, 2),
	}))

	t.Run("transitions matching rows", func(t *testing.T) {
		changed, err := repo.UpdateStatusByOrder(ctx, orderID, stock.AllocationStatusActive, stock.AllocationStatusReleased)
		require.NoError(t, err)
		assert.Equal(t, int64(2), changed)

		active, err := repo.FindActiveByOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("second transition changes nothing", func(t *testing.T) {
		changed, err := repo.UpdateStatusByOrder(ctx, orderID, stock.AllocationStatusActive, stock.AllocationStatusReleased)
		require.NoError(t, err)
		assert.Equal(t, int64(0), changed)
	})
}
