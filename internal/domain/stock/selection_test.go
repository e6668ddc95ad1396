package stock

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(t *testing.T, createdAt time.Time, available int64, locationID *uuid.UUID) CandidateLot {
	t.Helper()
	lot, err := NewStockLot(uuid.New(), decimal.NewFromInt(available), locationID, true)
	require.NoError(t, err)
	lot.CreatedAt = createdAt
	return CandidateLot{Lot: *lot, Available: decimal.NewFromInt(available)}
}

func TestFIFOSelector_Plan(t *testing.T) {
	selector := NewFIFOSelector()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("oldest lot exhausted first, remainder from next oldest", func(t *testing.T) {
		lotA := candidate(t, base.Add(1*time.Hour), 3, nil)
		lotB := candidate(t, base.Add(2*time.Hour), 5, nil)

		// Pass candidates newest-first to prove ordering is the selector's job
		plan, err := selector.Plan(decimal.NewFromInt(4), []CandidateLot{lotB, lotA})
		require.NoError(t, err)

		require.Len(t, plan.Entries, 2)
		assert.Equal(t, lotA.Lot.ID, plan.Entries[0].LotID)
		assert.True(t, plan.Entries[0].Quantity.Equal(decimal.NewFromInt(3)))
		assert.Equal(t, lotB.Lot.ID, plan.Entries[1].LotID)
		assert.True(t, plan.Entries[1].Quantity.Equal(decimal.NewFromInt(1)))
		assert.True(t, plan.FullyPlanned())
	})

	t.Run("partial plan when total available is short", func(t *testing.T) {
		lot := candidate(t, base, 2, nil)

		plan, err := selector.Plan(decimal.NewFromInt(5), []CandidateLot{lot})
		require.NoError(t, err)

		assert.True(t, plan.TotalPlanned.Equal(decimal.NewFromInt(2)))
		assert.True(t, plan.Remaining.Equal(decimal.NewFromInt(3)))
		assert.False(t, plan.FullyPlanned())
	})

	t.Run("lots without availability are skipped", func(t *testing.T) {
		empty := candidate(t, base, 0, nil)
		stocked := candidate(t, base.Add(time.Hour), 4, nil)

		plan, err := selector.Plan(decimal.NewFromInt(2), []CandidateLot{empty, stocked})
		require.NoError(t, err)

		require.Len(t, plan.Entries, 1)
		assert.Equal(t, stocked.Lot.ID, plan.Entries[0].LotID)
	})

	t.Run("deterministic across reruns", func(t *testing.T) {
		candidates := []CandidateLot{
			candidate(t, base.Add(3*time.Hour), 2, nil),
			candidate(t, base.Add(1*time.Hour), 2, nil),
			candidate(t, base.Add(2*time.Hour), 2, nil),
		}

		first, err := selector.Plan(decimal.NewFromInt(5), candidates)
		require.NoError(t, err)
		second, err := selector.Plan(decimal.NewFromInt(5), candidates)
		require.NoError(t, err)

		assert.Equal(t, first.Entries, second.Entries)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := selector.Plan(decimal.Zero, nil)
		assert.Error(t, err)
	})
}

func TestLocationPrioritySelector_Plan(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("priority dominates recency", func(t *testing.T) {
		locX := uuid.New()
		locY := uuid.New()
		lotX := candidate(t, base.Add(5*time.Hour), 2, &locX) // older in spirit: created later but ranked lower
		lotY := candidate(t, base.Add(1*time.Hour), 2, &locY)
		lotX.Lot.CreatedAt = base.Add(5 * time.Hour)
		lotY.Lot.CreatedAt = base.Add(1 * time.Hour)

		selector := NewLocationPrioritySelector(LocationList{locY, locX})
		plan, err := selector.Plan(decimal.NewFromInt(3), []CandidateLot{lotX, lotY})
		require.NoError(t, err)

		require.Len(t, plan.Entries, 2)
		assert.Equal(t, lotY.Lot.ID, plan.Entries[0].LotID)
		assert.True(t, plan.Entries[0].Quantity.Equal(decimal.NewFromInt(2)))
		assert.Equal(t, lotX.Lot.ID, plan.Entries[1].LotID)
		assert.True(t, plan.Entries[1].Quantity.Equal(decimal.NewFromInt(1)))
	})

	t.Run("unranked lots come after all ranked lots", func(t *testing.T) {
		ranked := uuid.New()
		other := uuid.New()
		unranked := candidate(t, base, 5, &other)
		noLocation := candidate(t, base.Add(time.Minute), 5, nil)
		prioritized := candidate(t, base.Add(10*time.Hour), 1, &ranked)

		selector := NewLocationPrioritySelector(LocationList{ranked})
		plan, err := selector.Plan(decimal.NewFromInt(3), []CandidateLot{unranked, noLocation, prioritized})
		require.NoError(t, err)

		require.NotEmpty(t, plan.Entries)
		assert.Equal(t, prioritized.Lot.ID, plan.Entries[0].LotID)
		// Within the unranked group, FIFO applies
		assert.Equal(t, unranked.Lot.ID, plan.Entries[1].LotID)
	})

	t.Run("empty priority order degrades to FIFO", func(t *testing.T) {
		locA := uuid.New()
		older := candidate(t, base, 3, &locA)
		newer := candidate(t, base.Add(time.Hour), 3, &locA)

		selector := NewLocationPrioritySelector(nil)
		plan, err := selector.Plan(decimal.NewFromInt(4), []CandidateLot{newer, older})
		require.NoError(t, err)

		require.Len(t, plan.Entries, 2)
		assert.Equal(t, older.Lot.ID, plan.Entries[0].LotID)
		assert.Equal(t, newer.Lot.ID, plan.Entries[1].LotID)
	})
}

func TestSelectorFor(t *testing.T) {
	t.Run("nil strategy defaults to FIFO", func(t *testing.T) {
		assert.Equal(t, StrategyTypeFIFO, SelectorFor(nil).Type())
	})

	t.Run("location priority strategy", func(t *testing.T) {
		s, err := NewAllocationStrategy(uuid.New(), StrategyTypeLocationPriority, LocationList{uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, StrategyTypeLocationPriority, SelectorFor(s).Type())
	})

	t.Run("fifo strategy", func(t *testing.T) {
		s, err := NewAllocationStrategy(uuid.New(), StrategyTypeFIFO, nil)
		require.NoError(t, err)
		assert.Equal(t, StrategyTypeFIFO, SelectorFor(s).Type())
	})
}
