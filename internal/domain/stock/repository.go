package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLotRepository defines the interface for stock lot persistence.
//
// LockForUpdate is the engine's only correctness mechanism against concurrent
// allocation: it re-reads the named lots under an exclusive row lock
// (SELECT ... FOR UPDATE semantics) held until the enclosing transaction
// commits or rolls back. Callers must pass ids in ascending order so every
// transaction acquires overlapping lock sets in the same global order.
type StockLotRepository interface {
	// FindByID finds a stock lot by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockLot, error)

	// FindByListing finds all lots of a listing, optionally restricted to
	// lots currently offering their stock for sale
	FindByListing(ctx context.Context, listingID uuid.UUID, listedOnly bool) ([]StockLot, error)

	// LockForUpdate re-reads the named lots under an exclusive row lock,
	// blocking behind any concurrent transaction holding any of them
	LockForUpdate(ctx context.Context, ids []uuid.UUID) ([]StockLot, error)

	// Save creates or updates a stock lot
	Save(ctx context.Context, lot *StockLot) error

	// UpdateQuantity durably sets a lot's total quantity
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) error
}

// AllocationRepository defines the interface for allocation persistence
type AllocationRepository interface {
	// Create persists a single allocation
	Create(ctx context.Context, allocation *Allocation) error

	// CreateMany persists allocations in bulk within the current transaction
	CreateMany(ctx context.Context, allocations []*Allocation) error

	// FindByOrder returns all allocations of an order, oldest first
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Allocation, error)

	// FindActiveByOrder returns the order's active allocations, oldest first
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]Allocation, error)

	// AllocatedQuantity sums active and fulfilled allocation quantities for a lot
	AllocatedQuantity(ctx context.Context, lotID uuid.UUID) (decimal.Decimal, error)

	// AllocatedQuantities sums active and fulfilled allocation quantities for
	// each of the given lots in a single aggregate query. Lots with no
	// allocations are absent from the result.
	AllocatedQuantities(ctx context.Context, lotIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// UpdateStatusByOrder transitions all of the order's allocations currently
	// in `from` to `to`, returning the number of rows changed
	UpdateStatusByOrder(ctx context.Context, orderID uuid.UUID, from, to AllocationStatus) (int64, error)
}

// AllocationStrategyRepository defines the interface for per-contractor
// strategy configuration. FindByContractor returns shared.ErrNotFound when
// the contractor has no stored strategy.
type AllocationStrategyRepository interface {
	// FindByContractor returns the contractor's configured strategy
	FindByContractor(ctx context.Context, contractorID uuid.UUID) (*AllocationStrategy, error)

	// Upsert creates or replaces the contractor's strategy configuration
	Upsert(ctx context.Context, strategy *AllocationStrategy) error
}
