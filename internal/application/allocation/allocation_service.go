package allocation

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketplace/stock/internal/domain/shared"
	"github.com/marketplace/stock/internal/domain/stock"
)

// AllocationService reserves, releases, and consumes finite stock against
// orders. Every mutating operation runs inside exactly one transaction and
// takes an exclusive row lock on every lot it will read-then-write, so two
// concurrent allocations can never both believe the same units are available.
// Lock sets are always acquired in ascending lot-ID order.
type AllocationService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(scope TransactionScope, logger *zap.Logger) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		scope:  scope,
		logger: logger.Named("allocation"),
	}
}

// AutoAllocate reserves quantity units from the listing's stock lots using
// strict FIFO over listed lots. Partial fulfillment is signaled on the result,
// not returned as an error; only zero availability across all candidate lots
// fails, with *stock.InsufficientStockError.
func (s *AllocationService) AutoAllocate(ctx context.Context, orderID, listingID uuid.UUID, quantity decimal.Decimal) (*AllocationResult, error) {
	return s.allocate(ctx, orderID, listingID, quantity, func(TransactionalRepositories) (stock.LotSelector, error) {
		return stock.NewFIFOSelector(), nil
	})
}

// AllocateWithStrategy reserves quantity units using the contractor's
// configured strategy, defaulting to FIFO when none is stored. The strategy
// lookup runs inside the same transaction as the allocation itself.
func (s *AllocationService) AllocateWithStrategy(ctx context.Context, orderID, listingID uuid.UUID, quantity decimal.Decimal, contractorID uuid.UUID) (*AllocationResult, error) {
	return s.allocate(ctx, orderID, listingID, quantity, func(repos TransactionalRepositories) (stock.LotSelector, error) {
		strategy, err := repos.Strategies().FindByContractor(ctx, contractorID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		return stock.SelectorFor(strategy), nil
	})
}

// allocate is the shared path for all automatic allocation strategies.
// selectorFor resolves the lot selector from inside the transaction, so
// strategy dispatch and the allocation share one scope.
func (s *AllocationService) allocate(ctx context.Context, orderID, listingID uuid.UUID, quantity decimal.Decimal, selectorFor func(repos TransactionalRepositories) (stock.LotSelector, error)) (*AllocationResult, error) {
	if orderID == uuid.Nil {
		return nil, stock.NewAllocationValidationError(uuid.Nil, "order ID cannot be empty")
	}
	if listingID == uuid.Nil {
		return nil, stock.NewAllocationValidationError(uuid.Nil, "listing ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, stock.NewAllocationValidationError(uuid.Nil, "requested quantity must be positive")
	}

	var result *AllocationResult
	var strategyType stock.StrategyType
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		selector, err := selectorFor(repos)
		if err != nil {
			return err
		}
		strategyType = selector.Type()

		lots, err := repos.Lots().FindByListing(ctx, listingID, true)
		if err != nil {
			return err
		}

		candidates, err := lockCandidates(ctx, repos, lots)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return stock.NewInsufficientStockError(listingID, quantity)
		}

		plan, err := selector.Plan(quantity, candidates)
		if err != nil {
			return err
		}

		allocations := make([]*stock.Allocation, 0, len(plan.Entries))
		for _, entry := range plan.Entries {
			a, err := stock.NewAllocation(entry.LotID, orderID, entry.Quantity)
			if err != nil {
				return err
			}
			allocations = append(allocations, a)
		}
		if err := repos.Allocations().CreateMany(ctx, allocations); err != nil {
			return err
		}

		result = newAllocationResult(orderID, quantity, allocations)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock allocated",
		zap.Stringer("order_id", orderID),
		zap.Stringer("listing_id", listingID),
		zap.String("strategy", strategyType.String()),
		zap.String("requested", result.TotalRequested.String()),
		zap.String("allocated", result.TotalAllocated.String()),
		zap.Bool("partial", result.IsPartial),
		zap.Int("lots", len(result.Allocations)),
	)
	return result, nil
}

// ManualAllocate reserves the exact lot/quantity pairs the caller specifies.
// The whole call is all-or-nothing: any unknown lot, non-positive quantity,
// or request exceeding a lot's availability fails the call with
// *stock.AllocationValidationError and persists nothing.
func (s *AllocationService) ManualAllocate(ctx context.Context, orderID uuid.UUID, requests []ManualAllocationRequest) (*AllocationResult, error) {
	if orderID == uuid.Nil {
		return nil, stock.NewAllocationValidationError(uuid.Nil, "order ID cannot be empty")
	}
	if len(requests) == 0 {
		return nil, stock.NewAllocationValidationError(uuid.Nil, "at least one allocation is required")
	}
	requested := decimal.Zero
	for _, r := range requests {
		if r.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, stock.NewAllocationValidationError(r.LotID, "quantity must be positive")
		}
		requested = requested.Add(r.Quantity)
	}

	var result *AllocationResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ids := uniqueLotIDs(requests)
		locked, err := repos.Lots().LockForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		lotsByID := make(map[uuid.UUID]*stock.StockLot, len(locked))
		for i := range locked {
			lotsByID[locked[i].ID] = &locked[i]
		}
		for _, id := range ids {
			if _, ok := lotsByID[id]; !ok {
				return stock.NewAllocationValidationError(id, "lot does not exist")
			}
		}

		allocated, err := repos.Allocations().AllocatedQuantities(ctx, ids)
		if err != nil {
			return err
		}

		// Running availability per lot; the same lot may appear in more than
		// one request within a single call.
		available := make(map[uuid.UUID]decimal.Decimal, len(ids))
		for id, lot := range lotsByID {
			available[id] = lot.QuantityTotal.Sub(allocated[id])
		}

		allocations := make([]*stock.Allocation, 0, len(requests))
		for _, r := range requests {
			if r.Quantity.GreaterThan(available[r.LotID]) {
				return stock.NewLotAvailabilityError(r.LotID, r.Quantity, available[r.LotID])
			}
			available[r.LotID] = available[r.LotID].Sub(r.Quantity)

			a, err := stock.NewAllocation(r.LotID, orderID, r.Quantity)
			if err != nil {
				return err
			}
			allocations = append(allocations, a)
		}
		if err := repos.Allocations().CreateMany(ctx, allocations); err != nil {
			return err
		}

		result = newAllocationResult(orderID, requested, allocations)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock allocated manually",
		zap.Stringer("order_id", orderID),
		zap.String("allocated", result.TotalAllocated.String()),
		zap.Int("lots", len(result.Allocations)),
	)
	return result, nil
}

// ReleaseAllocations transitions all of the order's active allocations to
// released. Lot quantities are untouched: nothing was ever consumed.
// Idempotent: an order with no active allocations is a no-op.
func (s *AllocationService) ReleaseAllocations(ctx context.Context, orderID uuid.UUID) error {
	var released int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		n, err := repos.Allocations().UpdateStatusByOrder(ctx, orderID,
			stock.AllocationStatusActive, stock.AllocationStatusReleased)
		if err != nil {
			return err
		}
		released = n
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("allocations released",
		zap.Stringer("order_id", orderID),
		zap.Int64("count", released),
	)
	return nil
}

// ConsumeAllocations transitions all of the order's active allocations to
// fulfilled and durably decrements each touched lot's quantity by the
// allocated amount, all within one transaction. A decrement that would go
// negative aborts the whole call: it indicates the locking discipline was
// violated elsewhere, and is never clamped.
func (s *AllocationService) ConsumeAllocations(ctx context.Context, orderID uuid.UUID) error {
	var consumed int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		active, err := repos.Allocations().FindActiveByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(active))
		seen := make(map[uuid.UUID]struct{}, len(active))
		for _, a := range active {
			if _, ok := seen[a.LotID]; ok {
				continue
			}
			seen[a.LotID] = struct{}{}
			ids = append(ids, a.LotID)
		}
		sortLotIDs(ids)

		locked, err := repos.Lots().LockForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		lotsByID := make(map[uuid.UUID]*stock.StockLot, len(locked))
		for i := range locked {
			lotsByID[locked[i].ID] = &locked[i]
		}

		for _, a := range active {
			lot, ok := lotsByID[a.LotID]
			if !ok {
				s.logger.Error("active allocation references missing lot",
					zap.Stringer("order_id", orderID),
					zap.Stringer("lot_id", a.LotID),
				)
				return shared.ErrNotFound
			}
			if err := lot.Consume(a.Quantity); err != nil {
				s.logger.Error("lot quantity invariant violated on consumption",
					zap.Stringer("order_id", orderID),
					zap.Stringer("lot_id", a.LotID),
					zap.String("lot_quantity", lot.QuantityTotal.String()),
					zap.String("allocation_quantity", a.Quantity.String()),
				)
				return err
			}
		}

		for _, id := range ids {
			if err := repos.Lots().UpdateQuantity(ctx, id, lotsByID[id].QuantityTotal); err != nil {
				return err
			}
		}

		n, err := repos.Allocations().UpdateStatusByOrder(ctx, orderID,
			stock.AllocationStatusActive, stock.AllocationStatusFulfilled)
		if err != nil {
			return err
		}
		consumed = n
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("allocations consumed",
		zap.Stringer("order_id", orderID),
		zap.Int64("count", consumed),
	)
	return nil
}

// GetAllocations returns all allocations of an order, oldest first
func (s *AllocationService) GetAllocations(ctx context.Context, orderID uuid.UUID) ([]stock.Allocation, error) {
	var allocations []stock.Allocation
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		allocations, err = repos.Allocations().FindByOrder(ctx, orderID)
		return err
	})
	return allocations, err
}

// GetAllocatedQuantity returns the sum of active and fulfilled allocation
// quantities against a lot
func (s *AllocationService) GetAllocatedQuantity(ctx context.Context, lotID uuid.UUID) (decimal.Decimal, error) {
	quantity := decimal.Zero
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		quantity, err = repos.Allocations().AllocatedQuantity(ctx, lotID)
		return err
	})
	return quantity, err
}

// GetAvailableQuantity returns the total unreserved quantity across the
// listing's listed lots. Read-only; no locks are taken, so the value is
// advisory for UI and backorder policy, not an allocation guarantee.
func (s *AllocationService) GetAvailableQuantity(ctx context.Context, listingID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lots, err := repos.Lots().FindByListing(ctx, listingID, true)
		if err != nil {
			return err
		}
		if len(lots) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(lots))
		for i := range lots {
			ids[i] = lots[i].ID
		}
		allocated, err := repos.Allocations().AllocatedQuantities(ctx, ids)
		if err != nil {
			return err
		}

		for i := range lots {
			available := lots[i].QuantityTotal.Sub(allocated[lots[i].ID])
			if available.IsPositive() {
				total = total.Add(available)
			}
		}
		return nil
	})
	return total, err
}

// GetAllocationStrategy returns the contractor's configured strategy, or nil
// when none is stored (the engine then defaults to FIFO)
func (s *AllocationService) GetAllocationStrategy(ctx context.Context, contractorID uuid.UUID) (*stock.AllocationStrategy, error) {
	var strategy *stock.AllocationStrategy
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.Strategies().FindByContractor(ctx, contractorID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		strategy = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return strategy, nil
}

// SetAllocationStrategy upserts the contractor's strategy configuration
func (s *AllocationService) SetAllocationStrategy(ctx context.Context, input StrategyInput) (*stock.AllocationStrategy, error) {
	var strategy *stock.AllocationStrategy
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.Strategies().FindByContractor(ctx, input.ContractorID)
		switch {
		case err == nil:
			if err := existing.Update(input.Type, input.LocationPriority); err != nil {
				return err
			}
			strategy = existing
		case errors.Is(err, shared.ErrNotFound):
			created, err := stock.NewAllocationStrategy(input.ContractorID, input.Type, input.LocationPriority)
			if err != nil {
				return err
			}
			strategy = created
		default:
			return err
		}

		return repos.Strategies().Upsert(ctx, strategy)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("allocation strategy configured",
		zap.Stringer("contractor_id", input.ContractorID),
		zap.String("strategy", strategy.Type.String()),
	)
	return strategy, nil
}

// lockCandidates locks the given lots in ascending ID order, then computes
// each lot's availability from the locked rows and a single batched aggregate
// over existing allocations. Lots with nothing available are dropped.
func lockCandidates(ctx context.Context, repos TransactionalRepositories, lots []stock.StockLot) ([]stock.CandidateLot, error) {
	if len(lots) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(lots))
	for i := range lots {
		ids[i] = lots[i].ID
	}
	sortLotIDs(ids)

	locked, err := repos.Lots().LockForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	allocated, err := repos.Allocations().AllocatedQuantities(ctx, ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]stock.CandidateLot, 0, len(locked))
	for _, lot := range locked {
		available := lot.QuantityTotal.Sub(allocated[lot.ID])
		if available.IsPositive() {
			candidates = append(candidates, stock.CandidateLot{Lot: lot, Available: available})
		}
	}
	return candidates, nil
}

// uniqueLotIDs returns the distinct lot IDs of the requests in ascending order
func uniqueLotIDs(requests []ManualAllocationRequest) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(requests))
	ids := make([]uuid.UUID, 0, len(requests))
	for _, r := range requests {
		if _, ok := seen[r.LotID]; ok {
			continue
		}
		seen[r.LotID] = struct{}{}
		ids = append(ids, r.LotID)
	}
	sortLotIDs(ids)
	return ids
}

// sortLotIDs sorts lot IDs ascending, the global lock acquisition order
func sortLotIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}
