package allocation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace/stock/internal/domain/stock"
)

// ManualAllocationRequest names a specific lot and the exact quantity to
// reserve from it, e.g. a human picking specific batches.
type ManualAllocationRequest struct {
	LotID    uuid.UUID       `json:"lot_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// StrategyInput carries a contractor's allocation strategy configuration
type StrategyInput struct {
	ContractorID     uuid.UUID          `json:"contractor_id"`
	Type             stock.StrategyType `json:"strategy_type"`
	LocationPriority stock.LocationList `json:"location_priority_order,omitempty"`
}

// AllocationResult is the outcome of an allocation-creating operation.
// IsPartial signals that less than the requested quantity was reserved;
// callers branch on it to accept partial stock, queue a backorder, or fail
// the order. Partial fulfillment is never surfaced as an error.
type AllocationResult struct {
	OrderID        uuid.UUID          `json:"order_id"`
	Allocations    []stock.Allocation `json:"allocations"`
	TotalRequested decimal.Decimal    `json:"total_requested"`
	TotalAllocated decimal.Decimal    `json:"total_allocated"`
	IsPartial      bool               `json:"is_partial"`
}

// Remaining returns the requested quantity that could not be reserved
func (r *AllocationResult) Remaining() decimal.Decimal {
	return r.TotalRequested.Sub(r.TotalAllocated)
}

// newAllocationResult assembles a result from freshly created allocations
func newAllocationResult(orderID uuid.UUID, requested decimal.Decimal, allocations []*stock.Allocation) *AllocationResult {
	rows := make([]stock.Allocation, 0, len(allocations))
	total := decimal.Zero
	for _, a := range allocations {
		rows = append(rows, *a)
		total = total.Add(a.Quantity)
	}

	return &AllocationResult{
		OrderID:        orderID,
		Allocations:    rows,
		TotalRequested: requested,
		TotalAllocated: total,
		IsPartial:      total.LessThan(requested),
	}
}
