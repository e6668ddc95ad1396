package stock

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace/stock/internal/domain/shared"
)

// CandidateLot pairs a stock lot with its available quantity, i.e. the lot
// total minus the sum of active and fulfilled allocations against it. The
// caller computes availability inside the same lock scope that will write
// the resulting allocations.
type CandidateLot struct {
	Lot       StockLot
	Available decimal.Decimal
}

// PlanEntry is one lot-level slice of an allocation plan
type PlanEntry struct {
	LotID    uuid.UUID
	Quantity decimal.Decimal
}

// Plan is the deterministic lot-by-lot split produced by a selector.
// Remaining is the portion of the request that no lot could cover;
// a non-zero Remaining is a valid outcome, not an error.
type Plan struct {
	Entries      []PlanEntry
	TotalPlanned decimal.Decimal
	Remaining    decimal.Decimal
}

// FullyPlanned returns true if the whole requested quantity was covered
func (p *Plan) FullyPlanned() bool {
	return p.Remaining.IsZero()
}

// LotSelector orders candidate lots and greedily plans an allocation across them
type LotSelector interface {
	// Type returns the strategy type implemented by this selector
	Type() StrategyType
	// Plan computes the lot split for the requested quantity. Re-running Plan
	// against the same candidates produces the same split.
	Plan(requested decimal.Decimal, candidates []CandidateLot) (*Plan, error)
}

// FIFOSelector picks lots strictly oldest-first by creation time
type FIFOSelector struct{}

// NewFIFOSelector creates a FIFO lot selector
func NewFIFOSelector() *FIFOSelector {
	return &FIFOSelector{}
}

// Type returns the strategy type
func (s *FIFOSelector) Type() StrategyType {
	return StrategyTypeFIFO
}

// Plan selects lots in FIFO order (oldest CreatedAt first)
func (s *FIFOSelector) Plan(requested decimal.Decimal, candidates []CandidateLot) (*Plan, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}

	sorted := sortCandidates(candidates, func(a, b CandidateLot) bool {
		if !a.Lot.CreatedAt.Equal(b.Lot.CreatedAt) {
			return a.Lot.CreatedAt.Before(b.Lot.CreatedAt)
		}
		return a.Lot.ID.String() < b.Lot.ID.String()
	})

	return planGreedy(requested, sorted), nil
}

// LocationPrioritySelector prefers lots at ranked locations. Lots whose
// location appears in the priority order are taken by ascending index; all
// other lots come after, and ties (including the whole unranked group) fall
// back to FIFO. With an empty priority order this reduces to pure FIFO.
type LocationPrioritySelector struct {
	order LocationList
}

// NewLocationPrioritySelector creates a selector for the given priority order
func NewLocationPrioritySelector(order LocationList) *LocationPrioritySelector {
	return &LocationPrioritySelector{order: order}
}

// Type returns the strategy type
func (s *LocationPrioritySelector) Type() StrategyType {
	return StrategyTypeLocationPriority
}

// Plan selects lots by the combined (priority index, CreatedAt) sort key
func (s *LocationPrioritySelector) Plan(requested decimal.Decimal, candidates []CandidateLot) (*Plan, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}

	sorted := sortCandidates(candidates, func(a, b CandidateLot) bool {
		ra, rb := s.rank(a.Lot), s.rank(b.Lot)
		if ra != rb {
			return ra < rb
		}
		if !a.Lot.CreatedAt.Equal(b.Lot.CreatedAt) {
			return a.Lot.CreatedAt.Before(b.Lot.CreatedAt)
		}
		return a.Lot.ID.String() < b.Lot.ID.String()
	})

	return planGreedy(requested, sorted), nil
}

// rank maps a lot to its priority group; unranked lots sort after all ranked ones
func (s *LocationPrioritySelector) rank(lot StockLot) int {
	if lot.LocationID == nil {
		return len(s.order)
	}
	if idx := s.order.IndexOf(*lot.LocationID); idx >= 0 {
		return idx
	}
	return len(s.order)
}

// SelectorFor returns the lot selector for the given strategy configuration.
// A nil strategy means the contractor has none configured and defaults to FIFO.
func SelectorFor(strategy *AllocationStrategy) LotSelector {
	if strategy == nil {
		return NewFIFOSelector()
	}
	switch strategy.Type {
	case StrategyTypeLocationPriority:
		return NewLocationPrioritySelector(strategy.LocationPriority)
	default:
		return NewFIFOSelector()
	}
}

// sortCandidates returns a sorted copy, leaving the input untouched
func sortCandidates(candidates []CandidateLot, less func(a, b CandidateLot) bool) []CandidateLot {
	sorted := make([]CandidateLot, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return sorted
}

// planGreedy walks the ordered candidates, taking min(remaining, available)
// from each lot with available stock until the request is satisfied or the
// candidates are exhausted.
func planGreedy(requested decimal.Decimal, sorted []CandidateLot) *Plan {
	entries := make([]PlanEntry, 0, len(sorted))
	remaining := requested
	total := decimal.Zero

	for _, c := range sorted {
		if remaining.IsZero() {
			break
		}
		if c.Available.LessThanOrEqual(decimal.Zero) {
			continue
		}

		take := decimal.Min(remaining, c.Available)
		entries = append(entries, PlanEntry{LotID: c.Lot.ID, Quantity: take})
		total = total.Add(take)
		remaining = remaining.Sub(take)
	}

	return &Plan{
		Entries:      entries,
		TotalPlanned: total,
		Remaining:    remaining,
	}
}
