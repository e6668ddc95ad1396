package stock

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace/stock/internal/domain/shared"
)

// ErrLotQuantityInvariant signals that consuming an allocation would drive a
// lot quantity negative. That can only happen when allocations were written
// outside the row-locking discipline, so it propagates as an unrecoverable
// internal error and is never clamped.
var ErrLotQuantityInvariant = shared.NewDomainError(
	"LOT_QUANTITY_INVARIANT",
	"Lot quantity would go negative on consumption",
)

// InsufficientStockError signals that an automatic allocation attempt found
// zero available stock across all candidate lots for the listing. Partial
// availability is not an error; it is signaled on the allocation result.
type InsufficientStockError struct {
	ListingID uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for listing %s: requested %s, available %s",
		e.ListingID, e.Requested, e.Available)
}

// Code returns the domain error code
func (e *InsufficientStockError) Code() string {
	return "INSUFFICIENT_STOCK"
}

// NewInsufficientStockError creates an InsufficientStockError for a listing
func NewInsufficientStockError(listingID uuid.UUID, requested decimal.Decimal) *InsufficientStockError {
	return &InsufficientStockError{
		ListingID: listingID,
		Requested: requested,
		Available: decimal.Zero,
	}
}

// AllocationValidationError signals malformed or infeasible caller-supplied
// allocation input: an unknown lot, a non-positive quantity, or a manual
// request exceeding a specific lot's availability. Always caller-fixable,
// never retried by the engine.
type AllocationValidationError struct {
	LotID     uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
	Reason    string
}

// Error implements the error interface
func (e *AllocationValidationError) Error() string {
	if e.LotID == uuid.Nil {
		return fmt.Sprintf("invalid allocation request: %s", e.Reason)
	}
	return fmt.Sprintf("invalid allocation request for lot %s: %s", e.LotID, e.Reason)
}

// Code returns the domain error code
func (e *AllocationValidationError) Code() string {
	return "ALLOCATION_VALIDATION"
}

// NewAllocationValidationError creates a validation error with a free-form reason
func NewAllocationValidationError(lotID uuid.UUID, reason string) *AllocationValidationError {
	return &AllocationValidationError{LotID: lotID, Reason: reason}
}

// NewLotAvailabilityError creates a validation error for a request exceeding
// a specific lot's available quantity
func NewLotAvailabilityError(lotID uuid.UUID, requested, available decimal.Decimal) *AllocationValidationError {
	return &AllocationValidationError{
		LotID:     lotID,
		Requested: requested,
		Available: available,
		Reason:    fmt.Sprintf("requested %s exceeds available %s", requested, available),
	}
}
