package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace/stock/internal/domain/shared"
)

// AllocationStatus is the lifecycle state of an allocation
type AllocationStatus string

const (
	// AllocationStatusActive means the quantity is reserved but not yet consumed
	AllocationStatusActive AllocationStatus = "active"
	// AllocationStatusReleased means the reservation was cancelled; terminal
	AllocationStatusReleased AllocationStatus = "released"
	// AllocationStatusFulfilled means the reservation was consumed and the lot decremented; terminal
	AllocationStatusFulfilled AllocationStatus = "fulfilled"
)

// IsValid checks if the status is a known allocation status
func (s AllocationStatus) IsValid() bool {
	switch s {
	case AllocationStatusActive, AllocationStatusReleased, AllocationStatusFulfilled:
		return true
	}
	return false
}

// IsTerminal returns true for statuses that permit no further transitions
func (s AllocationStatus) IsTerminal() bool {
	return s == AllocationStatusReleased || s == AllocationStatusFulfilled
}

// String returns the string representation
func (s AllocationStatus) String() string {
	return string(s)
}

// Allocation is a reservation of a specific quantity from a specific lot,
// earmarked for a specific order. Quantity is fixed at creation.
type Allocation struct {
	shared.BaseEntity
	LotID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	OrderID  uuid.UUID        `gorm:"type:uuid;not null;index"`
	Quantity decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Status   AllocationStatus `gorm:"type:varchar(20);not null;default:'active';index"`
}

// TableName returns the table name for GORM
func (Allocation) TableName() string {
	return "allocations"
}

// NewAllocation creates a new active allocation of quantity from lotID for orderID
func NewAllocation(lotID, orderID uuid.UUID, quantity decimal.Decimal) (*Allocation, error) {
	if lotID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOT", "Lot ID cannot be empty")
	}
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Allocation quantity must be positive")
	}

	return &Allocation{
		BaseEntity: shared.NewBaseEntity(),
		LotID:      lotID,
		OrderID:    orderID,
		Quantity:   quantity,
		Status:     AllocationStatusActive,
	}, nil
}

// IsActive returns true if the allocation still reserves stock
func (a *Allocation) IsActive() bool {
	return a.Status == AllocationStatusActive
}

// Release marks the allocation as released (order cancelled, no stock impact)
func (a *Allocation) Release() error {
	if a.Status != AllocationStatusActive {
		return shared.ErrInvalidState
	}
	a.Status = AllocationStatusReleased
	a.UpdatedAt = time.Now()
	return nil
}

// Fulfill marks the allocation as fulfilled (order completed, lot consumed)
func (a *Allocation) Fulfill() error {
	if a.Status != AllocationStatusActive {
		return shared.ErrInvalidState
	}
	a.Status = AllocationStatusFulfilled
	a.UpdatedAt = time.Now()
	return nil
}
