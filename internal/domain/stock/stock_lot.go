package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace/stock/internal/domain/shared"
)

// StockLot represents a batch of fungible inventory units tied to one listing.
// QuantityTotal only ever decreases, and only through consumption of fulfilled
// allocations. CreatedAt is the FIFO ordering key.
type StockLot struct {
	shared.BaseEntity
	ListingID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuantityTotal decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LocationID    *uuid.UUID      `gorm:"type:uuid;index"` // Optional, used by location-priority selection
	Listed        bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (StockLot) TableName() string {
	return "stock_lots"
}

// NewStockLot creates a new stock lot for a listing
func NewStockLot(listingID uuid.UUID, quantity decimal.Decimal, locationID *uuid.UUID, listed bool) (*StockLot, error) {
	if listingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LISTING", "Listing ID cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Lot quantity cannot be negative")
	}

	return &StockLot{
		BaseEntity:    shared.NewBaseEntity(),
		ListingID:     listingID,
		QuantityTotal: quantity,
		LocationID:    locationID,
		Listed:        listed,
	}, nil
}

// Consume permanently reduces the lot quantity by the given amount.
// The quantity never goes negative: a decrement that would cross zero means
// allocations against this lot were written outside the locking discipline,
// which is unrecoverable here.
func (l *StockLot) Consume(quantity decimal.Decimal) error {
	if quantity.GreaterThan(l.QuantityTotal) {
		return ErrLotQuantityInvariant
	}
	l.QuantityTotal = l.QuantityTotal.Sub(quantity)
	l.UpdatedAt = time.Now()
	return nil
}
