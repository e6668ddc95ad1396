package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/marketplace/stock/internal/domain/shared"
	"github.com/marketplace/stock/internal/domain/stock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockLotRepository implements StockLotRepository using GORM
type GormStockLotRepository struct {
	db *gorm.DB
}

// NewGormStockLotRepository creates a new GormStockLotRepository
func NewGormStockLotRepository(db *gorm.DB) *GormStockLotRepository {
	return &GormStockLotRepository{db: db}
}

// FindByID finds a stock lot by its ID
func (r *GormStockLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.StockLot, error) {
	var lot stock.StockLot
	if err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// FindByListing finds all lots of a listing, oldest first
func (r *GormStockLotRepository) FindByListing(ctx context.Context, listingID uuid.UUID, listedOnly bool) ([]stock.StockLot, error) {
	query := r.db.WithContext(ctx).Where("listing_id = ?", listingID)
	if listedOnly {
		query = query.Where("listed = ?", true)
	}

	var lots []stock.StockLot
	if err := query.Order("created_at ASC, id ASC").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// LockForUpdate re-reads the named lots under SELECT ... FOR UPDATE. The lock
// is held by the surrounding GORM transaction; calling this outside a
// transaction gives no protection. Callers pass ids sorted ascending so
// overlapping transactions acquire row locks in the same order.
//
// SQLite has no row-level locking (the whole database locks on write), so the
// locking clause is skipped there to keep the in-memory test setup working.
func (r *GormStockLotRepository) LockForUpdate(ctx context.Context, ids []uuid.UUID) ([]stock.StockLot, error) {
	if len(ids) == 0 {
		return []stock.StockLot{}, nil
	}

	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var lots []stock.StockLot
	if err := query.
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// Save creates or updates a stock lot
func (r *GormStockLotRepository) Save(ctx context.Context, lot *stock.StockLot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// UpdateQuantity durably sets a lot's total quantity
func (r *GormStockLotRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&stock.StockLot{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity_total": quantity,
			"updated_at":     gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormStockLotRepository implements StockLotRepository
var _ stock.StockLotRepository = (*GormStockLotRepository)(nil)
