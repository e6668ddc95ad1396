package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/stock/internal/domain/stock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// Create persists a single allocation
func (r *GormAllocationRepository) Create(ctx context.Context, allocation *stock.Allocation) error {
	return r.db.WithContext(ctx).Create(allocation).Error
}

// CreateMany persists allocations in bulk within the current transaction
func (r *GormAllocationRepository) CreateMany(ctx context.Context, allocations []*stock.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(allocations).Error
}

// FindByOrder returns all allocations of an order, oldest first
func (r *GormAllocationRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]stock.Allocation, error) {
	var allocations []stock.Allocation
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindActiveByOrder returns the order's active allocations, oldest first
func (r *GormAllocationRepository) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]stock.Allocation, error) {
	var allocations []stock.Allocation
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, stock.AllocationStatusActive).
		Order("created_at ASC, id ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// AllocatedQuantity sums active and fulfilled allocation quantities for a lot.
// Released allocations no longer count against the lot.
func (r *GormAllocationRepository) AllocatedQuantity(ctx context.Context, lotID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&stock.Allocation{}).
		Select("COALESCE(SUM(quantity), 0) as total").
		Where("lot_id = ? AND status IN ?", lotID, countedStatuses()).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// AllocatedQuantities sums active and fulfilled allocation quantities per lot
// in one aggregate query. Lots with no counted allocations are absent from
// the returned map.
func (r *GormAllocationRepository) AllocatedQuantities(ctx context.Context, lotIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	totals := make(map[uuid.UUID]decimal.Decimal, len(lotIDs))
	if len(lotIDs) == 0 {
		return totals, nil
	}

	var rows []struct {
		LotID uuid.UUID
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&stock.Allocation{}).
		Select("lot_id, COALESCE(SUM(quantity), 0) as total").
		Where("lot_id IN ? AND status IN ?", lotIDs, countedStatuses()).
		Group("lot_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		totals[row.LotID] = row.Total
	}
	return totals, nil
}

// UpdateStatusByOrder transitions all of the order's allocations currently in
// `from` to `to`, returning the number of rows changed. The status predicate
// makes the transition idempotent under retries.
func (r *GormAllocationRepository) UpdateStatusByOrder(ctx context.Context, orderID uuid.UUID, from, to stock.AllocationStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&stock.Allocation{}).
		Where("order_id = ? AND status = ?", orderID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func countedStatuses() []stock.AllocationStatus {
	return []stock.AllocationStatus{stock.AllocationStatusActive, stock.AllocationStatusFulfilled}
}

// Ensure GormAllocationRepository implements AllocationRepository
var _ stock.AllocationRepository = (*GormAllocationRepository)(nil)
