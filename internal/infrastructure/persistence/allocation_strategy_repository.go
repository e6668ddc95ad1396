package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/marketplace/stock/internal/domain/shared"
	"github.com/marketplace/stock/internal/domain/stock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAllocationStrategyRepository implements AllocationStrategyRepository using GORM
type GormAllocationStrategyRepository struct {
	db *gorm.DB
}

// NewGormAllocationStrategyRepository creates a new GormAllocationStrategyRepository
func NewGormAllocationStrategyRepository(db *gorm.DB) *GormAllocationStrategyRepository {
	return &GormAllocationStrategyRepository{db: db}
}

// FindByContractor returns the contractor's configured strategy, or
// shared.ErrNotFound when none is stored.
func (r *GormAllocationStrategyRepository) FindByContractor(ctx context.Context, contractorID uuid.UUID) (*stock.AllocationStrategy, error) {
	var strategy stock.AllocationStrategy
	if err := r.db.WithContext(ctx).
		Where("contractor_id = ?", contractorID).
		First(&strategy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &strategy, nil
}

// Upsert creates or replaces the contractor's strategy configuration.
// contractor_id carries a unique index, so a second write for the same
// contractor updates the existing row in place.
func (r *GormAllocationStrategyRepository) Upsert(ctx context.Context, strategy *stock.AllocationStrategy) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "contractor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "location_priority", "updated_at"}),
		}).
		Create(strategy).Error
}

// Ensure GormAllocationStrategyRepository implements AllocationStrategyRepository
var _ stock.AllocationStrategyRepository = (*GormAllocationStrategyRepository)(nil)
