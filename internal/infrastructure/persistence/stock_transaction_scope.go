package persistence

import (
	"context"

	appalloc "github.com/marketplace/stock/internal/application/allocation"
	"github.com/marketplace/stock/internal/domain/stock"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations; row locks
// taken inside the scope are released when the transaction ends.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appalloc.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Lots returns the stock lot repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Lots() stock.StockLotRepository {
	return NewGormStockLotRepository(r.tx)
}

// Allocations returns the allocation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Allocations() stock.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

// Strategies returns the strategy repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Strategies() stock.AllocationStrategyRepository {
	return NewGormAllocationStrategyRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appalloc.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appalloc.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
