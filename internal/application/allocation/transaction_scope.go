package allocation

import (
	"context"

	"github.com/marketplace/stock/internal/domain/stock"
)

// TransactionScope provides transactional access to the allocation repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and are committed or
// rolled back atomically. Row locks taken inside the scope are held until the
// scope ends.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all allocation repositories
// within a transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// Lots returns the stock lot repository scoped to the current transaction
	Lots() stock.StockLotRepository
	// Allocations returns the allocation repository scoped to the current transaction
	Allocations() stock.AllocationRepository
	// Strategies returns the strategy repository scoped to the current transaction
	Strategies() stock.AllocationStrategyRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests and for stores without transaction support.
type NoOpTransactionScope struct {
	lots       stock.StockLotRepository
	alloc      stock.AllocationRepository
	strategies stock.AllocationStrategyRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories.
func NewNoOpTransactionScope(
	lots stock.StockLotRepository,
	alloc stock.AllocationRepository,
	strategies stock.AllocationStrategyRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		lots:       lots,
		alloc:      alloc,
		strategies: strategies,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Lots returns the stock lot repository.
func (s *NoOpTransactionScope) Lots() stock.StockLotRepository {
	return s.lots
}

// Allocations returns the allocation repository.
func (s *NoOpTransactionScope) Allocations() stock.AllocationRepository {
	return s.alloc
}

// Strategies returns the strategy repository.
func (s *NoOpTransactionScope) Strategies() stock.AllocationStrategyRepository {
	return s.strategies
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
