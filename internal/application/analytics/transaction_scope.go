package analytics

import (
	"context"

	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/domain/audit"
)

// TransactionScope provides transactional access to reporting repositories.
// An upload's deletes and inserts are committed or rolled back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories an upload
// writes to. All of them share the same underlying database transaction.
type TransactionalRepositories interface {
	EntityRepo() analytics.EntityRepository
	CategoryRepo() analytics.CategoryRepository
	PnLRepo() analytics.PnLRepository
	TrialBalanceRepo() analytics.TrialBalanceRepository
	AuditRepo() audit.Repository
}
