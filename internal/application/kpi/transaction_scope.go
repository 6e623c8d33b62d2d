package kpi

import (
	"context"

	"github.com/kpiplatform/backend/internal/domain/audit"
	"github.com/kpiplatform/backend/internal/domain/kpi"
)

// TransactionScope provides transactional access to KPI repositories.
// Versioning, month close and next-month generation each run in one scope.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all KPI repositories within a transaction.
type TransactionalRepositories interface {
	KPIRepo() kpi.KPIRepository
	IndicatorRepo() kpi.IndicatorRepository
	BonusRepo() kpi.BonusRepository
	MonthRepo() kpi.MonthStatusRepository
	AuditRepo() audit.Repository
}
