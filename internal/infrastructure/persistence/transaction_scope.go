package persistence

import (
	"context"

	appanalytics "github.com/kpiplatform/backend/internal/application/analytics"
	appkpi "github.com/kpiplatform/backend/internal/application/kpi"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/domain/audit"
	"github.com/kpiplatform/backend/internal/domain/kpi"
	"gorm.io/gorm"
)

// GormAnalyticsTransactionScope implements the reporting TransactionScope using GORM transactions.
type GormAnalyticsTransactionScope struct {
	db *gorm.DB
}

// NewGormAnalyticsTransactionScope creates a new GormAnalyticsTransactionScope.
func NewGormAnalyticsTransactionScope(db *gorm.DB) *GormAnalyticsTransactionScope {
	return &GormAnalyticsTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormAnalyticsTransactionScope) Execute(ctx context.Context, fn func(repos appanalytics.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// GormKPITransactionScope implements the KPI TransactionScope using GORM transactions.
type GormKPITransactionScope struct {
	db *gorm.DB
}

// NewGormKPITransactionScope creates a new GormKPITransactionScope.
func NewGormKPITransactionScope(db *gorm.DB) *GormKPITransactionScope {
	return &GormKPITransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
func (s *GormKPITransactionScope) Execute(ctx context.Context, fn func(repos appkpi.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) EntityRepo() analytics.EntityRepository {
	return NewGormEntityRepository(r.tx)
}

func (r *gormTransactionalRepositories) CategoryRepo() analytics.CategoryRepository {
	return NewGormCategoryRepository(r.tx)
}

func (r *gormTransactionalRepositories) PnLRepo() analytics.PnLRepository {
	return NewGormPnLRepository(r.tx)
}

func (r *gormTransactionalRepositories) TrialBalanceRepo() analytics.TrialBalanceRepository {
	return NewGormTrialBalanceRepository(r.tx)
}

func (r *gormTransactionalRepositories) KPIRepo() kpi.KPIRepository {
	return NewGormKPIRepository(r.tx)
}

func (r *gormTransactionalRepositories) IndicatorRepo() kpi.IndicatorRepository {
	return NewGormIndicatorRepository(r.tx)
}

func (r *gormTransactionalRepositories) BonusRepo() kpi.BonusRepository {
	return NewGormBonusRepository(r.tx)
}

func (r *gormTransactionalRepositories) MonthRepo() kpi.MonthStatusRepository {
	return NewGormMonthStatusRepository(r.tx)
}

func (r *gormTransactionalRepositories) AuditRepo() audit.Repository {
	return NewGormAuditRepository(r.tx)
}

var (
	_ appanalytics.TransactionScope          = (*GormAnalyticsTransactionScope)(nil)
	_ appkpi.TransactionScope                = (*GormKPITransactionScope)(nil)
	_ appanalytics.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ appkpi.TransactionalRepositories       = (*gormTransactionalRepositories)(nil)
)
