package kpi

import "github.com/kpiplatform/backend/internal/domain/shared"

// KPI lifecycle errors
var (
	ErrMonthClosed            = shared.NewDomainError("MONTH_CLOSED", "Month is closed for changes")
	ErrBonusAlreadyCalculated = shared.NewDomainError("BONUS_ALREADY_CALCULATED", "Bonus payout is already finalized")
	ErrIndicatorsNotApproved  = shared.NewDomainError("INDICATORS_NOT_APPROVED", "All indicators must be approved before the bonus is finalized")
	ErrKPIInactive            = shared.NewDomainError("KPI_INACTIVE", "KPI version is not active")
	ErrNotTemplate            = shared.NewDomainError("NOT_TEMPLATE", "KPI is not a template")
	ErrActiveVersionExists    = shared.NewDomainError("ACTIVE_VERSION_EXISTS", "An active KPI already exists for this target and name")
	ErrBonusNotConfigured     = shared.NewDomainError("BONUS_NOT_CONFIGURED", "KPI has no bonus configuration")
)
