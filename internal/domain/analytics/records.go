package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PnLRecord holds plan and fact amounts for one category of one entity
// in one period. (EntityID, CategoryID, Period) is unique.
type PnLRecord struct {
	shared.BaseEntity
	EntityID   uuid.UUID
	CategoryID uuid.UUID
	Period     time.Time
	Plan       decimal.Decimal
	Fact       decimal.Decimal
}

// NewPnLRecord creates a record with amounts rounded to cents
func NewPnLRecord(entityID, categoryID uuid.UUID, period time.Time, plan, fact decimal.Decimal) PnLRecord {
	return PnLRecord{
		BaseEntity: shared.NewBaseEntity(),
		EntityID:   entityID,
		CategoryID: categoryID,
		Period:     shared.MonthStart(period),
		Plan:       plan.Round(2),
		Fact:       fact.Round(2),
	}
}

// TrialBalanceRecord holds debit and credit turnover for one account of one
// entity in one period. (EntityID, AccountCode, Period) is unique.
type TrialBalanceRecord struct {
	shared.BaseEntity
	EntityID    uuid.UUID
	AccountCode string
	AccountName string
	Period      time.Time
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Subconto    map[string]any
}

// NewTrialBalanceRecord creates a record with turnovers rounded to cents
func NewTrialBalanceRecord(entityID uuid.UUID, period time.Time, code, name string, debit, credit decimal.Decimal) TrialBalanceRecord {
	return TrialBalanceRecord{
		BaseEntity:  shared.NewBaseEntity(),
		EntityID:    entityID,
		AccountCode: code,
		AccountName: name,
		Period:      shared.MonthStart(period),
		Debit:       debit.Round(2),
		Credit:      credit.Round(2),
	}
}

// CategoryFact is a P&L fact joined with its category name. The forecast
// engine and the dashboards work on this projection.
type CategoryFact struct {
	EntityID     uuid.UUID
	CategoryID   uuid.UUID
	CategoryName string
	IsTotal      bool
	SortOrder    int
	Period       time.Time
	Plan         decimal.Decimal
	Fact         decimal.Decimal
}

// EntityPeriod marks that data exists for an entity in a period
type EntityPeriod struct {
	EntityID uuid.UUID
	Period   time.Time
}
