package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/shopspring/decimal"
)

// EntityModel is the persistence model for a reporting entity
type EntityModel struct {
	BaseModel
	Name string `gorm:"type:varchar(255);not null;uniqueIndex"`
	IsHQ bool   `gorm:"column:is_hq;not null;default:false"`
}

// TableName returns the table name for GORM
func (EntityModel) TableName() string {
	return "entities"
}

// ToDomain converts the persistence model to a domain Entity
func (m *EntityModel) ToDomain() *analytics.Entity {
	return &analytics.Entity{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		IsHQ:       m.IsHQ,
	}
}

// FromDomainEntity populates the persistence model from a domain Entity
func (m *EntityModel) FromDomainEntity(e *analytics.Entity) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.Name = e.Name
	m.IsHQ = e.IsHQ
}

// CategoryModel is the persistence model for a P&L category
type CategoryModel struct {
	BaseModel
	Name      string `gorm:"type:varchar(255);not null"`
	NameKey   string `gorm:"type:varchar(255);not null;uniqueIndex"`
	SortOrder int    `gorm:"not null;default:0"`
	IsTotal   bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category
func (m *CategoryModel) ToDomain() *analytics.Category {
	return &analytics.Category{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		NameKey:    m.NameKey,
		SortOrder:  m.SortOrder,
		IsTotal:    m.IsTotal,
	}
}

// FromDomainCategory populates the persistence model from a domain Category
func (m *CategoryModel) FromDomainCategory(c *analytics.Category) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.NameKey = c.NameKey
	m.SortOrder = c.SortOrder
	m.IsTotal = c.IsTotal
}

// PnLRecordModel is the persistence model for a P&L record
type PnLRecordModel struct {
	BaseModel
	EntityID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_pnl_entity_category_period,priority:1"`
	CategoryID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_pnl_entity_category_period,priority:2"`
	Period     time.Time       `gorm:"type:date;not null;uniqueIndex:uq_pnl_entity_category_period,priority:3;index"`
	Plan       decimal.Decimal `gorm:"column:plan_amount;type:decimal(18,2);not null;default:0"`
	Fact       decimal.Decimal `gorm:"column:fact_amount;type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (PnLRecordModel) TableName() string {
	return "pnl_records"
}

// ToDomain converts the persistence model to a domain PnLRecord
func (m *PnLRecordModel) ToDomain() analytics.PnLRecord {
	return analytics.PnLRecord{
		BaseEntity: m.BaseModel.ToDomain(),
		EntityID:   m.EntityID,
		CategoryID: m.CategoryID,
		Period:     m.Period.UTC(),
		Plan:       m.Plan,
		Fact:       m.Fact,
	}
}

// FromDomainPnLRecord populates the persistence model from a domain PnLRecord
func (m *PnLRecordModel) FromDomainPnLRecord(r *analytics.PnLRecord) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.EntityID = r.EntityID
	m.CategoryID = r.CategoryID
	m.Period = r.Period
	m.Plan = r.Plan
	m.Fact = r.Fact
}

// TrialBalanceRecordModel is the persistence model for a trial-balance record
type TrialBalanceRecordModel struct {
	BaseModel
	EntityID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_tb_entity_account_period,priority:1"`
	AccountCode string          `gorm:"type:varchar(50);not null;uniqueIndex:uq_tb_entity_account_period,priority:2"`
	AccountName string          `gorm:"type:varchar(500);not null;default:''"`
	Period      time.Time       `gorm:"type:date;not null;uniqueIndex:uq_tb_entity_account_period,priority:3;index"`
	Debit       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Credit      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Subconto    string          `gorm:"type:jsonb;not null;default:'{}'"`
}

// TableName returns the table name for GORM
func (TrialBalanceRecordModel) TableName() string {
	return "trial_balance_records"
}

// ToDomain converts the persistence model to a domain TrialBalanceRecord
func (m *TrialBalanceRecordModel) ToDomain() analytics.TrialBalanceRecord {
	rec := analytics.TrialBalanceRecord{
		BaseEntity:  m.BaseModel.ToDomain(),
		EntityID:    m.EntityID,
		AccountCode: m.AccountCode,
		AccountName: m.AccountName,
		Period:      m.Period.UTC(),
		Debit:       m.Debit,
		Credit:      m.Credit,
	}
	if m.Subconto != "" && m.Subconto != "{}" {
		_ = json.Unmarshal([]byte(m.Subconto), &rec.Subconto)
	}
	return rec
}

// FromDomainTrialBalanceRecord populates the persistence model from a domain TrialBalanceRecord
func (m *TrialBalanceRecordModel) FromDomainTrialBalanceRecord(r *analytics.TrialBalanceRecord) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.EntityID = r.EntityID
	m.AccountCode = r.AccountCode
	m.AccountName = r.AccountName
	m.Period = r.Period
	m.Debit = r.Debit
	m.Credit = r.Credit
	m.Subconto = "{}"
	if len(r.Subconto) > 0 {
		if data, err := json.Marshal(r.Subconto); err == nil {
			m.Subconto = string(data)
		}
	}
}
