package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/kpi"
	"github.com/shopspring/decimal"
)

// KPIModel is the persistence model for a KPI version
type KPIModel struct {
	BaseModel
	Name             string         `gorm:"type:varchar(255);not null;index:idx_kpi_lineage,priority:3"`
	Period           kpi.Period     `gorm:"type:varchar(20);not null"`
	TargetType       kpi.TargetType `gorm:"type:varchar(20);not null;index:idx_kpi_lineage,priority:1"`
	TargetRef        *uuid.UUID     `gorm:"type:uuid;index:idx_kpi_lineage,priority:2"`
	IsActive         bool           `gorm:"not null;index"`
	Version          int            `gorm:"not null;default:1"`
	IsTemplate       bool           `gorm:"not null;default:false"`
	ParentTemplateID *uuid.UUID     `gorm:"type:uuid;index"`
	ForMonth         *time.Time     `gorm:"type:date;index:idx_kpi_lineage,priority:4"`
}

// TableName returns the table name for GORM
func (KPIModel) TableName() string {
	return "kpis"
}

// ToDomain converts the persistence model to a domain KPI
func (m *KPIModel) ToDomain() *kpi.KPI {
	k := &kpi.KPI{
		BaseEntity:       m.BaseModel.ToDomain(),
		Name:             m.Name,
		Period:           m.Period,
		TargetType:       m.TargetType,
		TargetRef:        m.TargetRef,
		IsActive:         m.IsActive,
		Version:          m.Version,
		IsTemplate:       m.IsTemplate,
		ParentTemplateID: m.ParentTemplateID,
	}
	if m.ForMonth != nil {
		month := m.ForMonth.UTC()
		k.ForMonth = &month
	}
	return k
}

// FromDomainKPI populates the persistence model from a domain KPI
func (m *KPIModel) FromDomainKPI(k *kpi.KPI) {
	m.FromDomainBaseEntity(k.BaseEntity)
	m.Name = k.Name
	m.Period = k.Period
	m.TargetType = k.TargetType
	m.TargetRef = k.TargetRef
	m.IsActive = k.IsActive
	m.Version = k.Version
	m.IsTemplate = k.IsTemplate
	m.ParentTemplateID = k.ParentTemplateID
	m.ForMonth = k.ForMonth
}

// IndicatorModel is the persistence model for a KPI indicator
type IndicatorModel struct {
	BaseModel
	KPIID            uuid.UUID           `gorm:"column:kpi_id;type:uuid;not null;index"`
	Name             string              `gorm:"type:varchar(255);not null"`
	Type             kpi.IndicatorType   `gorm:"type:varchar(20);not null"`
	PlanValue        decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Weight           int                 `gorm:"not null;default:0"`
	DescQuantitative string              `gorm:"type:text;not null;default:''"`
	DescQualitative  string              `gorm:"type:text;not null;default:''"`
	ThresholdMin     decimal.Decimal     `gorm:"type:decimal(5,2);not null"`
	ThresholdMax     decimal.Decimal     `gorm:"type:decimal(5,2);not null"`
	FactQuantitative decimal.Decimal     `gorm:"type:decimal(5,2);not null;default:0"`
	FactQualitative  decimal.Decimal     `gorm:"type:decimal(5,2);not null;default:0"`
	Status           kpi.IndicatorStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	HRComment        string              `gorm:"column:hr_comment;type:text;not null;default:''"`
	RejectionReason  string              `gorm:"type:text;not null;default:''"`
}

// TableName returns the table name for GORM
func (IndicatorModel) TableName() string {
	return "kpi_indicators"
}

// ToDomain converts the persistence model to a domain Indicator
func (m *IndicatorModel) ToDomain() kpi.Indicator {
	return kpi.Indicator{
		BaseEntity:       m.BaseModel.ToDomain(),
		KPIID:            m.KPIID,
		Name:             m.Name,
		Type:             m.Type,
		PlanValue:        m.PlanValue,
		Weight:           m.Weight,
		DescQuantitative: m.DescQuantitative,
		DescQualitative:  m.DescQualitative,
		ThresholdMin:     m.ThresholdMin,
		ThresholdMax:     m.ThresholdMax,
		FactQuantitative: m.FactQuantitative,
		FactQualitative:  m.FactQualitative,
		Status:           m.Status,
		HRComment:        m.HRComment,
		RejectionReason:  m.RejectionReason,
	}
}

// FromDomainIndicator populates the persistence model from a domain Indicator
func (m *IndicatorModel) FromDomainIndicator(i *kpi.Indicator) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.KPIID = i.KPIID
	m.Name = i.Name
	m.Type = i.Type
	m.PlanValue = i.PlanValue
	m.Weight = i.Weight
	m.DescQuantitative = i.DescQuantitative
	m.DescQualitative = i.DescQualitative
	m.ThresholdMin = i.ThresholdMin
	m.ThresholdMax = i.ThresholdMax
	m.FactQuantitative = i.FactQuantitative
	m.FactQualitative = i.FactQualitative
	m.Status = i.Status
	m.HRComment = i.HRComment
	m.RejectionReason = i.RejectionReason
}

// BonusModel is the persistence model for a KPI bonus configuration
type BonusModel struct {
	BaseModel
	KPIID        uuid.UUID       `gorm:"column:kpi_id;type:uuid;not null;uniqueIndex"`
	TargetAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ThresholdMin decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	ThresholdMax decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	FinalPayout  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	IsCalculated bool            `gorm:"not null;default:false"`
	CalculatedAt *time.Time
}

// TableName returns the table name for GORM
func (BonusModel) TableName() string {
	return "kpi_bonuses"
}

// ToDomain converts the persistence model to a domain Bonus
func (m *BonusModel) ToDomain() *kpi.Bonus {
	return &kpi.Bonus{
		BaseEntity:   m.BaseModel.ToDomain(),
		KPIID:        m.KPIID,
		TargetAmount: m.TargetAmount,
		ThresholdMin: m.ThresholdMin,
		ThresholdMax: m.ThresholdMax,
		FinalPayout:  m.FinalPayout,
		IsCalculated: m.IsCalculated,
		CalculatedAt: m.CalculatedAt,
	}
}

// FromDomainBonus populates the persistence model from a domain Bonus
func (m *BonusModel) FromDomainBonus(b *kpi.Bonus) {
	m.FromDomainBaseEntity(b.BaseEntity)
	m.KPIID = b.KPIID
	m.TargetAmount = b.TargetAmount
	m.ThresholdMin = b.ThresholdMin
	m.ThresholdMax = b.ThresholdMax
	m.FinalPayout = b.FinalPayout
	m.IsCalculated = b.IsCalculated
	m.CalculatedAt = b.CalculatedAt
}

// MonthStatusModel is the persistence model for month closing state
type MonthStatusModel struct {
	BaseModel
	Month    time.Time  `gorm:"type:date;not null;uniqueIndex"`
	IsClosed bool       `gorm:"not null;default:false"`
	ClosedBy string     `gorm:"type:varchar(255);not null;default:''"`
	ClosedAt *time.Time
}

// TableName returns the table name for GORM
func (MonthStatusModel) TableName() string {
	return "month_statuses"
}

// ToDomain converts the persistence model to a domain MonthStatus
func (m *MonthStatusModel) ToDomain() *kpi.MonthStatus {
	return &kpi.MonthStatus{
		BaseEntity: m.BaseModel.ToDomain(),
		Month:      m.Month.UTC(),
		IsClosed:   m.IsClosed,
		ClosedBy:   m.ClosedBy,
		ClosedAt:   m.ClosedAt,
	}
}

// FromDomainMonthStatus populates the persistence model from a domain MonthStatus
func (m *MonthStatusModel) FromDomainMonthStatus(s *kpi.MonthStatus) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.Month = s.Month
	m.IsClosed = s.IsClosed
	m.ClosedBy = s.ClosedBy
	m.ClosedAt = s.ClosedAt
}
