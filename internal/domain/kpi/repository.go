package kpi

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows KPI listings
type Filter struct {
	TargetType *TargetType
	TargetRef  *uuid.UUID
	Month      *time.Time
	ActiveOnly bool
	Templates  *bool
	OrderBy    string
	OrderDir   string
}

// KPIRepository persists scorecards
type KPIRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*KPI, error)
	// FindActiveByLineage returns shared.ErrNotFound when no active version exists
	FindActiveByLineage(ctx context.Context, lineage Lineage) (*KPI, error)
	FindActiveTemplates(ctx context.Context) ([]KPI, error)
	ExistsFromTemplate(ctx context.Context, templateID uuid.UUID, month time.Time) (bool, error)
	FindActiveByMonth(ctx context.Context, month time.Time) ([]KPI, error)
	List(ctx context.Context, filter Filter) ([]KPI, error)
	Save(ctx context.Context, k *KPI) error
}

// IndicatorRepository persists indicators
type IndicatorRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Indicator, error)
	FindByKPI(ctx context.Context, kpiID uuid.UUID) ([]Indicator, error)
	Save(ctx context.Context, ind *Indicator) error
	SaveBatch(ctx context.Context, inds []Indicator) error
	CountByStatus(ctx context.Context, month time.Time) (map[IndicatorStatus]int64, error)
}

// BonusRepository persists bonus configurations
type BonusRepository interface {
	// FindByKPI returns shared.ErrNotFound when the KPI has no bonus
	FindByKPI(ctx context.Context, kpiID uuid.UUID) (*Bonus, error)
	Save(ctx context.Context, b *Bonus) error
}

// MonthStatusRepository persists month closing state
type MonthStatusRepository interface {
	// FindByMonth returns shared.ErrNotFound for a month never touched
	FindByMonth(ctx context.Context, month time.Time) (*MonthStatus, error)
	Save(ctx context.Context, m *MonthStatus) error
}
