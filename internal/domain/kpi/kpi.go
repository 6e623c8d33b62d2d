package kpi

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Period is the granularity a KPI is evaluated over
type Period string

const (
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// IsValid reports whether p is a known period
func (p Period) IsValid() bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// TargetType is the scope a KPI is assigned to
type TargetType string

const (
	TargetCompany    TargetType = "company"
	TargetDepartment TargetType = "department"
	TargetPosition   TargetType = "position"
	TargetEmployee   TargetType = "employee"
)

// IsValid reports whether t is a known target type
func (t TargetType) IsValid() bool {
	switch t {
	case TargetCompany, TargetDepartment, TargetPosition, TargetEmployee:
		return true
	}
	return false
}

// KPI is a versioned scorecard. Exactly one version per lineage is active.
type KPI struct {
	shared.BaseEntity
	Name             string
	Period           Period
	TargetType       TargetType
	TargetRef        *uuid.UUID
	IsActive         bool
	Version          int
	IsTemplate       bool
	ParentTemplateID *uuid.UUID
	ForMonth         *time.Time
}

// NewKPI creates the first active version of a scorecard
func NewKPI(name string, period Period, targetType TargetType, targetRef *uuid.UUID, forMonth *time.Time, isTemplate bool) (*KPI, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "KPI name cannot be empty")
	}
	if !period.IsValid() {
		return nil, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("unknown KPI period %q", period))
	}
	if !targetType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TARGET", fmt.Sprintf("unknown target type %q", targetType))
	}
	if targetType != TargetCompany && targetRef == nil {
		return nil, shared.NewDomainError("INVALID_TARGET", "target reference is required for "+string(targetType)+" KPIs")
	}
	if targetType == TargetCompany {
		targetRef = nil
	}

	return &KPI{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Period:     period,
		TargetType: targetType,
		TargetRef:  targetRef,
		IsActive:   true,
		Version:    1,
		IsTemplate: isTemplate,
		ForMonth:   normalizeMonth(forMonth),
	}, nil
}

func normalizeMonth(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	m := shared.MonthStart(*t)
	return &m
}

// Lineage identifies all versions of the same scorecard
type Lineage struct {
	TargetType TargetType
	TargetRef  *uuid.UUID
	Name       string
	ForMonth   *time.Time
	IsTemplate bool
}

// Lineage returns the lineage key of k
func (k *KPI) Lineage() Lineage {
	return Lineage{
		TargetType: k.TargetType,
		TargetRef:  k.TargetRef,
		Name:       k.Name,
		ForMonth:   k.ForMonth,
		IsTemplate: k.IsTemplate,
	}
}

// NewVersion archives k and returns its successor together with copies of
// the given indicators. The copies are drafts with zeroed facts.
func (k *KPI) NewVersion(indicators []Indicator) (*KPI, []Indicator, error) {
	if !k.IsActive {
		return nil, nil, ErrKPIInactive
	}

	next := *k
	next.BaseEntity = shared.NewBaseEntity()
	next.Version = k.Version + 1
	next.IsActive = true

	k.IsActive = false
	k.Touch()

	return &next, copyShells(next.ID, indicators), nil
}

// Instantiate creates a non-template KPI for month from template k
func (k *KPI) Instantiate(month time.Time, indicators []Indicator) (*KPI, []Indicator, error) {
	if !k.IsTemplate {
		return nil, nil, ErrNotTemplate
	}
	if !k.IsActive {
		return nil, nil, ErrKPIInactive
	}

	m := shared.MonthStart(month)
	templateID := k.ID
	inst := *k
	inst.BaseEntity = shared.NewBaseEntity()
	inst.IsTemplate = false
	inst.IsActive = true
	inst.ForMonth = &m
	inst.ParentTemplateID = &templateID

	return &inst, copyShells(inst.ID, indicators), nil
}

func copyShells(kpiID uuid.UUID, indicators []Indicator) []Indicator {
	out := make([]Indicator, 0, len(indicators))
	for _, ind := range indicators {
		out = append(out, ind.Shell(kpiID))
	}
	return out
}

// InMonth reports whether the KPI targets the given month
func (k *KPI) InMonth(month time.Time) bool {
	return k.ForMonth != nil && k.ForMonth.Equal(shared.MonthStart(month))
}

// TotalScore sums the weighted results of the indicators
func TotalScore(indicators []Indicator) decimal.Decimal {
	score := decimal.Zero
	for i := range indicators {
		score = score.Add(indicators[i].WeightedResult())
	}
	return score
}

// AllApproved reports whether there is at least one indicator and every
// indicator is approved
func AllApproved(indicators []Indicator) bool {
	if len(indicators) == 0 {
		return false
	}
	for i := range indicators {
		if indicators[i].Status != StatusApproved {
			return false
		}
	}
	return true
}

// Unapproved counts indicators not yet approved
func Unapproved(indicators []Indicator) int {
	n := 0
	for i := range indicators {
		if indicators[i].Status != StatusApproved {
			n++
		}
	}
	return n
}

var monthNames = [12]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// PeriodLabel renders the reporting period of the KPI for display
func (k *KPI) PeriodLabel() string {
	if k.ForMonth == nil {
		return fmt.Sprintf("Версия %d", k.Version)
	}
	m := *k.ForMonth
	switch k.Period {
	case PeriodMonthly:
		return fmt.Sprintf("%s %d", monthNames[m.Month()-1], m.Year())
	case PeriodQuarterly:
		return fmt.Sprintf("%d-й Квартал %d", (int(m.Month())-1)/3+1, m.Year())
	case PeriodYearly:
		return fmt.Sprintf("%d год", m.Year())
	}
	return shared.FormatPeriod(m)
}
