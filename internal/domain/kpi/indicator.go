package kpi

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// IndicatorType describes how the plan value is expressed
type IndicatorType string

const (
	TypeNumeric IndicatorType = "numeric"
	TypePercent IndicatorType = "percent"
	TypeBinary  IndicatorType = "binary"
)

// IndicatorStatus is the review state of an indicator
type IndicatorStatus string

const (
	StatusDraft    IndicatorStatus = "draft"
	StatusOnReview IndicatorStatus = "on_review"
	StatusApproved IndicatorStatus = "approved"
	StatusRejected IndicatorStatus = "rejected"
)

// Fact percentages are clamped to this range
var (
	MinFact = decimal.Zero
	MaxFact = decimal.NewFromInt(125)
)

// Default performance thresholds, in percent
var (
	DefaultThresholdMin = decimal.NewFromInt(80)
	DefaultThresholdMax = decimal.NewFromInt(125)
)

var hundred = decimal.NewFromInt(100)

// Indicator is one weighted component of a KPI
type Indicator struct {
	shared.BaseEntity
	KPIID            uuid.UUID
	Name             string
	Type             IndicatorType
	PlanValue        decimal.Decimal
	Weight           int
	DescQuantitative string
	DescQualitative  string
	ThresholdMin     decimal.Decimal
	ThresholdMax     decimal.Decimal
	FactQuantitative decimal.Decimal
	FactQualitative  decimal.Decimal
	Status           IndicatorStatus
	HRComment        string
	RejectionReason  string
}

// NewIndicator creates a draft indicator with default thresholds
func NewIndicator(kpiID uuid.UUID, name string, typ IndicatorType, plan decimal.Decimal, weight int) (*Indicator, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Indicator name cannot be empty")
	}
	switch typ {
	case TypeNumeric, TypePercent, TypeBinary:
	default:
		return nil, shared.NewDomainError("INVALID_TYPE", fmt.Sprintf("unknown indicator type %q", typ))
	}
	if weight < 0 || weight > 100 {
		return nil, shared.NewDomainError("INVALID_WEIGHT", "Indicator weight must be between 0 and 100")
	}

	return &Indicator{
		BaseEntity:       shared.NewBaseEntity(),
		KPIID:            kpiID,
		Name:             name,
		Type:             typ,
		PlanValue:        plan,
		Weight:           weight,
		ThresholdMin:     DefaultThresholdMin,
		ThresholdMax:     DefaultThresholdMax,
		FactQuantitative: decimal.Zero,
		FactQualitative:  decimal.Zero,
		Status:           StatusDraft,
	}, nil
}

// ClampFact bounds a fact percentage to [0, 125]
func ClampFact(v decimal.Decimal) decimal.Decimal {
	if v.LessThan(MinFact) {
		return MinFact
	}
	if v.GreaterThan(MaxFact) {
		return MaxFact
	}
	return v
}

// TotalPerformance is the mean of the quantitative and qualitative facts
func (i *Indicator) TotalPerformance() decimal.Decimal {
	return i.FactQuantitative.Add(i.FactQualitative).Div(decimal.NewFromInt(2))
}

// WeightedResult is the contribution of the indicator to the KPI score
func (i *Indicator) WeightedResult() decimal.Decimal {
	return i.TotalPerformance().Mul(decimal.NewFromInt(int64(i.Weight))).Div(hundred)
}

// SubmitFact records facts and sends the indicator to review. Any earlier
// rejection reason is cleared.
func (i *Indicator) SubmitFact(quantitative, qualitative decimal.Decimal) error {
	if i.Status == StatusApproved {
		return shared.NewDomainError("INVALID_STATE", "Approved indicator cannot be changed")
	}
	i.FactQuantitative = ClampFact(quantitative)
	i.FactQualitative = ClampFact(qualitative)
	i.Status = StatusOnReview
	i.RejectionReason = ""
	i.Touch()
	return nil
}

// Approve accepts the submitted facts. It returns false without error when
// the indicator is already approved.
func (i *Indicator) Approve(comment string) (bool, error) {
	switch i.Status {
	case StatusApproved:
		return false, nil
	case StatusOnReview:
	default:
		return false, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("cannot approve indicator in status %s", i.Status))
	}
	i.Status = StatusApproved
	if c := strings.TrimSpace(comment); c != "" {
		i.HRComment = c
	}
	i.Touch()
	return true, nil
}

// Reject returns the indicator to its owner with a reason
func (i *Indicator) Reject(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_INPUT", "Rejection reason is required")
	}
	if i.Status != StatusOnReview {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("cannot reject indicator in status %s", i.Status))
	}
	i.Status = StatusRejected
	i.RejectionReason = reason
	i.Touch()
	return nil
}

// Shell copies the indicator definition onto another KPI with facts reset
func (i *Indicator) Shell(kpiID uuid.UUID) Indicator {
	c := *i
	c.BaseEntity = shared.NewBaseEntity()
	c.KPIID = kpiID
	c.FactQuantitative = decimal.Zero
	c.FactQualitative = decimal.Zero
	c.Status = StatusDraft
	c.HRComment = ""
	c.RejectionReason = ""
	return c
}
