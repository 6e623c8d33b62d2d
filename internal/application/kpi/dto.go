package kpi

import (
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/kpi"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CreateKPIRequest represents a request to create a scorecard
type CreateKPIRequest struct {
	Name       string     `json:"name" binding:"required,min=1,max=255"`
	Period     string     `json:"period" binding:"required,oneof=monthly quarterly yearly"`
	TargetType string     `json:"target_type" binding:"required,oneof=company department position employee"`
	TargetRef  *uuid.UUID `json:"target_ref"`
	ForMonth   string     `json:"for_month" binding:"omitempty,datetime=2006-01"`
	IsTemplate bool       `json:"is_template"`
}

// AddIndicatorRequest represents a request to add an indicator to a KPI
type AddIndicatorRequest struct {
	Name             string           `json:"name" binding:"required,min=1,max=255"`
	Type             string           `json:"type" binding:"required,oneof=numeric percent binary"`
	PlanValue        decimal.Decimal  `json:"plan_value"`
	Weight           int              `json:"weight" binding:"min=0,max=100"`
	DescQuantitative string           `json:"desc_quantitative"`
	DescQualitative  string           `json:"desc_qualitative"`
	ThresholdMin     *decimal.Decimal `json:"threshold_min"`
	ThresholdMax     *decimal.Decimal `json:"threshold_max"`
}

// ConfigureBonusRequest sets the payout target and thresholds of a KPI
type ConfigureBonusRequest struct {
	TargetAmount decimal.Decimal `json:"target_amount"`
	ThresholdMin decimal.Decimal `json:"threshold_min"`
	ThresholdMax decimal.Decimal `json:"threshold_max"`
}

// SubmitFactRequest carries the facts of an indicator, in percent
type SubmitFactRequest struct {
	FactQuantitative decimal.Decimal `json:"fact_quantitative"`
	FactQualitative  decimal.Decimal `json:"fact_qualitative"`
}

// ApproveRequest carries an optional reviewer comment
type ApproveRequest struct {
	Comment string `json:"comment" binding:"max=2000"`
}

// RejectRequest carries the mandatory rejection reason
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

// ListKPIsQuery narrows KPI listings
type ListKPIsQuery struct {
	TargetType string `form:"target_type" binding:"omitempty,oneof=company department position employee"`
	TargetRef  string `form:"target_ref" binding:"omitempty,uuid"`
	Month      string `form:"month" binding:"omitempty,datetime=2006-01"`
	ActiveOnly bool   `form:"active_only"`
	Templates  *bool  `form:"templates"`
	SortBy     string `form:"sort_by" binding:"omitempty,oneof=created_at updated_at name for_month version target_type"`
	SortOrder  string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// KPIResponse represents a KPI version in API responses
type KPIResponse struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Period           string     `json:"period"`
	PeriodLabel      string     `json:"period_label"`
	TargetType       string     `json:"target_type"`
	TargetRef        *uuid.UUID `json:"target_ref,omitempty"`
	IsActive         bool       `json:"is_active"`
	Version          int        `json:"version"`
	IsTemplate       bool       `json:"is_template"`
	ParentTemplateID *uuid.UUID `json:"parent_template_id,omitempty"`
	ForMonth         string     `json:"for_month,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ToKPIResponse converts a domain KPI to a response
func ToKPIResponse(k *kpi.KPI) KPIResponse {
	resp := KPIResponse{
		ID:               k.ID,
		Name:             k.Name,
		Period:           string(k.Period),
		PeriodLabel:      k.PeriodLabel(),
		TargetType:       string(k.TargetType),
		TargetRef:        k.TargetRef,
		IsActive:         k.IsActive,
		Version:          k.Version,
		IsTemplate:       k.IsTemplate,
		ParentTemplateID: k.ParentTemplateID,
		CreatedAt:        k.CreatedAt,
		UpdatedAt:        k.UpdatedAt,
	}
	if k.ForMonth != nil {
		resp.ForMonth = shared.FormatPeriod(*k.ForMonth)
	}
	return resp
}

// ToKPIResponses converts a slice of KPIs
func ToKPIResponses(ks []kpi.KPI) []KPIResponse {
	out := make([]KPIResponse, len(ks))
	for i := range ks {
		out[i] = ToKPIResponse(&ks[i])
	}
	return out
}

// IndicatorResponse represents an indicator in API responses
type IndicatorResponse struct {
	ID               uuid.UUID       `json:"id"`
	KPIID            uuid.UUID       `json:"kpi_id"`
	Name             string          `json:"name"`
	Type             string          `json:"type"`
	PlanValue        decimal.Decimal `json:"plan_value"`
	Weight           int             `json:"weight"`
	DescQuantitative string          `json:"desc_quantitative,omitempty"`
	DescQualitative  string          `json:"desc_qualitative,omitempty"`
	ThresholdMin     decimal.Decimal `json:"threshold_min"`
	ThresholdMax     decimal.Decimal `json:"threshold_max"`
	FactQuantitative decimal.Decimal `json:"fact_quantitative"`
	FactQualitative  decimal.Decimal `json:"fact_qualitative"`
	TotalPerformance decimal.Decimal `json:"total_performance"`
	WeightedResult   decimal.Decimal `json:"weighted_result"`
	Status           string          `json:"status"`
	HRComment        string          `json:"hr_comment,omitempty"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
}

// ToIndicatorResponse converts a domain indicator to a response
func ToIndicatorResponse(i *kpi.Indicator) IndicatorResponse {
	return IndicatorResponse{
		ID:               i.ID,
		KPIID:            i.KPIID,
		Name:             i.Name,
		Type:             string(i.Type),
		PlanValue:        i.PlanValue,
		Weight:           i.Weight,
		DescQuantitative: i.DescQuantitative,
		DescQualitative:  i.DescQualitative,
		ThresholdMin:     i.ThresholdMin,
		ThresholdMax:     i.ThresholdMax,
		FactQuantitative: i.FactQuantitative,
		FactQualitative:  i.FactQualitative,
		TotalPerformance: i.TotalPerformance(),
		WeightedResult:   i.WeightedResult(),
		Status:           string(i.Status),
		HRComment:        i.HRComment,
		RejectionReason:  i.RejectionReason,
	}
}

// ToIndicatorResponses converts a slice of indicators
func ToIndicatorResponses(inds []kpi.Indicator) []IndicatorResponse {
	out := make([]IndicatorResponse, len(inds))
	for i := range inds {
		out[i] = ToIndicatorResponse(&inds[i])
	}
	return out
}

// BonusResponse represents a bonus configuration in API responses
type BonusResponse struct {
	ID           uuid.UUID       `json:"id"`
	KPIID        uuid.UUID       `json:"kpi_id"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	ThresholdMin decimal.Decimal `json:"threshold_min"`
	ThresholdMax decimal.Decimal `json:"threshold_max"`
	FinalPayout  decimal.Decimal `json:"final_payout"`
	IsCalculated bool            `json:"is_calculated"`
	CalculatedAt *time.Time      `json:"calculated_at,omitempty"`
}

// ToBonusResponse converts a domain bonus to a response
func ToBonusResponse(b *kpi.Bonus) *BonusResponse {
	if b == nil {
		return nil
	}
	return &BonusResponse{
		ID:           b.ID,
		KPIID:        b.KPIID,
		TargetAmount: b.TargetAmount,
		ThresholdMin: b.ThresholdMin,
		ThresholdMax: b.ThresholdMax,
		FinalPayout:  b.FinalPayout,
		IsCalculated: b.IsCalculated,
		CalculatedAt: b.CalculatedAt,
	}
}

// KPIDetail is a KPI with its indicators, score and bonus
type KPIDetail struct {
	KPI             KPIResponse         `json:"kpi"`
	Indicators      []IndicatorResponse `json:"indicators"`
	Score           decimal.Decimal     `json:"score"`
	AllApproved     bool                `json:"all_approved"`
	Bonus           *BonusResponse      `json:"bonus,omitempty"`
	ProjectedPayout *decimal.Decimal    `json:"projected_payout,omitempty"`
}

// ApproveResult reports an approval and whether it finalized the bonus
type ApproveResult struct {
	Indicator      IndicatorResponse `json:"indicator"`
	BonusFinalized bool              `json:"bonus_finalized"`
}

// VersionResult is the outcome of creating a new KPI version
type VersionResult struct {
	Previous   KPIResponse         `json:"previous"`
	Current    KPIResponse         `json:"current"`
	Indicators []IndicatorResponse `json:"indicators"`
}

// CloseMonthResult is the outcome of closing a month
type CloseMonthResult struct {
	Month            string     `json:"month"`
	AlreadyClosed    bool       `json:"already_closed"`
	ClosedBy         string     `json:"closed_by"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	BonusesFinalized int        `json:"bonuses_finalized"`
	// ForcedFinalizations counts payouts frozen while some indicators
	// were not approved
	ForcedFinalizations int `json:"forced_finalizations"`
}

// GenerateResult is the outcome of generating KPIs from templates
type GenerateResult struct {
	Month   string        `json:"month"`
	Created []KPIResponse `json:"created"`
	Skipped int           `json:"skipped"`
}
