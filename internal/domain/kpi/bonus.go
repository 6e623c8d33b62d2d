package kpi

import (
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Bonus is the payout configuration of a KPI. Once IsCalculated is set the
// payout is frozen until Reset.
type Bonus struct {
	shared.BaseEntity
	KPIID        uuid.UUID
	TargetAmount decimal.Decimal
	ThresholdMin decimal.Decimal
	ThresholdMax decimal.Decimal
	FinalPayout  decimal.Decimal
	IsCalculated bool
	CalculatedAt *time.Time
}

// NewBonus creates a bonus configuration
func NewBonus(kpiID uuid.UUID, target, lower, upper decimal.Decimal) (*Bonus, error) {
	b := &Bonus{
		BaseEntity:  shared.NewBaseEntity(),
		KPIID:       kpiID,
		FinalPayout: decimal.Zero,
	}
	if err := b.Configure(target, lower, upper); err != nil {
		return nil, err
	}
	return b, nil
}

// Configure changes the target and thresholds of an unfinalized bonus
func (b *Bonus) Configure(target, lower, upper decimal.Decimal) error {
	if b.IsCalculated {
		return ErrBonusAlreadyCalculated
	}
	if target.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Target amount cannot be negative")
	}
	if lower.IsNegative() || upper.LessThan(lower) {
		return shared.NewDomainError("INVALID_THRESHOLD", "Thresholds must satisfy 0 <= min <= max")
	}
	b.TargetAmount = target.Round(2)
	b.ThresholdMin = lower
	b.ThresholdMax = upper
	b.Touch()
	return nil
}

// CalculatePayout maps a KPI score through the threshold curve: nothing
// below lower, proportional between the thresholds, capped at upper.
func CalculatePayout(score, target, lower, upper decimal.Decimal) decimal.Decimal {
	switch {
	case score.LessThan(lower):
		return decimal.Zero
	case score.GreaterThan(upper):
		return target.Mul(upper).Div(hundred).Round(2)
	default:
		return target.Mul(score).Div(hundred).Round(2)
	}
}

// Preview returns the payout for score without finalizing
func (b *Bonus) Preview(score decimal.Decimal) decimal.Decimal {
	if b.IsCalculated {
		return b.FinalPayout
	}
	return CalculatePayout(score, b.TargetAmount, b.ThresholdMin, b.ThresholdMax)
}

// Finalize freezes the payout for score
func (b *Bonus) Finalize(score decimal.Decimal, at time.Time) error {
	if b.IsCalculated {
		return ErrBonusAlreadyCalculated
	}
	b.FinalPayout = CalculatePayout(score, b.TargetAmount, b.ThresholdMin, b.ThresholdMax)
	b.IsCalculated = true
	b.CalculatedAt = &at
	b.Touch()
	return nil
}

// Reset unfreezes the payout
func (b *Bonus) Reset() {
	b.FinalPayout = decimal.Zero
	b.IsCalculated = false
	b.CalculatedAt = nil
	b.Touch()
}

// CopyFor copies the configuration onto another KPI, unfinalized
func (b *Bonus) CopyFor(kpiID uuid.UUID) *Bonus {
	return &Bonus{
		BaseEntity:   shared.NewBaseEntity(),
		KPIID:        kpiID,
		TargetAmount: b.TargetAmount,
		ThresholdMin: b.ThresholdMin,
		ThresholdMax: b.ThresholdMax,
		FinalPayout:  decimal.Zero,
	}
}
