package kpi

import (
	"time"

	"github.com/kpiplatform/backend/internal/domain/shared"
)

// MonthStatus gates bonus calculation for a calendar month. Closing is
// one-way.
type MonthStatus struct {
	shared.BaseEntity
	Month    time.Time
	IsClosed bool
	ClosedBy string
	ClosedAt *time.Time
}

// NewMonthStatus creates an open month
func NewMonthStatus(month time.Time) *MonthStatus {
	return &MonthStatus{
		BaseEntity: shared.NewBaseEntity(),
		Month:      shared.MonthStart(month),
	}
}

// Close marks the month closed. It returns false when it already was.
func (m *MonthStatus) Close(by string, at time.Time) bool {
	if m.IsClosed {
		return false
	}
	m.IsClosed = true
	m.ClosedBy = by
	m.ClosedAt = &at
	m.Touch()
	return true
}

// StatusSummary counts indicators per review status for a month
type StatusSummary struct {
	Month    time.Time `json:"month"`
	Draft    int64     `json:"draft"`
	OnReview int64     `json:"on_review"`
	Approved int64     `json:"approved"`
	Rejected int64     `json:"rejected"`
}

// Add counts n indicators in status s
func (s *StatusSummary) Add(status IndicatorStatus, n int64) {
	switch status {
	case StatusDraft:
		s.Draft += n
	case StatusOnReview:
		s.OnReview += n
	case StatusApproved:
		s.Approved += n
	case StatusRejected:
		s.Rejected += n
	}
}
