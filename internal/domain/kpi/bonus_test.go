package kpi

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatePayout(t *testing.T) {
	tests := []struct {
		name  string
		score string
		want  string
	}{
		{"below minimum pays nothing", "70", "0.00"},
		{"at minimum", "80", "800.00"},
		{"within range is proportional", "100", "1000.00"},
		{"at maximum", "125", "1250.00"},
		{"above maximum is capped", "150", "1250.00"},
		{"fractional score", "93.333", "933.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePayout(d(tt.score), d("1000"), d("80"), d("125"))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestBonus_Finalize(t *testing.T) {
	b, err := NewBonus(uuid.New(), d("1000"), DefaultThresholdMin, DefaultThresholdMax)
	require.NoError(t, err)

	assert.Equal(t, "1000.00", b.Preview(d("100")).StringFixed(2))

	now := time.Now()
	require.NoError(t, b.Finalize(d("100"), now))
	assert.True(t, b.IsCalculated)
	assert.Equal(t, "1000.00", b.FinalPayout.StringFixed(2))

	t.Run("finalized payout is frozen", func(t *testing.T) {
		err := b.Finalize(d("150"), now)
		assert.True(t, errors.Is(err, ErrBonusAlreadyCalculated))
		assert.Equal(t, "1000.00", b.Preview(d("150")).StringFixed(2))
		assert.Error(t, b.Configure(d("2000"), d("80"), d("125")))
	})

	t.Run("reset allows recalculation", func(t *testing.T) {
		b.Reset()
		assert.False(t, b.IsCalculated)
		assert.Nil(t, b.CalculatedAt)
		require.NoError(t, b.Finalize(d("150"), now))
		assert.Equal(t, "1250.00", b.FinalPayout.StringFixed(2))
	})
}

func TestNewBonus_Validation(t *testing.T) {
	_, err := NewBonus(uuid.New(), d("-1"), d("80"), d("125"))
	assert.Error(t, err)
	_, err = NewBonus(uuid.New(), d("100"), d("130"), d("125"))
	assert.Error(t, err)
}

func TestBonus_CopyFor(t *testing.T) {
	b, err := NewBonus(uuid.New(), d("500"), d("70"), d("120"))
	require.NoError(t, err)
	require.NoError(t, b.Finalize(d("100"), time.Now()))

	target := uuid.New()
	c := b.CopyFor(target)
	assert.Equal(t, target, c.KPIID)
	assert.False(t, c.IsCalculated)
	assert.True(t, c.FinalPayout.IsZero())
	assert.Equal(t, "70", c.ThresholdMin.String())
}

func TestMonthStatus_Close(t *testing.T) {
	m := NewMonthStatus(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, m.Month.Day())

	at := time.Now()
	assert.True(t, m.Close("hr-1", at))
	assert.False(t, m.Close("hr-2", at.Add(time.Hour)))
	assert.Equal(t, "hr-1", m.ClosedBy)
}

func TestStatusSummary_Add(t *testing.T) {
	var s StatusSummary
	s.Add(StatusDraft, 2)
	s.Add(StatusApproved, 3)
	s.Add(IndicatorStatus("unknown"), 9)

	assert.Equal(t, int64(2), s.Draft)
	assert.Equal(t, int64(3), s.Approved)
	assert.Zero(t, s.OnReview)
}
