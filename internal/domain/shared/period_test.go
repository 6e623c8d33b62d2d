package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthStart(t *testing.T) {
	in := time.Date(2024, time.March, 17, 15, 4, 5, 0, time.FixedZone("MSK", 3*3600))
	got := MonthStart(in)

	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestPeriod(t *testing.T) {
	t.Run("valid month", func(t *testing.T) {
		p, err := Period(2024, 12)
		require.NoError(t, err)
		assert.Equal(t, "2024-12", FormatPeriod(p))
	})

	t.Run("month out of range", func(t *testing.T) {
		_, err := Period(2024, 13)
		require.Error(t, err)

		var de *DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_PERIOD", de.Code)
	})
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2024-03", "2024-03", false},
		{"2024-03-15", "2024-03", false},
		{"03.2024", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatPeriod(got))
		})
	}
}

func TestNextMonth(t *testing.T) {
	assert.Equal(t, "2025-01", FormatPeriod(NextMonth(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))))
	assert.Equal(t, "2024-03", FormatPeriod(NextMonth(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))))
}

func TestDomainError_Is(t *testing.T) {
	specific := NewDomainError("NOT_FOUND", "KPI not found")

	assert.True(t, errors.Is(specific, ErrNotFound))
	assert.False(t, errors.Is(specific, ErrInvalidState))
}
