package sheetimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "0.00"},
		{"   ", "0.00"},
		{"-", "0.00"},
		{" - ", "0.00"},
		{"nan", "0.00"},
		{"100,5", "100.50"},
		{"100.5", "100.50"},
		{"-42", "-42.00"},
		{"1 234,56 руб", "1234.56"},
		{"5,5 руб.", "0.00"},
		{" 987,1 ", "987.10"},
		{"$12.345", "12.35"},
		{"abc", "0.00"},
		{"1,234,5", "0.00"},
		{"--5", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDecimal(tt.in).StringFixed(2))
		})
	}
}

func TestNormalizeDecimal_RoundTrip(t *testing.T) {
	inputs := map[string]string{
		"0":        "0.00",
		"7":        "7.00",
		"-7":       "-7.00",
		"3,14":     "3.14",
		"-3.14":    "-3.14",
		"12345,67": "12345.67",
		"0,5":      "0.50",
	}
	for in, want := range inputs {
		assert.Equal(t, want, NormalizeDecimal(in).StringFixed(2), in)
	}
}

func TestParseDecimal_ReportsFailure(t *testing.T) {
	v, ok := ParseDecimal("н/д")
	assert.False(t, ok)
	assert.True(t, v.IsZero())

	_, ok = ParseDecimal("")
	assert.True(t, ok, "blank cells are not failures")
}

func TestParseLocaleAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1 234,50", "1234.50", true},
		{"1 234 567", "1234567.00", true},
		{"1.234,50", "1234.50", true},
		{"1,234.50", "1234.50", true},
		{"1,234,567", "1234567.00", true},
		{"1.234.567", "1234567.00", true},
		{"12,5", "12.50", true},
		{"-", "0.00", true},
		{"x", "0.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLocaleAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}
