package sheetimport

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonNumeric = regexp.MustCompile(`[^\d.,-]`)

// isBlankCell reports whether a cell holds no value: empty, whitespace,
// a lone dash or a NaN marker left by an exporter
func isBlankCell(s string) bool {
	t := strings.TrimSpace(s)
	return t == "" || t == "-" || strings.EqualFold(t, "nan")
}

// ParseDecimal converts cell text to a 2-digit decimal. Every rune other
// than digits, comma, dot and minus is dropped and a comma becomes the
// decimal point. ok is false when the residue does not parse; the value is
// 0.00 in that case.
func ParseDecimal(cell string) (decimal.Decimal, bool) {
	if isBlankCell(cell) {
		return decimal.Zero, true
	}
	cleaned := strings.ReplaceAll(nonNumeric.ReplaceAllString(cell, ""), ",", ".")
	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return v.Round(2), true
}

// NormalizeDecimal is ParseDecimal with failures read as zero
func NormalizeDecimal(cell string) decimal.Decimal {
	v, _ := ParseDecimal(cell)
	return v
}

// ParseLocaleAmount parses amounts written with grouping separators, such
// as "1 234,50", "1.234,50" or "1,234.50". When both comma and dot occur,
// the one that appears last is the decimal separator.
func ParseLocaleAmount(cell string) (decimal.Decimal, bool) {
	if isBlankCell(cell) {
		return decimal.Zero, true
	}
	s := nonNumeric.ReplaceAllString(cell, "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v.Round(2), true
}
