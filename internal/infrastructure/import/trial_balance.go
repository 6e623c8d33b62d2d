package sheetimport

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TrialBalanceRow is one extracted account line
type TrialBalanceRow struct {
	Row    int
	Code   string
	Name   string
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// TrialBalanceResult is the output of a trial-balance extraction
type TrialBalanceResult struct {
	Rows        []TrialBalanceRow
	Diagnostics []RowError
	Truncated   bool
}

// totalMarker flags subtotal lines in the account column
const totalMarker = "итого"

// TrialBalanceExtractor turns a trial-balance sheet into account rows
type TrialBalanceExtractor struct {
	cfg extractorConfig
}

// NewTrialBalanceExtractor creates an extractor using the default layout
func NewTrialBalanceExtractor(opts ...ExtractorOption) *TrialBalanceExtractor {
	return &TrialBalanceExtractor{cfg: newExtractorConfig(DefaultTrialBalanceColumns(), opts)}
}

// Extract reads account rows, skipping blank codes and subtotal lines
func (e *TrialBalanceExtractor) Extract(grid Grid) (*TrialBalanceResult, error) {
	cols := *e.cfg.columns
	if err := cols.Require(RoleCode, RoleAccountName, RoleDebit, RoleCredit); err != nil {
		return nil, err
	}

	diag := NewErrorCollection(e.cfg.maxDiagnostics)
	result := &TrialBalanceResult{Rows: make([]TrialBalanceRow, 0)}

	for r := cols.DataStartRow; r < grid.Rows(); r++ {
		code := cols.Get(grid, r, RoleCode)
		if isBlankName(code) || strings.Contains(strings.ToLower(code), totalMarker) {
			continue
		}
		result.Rows = append(result.Rows, TrialBalanceRow{
			Row:    r + 1,
			Code:   code,
			Name:   cols.Get(grid, r, RoleAccountName),
			Debit:  e.number(diag, grid, r, cols, RoleDebit),
			Credit: e.number(diag, grid, r, cols, RoleCredit),
		})
	}

	result.Diagnostics = diag.Errors()
	result.Truncated = diag.IsTruncated()
	return result, nil
}

func (e *TrialBalanceExtractor) number(diag *ErrorCollection, grid Grid, row int, cols ColumnMap, role Role) decimal.Decimal {
	idx, _ := cols.Index(role)
	raw := grid.Cell(row, idx)
	v, ok := ParseDecimal(raw)
	if !ok && e.cfg.strict {
		diag.AddNumberError(row+1, ColumnLetter(idx), raw)
	}
	return v
}
