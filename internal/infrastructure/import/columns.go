package sheetimport

import (
	"fmt"
	"strings"
)

// Role names what a column holds
type Role string

const (
	RoleName         Role = "name"
	RoleNameFallback Role = "name_fallback"
	RoleFact         Role = "fact"
	RolePlan         Role = "plan"
	RoleCode         Role = "code"
	RoleAccountName  Role = "account_name"
	RoleDebit        Role = "debit"
	RoleCredit       Role = "credit"
)

// ColumnMap binds roles to zero-based column indexes and says where data
// rows start. It replaces positional indexing in the extractors so layouts
// can be changed from configuration.
type ColumnMap struct {
	DataStartRow int          `mapstructure:"data_start_row"`
	Columns      map[Role]int `mapstructure:"columns"`
}

// DefaultPnLColumns is the single-month P&L layout: name in B (falling
// back to A), fact in C, plan in D, data from the fourth row.
func DefaultPnLColumns() ColumnMap {
	return ColumnMap{
		DataStartRow: 3,
		Columns: map[Role]int{
			RoleName:         1,
			RoleNameFallback: 0,
			RoleFact:         2,
			RolePlan:         3,
		},
	}
}

// DefaultTrialBalanceColumns is the trial-balance layout: code in A, name
// in B, period debit turnover in F and credit turnover in G, data from the
// fifth row.
func DefaultTrialBalanceColumns() ColumnMap {
	return ColumnMap{
		DataStartRow: 4,
		Columns: map[Role]int{
			RoleCode:        0,
			RoleAccountName: 1,
			RoleDebit:       5,
			RoleCredit:      6,
		},
	}
}

// Require checks that every role is mapped to a non-negative column
func (m ColumnMap) Require(roles ...Role) error {
	if m.DataStartRow < 0 {
		return fmt.Errorf("data start row must not be negative, got %d", m.DataStartRow)
	}
	for _, r := range roles {
		idx, ok := m.Columns[r]
		if !ok {
			return fmt.Errorf("column role %q is not mapped", r)
		}
		if idx < 0 {
			return fmt.Errorf("column role %q has negative index %d", r, idx)
		}
	}
	return nil
}

// Index returns the column of role
func (m ColumnMap) Index(role Role) (int, bool) {
	idx, ok := m.Columns[role]
	return idx, ok
}

// Get returns the trimmed cell for role in row, "" when the role is unmapped
func (m ColumnMap) Get(grid Grid, row int, role Role) string {
	idx, ok := m.Columns[role]
	if !ok {
		return ""
	}
	return grid.Cell(row, idx)
}

// ColumnLetter renders a zero-based index as a spreadsheet column name
func ColumnLetter(idx int) string {
	name := ""
	for idx >= 0 {
		name = string(rune('A'+idx%26)) + name
		idx = idx/26 - 1
	}
	return name
}

// ResolveName reads the name role and falls back to the fallback role when
// the primary cell is blank
func (m ColumnMap) ResolveName(grid Grid, row int) string {
	name := m.Get(grid, row, RoleName)
	if isBlankName(name) {
		name = m.Get(grid, row, RoleNameFallback)
	}
	if isBlankName(name) {
		return ""
	}
	return name
}

func isBlankName(s string) bool {
	t := strings.TrimSpace(s)
	return t == "" || strings.EqualFold(t, "nan")
}

// ExtractorOption configures the extractors
type ExtractorOption func(*extractorConfig)

type extractorConfig struct {
	columns        *ColumnMap
	keywords       *Keywords
	strict         bool
	maxDiagnostics int
}

// WithColumns overrides the column layout
func WithColumns(m ColumnMap) ExtractorOption {
	return func(c *extractorConfig) {
		c.columns = &m
	}
}

// WithHeaderKeywords overrides the plan/fact markers used to find the
// multi-month header row
func WithHeaderKeywords(k Keywords) ExtractorOption {
	return func(c *extractorConfig) {
		c.keywords = &k
	}
}

// WithStrict makes the extractor report unparsable numeric cells as
// diagnostics. Values are still read as zero and the batch continues.
func WithStrict(strict bool) ExtractorOption {
	return func(c *extractorConfig) {
		c.strict = strict
	}
}

// WithMaxDiagnostics caps the number of diagnostics kept
func WithMaxDiagnostics(n int) ExtractorOption {
	return func(c *extractorConfig) {
		c.maxDiagnostics = n
	}
}

func newExtractorConfig(defaults ColumnMap, opts []ExtractorOption) extractorConfig {
	cfg := extractorConfig{maxDiagnostics: 100}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.columns == nil {
		cfg.columns = &defaults
	}
	return cfg
}
