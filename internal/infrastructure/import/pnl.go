package sheetimport

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// PnLRow is one extracted category line. Month is 1..12 for multi-month
// sheets and 0 for single-month sheets.
type PnLRow struct {
	Row       int
	Name      string
	IsTotal   bool
	SortOrder int
	Month     int
	Fact      decimal.Decimal
	Plan      decimal.Decimal
}

// PnLResult is the output of a P&L extraction
type PnLResult struct {
	Rows        []PnLRow
	Months      []int
	Diagnostics []RowError
	Truncated   bool
}

// MonthColumns is a month recognized in a multi-month header
type MonthColumns struct {
	Month      int
	FactColumn int
	PlanColumn int
}

// monthWords holds month names in the cases seen in report headers and
// their usual abbreviations
var monthWords = map[string]int{
	"январь": 1, "января": 1, "январе": 1, "янв": 1,
	"февраль": 2, "февраля": 2, "феврале": 2, "фев": 2, "февр": 2,
	"март": 3, "марта": 3, "марте": 3, "мар": 3,
	"апрель": 4, "апреля": 4, "апреле": 4, "апр": 4,
	"май": 5, "мая": 5, "мае": 5,
	"июнь": 6, "июня": 6, "июне": 6, "июн": 6,
	"июль": 7, "июля": 7, "июле": 7, "июл": 7,
	"август": 8, "августа": 8, "августе": 8, "авг": 8,
	"сентябрь": 9, "сентября": 9, "сентябре": 9, "сен": 9, "сент": 9,
	"октябрь": 10, "октября": 10, "октябре": 10, "окт": 10,
	"ноябрь": 11, "ноября": 11, "ноябре": 11, "ноя": 11, "нояб": 11,
	"декабрь": 12, "декабря": 12, "декабре": 12, "дек": 12,
}

// yearlyMarkers flag a month-row label as a yearly total column
var yearlyMarkers = []string{"итог", "год", "всего"}

// nameStoplist holds labels that are never categories in multi-month sheets
var nameStoplist = map[string]bool{"итого": true, "всего": true, "план": true, "факт": true}

// singleMonthHeaderLabel marks the column-title row repeated in the data area
const singleMonthHeaderLabel = "наименование"

// PnLExtractor turns a P&L sheet into category rows
type PnLExtractor struct {
	cfg      extractorConfig
	keywords Keywords
}

// NewPnLExtractor creates an extractor using the default single-month layout
func NewPnLExtractor(opts ...ExtractorOption) *PnLExtractor {
	e := &PnLExtractor{
		cfg:      newExtractorConfig(DefaultPnLColumns(), opts),
		keywords: DefaultKeywords(),
	}
	if e.cfg.keywords != nil {
		e.keywords = *e.cfg.keywords
	}
	return e
}

// ExtractSingleMonth reads a one-period sheet: every data row becomes a
// category with fact and plan. A row is a total line when column A holds no
// digit, since numbered lines carry their line number there.
func (e *PnLExtractor) ExtractSingleMonth(grid Grid) (*PnLResult, error) {
	cols := *e.cfg.columns
	if err := cols.Require(RoleName, RoleFact, RolePlan); err != nil {
		return nil, err
	}

	diag := NewErrorCollection(e.cfg.maxDiagnostics)
	result := &PnLResult{Rows: make([]PnLRow, 0)}

	for r := cols.DataStartRow; r < grid.Rows(); r++ {
		name := cols.ResolveName(grid, r)
		if name == "" || strings.Contains(strings.ToLower(name), singleMonthHeaderLabel) {
			continue
		}

		result.Rows = append(result.Rows, PnLRow{
			Row:       r + 1,
			Name:      name,
			IsTotal:   !hasDigit(cols.Get(grid, r, RoleNameFallback)),
			SortOrder: r,
			Fact:      e.number(diag, grid, r, cols, RoleFact, ParseDecimal),
			Plan:      e.number(diag, grid, r, cols, RolePlan, ParseDecimal),
		})
	}

	result.Diagnostics = diag.Errors()
	result.Truncated = diag.IsTruncated()
	return result, nil
}

// FindHeaderRow returns the first row holding both a plan and a fact
// column title. A title cell opens with the marker as a whole word, so
// "Факт, руб." matches while "Фактически" and captions such as
// "анализ плана и факта" do not.
func (e *PnLExtractor) FindHeaderRow(grid Grid) (int, bool) {
	for r := 0; r < grid.Rows(); r++ {
		var plan, fact bool
		for _, cell := range grid[r] {
			plan = plan || isColumnTitle(cell, e.keywords.Plan)
			fact = fact || isColumnTitle(cell, e.keywords.Fact)
		}
		if plan && fact {
			return r, true
		}
	}
	return 0, false
}

// MapMonthColumns finds each header cell titled with the fact marker and
// pairs it with the month named in the row above. Month titles are often
// merged cells, so the nearest non-empty cell to the left is used. The plan
// column is the one right of the fact column.
func (e *PnLExtractor) MapMonthColumns(grid Grid, header int) []MonthColumns {
	if header == 0 {
		return nil
	}
	seen := make(map[int]bool)
	out := make([]MonthColumns, 0, 12)
	for c, cell := range grid[header] {
		if !isColumnTitle(cell, e.keywords.Fact) {
			continue
		}
		label := ""
		for lc := c; lc >= 0; lc-- {
			if v := grid.Cell(header-1, lc); v != "" {
				label = normalizeText(v)
				break
			}
		}
		if label == "" || containsAny(label, yearlyMarkers) {
			continue
		}
		month := ParseMonth(label)
		if month == 0 || seen[month] {
			continue
		}
		seen[month] = true
		out = append(out, MonthColumns{Month: month, FactColumn: c, PlanColumn: c + 1})
	}
	return out
}

// ExtractMultiMonth reads a sheet with one fact/plan column pair per month.
// Rows where both fact and plan are zero are dropped.
func (e *PnLExtractor) ExtractMultiMonth(grid Grid) (*PnLResult, error) {
	cols := *e.cfg.columns
	if err := cols.Require(RoleName); err != nil {
		return nil, err
	}

	header, ok := e.FindHeaderRow(grid)
	if !ok {
		return nil, ErrHeaderNotFound
	}
	months := e.MapMonthColumns(grid, header)
	if len(months) == 0 {
		return nil, ErrNoMonthColumns
	}

	diag := NewErrorCollection(e.cfg.maxDiagnostics)
	result := &PnLResult{Rows: make([]PnLRow, 0)}
	for _, m := range months {
		result.Months = append(result.Months, m.Month)
	}
	sort.Ints(result.Months)

	for r := header + 1; r < grid.Rows(); r++ {
		name := cols.ResolveName(grid, r)
		if name == "" || nameStoplist[normalizeText(name)] {
			continue
		}
		isTotal := !hasDigit(cols.Get(grid, r, RoleNameFallback))

		for _, m := range months {
			fact := e.cellNumber(diag, grid, r, m.FactColumn, ParseLocaleAmount)
			plan := e.cellNumber(diag, grid, r, m.PlanColumn, ParseLocaleAmount)
			if fact.IsZero() && plan.IsZero() {
				continue
			}
			result.Rows = append(result.Rows, PnLRow{
				Row:       r + 1,
				Name:      name,
				IsTotal:   isTotal,
				SortOrder: r,
				Month:     m.Month,
				Fact:      fact,
				Plan:      plan,
			})
		}
	}

	result.Diagnostics = diag.Errors()
	result.Truncated = diag.IsTruncated()
	return result, nil
}

type parseFunc func(string) (decimal.Decimal, bool)

func (e *PnLExtractor) number(diag *ErrorCollection, grid Grid, row int, cols ColumnMap, role Role, parse parseFunc) decimal.Decimal {
	idx, _ := cols.Index(role)
	return e.cellNumber(diag, grid, row, idx, parse)
}

func (e *PnLExtractor) cellNumber(diag *ErrorCollection, grid Grid, row, col int, parse parseFunc) decimal.Decimal {
	raw := grid.Cell(row, col)
	v, ok := parse(raw)
	if !ok && e.cfg.strict {
		diag.AddNumberError(row+1, ColumnLetter(col), raw)
	}
	return v
}

// isColumnTitle reports whether cell opens with marker followed by a
// non-letter or nothing
func isColumnTitle(cell, marker string) bool {
	text := normalizeText(cell)
	if marker == "" || !strings.HasPrefix(text, marker) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(text[len(marker):])
	return next == utf8.RuneError || !unicode.IsLetter(next)
}

// ParseMonth maps a Russian month name or abbreviation to 1..12, or 0.
// Only whole words count, so "Маржа" is not March.
func ParseMonth(label string) int {
	words := strings.FieldsFunc(normalizeText(label), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if m, ok := monthWords[w]; ok {
			return m
		}
	}
	return 0
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
