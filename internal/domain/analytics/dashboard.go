package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// chartLabelLimit is the number of runes kept in a chart label
const chartLabelLimit = 20

// DashboardRow is one plan/fact line of a branch dashboard
type DashboardRow struct {
	Category string          `json:"category"`
	IsTotal  bool            `json:"is_total"`
	Plan     decimal.Decimal `json:"plan"`
	Fact     decimal.Decimal `json:"fact"`
	Diff     decimal.Decimal `json:"diff"`
	Percent  decimal.Decimal `json:"percent"`
}

// ChartSeries holds parallel label/value arrays for plotting
type ChartSeries struct {
	Labels []string          `json:"labels"`
	Fact   []decimal.Decimal `json:"fact"`
	Plan   []decimal.Decimal `json:"plan"`
}

// BranchDashboard is the plan-vs-fact view of one entity for one period
type BranchDashboard struct {
	EntityID uuid.UUID      `json:"entity_id"`
	Period   time.Time      `json:"period"`
	Rows     []DashboardRow `json:"rows"`
	Chart    ChartSeries    `json:"chart"`
}

// BuildBranchDashboard computes deviations and execution percentage per
// category. Total lines and lines with neither plan nor fact are kept in
// the table but left out of the chart.
func BuildBranchDashboard(entityID uuid.UUID, period time.Time, facts []CategoryFact) *BranchDashboard {
	sorted := make([]CategoryFact, len(facts))
	copy(sorted, facts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder < sorted[j].SortOrder
	})

	d := &BranchDashboard{
		EntityID: entityID,
		Period:   period,
		Rows:     make([]DashboardRow, 0, len(sorted)),
		Chart: ChartSeries{
			Labels: []string{},
			Fact:   []decimal.Decimal{},
			Plan:   []decimal.Decimal{},
		},
	}

	hundred := decimal.NewFromInt(100)
	for _, f := range sorted {
		percent := decimal.Zero
		if !f.Plan.IsZero() {
			percent = f.Fact.Div(f.Plan).Mul(hundred).Round(2)
		}
		d.Rows = append(d.Rows, DashboardRow{
			Category: f.CategoryName,
			IsTotal:  f.IsTotal,
			Plan:     f.Plan,
			Fact:     f.Fact,
			Diff:     f.Fact.Sub(f.Plan),
			Percent:  percent,
		})

		if f.IsTotal || (f.Fact.IsZero() && f.Plan.IsZero()) {
			continue
		}
		d.Chart.Labels = append(d.Chart.Labels, ChartLabel(f.CategoryName))
		d.Chart.Fact = append(d.Chart.Fact, f.Fact)
		d.Chart.Plan = append(d.Chart.Plan, f.Plan)
	}

	return d
}

// ChartLabel shortens a category name for chart axes
func ChartLabel(name string) string {
	r := []rune(name)
	if len(r) <= chartLabelLimit {
		return name
	}
	return string(r[:chartLabelLimit]) + "..."
}

// MonthPresence reports which documents were uploaded for a month
type MonthPresence struct {
	Month  int  `json:"month"`
	HasPnL bool `json:"has_pnl"`
	HasTB  bool `json:"has_osv"`
}

// EntityUploadAudit is the yearly upload calendar of one entity
type EntityUploadAudit struct {
	Entity EntityRef       `json:"entity"`
	Months []MonthPresence `json:"months"`
}

// UploadAudit is the yearly upload calendar across all entities
type UploadAudit struct {
	Year           int                 `json:"year"`
	AvailableYears []int               `json:"available_years"`
	Entities       []EntityUploadAudit `json:"entities"`
}

// BuildUploadAudit marks, for each entity and month of year, whether P&L
// and trial-balance data is present. currentYear is always offered in
// AvailableYears.
func BuildUploadAudit(year, currentYear int, entities []Entity, pnl, tb []EntityPeriod, allYears []int) *UploadAudit {
	type key struct {
		entity uuid.UUID
		month  int
	}
	hasPnL := make(map[key]bool)
	for _, p := range pnl {
		if p.Period.Year() == year {
			hasPnL[key{p.EntityID, int(p.Period.Month())}] = true
		}
	}
	hasTB := make(map[key]bool)
	for _, p := range tb {
		if p.Period.Year() == year {
			hasTB[key{p.EntityID, int(p.Period.Month())}] = true
		}
	}

	audit := &UploadAudit{
		Year:           year,
		AvailableYears: distinctYearsDesc(append(append([]int{}, allYears...), currentYear)),
		Entities:       make([]EntityUploadAudit, 0, len(entities)),
	}
	for _, ref := range SortEntities(entities) {
		row := EntityUploadAudit{Entity: ref, Months: make([]MonthPresence, 12)}
		for m := 1; m <= 12; m++ {
			row.Months[m-1] = MonthPresence{
				Month:  m,
				HasPnL: hasPnL[key{ref.ID, m}],
				HasTB:  hasTB[key{ref.ID, m}],
			}
		}
		audit.Entities = append(audit.Entities, row)
	}
	return audit
}

func distinctYearsDesc(years []int) []int {
	seen := make(map[int]bool, len(years))
	out := make([]int, 0, len(years))
	for _, y := range years {
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
