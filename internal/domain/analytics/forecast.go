package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TurnoverSide selects the debit or credit column of a trial balance
type TurnoverSide string

const (
	SideDebit  TurnoverSide = "debit"
	SideCredit TurnoverSide = "credit"
)

// DefaultTrendWindow is the number of latest non-zero months averaged
// into the baseline trend
const DefaultTrendWindow = 2

// Metric names a forecastable series. A metric is either a P&L category
// matched by case-insensitive substring or a trial-balance account prefix
// with a turnover side.
type Metric struct {
	Key             string       `mapstructure:"key" json:"key"`
	Label           string       `mapstructure:"label" json:"label"`
	CategoryPattern string       `mapstructure:"category_pattern" json:"category_pattern,omitempty"`
	AccountPrefix   string       `mapstructure:"account_prefix" json:"account_prefix,omitempty"`
	Side            TurnoverSide `mapstructure:"side" json:"side,omitempty"`
	AllowNegative   bool         `mapstructure:"allow_negative" json:"allow_negative"`
}

// FromTrialBalance reports whether the metric reads trial-balance data
func (m Metric) FromTrialBalance() bool {
	return m.AccountPrefix != ""
}

// DefaultMetrics returns the metrics shown on the annual analytics page
func DefaultMetrics() []Metric {
	return []Metric{
		{Key: "total_sales", Label: "ИТОГО ПРОДАЖИ", CategoryPattern: "ИТОГО ПРОДАЖИ"},
		{Key: "net_profit", Label: "ЧИСТАЯ ПРИБЫЛЬ", CategoryPattern: "ЧИСТАЯ ПРИБЫЛЬ", AllowNegative: true},
		{Key: "students", Label: "КОЛИЧЕСТВО СЛУШАТЕЛЕЙ", CategoryPattern: "Кол-во заявок на обучение / Number of enrolled students"},
	}
}

// Observation is the metric total for one period
type Observation struct {
	Period time.Time
	Value  decimal.Decimal
}

// MonthlyValues is a January..December series
type MonthlyValues [12]decimal.Decimal

func newMonthlyValues() MonthlyValues {
	var v MonthlyValues
	for i := range v {
		v[i] = decimal.Zero
	}
	return v
}

// CollectPnL sums the facts of matching categories per period
func CollectPnL(metric Metric, facts []CategoryFact) []Observation {
	pattern := CategoryKey(metric.CategoryPattern)
	totals := make(map[time.Time]decimal.Decimal)
	for _, f := range facts {
		if pattern == "" || !strings.Contains(CategoryKey(f.CategoryName), pattern) {
			continue
		}
		totals[f.Period] = totals[f.Period].Add(f.Fact)
	}
	return toObservations(totals)
}

// CollectTrialBalance sums the selected turnover of accounts under the
// metric's prefix per period
func CollectTrialBalance(metric Metric, records []TrialBalanceRecord) []Observation {
	totals := make(map[time.Time]decimal.Decimal)
	for _, r := range records {
		if !strings.HasPrefix(r.AccountCode, metric.AccountPrefix) {
			continue
		}
		v := r.Debit
		if metric.Side == SideCredit {
			v = r.Credit
		}
		totals[r.Period] = totals[r.Period].Add(v)
	}
	return toObservations(totals)
}

func toObservations(totals map[time.Time]decimal.Decimal) []Observation {
	out := make([]Observation, 0, len(totals))
	for p, v := range totals {
		out = append(out, Observation{Period: p, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out
}

// SeasonalIndex computes, for each calendar month, the mean observed value
// divided by the mean of the twelve monthly means. A calendar month with
// no observation has mean zero. When the mean of means is zero or negative
// the divisor is 1.
func SeasonalIndex(history []Observation) MonthlyValues {
	sums := newMonthlyValues()
	var counts [12]int64
	for _, o := range history {
		m := int(o.Period.Month()) - 1
		sums[m] = sums[m].Add(o.Value)
		counts[m]++
	}

	means := newMonthlyValues()
	overall := decimal.Zero
	for m := range means {
		if counts[m] > 0 {
			means[m] = sums[m].Div(decimal.NewFromInt(counts[m]))
		}
		overall = overall.Add(means[m])
	}
	overall = overall.Div(decimal.NewFromInt(12))
	if !overall.IsPositive() {
		overall = decimal.NewFromInt(1)
	}

	index := newMonthlyValues()
	for m := range index {
		index[m] = means[m].Div(overall)
	}
	return index
}

// Baseline is the mean of the latest window non-zero months of facts. If
// facts has no non-zero month the prior year's total divided by twelve is
// used; without prior data the baseline is zero.
func Baseline(facts MonthlyValues, prior *MonthlyValues, window int) decimal.Decimal {
	if window <= 0 {
		window = DefaultTrendWindow
	}

	picked := make([]decimal.Decimal, 0, window)
	for m := 11; m >= 0 && len(picked) < window; m-- {
		if !facts[m].IsZero() {
			picked = append(picked, facts[m])
		}
	}
	if len(picked) > 0 {
		return decimal.Sum(picked[0], picked[1:]...).Div(decimal.NewFromInt(int64(len(picked))))
	}

	if prior == nil {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, v := range prior {
		total = total.Add(v)
	}
	return total.Div(decimal.NewFromInt(12))
}

// Forecast blends actuals with projections: a month with a non-zero fact
// keeps it, any other month becomes baseline × index rounded to cents and
// floored at zero unless negatives are allowed.
func Forecast(facts, index MonthlyValues, baseline decimal.Decimal, allowNegative bool) MonthlyValues {
	out := newMonthlyValues()
	for m := range out {
		if !facts[m].IsZero() {
			out[m] = facts[m]
			continue
		}
		v := baseline.Mul(index[m]).Round(2)
		if !allowNegative && v.IsNegative() {
			v = decimal.Zero
		}
		out[m] = v
	}
	return out
}

// AnnualSeries is the fact and fact-or-forecast pair for one metric in
// one year
type AnnualSeries struct {
	Year     int             `json:"year"`
	Metric   string          `json:"metric"`
	Label    string          `json:"label"`
	Fact     MonthlyValues   `json:"fact"`
	Forecast MonthlyValues   `json:"forecast"`
	Index    MonthlyValues   `json:"seasonal_index"`
	Baseline decimal.Decimal `json:"baseline"`
}

// BuildAnnualSeries projects a metric over year. history holds every
// observation available for the metric; the seasonal profile is taken
// from all of it.
func BuildAnnualSeries(metric Metric, history []Observation, year, window int) AnnualSeries {
	facts := newMonthlyValues()
	prior := newMonthlyValues()
	hasPrior := false
	for _, o := range history {
		m := int(o.Period.Month()) - 1
		switch o.Period.Year() {
		case year:
			facts[m] = facts[m].Add(o.Value)
		case year - 1:
			prior[m] = prior[m].Add(o.Value)
			hasPrior = true
		}
	}

	var priorRef *MonthlyValues
	if hasPrior {
		priorRef = &prior
	}

	index := SeasonalIndex(history)
	baseline := Baseline(facts, priorRef, window)

	return AnnualSeries{
		Year:     year,
		Metric:   metric.Key,
		Label:    metric.Label,
		Fact:     facts,
		Forecast: Forecast(facts, index, baseline, metric.AllowNegative),
		Index:    index,
		Baseline: baseline,
	}
}
