package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntityRef identifies a matrix column
type EntityRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	IsHQ bool      `json:"is_hq"`
}

// PnLMatrixRow is one category across all entities
type PnLMatrixRow struct {
	CategoryID uuid.UUID         `json:"category_id"`
	Category   string            `json:"category"`
	IsTotal    bool              `json:"is_total"`
	Values     []decimal.Decimal `json:"values"`
	Total      decimal.Decimal   `json:"total"`
}

// PnLMatrix is the dense category × entity fact matrix for a period.
// Values in each row are aligned with Entities.
type PnLMatrix struct {
	Period       time.Time         `json:"period"`
	Entities     []EntityRef       `json:"entities"`
	Rows         []PnLMatrixRow    `json:"rows"`
	ColumnTotals []decimal.Decimal `json:"column_totals"`
	GrandTotal   decimal.Decimal   `json:"grand_total"`
}

// Turnover is a debit/credit pair
type Turnover struct {
	Debit  decimal.Decimal `json:"d"`
	Credit decimal.Decimal `json:"c"`
}

func (t Turnover) add(o Turnover) Turnover {
	return Turnover{Debit: t.Debit.Add(o.Debit), Credit: t.Credit.Add(o.Credit)}
}

// TrialBalanceMatrixRow is one account across all entities
type TrialBalanceMatrixRow struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Cells       []Turnover      `json:"cells"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
}

// TrialBalanceMatrix is the dense account × entity turnover matrix
type TrialBalanceMatrix struct {
	Period       time.Time               `json:"period"`
	Entities     []EntityRef             `json:"entities"`
	Rows         []TrialBalanceMatrixRow `json:"rows"`
	EntityTotals []Turnover              `json:"entity_totals"`
}

// SortEntities orders headquarters first, then by name
func SortEntities(entities []Entity) []EntityRef {
	refs := make([]EntityRef, len(entities))
	for i, e := range entities {
		refs[i] = EntityRef{ID: e.ID, Name: e.Name, IsHQ: e.IsHQ}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].IsHQ != refs[j].IsHQ {
			return refs[i].IsHQ
		}
		return refs[i].Name < refs[j].Name
	})
	return refs
}

// SortCategories orders categories by sort order, then by name
func SortCategories(categories []Category) []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// BuildPnLMatrix lays out every known category against every known entity.
// Missing cells are zero. Column totals skip total categories so that
// subtotal lines are not counted twice.
func BuildPnLMatrix(period time.Time, entities []Entity, categories []Category, records []PnLRecord) *PnLMatrix {
	refs := SortEntities(entities)
	col := make(map[uuid.UUID]int, len(refs))
	for i, ref := range refs {
		col[ref.ID] = i
	}

	type cellKey struct {
		category uuid.UUID
		entity   uuid.UUID
	}
	facts := make(map[cellKey]decimal.Decimal, len(records))
	for _, r := range records {
		k := cellKey{r.CategoryID, r.EntityID}
		facts[k] = facts[k].Add(r.Fact)
	}

	m := &PnLMatrix{
		Period:       period,
		Entities:     refs,
		Rows:         make([]PnLMatrixRow, 0, len(categories)),
		ColumnTotals: zeros(len(refs)),
		GrandTotal:   decimal.Zero,
	}

	for _, c := range SortCategories(categories) {
		row := PnLMatrixRow{
			CategoryID: c.ID,
			Category:   c.Name,
			IsTotal:    c.IsTotal,
			Values:     zeros(len(refs)),
			Total:      decimal.Zero,
		}
		for _, ref := range refs {
			v, ok := facts[cellKey{c.ID, ref.ID}]
			if !ok {
				continue
			}
			i := col[ref.ID]
			row.Values[i] = v
			row.Total = row.Total.Add(v)
			if !c.IsTotal {
				m.ColumnTotals[i] = m.ColumnTotals[i].Add(v)
			}
		}
		if !c.IsTotal {
			m.GrandTotal = m.GrandTotal.Add(row.Total)
		}
		m.Rows = append(m.Rows, row)
	}

	return m
}

// BuildTrialBalanceMatrix lays out every account code seen in the period
// against every known entity. Account codes are ordered by plain string
// comparison, so "1.10" comes before "1.2".
func BuildTrialBalanceMatrix(period time.Time, entities []Entity, records []TrialBalanceRecord) *TrialBalanceMatrix {
	refs := SortEntities(entities)
	col := make(map[uuid.UUID]int, len(refs))
	for i, ref := range refs {
		col[ref.ID] = i
	}

	names := make(map[string]string)
	cells := make(map[string][]Turnover)
	for _, r := range records {
		if _, ok := cells[r.AccountCode]; !ok {
			cells[r.AccountCode] = make([]Turnover, len(refs))
			for i := range cells[r.AccountCode] {
				cells[r.AccountCode][i] = Turnover{Debit: decimal.Zero, Credit: decimal.Zero}
			}
		}
		if names[r.AccountCode] == "" {
			names[r.AccountCode] = r.AccountName
		}
		i, ok := col[r.EntityID]
		if !ok {
			continue
		}
		cells[r.AccountCode][i] = cells[r.AccountCode][i].add(Turnover{Debit: r.Debit, Credit: r.Credit})
	}

	codes := make([]string, 0, len(cells))
	for code := range cells {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	m := &TrialBalanceMatrix{
		Period:       period,
		Entities:     refs,
		Rows:         make([]TrialBalanceMatrixRow, 0, len(codes)),
		EntityTotals: make([]Turnover, len(refs)),
	}
	for i := range m.EntityTotals {
		m.EntityTotals[i] = Turnover{Debit: decimal.Zero, Credit: decimal.Zero}
	}

	for _, code := range codes {
		row := TrialBalanceMatrixRow{
			AccountCode: code,
			AccountName: names[code],
			Cells:       cells[code],
			TotalDebit:  decimal.Zero,
			TotalCredit: decimal.Zero,
		}
		for i, cell := range row.Cells {
			row.TotalDebit = row.TotalDebit.Add(cell.Debit)
			row.TotalCredit = row.TotalCredit.Add(cell.Credit)
			m.EntityTotals[i] = m.EntityTotals[i].add(cell)
		}
		m.Rows = append(m.Rows, row)
	}

	return m
}

func zeros(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}
