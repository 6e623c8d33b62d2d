package sheetimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleMonthGrid() Grid {
	return Grid{
		{"Сравнительный анализ финансовых результатов"},
		{"за май 2025"},
		{"№", "Наименование", "Факт", "План"},
		{"", "Revenue", "100,5", "90"},
		{"", "Наименование статьи", "1", "1"},
		{"Прочие доходы", "", "5", ""},
		{"4", "Расходы", "-1 500,75", "x"},
		{"", "nan"},
	}
}

func TestExtractSingleMonth(t *testing.T) {
	t.Run("reads name fact and plan per row", func(t *testing.T) {
		res, err := NewPnLExtractor().ExtractSingleMonth(singleMonthGrid())
		require.NoError(t, err)
		require.Len(t, res.Rows, 3)

		rev := res.Rows[0]
		assert.Equal(t, "Revenue", rev.Name)
		assert.Equal(t, "100.50", rev.Fact.StringFixed(2))
		assert.Equal(t, "90.00", rev.Plan.StringFixed(2))
		assert.Equal(t, 3, rev.SortOrder)
		assert.Equal(t, 4, rev.Row)
		assert.True(t, rev.IsTotal)
		assert.Zero(t, rev.Month)

		other := res.Rows[1]
		assert.Equal(t, "Прочие доходы", other.Name)
		assert.True(t, other.IsTotal)
		assert.Equal(t, "0.00", other.Plan.StringFixed(2))

		costs := res.Rows[2]
		assert.Equal(t, "Расходы", costs.Name)
		assert.False(t, costs.IsTotal)
		assert.Equal(t, "-1500.75", costs.Fact.StringFixed(2))
		assert.Equal(t, "0.00", costs.Plan.StringFixed(2))

		assert.Empty(t, res.Diagnostics)
	})

	t.Run("strict mode reports unparsable cells", func(t *testing.T) {
		res, err := NewPnLExtractor(WithStrict(true)).ExtractSingleMonth(singleMonthGrid())
		require.NoError(t, err)
		require.Len(t, res.Diagnostics, 1)
		d := res.Diagnostics[0]
		assert.Equal(t, 7, d.Row)
		assert.Equal(t, "D", d.Column)
		assert.Equal(t, ErrCodeUnparsableNumber, d.Code)
		assert.Equal(t, "x", d.Value)
		assert.Len(t, res.Rows, 3)
	})

	t.Run("custom layout", func(t *testing.T) {
		grid := Grid{
			{"Статья", "План", "Факт"},
			{"Выручка", "10", "12"},
		}
		cols := ColumnMap{DataStartRow: 1, Columns: map[Role]int{RoleName: 0, RolePlan: 1, RoleFact: 2}}
		res, err := NewPnLExtractor(WithColumns(cols)).ExtractSingleMonth(grid)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, "12.00", res.Rows[0].Fact.StringFixed(2))
		assert.Equal(t, "10.00", res.Rows[0].Plan.StringFixed(2))
	})

	t.Run("layout missing a role fails", func(t *testing.T) {
		cols := ColumnMap{Columns: map[Role]int{RoleName: 0}}
		_, err := NewPnLExtractor(WithColumns(cols)).ExtractSingleMonth(Grid{{"a"}})
		assert.Error(t, err)
	})
}

func multiMonthGrid() Grid {
	return Grid{
		{"Сравнительный анализ плана и факта"},
		{"", "", "Январь 2025", "", "Февраль 2025", "", "Итого за год", ""},
		{"№", "Статья", "Факт", "План", "Факт", "План", "Факт", "План"},
		{"1", "Выручка", "1 234,50", "1 000,00", "2.000,00", "1.500,00", "3234,5", "2500"},
		{"", "ИТОГО", "5", "5", "5", "5", "10", "10"},
		{"2", "Аренда", "0", "0", "100", "", "100", ""},
		{"", "Факт"},
		{"", "ИТОГО ПРОДАЖИ", "1 234,50", "", "", "", "", ""},
	}
}

func TestExtractMultiMonth(t *testing.T) {
	t.Run("maps month columns and skips yearly totals", func(t *testing.T) {
		e := NewPnLExtractor()
		header, ok := e.FindHeaderRow(multiMonthGrid())
		require.True(t, ok)
		assert.Equal(t, 2, header)

		months := e.MapMonthColumns(multiMonthGrid(), header)
		assert.Equal(t, []MonthColumns{
			{Month: 1, FactColumn: 2, PlanColumn: 3},
			{Month: 2, FactColumn: 4, PlanColumn: 5},
		}, months)
	})

	t.Run("extracts non-zero month values", func(t *testing.T) {
		res, err := NewPnLExtractor().ExtractMultiMonth(multiMonthGrid())
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, res.Months)
		require.Len(t, res.Rows, 4)

		assert.Equal(t, "Выручка", res.Rows[0].Name)
		assert.Equal(t, 1, res.Rows[0].Month)
		assert.Equal(t, "1234.50", res.Rows[0].Fact.StringFixed(2))
		assert.Equal(t, "1000.00", res.Rows[0].Plan.StringFixed(2))
		assert.False(t, res.Rows[0].IsTotal)

		assert.Equal(t, 2, res.Rows[1].Month)
		assert.Equal(t, "2000.00", res.Rows[1].Fact.StringFixed(2))
		assert.Equal(t, "1500.00", res.Rows[1].Plan.StringFixed(2))

		assert.Equal(t, "Аренда", res.Rows[2].Name)
		assert.Equal(t, 2, res.Rows[2].Month)
		assert.Equal(t, "100.00", res.Rows[2].Fact.StringFixed(2))

		assert.Equal(t, "ИТОГО ПРОДАЖИ", res.Rows[3].Name)
		assert.True(t, res.Rows[3].IsTotal)
		assert.Equal(t, 1, res.Rows[3].Month)
	})

	t.Run("merged month title is read from the left", func(t *testing.T) {
		grid := Grid{
			{"", "Апр.", "", ""},
			{"", "", "Факт", "План"},
			{"", "Выручка", "10", "5"},
		}
		res, err := NewPnLExtractor().ExtractMultiMonth(grid)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, 4, res.Rows[0].Month)
	})

	t.Run("title cells match the marker as a whole word", func(t *testing.T) {
		grid := Grid{
			{"", "", "Январь", "", "Февраль", ""},
			{"", "Статья", "Фактически", "План", "Факт, руб.", "План"},
		}
		e := NewPnLExtractor()
		header, ok := e.FindHeaderRow(grid)
		require.True(t, ok)
		assert.Equal(t, []MonthColumns{{Month: 2, FactColumn: 4, PlanColumn: 5}}, e.MapMonthColumns(grid, header))

		_, ok = e.FindHeaderRow(Grid{{"Статья", "Фактически", "Плановые"}})
		assert.False(t, ok)
	})

	t.Run("no header row", func(t *testing.T) {
		_, err := NewPnLExtractor().ExtractMultiMonth(Grid{{"Статья", "Сумма"}})
		assert.ErrorIs(t, err, ErrHeaderNotFound)
	})

	t.Run("header without month labels", func(t *testing.T) {
		grid := Grid{
			{"", "", "", ""},
			{"", "Статья", "Факт", "План"},
		}
		_, err := NewPnLExtractor().ExtractMultiMonth(grid)
		assert.ErrorIs(t, err, ErrNoMonthColumns)
	})

	t.Run("header on first row has no month row", func(t *testing.T) {
		_, err := NewPnLExtractor().ExtractMultiMonth(Grid{{"", "Статья", "Факт", "План"}})
		assert.ErrorIs(t, err, ErrNoMonthColumns)
	})
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"Январь 2025", 1},
		{"фев.", 2},
		{"Март", 3},
		{"май", 5},
		{"1 мая", 5},
		{"июнь", 6},
		{"Июль", 7},
		{"сентябрь 2024", 9},
		{"ДЕКАБРЬ", 12},
		{"в ноябре", 11},
		{"Сент. 2024", 9},
		{"Маржа", 0},
		{"Декларация", 0},
		{"Аренда", 0},
		{"Итого за год", 0},
		{"2025", 0},
		{"Q1", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMonth(tt.label))
		})
	}
}
