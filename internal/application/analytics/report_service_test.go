package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	appanalytics "github.com/kpiplatform/backend/internal/application/analytics"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newReportService(r *repos, opts ...appanalytics.ReportServiceOption) *appanalytics.ReportService {
	opts = append([]appanalytics.ReportServiceOption{
		appanalytics.WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	return appanalytics.NewReportService(r.entities, r.categories, r.pnl, r.tb, zap.NewNop(), opts...)
}

func upload(t *testing.T, r *repos, req appanalytics.UploadRequest) {
	t.Helper()
	res, err := newUploadService(r, r.scope).Upload(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.NeedsConfirmation)
}

func TestReportService_Entities(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	svc := newReportService(r)

	branch, err := svc.CreateEntity(ctx, appanalytics.SaveEntityRequest{Name: "  Филиал Север "})
	require.NoError(t, err)
	assert.Equal(t, "Филиал Север", branch.Name)

	hq, err := svc.CreateEntity(ctx, appanalytics.SaveEntityRequest{Name: "Головной офис", IsHQ: true})
	require.NoError(t, err)

	t.Run("names are unique ignoring case", func(t *testing.T) {
		_, err := svc.CreateEntity(ctx, appanalytics.SaveEntityRequest{Name: "филиал север"})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("list puts headquarters first", func(t *testing.T) {
		list, err := svc.ListEntities(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, hq.ID, list[0].ID)
		assert.Equal(t, branch.ID, list[1].ID)
	})

	t.Run("update renames", func(t *testing.T) {
		updated, err := svc.UpdateEntity(ctx, branch.ID, appanalytics.SaveEntityRequest{Name: "Филиал Северо-Запад"})
		require.NoError(t, err)
		assert.Equal(t, "Филиал Северо-Запад", updated.Name)

		stored, err := r.entities.FindByID(ctx, branch.ID)
		require.NoError(t, err)
		assert.Equal(t, "Филиал Северо-Запад", stored.Name)
	})

	t.Run("update keeps own name", func(t *testing.T) {
		_, err := svc.UpdateEntity(ctx, hq.ID, appanalytics.SaveEntityRequest{Name: "ГОЛОВНОЙ ОФИС", IsHQ: true})
		assert.NoError(t, err)
	})

	t.Run("update to a taken name", func(t *testing.T) {
		_, err := svc.UpdateEntity(ctx, branch.ID, appanalytics.SaveEntityRequest{Name: "головной офис"})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("update unknown entity", func(t *testing.T) {
		_, err := svc.UpdateEntity(ctx, uuid.New(), appanalytics.SaveEntityRequest{Name: "x"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestReportService_ConsolidatedReports(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	north := r.entity(t, "Север", false)
	hq := r.entity(t, "Головной офис", true)
	south := r.entity(t, "Юг", false)

	upload(t, r, appanalytics.UploadRequest{
		EntityID:     north.ID,
		Year:         2025,
		Month:        5,
		PnL:          xlsx(t, "pnl.xlsx", singleMonthPnL()),
		TrialBalance: xlsx(t, "osv.xlsx", singleMonthTB()),
	})
	upload(t, r, appanalytics.UploadRequest{
		EntityID: hq.ID,
		Year:     2025,
		Month:    5,
		PnL: xlsx(t, "pnl.xlsx", pnlSheet(
			[]string{"1", "Выручка", "500", "400"},
			[]string{"", "ИТОГО ПРОДАЖИ", "500", "400"},
		)),
		TrialBalance: xlsx(t, "osv.xlsx", trialBalanceSheet(
			[]string{"10.01", "Материалы", "", "", "", "10", "5"},
		)),
	})
	svc := newReportService(r)
	period, _ := shared.Period(2025, 5)

	t.Run("periods", func(t *testing.T) {
		periods, err := svc.Periods(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"2025-05"}, periods.PnL)
		assert.Equal(t, []string{"2025-05"}, periods.TrialBalance)
		assert.Equal(t, []int{2025}, periods.Years)
	})

	t.Run("pnl matrix", func(t *testing.T) {
		m, err := svc.ConsolidatedPnL(ctx, period.AddDate(0, 0, 14))
		require.NoError(t, err)
		assert.Equal(t, period, m.Period)

		require.Len(t, m.Entities, 3)
		assert.Equal(t, hq.ID, m.Entities[0].ID)
		assert.Equal(t, north.ID, m.Entities[1].ID)
		assert.Equal(t, south.ID, m.Entities[2].ID)

		require.Len(t, m.Rows, 3)
		revenue := m.Rows[0]
		assert.Equal(t, "Выручка", revenue.Category)
		assert.True(t, revenue.Values[0].Equal(decimal.NewFromInt(500)))
		assert.True(t, revenue.Values[1].Equal(decimal.NewFromInt(1000)))
		assert.True(t, revenue.Values[2].IsZero())
		assert.True(t, revenue.Total.Equal(decimal.NewFromInt(1500)))

		// the total line is not counted into column totals
		assert.True(t, m.ColumnTotals[1].Equal(decimal.NewFromInt(1200)))
		assert.True(t, m.GrandTotal.Equal(decimal.NewFromInt(1700)))
	})

	t.Run("trial balance matrix", func(t *testing.T) {
		m, err := svc.ConsolidatedTrialBalance(ctx, period)
		require.NoError(t, err)
		require.Len(t, m.Rows, 2)
		assert.Equal(t, "10.01", m.Rows[0].AccountCode)
		assert.Equal(t, "62", m.Rows[1].AccountCode)
		assert.True(t, m.Rows[0].TotalDebit.Equal(decimal.NewFromInt(1510)))
		assert.True(t, m.Rows[1].Cells[1].Credit.Equal(decimal.RequireFromString("300.5")))
		assert.True(t, m.EntityTotals[2].Debit.IsZero())
	})

	t.Run("branch dashboard", func(t *testing.T) {
		d, err := svc.BranchDashboard(ctx, north.ID, period)
		require.NoError(t, err)
		require.Len(t, d.Rows, 3)
		assert.True(t, d.Rows[0].Diff.Equal(decimal.NewFromInt(100)))
		assert.True(t, d.Rows[1].Percent.Equal(decimal.NewFromInt(80)))
		assert.Equal(t, []string{"Выручка", "Аренда"}, d.Chart.Labels)

		_, err = svc.BranchDashboard(ctx, uuid.New(), period)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("upload audit", func(t *testing.T) {
		a, err := svc.UploadAudit(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, []int{2026, 2025}, a.AvailableYears)
		require.Len(t, a.Entities, 3)

		northRow := a.Entities[1]
		assert.Equal(t, north.ID, northRow.Entity.ID)
		assert.True(t, northRow.Months[4].HasPnL)
		assert.True(t, northRow.Months[4].HasTB)
		assert.False(t, northRow.Months[3].HasPnL)
		assert.False(t, a.Entities[2].Months[4].HasPnL)

		current, err := svc.UploadAudit(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 2026, current.Year)
		assert.False(t, current.Entities[1].Months[4].HasPnL)
	})
}

func TestReportService_AnnualAnalytics(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	branch := r.entity(t, "Филиал", false)
	other := r.entity(t, "Другой", false)

	upload(t, r, appanalytics.UploadRequest{
		EntityID:   branch.ID,
		Year:       2025,
		MultiMonth: true,
		PnL: xlsx(t, "year.xlsx", multiMonthSheet(
			[]string{"", "ИТОГО ПРОДАЖИ", "100", "0", "200", "0", "300", "0"},
		)),
	})
	upload(t, r, appanalytics.UploadRequest{
		EntityID:     branch.ID,
		Year:         2025,
		Month:        3,
		TrialBalance: xlsx(t, "osv.xlsx", trialBalanceSheet([]string{"90.01", "Выручка", "", "", "", "0", "700"})),
	})

	t.Run("default metrics", func(t *testing.T) {
		res, err := newReportService(r).AnnualAnalytics(ctx, []int{2025}, nil)
		require.NoError(t, err)
		require.Len(t, res.Series, len(analytics.DefaultMetrics()))

		sales := res.Series[0]
		assert.Equal(t, "total_sales", sales.Metric)
		assert.Equal(t, 2025, sales.Year)
		assert.True(t, sales.Fact[0].Equal(decimal.NewFromInt(100)))
		assert.True(t, sales.Fact[1].Equal(decimal.NewFromInt(200)))
		assert.True(t, sales.Index[0].Equal(decimal.NewFromInt(4)))
		assert.True(t, sales.Index[1].Equal(decimal.NewFromInt(8)))
		assert.True(t, sales.Baseline.Equal(decimal.NewFromInt(150)))
		assert.True(t, sales.Forecast[1].Equal(decimal.NewFromInt(200)))
		assert.True(t, sales.Forecast[5].IsZero())

		students := res.Series[2]
		assert.True(t, students.Baseline.IsZero())
	})

	t.Run("trial balance metric", func(t *testing.T) {
		svc := newReportService(r, appanalytics.WithMetrics([]analytics.Metric{
			{Key: "revenue_turnover", Label: "Оборот 90", AccountPrefix: "90", Side: analytics.SideCredit},
		}))
		res, err := svc.AnnualAnalytics(ctx, []int{2025, 2026}, nil)
		require.NoError(t, err)
		require.Len(t, res.Series, 2)
		assert.True(t, res.Series[0].Fact[2].Equal(decimal.NewFromInt(700)))

		// no 2026 facts: baseline falls back to the prior year's monthly mean
		next := res.Series[1]
		assert.Equal(t, 2026, next.Year)
		assert.True(t, next.Baseline.Equal(decimal.RequireFromString("700").Div(decimal.NewFromInt(12))))
		assert.True(t, next.Forecast[2].Equal(decimal.NewFromInt(700)))
		assert.True(t, next.Forecast[0].IsZero())
	})

	t.Run("entity filter", func(t *testing.T) {
		res, err := newReportService(r).AnnualAnalytics(ctx, nil, &other.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{2026}, res.Years)
		for _, s := range res.Series {
			assert.True(t, s.Baseline.IsZero())
		}

		_, err = newReportService(r).AnnualAnalytics(ctx, nil, ptr(uuid.New()))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func ptr[T any](v T) *T { return &v }
