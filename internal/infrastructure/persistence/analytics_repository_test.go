package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type analyticsFixture struct {
	db       *gorm.DB
	hq       *analytics.Entity
	branch   *analytics.Entity
	revenue  *analytics.Category
	totalCat *analytics.Category
}

func newAnalyticsFixture(t *testing.T) analyticsFixture {
	t.Helper()
	ctx := context.Background()
	db := setupTestDB(t)

	hq, err := analytics.NewEntity("Головной офис", true)
	require.NoError(t, err)
	branch, err := analytics.NewEntity("Алматы", false)
	require.NoError(t, err)
	entities := NewGormEntityRepository(db)
	require.NoError(t, entities.Save(ctx, hq))
	require.NoError(t, entities.Save(ctx, branch))

	revenue, err := analytics.NewCategory("1. Выручка", 3, false)
	require.NoError(t, err)
	total, err := analytics.NewCategory("ИТОГО ПРОДАЖИ", 10, true)
	require.NoError(t, err)
	categories := NewGormCategoryRepository(db)
	require.NoError(t, categories.Save(ctx, revenue))
	require.NoError(t, categories.Save(ctx, total))

	return analyticsFixture{db: db, hq: hq, branch: branch, revenue: revenue, totalCat: total}
}

func TestGormEntityRepository(t *testing.T) {
	f := newAnalyticsFixture(t)
	repo := NewGormEntityRepository(f.db)
	ctx := context.Background()

	t.Run("lists headquarters first", func(t *testing.T) {
		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, f.hq.ID, all[0].ID)
		assert.True(t, all[0].IsHQ)
		assert.Equal(t, "Алматы", all[1].Name)
	})

	t.Run("find by id", func(t *testing.T) {
		got, err := repo.FindByID(ctx, f.branch.ID)
		require.NoError(t, err)
		assert.Equal(t, "Алматы", got.Name)
	})

	t.Run("missing entity is not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("save updates in place", func(t *testing.T) {
		require.NoError(t, f.branch.Rename("Алматы-2", false))
		require.NoError(t, repo.Save(ctx, f.branch))

		got, err := repo.FindByID(ctx, f.branch.ID)
		require.NoError(t, err)
		assert.Equal(t, "Алматы-2", got.Name)
	})
}

func TestGormCategoryRepository(t *testing.T) {
	f := newAnalyticsFixture(t)
	repo := NewGormCategoryRepository(f.db)
	ctx := context.Background()

	t.Run("find by folded key", func(t *testing.T) {
		got, err := repo.FindByKey(ctx, analytics.CategoryKey("итого  продаж И"))
		require.NoError(t, err)
		assert.Equal(t, f.totalCat.ID, got.ID)
		assert.True(t, got.IsTotal)
	})

	t.Run("unknown key is not found", func(t *testing.T) {
		_, err := repo.FindByKey(ctx, "нет такой")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("ordered by sort order", func(t *testing.T) {
		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "1. Выручка", all[0].Name)
	})
}

func TestGormPnLRepository(t *testing.T) {
	f := newAnalyticsFixture(t)
	repo := NewGormPnLRepository(f.db)
	ctx := context.Background()
	jan, feb := month(2024, time.January), month(2024, time.February)

	require.NoError(t, repo.Upsert(ctx, []analytics.PnLRecord{
		analytics.NewPnLRecord(f.hq.ID, f.revenue.ID, jan, dec("90"), dec("100.5")),
		analytics.NewPnLRecord(f.hq.ID, f.totalCat.ID, jan, dec("90"), dec("100.5")),
		analytics.NewPnLRecord(f.branch.ID, f.revenue.ID, feb, dec("10"), dec("12")),
	}))

	t.Run("upsert overwrites amounts on the natural key", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, []analytics.PnLRecord{
			analytics.NewPnLRecord(f.hq.ID, f.revenue.ID, jan, dec("95"), dec("101")),
		}))

		records, err := repo.FindByPeriod(ctx, jan)
		require.NoError(t, err)
		require.Len(t, records, 2)

		n, err := repo.CountByEntityAndPeriods(ctx, f.hq.ID, []time.Time{jan})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		facts, err := repo.FindFactsByEntityAndPeriod(ctx, f.hq.ID, jan)
		require.NoError(t, err)
		require.Len(t, facts, 2)
		assert.Equal(t, "1. Выручка", facts[0].CategoryName)
		assert.True(t, facts[0].Fact.Equal(dec("101")), facts[0].Fact.String())
		assert.True(t, facts[0].Plan.Equal(dec("95")))
		assert.True(t, facts[1].IsTotal)
		assert.Equal(t, jan, facts[1].Period)
	})

	t.Run("exists and periods", func(t *testing.T) {
		ok, err := repo.ExistsForEntityPeriods(ctx, f.branch.ID, []time.Time{jan})
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.ExistsForEntityPeriods(ctx, f.branch.ID, []time.Time{jan, feb})
		require.NoError(t, err)
		assert.True(t, ok)

		periods, err := repo.ListPeriods(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{feb, jan}, periods)

		periods, err = repo.ListPeriods(ctx, &f.branch.ID)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{feb}, periods)

		marks, err := repo.ListEntityPeriods(ctx, 2024)
		require.NoError(t, err)
		assert.Len(t, marks, 2)

		marks, err = repo.ListEntityPeriods(ctx, 2023)
		require.NoError(t, err)
		assert.Empty(t, marks)
	})

	t.Run("facts across periods for one entity", func(t *testing.T) {
		facts, err := repo.FindFacts(ctx, &f.branch.ID)
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, feb, facts[0].Period)

		all, err := repo.FindFacts(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("delete then create batch", func(t *testing.T) {
		n, err := repo.DeleteByEntityAndPeriods(ctx, f.hq.ID, []time.Time{jan, feb})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		require.NoError(t, repo.CreateBatch(ctx, []analytics.PnLRecord{
			analytics.NewPnLRecord(f.hq.ID, f.revenue.ID, feb, dec("1"), dec("2")),
		}))
		records, err := repo.FindByPeriod(ctx, feb)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("empty inputs are no-ops", func(t *testing.T) {
		assert.NoError(t, repo.Upsert(ctx, nil))
		assert.NoError(t, repo.CreateBatch(ctx, nil))
		n, err := repo.DeleteByEntityAndPeriods(ctx, f.hq.ID, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestGormTrialBalanceRepository(t *testing.T) {
	f := newAnalyticsFixture(t)
	repo := NewGormTrialBalanceRepository(f.db)
	ctx := context.Background()
	mar := month(2024, time.March)

	require.NoError(t, repo.Upsert(ctx, []analytics.TrialBalanceRecord{
		analytics.NewTrialBalanceRecord(f.hq.ID, mar, "90.01", "Выручка", dec("0"), dec("1500.25")),
		analytics.NewTrialBalanceRecord(f.branch.ID, mar, "10", "Материалы", dec("300"), dec("0")),
	}))

	t.Run("upsert replaces turnovers and name", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, []analytics.TrialBalanceRecord{
			analytics.NewTrialBalanceRecord(f.hq.ID, mar, "90.01", "Выручка от услуг", dec("0"), dec("1600")),
		}))

		records, err := repo.FindByPeriod(ctx, mar)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "10", records[0].AccountCode)
		assert.Equal(t, "Выручка от услуг", records[1].AccountName)
		assert.True(t, records[1].Credit.Equal(dec("1600")))
	})

	t.Run("subconto round-trips", func(t *testing.T) {
		withSub := analytics.NewTrialBalanceRecord(f.branch.ID, mar, "10", "Материалы", dec("300"), dec("0"))
		withSub.Subconto = map[string]any{"contract": "Д-17"}
		require.NoError(t, repo.Upsert(ctx, []analytics.TrialBalanceRecord{withSub}))

		records, err := repo.FindAll(ctx, &f.branch.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Д-17", records[0].Subconto["contract"])
	})

	t.Run("periods and existence", func(t *testing.T) {
		periods, err := repo.ListPeriods(ctx)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{mar}, periods)

		ok, err := repo.ExistsForEntityPeriods(ctx, f.branch.ID, []time.Time{mar})
		require.NoError(t, err)
		assert.True(t, ok)

		marks, err := repo.ListEntityPeriods(ctx, 2024)
		require.NoError(t, err)
		assert.Len(t, marks, 2)
	})

	t.Run("delete by entity and period", func(t *testing.T) {
		n, err := repo.DeleteByEntityAndPeriods(ctx, f.branch.ID, []time.Time{mar})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		all, err := repo.FindAll(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}
