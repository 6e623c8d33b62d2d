//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/domain/kpi"
	"github.com/kpiplatform/backend/internal/infrastructure/migration"
	"github.com/kpiplatform/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupPostgres starts a throwaway PostgreSQL container and applies the
// embedded SQL migrations to it
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("kpi_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db
}

func TestPostgres_AnalyticsRepositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	hq, err := analytics.NewEntity("Головной офис", true)
	require.NoError(t, err)
	require.NoError(t, NewGormEntityRepository(db).Save(ctx, hq))

	revenue, err := analytics.NewCategory("1. Выручка", 3, false)
	require.NoError(t, err)
	require.NoError(t, NewGormCategoryRepository(db).Save(ctx, revenue))

	pnl := NewGormPnLRepository(db)
	jan := month(2024, time.January)

	require.NoError(t, pnl.Upsert(ctx, []analytics.PnLRecord{
		analytics.NewPnLRecord(hq.ID, revenue.ID, jan, dec("90"), dec("100.5")),
	}))
	require.NoError(t, pnl.Upsert(ctx, []analytics.PnLRecord{
		analytics.NewPnLRecord(hq.ID, revenue.ID, jan, dec("95"), dec("101")),
	}))

	facts, err := pnl.FindFactsByEntityAndPeriod(ctx, hq.ID, jan)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.True(t, facts[0].Fact.Equal(dec("101")), facts[0].Fact.String())
	assert.True(t, facts[0].Plan.Equal(dec("95")))

	tb := NewGormTrialBalanceRepository(db)
	require.NoError(t, tb.Upsert(ctx, []analytics.TrialBalanceRecord{
		analytics.NewTrialBalanceRecord(hq.ID, jan, "10.01", "Сырье и материалы", dec("1510"), dec("200")),
	}))
	records, err := tb.FindByPeriod(ctx, jan)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "10.01", records[0].AccountCode)

	deleted, err := pnl.DeleteByEntityAndPeriods(ctx, hq.ID, []time.Time{jan})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestPostgres_KPIVersioning(t *testing.T) {
	db := setupPostgres(t)
	repo := NewGormKPIRepository(db)
	ctx := context.Background()

	may := month(2024, time.May)
	dept := uuid.New()
	first := mustKPI(t, "Продажи отдела", kpi.TargetDepartment, &dept, &may, false)
	require.NoError(t, repo.Save(ctx, first))

	next, _, err := first.NewVersion(nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, next))

	got, err := repo.FindActiveByLineage(ctx, first.Lineage())
	require.NoError(t, err)
	assert.Equal(t, next.ID, got.ID)
	assert.Equal(t, 2, got.Version)

	byVersion, err := repo.List(ctx, kpi.Filter{TargetRef: &dept, OrderBy: "version", OrderDir: "asc"})
	require.NoError(t, err)
	require.Len(t, byVersion, 2)
	assert.False(t, byVersion[0].IsActive)
	assert.True(t, byVersion[1].IsActive)
}
