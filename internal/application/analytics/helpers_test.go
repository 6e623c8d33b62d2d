package analytics_test

import (
	"bytes"
	"context"
	"testing"

	appanalytics "github.com/kpiplatform/backend/internal/application/analytics"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// repos bundles the gorm repositories the services are built from
type repos struct {
	db         *gorm.DB
	entities   *persistence.GormEntityRepository
	categories *persistence.GormCategoryRepository
	pnl        *persistence.GormPnLRepository
	tb         *persistence.GormTrialBalanceRepository
	audit      *persistence.GormAuditRepository
	scope      *persistence.GormAnalyticsTransactionScope
}

func newRepos(t *testing.T) *repos {
	db := setupDB(t)
	return &repos{
		db:         db,
		entities:   persistence.NewGormEntityRepository(db),
		categories: persistence.NewGormCategoryRepository(db),
		pnl:        persistence.NewGormPnLRepository(db),
		tb:         persistence.NewGormTrialBalanceRepository(db),
		audit:      persistence.NewGormAuditRepository(db),
		scope:      persistence.NewGormAnalyticsTransactionScope(db),
	}
}

func (r *repos) entity(t *testing.T, name string, hq bool) *analytics.Entity {
	t.Helper()
	e, err := analytics.NewEntity(name, hq)
	require.NoError(t, err)
	require.NoError(t, r.entities.Save(context.Background(), e))
	return e
}

// xlsx renders rows into the first sheet of an in-memory workbook
func xlsx(t *testing.T, name string, rows [][]string) *appanalytics.UploadFile {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &cells))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &appanalytics.UploadFile{Filename: name, Content: &buf}
}

func pnlSheet(rows ...[]string) [][]string {
	return append([][]string{
		{"Сравнительный анализ финансовых результатов"},
		{"за май 2025"},
		{"№", "Наименование", "Факт", "План"},
	}, rows...)
}

func trialBalanceSheet(rows ...[]string) [][]string {
	return append([][]string{
		{"Оборотно-сальдовая ведомость за май 2025"},
		{"", ""},
		{"Счет", "Наименование", "Сальдо на начало", "", "Обороты за период", "", ""},
		{"", "", "Дебет", "Кредит", "", "Дебет", "Кредит"},
	}, rows...)
}

func multiMonthSheet(rows ...[]string) [][]string {
	return append([][]string{
		{"Сравнительный анализ финансовых результатов 2025"},
		{"", "", "Январь", "", "Февраль", "", "Итого за год", ""},
		{"№", "Статья", "Факт", "План", "Факт", "План", "Факт", "План"},
	}, rows...)
}
