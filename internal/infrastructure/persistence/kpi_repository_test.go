package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/audit"
	"github.com/kpiplatform/backend/internal/domain/kpi"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKPI(t *testing.T, name string, targetType kpi.TargetType, ref *uuid.UUID, forMonth *time.Time, template bool) *kpi.KPI {
	t.Helper()
	k, err := kpi.NewKPI(name, kpi.PeriodMonthly, targetType, ref, forMonth, template)
	require.NoError(t, err)
	return k
}

func mustIndicator(t *testing.T, kpiID uuid.UUID, name string, weight int) *kpi.Indicator {
	t.Helper()
	ind, err := kpi.NewIndicator(kpiID, name, kpi.TypePercent, dec("100"), weight)
	require.NoError(t, err)
	return ind
}

func TestGormKPIRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormKPIRepository(db)
	ctx := context.Background()

	may := month(2024, time.May)
	dept := uuid.New()

	company := mustKPI(t, "Выручка компании", kpi.TargetCompany, nil, &may, false)
	department := mustKPI(t, "Продажи отдела", kpi.TargetDepartment, &dept, &may, false)
	template := mustKPI(t, "Шаблон продаж", kpi.TargetDepartment, &dept, nil, true)
	for _, k := range []*kpi.KPI{company, department, template} {
		require.NoError(t, repo.Save(ctx, k))
	}

	t.Run("find by id keeps optional fields", func(t *testing.T) {
		got, err := repo.FindByID(ctx, department.ID)
		require.NoError(t, err)
		require.NotNil(t, got.TargetRef)
		assert.Equal(t, dept, *got.TargetRef)
		require.NotNil(t, got.ForMonth)
		assert.Equal(t, may, *got.ForMonth)
		assert.True(t, got.IsActive)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("lineage lookup handles null columns", func(t *testing.T) {
		got, err := repo.FindActiveByLineage(ctx, company.Lineage())
		require.NoError(t, err)
		assert.Equal(t, company.ID, got.ID)

		got, err = repo.FindActiveByLineage(ctx, template.Lineage())
		require.NoError(t, err)
		assert.Equal(t, template.ID, got.ID)

		other := uuid.New()
		lineage := department.Lineage()
		lineage.TargetRef = &other
		_, err = repo.FindActiveByLineage(ctx, lineage)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("new version replaces the active one", func(t *testing.T) {
		next, _, err := department.NewVersion(nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, department))
		require.NoError(t, repo.Save(ctx, next))

		got, err := repo.FindActiveByLineage(ctx, department.Lineage())
		require.NoError(t, err)
		assert.Equal(t, next.ID, got.ID)
		assert.Equal(t, 2, got.Version)

		all, err := repo.List(ctx, kpi.Filter{TargetRef: &dept, Month: &may})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		active, err := repo.List(ctx, kpi.Filter{TargetRef: &dept, Month: &may, ActiveOnly: true})
		require.NoError(t, err)
		assert.Len(t, active, 1)

		byVersion, err := repo.List(ctx, kpi.Filter{TargetRef: &dept, Month: &may, OrderBy: "version", OrderDir: "asc"})
		require.NoError(t, err)
		require.Len(t, byVersion, 2)
		assert.Equal(t, 1, byVersion[0].Version)
		assert.Equal(t, 2, byVersion[1].Version)

		// unknown sort fields fall back to the default order
		_, err = repo.List(ctx, kpi.Filter{OrderBy: "version; DROP TABLE kpis"})
		require.NoError(t, err)
	})

	t.Run("templates and instances", func(t *testing.T) {
		templates, err := repo.FindActiveTemplates(ctx)
		require.NoError(t, err)
		require.Len(t, templates, 1)
		assert.Equal(t, template.ID, templates[0].ID)

		june := month(2024, time.June)
		exists, err := repo.ExistsFromTemplate(ctx, template.ID, june)
		require.NoError(t, err)
		assert.False(t, exists)

		inst, _, err := template.Instantiate(june, nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, inst))

		exists, err = repo.ExistsFromTemplate(ctx, template.ID, june.AddDate(0, 0, 14))
		require.NoError(t, err)
		assert.True(t, exists)

		isTemplate := false
		instances, err := repo.List(ctx, kpi.Filter{Templates: &isTemplate, Month: &june})
		require.NoError(t, err)
		require.Len(t, instances, 1)
		require.NotNil(t, instances[0].ParentTemplateID)
		assert.Equal(t, template.ID, *instances[0].ParentTemplateID)
	})

	t.Run("active by month excludes templates and archived versions", func(t *testing.T) {
		got, err := repo.FindActiveByMonth(ctx, may)
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, k := range got {
			assert.True(t, k.IsActive)
			assert.False(t, k.IsTemplate)
		}
	})
}

func TestGormIndicatorRepository(t *testing.T) {
	db := setupTestDB(t)
	kpis := NewGormKPIRepository(db)
	repo := NewGormIndicatorRepository(db)
	ctx := context.Background()

	may := month(2024, time.May)
	k := mustKPI(t, "Сервис", kpi.TargetCompany, nil, &may, false)
	require.NoError(t, kpis.Save(ctx, k))

	first := mustIndicator(t, k.ID, "NPS", 60)
	second := mustIndicator(t, k.ID, "Скорость ответа", 40)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.SaveBatch(ctx, []kpi.Indicator{*first, *second}))

	t.Run("find by kpi in creation order", func(t *testing.T) {
		got, err := repo.FindByKPI(ctx, k.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "NPS", got[0].Name)
		assert.Equal(t, kpi.StatusDraft, got[0].Status)
		assert.True(t, got[0].ThresholdMax.Equal(kpi.DefaultThresholdMax))
	})

	t.Run("save persists review state", func(t *testing.T) {
		require.NoError(t, first.SubmitFact(dec("130"), dec("90")))
		require.NoError(t, repo.Save(ctx, first))

		got, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, kpi.StatusOnReview, got.Status)
		assert.True(t, got.FactQuantitative.Equal(dec("125")))
		assert.True(t, got.FactQualitative.Equal(dec("90")))
	})

	t.Run("count by status for the month", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx, may)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[kpi.StatusOnReview])
		assert.Equal(t, int64(1), counts[kpi.StatusDraft])

		counts, err = repo.CountByStatus(ctx, month(2024, time.April))
		require.NoError(t, err)
		assert.Empty(t, counts)
	})

	t.Run("missing indicator", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormBonusAndMonthRepositories(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	bonuses := NewGormBonusRepository(db)
	months := NewGormMonthStatusRepository(db)

	kpiID := uuid.New()

	t.Run("bonus lifecycle persists", func(t *testing.T) {
		_, err := bonuses.FindByKPI(ctx, kpiID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		b, err := kpi.NewBonus(kpiID, dec("100000"), dec("80"), dec("120"))
		require.NoError(t, err)
		require.NoError(t, bonuses.Save(ctx, b))

		at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
		require.NoError(t, b.Finalize(dec("90"), at))
		require.NoError(t, bonuses.Save(ctx, b))

		got, err := bonuses.FindByKPI(ctx, kpiID)
		require.NoError(t, err)
		assert.True(t, got.IsCalculated)
		assert.True(t, got.FinalPayout.Equal(dec("90000")))
		require.NotNil(t, got.CalculatedAt)
		assert.True(t, got.CalculatedAt.Equal(at))
	})

	t.Run("month status close persists", func(t *testing.T) {
		may := month(2024, time.May)
		_, err := months.FindByMonth(ctx, may)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		m := kpi.NewMonthStatus(may)
		assert.True(t, m.Close("hr-1", time.Now().UTC()))
		require.NoError(t, months.Save(ctx, m))

		got, err := months.FindByMonth(ctx, may.AddDate(0, 0, 20))
		require.NoError(t, err)
		assert.True(t, got.IsClosed)
		assert.Equal(t, "hr-1", got.ClosedBy)
	})
}

func TestGormAuditRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormAuditRepository(db)
	ctx := context.Background()
	objectID := uuid.New()

	first := audit.NewEntry("hr-1", audit.ActionCreate, "kpi", objectID, nil)
	second := audit.NewEntry("hr-2", audit.ActionApprove, "kpi", objectID, map[string]any{"status": "approved"})
	second.Timestamp = first.Timestamp.Add(time.Minute)
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))
	require.NoError(t, repo.Save(ctx, audit.NewEntry("hr-1", audit.ActionCreate, "indicator", objectID, nil)))

	got, err := repo.FindByObject(ctx, "kpi", objectID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, audit.ActionCreate, got[0].Action)
	assert.Equal(t, "hr-2", got[1].UserID)
	assert.Equal(t, "approved", got[1].Changes["status"])
}
