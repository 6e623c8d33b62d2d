package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/kpi"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormKPIRepository implements KPIRepository using GORM
type GormKPIRepository struct {
	db *gorm.DB
}

// NewGormKPIRepository creates a new GormKPIRepository
func NewGormKPIRepository(db *gorm.DB) *GormKPIRepository {
	return &GormKPIRepository{db: db}
}

// FindByID finds a KPI version by its ID
func (r *GormKPIRepository) FindByID(ctx context.Context, id uuid.UUID) (*kpi.KPI, error) {
	var model models.KPIModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByLineage finds the active version of a lineage
func (r *GormKPIRepository) FindActiveByLineage(ctx context.Context, lineage kpi.Lineage) (*kpi.KPI, error) {
	query := r.db.WithContext(ctx).
		Where("target_type = ? AND name = ? AND is_template = ? AND is_active = ?",
			lineage.TargetType, lineage.Name, lineage.IsTemplate, true)
	if lineage.TargetRef == nil {
		query = query.Where("target_ref IS NULL")
	} else {
		query = query.Where("target_ref = ?", *lineage.TargetRef)
	}
	if lineage.ForMonth == nil {
		query = query.Where("for_month IS NULL")
	} else {
		query = query.Where("for_month = ?", *lineage.ForMonth)
	}

	var model models.KPIModel
	if err := query.Order("version DESC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveTemplates returns every active template
func (r *GormKPIRepository) FindActiveTemplates(ctx context.Context) ([]kpi.KPI, error) {
	return r.find(r.db.WithContext(ctx).
		Where("is_template = ? AND is_active = ?", true, true).
		Order("name ASC"))
}

// ExistsFromTemplate reports whether the template was already instantiated for month
func (r *GormKPIRepository) ExistsFromTemplate(ctx context.Context, templateID uuid.UUID, month time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.KPIModel{}).
		Where("parent_template_id = ? AND for_month = ?", templateID, shared.MonthStart(month)).
		Count(&count).Error
	return count > 0, err
}

// FindActiveByMonth returns the active non-template KPIs of a month
func (r *GormKPIRepository) FindActiveByMonth(ctx context.Context, month time.Time) ([]kpi.KPI, error) {
	return r.find(r.db.WithContext(ctx).
		Where("for_month = ? AND is_active = ? AND is_template = ?", shared.MonthStart(month), true, false).
		Order("name ASC"))
}

// List returns KPIs matching the filter, newest first unless the filter
// names a whitelisted sort field
func (r *GormKPIRepository) List(ctx context.Context, filter kpi.Filter) ([]kpi.KPI, error) {
	query := r.db.WithContext(ctx)
	if filter.TargetType != nil {
		query = query.Where("target_type = ?", *filter.TargetType)
	}
	if filter.TargetRef != nil {
		query = query.Where("target_ref = ?", *filter.TargetRef)
	}
	if filter.Month != nil {
		query = query.Where("for_month = ?", shared.MonthStart(*filter.Month))
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Templates != nil {
		query = query.Where("is_template = ?", *filter.Templates)
	}
	return r.find(query.Order(orderClause(filter.OrderBy, filter.OrderDir, KPISortFields, "created_at")))
}

func (r *GormKPIRepository) find(query *gorm.DB) ([]kpi.KPI, error) {
	var rows []models.KPIModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]kpi.KPI, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a KPI version
func (r *GormKPIRepository) Save(ctx context.Context, k *kpi.KPI) error {
	var model models.KPIModel
	model.FromDomainKPI(k)
	return r.db.WithContext(ctx).Save(&model).Error
}

// GormIndicatorRepository implements IndicatorRepository using GORM
type GormIndicatorRepository struct {
	db *gorm.DB
}

// NewGormIndicatorRepository creates a new GormIndicatorRepository
func NewGormIndicatorRepository(db *gorm.DB) *GormIndicatorRepository {
	return &GormIndicatorRepository{db: db}
}

// FindByID finds an indicator by its ID
func (r *GormIndicatorRepository) FindByID(ctx context.Context, id uuid.UUID) (*kpi.Indicator, error) {
	var model models.IndicatorModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	ind := model.ToDomain()
	return &ind, nil
}

// FindByKPI returns the indicators of a KPI in creation order
func (r *GormIndicatorRepository) FindByKPI(ctx context.Context, kpiID uuid.UUID) ([]kpi.Indicator, error) {
	var rows []models.IndicatorModel
	if err := r.db.WithContext(ctx).
		Where("kpi_id = ?", kpiID).
		Order("created_at ASC, name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]kpi.Indicator, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates an indicator
func (r *GormIndicatorRepository) Save(ctx context.Context, ind *kpi.Indicator) error {
	var model models.IndicatorModel
	model.FromDomainIndicator(ind)
	return r.db.WithContext(ctx).Save(&model).Error
}

// SaveBatch creates or updates several indicators
func (r *GormIndicatorRepository) SaveBatch(ctx context.Context, inds []kpi.Indicator) error {
	if len(inds) == 0 {
		return nil
	}
	rows := make([]models.IndicatorModel, len(inds))
	for i := range inds {
		rows[i].FromDomainIndicator(&inds[i])
	}
	return r.db.WithContext(ctx).Save(&rows).Error
}

type statusCountRow struct {
	Status kpi.IndicatorStatus
	Total  int64
}

// CountByStatus counts the indicators of a month's active KPIs per status
func (r *GormIndicatorRepository) CountByStatus(ctx context.Context, month time.Time) (map[kpi.IndicatorStatus]int64, error) {
	var rows []statusCountRow
	err := r.db.WithContext(ctx).
		Table("kpi_indicators AS i").
		Select("i.status AS status, COUNT(*) AS total").
		Joins("JOIN kpis k ON k.id = i.kpi_id").
		Where("k.for_month = ? AND k.is_active = ? AND k.is_template = ?", shared.MonthStart(month), true, false).
		Group("i.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[kpi.IndicatorStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// GormBonusRepository implements BonusRepository using GORM
type GormBonusRepository struct {
	db *gorm.DB
}

// NewGormBonusRepository creates a new GormBonusRepository
func NewGormBonusRepository(db *gorm.DB) *GormBonusRepository {
	return &GormBonusRepository{db: db}
}

// FindByKPI finds the bonus configuration of a KPI
func (r *GormBonusRepository) FindByKPI(ctx context.Context, kpiID uuid.UUID) (*kpi.Bonus, error) {
	var model models.BonusModel
	if err := r.db.WithContext(ctx).Where("kpi_id = ?", kpiID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a bonus configuration
func (r *GormBonusRepository) Save(ctx context.Context, b *kpi.Bonus) error {
	var model models.BonusModel
	model.FromDomainBonus(b)
	return r.db.WithContext(ctx).Save(&model).Error
}

// GormMonthStatusRepository implements MonthStatusRepository using GORM
type GormMonthStatusRepository struct {
	db *gorm.DB
}

// NewGormMonthStatusRepository creates a new GormMonthStatusRepository
func NewGormMonthStatusRepository(db *gorm.DB) *GormMonthStatusRepository {
	return &GormMonthStatusRepository{db: db}
}

// FindByMonth finds the closing state of a month
func (r *GormMonthStatusRepository) FindByMonth(ctx context.Context, month time.Time) (*kpi.MonthStatus, error) {
	var model models.MonthStatusModel
	if err := r.db.WithContext(ctx).Where("month = ?", shared.MonthStart(month)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates the closing state of a month
func (r *GormMonthStatusRepository) Save(ctx context.Context, m *kpi.MonthStatus) error {
	var model models.MonthStatusModel
	model.FromDomainMonthStatus(m)
	return r.db.WithContext(ctx).Save(&model).Error
}

var (
	_ kpi.KPIRepository         = (*GormKPIRepository)(nil)
	_ kpi.IndicatorRepository   = (*GormIndicatorRepository)(nil)
	_ kpi.BonusRepository       = (*GormBonusRepository)(nil)
	_ kpi.MonthStatusRepository = (*GormMonthStatusRepository)(nil)
)
