package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insertBatchSize bounds the number of rows per INSERT statement
const insertBatchSize = 500

// GormPnLRepository implements PnLRepository using GORM
type GormPnLRepository struct {
	db *gorm.DB
}

// NewGormPnLRepository creates a new GormPnLRepository
func NewGormPnLRepository(db *gorm.DB) *GormPnLRepository {
	return &GormPnLRepository{db: db}
}

func toPnLModels(records []analytics.PnLRecord) []models.PnLRecordModel {
	rows := make([]models.PnLRecordModel, len(records))
	for i := range records {
		rows[i].FromDomainPnLRecord(&records[i])
	}
	return rows
}

// Upsert inserts records, overwriting plan and fact on an existing
// (entity, category, period) key
func (r *GormPnLRepository) Upsert(ctx context.Context, records []analytics.PnLRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := toPnLModels(records)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_id"}, {Name: "category_id"}, {Name: "period"}},
			DoUpdates: clause.AssignmentColumns([]string{"plan_amount", "fact_amount", "updated_at"}),
		}).
		CreateInBatches(&rows, insertBatchSize).Error
}

// CreateBatch inserts records that are known not to exist
func (r *GormPnLRepository) CreateBatch(ctx context.Context, records []analytics.PnLRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := toPnLModels(records)
	return r.db.WithContext(ctx).CreateInBatches(&rows, insertBatchSize).Error
}

// DeleteByEntityAndPeriods removes the entity's records for the periods
func (r *GormPnLRepository) DeleteByEntityAndPeriods(ctx context.Context, entityID uuid.UUID, periods []time.Time) (int64, error) {
	if len(periods) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("entity_id = ? AND period IN ?", entityID, periods).
		Delete(&models.PnLRecordModel{})
	return result.RowsAffected, result.Error
}

// ExistsForEntityPeriods reports whether any record exists for the entity in the periods
func (r *GormPnLRepository) ExistsForEntityPeriods(ctx context.Context, entityID uuid.UUID, periods []time.Time) (bool, error) {
	n, err := r.CountByEntityAndPeriods(ctx, entityID, periods)
	return n > 0, err
}

// CountByEntityAndPeriods counts the entity's records in the periods
func (r *GormPnLRepository) CountByEntityAndPeriods(ctx context.Context, entityID uuid.UUID, periods []time.Time) (int64, error) {
	if len(periods) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PnLRecordModel{}).
		Where("entity_id = ? AND period IN ?", entityID, periods).
		Count(&count).Error
	return count, err
}

// FindByPeriod returns all records of a period across entities
func (r *GormPnLRepository) FindByPeriod(ctx context.Context, period time.Time) ([]analytics.PnLRecord, error) {
	var rows []models.PnLRecordModel
	if err := r.db.WithContext(ctx).Where("period = ?", period).Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]analytics.PnLRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, nil
}

type categoryFactRow struct {
	EntityID     uuid.UUID
	CategoryID   uuid.UUID
	CategoryName string
	IsTotal      bool
	SortOrder    int
	Period       time.Time
	PlanAmount   decimal.Decimal
	FactAmount   decimal.Decimal
}

func (r *GormPnLRepository) factQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("pnl_records AS p").
		Select("p.entity_id, p.category_id, c.name AS category_name, c.is_total, c.sort_order, p.period, p.plan_amount, p.fact_amount").
		Joins("JOIN categories c ON c.id = p.category_id")
}

func toCategoryFacts(rows []categoryFactRow) []analytics.CategoryFact {
	facts := make([]analytics.CategoryFact, len(rows))
	for i, row := range rows {
		facts[i] = analytics.CategoryFact{
			EntityID:     row.EntityID,
			CategoryID:   row.CategoryID,
			CategoryName: row.CategoryName,
			IsTotal:      row.IsTotal,
			SortOrder:    row.SortOrder,
			Period:       row.Period.UTC(),
			Plan:         row.PlanAmount,
			Fact:         row.FactAmount,
		}
	}
	return facts
}

// FindFactsByEntityAndPeriod returns the entity's category facts for a period in display order
func (r *GormPnLRepository) FindFactsByEntityAndPeriod(ctx context.Context, entityID uuid.UUID, period time.Time) ([]analytics.CategoryFact, error) {
	var rows []categoryFactRow
	err := r.factQuery(ctx).
		Where("p.entity_id = ? AND p.period = ?", entityID, period).
		Order("c.sort_order ASC, c.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCategoryFacts(rows), nil
}

// FindFacts returns category facts over all periods, optionally for one entity
func (r *GormPnLRepository) FindFacts(ctx context.Context, entityID *uuid.UUID) ([]analytics.CategoryFact, error) {
	query := r.factQuery(ctx)
	if entityID != nil {
		query = query.Where("p.entity_id = ?", *entityID)
	}
	var rows []categoryFactRow
	if err := query.Order("p.period ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toCategoryFacts(rows), nil
}

// ListPeriods returns the distinct periods with data, newest first
func (r *GormPnLRepository) ListPeriods(ctx context.Context, entityID *uuid.UUID) ([]time.Time, error) {
	query := r.db.WithContext(ctx).Model(&models.PnLRecordModel{})
	if entityID != nil {
		query = query.Where("entity_id = ?", *entityID)
	}
	return pluckPeriods(query)
}

// ListEntityPeriods returns which entities have data in which months of a year
func (r *GormPnLRepository) ListEntityPeriods(ctx context.Context, year int) ([]analytics.EntityPeriod, error) {
	return listEntityPeriods(r.db.WithContext(ctx).Model(&models.PnLRecordModel{}), year)
}

func pluckPeriods(query *gorm.DB) ([]time.Time, error) {
	var periods []time.Time
	if err := query.Distinct("period").Order("period DESC").Pluck("period", &periods).Error; err != nil {
		return nil, err
	}
	for i := range periods {
		periods[i] = periods[i].UTC()
	}
	return periods, nil
}

type entityPeriodRow struct {
	EntityID uuid.UUID
	Period   time.Time
}

func listEntityPeriods(query *gorm.DB, year int) ([]analytics.EntityPeriod, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	var rows []entityPeriodRow
	err := query.
		Distinct("entity_id", "period").
		Where("period >= ? AND period < ?", from, from.AddDate(1, 0, 0)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]analytics.EntityPeriod, len(rows))
	for i, row := range rows {
		out[i] = analytics.EntityPeriod{EntityID: row.EntityID, Period: row.Period.UTC()}
	}
	return out, nil
}

var _ analytics.PnLRepository = (*GormPnLRepository)(nil)
