package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTrialBalanceRepository implements TrialBalanceRepository using GORM
type GormTrialBalanceRepository struct {
	db *gorm.DB
}

// NewGormTrialBalanceRepository creates a new GormTrialBalanceRepository
func NewGormTrialBalanceRepository(db *gorm.DB) *GormTrialBalanceRepository {
	return &GormTrialBalanceRepository{db: db}
}

// Upsert inserts records, overwriting name and turnovers on an existing
// (entity, account, period) key
func (r *GormTrialBalanceRepository) Upsert(ctx context.Context, records []analytics.TrialBalanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]models.TrialBalanceRecordModel, len(records))
	for i := range records {
		rows[i].FromDomainTrialBalanceRecord(&records[i])
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_id"}, {Name: "account_code"}, {Name: "period"}},
			DoUpdates: clause.AssignmentColumns([]string{"account_name", "debit", "credit", "subconto", "updated_at"}),
		}).
		CreateInBatches(&rows, insertBatchSize).Error
}

// DeleteByEntityAndPeriods removes the entity's records for the periods
func (r *GormTrialBalanceRepository) DeleteByEntityAndPeriods(ctx context.Context, entityID uuid.UUID, periods []time.Time) (int64, error) {
	if len(periods) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("entity_id = ? AND period IN ?", entityID, periods).
		Delete(&models.TrialBalanceRecordModel{})
	return result.RowsAffected, result.Error
}

// ExistsForEntityPeriods reports whether any record exists for the entity in the periods
func (r *GormTrialBalanceRepository) ExistsForEntityPeriods(ctx context.Context, entityID uuid.UUID, periods []time.Time) (bool, error) {
	if len(periods) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TrialBalanceRecordModel{}).
		Where("entity_id = ? AND period IN ?", entityID, periods).
		Count(&count).Error
	return count > 0, err
}

func (r *GormTrialBalanceRepository) find(query *gorm.DB) ([]analytics.TrialBalanceRecord, error) {
	var rows []models.TrialBalanceRecordModel
	if err := query.Order("period ASC, account_code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]analytics.TrialBalanceRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, nil
}

// FindByPeriod returns all records of a period across entities
func (r *GormTrialBalanceRepository) FindByPeriod(ctx context.Context, period time.Time) ([]analytics.TrialBalanceRecord, error) {
	return r.find(r.db.WithContext(ctx).Where("period = ?", period))
}

// FindAll returns every record, optionally for one entity
func (r *GormTrialBalanceRepository) FindAll(ctx context.Context, entityID *uuid.UUID) ([]analytics.TrialBalanceRecord, error) {
	query := r.db.WithContext(ctx)
	if entityID != nil {
		query = query.Where("entity_id = ?", *entityID)
	}
	return r.find(query)
}

// ListPeriods returns the distinct periods with data, newest first
func (r *GormTrialBalanceRepository) ListPeriods(ctx context.Context) ([]time.Time, error) {
	return pluckPeriods(r.db.WithContext(ctx).Model(&models.TrialBalanceRecordModel{}))
}

// ListEntityPeriods returns which entities have data in which months of a year
func (r *GormTrialBalanceRepository) ListEntityPeriods(ctx context.Context, year int) ([]analytics.EntityPeriod, error) {
	return listEntityPeriods(r.db.WithContext(ctx).Model(&models.TrialBalanceRecordModel{}), year)
}

var _ analytics.TrialBalanceRepository = (*GormTrialBalanceRepository)(nil)
