package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/audit"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository implements audit.Repository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Save appends an entry
func (r *GormAuditRepository) Save(ctx context.Context, e *audit.Entry) error {
	var model models.AuditLogModel
	if err := model.FromDomainEntry(e); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByObject returns the history of one object, oldest first
func (r *GormAuditRepository) FindByObject(ctx context.Context, model string, objectID uuid.UUID) ([]audit.Entry, error) {
	var rows []models.AuditLogModel
	if err := r.db.WithContext(ctx).
		Where("model_name = ? AND object_id = ?", model, objectID).
		Order("logged_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]audit.Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ audit.Repository = (*GormAuditRepository)(nil)
