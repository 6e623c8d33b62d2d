package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormEntityRepository implements EntityRepository using GORM
type GormEntityRepository struct {
	db *gorm.DB
}

// NewGormEntityRepository creates a new GormEntityRepository
func NewGormEntityRepository(db *gorm.DB) *GormEntityRepository {
	return &GormEntityRepository{db: db}
}

// FindByID finds an entity by its ID
func (r *GormEntityRepository) FindByID(ctx context.Context, id uuid.UUID) (*analytics.Entity, error) {
	var model models.EntityModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every entity, headquarters first
func (r *GormEntityRepository) FindAll(ctx context.Context) ([]analytics.Entity, error) {
	var rows []models.EntityModel
	if err := r.db.WithContext(ctx).Order("is_hq DESC, name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	entities := make([]analytics.Entity, len(rows))
	for i := range rows {
		entities[i] = *rows[i].ToDomain()
	}
	return entities, nil
}

// Save creates or updates an entity
func (r *GormEntityRepository) Save(ctx context.Context, entity *analytics.Entity) error {
	var model models.EntityModel
	model.FromDomainEntity(entity)
	return r.db.WithContext(ctx).Save(&model).Error
}

var _ analytics.EntityRepository = (*GormEntityRepository)(nil)
