package persistence

import (
	"context"
	"errors"

	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCategoryRepository implements CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindAll returns all categories in display order
func (r *GormCategoryRepository) FindAll(ctx context.Context) ([]analytics.Category, error) {
	var rows []models.CategoryModel
	if err := r.db.WithContext(ctx).Order("sort_order ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	categories := make([]analytics.Category, len(rows))
	for i := range rows {
		categories[i] = *rows[i].ToDomain()
	}
	return categories, nil
}

// FindByKey finds a category by its normalized name key
func (r *GormCategoryRepository) FindByKey(ctx context.Context, key string) (*analytics.Category, error) {
	var model models.CategoryModel
	if err := r.db.WithContext(ctx).Where("name_key = ?", key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a category
func (r *GormCategoryRepository) Save(ctx context.Context, category *analytics.Category) error {
	var model models.CategoryModel
	model.FromDomainCategory(category)
	return r.db.WithContext(ctx).Save(&model).Error
}

var _ analytics.CategoryRepository = (*GormCategoryRepository)(nil)
