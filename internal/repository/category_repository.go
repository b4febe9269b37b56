package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"event-planner/internal/model"
)

// CategoryRepository manages task categories. Every query is scoped to the
// owning user.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// GetOrCreate returns the user's category with the given name, creating it if
// needed. Names match case-insensitively.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, userID, name string) (*model.Category, error) {
	if name == "" {
		return nil, nil
	}

	var category model.Category
	db := r.db.WithContext(ctx)
	err := db.Where("created_by = ? AND LOWER(name) = LOWER(?)", userID, name).First(&category).Error
	switch {
	case err == nil:
		return &category, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		category = model.Category{CreatedBy: userID, Name: name}
		if err := db.Create(&category).Error; err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}
		return &category, nil
	default:
		return nil, fmt.Errorf("find category: %w", err)
	}
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID string) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("created_by = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, userID, categoryID string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("created_by = ? AND id = ?", userID, categoryID).First(&category).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

// UpdateFields applies a partial update to the user's category.
func (r *CategoryRepository) UpdateFields(ctx context.Context, userID, categoryID string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("created_by = ? AND id = ?", userID, categoryID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, userID, categoryID string) error {
	res := r.db.WithContext(ctx).Where("created_by = ? AND id = ?", userID, categoryID).Delete(&model.Category{})
	if res.Error != nil {
		return fmt.Errorf("delete category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
