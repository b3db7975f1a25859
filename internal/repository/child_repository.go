package repository

import (
	"context"

	"github.com/sefazor/coaching-backend/internal/models"
	"gorm.io/gorm"
)

type ChildRepository struct {
	db *gorm.DB
}

func NewChildRepository(db *gorm.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

func (r *ChildRepository) WithTx(tx *gorm.DB) *ChildRepository {
	return &ChildRepository{db: tx}
}

func (r *ChildRepository) Create(ctx context.Context, child *models.Child) error {
	return r.db.WithContext(ctx).Create(child).Error
}

func (r *ChildRepository) GetByID(ctx context.Context, id uint) (*models.Child, error) {
	var child models.Child
	if err := r.db.WithContext(ctx).First(&child, id).Error; err != nil {
		return nil, err
	}
	return &child, nil
}

func (r *ChildRepository) ListByParent(ctx context.Context, parentID uint) ([]models.Child, error) {
	var children []models.Child
	err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).Order("created_at ASC").Find(&children).Error
	return children, err
}

// GetOwned returns the children among ids that belong to parentID.
func (r *ChildRepository) GetOwned(ctx context.Context, parentID uint, ids []uint) ([]models.Child, error) {
	var children []models.Child
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND id IN ?", parentID, ids).
		Order("id ASC").
		Find(&children).Error
	return children, err
}

func (r *ChildRepository) Update(ctx context.Context, child *models.Child) error {
	return r.db.WithContext(ctx).Save(child).Error
}

func (r *ChildRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Child{}, id).Error
}
