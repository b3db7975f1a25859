package repository

import (
	"context"

	"github.com/sefazor/coaching-backend/internal/models"
	"gorm.io/gorm"
)

type CoachProfileRepository struct {
	db *gorm.DB
}

func NewCoachProfileRepository(db *gorm.DB) *CoachProfileRepository {
	return &CoachProfileRepository{db: db}
}

func (r *CoachProfileRepository) Create(ctx context.Context, profile *models.CoachProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *CoachProfileRepository) GetByUserID(ctx context.Context, userID uint) (*models.CoachProfile, error) {
	var profile models.CoachProfile
	err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *CoachProfileRepository) Update(ctx context.Context, profile *models.CoachProfile) error {
	return r.db.WithContext(ctx).Omit("User").Save(profile).Error
}

func (r *CoachProfileRepository) ListByStatus(ctx context.Context, status models.CoachStatus, page, limit int) ([]models.CoachProfile, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CoachProfile{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []models.CoachProfile
	err := query.Preload("User").
		Scopes(Paginate(page, limit)).
		Order("created_at ASC").
		Find(&profiles).Error
	return profiles, total, err
}
