package repository

import (
	"context"

	"github.com/sefazor/coaching-backend/internal/models"
	"gorm.io/gorm"
)

type VideoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) Create(ctx context.Context, video *models.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

func (r *VideoRepository) GetByID(ctx context.Context, id uint) (*models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).First(&video, id).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *VideoRepository) ListByCoach(ctx context.Context, coachID uint) ([]models.Video, error) {
	var videos []models.Video
	err := r.db.WithContext(ctx).Where("coach_id = ?", coachID).Order("created_at DESC").Find(&videos).Error
	return videos, err
}

func (r *VideoRepository) ListByCourse(ctx context.Context, courseID uint, publicOnly bool) ([]models.Video, error) {
	query := r.db.WithContext(ctx).Where("course_id = ?", courseID)
	if publicOnly {
		query = query.Where("is_public = ?", true)
	}
	var videos []models.Video
	err := query.Order("created_at ASC").Find(&videos).Error
	return videos, err
}

func (r *VideoRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Video{}, id).Error
}
