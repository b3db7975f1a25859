package repository

import (
	"context"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: tx}
}

func (r *EnrollmentRepository) CreateBatch(ctx context.Context, enrollments []models.CourseEnrollment) error {
	return r.db.WithContext(ctx).Omit("Course", "Child").Create(&enrollments).Error
}

func (r *EnrollmentRepository) GetByID(ctx context.Context, id uint) (*models.CourseEnrollment, error) {
	var enrollment models.CourseEnrollment
	err := r.db.WithContext(ctx).Preload("Course").Preload("Child").First(&enrollment, id).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ActiveChildIDs returns which of childIDs already hold an active seat in
// the course.
func (r *EnrollmentRepository) ActiveChildIDs(ctx context.Context, courseID uint, childIDs []uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.CourseEnrollment{}).
		Where("course_id = ? AND child_id IN ? AND status = ?", courseID, childIDs, models.EnrollmentStatusActive).
		Pluck("child_id", &ids).Error
	return ids, err
}

func (r *EnrollmentRepository) CountActiveForChild(ctx context.Context, childID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CourseEnrollment{}).
		Where("child_id = ? AND status = ?", childID, models.EnrollmentStatusActive).
		Count(&count).Error
	return count, err
}

// Cancel flips an active enrollment to CANCELLED. Returns false if it was
// not active anymore.
func (r *EnrollmentRepository) Cancel(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.CourseEnrollment{}).
		Where("id = ? AND status = ?", id, models.EnrollmentStatusActive).
		Updates(map[string]interface{}{
			"status":       models.EnrollmentStatusCancelled,
			"cancelled_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *EnrollmentRepository) ListByParent(ctx context.Context, parentID uint) ([]models.CourseEnrollment, error) {
	var enrollments []models.CourseEnrollment
	err := r.db.WithContext(ctx).Preload("Course").Preload("Child").
		Where("parent_id = ?", parentID).
		Order("created_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.CourseEnrollment, error) {
	var enrollments []models.CourseEnrollment
	err := r.db.WithContext(ctx).Preload("Child").
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}
