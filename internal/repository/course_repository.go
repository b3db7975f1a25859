package repository

import (
	"context"
	"strings"

	"github.com/sefazor/coaching-backend/internal/models"
	"gorm.io/gorm"
)

type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{db: tx}
}

func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// LockByID reads the course and holds its row lock until the transaction
// ends. Enrollments into one course queue on it.
func (r *CourseRepository) LockByID(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	if err := ForUpdate(r.db.WithContext(ctx)).First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

func (r *CourseRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Course{}, id).Error
}

// List returns a page of courses. publishedOnly hides drafts from the
// public catalogue.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter, publishedOnly bool) ([]models.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if filter.CoachID != 0 {
		query = query.Where("coach_id = ?", filter.CoachID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []models.Course
	err := query.Scopes(Paginate(filter.Page, filter.Limit)).
		Order("created_at DESC").
		Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) CountActiveEnrollments(ctx context.Context, courseID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CourseEnrollment{}).
		Where("course_id = ? AND status = ?", courseID, models.EnrollmentStatusActive).
		Count(&count).Error
	return count, err
}
