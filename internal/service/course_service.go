package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/sefazor/coaching-backend/pkg/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CourseService struct {
	courses *repository.CourseRepository
	coaches *repository.CoachProfileRepository
	images  storage.ImageStore
	logger  *zap.Logger
}

func NewCourseService(courses *repository.CourseRepository, coaches *repository.CoachProfileRepository, images storage.ImageStore, logger *zap.Logger) *CourseService {
	return &CourseService{
		courses: courses,
		coaches: coaches,
		images:  images,
		logger:  logger.Named("course"),
	}
}

func (s *CourseService) requireApprovedCoach(ctx context.Context, coachID uint) error {
	profile, err := s.coaches.GetByUserID(ctx, coachID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCoachNotApproved
	}
	if err != nil {
		return dbError(err)
	}
	if !profile.IsApproved() {
		return ErrCoachNotApproved
	}
	return nil
}

func validateCourse(req models.CourseRequest) error {
	if req.CreditCostPerChild.IsNegative() {
		return BadRequest("Credit cost cannot be negative")
	}
	if !req.CreditCostPerChild.Equal(req.CreditCostPerChild.Round(2)) {
		return BadRequest("Credit cost supports at most two decimal places")
	}
	if req.StartDate != nil && req.EndDate != nil && !req.EndDate.After(*req.StartDate) {
		return BadRequest("End date must be after start date")
	}
	return nil
}

func applyCourse(course *models.Course, req models.CourseRequest) {
	course.Title = strings.TrimSpace(req.Title)
	course.Description = req.Description
	course.Category = strings.TrimSpace(req.Category)
	course.CreditCostPerChild = req.CreditCostPerChild
	course.Price = req.Price
	course.Currency = strings.ToLower(req.Currency)
	if course.Currency == "" {
		course.Currency = "usd"
	}
	course.Capacity = req.Capacity
	course.StartDate = req.StartDate
	course.EndDate = req.EndDate
}

func (s *CourseService) Create(ctx context.Context, coachID uint, req models.CourseRequest) (*models.Course, error) {
	if err := s.requireApprovedCoach(ctx, coachID); err != nil {
		return nil, err
	}
	if err := validateCourse(req); err != nil {
		return nil, err
	}

	course := &models.Course{CoachID: coachID}
	applyCourse(course, req)
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, dbError(err)
	}
	return course, nil
}

func (s *CourseService) Update(ctx context.Context, actor Actor, courseID uint, req models.CourseRequest) (*models.Course, error) {
	course, err := s.owned(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	if err := validateCourse(req); err != nil {
		return nil, err
	}

	applyCourse(course, req)
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, dbError(err)
	}
	return course, nil
}

// Delete removes a course without active enrollments along with its
// thumbnail.
func (s *CourseService) Delete(ctx context.Context, actor Actor, courseID uint) error {
	course, err := s.owned(ctx, actor, courseID)
	if err != nil {
		return err
	}
	active, err := s.courses.CountActiveEnrollments(ctx, courseID)
	if err != nil {
		return dbError(err)
	}
	if active > 0 {
		return Conflict("Course has active enrollments")
	}
	if err := s.courses.Delete(ctx, courseID); err != nil {
		return dbError(err)
	}
	if course.ThumbnailID != "" {
		if err := s.images.Delete(ctx, course.ThumbnailID); err != nil {
			s.logger.Warn("failed to delete course thumbnail", zap.String("image_id", course.ThumbnailID), zap.Error(err))
		}
	}
	return nil
}

func (s *CourseService) SetPublished(ctx context.Context, actor Actor, courseID uint, published bool) (*models.Course, error) {
	course, err := s.owned(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	if published {
		if err := s.requireApprovedCoach(ctx, course.CoachID); err != nil {
			return nil, err
		}
	}
	course.IsPublished = published
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, dbError(err)
	}
	return course, nil
}

// GetCourse hides drafts from everyone but their coach and admins.
func (s *CourseService) GetCourse(ctx context.Context, viewer Actor, courseID uint) (*models.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOr(err, "Course not found")
	}
	if !course.IsPublished && !viewer.IsAdmin() && viewer.ID != course.CoachID {
		return nil, NotFound("Course not found")
	}
	return course, nil
}

func (s *CourseService) ListCatalogue(ctx context.Context, filter models.CourseFilter) (*models.Page, error) {
	return s.list(ctx, filter, true)
}

func (s *CourseService) ListMine(ctx context.Context, coachID uint, filter models.CourseFilter) (*models.Page, error) {
	filter.CoachID = coachID
	return s.list(ctx, filter, false)
}

func (s *CourseService) list(ctx context.Context, filter models.CourseFilter, publishedOnly bool) (*models.Page, error) {
	courses, total, err := s.courses.List(ctx, filter, publishedOnly)
	if err != nil {
		return nil, dbError(err)
	}
	page, limit := repository.NormalizePage(filter.Page, filter.Limit)
	return &models.Page{Items: courses, Total: total, Page: page, Limit: limit}, nil
}

// UploadThumbnail stores the image on Cloudflare Images and replaces any
// previous thumbnail.
func (s *CourseService) UploadThumbnail(ctx context.Context, actor Actor, courseID uint, r io.Reader, filename string) (*models.Course, error) {
	course, err := s.owned(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	imageID, variants, err := s.images.Upload(ctx, r, name, map[string]string{
		"course_id": strconv.FormatUint(uint64(course.ID), 10),
		"coach_id":  strconv.FormatUint(uint64(course.CoachID), 10),
	})
	if err != nil {
		return nil, &AppError{Status: 502, Message: "Failed to upload image", Err: err}
	}

	previous := course.ThumbnailID
	course.ThumbnailID = imageID
	course.ThumbnailURL = s.images.GetThumbnailURL(imageID)
	if course.ThumbnailURL == "" && len(variants) > 0 {
		course.ThumbnailURL = variants[0]
	}
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, dbError(err)
	}

	if previous != "" {
		if err := s.images.Delete(ctx, previous); err != nil {
			s.logger.Warn("failed to delete old thumbnail", zap.String("image_id", previous), zap.Error(err))
		}
	}
	return course, nil
}

func (s *CourseService) owned(ctx context.Context, actor Actor, courseID uint) (*models.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOr(err, "Course not found")
	}
	if course.CoachID != actor.ID && !actor.IsAdmin() {
		return nil, Forbidden("You can only manage your own courses")
	}
	return course, nil
}
