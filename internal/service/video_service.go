package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/sefazor/coaching-backend/pkg/storage"
	"go.uber.org/zap"
)

var videoExtensions = map[string]string{
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
	"video/x-msvideo": ".avi",
}

type VideoService struct {
	videos   *repository.VideoRepository
	courses  *repository.CourseRepository
	coaches  *repository.CoachProfileRepository
	storage  storage.ObjectStore
	maxBytes int64
	logger   *zap.Logger
}

func NewVideoService(
	videos *repository.VideoRepository,
	courses *repository.CourseRepository,
	coaches *repository.CoachProfileRepository,
	store storage.ObjectStore,
	maxSizeMB int,
	logger *zap.Logger,
) *VideoService {
	return &VideoService{
		videos:   videos,
		courses:  courses,
		coaches:  coaches,
		storage:  store,
		maxBytes: int64(maxSizeMB) << 20,
		logger:   logger.Named("video"),
	}
}

func (s *VideoService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload streams the file to object storage and records it. The object is
// removed again if the row cannot be written.
func (s *VideoService) Upload(ctx context.Context, coachID uint, req models.UploadVideoRequest, r io.Reader, size int64) (*models.Video, error) {
	ext, ok := videoExtensions[req.MimeType]
	if !ok {
		return nil, BadRequest("Unsupported video type")
	}
	if size <= 0 {
		return nil, BadRequest("Video file is empty")
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, BadRequest(fmt.Sprintf("Video exceeds the %d MB limit", s.maxBytes>>20))
	}

	profile, err := s.coaches.GetByUserID(ctx, coachID)
	if err != nil || !profile.IsApproved() {
		return nil, ErrCoachNotApproved
	}

	var courseID *uint
	if req.CourseID != 0 {
		course, err := s.courses.GetByID(ctx, req.CourseID)
		if err != nil {
			return nil, notFoundOr(err, "Course not found")
		}
		if course.CoachID != coachID {
			return nil, Forbidden("You can only attach videos to your own courses")
		}
		courseID = &course.ID
	}

	key := fmt.Sprintf("videos/%d/%s%s", coachID, uuid.New().String(), ext)
	if err := s.storage.Upload(ctx, key, r, req.MimeType); err != nil {
		return nil, &AppError{Status: 502, Message: "Failed to upload video", Err: err}
	}

	video := &models.Video{
		CoachID:     coachID,
		CourseID:    courseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		StorageKey:  key,
		URL:         s.storage.PublicURL(key),
		MimeType:    req.MimeType,
		Size:        size,
		IsPublic:    req.IsPublic,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to clean up video object", zap.String("key", key), zap.Error(delErr))
		}
		return nil, dbError(err)
	}

	s.logger.Info("video uploaded", zap.Uint("video_id", video.ID), zap.Uint("coach_id", coachID), zap.Int64("size", size))
	return video, nil
}

func (s *VideoService) ListMine(ctx context.Context, coachID uint) ([]models.Video, error) {
	videos, err := s.videos.ListByCoach(ctx, coachID)
	if err != nil {
		return nil, dbError(err)
	}
	return videos, nil
}

// ListByCourse shows private videos only to the course's coach and admins.
func (s *VideoService) ListByCourse(ctx context.Context, viewer Actor, courseID uint) ([]models.Video, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOr(err, "Course not found")
	}
	publicOnly := !viewer.IsAdmin() && viewer.ID != course.CoachID
	videos, err := s.videos.ListByCourse(ctx, courseID, publicOnly)
	if err != nil {
		return nil, dbError(err)
	}
	return videos, nil
}

func (s *VideoService) Delete(ctx context.Context, actor Actor, videoID uint) error {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return notFoundOr(err, "Video not found")
	}
	if video.CoachID != actor.ID && !actor.IsAdmin() {
		return Forbidden("You can only delete your own videos")
	}
	if err := s.videos.Delete(ctx, video.ID); err != nil {
		return dbError(err)
	}
	if err := s.storage.Delete(ctx, video.StorageKey); err != nil {
		s.logger.Warn("failed to delete video object", zap.String("key", video.StorageKey), zap.Error(err))
	}
	return nil
}
