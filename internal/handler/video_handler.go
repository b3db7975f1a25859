package handler

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/service"
	"github.com/sefazor/coaching-backend/pkg/utils"
)

type VideoService interface {
	Upload(ctx context.Context, coachID uint, req models.UploadVideoRequest, r io.Reader, size int64) (*models.Video, error)
	ListMine(ctx context.Context, coachID uint) ([]models.Video, error)
	ListByCourse(ctx context.Context, viewer service.Actor, courseID uint) ([]models.Video, error)
	Delete(ctx context.Context, actor service.Actor, videoID uint) error
}

type VideoHandler struct {
	videoService VideoService
	validator    *utils.Validator
}

func NewVideoHandler(videoService VideoService, validator *utils.Validator) *VideoHandler {
	return &VideoHandler{
		videoService: videoService,
		validator:    validator,
	}
}

// UploadVideo takes a multipart form with a "video" file plus title,
// description, course_id and is_public fields.
func (h *VideoHandler) UploadVideo(c *fiber.Ctx) error {
	file, err := c.FormFile("video")
	if err != nil {
		return service.BadRequest("No file uploaded")
	}

	var req models.UploadVideoRequest
	if err := c.BodyParser(&req); err != nil {
		return service.BadRequest("Invalid form data")
	}
	req.MimeType = file.Header.Get("Content-Type")
	if err := h.validator.Struct(req); err != nil {
		return service.BadRequest(utils.Message(err))
	}

	src, err := file.Open()
	if err != nil {
		return service.Internal(err)
	}
	defer src.Close()

	video, err := h.videoService.Upload(c.UserContext(), userID(c), req, src, file.Size)
	if err != nil {
		return err
	}

	return created(c, video, "Video uploaded successfully")
}

func (h *VideoHandler) ListMyVideos(c *fiber.Ctx) error {
	videos, err := h.videoService.ListMine(c.UserContext(), userID(c))
	if err != nil {
		return err
	}

	return ok(c, videos, "Videos retrieved successfully")
}

func (h *VideoHandler) ListCourseVideos(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	videos, err := h.videoService.ListByCourse(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}

	return ok(c, videos, "Videos retrieved successfully")
}

func (h *VideoHandler) DeleteVideo(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.videoService.Delete(c.UserContext(), actorFrom(c), id); err != nil {
		return err
	}

	return ok(c, nil, "Video deleted successfully")
}
