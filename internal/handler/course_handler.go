package handler

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/service"
	"github.com/sefazor/coaching-backend/pkg/utils"
)

type CourseService interface {
	Create(ctx context.Context, coachID uint, req models.CourseRequest) (*models.Course, error)
	Update(ctx context.Context, actor service.Actor, courseID uint, req models.CourseRequest) (*models.Course, error)
	Delete(ctx context.Context, actor service.Actor, courseID uint) error
	SetPublished(ctx context.Context, actor service.Actor, courseID uint, published bool) (*models.Course, error)
	GetCourse(ctx context.Context, viewer service.Actor, courseID uint) (*models.Course, error)
	ListCatalogue(ctx context.Context, filter models.CourseFilter) (*models.Page, error)
	ListMine(ctx context.Context, coachID uint, filter models.CourseFilter) (*models.Page, error)
	UploadThumbnail(ctx context.Context, actor service.Actor, courseID uint, r io.Reader, filename string) (*models.Course, error)
}

type thumbnailUpload struct {
	MimeType string `validate:"required,supported_image"`
}

type CourseHandler struct {
	courseService CourseService
	validator     *utils.Validator
}

func NewCourseHandler(courseService CourseService, validator *utils.Validator) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
		validator:     validator,
	}
}

func courseFilter(c *fiber.Ctx) models.CourseFilter {
	page, limit := pageParams(c)
	return models.CourseFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		CoachID:  uint(c.QueryInt("coach_id", 0)),
		Page:     page,
		Limit:    limit,
	}
}

func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	courses, err := h.courseService.ListCatalogue(c.UserContext(), courseFilter(c))
	if err != nil {
		return err
	}

	return ok(c, courses, "Courses retrieved successfully")
}

func (h *CourseHandler) ListMyCourses(c *fiber.Ctx) error {
	courses, err := h.courseService.ListMine(c.UserContext(), userID(c), courseFilter(c))
	if err != nil {
		return err
	}

	return ok(c, courses, "Courses retrieved successfully")
}

func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	course, err := h.courseService.GetCourse(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}

	return ok(c, course, "Course retrieved successfully")
}

func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req models.CourseRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	course, err := h.courseService.Create(c.UserContext(), userID(c), req)
	if err != nil {
		return err
	}

	return created(c, course, "Course created successfully")
}

func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.CourseRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	course, err := h.courseService.Update(c.UserContext(), actorFrom(c), id, req)
	if err != nil {
		return err
	}

	return ok(c, course, "Course updated successfully")
}

func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.courseService.Delete(c.UserContext(), actorFrom(c), id); err != nil {
		return err
	}

	return ok(c, nil, "Course deleted successfully")
}

func (h *CourseHandler) PublishCourse(c *fiber.Ctx) error {
	return h.setPublished(c, true)
}

func (h *CourseHandler) UnpublishCourse(c *fiber.Ctx) error {
	return h.setPublished(c, false)
}

func (h *CourseHandler) setPublished(c *fiber.Ctx, published bool) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	course, err := h.courseService.SetPublished(c.UserContext(), actorFrom(c), id, published)
	if err != nil {
		return err
	}

	return ok(c, course, "Course updated successfully")
}

func (h *CourseHandler) UploadThumbnail(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	file, err := c.FormFile("thumbnail")
	if err != nil {
		return service.BadRequest("No file uploaded")
	}
	if err := h.validator.Struct(thumbnailUpload{MimeType: file.Header.Get("Content-Type")}); err != nil {
		return service.BadRequest("Unsupported image type")
	}

	src, err := file.Open()
	if err != nil {
		return service.Internal(err)
	}
	defer src.Close()

	course, err := h.courseService.UploadThumbnail(c.UserContext(), actorFrom(c), id, src, file.Filename)
	if err != nil {
		return err
	}

	return ok(c, course, "Thumbnail uploaded successfully")
}
