package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/middleware"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/service"
	"github.com/sefazor/coaching-backend/pkg/utils"
	"go.uber.org/zap"
)

// ErrorHandler renders every error returned from a handler as the standard
// envelope. Only AppError messages reach the client.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *service.AppError
		if errors.As(err, &appErr) {
			if appErr.Status >= fiber.StatusInternalServerError {
				logger.Error("request failed",
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.Int("status", appErr.Status),
					zap.Error(err))
			}
			return c.Status(appErr.Status).JSON(models.ErrorResponse(appErr.Status, appErr.Message))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(models.ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		logger.Error("unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
	}
}

func ok(c *fiber.Ctx, data interface{}, message string) error {
	return c.JSON(models.SuccessResponse(data, message))
}

func created(c *fiber.Ctx, data interface{}, message string) error {
	return c.Status(fiber.StatusCreated).JSON(models.CreatedResponse(data, message))
}

// parseBody decodes the request body into req and validates it.
func parseBody(c *fiber.Ctx, v *utils.Validator, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return service.BadRequest("Invalid request body")
	}
	if err := v.Struct(req); err != nil {
		return service.BadRequest(utils.Message(err))
	}
	return nil
}

func userID(c *fiber.Ctx) uint {
	id, _ := c.Locals(middleware.LocalUserID).(uint)
	return id
}

func actorFrom(c *fiber.Ctx) service.Actor {
	role, _ := c.Locals(middleware.LocalRole).(models.Role)
	return service.Actor{ID: userID(c), Role: role}
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, service.BadRequest("Invalid " + name)
	}
	return uint(id), nil
}

func pageParams(c *fiber.Ctx) (int, int) {
	return c.QueryInt("page", 1), c.QueryInt("limit", 0)
}

// queryTime parses an RFC 3339 query parameter.
func queryTime(c *fiber.Ctx, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, service.BadRequest(name + " is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, service.BadRequest(name + " must be an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}
