package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/pkg/utils"
)

type CoachService interface {
	UpsertProfile(ctx context.Context, userID uint, req models.CoachProfileRequest) (*models.CoachProfile, error)
	GetProfile(ctx context.Context, userID uint) (*models.CoachProfile, error)
	GetPublicCoach(ctx context.Context, coachID uint) (*models.CoachProfile, error)
	ListApproved(ctx context.Context, page, limit int) (*models.Page, error)
}

// AvailabilityService is the read side of the session scheduler.
type AvailabilityService interface {
	CheckAvailability(ctx context.Context, coachID uint, start, end time.Time, excludeID uint) (*models.AvailabilityResult, error)
	BusySlots(ctx context.Context, coachID uint, from, to time.Time) ([]models.TimeSlot, error)
}

type CoachHandler struct {
	coachService CoachService
	availability AvailabilityService
	validator    *utils.Validator
}

func NewCoachHandler(coachService CoachService, availability AvailabilityService, validator *utils.Validator) *CoachHandler {
	return &CoachHandler{
		coachService: coachService,
		availability: availability,
		validator:    validator,
	}
}

func (h *CoachHandler) ListCoaches(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	coaches, err := h.coachService.ListApproved(c.UserContext(), page, limit)
	if err != nil {
		return err
	}

	return ok(c, coaches, "Coaches retrieved successfully")
}

func (h *CoachHandler) GetCoach(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	coach, err := h.coachService.GetPublicCoach(c.UserContext(), id)
	if err != nil {
		return err
	}

	return ok(c, coach, "Coach retrieved successfully")
}

// Availability answers a single start/end query, or lists the busy slots
// between from and to.
func (h *CoachHandler) Availability(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.coachService.GetPublicCoach(c.UserContext(), id); err != nil {
		return err
	}

	if c.Query("from") != "" || c.Query("to") != "" {
		from, err := queryTime(c, "from")
		if err != nil {
			return err
		}
		to, err := queryTime(c, "to")
		if err != nil {
			return err
		}
		slots, err := h.availability.BusySlots(c.UserContext(), id, from, to)
		if err != nil {
			return err
		}
		return ok(c, slots, "Busy slots retrieved successfully")
	}

	start, err := queryTime(c, "start")
	if err != nil {
		return err
	}
	end, err := queryTime(c, "end")
	if err != nil {
		return err
	}
	result, err := h.availability.CheckAvailability(c.UserContext(), id, start, end, 0)
	if err != nil {
		return err
	}

	return ok(c, result, "Availability checked successfully")
}

func (h *CoachHandler) GetMyProfile(c *fiber.Ctx) error {
	profile, err := h.coachService.GetProfile(c.UserContext(), userID(c))
	if err != nil {
		return err
	}

	return ok(c, profile, "Coach profile retrieved successfully")
}

func (h *CoachHandler) UpsertProfile(c *fiber.Ctx) error {
	var req models.CoachProfileRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	profile, err := h.coachService.UpsertProfile(c.UserContext(), userID(c), req)
	if err != nil {
		return err
	}

	return ok(c, profile, "Coach profile saved successfully")
}
