package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/pkg/utils"
)

type UserService interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, req models.UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, userID uint, req models.ChangePasswordRequest) error
}

type UserHandler struct {
	userService UserService
	validator   *utils.Validator
}

func NewUserHandler(userService UserService, validator *utils.Validator) *UserHandler {
	return &UserHandler{
		userService: userService,
		validator:   validator,
	}
}

func (h *UserHandler) GetMyProfile(c *fiber.Ctx) error {
	user, err := h.userService.GetUserByID(c.UserContext(), userID(c))
	if err != nil {
		return err
	}

	return ok(c, user, "Profile retrieved successfully")
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	var req models.UpdateProfileRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	user, err := h.userService.UpdateProfile(c.UserContext(), userID(c), req)
	if err != nil {
		return err
	}

	return ok(c, user, "Profile updated successfully")
}

func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	var req models.ChangePasswordRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	if err := h.userService.ChangePassword(c.UserContext(), userID(c), req); err != nil {
		return err
	}

	return ok(c, nil, "Password changed successfully")
}
