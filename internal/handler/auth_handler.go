package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/pkg/utils"
)

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest, remoteIP string) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error
	Me(ctx context.Context, userID uint) (*models.User, error)
}

type AuthHandler struct {
	authService AuthService
	validator   *utils.Validator
}

func NewAuthHandler(authService AuthService, validator *utils.Validator) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	resp, err := h.authService.Register(c.UserContext(), req, c.IP())
	if err != nil {
		return err
	}

	return created(c, resp, "User registered successfully")
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	resp, err := h.authService.Login(c.UserContext(), req)
	if err != nil {
		return err
	}

	return ok(c, resp, "Login successful")
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req models.VerifyEmailRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	if err := h.authService.VerifyEmail(c.UserContext(), req.Token); err != nil {
		return err
	}

	return ok(c, nil, "Email verified successfully")
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var req models.ResendVerificationRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	if err := h.authService.ResendVerification(c.UserContext(), req.Email); err != nil {
		return err
	}

	return ok(c, nil, "If the account exists, a verification email has been sent")
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req models.ForgotPasswordRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	if err := h.authService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}

	return ok(c, nil, "If the account exists, a password reset email has been sent")
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req models.ResetPasswordRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(c.UserContext(), req); err != nil {
		return err
	}

	return ok(c, nil, "Password reset successful")
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.authService.Me(c.UserContext(), userID(c))
	if err != nil {
		return err
	}

	return ok(c, user, "User retrieved successfully")
}
