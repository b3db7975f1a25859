package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/pkg/utils"
)

type ChildService interface {
	Create(ctx context.Context, parentID uint, req models.ChildRequest) (*models.Child, error)
	List(ctx context.Context, parentID uint) ([]models.Child, error)
	Get(ctx context.Context, parentID, childID uint) (*models.Child, error)
	Update(ctx context.Context, parentID, childID uint, req models.ChildRequest) (*models.Child, error)
	Delete(ctx context.Context, parentID, childID uint) error
}

type ChildHandler struct {
	childService ChildService
	validator    *utils.Validator
}

func NewChildHandler(childService ChildService, validator *utils.Validator) *ChildHandler {
	return &ChildHandler{
		childService: childService,
		validator:    validator,
	}
}

func (h *ChildHandler) CreateChild(c *fiber.Ctx) error {
	var req models.ChildRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	child, err := h.childService.Create(c.UserContext(), userID(c), req)
	if err != nil {
		return err
	}

	return created(c, child, "Child created successfully")
}

func (h *ChildHandler) ListChildren(c *fiber.Ctx) error {
	children, err := h.childService.List(c.UserContext(), userID(c))
	if err != nil {
		return err
	}

	return ok(c, children, "Children retrieved successfully")
}

func (h *ChildHandler) GetChild(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	child, err := h.childService.Get(c.UserContext(), userID(c), id)
	if err != nil {
		return err
	}

	return ok(c, child, "Child retrieved successfully")
}

func (h *ChildHandler) UpdateChild(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.ChildRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	child, err := h.childService.Update(c.UserContext(), userID(c), id, req)
	if err != nil {
		return err
	}

	return ok(c, child, "Child updated successfully")
}

func (h *ChildHandler) DeleteChild(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.childService.Delete(c.UserContext(), userID(c), id); err != nil {
		return err
	}

	return ok(c, nil, "Child deleted successfully")
}
