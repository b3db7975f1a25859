package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/pkg/utils"
)

type PackageService interface {
	GetAllPackages(ctx context.Context, includeInactive bool) ([]models.CreditPackage, error)
	GetPackageByID(ctx context.Context, id uint) (*models.CreditPackage, error)
	Create(ctx context.Context, req models.CreditPackageRequest) (*models.CreditPackage, error)
	Update(ctx context.Context, id uint, req models.CreditPackageRequest) (*models.CreditPackage, error)
	Deactivate(ctx context.Context, id uint) (*models.CreditPackage, error)
}

type CreditPackageHandler struct {
	packageService PackageService
	validator      *utils.Validator
}

func NewCreditPackageHandler(packageService PackageService, validator *utils.Validator) *CreditPackageHandler {
	return &CreditPackageHandler{
		packageService: packageService,
		validator:      validator,
	}
}

func (h *CreditPackageHandler) GetAllPackages(c *fiber.Ctx) error {
	packages, err := h.packageService.GetAllPackages(c.UserContext(), false)
	if err != nil {
		return err
	}

	return ok(c, packages, "Packages retrieved successfully")
}

func (h *CreditPackageHandler) GetPackageByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	pkg, err := h.packageService.GetPackageByID(c.UserContext(), id)
	if err != nil {
		return err
	}

	return ok(c, pkg, "Package retrieved successfully")
}

// Admin

func (h *CreditPackageHandler) ListAllPackages(c *fiber.Ctx) error {
	packages, err := h.packageService.GetAllPackages(c.UserContext(), true)
	if err != nil {
		return err
	}

	return ok(c, packages, "Packages retrieved successfully")
}

func (h *CreditPackageHandler) CreatePackage(c *fiber.Ctx) error {
	var req models.CreditPackageRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	pkg, err := h.packageService.Create(c.UserContext(), req)
	if err != nil {
		return err
	}

	return created(c, pkg, "Package created successfully")
}

func (h *CreditPackageHandler) UpdatePackage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.CreditPackageRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	pkg, err := h.packageService.Update(c.UserContext(), id, req)
	if err != nil {
		return err
	}

	return ok(c, pkg, "Package updated successfully")
}

func (h *CreditPackageHandler) DeactivatePackage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	pkg, err := h.packageService.Deactivate(c.UserContext(), id)
	if err != nil {
		return err
	}

	return ok(c, pkg, "Package deactivated successfully")
}
