package service

import (
	"context"
	"strings"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
)

type PackageService struct {
	packageRepo *repository.CreditPackageRepository
}

func NewPackageService(packageRepo *repository.CreditPackageRepository) *PackageService {
	return &PackageService{
		packageRepo: packageRepo,
	}
}

func (s *PackageService) GetAllPackages(ctx context.Context, includeInactive bool) ([]models.CreditPackage, error) {
	packages, err := s.packageRepo.List(ctx, includeInactive)
	if err != nil {
		return nil, dbError(err)
	}
	return packages, nil
}

func (s *PackageService) GetPackageByID(ctx context.Context, id uint) (*models.CreditPackage, error) {
	pkg, err := s.packageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Package not found")
	}
	return pkg, nil
}

func validatePackage(req models.CreditPackageRequest) error {
	if !req.Credits.IsPositive() {
		return BadRequest("Credits must be greater than zero")
	}
	if req.BonusCredits.IsNegative() {
		return BadRequest("Bonus credits cannot be negative")
	}
	if !req.Credits.Equal(req.Credits.Round(2)) || !req.BonusCredits.Equal(req.BonusCredits.Round(2)) {
		return BadRequest("Credits support at most two decimal places")
	}
	return nil
}

func (s *PackageService) Create(ctx context.Context, req models.CreditPackageRequest) (*models.CreditPackage, error) {
	if err := validatePackage(req); err != nil {
		return nil, err
	}
	pkg := &models.CreditPackage{IsActive: true}
	applyPackage(pkg, req)
	if err := s.packageRepo.Create(ctx, pkg); err != nil {
		return nil, dbError(err)
	}
	return pkg, nil
}

func (s *PackageService) Update(ctx context.Context, id uint, req models.CreditPackageRequest) (*models.CreditPackage, error) {
	if err := validatePackage(req); err != nil {
		return nil, err
	}
	pkg, err := s.GetPackageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyPackage(pkg, req)
	if err := s.packageRepo.Update(ctx, pkg); err != nil {
		return nil, dbError(err)
	}
	return pkg, nil
}

// Deactivate hides a package from the shop. Existing purchases keep
// pointing at it.
func (s *PackageService) Deactivate(ctx context.Context, id uint) (*models.CreditPackage, error) {
	if err := s.packageRepo.SetActive(ctx, id, false); err != nil {
		return nil, notFoundOr(err, "Package not found")
	}
	return s.GetPackageByID(ctx, id)
}

func applyPackage(pkg *models.CreditPackage, req models.CreditPackageRequest) {
	pkg.Name = strings.TrimSpace(req.Name)
	pkg.Description = req.Description
	pkg.Credits = req.Credits
	pkg.BonusCredits = req.BonusCredits
	pkg.Price = req.Price
	pkg.Currency = strings.ToLower(req.Currency)
	if pkg.Currency == "" {
		pkg.Currency = "usd"
	}
	if req.IsActive != nil {
		pkg.IsActive = *req.IsActive
	}
}
