package repository

import (
	"context"

	"github.com/sefazor/coaching-backend/internal/models"
	"gorm.io/gorm"
)

// CreditPackageRepository stores the packages sold in the credit shop.
type CreditPackageRepository struct {
	db *gorm.DB
}

func NewCreditPackageRepository(db *gorm.DB) *CreditPackageRepository {
	return &CreditPackageRepository{db: db}
}

func (r *CreditPackageRepository) GetByID(ctx context.Context, id uint) (*models.CreditPackage, error) {
	var pkg models.CreditPackage
	if err := r.db.WithContext(ctx).First(&pkg, id).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

// GetActiveByID returns gorm.ErrRecordNotFound for deactivated packages so
// they cannot be bought.
func (r *CreditPackageRepository) GetActiveByID(ctx context.Context, id uint) (*models.CreditPackage, error) {
	var pkg models.CreditPackage
	err := r.db.WithContext(ctx).Where("is_active = ?", true).First(&pkg, id).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// List returns packages cheapest first within each currency. The shop only
// sees active ones.
func (r *CreditPackageRepository) List(ctx context.Context, includeInactive bool) ([]models.CreditPackage, error) {
	var packages []models.CreditPackage
	query := r.db.WithContext(ctx)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("currency ASC").Order("price ASC").Order("id ASC").Find(&packages).Error
	return packages, err
}

// Create inserts pkg. is_active has a column default of true, so an
// inactive package gets a follow-up update in the same transaction.
func (r *CreditPackageRepository) Create(ctx context.Context, pkg *models.CreditPackage) error {
	active := pkg.IsActive
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pkg).Error; err != nil {
			return err
		}
		if active {
			return nil
		}
		pkg.IsActive = false
		return tx.Model(pkg).Update("is_active", false).Error
	})
}

func (r *CreditPackageRepository) Update(ctx context.Context, pkg *models.CreditPackage) error {
	return r.db.WithContext(ctx).Save(pkg).Error
}

func (r *CreditPackageRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.CreditPackage{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
