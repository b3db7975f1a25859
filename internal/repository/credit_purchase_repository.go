package repository

import (
	"context"

	"github.com/sefazor/coaching-backend/internal/models"
	"gorm.io/gorm"
)

type CreditPurchaseRepository struct {
	db *gorm.DB
}

func NewCreditPurchaseRepository(db *gorm.DB) *CreditPurchaseRepository {
	return &CreditPurchaseRepository{db: db}
}

func (r *CreditPurchaseRepository) WithTx(tx *gorm.DB) *CreditPurchaseRepository {
	return &CreditPurchaseRepository{db: tx}
}

func (r *CreditPurchaseRepository) Create(ctx context.Context, purchase *models.CreditPurchase) error {
	return r.db.WithContext(ctx).Omit("Package").Create(purchase).Error
}

func (r *CreditPurchaseRepository) GetByID(ctx context.Context, id uint) (*models.CreditPurchase, error) {
	var purchase models.CreditPurchase
	if err := r.db.WithContext(ctx).Preload("Package").First(&purchase, id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *CreditPurchaseRepository) SetPayment(ctx context.Context, id, paymentID uint) error {
	return r.db.WithContext(ctx).Model(&models.CreditPurchase{}).
		Where("id = ?", id).
		Update("payment_id", paymentID).Error
}

// UpdateStatusIfCurrent moves a purchase to `to` from any of `from` and
// reports whether this call made the change.
func (r *CreditPurchaseRepository) UpdateStatusIfCurrent(ctx context.Context, id uint, to models.PurchaseStatus, from ...models.PurchaseStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.CreditPurchase{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	return res.RowsAffected == 1, res.Error
}

func (r *CreditPurchaseRepository) ListByUser(ctx context.Context, userID uint) ([]models.CreditPurchase, error) {
	var purchases []models.CreditPurchase
	err := r.db.WithContext(ctx).Preload("Package").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&purchases).Error
	return purchases, err
}
