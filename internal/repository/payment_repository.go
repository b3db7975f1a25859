package repository

import (
	"context"

	"github.com/sefazor/coaching-backend/internal/models"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("stripe_payment_intent_id = ?", intentID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// TransitionStatus moves a payment to `to` if it is currently in one of
// `from`. Only the caller that wins the compare-and-set sees true, which
// keeps webhook retries idempotent.
func (r *PaymentRepository) TransitionStatus(ctx context.Context, id uint, to models.PaymentStatus, extra map[string]interface{}, from ...models.PaymentStatus) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []models.Payment
	err := query.Scopes(Paginate(page, limit)).Order("created_at DESC").Find(&payments).Error
	return payments, total, err
}

func (r *PaymentRepository) GetLatestForSession(ctx context.Context, sessionID uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at DESC").First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
