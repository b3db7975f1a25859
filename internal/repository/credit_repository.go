package repository

import (
	"context"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreditRepository reads and writes the credit ledger. Writes are only
// safe inside a transaction opened by the ledger service, use WithTx.
type CreditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) WithTx(tx *gorm.DB) *CreditRepository {
	return &CreditRepository{db: tx}
}

// EnsureBalance inserts a zero balance row for the user unless one exists.
// Concurrent callers race on the unique index and all but one do nothing.
func (r *CreditRepository) EnsureBalance(ctx context.Context, userID uint, now time.Time) error {
	balance := models.CreditBalance{
		UserID:      userID,
		Balance:     decimal.Zero,
		TotalEarned: decimal.Zero,
		TotalSpent:  decimal.Zero,
		LastUpdated: now,
		CreatedAt:   now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&balance).Error
}

func (r *CreditRepository) GetBalance(ctx context.Context, userID uint) (*models.CreditBalance, error) {
	var balance models.CreditBalance
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

// LockBalance reads the balance row and holds it until the transaction ends.
func (r *CreditRepository) LockBalance(ctx context.Context, userID uint) (*models.CreditBalance, error) {
	var balance models.CreditBalance
	err := ForUpdate(r.db.WithContext(ctx)).Where("user_id = ?", userID).First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *CreditRepository) SaveBalance(ctx context.Context, balance *models.CreditBalance) error {
	return r.db.WithContext(ctx).Model(&models.CreditBalance{}).
		Where("id = ?", balance.ID).
		Updates(map[string]interface{}{
			"balance":      balance.Balance,
			"total_earned": balance.TotalEarned,
			"total_spent":  balance.TotalSpent,
			"last_updated": balance.LastUpdated,
		}).Error
}

func (r *CreditRepository) InsertTransaction(ctx context.Context, txn *models.CreditTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *CreditRepository) ListTransactions(ctx context.Context, userID uint, filter models.CreditHistoryFilter) ([]models.CreditTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).Where("user_id = ?", userID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.CreditTransaction
	err := query.Scopes(Paginate(filter.Page, filter.Limit)).
		Order("created_at DESC, id DESC").
		Find(&txns).Error
	return txns, total, err
}

// AllTransactions returns the user's postings in insertion order.
func (r *CreditRepository) AllTransactions(ctx context.Context, userID uint) ([]models.CreditTransaction, error) {
	var txns []models.CreditTransaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&txns).Error
	return txns, err
}

type TypeTotal struct {
	Type  models.CreditTransactionType
	Total decimal.Decimal
	Count int64
}

// TotalsByType sums signed amounts per transaction type. userID 0 covers
// every account.
func (r *CreditRepository) TotalsByType(ctx context.Context, userID uint) ([]TypeTotal, error) {
	query := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).
		Select("type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Group("type")
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	var rows []TypeTotal
	err := query.Scan(&rows).Error
	return rows, err
}

type BalanceTotals struct {
	Accounts    int64
	Outstanding decimal.Decimal
	Earned      decimal.Decimal
	Spent       decimal.Decimal
}

func (r *CreditRepository) BalanceTotals(ctx context.Context) (*BalanceTotals, error) {
	var totals BalanceTotals
	err := r.db.WithContext(ctx).Model(&models.CreditBalance{}).
		Select("COUNT(*) AS accounts, COALESCE(SUM(balance), 0) AS outstanding, " +
			"COALESCE(SUM(total_earned), 0) AS earned, COALESCE(SUM(total_spent), 0) AS spent").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
