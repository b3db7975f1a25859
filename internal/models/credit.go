package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CreditTransactionType string

const (
	CreditTypePurchase CreditTransactionType = "PURCHASE"
	CreditTypeEarned   CreditTransactionType = "EARNED"
	CreditTypeSpent    CreditTransactionType = "SPENT"
	CreditTypeRefund   CreditTransactionType = "REFUND"
	CreditTypeBonus    CreditTransactionType = "BONUS"
	CreditTypeExpired  CreditTransactionType = "EXPIRED"
	CreditTypeTransfer CreditTransactionType = "TRANSFER"
)

var CreditTransactionTypes = []CreditTransactionType{
	CreditTypePurchase,
	CreditTypeEarned,
	CreditTypeSpent,
	CreditTypeRefund,
	CreditTypeBonus,
	CreditTypeExpired,
	CreditTypeTransfer,
}

func (t CreditTransactionType) Valid() bool {
	for _, v := range CreditTransactionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsCredit reports whether postings of this type increase the balance.
// TRANSFER carries its direction in the amount sign and is neither.
func (t CreditTransactionType) IsCredit() bool {
	switch t {
	case CreditTypePurchase, CreditTypeEarned, CreditTypeBonus, CreditTypeRefund:
		return true
	}
	return false
}

func (t CreditTransactionType) IsDebit() bool {
	return t == CreditTypeSpent || t == CreditTypeExpired
}

type CreditBalance struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	UserID      uint            `json:"user_id" gorm:"uniqueIndex;not null"`
	Balance     decimal.Decimal `json:"balance" gorm:"type:numeric(14,2);not null;default:0"`
	TotalEarned decimal.Decimal `json:"total_earned" gorm:"type:numeric(14,2);not null;default:0"`
	TotalSpent  decimal.Decimal `json:"total_spent" gorm:"type:numeric(14,2);not null;default:0"`
	LastUpdated time.Time       `json:"last_updated"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CreditTransaction rows are append-only. Amount is signed: credits are
// positive, debits negative. Balance is the snapshot after this row.
type CreditTransaction struct {
	ID            uint                  `json:"id" gorm:"primaryKey"`
	UserID        uint                  `json:"user_id" gorm:"not null;index:idx_credit_tx_user_created,priority:1"`
	Type          CreditTransactionType `json:"type" gorm:"type:varchar(16);not null;index"`
	Amount        decimal.Decimal       `json:"amount" gorm:"type:numeric(14,2);not null"`
	Balance       decimal.Decimal       `json:"balance" gorm:"type:numeric(14,2);not null"`
	Description   string                `json:"description" gorm:"not null"`
	ReferenceID   *uint                 `json:"reference_id,omitempty"`
	ReferenceType string                `json:"reference_type,omitempty" gorm:"type:varchar(32)"`
	Metadata      datatypes.JSONMap     `json:"metadata,omitempty"`
	CreatedAt     time.Time             `json:"created_at" gorm:"index:idx_credit_tx_user_created,priority:2"`
}

// Reference types used on CreditTransaction.ReferenceType.
const (
	ReferenceEnrollment = "course_enrollment"
	ReferenceCourse     = "course"
	ReferencePurchase   = "credit_purchase"
	ReferenceUser       = "user"
	ReferenceAdmin      = "admin_adjustment"
)

type CreditPackage struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	Name         string          `json:"name" gorm:"uniqueIndex;not null"`
	Description  string          `json:"description"`
	Credits      decimal.Decimal `json:"credits" gorm:"type:numeric(14,2);not null"`
	BonusCredits decimal.Decimal `json:"bonus_credits" gorm:"type:numeric(14,2);not null;default:0"`
	Price        int64           `json:"price" gorm:"not null"` // minor units
	Currency     string          `json:"currency" gorm:"type:varchar(3);not null;default:'usd'"`
	IsActive     bool            `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "PENDING"
	PurchaseStatusCompleted PurchaseStatus = "COMPLETED"
	PurchaseStatusFailed    PurchaseStatus = "FAILED"
	PurchaseStatusRefunded  PurchaseStatus = "REFUNDED"
)

// Kullanıcının satın aldığı paketleri takip etmek için
type CreditPurchase struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	UserID       uint            `json:"user_id" gorm:"not null;index"`
	PackageID    uint            `json:"package_id" gorm:"not null"`
	Package      *CreditPackage  `json:"package,omitempty" gorm:"foreignKey:PackageID"`
	Credits      decimal.Decimal `json:"credits" gorm:"type:numeric(14,2);not null"`
	BonusCredits decimal.Decimal `json:"bonus_credits" gorm:"type:numeric(14,2);not null;default:0"`
	Amount       int64           `json:"amount" gorm:"not null"`
	Currency     string          `json:"currency" gorm:"type:varchar(3);not null"`
	PaymentID    *uint           `json:"payment_id,omitempty"`
	Status       PurchaseStatus  `json:"status" gorm:"type:varchar(16);not null;default:'PENDING'"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type CreditPackageRequest struct {
	Name         string          `json:"name" validate:"required,max=120"`
	Description  string          `json:"description" validate:"max=1000"`
	Credits      decimal.Decimal `json:"credits"`
	BonusCredits decimal.Decimal `json:"bonus_credits"`
	Price        int64           `json:"price" validate:"gt=0"`
	Currency     string          `json:"currency" validate:"omitempty,len=3"`
	IsActive     *bool           `json:"is_active"`
}

type PurchaseCreditsRequest struct {
	PackageID uint `json:"package_id" validate:"required"`
}

type AdjustCreditsRequest struct {
	Type        CreditTransactionType `json:"type" validate:"required,credit_type"`
	Amount      decimal.Decimal       `json:"amount"`
	Description string                `json:"description" validate:"required,max=500"`
}

type TransferCreditsRequest struct {
	ToUserID    uint            `json:"to_user_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
}

type CreditHistoryFilter struct {
	Type  CreditTransactionType
	Page  int
	Limit int
}

type CreditSummary struct {
	UserID           uint                                      `json:"user_id"`
	Balance          decimal.Decimal                           `json:"balance"`
	TotalEarned      decimal.Decimal                           `json:"total_earned"`
	TotalSpent       decimal.Decimal                           `json:"total_spent"`
	TotalsByType     map[CreditTransactionType]decimal.Decimal `json:"totals_by_type"`
	TransactionCount int64                                     `json:"transaction_count"`
	LastUpdated      time.Time                                 `json:"last_updated"`
}

type CreditStats struct {
	Accounts           int64                                     `json:"accounts"`
	OutstandingBalance decimal.Decimal                           `json:"outstanding_balance"`
	TotalEarned        decimal.Decimal                           `json:"total_earned"`
	TotalSpent         decimal.Decimal                           `json:"total_spent"`
	TotalsByType       map[CreditTransactionType]decimal.Decimal `json:"totals_by_type"`
}

type LedgerAudit struct {
	UserID           uint            `json:"user_id"`
	Balance          decimal.Decimal `json:"balance"`
	ReplayedBalance  decimal.Decimal `json:"replayed_balance"`
	LastSnapshot     decimal.Decimal `json:"last_snapshot"`
	TransactionCount int             `json:"transaction_count"`
	Consistent       bool            `json:"consistent"`
}
