package models

import "time"

type PaymentType string

const (
	PaymentTypeSession        PaymentType = "SESSION"
	PaymentTypeCreditPurchase PaymentType = "CREDIT_PURCHASE"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

type Payment struct {
	ID                    uint          `json:"id" gorm:"primaryKey"`
	UserID                uint          `json:"user_id" gorm:"not null;index"`
	Type                  PaymentType   `json:"type" gorm:"type:varchar(24);not null"`
	SessionID             *uint         `json:"session_id,omitempty" gorm:"index"`
	PurchaseID            *uint         `json:"purchase_id,omitempty" gorm:"index"`
	Amount                int64         `json:"amount" gorm:"not null"` // minor units
	Currency              string        `json:"currency" gorm:"type:varchar(3);not null"`
	Status                PaymentStatus `json:"status" gorm:"type:varchar(16);not null;default:'PENDING';index"`
	StripePaymentIntentID string        `json:"stripe_payment_intent_id" gorm:"uniqueIndex;not null"`
	StripeRefundID        string        `json:"stripe_refund_id,omitempty"`
	FailureReason         string        `json:"failure_reason,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

type PaymentIntentResponse struct {
	PaymentID       uint   `json:"payment_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}
