package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// CourseEnrollment is the booking record created for each child enrolled
// in a course.
type CourseEnrollment struct {
	ID                  uint             `json:"id" gorm:"primaryKey"`
	CourseID            uint             `json:"course_id" gorm:"not null;index"`
	Course              *Course          `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	ChildID             uint             `json:"child_id" gorm:"not null;index"`
	Child               *Child           `json:"child,omitempty" gorm:"foreignKey:ChildID"`
	ParentID            uint             `json:"parent_id" gorm:"not null;index"`
	CreditsPaid         decimal.Decimal  `json:"credits_paid" gorm:"type:numeric(14,2);not null"`
	Status              EnrollmentStatus `json:"status" gorm:"type:varchar(16);not null;default:'ACTIVE'"`
	CreditTransactionID *uint            `json:"credit_transaction_id,omitempty"`
	CancelledAt         *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

type EnrollWithCreditsRequest struct {
	CourseID uint   `json:"course_id" validate:"required"`
	ChildIDs []uint `json:"child_ids" validate:"required,min=1,dive,required"`
}

type EnrollmentResult struct {
	Enrollments []CourseEnrollment `json:"enrollments"`
	Transaction CreditTransaction  `json:"transaction"`
	Balance     CreditBalance      `json:"balance"`
}
