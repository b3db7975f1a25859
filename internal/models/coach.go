package models

import "time"

type CoachStatus string

const (
	CoachStatusPending  CoachStatus = "PENDING"
	CoachStatusApproved CoachStatus = "APPROVED"
	CoachStatusRejected CoachStatus = "REJECTED"
)

type CoachProfile struct {
	ID              uint        `json:"id" gorm:"primaryKey"`
	UserID          uint        `json:"user_id" gorm:"uniqueIndex;not null"`
	User            *User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Bio             string      `json:"bio" gorm:"type:text"`
	Specialties     string      `json:"specialties"`
	HourlyRate      int64       `json:"hourly_rate" gorm:"not null;default:0"` // minor units
	Currency        string      `json:"currency" gorm:"type:varchar(3);not null;default:'usd'"`
	Status          CoachStatus `json:"status" gorm:"type:varchar(16);not null;default:'PENDING';index"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	ReviewedBy      *uint       `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time  `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (p *CoachProfile) IsApproved() bool {
	return p != nil && p.Status == CoachStatusApproved
}

type CoachProfileRequest struct {
	Bio         string `json:"bio" validate:"max=4000"`
	Specialties string `json:"specialties" validate:"max=500"`
	HourlyRate  int64  `json:"hourly_rate" validate:"gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
}

type RejectCoachRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}
