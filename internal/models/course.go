package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Course struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	CoachID            uint            `json:"coach_id" gorm:"not null;index"`
	Title              string          `json:"title" gorm:"not null"`
	Description        string          `json:"description" gorm:"type:text"`
	Category           string          `json:"category" gorm:"index"`
	CreditCostPerChild decimal.Decimal `json:"credit_cost_per_child" gorm:"type:numeric(14,2);not null;default:0"`
	Price              int64           `json:"price" gorm:"not null;default:0"` // minor units
	Currency           string          `json:"currency" gorm:"type:varchar(3);not null;default:'usd'"`
	Capacity           int             `json:"capacity" gorm:"not null;default:0"` // 0 = unlimited
	StartDate          *time.Time      `json:"start_date,omitempty"`
	EndDate            *time.Time      `json:"end_date,omitempty"`
	IsPublished        bool            `json:"is_published" gorm:"default:false;index"`
	ThumbnailID        string          `json:"-"`
	ThumbnailURL       string          `json:"thumbnail_url"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type CourseRequest struct {
	Title              string          `json:"title" validate:"required,max=200"`
	Description        string          `json:"description" validate:"max=10000"`
	Category           string          `json:"category" validate:"max=100"`
	CreditCostPerChild decimal.Decimal `json:"credit_cost_per_child"`
	Price              int64           `json:"price" validate:"gte=0"`
	Currency           string          `json:"currency" validate:"omitempty,len=3"`
	Capacity           int             `json:"capacity" validate:"gte=0"`
	StartDate          *time.Time      `json:"start_date"`
	EndDate            *time.Time      `json:"end_date"`
}

type CourseFilter struct {
	Search   string
	Category string
	CoachID  uint
	Page     int
	Limit    int
}
