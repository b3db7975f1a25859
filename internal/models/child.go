package models

import "time"

type Child struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	ParentID    uint       `json:"parent_id" gorm:"not null;index"`
	FullName    string     `json:"full_name" gorm:"not null"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ChildRequest struct {
	FullName    string     `json:"full_name" validate:"required,max=120"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Notes       string     `json:"notes" validate:"max=2000"`
}
