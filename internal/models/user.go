package models

import (
	"time"
)

type Role string

const (
	RoleParent  Role = "PARENT"
	RoleStudent Role = "STUDENT"
	RoleCoach   Role = "COACH"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleParent, RoleStudent, RoleCoach, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	FullName   string    `json:"full_name" gorm:"not null"`
	Email      string    `json:"email" gorm:"uniqueIndex;not null"`
	Password   string    `json:"-" gorm:"not null"`
	Role       Role      `json:"role" gorm:"type:varchar(16);not null;default:'PARENT';index"`
	Phone      string    `json:"phone"`
	IsVerified bool      `json:"is_verified" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

type UpdateRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=PARENT STUDENT COACH ADMIN"`
}
