package models

import "time"

type Video struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CoachID     uint      `json:"coach_id" gorm:"not null;index"`
	CourseID    *uint     `json:"course_id,omitempty" gorm:"index"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	StorageKey  string    `json:"-" gorm:"not null"`
	URL         string    `json:"url" gorm:"not null"`
	MimeType    string    `json:"mime_type" gorm:"not null"`
	Size        int64     `json:"size" gorm:"not null"`
	IsPublic    bool      `json:"is_public" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UploadVideoRequest struct {
	Title       string `form:"title" validate:"required,max=200"`
	Description string `form:"description" validate:"max=5000"`
	CourseID    uint   `form:"course_id"`
	IsPublic    bool   `form:"is_public"`
	MimeType    string `validate:"required,supported_video"`
}
