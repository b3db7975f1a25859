package models

import "time"

type SessionStatus string

const (
	SessionStatusScheduled  SessionStatus = "SCHEDULED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
	SessionStatusNoShow     SessionStatus = "NO_SHOW"
)

// LiveSessionStatuses count toward coach conflict checks.
var LiveSessionStatuses = []SessionStatus{SessionStatusScheduled, SessionStatusInProgress}

type Session struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	CoachID      uint          `json:"coach_id" gorm:"not null;index:idx_sessions_coach_start,priority:1"`
	StudentID    uint          `json:"student_id" gorm:"not null;index"`
	CourseID     uint          `json:"course_id" gorm:"not null;index"`
	Course       *Course       `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	StartTime    time.Time     `json:"start_time" gorm:"not null;index:idx_sessions_coach_start,priority:2"`
	EndTime      time.Time     `json:"end_time" gorm:"not null"`
	Status       SessionStatus `json:"status" gorm:"type:varchar(16);not null;default:'SCHEDULED';index"`
	MeetingURL   string        `json:"meeting_url,omitempty"`
	Notes        string        `json:"notes,omitempty" gorm:"type:text"`
	RecordingURL string        `json:"recording_url,omitempty"`
	CheckInCode  string        `json:"-" gorm:"type:varchar(32);index"`
	CancelReason string        `json:"cancel_reason,omitempty"`
	CancelledBy  *uint         `json:"cancelled_by,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (s *Session) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

type BookSessionRequest struct {
	CoachID    uint      `json:"coach_id" validate:"required"`
	CourseID   uint      `json:"course_id" validate:"required"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" validate:"required"`
	MeetingURL string    `json:"meeting_url" validate:"omitempty,url"`
	Notes      string    `json:"notes" validate:"max=2000"`
	PayNow     bool      `json:"pay_now"`
}

type RescheduleSessionRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

type CompleteSessionRequest struct {
	Notes        string `json:"notes" validate:"max=5000"`
	RecordingURL string `json:"recording_url" validate:"omitempty,url"`
}

type CheckInRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

type CancelSessionRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type SessionFilter struct {
	Status    SessionStatus
	Timeframe string // "upcoming" | "past"
}

type SessionBooking struct {
	Session Session `json:"session"`
	// Set for pay_now bookings
	Payment *PaymentIntentResponse `json:"payment,omitempty"`
}

type TimeSlot struct {
	SessionID uint      `json:"session_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type AvailabilityResult struct {
	CoachID   uint      `json:"coach_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Available bool      `json:"available"`
}
