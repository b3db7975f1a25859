package repository

import (
	"context"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"gorm.io/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Omit("Course").Create(session).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).Preload("Course").First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByCheckInCode(ctx context.Context, code string) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).Preload("Course").Where("check_in_code = ?", code).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// HasConflict reports whether the coach has a live session overlapping
// [start, end). excludeID skips the session being rescheduled.
func (r *SessionRepository) HasConflict(ctx context.Context, coachID uint, start, end time.Time, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("coach_id = ?", coachID).
		Where("status IN ?", models.LiveSessionStatuses).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// BusySlots lists the coach's live sessions that intersect [from, to).
func (r *SessionRepository) BusySlots(ctx context.Context, coachID uint, from, to time.Time) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	err := r.db.WithContext(ctx).Model(&models.Session{}).
		Select("id AS session_id, start_time, end_time").
		Where("coach_id = ?", coachID).
		Where("status IN ?", models.LiveSessionStatuses).
		Where("start_time < ? AND end_time > ?", to, from).
		Order("start_time ASC").
		Scan(&slots).Error
	return slots, err
}

// UpdateIfStatus applies updates only while the session is still in the
// expected status. Returns false when another writer got there first.
func (r *SessionRepository) UpdateIfStatus(ctx context.Context, id uint, current models.SessionStatus, updates map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ?", id, current).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// List returns sessions where the user is coach or student. Admins pass
// userID 0 to see everything.
func (r *SessionRepository) List(ctx context.Context, userID uint, filter models.SessionFilter, now time.Time) ([]models.Session, error) {
	query := r.db.WithContext(ctx).Preload("Course")
	if userID != 0 {
		query = query.Where("coach_id = ? OR student_id = ?", userID, userID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	switch filter.Timeframe {
	case "upcoming":
		query = query.Where("start_time >= ?", now).Order("start_time ASC")
	case "past":
		query = query.Where("start_time < ?", now).Order("start_time DESC")
	default:
		query = query.Order("start_time DESC")
	}

	var sessions []models.Session
	err := query.Find(&sessions).Error
	return sessions, err
}
