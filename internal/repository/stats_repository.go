package repository

import (
	"context"

	"github.com/sefazor/coaching-backend/internal/models"
	"gorm.io/gorm"
)

// StatsRepository runs the read-only aggregates behind the admin dashboard.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) UsersByRole(ctx context.Context) (map[models.Role]int64, error) {
	var rows []struct {
		Role  models.Role
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.Role]int64, len(rows))
	for _, row := range rows {
		out[row.Role] = row.Count
	}
	return out, nil
}

func (r *StatsRepository) SessionsByStatus(ctx context.Context) (map[models.SessionStatus]int64, error) {
	var rows []struct {
		Status models.SessionStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Session{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.SessionStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *StatsRepository) CountPendingCoaches(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CoachProfile{}).
		Where("status = ?", models.CoachStatusPending).
		Count(&count).Error
	return count, err
}

func (r *StatsRepository) CountActiveEnrollments(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CourseEnrollment{}).
		Where("status = ?", models.EnrollmentStatusActive).
		Count(&count).Error
	return count, err
}

// Revenue sums succeeded payments per currency.
func (r *StatsRepository) Revenue(ctx context.Context) ([]models.RevenueTotal, error) {
	var rows []models.RevenueTotal
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("currency, COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS count").
		Where("status = ?", models.PaymentStatusSucceeded).
		Group("currency").
		Order("currency").
		Scan(&rows).Error
	return rows, err
}
