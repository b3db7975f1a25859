package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CoachService struct {
	coaches *repository.CoachProfileRepository
	users   *repository.UserRepository
	mailer  Mailer
	logger  *zap.Logger
	now     func() time.Time
}

func NewCoachService(coaches *repository.CoachProfileRepository, users *repository.UserRepository, mailer Mailer, logger *zap.Logger) *CoachService {
	return &CoachService{
		coaches: coaches,
		users:   users,
		mailer:  mailer,
		logger:  logger.Named("coach"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// UpsertProfile creates or updates the caller's coach profile. A rejected
// profile goes back to PENDING when it is edited.
func (s *CoachService) UpsertProfile(ctx context.Context, userID uint, req models.CoachProfileRequest) (*models.CoachProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	if user.Role != models.RoleCoach {
		return nil, Forbidden("Only coaches can have a coach profile")
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}

	profile, err := s.coaches.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = &models.CoachProfile{
			UserID:      userID,
			Bio:         req.Bio,
			Specialties: req.Specialties,
			HourlyRate:  req.HourlyRate,
			Currency:    currency,
			Status:      models.CoachStatusPending,
		}
		if err := s.coaches.Create(ctx, profile); err != nil {
			return nil, dbError(err)
		}
		return profile, nil
	}
	if err != nil {
		return nil, dbError(err)
	}

	profile.Bio = req.Bio
	profile.Specialties = req.Specialties
	profile.HourlyRate = req.HourlyRate
	profile.Currency = currency
	if profile.Status == models.CoachStatusRejected {
		profile.Status = models.CoachStatusPending
		profile.RejectionReason = ""
	}
	if err := s.coaches.Update(ctx, profile); err != nil {
		return nil, dbError(err)
	}
	return profile, nil
}

func (s *CoachService) GetProfile(ctx context.Context, userID uint) (*models.CoachProfile, error) {
	profile, err := s.coaches.GetByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "Coach profile not found")
	}
	return profile, nil
}

// GetPublicCoach only returns approved coaches.
func (s *CoachService) GetPublicCoach(ctx context.Context, coachID uint) (*models.CoachProfile, error) {
	profile, err := s.GetProfile(ctx, coachID)
	if err != nil {
		return nil, err
	}
	if !profile.IsApproved() {
		return nil, NotFound("Coach profile not found")
	}
	return profile, nil
}

func (s *CoachService) ListApproved(ctx context.Context, page, limit int) (*models.Page, error) {
	return s.list(ctx, models.CoachStatusApproved, page, limit)
}

func (s *CoachService) ListByStatus(ctx context.Context, status models.CoachStatus, page, limit int) (*models.Page, error) {
	switch status {
	case "", models.CoachStatusPending, models.CoachStatusApproved, models.CoachStatusRejected:
	default:
		return nil, BadRequest("Invalid coach status")
	}
	return s.list(ctx, status, page, limit)
}

func (s *CoachService) list(ctx context.Context, status models.CoachStatus, page, limit int) (*models.Page, error) {
	profiles, total, err := s.coaches.ListByStatus(ctx, status, page, limit)
	if err != nil {
		return nil, dbError(err)
	}
	page, limit = repository.NormalizePage(page, limit)
	return &models.Page{Items: profiles, Total: total, Page: page, Limit: limit}, nil
}

func (s *CoachService) Approve(ctx context.Context, adminID, coachID uint) (*models.CoachProfile, error) {
	profile, err := s.review(ctx, adminID, coachID, models.CoachStatusApproved, "")
	if err != nil {
		return nil, err
	}
	if profile.User != nil {
		to, name := profile.User.Email, profile.User.FullName
		notify(s.logger, s.mailer, "coach_approved", to, func() error {
			return s.mailer.SendCoachApprovedEmail(to, name)
		})
	}
	return profile, nil
}

func (s *CoachService) Reject(ctx context.Context, adminID, coachID uint, reason string) (*models.CoachProfile, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, BadRequest("Rejection reason is required")
	}
	profile, err := s.review(ctx, adminID, coachID, models.CoachStatusRejected, reason)
	if err != nil {
		return nil, err
	}
	if profile.User != nil {
		to, name := profile.User.Email, profile.User.FullName
		notify(s.logger, s.mailer, "coach_rejected", to, func() error {
			return s.mailer.SendCoachRejectedEmail(to, name, reason)
		})
	}
	return profile, nil
}

func (s *CoachService) review(ctx context.Context, adminID, coachID uint, status models.CoachStatus, reason string) (*models.CoachProfile, error) {
	profile, err := s.GetProfile(ctx, coachID)
	if err != nil {
		return nil, err
	}
	if profile.Status == status {
		return nil, Conflict("Coach profile is already " + strings.ToLower(string(status)))
	}

	now := s.now()
	profile.Status = status
	profile.RejectionReason = reason
	profile.ReviewedBy = &adminID
	profile.ReviewedAt = &now
	if err := s.coaches.Update(ctx, profile); err != nil {
		return nil, dbError(err)
	}

	s.logger.Info("coach profile reviewed",
		zap.Uint("coach_id", coachID),
		zap.Uint("admin_id", adminID),
		zap.String("status", string(status)))
	return profile, nil
}
