package service

import (
	"context"
	"strings"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/sefazor/coaching-backend/pkg/bcrypt"
	"go.uber.org/zap"
)

type UserService struct {
	users  *repository.UserRepository
	logger *zap.Logger
}

func NewUserService(users *repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger.Named("user"),
	}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.FullName = strings.TrimSpace(req.FullName)
	user.Phone = req.Phone
	if err := s.users.Update(ctx, user); err != nil {
		return nil, dbError(err)
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID uint, req models.ChangePasswordRequest) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.ComparePassword(user.Password, req.CurrentPassword); err != nil {
		return BadRequest("Current password is incorrect")
	}

	hashedPassword, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return dbError(s.users.UpdatePassword(ctx, user.ID, hashedPassword))
}

// ListUsers is the admin user directory, optionally filtered by role.
func (s *UserService) ListUsers(ctx context.Context, role models.Role, page, limit int) (*models.Page, error) {
	if role != "" && !role.Valid() {
		return nil, BadRequest("Invalid role")
	}
	users, total, err := s.users.List(ctx, role, page, limit)
	if err != nil {
		return nil, dbError(err)
	}
	page, limit = repository.NormalizePage(page, limit)
	return &models.Page{Items: users, Total: total, Page: page, Limit: limit}, nil
}

// UpdateRole changes a user's role. Admins cannot demote themselves.
func (s *UserService) UpdateRole(ctx context.Context, adminID, userID uint, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, BadRequest("Invalid role")
	}
	if adminID == userID && role != models.RoleAdmin {
		return nil, BadRequest("You cannot change your own role")
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, dbError(err)
	}
	s.logger.Info("user role changed",
		zap.Uint("admin_id", adminID),
		zap.Uint("user_id", userID),
		zap.String("from", string(user.Role)),
		zap.String("to", string(role)))
	user.Role = role
	return user, nil
}
