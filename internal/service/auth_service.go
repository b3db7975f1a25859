package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/sefazor/coaching-backend/pkg/bcrypt"
	"github.com/sefazor/coaching-backend/pkg/jwt"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthService struct {
	db      *gorm.DB
	users   *repository.UserRepository
	coaches *repository.CoachProfileRepository
	tokens  *jwt.Manager
	captcha CaptchaVerifier
	mailer  Mailer
	logger  *zap.Logger
}

func NewAuthService(
	db *gorm.DB,
	users *repository.UserRepository,
	coaches *repository.CoachProfileRepository,
	tokens *jwt.Manager,
	captcha CaptchaVerifier,
	mailer Mailer,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		db:      db,
		users:   users,
		coaches: coaches,
		tokens:  tokens,
		captcha: captcha,
		mailer:  mailer,
		logger:  logger.Named("auth"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the account, and a PENDING coach profile for coaches,
// then signs the user in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest, remoteIP string) (*models.AuthResponse, error) {
	if s.captcha != nil && s.captcha.Enabled() {
		ok, err := s.captcha.Verify(ctx, req.CaptchaToken, remoteIP)
		if err != nil {
			s.logger.Info("captcha verification error", zap.Error(err))
			return nil, ErrCaptchaFailed
		}
		if !ok {
			return nil, ErrCaptchaFailed
		}
	}

	// Email kontrolü
	emailAddr := normalizeEmail(req.Email)
	exists, err := s.users.EmailExists(ctx, emailAddr)
	if err != nil {
		return nil, dbError(err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	role := req.Role
	if role == "" {
		role = models.RoleParent
	}
	if role == models.RoleAdmin || !role.Valid() {
		return nil, BadRequest("Invalid role")
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FullName: strings.TrimSpace(req.FullName),
		Email:    emailAddr,
		Password: hashedPassword,
		Role:     role,
		Phone:    req.Phone,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewUserRepository(tx).Create(ctx, user); err != nil {
			return dbError(err)
		}
		if role != models.RoleCoach {
			return nil
		}
		profile := &models.CoachProfile{
			UserID:   user.ID,
			Currency: "usd",
			Status:   models.CoachStatusPending,
		}
		return dbError(repository.NewCoachProfileRepository(tx).Create(ctx, profile))
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, Internal(err)
	}

	// Doğrulama ve hoş geldin emailleri
	if verifyToken, err := s.tokens.GenerateVerificationToken(user.ID, user.Email); err == nil {
		notify(s.logger, s.mailer, "verify_email", user.Email, func() error {
			return s.mailer.SendVerificationEmail(user.Email, user.FullName, verifyToken)
		})
	} else {
		s.logger.Error("failed to create verification token", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	notify(s.logger, s.mailer, "welcome", user.Email, func() error {
		return s.mailer.SendWelcomeEmail(user.Email, user.FullName)
	})

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", string(role)))
	return &models.AuthResponse{Token: token, User: *user}, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, dbError(err)
	}

	if err := bcrypt.ComparePassword(user.Password, req.Password); err != nil {
		if !errors.Is(err, bcrypt.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unreadable", zap.Uint("user_id", user.ID), zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}
	if bcrypt.NeedsRehash(user.Password) {
		s.rehash(ctx, user.ID, req.Password)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, Internal(err)
	}
	return &models.AuthResponse{Token: token, User: *user}, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token, jwt.PurposeEmailVerify)
	if err != nil {
		return ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return notFoundOr(err, "User not found")
	}
	if user.Email != claims.Email {
		return ErrInvalidToken
	}
	return dbError(s.users.MarkVerified(ctx, user.ID))
}

// ResendVerification does nothing for unknown addresses so the endpoint
// cannot be used to probe for accounts.
func (s *AuthService) ResendVerification(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return dbError(err)
	}
	if user.IsVerified {
		return BadRequest("Email is already verified")
	}

	token, err := s.tokens.GenerateVerificationToken(user.ID, user.Email)
	if err != nil {
		return Internal(err)
	}
	notify(s.logger, s.mailer, "verify_email", user.Email, func() error {
		return s.mailer.SendVerificationEmail(user.Email, user.FullName, token)
	})
	return nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return dbError(err)
	}

	token, err := s.tokens.GenerateResetToken(user.ID, user.Email)
	if err != nil {
		return Internal(err)
	}
	notify(s.logger, s.mailer, "password_reset", user.Email, func() error {
		return s.mailer.SendPasswordResetEmail(user.Email, token)
	})
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	claims, err := s.tokens.ValidateToken(req.Token, jwt.PurposeReset)
	if err != nil {
		return ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return notFoundOr(err, "User not found")
	}
	if user.Email != claims.Email {
		return ErrInvalidToken
	}

	hashedPassword, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return dbError(s.users.UpdatePassword(ctx, user.ID, hashedPassword))
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return user, nil
}

func (s *AuthService) rehash(ctx context.Context, userID uint, password string) {
	hashed, err := bcrypt.HashPassword(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, userID, hashed)
	}
	if err != nil {
		s.logger.Warn("password rehash failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.HashPassword(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", BadRequest("Password must be at most 72 bytes")
	}
	if err != nil {
		return "", Internal(err)
	}
	return hashed, nil
}
