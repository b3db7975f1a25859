package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/sefazor/coaching-backend/pkg/bcrypt"
	"github.com/sefazor/coaching-backend/pkg/jwt"
	"github.com/sefazor/coaching-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type authFixture struct {
	db     *gorm.DB
	svc    *AuthService
	tokens *jwt.Manager
	mailer *fakeMailer
}

func newAuthFixture(t *testing.T, captcha CaptchaVerifier) *authFixture {
	t.Helper()
	db := testutil.NewDB(t)
	tokens := jwt.NewManager("test-secret", "coaching-test")
	mailer := &fakeMailer{}
	svc := NewAuthService(
		db,
		repository.NewUserRepository(db),
		repository.NewCoachProfileRepository(db),
		tokens,
		captcha,
		mailer,
		zap.NewNop(),
	)
	return &authFixture{db: db, svc: svc, tokens: tokens, mailer: mailer}
}

func registerRequest(email string, role models.Role) models.RegisterRequest {
	return models.RegisterRequest{
		FullName: "Ada Parent",
		Email:    email,
		Password: "password123",
		Role:     role,
	}
}

func TestRegisterDefaultsToParent(t *testing.T) {
	f := newAuthFixture(t, fakeCaptcha{})
	ctx := context.Background()

	resp, err := f.svc.Register(ctx, registerRequest("  Ada@Example.com ", ""), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, models.RoleParent, resp.User.Role)
	assert.False(t, resp.User.IsVerified)

	claims, err := f.tokens.ValidateToken(resp.Token, jwt.PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "PARENT", claims.Role)

	assert.Eventually(t, func() bool {
		return len(f.mailer.Sent()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"verify:ada@example.com", "welcome:ada@example.com"}, f.mailer.Sent())
}

func TestRegisterCoachCreatesPendingProfile(t *testing.T) {
	f := newAuthFixture(t, fakeCaptcha{})

	resp, err := f.svc.Register(context.Background(), registerRequest("coach@example.com", models.RoleCoach), "")
	require.NoError(t, err)

	var profile models.CoachProfile
	require.NoError(t, f.db.Where("user_id = ?", resp.User.ID).First(&profile).Error)
	assert.Equal(t, models.CoachStatusPending, profile.Status)
}

func TestRegisterRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("admin role", func(t *testing.T) {
		f := newAuthFixture(t, fakeCaptcha{})
		_, err := f.svc.Register(ctx, registerRequest("root@example.com", models.RoleAdmin), "")
		assertStatus(t, err, 400)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newAuthFixture(t, fakeCaptcha{})
		testutil.CreateUser(t, f.db, "taken@example.com", models.RoleParent)
		_, err := f.svc.Register(ctx, registerRequest("TAKEN@example.com", ""), "")
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("password over 72 bytes", func(t *testing.T) {
		f := newAuthFixture(t, fakeCaptcha{})
		req := registerRequest("long@example.com", "")
		req.Password = strings.Repeat("ş", 40)
		_, err := f.svc.Register(ctx, req, "")
		assertStatus(t, err, 400)
	})

	t.Run("captcha", func(t *testing.T) {
		f := newAuthFixture(t, fakeCaptcha{enabled: true, ok: false})
		_, err := f.svc.Register(ctx, registerRequest("bot@example.com", ""), "")
		assert.ErrorIs(t, err, ErrCaptchaFailed)

		var count int64
		f.db.Model(&models.User{}).Count(&count)
		assert.Zero(t, count)
	})
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t, fakeCaptcha{})
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "ada@example.com", models.RoleStudent)

	resp, err := f.svc.Login(ctx, models.LoginRequest{Email: "ADA@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	assert.NotEmpty(t, resp.Token)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRehashesOldCost(t *testing.T) {
	f := newAuthFixture(t, fakeCaptcha{})
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ada@example.com", models.RoleStudent)

	bcrypt.SetCost(5)
	t.Cleanup(func() { bcrypt.SetCost(4) })

	var before models.User
	require.NoError(t, f.db.First(&before, user.ID).Error)
	require.True(t, bcrypt.NeedsRehash(before.Password))

	_, err := f.svc.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "password123"})
	require.NoError(t, err)

	var after models.User
	require.NoError(t, f.db.First(&after, user.ID).Error)
	assert.NotEqual(t, before.Password, after.Password)
	assert.False(t, bcrypt.NeedsRehash(after.Password))
	assert.NoError(t, bcrypt.ComparePassword(after.Password, "password123"))
}

func TestVerifyEmail(t *testing.T) {
	f := newAuthFixture(t, fakeCaptcha{})
	ctx := context.Background()

	resp, err := f.svc.Register(ctx, registerRequest("ada@example.com", ""), "")
	require.NoError(t, err)

	// An access token must not verify an email address.
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, resp.Token), ErrInvalidToken)

	token, err := f.tokens.GenerateVerificationToken(resp.User.ID, resp.User.Email)
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyEmail(ctx, token))

	user, err := f.svc.Me(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	err = f.svc.ResendVerification(ctx, "ada@example.com")
	assertStatus(t, err, 400)
}

func TestResendVerificationUnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t, fakeCaptcha{})
	assert.NoError(t, f.svc.ResendVerification(context.Background(), "ghost@example.com"))
	assert.NoError(t, f.svc.ForgotPassword(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.mailer.Sent())
}

func TestResetPassword(t *testing.T) {
	f := newAuthFixture(t, fakeCaptcha{})
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ada@example.com", models.RoleParent)

	require.NoError(t, f.svc.ForgotPassword(ctx, "ada@example.com"))
	assert.Eventually(t, func() bool {
		return len(f.mailer.Sent()) == 1
	}, time.Second, 10*time.Millisecond)

	token, err := f.tokens.GenerateResetToken(user.ID, user.Email)
	require.NoError(t, err)

	err = f.svc.ResetPassword(ctx, models.ResetPasswordRequest{Token: "garbage", NewPassword: "new-password"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, f.svc.ResetPassword(ctx, models.ResetPasswordRequest{Token: token, NewPassword: "new-password"}))

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "new-password"})
	assert.NoError(t, err)
}

func TestUserService(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewUserService(repository.NewUserRepository(db), zap.NewNop())
	ctx := context.Background()

	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	parent := testutil.CreateUser(t, db, "parent@example.com", models.RoleParent)
	testutil.CreateUser(t, db, "student@example.com", models.RoleStudent)

	t.Run("profile", func(t *testing.T) {
		user, err := svc.UpdateProfile(ctx, parent.ID, models.UpdateProfileRequest{FullName: "  Grace  ", Phone: "+90 555"})
		require.NoError(t, err)
		assert.Equal(t, "Grace", user.FullName)
	})

	t.Run("change password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, parent.ID, models.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"})
		assertStatus(t, err, 400)
		require.NoError(t, svc.ChangePassword(ctx, parent.ID, models.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "new-password"}))
	})

	t.Run("list by role", func(t *testing.T) {
		page, err := svc.ListUsers(ctx, models.RoleStudent, 1, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, page.Total)

		_, err = svc.ListUsers(ctx, "WIZARD", 1, 10)
		assertStatus(t, err, 400)
	})

	t.Run("role change", func(t *testing.T) {
		user, err := svc.UpdateRole(ctx, admin.ID, parent.ID, models.RoleCoach)
		require.NoError(t, err)
		assert.Equal(t, models.RoleCoach, user.Role)

		_, err = svc.UpdateRole(ctx, admin.ID, admin.ID, models.RoleParent)
		assertStatus(t, err, 400)

		_, err = svc.UpdateRole(ctx, admin.ID, 9999, models.RoleCoach)
		assertStatus(t, err, 404)
	})
}
