// Package testutil provides common testing utilities shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/pkg/bcrypt"
	"github.com/sefazor/coaching-backend/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database. A single connection
// is used so the database lives as long as the handle and transactions
// serialize the way row locks would on Postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

var testPasswordHash string

// CreateUser inserts a verified user with password "password123".
func CreateUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	if testPasswordHash == "" {
		bcrypt.SetCost(4)
		hash, err := bcrypt.HashPassword("password123")
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		testPasswordHash = hash
	}

	user := &models.User{
		FullName:   email,
		Email:      email,
		Password:   testPasswordHash,
		Role:       role,
		IsVerified: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateApprovedCoach inserts a coach user with an approved profile.
func CreateApprovedCoach(t *testing.T, db *gorm.DB, email string, hourlyRate int64) *models.User {
	t.Helper()

	user := CreateUser(t, db, email, models.RoleCoach)
	profile := &models.CoachProfile{
		UserID:     user.ID,
		HourlyRate: hourlyRate,
		Currency:   "usd",
		Status:     models.CoachStatusApproved,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("create coach profile: %v", err)
	}
	return user
}
