package database

import (
	"fmt"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the Postgres pool. The caller owns the returned handle
// and must Close it on shutdown.
func NewDatabase(databaseURL string) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Models is every table the API owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.CoachProfile{},
		&models.Child{},
		&models.Course{},
		&models.CourseEnrollment{},
		&models.Session{},
		&models.CreditPackage{},
		&models.CreditPurchase{},
		&models.Payment{},
		&models.CreditBalance{},
		&models.CreditTransaction{},
		&models.Video{},
	}
}

// RunMigrations auto-migrates the schema, adds the partial unique index
// that allows one active enrollment per child and course, and on Postgres
// installs the exclusion constraint that keeps live sessions of one coach
// from overlapping.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Postgres ve SQLite ikisi de kısmi unique index destekliyor
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_course_enrollments_active_child
		ON course_enrollments (course_id, child_id) WHERE status = 'ACTIVE'`).Error; err != nil {
		return fmt.Errorf("failed to create active enrollment index: %w", err)
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,
		`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'sessions_coach_no_overlap') THEN
		ALTER TABLE sessions ADD CONSTRAINT sessions_coach_no_overlap
			EXCLUDE USING gist (coach_id WITH =, tstzrange(start_time, end_time, '[)') WITH &&)
			WHERE (status IN ('SCHEDULED', 'IN_PROGRESS'));
	END IF;
END $$`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply session overlap constraint: %w", err)
		}
	}

	return nil
}

// SeedCreditPackages adds the default packages if they do not exist yet.
func SeedCreditPackages(db *gorm.DB) error {
	packages := []models.CreditPackage{
		{
			Name:         "Starter",
			Description:  "50 credits, enough for a short course",
			Credits:      decimal.NewFromInt(50),
			BonusCredits: decimal.Zero,
			Price:        4999,
			Currency:     "usd",
			IsActive:     true,
		},
		{
			Name:         "Family",
			Description:  "150 credits + 15 bonus credits",
			Credits:      decimal.NewFromInt(150),
			BonusCredits: decimal.NewFromInt(15),
			Price:        13999,
			Currency:     "usd",
			IsActive:     true,
		},
		{
			Name:         "Season",
			Description:  "400 credits + 60 bonus credits, priority support",
			Credits:      decimal.NewFromInt(400),
			BonusCredits: decimal.NewFromInt(60),
			Price:        34999,
			Currency:     "usd",
			IsActive:     true,
		},
	}

	// Paketleri veritabanına ekle (eğer yoksa)
	for _, pkg := range packages {
		pkg := pkg
		var count int64
		if err := db.Model(&models.CreditPackage{}).Where("name = ?", pkg.Name).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&pkg).Error; err != nil {
				return fmt.Errorf("failed to add credit package: %w", err)
			}
		}
	}

	return nil
}
