package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EnrollmentService struct {
	db          *gorm.DB
	ledger      *LedgerService
	courses     *repository.CourseRepository
	children    *repository.ChildRepository
	enrollments *repository.EnrollmentRepository
	users       *repository.UserRepository
	mailer      Mailer
	logger      *zap.Logger
	now         func() time.Time
}

func NewEnrollmentService(
	db *gorm.DB,
	ledger *LedgerService,
	courses *repository.CourseRepository,
	children *repository.ChildRepository,
	enrollments *repository.EnrollmentRepository,
	users *repository.UserRepository,
	mailer Mailer,
	logger *zap.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		db:          db,
		ledger:      ledger,
		courses:     courses,
		children:    children,
		enrollments: enrollments,
		users:       users,
		mailer:      mailer,
		logger:      logger.Named("enrollment"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// EnrollWithCredits pays for every child with a single SPENT posting and
// creates one enrollment per child. Either all of it commits or none.
func (s *EnrollmentService) EnrollWithCredits(ctx context.Context, userID uint, req models.EnrollWithCreditsRequest) (*models.EnrollmentResult, error) {
	if len(req.ChildIDs) == 0 {
		return nil, BadRequest("At least one child is required")
	}
	seen := make(map[uint]struct{}, len(req.ChildIDs))
	for _, id := range req.ChildIDs {
		if _, dup := seen[id]; dup {
			return nil, BadRequest("Each child can only be listed once")
		}
		seen[id] = struct{}{}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	course, err := s.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, notFoundOr(err, "Course not found")
	}
	if !course.IsPublished {
		return nil, NotFound("Course not found")
	}
	if course.EndDate != nil && !s.now().Before(*course.EndDate) {
		return nil, BadRequest("Course has already ended")
	}

	count := len(req.ChildIDs)
	total := course.CreditCostPerChild.Mul(decimal.NewFromInt(int64(count)))
	if !total.IsPositive() {
		return nil, ErrNoCreditPrice
	}

	result := &models.EnrollmentResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// course first, then balance: the duplicate and capacity checks
		// below must see every enrollment committed before this one
		locked, err := s.courses.WithTx(tx).LockByID(ctx, course.ID)
		if err != nil {
			return notFoundOr(err, "Course not found")
		}
		if !locked.IsPublished {
			return NotFound("Course not found")
		}
		if _, err := s.ledger.LockBalanceTx(ctx, tx, userID); err != nil {
			return err
		}

		owned, err := s.children.WithTx(tx).GetOwned(ctx, userID, req.ChildIDs)
		if err != nil {
			return dbError(err)
		}
		if len(owned) != count {
			return NotFound("Child not found")
		}

		enrollRepo := s.enrollments.WithTx(tx)
		active, err := enrollRepo.ActiveChildIDs(ctx, course.ID, req.ChildIDs)
		if err != nil {
			return dbError(err)
		}
		if len(active) > 0 {
			return ErrDuplicateEnrollment
		}

		if locked.Capacity > 0 {
			taken, err := s.courses.WithTx(tx).CountActiveEnrollments(ctx, course.ID)
			if err != nil {
				return dbError(err)
			}
			if int(taken)+count > locked.Capacity {
				return ErrCourseFull
			}
		}

		txn, balance, err := s.ledger.ApplyTransactionTx(ctx, tx, userID, Posting{
			Type:          models.CreditTypeSpent,
			Amount:        total,
			Description:   fmt.Sprintf("Enrollment in %s for %d child(ren)", course.Title, count),
			ReferenceID:   &course.ID,
			ReferenceType: models.ReferenceCourse,
			Metadata: map[string]interface{}{
				"child_ids":      req.ChildIDs,
				"cost_per_child": course.CreditCostPerChild.String(),
			},
		})
		if err != nil {
			return err
		}

		enrollments := make([]models.CourseEnrollment, 0, count)
		for _, child := range owned {
			enrollments = append(enrollments, models.CourseEnrollment{
				CourseID:            course.ID,
				ChildID:             child.ID,
				ParentID:            userID,
				CreditsPaid:         course.CreditCostPerChild,
				Status:              models.EnrollmentStatusActive,
				CreditTransactionID: &txn.ID,
			})
		}
		if err := enrollRepo.CreateBatch(ctx, enrollments); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateEnrollment
			}
			return dbError(err)
		}

		result.Enrollments = enrollments
		result.Transaction = *txn
		result.Balance = *balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("children enrolled",
		zap.Uint("user_id", userID),
		zap.Uint("course_id", course.ID),
		zap.Int("children", count),
		zap.String("credits", total.String()))

	balance := result.Balance.Balance.String()
	notify(s.logger, s.mailer, "enrollment_confirmed", user.Email, func() error {
		return s.mailer.SendEnrollmentConfirmedEmail(user.Email, user.FullName, course.Title, count, total.String(), balance)
	})

	return result, nil
}

// CancelEnrollment cancels an active enrollment and refunds what was paid
// for it. Not allowed once the course has started.
func (s *EnrollmentService) CancelEnrollment(ctx context.Context, userID, enrollmentID uint) (*models.CourseEnrollment, error) {
	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, notFoundOr(err, "Enrollment not found")
	}
	if enrollment.ParentID != userID {
		return nil, NotFound("Enrollment not found")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, Conflict("Enrollment is already cancelled")
	}

	now := s.now()
	if enrollment.Course != nil && enrollment.Course.StartDate != nil && !now.Before(*enrollment.Course.StartDate) {
		return nil, BadRequest("Enrollment can no longer be cancelled")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.enrollments.WithTx(tx).Cancel(ctx, enrollment.ID, now)
		if err != nil {
			return dbError(err)
		}
		if !ok {
			return Conflict("Enrollment is already cancelled")
		}
		if !enrollment.CreditsPaid.IsPositive() {
			return nil
		}

		_, _, err = s.ledger.ApplyTransactionTx(ctx, tx, userID, Posting{
			Type:          models.CreditTypeRefund,
			Amount:        enrollment.CreditsPaid,
			Description:   "Refund for cancelled enrollment",
			ReferenceID:   &enrollment.ID,
			ReferenceType: models.ReferenceEnrollment,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	enrollment.Status = models.EnrollmentStatusCancelled
	enrollment.CancelledAt = &now
	return enrollment, nil
}

func (s *EnrollmentService) ListEnrollments(ctx context.Context, userID uint) ([]models.CourseEnrollment, error) {
	enrollments, err := s.enrollments.ListByParent(ctx, userID)
	if err != nil {
		return nil, dbError(err)
	}
	return enrollments, nil
}

// ListCourseEnrollments is the coach's roster view. Admins pass
// isAdmin to read any course.
func (s *EnrollmentService) ListCourseEnrollments(ctx context.Context, coachID, courseID uint, isAdmin bool) ([]models.CourseEnrollment, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOr(err, "Course not found")
	}
	if course.CoachID != coachID && !isAdmin {
		return nil, Forbidden("You can only view enrollments for your own courses")
	}

	enrollments, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, dbError(err)
	}
	return enrollments, nil
}
