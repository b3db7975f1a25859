package service

import (
	"context"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/sefazor/coaching-backend/pkg/email"
	"github.com/sefazor/coaching-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxSessionLength  = 8 * time.Hour
	maxBusyWindow     = 31 * 24 * time.Hour
	checkInQRSize     = 256
	checkInCodeLength = 12
)

// SessionPayer creates the payment intent for a booked session.
type SessionPayer interface {
	CreateSessionPayment(ctx context.Context, userID, sessionID uint) (*models.PaymentIntentResponse, error)
}

type SessionService struct {
	db       *gorm.DB
	sessions *repository.SessionRepository
	coaches  *repository.CoachProfileRepository
	courses  *repository.CourseRepository
	users    *repository.UserRepository
	payer    SessionPayer
	qr       QRGenerator
	mailer   Mailer
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionService(
	db *gorm.DB,
	sessions *repository.SessionRepository,
	coaches *repository.CoachProfileRepository,
	courses *repository.CourseRepository,
	users *repository.UserRepository,
	payer SessionPayer,
	qr QRGenerator,
	mailer Mailer,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		db:       db,
		sessions: sessions,
		coaches:  coaches,
		courses:  courses,
		users:    users,
		payer:    payer,
		qr:       qr,
		mailer:   mailer,
		logger:   logger.Named("session"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BookSession creates a SCHEDULED session for the student if the coach is
// free for the whole window.
func (s *SessionService) BookSession(ctx context.Context, studentID uint, req models.BookSessionRequest) (*models.SessionBooking, error) {
	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	if !start.After(s.now()) {
		return nil, BadRequest("Sessions must start in the future")
	}
	if studentID == req.CoachID {
		return nil, BadRequest("You cannot book a session with yourself")
	}

	profile, err := s.coaches.GetByUserID(ctx, req.CoachID)
	if err != nil {
		return nil, notFoundOr(err, "Coach not found")
	}
	if !profile.IsApproved() {
		return nil, ErrCoachNotApproved
	}
	course, err := s.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, notFoundOr(err, "Course not found")
	}
	if course.CoachID != req.CoachID {
		return nil, BadRequest("Course does not belong to this coach")
	}
	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	session := &models.Session{
		CoachID:     req.CoachID,
		StudentID:   studentID,
		CourseID:    course.ID,
		StartTime:   start,
		EndTime:     end,
		Status:      models.SessionStatusScheduled,
		MeetingURL:  req.MeetingURL,
		Notes:       req.Notes,
		CheckInCode: utils.RandomCode(checkInCodeLength),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCoach(tx, req.CoachID); err != nil {
			return dbError(err)
		}
		repo := s.sessions.WithTx(tx)
		busy, err := repo.HasConflict(ctx, req.CoachID, start, end, 0)
		if err != nil {
			return dbError(err)
		}
		if busy {
			return ErrSchedulingConflict
		}
		return dbError(repo.Create(ctx, session))
	})
	if err != nil {
		return nil, err
	}
	session.Course = course

	s.logger.Info("session booked",
		zap.Uint("session_id", session.ID),
		zap.Uint("coach_id", session.CoachID),
		zap.Uint("student_id", studentID),
		zap.Time("start", start))

	s.notifyParties(session, student, profile.User, "", s.mailer.SendSessionBookedEmail, "session_booked")

	booking := &models.SessionBooking{Session: *session}
	if req.PayNow && s.payer != nil {
		intent, err := s.payer.CreateSessionPayment(ctx, studentID, session.ID)
		if err != nil {
			// The slot stays booked; payment can be retried from /payments.
			s.logger.Warn("session payment not created", zap.Uint("session_id", session.ID), zap.Error(err))
		} else {
			booking.Payment = intent
		}
	}
	return booking, nil
}

func (s *SessionService) CheckAvailability(ctx context.Context, coachID uint, start, end time.Time, excludeID uint) (*models.AvailabilityResult, error) {
	start, end = start.UTC(), end.UTC()
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	busy, err := s.sessions.HasConflict(ctx, coachID, start, end, excludeID)
	if err != nil {
		return nil, dbError(err)
	}
	return &models.AvailabilityResult{
		CoachID:   coachID,
		StartTime: start,
		EndTime:   end,
		Available: !busy,
	}, nil
}

// BusySlots lists the coach's live sessions inside [from, to).
func (s *SessionService) BusySlots(ctx context.Context, coachID uint, from, to time.Time) ([]models.TimeSlot, error) {
	if !to.After(from) {
		return nil, ErrInvalidTimeRange
	}
	if to.Sub(from) > maxBusyWindow {
		return nil, BadRequest("Window cannot exceed 31 days")
	}
	slots, err := s.sessions.BusySlots(ctx, coachID, from.UTC(), to.UTC())
	if err != nil {
		return nil, dbError(err)
	}
	return slots, nil
}

// Reschedule moves a SCHEDULED session to a new window after checking it
// against the coach's other live sessions.
func (s *SessionService) Reschedule(ctx context.Context, actor Actor, sessionID uint, req models.RescheduleSessionRequest) (*models.Session, error) {
	session, err := s.getAccessible(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusScheduled {
		return nil, Conflict("Only scheduled sessions can be rescheduled")
	}

	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	if !start.After(s.now()) {
		return nil, BadRequest("Sessions must start in the future")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCoach(tx, session.CoachID); err != nil {
			return dbError(err)
		}
		repo := s.sessions.WithTx(tx)
		busy, err := repo.HasConflict(ctx, session.CoachID, start, end, session.ID)
		if err != nil {
			return dbError(err)
		}
		if busy {
			return ErrSchedulingConflict
		}
		ok, err := repo.UpdateIfStatus(ctx, session.ID, models.SessionStatusScheduled, map[string]interface{}{
			"start_time": start,
			"end_time":   end,
		})
		if err != nil {
			return dbError(err)
		}
		if !ok {
			return ErrInvalidStateTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session.StartTime, session.EndTime = start, end
	s.notifyAll(ctx, session, "", s.mailer.SendSessionRescheduledEmail, "session_rescheduled")
	return session, nil
}

func (s *SessionService) Start(ctx context.Context, actor Actor, sessionID uint) (*models.Session, error) {
	session, err := s.getAccessible(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireCoach(actor, session); err != nil {
		return nil, err
	}

	now := s.now()
	if session.Status == models.SessionStatusScheduled &&
		!CanTransition(session.Status, models.SessionStatusInProgress, session.StartTime, now) {
		return nil, BadRequest("Session can only be started within 5 minutes of its start time")
	}
	return s.transition(ctx, session, models.SessionStatusInProgress, map[string]interface{}{
		"started_at": now,
	}, now)
}

// CheckIn starts the session whose QR code the coach scanned or typed in.
func (s *SessionService) CheckIn(ctx context.Context, actor Actor, code string) (*models.Session, error) {
	code = utils.NormalizeCode(code)
	if code == "" {
		return nil, BadRequest("Check-in code is required")
	}
	session, err := s.sessions.GetByCheckInCode(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "Session not found")
	}
	if session.CoachID != actor.ID && !actor.IsAdmin() {
		return nil, NotFound("Session not found")
	}
	return s.Start(ctx, actor, session.ID)
}

func (s *SessionService) Complete(ctx context.Context, actor Actor, sessionID uint, req models.CompleteSessionRequest) (*models.Session, error) {
	session, err := s.getAccessible(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireCoach(actor, session); err != nil {
		return nil, err
	}

	now := s.now()
	updates := map[string]interface{}{"completed_at": now}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}
	if req.RecordingURL != "" {
		updates["recording_url"] = req.RecordingURL
	}
	return s.transition(ctx, session, models.SessionStatusCompleted, updates, now)
}

// Cancel can be called by either party or an admin while the session is
// live.
func (s *SessionService) Cancel(ctx context.Context, actor Actor, sessionID uint, req models.CancelSessionRequest) (*models.Session, error) {
	session, err := s.getAccessible(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	cancelledBy := actor.ID
	updated, err := s.transition(ctx, session, models.SessionStatusCancelled, map[string]interface{}{
		"cancel_reason": req.Reason,
		"cancelled_by":  cancelledBy,
	}, s.now())
	if err != nil {
		return nil, err
	}

	s.notifyAll(ctx, updated, req.Reason, s.mailer.SendSessionCancelledEmail, "session_cancelled")
	return updated, nil
}

func (s *SessionService) MarkNoShow(ctx context.Context, actor Actor, sessionID uint) (*models.Session, error) {
	session, err := s.getAccessible(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireCoach(actor, session); err != nil {
		return nil, err
	}
	return s.transition(ctx, session, models.SessionStatusNoShow, map[string]interface{}{}, s.now())
}

func (s *SessionService) transition(ctx context.Context, session *models.Session, to models.SessionStatus, updates map[string]interface{}, now time.Time) (*models.Session, error) {
	if !CanTransition(session.Status, to, session.StartTime, now) {
		return nil, ErrInvalidStateTransition
	}

	updates["status"] = to
	ok, err := s.sessions.UpdateIfStatus(ctx, session.ID, session.Status, updates)
	if err != nil {
		return nil, dbError(err)
	}
	if !ok {
		return nil, ErrInvalidStateTransition
	}

	s.logger.Info("session status changed",
		zap.Uint("session_id", session.ID),
		zap.String("from", string(session.Status)),
		zap.String("to", string(to)))

	updated, err := s.sessions.GetByID(ctx, session.ID)
	if err != nil {
		return nil, dbError(err)
	}
	return updated, nil
}

func (s *SessionService) ListSessions(ctx context.Context, actor Actor, filter models.SessionFilter) ([]models.Session, error) {
	userID := actor.ID
	if actor.IsAdmin() {
		userID = 0
	}
	sessions, err := s.sessions.List(ctx, userID, filter, s.now())
	if err != nil {
		return nil, dbError(err)
	}
	return sessions, nil
}

func (s *SessionService) GetSession(ctx context.Context, actor Actor, sessionID uint) (*models.Session, error) {
	return s.getAccessible(ctx, actor, sessionID)
}

// CheckInQRCode renders a PNG that links to the session's check-in page.
func (s *SessionService) CheckInQRCode(ctx context.Context, actor Actor, sessionID uint) ([]byte, error) {
	session, err := s.getAccessible(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if IsTerminal(session.Status) {
		return nil, Conflict("Session is no longer active")
	}

	if session.CheckInCode == "" {
		return nil, Conflict("Session has no check-in code")
	}
	png, err := s.qr.CheckInPNG(session.CheckInCode, checkInQRSize)
	if err != nil {
		return nil, Internal(err)
	}
	return png, nil
}

func (s *SessionService) getAccessible(ctx context.Context, actor Actor, sessionID uint) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr(err, "Session not found")
	}
	if !actor.IsAdmin() && actor.ID != session.CoachID && actor.ID != session.StudentID {
		return nil, Forbidden("You do not have access to this session")
	}
	return session, nil
}

func requireCoach(actor Actor, session *models.Session) error {
	if actor.IsAdmin() || actor.ID == session.CoachID {
		return nil
	}
	return Forbidden("Only the coach can perform this action")
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return ErrInvalidTimeRange
	}
	if end.Sub(start) > maxSessionLength {
		return BadRequest("Sessions cannot be longer than 8 hours")
	}
	return nil
}

// lockCoach serializes bookings for one coach until the transaction ends.
// SQLite has a single writer, so the lock is Postgres only.
func lockCoach(tx *gorm.DB, coachID uint) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", int64(coachID)).Error
}

func (s *SessionService) notifyAll(ctx context.Context, session *models.Session, reason string, send func(email.SessionEmail) error, kind string) {
	student, err := s.users.GetByID(ctx, session.StudentID)
	if err != nil {
		s.logger.Warn("session email skipped", zap.Uint("session_id", session.ID), zap.Error(err))
		return
	}
	coach, err := s.users.GetByID(ctx, session.CoachID)
	if err != nil {
		s.logger.Warn("session email skipped", zap.Uint("session_id", session.ID), zap.Error(err))
		return
	}
	s.notifyParties(session, student, coach, reason, send, kind)
}

func (s *SessionService) notifyParties(session *models.Session, student, coach *models.User, reason string, send func(email.SessionEmail) error, kind string) {
	if student == nil || coach == nil {
		return
	}
	title := ""
	if session.Course != nil {
		title = session.Course.Title
	}

	for _, pair := range [][2]*models.User{{student, coach}, {coach, student}} {
		msg := email.SessionEmail{
			To:          pair[0].Email,
			FullName:    pair[0].FullName,
			OtherParty:  pair[1].FullName,
			CourseTitle: title,
			StartTime:   session.StartTime,
			EndTime:     session.EndTime,
			MeetingURL:  session.MeetingURL,
			Reason:      reason,
		}
		notify(s.logger, s.mailer, kind, msg.To, func() error { return send(msg) })
	}
}
