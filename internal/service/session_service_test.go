package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/sefazor/coaching-backend/pkg/qrcode"
	"github.com/sefazor/coaching-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sessionFixture struct {
	db      *gorm.DB
	svc     *SessionService
	clock   *fixedClock
	mailer  *fakeMailer
	coach   *models.User
	student *models.User
	course  *models.Course
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	db := testutil.NewDB(t)
	mailer := &fakeMailer{}
	clock := &fixedClock{t: at(9, 0)}

	svc := NewSessionService(
		db,
		repository.NewSessionRepository(db),
		repository.NewCoachProfileRepository(db),
		repository.NewCourseRepository(db),
		repository.NewUserRepository(db),
		nil,
		qrcode.NewCheckInCodes("https://app.test/sessions/check-in/"),
		mailer,
		zap.NewNop(),
	)
	svc.now = clock.Now

	f := &sessionFixture{db: db, svc: svc, clock: clock, mailer: mailer}
	f.coach = testutil.CreateApprovedCoach(t, db, "coach@example.com", 6000)
	f.student = testutil.CreateUser(t, db, "student@example.com", models.RoleStudent)
	f.course = createCourse(t, db, f.coach.ID, "10", true)
	return f
}

func (f *sessionFixture) book(studentID uint, start, end time.Time) (*models.SessionBooking, error) {
	return f.svc.BookSession(context.Background(), studentID, models.BookSessionRequest{
		CoachID:   f.coach.ID,
		CourseID:  f.course.ID,
		StartTime: start,
		EndTime:   end,
	})
}

func (f *sessionFixture) actor(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

func TestBookSessionConflict(t *testing.T) {
	f := newSessionFixture(t)
	other := testutil.CreateUser(t, f.db, "other@example.com", models.RoleStudent)

	booking, err := f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusScheduled, booking.Session.Status)
	assert.NotZero(t, booking.Session.ID)

	_, err = f.book(other.ID, at(14, 30), at(15, 30))
	require.ErrorIs(t, err, ErrSchedulingConflict)

	var count int64
	require.NoError(t, f.db.Model(&models.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// back to back is fine
	_, err = f.book(other.ID, at(15, 0), at(16, 0))
	require.NoError(t, err)
	_, err = f.book(other.ID, at(13, 0), at(14, 0))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(f.mailer.Sent()) == 6
	}, time.Second, 10*time.Millisecond)
}

func TestBookSessionCancelledSlotIsFree(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	booking, err := f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, f.actor(f.student), booking.Session.ID, models.CancelSessionRequest{Reason: "sick"})
	require.NoError(t, err)

	_, err = f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)
}

func TestBookSessionValidation(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.book(f.student.ID, at(15, 0), at(14, 0))
	require.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = f.book(f.student.ID, at(8, 0), at(8, 30))
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)

	pending := testutil.CreateUser(t, f.db, "pending@example.com", models.RoleCoach)
	require.NoError(t, f.db.Create(&models.CoachProfile{UserID: pending.ID, Status: models.CoachStatusPending}).Error)
	_, err = f.svc.BookSession(context.Background(), f.student.ID, models.BookSessionRequest{
		CoachID:   pending.ID,
		CourseID:  f.course.ID,
		StartTime: at(14, 0),
		EndTime:   at(15, 0),
	})
	require.ErrorIs(t, err, ErrCoachNotApproved)
}

func TestCheckAvailabilityAndBusySlots(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	booking, err := f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)

	res, err := f.svc.CheckAvailability(ctx, f.coach.ID, at(14, 30), at(15, 30), 0)
	require.NoError(t, err)
	assert.False(t, res.Available)

	res, err = f.svc.CheckAvailability(ctx, f.coach.ID, at(14, 30), at(15, 30), booking.Session.ID)
	require.NoError(t, err)
	assert.True(t, res.Available)

	slots, err := f.svc.BusySlots(ctx, f.coach.ID, at(0, 0), at(23, 0))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, booking.Session.ID, slots[0].SessionID)
}

func TestRescheduleChecksConflictsExcludingItself(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	first, err := f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)
	_, err = f.book(f.student.ID, at(16, 0), at(17, 0))
	require.NoError(t, err)

	// overlapping its own old slot is fine
	moved, err := f.svc.Reschedule(ctx, f.actor(f.student), first.Session.ID, models.RescheduleSessionRequest{
		StartTime: at(14, 30),
		EndTime:   at(15, 30),
	})
	require.NoError(t, err)
	assert.True(t, moved.StartTime.Equal(at(14, 30)))

	_, err = f.svc.Reschedule(ctx, f.actor(f.student), first.Session.ID, models.RescheduleSessionRequest{
		StartTime: at(15, 30),
		EndTime:   at(16, 30),
	})
	require.ErrorIs(t, err, ErrSchedulingConflict)

	stored, err := f.svc.GetSession(ctx, f.actor(f.coach), first.Session.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartTime.Equal(at(14, 30)))
}

func TestRescheduleOnlyWhileScheduled(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	booking, err := f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)

	f.clock.Set(at(14, 0))
	_, err = f.svc.Start(ctx, f.actor(f.coach), booking.Session.ID)
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, f.actor(f.coach), booking.Session.ID, models.RescheduleSessionRequest{
		StartTime: at(18, 0),
		EndTime:   at(19, 0),
	})
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.Status)
}

func TestStartWindow(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	booking, err := f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)
	id := booking.Session.ID

	f.clock.Set(at(13, 54))
	_, err = f.svc.Start(ctx, f.actor(f.coach), id)
	require.Error(t, err)

	f.clock.Set(at(14, 6))
	_, err = f.svc.Start(ctx, f.actor(f.coach), id)
	require.Error(t, err)

	f.clock.Set(at(13, 56))
	_, err = f.svc.Start(ctx, f.actor(f.student), id)
	require.ErrorIs(t, err, Forbidden("Only the coach can perform this action"))

	started, err := f.svc.Start(ctx, f.actor(f.coach), id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)
}

func TestCompletedSessionIsTerminal(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	booking, err := f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)
	id := booking.Session.ID

	_, err = f.svc.Complete(ctx, f.actor(f.coach), id, models.CompleteSessionRequest{})
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	f.clock.Set(at(14, 0))
	_, err = f.svc.Start(ctx, f.actor(f.coach), id)
	require.NoError(t, err)

	f.clock.Set(at(15, 0))
	done, err := f.svc.Complete(ctx, f.actor(f.coach), id, models.CompleteSessionRequest{
		Notes:        "Worked on openings",
		RecordingURL: "https://videos.test/rec.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, done.Status)
	assert.Equal(t, "Worked on openings", done.Notes)
	assert.Equal(t, "https://videos.test/rec.mp4", done.RecordingURL)

	_, err = f.svc.Cancel(ctx, f.actor(f.coach), id, models.CancelSessionRequest{})
	require.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = f.svc.MarkNoShow(ctx, f.actor(f.coach), id)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = f.svc.Start(ctx, f.actor(f.coach), id)
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	// completed sessions no longer block the slot
	res, err := f.svc.CheckAvailability(ctx, f.coach.ID, at(14, 0), at(15, 0), 0)
	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestMarkNoShow(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	booking, err := f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)
	id := booking.Session.ID

	_, err = f.svc.MarkNoShow(ctx, f.actor(f.coach), id)
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	f.clock.Set(at(14, 20))
	noShow, err := f.svc.MarkNoShow(ctx, f.actor(f.coach), id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusNoShow, noShow.Status)
}

func TestSessionAccessAndListing(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	stranger := testutil.CreateUser(t, f.db, "stranger@example.com", models.RoleStudent)
	admin := testutil.CreateUser(t, f.db, "admin@example.com", models.RoleAdmin)

	booking, err := f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)

	_, err = f.svc.GetSession(ctx, f.actor(stranger), booking.Session.ID)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 403, appErr.Status)

	_, err = f.svc.GetSession(ctx, f.actor(admin), booking.Session.ID)
	require.NoError(t, err)

	mine, err := f.svc.ListSessions(ctx, f.actor(f.student), models.SessionFilter{Timeframe: "upcoming"})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.svc.ListSessions(ctx, f.actor(stranger), models.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, theirs)

	all, err := f.svc.ListSessions(ctx, f.actor(admin), models.SessionFilter{Status: models.SessionStatusScheduled})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCheckInQRCode(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	booking, err := f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)

	png, err := f.svc.CheckInQRCode(ctx, f.actor(f.student), booking.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	var stored models.Session
	require.NoError(t, f.db.First(&stored, booking.Session.ID).Error)
	assert.Len(t, stored.CheckInCode, 12)

	require.NoError(t, f.db.Model(&stored).Update("check_in_code", "").Error)
	_, err = f.svc.CheckInQRCode(ctx, f.actor(f.student), booking.Session.ID)
	assertStatus(t, err, 409)
}

func TestCheckInByCode(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	booking, err := f.book(f.student.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)
	var stored models.Session
	require.NoError(t, f.db.First(&stored, booking.Session.ID).Error)
	typed := strings.ToLower(stored.CheckInCode[:4]) + "-" + stored.CheckInCode[4:]

	_, err = f.svc.CheckIn(ctx, f.actor(f.coach), "NOPE")
	assertStatus(t, err, 404)

	// only the session's coach can use the code
	_, err = f.svc.CheckIn(ctx, f.actor(f.student), typed)
	assertStatus(t, err, 404)

	f.clock.Set(at(13, 58))
	started, err := f.svc.CheckIn(ctx, f.actor(f.coach), typed)
	require.NoError(t, err)
	assert.Equal(t, booking.Session.ID, started.ID)
	assert.Equal(t, models.SessionStatusInProgress, started.Status)
}
