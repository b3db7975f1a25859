package service

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/sefazor/coaching-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type courseFixture struct {
	db     *gorm.DB
	svc    *CourseService
	images *fakeImages
	coach  *models.User
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	db := testutil.NewDB(t)
	images := &fakeImages{}
	svc := NewCourseService(repository.NewCourseRepository(db), repository.NewCoachProfileRepository(db), images, zap.NewNop())
	return &courseFixture{
		db:     db,
		svc:    svc,
		images: images,
		coach:  testutil.CreateApprovedCoach(t, db, "coach@example.com", 6000),
	}
}

func courseRequest(title, cost string) models.CourseRequest {
	return models.CourseRequest{
		Title:              title,
		Category:           "chess",
		CreditCostPerChild: dec(cost),
		Capacity:           10,
	}
}

func TestCreateCourseRequiresApprovedCoach(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	pending := testutil.CreateUser(t, f.db, "pending@example.com", models.RoleCoach)
	require.NoError(t, f.db.Create(&models.CoachProfile{UserID: pending.ID, Status: models.CoachStatusPending}).Error)

	_, err := f.svc.Create(ctx, pending.ID, courseRequest("Openings", "10"))
	assert.ErrorIs(t, err, ErrCoachNotApproved)

	course, err := f.svc.Create(ctx, f.coach.ID, courseRequest("Openings", "10.50"))
	require.NoError(t, err)
	assert.False(t, course.IsPublished)
	assert.Equal(t, "usd", course.Currency)
}

func TestCourseValidation(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.coach.ID, courseRequest("Openings", "-1"))
	assertStatus(t, err, 400)

	_, err = f.svc.Create(ctx, f.coach.ID, courseRequest("Openings", "1.005"))
	assertStatus(t, err, 400)

	req := courseRequest("Openings", "10")
	start := at(10, 0)
	end := start.Add(-time.Hour)
	req.StartDate, req.EndDate = &start, &end
	_, err = f.svc.Create(ctx, f.coach.ID, req)
	assertStatus(t, err, 400)
}

func TestCourseVisibilityAndOwnership(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	coach := Actor{ID: f.coach.ID, Role: models.RoleCoach}
	parent := testutil.CreateUser(t, f.db, "parent@example.com", models.RoleParent)
	other := testutil.CreateApprovedCoach(t, f.db, "other@example.com", 5000)

	course, err := f.svc.Create(ctx, f.coach.ID, courseRequest("Endgames", "10"))
	require.NoError(t, err)

	// Drafts are hidden from the catalogue and from other users.
	_, err = f.svc.GetCourse(ctx, Actor{ID: parent.ID, Role: models.RoleParent}, course.ID)
	assertStatus(t, err, 404)
	page, err := f.svc.ListCatalogue(ctx, models.CourseFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = f.svc.SetPublished(ctx, Actor{ID: other.ID, Role: models.RoleCoach}, course.ID, true)
	assertStatus(t, err, 403)

	_, err = f.svc.SetPublished(ctx, coach, course.ID, true)
	require.NoError(t, err)

	got, err := f.svc.GetCourse(ctx, Actor{ID: parent.ID, Role: models.RoleParent}, course.ID)
	require.NoError(t, err)
	assert.Equal(t, "Endgames", got.Title)

	page, err = f.svc.ListCatalogue(ctx, models.CourseFilter{Search: "ENDG"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = f.svc.ListCatalogue(ctx, models.CourseFilter{Category: "piano"})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	mine, err := f.svc.ListMine(ctx, other.ID, models.CourseFilter{})
	require.NoError(t, err)
	assert.Zero(t, mine.Total)

	admin := Actor{ID: 999, Role: models.RoleAdmin}
	updated, err := f.svc.Update(ctx, admin, course.ID, courseRequest("Endgames II", "12"))
	require.NoError(t, err)
	assert.Equal(t, "Endgames II", updated.Title)
}

func TestDeleteCourseBlockedByActiveEnrollment(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	coach := Actor{ID: f.coach.ID, Role: models.RoleCoach}
	parent := testutil.CreateUser(t, f.db, "parent@example.com", models.RoleParent)

	course := createCourse(t, f.db, f.coach.ID, "10", true)
	child := &models.Child{ParentID: parent.ID, FullName: "Kid"}
	require.NoError(t, f.db.Create(child).Error)
	enrollment := &models.CourseEnrollment{CourseID: course.ID, ChildID: child.ID, ParentID: parent.ID, CreditsPaid: dec("10"), Status: models.EnrollmentStatusActive}
	require.NoError(t, f.db.Omit("Course", "Child").Create(enrollment).Error)

	assertStatus(t, f.svc.Delete(ctx, coach, course.ID), 409)

	require.NoError(t, f.db.Model(enrollment).Update("status", models.EnrollmentStatusCancelled).Error)
	require.NoError(t, f.svc.Delete(ctx, coach, course.ID))

	_, err := f.svc.GetCourse(ctx, coach, course.ID)
	assertStatus(t, err, 404)
}

func TestUploadThumbnailReplacesPrevious(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()
	coach := Actor{ID: f.coach.ID, Role: models.RoleCoach}
	course := createCourse(t, f.db, f.coach.ID, "10", true)

	first, err := f.svc.UploadThumbnail(ctx, coach, course.ID, strings.NewReader("png"), "cover.PNG")
	require.NoError(t, err)
	firstID := first.ThumbnailID
	assert.True(t, strings.HasSuffix(firstID, ".png"))
	assert.Contains(t, first.ThumbnailURL, "/thumbnail")
	assert.Equal(t, strconv.FormatUint(uint64(course.ID), 10), f.images.metadata["course_id"])

	second, err := f.svc.UploadThumbnail(ctx, coach, course.ID, strings.NewReader("png"), "cover2.png")
	require.NoError(t, err)
	assert.NotEqual(t, firstID, second.ThumbnailID)
	assert.Equal(t, []string{firstID}, f.images.deleted)

	require.NoError(t, f.svc.Delete(ctx, coach, course.ID))
	assert.Equal(t, []string{firstID, second.ThumbnailID}, f.images.deleted)
}

func TestChildService(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewChildService(repository.NewChildRepository(db), repository.NewEnrollmentRepository(db))
	ctx := context.Background()

	parent := testutil.CreateUser(t, db, "parent@example.com", models.RoleParent)
	stranger := testutil.CreateUser(t, db, "stranger@example.com", models.RoleParent)
	coach := testutil.CreateApprovedCoach(t, db, "coach@example.com", 6000)

	child, err := svc.Create(ctx, parent.ID, models.ChildRequest{FullName: " Mia "})
	require.NoError(t, err)
	assert.Equal(t, "Mia", child.FullName)

	_, err = svc.Get(ctx, stranger.ID, child.ID)
	assertStatus(t, err, 404)
	_, err = svc.Update(ctx, stranger.ID, child.ID, models.ChildRequest{FullName: "Stolen"})
	assertStatus(t, err, 404)

	updated, err := svc.Update(ctx, parent.ID, child.ID, models.ChildRequest{FullName: "Mia R.", Notes: "left handed"})
	require.NoError(t, err)
	assert.Equal(t, "left handed", updated.Notes)

	course := createCourse(t, db, coach.ID, "10", true)
	enrollment := &models.CourseEnrollment{CourseID: course.ID, ChildID: child.ID, ParentID: parent.ID, CreditsPaid: dec("10"), Status: models.EnrollmentStatusActive}
	require.NoError(t, db.Omit("Course", "Child").Create(enrollment).Error)
	assertStatus(t, svc.Delete(ctx, parent.ID, child.ID), 409)

	require.NoError(t, db.Model(enrollment).Update("status", models.EnrollmentStatusCancelled).Error)
	require.NoError(t, svc.Delete(ctx, parent.ID, child.ID))

	children, err := svc.List(ctx, parent.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestPackageService(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewPackageService(repository.NewCreditPackageRepository(db))
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreditPackageRequest{Name: "Empty", Credits: dec("0"), Price: 100})
	assertStatus(t, err, 400)
	_, err = svc.Create(ctx, models.CreditPackageRequest{Name: "Odd", Credits: dec("10.001"), Price: 100})
	assertStatus(t, err, 400)

	inactive := false
	hidden, err := svc.Create(ctx, models.CreditPackageRequest{Name: "Hidden", Credits: dec("5"), Price: 500, IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, hidden.IsActive)

	pkg, err := svc.Create(ctx, models.CreditPackageRequest{Name: "Trial", Credits: dec("10"), BonusCredits: dec("2.5"), Price: 999, Currency: "USD"})
	require.NoError(t, err)
	assert.True(t, pkg.IsActive)
	assert.Equal(t, "usd", pkg.Currency)

	_, err = svc.Create(ctx, models.CreditPackageRequest{Name: "Trial", Credits: dec("10"), Price: 999})
	assertStatus(t, err, 409)

	active, err := svc.GetAllPackages(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Trial", active[0].Name)

	_, err = svc.Deactivate(ctx, pkg.ID)
	require.NoError(t, err)
	active, err = svc.GetAllPackages(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.GetAllPackages(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.GetPackageByID(ctx, 9999)
	assertStatus(t, err, 404)
	_, err = svc.Deactivate(ctx, 9999)
	assertStatus(t, err, 404)
}
