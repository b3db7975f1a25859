package service

import (
	"context"
	"testing"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/sefazor/coaching-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdminAdjustCredits(t *testing.T) {
	ledger, db := newLedger(t)
	svc := NewAdminService(repository.NewUserRepository(db), repository.NewStatsRepository(db), ledger, zap.NewNop())
	ctx := context.Background()

	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	parent := testutil.CreateUser(t, db, "parent@example.com", models.RoleParent)

	txn, balance, err := svc.AdjustCredits(ctx, admin.ID, parent.ID, models.AdjustCreditsRequest{
		Type:        models.CreditTypeBonus,
		Amount:      dec("25"),
		Description: "Goodwill",
	})
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(dec("25")))
	assert.Equal(t, models.ReferenceAdmin, txn.ReferenceType)
	require.NotNil(t, txn.ReferenceID)
	assert.Equal(t, admin.ID, *txn.ReferenceID)

	// Manual debits obey the same floor as everything else.
	_, _, err = svc.AdjustCredits(ctx, admin.ID, parent.ID, models.AdjustCreditsRequest{
		Type:        models.CreditTypeExpired,
		Amount:      dec("30"),
		Description: "Expiry",
	})
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	_, balance, err = svc.AdjustCredits(ctx, admin.ID, parent.ID, models.AdjustCreditsRequest{
		Type:        models.CreditTypeExpired,
		Amount:      dec("5"),
		Description: "Expiry",
	})
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(dec("20")))

	for _, typ := range []models.CreditTransactionType{models.CreditTypePurchase, models.CreditTypeTransfer} {
		_, _, err = svc.AdjustCredits(ctx, admin.ID, parent.ID, models.AdjustCreditsRequest{Type: typ, Amount: dec("1"), Description: "x"})
		assertStatus(t, err, 400)
	}

	_, _, err = svc.AdjustCredits(ctx, admin.ID, 9999, models.AdjustCreditsRequest{Type: models.CreditTypeBonus, Amount: dec("1"), Description: "x"})
	assertStatus(t, err, 404)
}

func TestAdminStats(t *testing.T) {
	ledger, db := newLedger(t)
	svc := NewAdminService(repository.NewUserRepository(db), repository.NewStatsRepository(db), ledger, zap.NewNop())
	ctx := context.Background()

	parent := testutil.CreateUser(t, db, "parent@example.com", models.RoleParent)
	coach := testutil.CreateApprovedCoach(t, db, "coach@example.com", 6000)
	pending := testutil.CreateUser(t, db, "pending@example.com", models.RoleCoach)
	require.NoError(t, db.Create(&models.CoachProfile{UserID: pending.ID, Status: models.CoachStatusPending}).Error)

	course := createCourse(t, db, coach.ID, "10", true)
	require.NoError(t, db.Omit("Course").Create(&models.Session{
		CoachID: coach.ID, StudentID: parent.ID, CourseID: course.ID,
		StartTime: at(10, 0), EndTime: at(11, 0), Status: models.SessionStatusScheduled,
	}).Error)
	require.NoError(t, db.Create(&models.Payment{
		UserID: parent.ID, Type: models.PaymentTypeSession, Amount: 6000, Currency: "usd",
		Status: models.PaymentStatusSucceeded, StripePaymentIntentID: "pi_1",
	}).Error)
	credit(t, ledger, parent.ID, models.CreditTypePurchase, "40")

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.UsersByRole[models.RoleParent])
	assert.EqualValues(t, 2, stats.UsersByRole[models.RoleCoach])
	assert.EqualValues(t, 1, stats.PendingCoaches)
	assert.EqualValues(t, 1, stats.SessionsByStatus[models.SessionStatusScheduled])
	require.Len(t, stats.Revenue, 1)
	assert.EqualValues(t, 6000, stats.Revenue[0].Amount)
	assert.True(t, stats.Credits.OutstandingBalance.Equal(dec("40")))
}
