package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/sefazor/coaching-backend/pkg/database"
	"github.com/sefazor/coaching-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type paymentFixture struct {
	db      *gorm.DB
	svc     *PaymentService
	ledger  *LedgerService
	gateway *fakeGateway
	mailer  *fakeMailer
	user    *models.User
	family  models.CreditPackage
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	db := testutil.NewDB(t)
	require.NoError(t, database.SeedCreditPackages(db))

	ledger := NewLedgerService(db, repository.NewCreditRepository(db), zap.NewNop())
	gateway := newFakeGateway()
	mailer := &fakeMailer{}
	svc := NewPaymentService(
		db,
		repository.NewPaymentRepository(db),
		repository.NewCreditPurchaseRepository(db),
		repository.NewCreditPackageRepository(db),
		repository.NewSessionRepository(db),
		repository.NewCoachProfileRepository(db),
		repository.NewUserRepository(db),
		ledger,
		gateway,
		mailer,
		zap.NewNop(),
		"usd",
	)

	f := &paymentFixture{db: db, svc: svc, ledger: ledger, gateway: gateway, mailer: mailer}
	f.user = testutil.CreateUser(t, db, "parent@example.com", models.RoleParent)
	require.NoError(t, db.Where("name = ?", "Family").First(&f.family).Error)
	return f
}

func intentEvent(t *testing.T, eventType, intentID string, extra map[string]interface{}) *stripe.Event {
	t.Helper()
	obj := map[string]interface{}{"id": intentID, "object": "payment_intent"}
	for k, v := range extra {
		obj[k] = v
	}
	return stripeEvent(t, eventType, obj)
}

func stripeEvent(t *testing.T, eventType string, object map[string]interface{}) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":     "evt_test",
		"object": "event",
		"type":   eventType,
		"data":   map[string]interface{}{"object": object},
	})
	require.NoError(t, err)

	var event stripe.Event
	require.NoError(t, json.Unmarshal(raw, &event))
	return &event
}

func (f *paymentFixture) balance(t *testing.T) string {
	t.Helper()
	b, err := f.ledger.GetOrCreateBalance(context.Background(), f.user.ID)
	require.NoError(t, err)
	return b.Balance.String()
}

func TestPurchaseCreditsWebhookGrantsOnce(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := f.svc.PurchaseCredits(ctx, f.user.ID, f.family.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(13999), resp.Amount)
	assert.NotEmpty(t, resp.ClientSecret)

	var purchase models.CreditPurchase
	require.NoError(t, f.db.First(&purchase).Error)
	assert.Equal(t, models.PurchaseStatusPending, purchase.Status)
	require.NotNil(t, purchase.PaymentID)
	assert.Equal(t, resp.PaymentID, *purchase.PaymentID)

	event := intentEvent(t, "payment_intent.succeeded", resp.PaymentIntentID, nil)
	require.NoError(t, f.svc.HandleWebhookEvent(ctx, event))
	require.NoError(t, f.svc.HandleWebhookEvent(ctx, event))

	assert.Equal(t, "165", f.balance(t))

	f.gateway.SetStatus(resp.PaymentIntentID, "succeeded")
	payment, err := f.svc.ConfirmPayment(ctx, f.user.ID, resp.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, "165", f.balance(t))

	var types []models.CreditTransactionType
	require.NoError(t, f.db.Model(&models.CreditTransaction{}).Order("id").Pluck("type", &types).Error)
	assert.Equal(t, []models.CreditTransactionType{models.CreditTypePurchase, models.CreditTypeBonus}, types)

	require.NoError(t, f.db.First(&purchase, purchase.ID).Error)
	assert.Equal(t, models.PurchaseStatusCompleted, purchase.Status)

	assert.Eventually(t, func() bool {
		return len(f.mailer.Sent()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPurchaseCreditsFailedThenRetried(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := f.svc.PurchaseCredits(ctx, f.user.ID, f.family.ID)
	require.NoError(t, err)

	failed := intentEvent(t, "payment_intent.payment_failed", resp.PaymentIntentID, map[string]interface{}{
		"last_payment_error": map[string]interface{}{"message": "card declined"},
	})
	require.NoError(t, f.svc.HandleWebhookEvent(ctx, failed))

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, resp.PaymentID).Error)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "card declined", payment.FailureReason)
	assert.Equal(t, "0", f.balance(t))

	require.NoError(t, f.svc.HandleWebhookEvent(ctx, intentEvent(t, "payment_intent.succeeded", resp.PaymentIntentID, nil)))
	assert.Equal(t, "165", f.balance(t))
}

func TestPurchaseCreditsGatewayFailure(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.failNext = true

	_, err := f.svc.PurchaseCredits(context.Background(), f.user.ID, f.family.ID)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 502, appErr.Status)

	var purchase models.CreditPurchase
	require.NoError(t, f.db.First(&purchase).Error)
	assert.Equal(t, models.PurchaseStatusFailed, purchase.Status)
}

func TestPurchaseCreditsInactivePackage(t *testing.T) {
	f := newPaymentFixture(t)
	require.NoError(t, f.db.Model(&f.family).Update("is_active", false).Error)

	_, err := f.svc.PurchaseCredits(context.Background(), f.user.ID, f.family.ID)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Status)
}

func TestChargeRefundedReclaimsRemainingCredits(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := f.svc.PurchaseCredits(ctx, f.user.ID, f.family.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleWebhookEvent(ctx, intentEvent(t, "payment_intent.succeeded", resp.PaymentIntentID, nil)))

	credit(t, f.ledger, f.user.ID, models.CreditTypeSpent, "100")

	refunded := stripeEvent(t, "charge.refunded", map[string]interface{}{
		"id":             "ch_1",
		"object":         "charge",
		"payment_intent": resp.PaymentIntentID,
	})
	require.NoError(t, f.svc.HandleWebhookEvent(ctx, refunded))
	require.NoError(t, f.svc.HandleWebhookEvent(ctx, refunded))

	assert.Equal(t, "0", f.balance(t))

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, resp.PaymentID).Error)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)

	audit, err := f.ledger.Audit(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, audit.Consistent)
}

func TestWebhookIgnoresUnknownIntents(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleWebhookEvent(ctx, intentEvent(t, "payment_intent.succeeded", "pi_elsewhere", nil)))
	require.NoError(t, f.svc.HandleWebhookEvent(ctx, stripeEvent(t, "customer.created", map[string]interface{}{"id": "cus_1"})))
}

func TestSessionPaymentAndRefund(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	coach := testutil.CreateApprovedCoach(t, f.db, "coach@example.com", 6000)
	course := createCourse(t, f.db, coach.ID, "10", true)
	session := models.Session{
		CoachID:   coach.ID,
		StudentID: f.user.ID,
		CourseID:  course.ID,
		StartTime: at(14, 0),
		EndTime:   at(15, 30),
		Status:    models.SessionStatusScheduled,
	}
	require.NoError(t, f.db.Create(&session).Error)

	resp, err := f.svc.CreateSessionPayment(ctx, f.user.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), resp.Amount)

	again, err := f.svc.CreateSessionPayment(ctx, f.user.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.PaymentID, again.PaymentID)

	_, err = f.svc.CreateSessionPayment(ctx, coach.ID, session.ID)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 403, appErr.Status)

	f.gateway.SetStatus(resp.PaymentIntentID, "succeeded")
	payment, err := f.svc.ConfirmPayment(ctx, f.user.ID, resp.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, "0", f.balance(t))

	_, err = f.svc.CreateSessionPayment(ctx, f.user.ID, session.ID)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.Status)

	refunded, err := f.svc.RefundPayment(ctx, 1, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)
	assert.Equal(t, "re_"+resp.PaymentIntentID, refunded.StripeRefundID)

	_, err = f.svc.RefundPayment(ctx, 1, payment.ID)
	require.ErrorIs(t, err, ErrPaymentNotRefundable)
}

func TestCreditPurchaseIsNotRefundable(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := f.svc.PurchaseCredits(ctx, f.user.ID, f.family.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleWebhookEvent(ctx, intentEvent(t, "payment_intent.succeeded", resp.PaymentIntentID, nil)))

	_, err = f.svc.RefundPayment(ctx, 1, resp.PaymentID)
	require.ErrorIs(t, err, ErrPaymentNotRefundable)
	assert.Empty(t, f.gateway.refunded)
}

func TestPaymentHistory(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	_, err := f.svc.PurchaseCredits(ctx, f.user.ID, f.family.ID)
	require.NoError(t, err)

	page, err := f.svc.History(ctx, f.user.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	purchases, err := f.svc.ListPurchases(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "Family", purchases[0].Package.Name)
}
