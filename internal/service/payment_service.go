package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentService struct {
	db        *gorm.DB
	payments  *repository.PaymentRepository
	purchases *repository.CreditPurchaseRepository
	packages  *repository.CreditPackageRepository
	sessions  *repository.SessionRepository
	coaches   *repository.CoachProfileRepository
	users     *repository.UserRepository
	ledger    *LedgerService
	gateway   PaymentGateway
	mailer    Mailer
	logger    *zap.Logger
	currency  string
}

func NewPaymentService(
	db *gorm.DB,
	payments *repository.PaymentRepository,
	purchases *repository.CreditPurchaseRepository,
	packages *repository.CreditPackageRepository,
	sessions *repository.SessionRepository,
	coaches *repository.CoachProfileRepository,
	users *repository.UserRepository,
	ledger *LedgerService,
	gateway PaymentGateway,
	mailer Mailer,
	logger *zap.Logger,
	defaultCurrency string,
) *PaymentService {
	if defaultCurrency == "" {
		defaultCurrency = "usd"
	}
	return &PaymentService{
		db:        db,
		payments:  payments,
		purchases: purchases,
		packages:  packages,
		sessions:  sessions,
		coaches:   coaches,
		users:     users,
		ledger:    ledger,
		gateway:   gateway,
		mailer:    mailer,
		logger:    logger.Named("payment"),
		currency:  strings.ToLower(defaultCurrency),
	}
}

func providerError(err error) error {
	return &AppError{Status: http.StatusBadGateway, Message: "Payment provider error", Err: err}
}

// CreateSessionPayment charges the student the coach's hourly rate for the
// session length. A pending intent is reused instead of creating another.
func (s *PaymentService) CreateSessionPayment(ctx context.Context, userID, sessionID uint) (*models.PaymentIntentResponse, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr(err, "Session not found")
	}
	if session.StudentID != userID {
		return nil, Forbidden("You can only pay for your own sessions")
	}
	if IsTerminal(session.Status) && session.Status != models.SessionStatusCompleted {
		return nil, Conflict("Session is no longer payable")
	}

	existing, err := s.payments.GetLatestForSession(ctx, sessionID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dbError(err)
	}
	if existing != nil {
		switch existing.Status {
		case models.PaymentStatusSucceeded:
			return nil, Conflict("Session is already paid")
		case models.PaymentStatusPending:
			intent, err := s.gateway.GetPaymentIntent(existing.StripePaymentIntentID)
			if err != nil {
				return nil, providerError(err)
			}
			return intentResponse(existing, intent.ClientSecret), nil
		}
	}

	profile, err := s.coaches.GetByUserID(ctx, session.CoachID)
	if err != nil {
		return nil, notFoundOr(err, "Coach not found")
	}
	minutes := int64(session.Duration().Minutes())
	amount := profile.HourlyRate * minutes / 60
	if amount <= 0 {
		return nil, BadRequest("Coach has no hourly rate configured")
	}
	currency := strings.ToLower(profile.Currency)
	if currency == "" {
		currency = s.currency
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	intent, err := s.gateway.CreatePaymentIntent(amount, currency, user.Email, map[string]string{
		"type":       string(models.PaymentTypeSession),
		"user_id":    strconv.FormatUint(uint64(userID), 10),
		"session_id": strconv.FormatUint(uint64(sessionID), 10),
	})
	if err != nil {
		return nil, providerError(err)
	}

	payment := &models.Payment{
		UserID:                userID,
		Type:                  models.PaymentTypeSession,
		SessionID:             &session.ID,
		Amount:                amount,
		Currency:              currency,
		Status:                models.PaymentStatusPending,
		StripePaymentIntentID: intent.ID,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, dbError(err)
	}

	s.logger.Info("session payment created",
		zap.Uint("payment_id", payment.ID),
		zap.Uint("session_id", sessionID),
		zap.Int64("amount", amount))
	return intentResponse(payment, intent.ClientSecret), nil
}

// PurchaseCredits opens a payment for a credit package. Credits are granted
// once Stripe reports the intent as succeeded.
func (s *PaymentService) PurchaseCredits(ctx context.Context, userID, packageID uint) (*models.PaymentIntentResponse, error) {
	pkg, err := s.packages.GetActiveByID(ctx, packageID)
	if err != nil {
		return nil, notFoundOr(err, "Package not found")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	currency := strings.ToLower(pkg.Currency)
	if currency == "" {
		currency = s.currency
	}

	purchase := &models.CreditPurchase{
		UserID:       userID,
		PackageID:    pkg.ID,
		Credits:      pkg.Credits,
		BonusCredits: pkg.BonusCredits,
		Amount:       pkg.Price,
		Currency:     currency,
		Status:       models.PurchaseStatusPending,
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		return nil, dbError(err)
	}

	intent, err := s.gateway.CreatePaymentIntent(pkg.Price, currency, user.Email, map[string]string{
		"type":        string(models.PaymentTypeCreditPurchase),
		"user_id":     strconv.FormatUint(uint64(userID), 10),
		"package_id":  strconv.FormatUint(uint64(pkg.ID), 10),
		"purchase_id": strconv.FormatUint(uint64(purchase.ID), 10),
	})
	if err != nil {
		if _, markErr := s.purchases.UpdateStatusIfCurrent(ctx, purchase.ID, models.PurchaseStatusFailed, models.PurchaseStatusPending); markErr != nil {
			s.logger.Error("failed to mark purchase failed", zap.Uint("purchase_id", purchase.ID), zap.Error(markErr))
		}
		return nil, providerError(err)
	}

	payment := &models.Payment{
		UserID:                userID,
		Type:                  models.PaymentTypeCreditPurchase,
		PurchaseID:            &purchase.ID,
		Amount:                pkg.Price,
		Currency:              currency,
		Status:                models.PaymentStatusPending,
		StripePaymentIntentID: intent.ID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
			return dbError(err)
		}
		return dbError(s.purchases.WithTx(tx).SetPayment(ctx, purchase.ID, payment.ID))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit purchase started",
		zap.Uint("user_id", userID),
		zap.Uint("package_id", pkg.ID),
		zap.Uint("payment_id", payment.ID))
	return intentResponse(payment, intent.ClientSecret), nil
}

// ConfirmPayment asks Stripe for the intent's current state and applies it.
// Safe to call any number of times, and concurrently with webhooks.
func (s *PaymentService) ConfirmPayment(ctx context.Context, userID uint, paymentIntentID string) (*models.Payment, error) {
	payment, err := s.payments.GetByIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, notFoundOr(err, "Payment not found")
	}
	if payment.UserID != userID {
		return nil, NotFound("Payment not found")
	}

	intent, err := s.gateway.GetPaymentIntent(paymentIntentID)
	if err != nil {
		return nil, providerError(err)
	}

	switch intent.Status {
	case string(stripe.PaymentIntentStatusSucceeded):
		err = s.markSucceeded(ctx, payment)
	case string(stripe.PaymentIntentStatusCanceled):
		err = s.markFailed(ctx, payment, models.PaymentStatusCancelled, intent.FailureReason)
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.payments.GetByID(ctx, payment.ID)
	if err != nil {
		return nil, dbError(err)
	}
	return updated, nil
}

// HandleWebhookEvent applies a verified Stripe event. Events for intents
// this API did not create are ignored.
func (s *PaymentService) HandleWebhookEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return BadRequest("Invalid payment intent payload")
		}
		payment, err := s.paymentForIntent(ctx, pi.ID)
		if err != nil || payment == nil {
			return err
		}

		switch event.Type {
		case "payment_intent.succeeded":
			return s.markSucceeded(ctx, payment)
		case "payment_intent.payment_failed":
			reason := ""
			if pi.LastPaymentError != nil {
				reason = pi.LastPaymentError.Msg
			}
			return s.markFailed(ctx, payment, models.PaymentStatusFailed, reason)
		default:
			return s.markFailed(ctx, payment, models.PaymentStatusCancelled, string(pi.CancellationReason))
		}

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return BadRequest("Invalid charge payload")
		}
		if charge.PaymentIntent == nil {
			return nil // Bizim sistemimizle ilgisi yok
		}
		payment, err := s.paymentForIntent(ctx, charge.PaymentIntent.ID)
		if err != nil || payment == nil {
			return err
		}
		refundID := ""
		if charge.Refunds != nil && len(charge.Refunds.Data) > 0 {
			refundID = charge.Refunds.Data[0].ID
		}
		return s.markRefunded(ctx, payment, refundID)

	default:
		s.logger.Debug("ignoring stripe event", zap.String("type", string(event.Type)))
		return nil
	}
}

func (s *PaymentService) paymentForIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	payment, err := s.payments.GetByIntentID(ctx, intentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Info("stripe event for unknown payment intent", zap.String("payment_intent", intentID))
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err)
	}
	return payment, nil
}

// markSucceeded flips the payment to SUCCEEDED and, for credit purchases,
// grants the credits in the same transaction. A payment that was already
// handled is left alone.
func (s *PaymentService) markSucceeded(ctx context.Context, payment *models.Payment) error {
	var (
		purchase *models.CreditPurchase
		balance  *models.CreditBalance
		applied  bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.payments.WithTx(tx).TransitionStatus(ctx, payment.ID, models.PaymentStatusSucceeded,
			map[string]interface{}{"failure_reason": ""},
			models.PaymentStatusPending, models.PaymentStatusFailed)
		if err != nil {
			return dbError(err)
		}
		if !ok {
			return nil
		}
		applied = true

		if payment.Type != models.PaymentTypeCreditPurchase || payment.PurchaseID == nil {
			return nil
		}

		purchaseRepo := s.purchases.WithTx(tx)
		purchase, err = purchaseRepo.GetByID(ctx, *payment.PurchaseID)
		if err != nil {
			return notFoundOr(err, "Credit purchase not found")
		}
		if _, err := purchaseRepo.UpdateStatusIfCurrent(ctx, purchase.ID, models.PurchaseStatusCompleted,
			models.PurchaseStatusPending, models.PurchaseStatusFailed); err != nil {
			return dbError(err)
		}

		packageName := ""
		if purchase.Package != nil {
			packageName = purchase.Package.Name
		}
		_, balance, err = s.ledger.ApplyTransactionTx(ctx, tx, payment.UserID, Posting{
			Type:          models.CreditTypePurchase,
			Amount:        purchase.Credits,
			Description:   fmt.Sprintf("Purchased %s package", packageName),
			ReferenceID:   &purchase.ID,
			ReferenceType: models.ReferencePurchase,
			Metadata:      map[string]interface{}{"payment_id": payment.ID, "package_id": purchase.PackageID},
		})
		if err != nil {
			return err
		}
		if purchase.BonusCredits.IsPositive() {
			_, balance, err = s.ledger.ApplyTransactionTx(ctx, tx, payment.UserID, Posting{
				Type:          models.CreditTypeBonus,
				Amount:        purchase.BonusCredits,
				Description:   fmt.Sprintf("Bonus credits for %s package", packageName),
				ReferenceID:   &purchase.ID,
				ReferenceType: models.ReferencePurchase,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil || !applied {
		return err
	}

	s.logger.Info("payment succeeded", zap.Uint("payment_id", payment.ID), zap.String("type", string(payment.Type)))

	if purchase != nil && balance != nil {
		user, err := s.users.GetByID(ctx, payment.UserID)
		if err != nil {
			s.logger.Warn("purchase email skipped", zap.Uint("payment_id", payment.ID), zap.Error(err))
			return nil
		}
		packageName := ""
		if purchase.Package != nil {
			packageName = purchase.Package.Name
		}
		credits, bonus, total := purchase.Credits.String(), purchase.BonusCredits.String(), balance.Balance.String()
		notify(s.logger, s.mailer, "credit_purchase", user.Email, func() error {
			return s.mailer.SendCreditPurchaseEmail(user.Email, user.FullName, packageName, credits, bonus, total)
		})
	}
	return nil
}

func (s *PaymentService) markFailed(ctx context.Context, payment *models.Payment, to models.PaymentStatus, reason string) error {
	from := []models.PaymentStatus{models.PaymentStatusPending}
	if to == models.PaymentStatusCancelled {
		from = append(from, models.PaymentStatusFailed)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.payments.WithTx(tx).TransitionStatus(ctx, payment.ID, to,
			map[string]interface{}{"failure_reason": reason}, from...)
		if err != nil {
			return dbError(err)
		}
		if !ok || payment.PurchaseID == nil {
			return nil
		}
		s.logger.Info("payment not completed",
			zap.Uint("payment_id", payment.ID),
			zap.String("status", string(to)),
			zap.String("reason", reason))
		_, err = s.purchases.WithTx(tx).UpdateStatusIfCurrent(ctx, *payment.PurchaseID,
			models.PurchaseStatusFailed, models.PurchaseStatusPending)
		return dbError(err)
	})
}

// markRefunded records a refund. Credits from a refunded purchase are taken
// back, but never more than the user still holds.
func (s *PaymentService) markRefunded(ctx context.Context, payment *models.Payment, refundID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		extra := map[string]interface{}{}
		if refundID != "" {
			extra["stripe_refund_id"] = refundID
		}
		ok, err := s.payments.WithTx(tx).TransitionStatus(ctx, payment.ID, models.PaymentStatusRefunded, extra,
			models.PaymentStatusSucceeded)
		if err != nil {
			return dbError(err)
		}
		if !ok || payment.Type != models.PaymentTypeCreditPurchase || payment.PurchaseID == nil {
			return nil
		}

		purchaseRepo := s.purchases.WithTx(tx)
		purchase, err := purchaseRepo.GetByID(ctx, *payment.PurchaseID)
		if err != nil {
			return notFoundOr(err, "Credit purchase not found")
		}
		if _, err := purchaseRepo.UpdateStatusIfCurrent(ctx, purchase.ID, models.PurchaseStatusRefunded,
			models.PurchaseStatusCompleted); err != nil {
			return dbError(err)
		}

		credits := s.ledger.credits.WithTx(tx)
		if err := credits.EnsureBalance(ctx, payment.UserID, s.ledger.now()); err != nil {
			return dbError(err)
		}
		current, err := credits.LockBalance(ctx, payment.UserID)
		if err != nil {
			return dbError(err)
		}
		reclaim := decimal.Min(purchase.Credits.Add(purchase.BonusCredits), current.Balance)
		if !reclaim.IsPositive() {
			return nil
		}
		_, _, err = s.ledger.ApplyTransactionTx(ctx, tx, payment.UserID, Posting{
			Type:          models.CreditTypeExpired,
			Amount:        reclaim,
			Description:   "Credits reversed after refund",
			ReferenceID:   &purchase.ID,
			ReferenceType: models.ReferencePurchase,
			Metadata:      map[string]interface{}{"payment_id": payment.ID},
		})
		if err == nil {
			s.logger.Warn("credit purchase refunded outside the API",
				zap.Uint("payment_id", payment.ID),
				zap.String("reclaimed", reclaim.String()))
		}
		return err
	})
}

// RefundPayment refunds a succeeded session payment in full. Credit
// purchases are not refundable here since the credits may already be spent.
func (s *PaymentService) RefundPayment(ctx context.Context, adminID, paymentID uint) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundOr(err, "Payment not found")
	}
	if payment.Type != models.PaymentTypeSession || payment.Status != models.PaymentStatusSucceeded {
		return nil, ErrPaymentNotRefundable
	}

	refundID, err := s.gateway.Refund(payment.StripePaymentIntentID)
	if err != nil {
		return nil, providerError(err)
	}
	if err := s.markRefunded(ctx, payment, refundID); err != nil {
		return nil, err
	}

	s.logger.Info("payment refunded",
		zap.Uint("payment_id", payment.ID),
		zap.Uint("admin_id", adminID),
		zap.String("refund_id", refundID))

	updated, err := s.payments.GetByID(ctx, payment.ID)
	if err != nil {
		return nil, dbError(err)
	}
	return updated, nil
}

// History lists payments. userID 0 lists every user's payments.
func (s *PaymentService) History(ctx context.Context, userID uint, page, limit int) (*models.Page, error) {
	payments, total, err := s.payments.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, dbError(err)
	}
	page, limit = repository.NormalizePage(page, limit)
	return &models.Page{Items: payments, Total: total, Page: page, Limit: limit}, nil
}

func (s *PaymentService) ListPurchases(ctx context.Context, userID uint) ([]models.CreditPurchase, error) {
	purchases, err := s.purchases.ListByUser(ctx, userID)
	if err != nil {
		return nil, dbError(err)
	}
	return purchases, nil
}

func intentResponse(payment *models.Payment, clientSecret string) *models.PaymentIntentResponse {
	return &models.PaymentIntentResponse{
		PaymentID:       payment.ID,
		PaymentIntentID: payment.StripePaymentIntentID,
		ClientSecret:    clientSecret,
		Amount:          payment.Amount,
		Currency:        payment.Currency,
	}
}
