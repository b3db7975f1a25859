package service

import (
	"context"

	"github.com/sefazor/coaching-backend/pkg/email"
	"github.com/sefazor/coaching-backend/pkg/payment"
	"go.uber.org/zap"
)

// Mailer is implemented by email.EmailService.
type Mailer interface {
	SendWelcomeEmail(to, fullName string) error
	SendVerificationEmail(to, fullName, token string) error
	SendPasswordResetEmail(to, token string) error
	SendCoachApprovedEmail(to, fullName string) error
	SendCoachRejectedEmail(to, fullName, reason string) error
	SendSessionBookedEmail(e email.SessionEmail) error
	SendSessionRescheduledEmail(e email.SessionEmail) error
	SendSessionCancelledEmail(e email.SessionEmail) error
	SendEnrollmentConfirmedEmail(to, fullName, courseTitle string, childCount int, credits, balance string) error
	SendCreditPurchaseEmail(to, fullName, packageName, credits, bonus, balance string) error
	// Go runs send in the background and tracks it for shutdown.
	Go(send func())
}

// PaymentGateway is implemented by payment.StripeService.
type PaymentGateway interface {
	CreatePaymentIntent(amount int64, currency, receiptEmail string, metadata map[string]string) (*payment.Intent, error)
	GetPaymentIntent(id string) (*payment.Intent, error)
	Refund(paymentIntentID string) (string, error)
}

type CaptchaVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

type QRGenerator interface {
	URL(code string) string
	CheckInPNG(code string, size int) ([]byte, error)
}

// notify sends an email in the background. Failures are logged and never
// reach the caller.
func notify(logger *zap.Logger, mailer Mailer, kind, to string, send func() error) {
	mailer.Go(func() {
		if err := send(); err != nil {
			logger.Warn("email notification failed",
				zap.String("kind", kind),
				zap.String("to", to),
				zap.Error(err))
		}
	})
}
