package payment

import (
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"github.com/stripe/stripe-go/v74/webhook"
)

// Intent is the part of a Stripe PaymentIntent the services care about.
type Intent struct {
	ID            string
	ClientSecret  string
	Amount        int64
	Currency      string
	Status        string
	FailureReason string
	Metadata      map[string]string
}

type StripeService struct {
	webhookSecret string
}

func NewStripeService(secretKey, webhookSecret string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{
		webhookSecret: webhookSecret,
	}
}

// CreatePaymentIntent creates an automatic-payment-methods intent for
// amount (minor units) in currency. Metadata is echoed back on webhooks.
func (s *StripeService) CreatePaymentIntent(amount int64, currency, receiptEmail string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if receiptEmail != "" {
		params.ReceiptEmail = stripe.String(receiptEmail)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return toIntent(pi), nil
}

func (s *StripeService) GetPaymentIntent(id string) (*Intent, error) {
	pi, err := paymentintent.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment intent: %w", err)
	}
	return toIntent(pi), nil
}

// Refund refunds the full amount captured on the payment intent.
func (s *StripeService) Refund(paymentIntentID string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	r, err := refund.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to refund payment: %w", err)
	}
	return r.ID, nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
func (s *StripeService) ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	// API version mismatch'i ignore et
	return webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}
	if pi.LastPaymentError != nil {
		intent.FailureReason = pi.LastPaymentError.Msg
	}
	return intent
}
