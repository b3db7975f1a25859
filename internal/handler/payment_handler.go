package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/service"
	"github.com/sefazor/coaching-backend/pkg/utils"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"
)

type PaymentService interface {
	ConfirmPayment(ctx context.Context, userID uint, paymentIntentID string) (*models.Payment, error)
	HandleWebhookEvent(ctx context.Context, event *stripe.Event) error
	History(ctx context.Context, userID uint, page, limit int) (*models.Page, error)
}

// WebhookVerifier is implemented by payment.StripeService.
type WebhookVerifier interface {
	ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}

type PaymentHandler struct {
	paymentService PaymentService
	webhooks       WebhookVerifier
	validator      *utils.Validator
	logger         *zap.Logger
}

func NewPaymentHandler(paymentService PaymentService, webhooks WebhookVerifier, validator *utils.Validator, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		webhooks:       webhooks,
		validator:      validator,
		logger:         logger.Named("webhook"),
	}
}

func (h *PaymentHandler) HandleStripeWebhook(c *fiber.Ctx) error {
	event, err := h.webhooks.ConstructEvent(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("rejected webhook", zap.Error(err))
		return service.BadRequest("Invalid webhook signature")
	}

	if err := h.paymentService.HandleWebhookEvent(c.UserContext(), &event); err != nil {
		h.logger.Error("webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PaymentHandler) ConfirmPayment(c *fiber.Ctx) error {
	var req models.ConfirmPaymentRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	payment, err := h.paymentService.ConfirmPayment(c.UserContext(), userID(c), req.PaymentIntentID)
	if err != nil {
		return err
	}

	return ok(c, payment, "Payment status updated")
}

func (h *PaymentHandler) GetPaymentHistory(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	payments, err := h.paymentService.History(c.UserContext(), userID(c), page, limit)
	if err != nil {
		return err
	}

	return ok(c, payments, "Payment history retrieved successfully")
}
