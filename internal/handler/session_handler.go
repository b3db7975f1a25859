package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/service"
	"github.com/sefazor/coaching-backend/pkg/utils"
)

type SessionService interface {
	BookSession(ctx context.Context, studentID uint, req models.BookSessionRequest) (*models.SessionBooking, error)
	Reschedule(ctx context.Context, actor service.Actor, sessionID uint, req models.RescheduleSessionRequest) (*models.Session, error)
	Start(ctx context.Context, actor service.Actor, sessionID uint) (*models.Session, error)
	Complete(ctx context.Context, actor service.Actor, sessionID uint, req models.CompleteSessionRequest) (*models.Session, error)
	Cancel(ctx context.Context, actor service.Actor, sessionID uint, req models.CancelSessionRequest) (*models.Session, error)
	MarkNoShow(ctx context.Context, actor service.Actor, sessionID uint) (*models.Session, error)
	ListSessions(ctx context.Context, actor service.Actor, filter models.SessionFilter) ([]models.Session, error)
	GetSession(ctx context.Context, actor service.Actor, sessionID uint) (*models.Session, error)
	CheckInQRCode(ctx context.Context, actor service.Actor, sessionID uint) ([]byte, error)
	CheckIn(ctx context.Context, actor service.Actor, code string) (*models.Session, error)
}

type SessionPaymentService interface {
	CreateSessionPayment(ctx context.Context, userID, sessionID uint) (*models.PaymentIntentResponse, error)
}

type SessionHandler struct {
	sessionService SessionService
	payments       SessionPaymentService
	validator      *utils.Validator
}

func NewSessionHandler(sessionService SessionService, payments SessionPaymentService, validator *utils.Validator) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		payments:       payments,
		validator:      validator,
	}
}

func (h *SessionHandler) BookSession(c *fiber.Ctx) error {
	var req models.BookSessionRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	booking, err := h.sessionService.BookSession(c.UserContext(), userID(c), req)
	if err != nil {
		return err
	}

	return created(c, booking, "Session booked successfully")
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	filter := models.SessionFilter{
		Status:    models.SessionStatus(strings.ToUpper(c.Query("status"))),
		Timeframe: strings.ToLower(c.Query("timeframe")),
	}
	switch filter.Timeframe {
	case "", "upcoming", "past":
	default:
		return service.BadRequest("timeframe must be upcoming or past")
	}

	sessions, err := h.sessionService.ListSessions(c.UserContext(), actorFrom(c), filter)
	if err != nil {
		return err
	}

	return ok(c, sessions, "Sessions retrieved successfully")
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	session, err := h.sessionService.GetSession(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}

	return ok(c, session, "Session retrieved successfully")
}

func (h *SessionHandler) Reschedule(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.RescheduleSessionRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	session, err := h.sessionService.Reschedule(c.UserContext(), actorFrom(c), id, req)
	if err != nil {
		return err
	}

	return ok(c, session, "Session rescheduled successfully")
}

func (h *SessionHandler) Start(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	session, err := h.sessionService.Start(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}

	return ok(c, session, "Session started")
}

func (h *SessionHandler) Complete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.CompleteSessionRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	session, err := h.sessionService.Complete(c.UserContext(), actorFrom(c), id, req)
	if err != nil {
		return err
	}

	return ok(c, session, "Session completed")
}

func (h *SessionHandler) Cancel(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.CancelSessionRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, h.validator, &req); err != nil {
			return err
		}
	}

	session, err := h.sessionService.Cancel(c.UserContext(), actorFrom(c), id, req)
	if err != nil {
		return err
	}

	return ok(c, session, "Session cancelled")
}

func (h *SessionHandler) MarkNoShow(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	session, err := h.sessionService.MarkNoShow(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}

	return ok(c, session, "Session marked as no-show")
}

// QRCode serves the check-in code as a PNG.
func (h *SessionHandler) QRCode(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	png, err := h.sessionService.CheckInQRCode(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

func (h *SessionHandler) CheckIn(c *fiber.Ctx) error {
	var req models.CheckInRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	session, err := h.sessionService.CheckIn(c.UserContext(), actorFrom(c), req.Code)
	if err != nil {
		return err
	}

	return ok(c, session, "Checked in, session started")
}

func (h *SessionHandler) Pay(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	intent, err := h.payments.CreateSessionPayment(c.UserContext(), userID(c), id)
	if err != nil {
		return err
	}

	return created(c, intent, "Payment created successfully")
}
