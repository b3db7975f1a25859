package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/pkg/utils"
	"github.com/shopspring/decimal"
)

type LedgerService interface {
	GetOrCreateBalance(ctx context.Context, userID uint) (*models.CreditBalance, error)
	History(ctx context.Context, userID uint, filter models.CreditHistoryFilter) (*models.Page, error)
	Summary(ctx context.Context, userID uint) (*models.CreditSummary, error)
	Transfer(ctx context.Context, fromUserID, toUserID uint, amount decimal.Decimal, description string) (*models.CreditTransaction, error)
}

type EnrollmentService interface {
	EnrollWithCredits(ctx context.Context, userID uint, req models.EnrollWithCreditsRequest) (*models.EnrollmentResult, error)
	CancelEnrollment(ctx context.Context, userID, enrollmentID uint) (*models.CourseEnrollment, error)
	ListEnrollments(ctx context.Context, userID uint) ([]models.CourseEnrollment, error)
	ListCourseEnrollments(ctx context.Context, coachID, courseID uint, isAdmin bool) ([]models.CourseEnrollment, error)
}

type CreditPurchaseService interface {
	PurchaseCredits(ctx context.Context, userID, packageID uint) (*models.PaymentIntentResponse, error)
	ListPurchases(ctx context.Context, userID uint) ([]models.CreditPurchase, error)
}

// CreditHandler serves balances, history, package purchases, transfers
// and credit-paid enrollments.
type CreditHandler struct {
	ledger      LedgerService
	enrollments EnrollmentService
	purchases   CreditPurchaseService
	validator   *utils.Validator
}

func NewCreditHandler(ledger LedgerService, enrollments EnrollmentService, purchases CreditPurchaseService, validator *utils.Validator) *CreditHandler {
	return &CreditHandler{
		ledger:      ledger,
		enrollments: enrollments,
		purchases:   purchases,
		validator:   validator,
	}
}

func (h *CreditHandler) GetBalance(c *fiber.Ctx) error {
	balance, err := h.ledger.GetOrCreateBalance(c.UserContext(), userID(c))
	if err != nil {
		return err
	}

	return ok(c, balance, "Balance retrieved successfully")
}

func (h *CreditHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.ledger.Summary(c.UserContext(), userID(c))
	if err != nil {
		return err
	}

	return ok(c, summary, "Credit summary retrieved successfully")
}

func (h *CreditHandler) GetHistory(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	filter := models.CreditHistoryFilter{
		Type:  models.CreditTransactionType(strings.ToUpper(c.Query("type"))),
		Page:  page,
		Limit: limit,
	}
	history, err := h.ledger.History(c.UserContext(), userID(c), filter)
	if err != nil {
		return err
	}

	return ok(c, history, "Credit history retrieved successfully")
}

func (h *CreditHandler) PurchaseCredits(c *fiber.Ctx) error {
	var req models.PurchaseCreditsRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	intent, err := h.purchases.PurchaseCredits(c.UserContext(), userID(c), req.PackageID)
	if err != nil {
		return err
	}

	return created(c, intent, "Payment created successfully")
}

func (h *CreditHandler) GetPurchases(c *fiber.Ctx) error {
	purchases, err := h.purchases.ListPurchases(c.UserContext(), userID(c))
	if err != nil {
		return err
	}

	return ok(c, purchases, "Purchases retrieved successfully")
}

func (h *CreditHandler) Transfer(c *fiber.Ctx) error {
	var req models.TransferCreditsRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	txn, err := h.ledger.Transfer(c.UserContext(), userID(c), req.ToUserID, req.Amount, req.Description)
	if err != nil {
		return err
	}

	return created(c, txn, "Credits transferred successfully")
}

func (h *CreditHandler) Enroll(c *fiber.Ctx) error {
	var req models.EnrollWithCreditsRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	result, err := h.enrollments.EnrollWithCredits(c.UserContext(), userID(c), req)
	if err != nil {
		return err
	}

	return created(c, result, "Enrollment successful")
}

func (h *CreditHandler) ListEnrollments(c *fiber.Ctx) error {
	enrollments, err := h.enrollments.ListEnrollments(c.UserContext(), userID(c))
	if err != nil {
		return err
	}

	return ok(c, enrollments, "Enrollments retrieved successfully")
}

func (h *CreditHandler) CancelEnrollment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	enrollment, err := h.enrollments.CancelEnrollment(c.UserContext(), userID(c), id)
	if err != nil {
		return err
	}

	return ok(c, enrollment, "Enrollment cancelled and credits refunded")
}

// CourseRoster lists a course's enrollments for its coach or an admin.
func (h *CreditHandler) CourseRoster(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	actor := actorFrom(c)
	enrollments, err := h.enrollments.ListCourseEnrollments(c.UserContext(), actor.ID, id, actor.IsAdmin())
	if err != nil {
		return err
	}

	return ok(c, enrollments, "Enrollments retrieved successfully")
}
