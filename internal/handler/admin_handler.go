package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/pkg/utils"
)

type AdminService interface {
	AdjustCredits(ctx context.Context, adminID, userID uint, req models.AdjustCreditsRequest) (*models.CreditTransaction, *models.CreditBalance, error)
	Stats(ctx context.Context) (*models.AdminStats, error)
}

type UserDirectory interface {
	ListUsers(ctx context.Context, role models.Role, page, limit int) (*models.Page, error)
	UpdateRole(ctx context.Context, adminID, userID uint, role models.Role) (*models.User, error)
}

type CoachReviewService interface {
	ListByStatus(ctx context.Context, status models.CoachStatus, page, limit int) (*models.Page, error)
	Approve(ctx context.Context, adminID, coachID uint) (*models.CoachProfile, error)
	Reject(ctx context.Context, adminID, coachID uint, reason string) (*models.CoachProfile, error)
}

type LedgerAuditor interface {
	Audit(ctx context.Context, userID uint) (*models.LedgerAudit, error)
	History(ctx context.Context, userID uint, filter models.CreditHistoryFilter) (*models.Page, error)
}

type PaymentAdminService interface {
	RefundPayment(ctx context.Context, adminID, paymentID uint) (*models.Payment, error)
	History(ctx context.Context, userID uint, page, limit int) (*models.Page, error)
}

type AdminHandler struct {
	adminService AdminService
	users        UserDirectory
	coaches      CoachReviewService
	ledger       LedgerAuditor
	payments     PaymentAdminService
	validator    *utils.Validator
}

func NewAdminHandler(
	adminService AdminService,
	users UserDirectory,
	coaches CoachReviewService,
	ledger LedgerAuditor,
	payments PaymentAdminService,
	validator *utils.Validator,
) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		users:        users,
		coaches:      coaches,
		ledger:       ledger,
		payments:     payments,
		validator:    validator,
	}
}

func (h *AdminHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.adminService.Stats(c.UserContext())
	if err != nil {
		return err
	}

	return ok(c, stats, "Stats retrieved successfully")
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	role := models.Role(strings.ToUpper(c.Query("role")))

	users, err := h.users.ListUsers(c.UserContext(), role, page, limit)
	if err != nil {
		return err
	}

	return ok(c, users, "Users retrieved successfully")
}

func (h *AdminHandler) UpdateUserRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.UpdateRoleRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateRole(c.UserContext(), userID(c), id, req.Role)
	if err != nil {
		return err
	}

	return ok(c, user, "Role updated successfully")
}

func (h *AdminHandler) ListCoaches(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	status := models.CoachStatus(strings.ToUpper(c.Query("status")))

	coaches, err := h.coaches.ListByStatus(c.UserContext(), status, page, limit)
	if err != nil {
		return err
	}

	return ok(c, coaches, "Coaches retrieved successfully")
}

func (h *AdminHandler) ApproveCoach(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	profile, err := h.coaches.Approve(c.UserContext(), userID(c), id)
	if err != nil {
		return err
	}

	return ok(c, profile, "Coach approved")
}

func (h *AdminHandler) RejectCoach(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.RejectCoachRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	profile, err := h.coaches.Reject(c.UserContext(), userID(c), id, req.Reason)
	if err != nil {
		return err
	}

	return ok(c, profile, "Coach rejected")
}

func (h *AdminHandler) AdjustCredits(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.AdjustCreditsRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	txn, balance, err := h.adminService.AdjustCredits(c.UserContext(), userID(c), id, req)
	if err != nil {
		return err
	}

	return created(c, fiber.Map{
		"transaction": txn,
		"balance":     balance,
	}, "Credits adjusted successfully")
}

func (h *AdminHandler) UserCreditHistory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	page, limit := pageParams(c)

	history, err := h.ledger.History(c.UserContext(), id, models.CreditHistoryFilter{
		Type:  models.CreditTransactionType(strings.ToUpper(c.Query("type"))),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		return err
	}

	return ok(c, history, "Credit history retrieved successfully")
}

func (h *AdminHandler) AuditLedger(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	audit, err := h.ledger.Audit(c.UserContext(), id)
	if err != nil {
		return err
	}

	return ok(c, audit, "Ledger audit completed")
}

func (h *AdminHandler) ListPayments(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	payments, err := h.payments.History(c.UserContext(), uint(c.QueryInt("user_id", 0)), page, limit)
	if err != nil {
		return err
	}

	return ok(c, payments, "Payments retrieved successfully")
}

func (h *AdminHandler) RefundPayment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.payments.RefundPayment(c.UserContext(), userID(c), id)
	if err != nil {
		return err
	}

	return ok(c, payment, "Payment refunded")
}
