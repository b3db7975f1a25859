package service

import (
	"context"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"go.uber.org/zap"
)

// Types an admin may post by hand. Purchases only come from Stripe and
// transfers only from Transfer.
var adjustableCreditTypes = map[models.CreditTransactionType]bool{
	models.CreditTypeBonus:   true,
	models.CreditTypeEarned:  true,
	models.CreditTypeRefund:  true,
	models.CreditTypeExpired: true,
	models.CreditTypeSpent:   true,
}

type AdminService struct {
	users  *repository.UserRepository
	stats  *repository.StatsRepository
	ledger *LedgerService
	logger *zap.Logger
}

func NewAdminService(users *repository.UserRepository, stats *repository.StatsRepository, ledger *LedgerService, logger *zap.Logger) *AdminService {
	return &AdminService{
		users:  users,
		stats:  stats,
		ledger: ledger,
		logger: logger.Named("admin"),
	}
}

// AdjustCredits posts a manual ledger entry. It goes through the same
// floor check as every other posting.
func (s *AdminService) AdjustCredits(ctx context.Context, adminID, userID uint, req models.AdjustCreditsRequest) (*models.CreditTransaction, *models.CreditBalance, error) {
	if !adjustableCreditTypes[req.Type] {
		return nil, nil, BadRequest("This transaction type cannot be posted manually")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, nil, notFoundOr(err, "User not found")
	}

	txn, balance, err := s.ledger.ApplyTransaction(ctx, userID, Posting{
		Type:          req.Type,
		Amount:        req.Amount,
		Description:   req.Description,
		ReferenceID:   &adminID,
		ReferenceType: models.ReferenceAdmin,
		Metadata:      map[string]interface{}{"admin_id": adminID},
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("credits adjusted",
		zap.Uint("admin_id", adminID),
		zap.Uint("user_id", userID),
		zap.String("type", string(req.Type)),
		zap.String("amount", req.Amount.String()))
	return txn, balance, nil
}

func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	users, err := s.stats.UsersByRole(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	pending, err := s.stats.CountPendingCoaches(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	sessions, err := s.stats.SessionsByStatus(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	enrollments, err := s.stats.CountActiveEnrollments(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	revenue, err := s.stats.Revenue(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	credits, err := s.ledger.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &models.AdminStats{
		UsersByRole:       users,
		PendingCoaches:    pending,
		SessionsByStatus:  sessions,
		ActiveEnrollments: enrollments,
		Revenue:           revenue,
		Credits:           credits,
	}, nil
}
