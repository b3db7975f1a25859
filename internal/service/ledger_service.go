package service

import (
	"context"
	"strings"
	"time"

	"github.com/sefazor/coaching-backend/internal/models"
	"github.com/sefazor/coaching-backend/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Posting is one ledger entry as requested by a caller. Amount is always
// the unsigned magnitude; the ledger decides the sign from Type.
type Posting struct {
	Type          models.CreditTransactionType
	Amount        decimal.Decimal
	Description   string
	ReferenceID   *uint
	ReferenceType string
	Metadata      map[string]interface{}
}

// LedgerService owns every write to credit_balances and
// credit_transactions. A balance change and its transaction row are
// always committed together.
type LedgerService struct {
	db      *gorm.DB
	credits *repository.CreditRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewLedgerService(db *gorm.DB, credits *repository.CreditRepository, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		db:      db,
		credits: credits,
		logger:  logger.Named("ledger"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreateBalance returns the user's balance, creating a zero row on
// first use.
func (s *LedgerService) GetOrCreateBalance(ctx context.Context, userID uint) (*models.CreditBalance, error) {
	if err := s.credits.EnsureBalance(ctx, userID, s.now()); err != nil {
		return nil, dbError(err)
	}
	balance, err := s.credits.GetBalance(ctx, userID)
	if err != nil {
		return nil, dbError(err)
	}
	return balance, nil
}

func (s *LedgerService) ApplyTransaction(ctx context.Context, userID uint, p Posting) (*models.CreditTransaction, *models.CreditBalance, error) {
	var (
		txn     *models.CreditTransaction
		balance *models.CreditBalance
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, balance, err = s.ApplyTransactionTx(ctx, tx, userID, p)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return txn, balance, nil
}

// LockBalanceTx creates the user's balance row if needed and holds its lock
// until tx ends.
func (s *LedgerService) LockBalanceTx(ctx context.Context, tx *gorm.DB, userID uint) (*models.CreditBalance, error) {
	repo := s.credits.WithTx(tx)
	if err := repo.EnsureBalance(ctx, userID, s.now()); err != nil {
		return nil, dbError(err)
	}
	balance, err := repo.LockBalance(ctx, userID)
	if err != nil {
		return nil, dbError(err)
	}
	return balance, nil
}

// ApplyTransactionTx posts p inside the caller's transaction. The caller
// must roll back if it returns an error.
func (s *LedgerService) ApplyTransactionTx(ctx context.Context, tx *gorm.DB, userID uint, p Posting) (*models.CreditTransaction, *models.CreditBalance, error) {
	if err := validatePosting(&p); err != nil {
		return nil, nil, err
	}

	balance, err := s.LockBalanceTx(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}

	repo := s.credits.WithTx(tx)
	signed := p.Amount
	if p.Type.IsDebit() {
		signed = signed.Neg()
	}

	txn, err := s.post(ctx, repo, balance, p, signed)
	if err != nil {
		return nil, nil, err
	}
	return txn, balance, nil
}

// Transfer moves credits between two users as a pair of TRANSFER rows.
func (s *LedgerService) Transfer(ctx context.Context, fromUserID, toUserID uint, amount decimal.Decimal, description string) (*models.CreditTransaction, error) {
	if fromUserID == toUserID {
		return nil, BadRequest("Cannot transfer credits to yourself")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, BadRequest("Amount supports at most two decimal places")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = "Credit transfer"
	}

	var outgoing *models.CreditTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipient models.User
		if err := tx.Select("id").First(&recipient, toUserID).Error; err != nil {
			return notFoundOr(err, "Recipient not found")
		}

		repo := s.credits.WithTx(tx)
		now := s.now()
		if err := repo.EnsureBalance(ctx, fromUserID, now); err != nil {
			return dbError(err)
		}
		if err := repo.EnsureBalance(ctx, toUserID, now); err != nil {
			return dbError(err)
		}

		// Lock in id order so two opposite transfers cannot deadlock.
		first, second := fromUserID, toUserID
		if second < first {
			first, second = second, first
		}
		locked := make(map[uint]*models.CreditBalance, 2)
		for _, id := range []uint{first, second} {
			b, err := repo.LockBalance(ctx, id)
			if err != nil {
				return dbError(err)
			}
			locked[id] = b
		}

		out := Posting{
			Type:          models.CreditTypeTransfer,
			Amount:        amount,
			Description:   description,
			ReferenceID:   &toUserID,
			ReferenceType: models.ReferenceUser,
			Metadata:      map[string]interface{}{"direction": "out", "counterparty_user_id": toUserID},
		}
		txn, err := s.post(ctx, repo, locked[fromUserID], out, amount.Neg())
		if err != nil {
			return err
		}
		outgoing = txn

		in := Posting{
			Type:          models.CreditTypeTransfer,
			Amount:        amount,
			Description:   description,
			ReferenceID:   &fromUserID,
			ReferenceType: models.ReferenceUser,
			Metadata:      map[string]interface{}{"direction": "in", "counterparty_user_id": fromUserID},
		}
		_, err = s.post(ctx, repo, locked[toUserID], in, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("credits transferred",
		zap.Uint("from_user_id", fromUserID),
		zap.Uint("to_user_id", toUserID),
		zap.String("amount", amount.String()))
	return outgoing, nil
}

// post applies signed to a locked balance row and appends the matching
// transaction. No row is written if the result would go below zero.
func (s *LedgerService) post(ctx context.Context, repo *repository.CreditRepository, balance *models.CreditBalance, p Posting, signed decimal.Decimal) (*models.CreditTransaction, error) {
	next := balance.Balance.Add(signed)
	if next.IsNegative() {
		return nil, ErrInsufficientCredits
	}

	balance.Balance = next
	if p.Type.IsCredit() {
		balance.TotalEarned = balance.TotalEarned.Add(p.Amount)
	}
	if p.Type == models.CreditTypeSpent {
		balance.TotalSpent = balance.TotalSpent.Add(p.Amount)
	}
	balance.LastUpdated = s.now()

	if err := repo.SaveBalance(ctx, balance); err != nil {
		return nil, dbError(err)
	}

	txn := &models.CreditTransaction{
		UserID:        balance.UserID,
		Type:          p.Type,
		Amount:        signed,
		Balance:       next,
		Description:   p.Description,
		ReferenceID:   p.ReferenceID,
		ReferenceType: p.ReferenceType,
		CreatedAt:     balance.LastUpdated,
	}
	if len(p.Metadata) > 0 {
		txn.Metadata = datatypes.JSONMap(p.Metadata)
	}
	if err := repo.InsertTransaction(ctx, txn); err != nil {
		return nil, dbError(err)
	}
	return txn, nil
}

func validatePosting(p *Posting) error {
	if !p.Type.Valid() {
		return ErrInvalidCreditType
	}
	if p.Type == models.CreditTypeTransfer {
		return BadRequest("Transfers must be posted with Transfer")
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !p.Amount.Equal(p.Amount.Round(2)) {
		return BadRequest("Amount supports at most two decimal places")
	}
	p.Description = strings.TrimSpace(p.Description)
	if p.Description == "" {
		return ErrDescriptionRequired
	}
	return nil
}

func (s *LedgerService) History(ctx context.Context, userID uint, filter models.CreditHistoryFilter) (*models.Page, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, ErrInvalidCreditType
	}
	txns, total, err := s.credits.ListTransactions(ctx, userID, filter)
	if err != nil {
		return nil, dbError(err)
	}
	page, limit := repository.NormalizePage(filter.Page, filter.Limit)
	return &models.Page{Items: txns, Total: total, Page: page, Limit: limit}, nil
}

func (s *LedgerService) Summary(ctx context.Context, userID uint) (*models.CreditSummary, error) {
	balance, err := s.GetOrCreateBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.credits.TotalsByType(ctx, userID)
	if err != nil {
		return nil, dbError(err)
	}

	summary := &models.CreditSummary{
		UserID:       userID,
		Balance:      balance.Balance,
		TotalEarned:  balance.TotalEarned,
		TotalSpent:   balance.TotalSpent,
		TotalsByType: make(map[models.CreditTransactionType]decimal.Decimal, len(rows)),
		LastUpdated:  balance.LastUpdated,
	}
	for _, row := range rows {
		summary.TotalsByType[row.Type] = row.Total
		summary.TransactionCount += row.Count
	}
	return summary, nil
}

// Stats aggregates the ledger across all users.
func (s *LedgerService) Stats(ctx context.Context) (*models.CreditStats, error) {
	totals, err := s.credits.BalanceTotals(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	rows, err := s.credits.TotalsByType(ctx, 0)
	if err != nil {
		return nil, dbError(err)
	}

	stats := &models.CreditStats{
		Accounts:           totals.Accounts,
		OutstandingBalance: totals.Outstanding,
		TotalEarned:        totals.Earned,
		TotalSpent:         totals.Spent,
		TotalsByType:       make(map[models.CreditTransactionType]decimal.Decimal, len(rows)),
	}
	for _, row := range rows {
		stats.TotalsByType[row.Type] = row.Total
	}
	return stats, nil
}

// Audit replays the user's transactions and compares the result with the
// stored balance and with each row's running snapshot.
func (s *LedgerService) Audit(ctx context.Context, userID uint) (*models.LedgerAudit, error) {
	balance, err := s.GetOrCreateBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := s.credits.AllTransactions(ctx, userID)
	if err != nil {
		return nil, dbError(err)
	}

	replayed := decimal.Zero
	snapshotsOK := true
	for _, txn := range txns {
		replayed = replayed.Add(txn.Amount)
		if !txn.Balance.Equal(replayed) {
			snapshotsOK = false
		}
	}

	last := decimal.Zero
	if len(txns) > 0 {
		last = txns[len(txns)-1].Balance
	}

	audit := &models.LedgerAudit{
		UserID:           userID,
		Balance:          balance.Balance,
		ReplayedBalance:  replayed,
		LastSnapshot:     last,
		TransactionCount: len(txns),
	}
	audit.Consistent = snapshotsOK && replayed.Equal(balance.Balance) && last.Equal(balance.Balance)
	if !audit.Consistent {
		s.logger.Warn("ledger drift detected",
			zap.Uint("user_id", userID),
			zap.String("balance", balance.Balance.String()),
			zap.String("replayed", replayed.String()))
	}
	return audit, nil
}
