package credits

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/database/models"
	creditsrepo "github.com/hayeon-dev/ai-gallery/database/repo/credits"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
)

// Service maintains the append-only credit ledger. Every balance change
// writes one ledger entry and the new balance in the same transaction, so
// the stored balance always equals credits minus debits.
type Service struct {
	db   *gorm.DB
	repo *creditsrepo.Repository
}

func NewService(db *gorm.DB, repo *creditsrepo.Repository) *Service {
	return &Service{db: db, repo: repo}
}

// Debit removes credits from the user in its own transaction.
func (s *Service) Debit(userID uint, amount uint, reason string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.DebitTx(tx, userID, amount, reason)
	})
}

// DebitTx removes credits inside a caller-owned transaction. The user row is
// locked first so concurrent debits cannot both pass the balance check.
func (s *Service) DebitTx(tx *gorm.DB, userID uint, amount uint, reason string) error {
	if amount == 0 {
		return errs.ErrInvalidAmount
	}

	user, err := s.repo.GetUserForUpdate(tx, userID)
	if err != nil {
		return fmt.Errorf("failed to lock user %d: %w", userID, err)
	}

	if user.Credits < amount {
		return errs.ErrInsufficientCredits
	}

	entry := &models.CreditEntry{
		UserID:    userID,
		Amount:    amount,
		Direction: models.CreditDirectionDebit,
		Reason:    reason,
	}
	if err := s.repo.AppendEntry(tx, entry); err != nil {
		return fmt.Errorf("failed to append debit entry: %w", err)
	}

	if err := s.repo.SetBalance(tx, userID, user.Credits-amount); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	return nil
}

// Credit adds credits to the user in its own transaction.
func (s *Service) Credit(userID uint, amount uint, reason string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.CreditTx(tx, userID, amount, reason)
	})
}

// CreditTx adds credits inside a caller-owned transaction.
func (s *Service) CreditTx(tx *gorm.DB, userID uint, amount uint, reason string) error {
	if amount == 0 {
		return errs.ErrInvalidAmount
	}

	user, err := s.repo.GetUserForUpdate(tx, userID)
	if err != nil {
		return fmt.Errorf("failed to lock user %d: %w", userID, err)
	}

	entry := &models.CreditEntry{
		UserID:    userID,
		Amount:    amount,
		Direction: models.CreditDirectionCredit,
		Reason:    reason,
	}
	if err := s.repo.AppendEntry(tx, entry); err != nil {
		return fmt.Errorf("failed to append credit entry: %w", err)
	}

	if err := s.repo.SetBalance(tx, userID, user.Credits+amount); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	return nil
}

// Balance recomputes the balance from the ledger.
func (s *Service) Balance(userID uint) (int64, error) {
	credited, err := s.repo.SumByDirection(userID, models.CreditDirectionCredit)
	if err != nil {
		return 0, fmt.Errorf("failed to sum credits: %w", err)
	}
	debited, err := s.repo.SumByDirection(userID, models.CreditDirectionDebit)
	if err != nil {
		return 0, fmt.Errorf("failed to sum debits: %w", err)
	}
	return credited - debited, nil
}

// History returns the user's ledger entries, newest first.
func (s *Service) History(userID uint, page, pageSize int) ([]*models.CreditEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.ListByUser(userID, page, pageSize)
}
