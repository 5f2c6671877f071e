package accounts

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/database/models"
	accountsrepo "github.com/hayeon-dev/ai-gallery/database/repo/accounts"
	"github.com/hayeon-dev/ai-gallery/internal/credits"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
	cryptopackage "github.com/hayeon-dev/ai-gallery/utils/crypto"
)

// Service manages user accounts. Registration grants the signup credit
// bonus through the ledger in the same transaction that creates the user.
type Service struct {
	db      *gorm.DB
	repo    *accountsrepo.Repository
	credits *credits.Service
	initial uint
}

func NewService(db *gorm.DB, repo *accountsrepo.Repository, creditsService *credits.Service, cfg *config.Config) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		credits: creditsService,
		initial: cfg.InitialCredits,
	}
}

// Register creates an account with a hashed password and the initial credit
// grant. Email uniqueness is enforced by the database.
func (s *Service) Register(email, password, displayName string) (*models.User, error) {
	existing, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, errs.ErrEmailTaken
	}

	hash, err := cryptopackage.GenerateFromPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:       email,
		Password:    hash,
		DisplayName: displayName,
		IsActive:    true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateWithTx(tx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if s.initial > 0 {
			if err := s.credits.CreditTx(tx, user.ID, s.initial, "signup bonus"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.Credits = s.initial
	return user, nil
}

// Get returns a user by id.
func (s *Service) Get(userID uint) (*models.User, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, errs.ErrNotFound
	}
	return user, nil
}

// ProfileUpdate carries the optional profile fields. Nil means unchanged.
type ProfileUpdate struct {
	DisplayName  *string
	Bio          *string
	ProfileImage *string
}

// UpdateProfile applies the non-nil fields.
func (s *Service) UpdateProfile(userID uint, update ProfileUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if update.DisplayName != nil {
		updates["display_name"] = *update.DisplayName
	}
	if update.Bio != nil {
		updates["bio"] = *update.Bio
	}
	if update.ProfileImage != nil {
		updates["profile_image"] = *update.ProfileImage
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateProfile(userID, updates); err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, errs.ErrNotFound
			}
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	return s.Get(userID)
}

// Deactivate disables the account. Content and the credit ledger survive;
// the user simply cannot authenticate anymore.
func (s *Service) Deactivate(userID uint) error {
	if err := s.repo.Deactivate(userID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errs.ErrNotFound
		}
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return nil
}

// Search finds candidate friends: active users that are neither the caller
// nor already befriended.
func (s *Service) Search(userID uint, query string, limit int) ([]*models.User, error) {
	users, err := s.repo.SearchNonFriends(userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}
