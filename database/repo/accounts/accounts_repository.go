package accounts

import (
	"errors"

	"github.com/hayeon-dev/ai-gallery/database/models"
	"gorm.io/gorm"
)

// Repository provides user account persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithTx inserts a user inside the given transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, user *models.User) error {
	return tx.Create(user).Error
}

// GetByEmail returns the user with the given email, or nil when absent.
func (r *Repository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns the user with the given id, or nil when absent.
func (r *Repository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies the given column updates to a user.
func (r *Repository) UpdateProfile(id uint, updates map[string]interface{}) error {
	result := r.db.Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Deactivate soft-deactivates the account. The row is kept forever.
func (r *Repository) Deactivate(id uint) error {
	result := r.db.Model(&models.User{}).Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SearchNonFriends finds active users that are not the given user and not
// already friends with them, optionally filtered by an email/name substring.
func (r *Repository) SearchNonFriends(userID uint, query string, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 50
	}

	sub := r.db.Model(&models.Friendship{}).Select("friend_id").Where("user_id = ?", userID)

	db := r.db.Model(&models.User{}).
		Where("id <> ?", userID).
		Where("is_active = ?", true).
		Where("id NOT IN (?)", sub)

	if query != "" {
		pattern := "%" + query + "%"
		db = db.Where("email LIKE ? OR display_name LIKE ?", pattern, pattern)
	}

	var users []*models.User
	err := db.Order("id").Limit(limit).Find(&users).Error
	return users, err
}
