package credits

import (
	"github.com/hayeon-dev/ai-gallery/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists credit ledger entries. Balance mutations always run
// inside a caller-provided transaction so the entry and the balance commit
// together.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserForUpdate loads the user row with a FOR UPDATE lock.
func (r *Repository) GetUserForUpdate(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetBalance updates the derived balance column inside the transaction.
func (r *Repository) SetBalance(tx *gorm.DB, userID uint, balance uint) error {
	return tx.Model(&models.User{}).Where("id = ?", userID).
		Update("credits", balance).Error
}

// AppendEntry inserts one immutable ledger row inside the transaction.
func (r *Repository) AppendEntry(tx *gorm.DB, entry *models.CreditEntry) error {
	return tx.Create(entry).Error
}

// ListByUser returns the user's ledger history, newest first.
func (r *Repository) ListByUser(userID uint, page, pageSize int) ([]*models.CreditEntry, int64, error) {
	var entries []*models.CreditEntry
	var total int64

	db := r.db.Model(&models.CreditEntry{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := db.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&entries).Error
	return entries, total, err
}

// SumByDirection totals a user's entries in one direction.
func (r *Repository) SumByDirection(userID uint, direction models.CreditDirection) (int64, error) {
	var total int64
	err := r.db.Model(&models.CreditEntry{}).
		Where("user_id = ? AND direction = ?", userID, direction).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}
