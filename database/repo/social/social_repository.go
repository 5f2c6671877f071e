package social

import (
	"errors"

	"github.com/hayeon-dev/ai-gallery/database/models"
	"gorm.io/gorm"
)

// Repository persists friendship edges and friend requests.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// EdgeExists reports whether a directional friendship edge user -> friend
// exists. Visibility checks use exactly this directional lookup.
func (r *Repository) EdgeExists(userID, friendID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Friendship{}).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Count(&count).Error
	return count > 0, err
}

// CreateEdgesWithTx inserts both directional edges inside the transaction.
func (r *Repository) CreateEdgesWithTx(tx *gorm.DB, a, b uint) error {
	edges := []models.Friendship{
		{UserID: a, FriendID: b},
		{UserID: b, FriendID: a},
	}
	return tx.Create(&edges).Error
}

// ListFriends returns the users this user considers friends.
func (r *Repository) ListFriends(userID uint) ([]*models.Friendship, error) {
	var friendships []*models.Friendship
	err := r.db.Preload("Friend").Where("user_id = ?", userID).
		Order("created_at desc").Find(&friendships).Error
	return friendships, err
}

// GetPendingRequest returns the pending request sender -> receiver, or nil.
func (r *Repository) GetPendingRequest(senderID, receiverID uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.Where("sender_id = ? AND receiver_id = ? AND status = ?",
		senderID, receiverID, models.FriendRequestPending).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *Repository) GetRequestByID(id uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.First(&request, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *Repository) CreateRequest(request *models.FriendRequest) error {
	return r.db.Create(request).Error
}

// UpdateRequestStatusWithTx moves a pending request to a terminal state
// inside the transaction. The status guard keeps terminal states immutable.
func (r *Repository) UpdateRequestStatusWithTx(tx *gorm.DB, id uint, status models.FriendRequestStatus) error {
	result := tx.Model(&models.FriendRequest{}).
		Where("id = ? AND status = ?", id, models.FriendRequestPending).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListIncoming returns pending requests addressed to the user.
func (r *Repository) ListIncoming(userID uint) ([]*models.FriendRequest, error) {
	var requests []*models.FriendRequest
	err := r.db.Preload("Sender").
		Where("receiver_id = ? AND status = ?", userID, models.FriendRequestPending).
		Order("created_at desc").Find(&requests).Error
	return requests, err
}

// ListOutgoing returns pending requests the user has sent.
func (r *Repository) ListOutgoing(userID uint) ([]*models.FriendRequest, error) {
	var requests []*models.FriendRequest
	err := r.db.Preload("Receiver").
		Where("sender_id = ? AND status = ?", userID, models.FriendRequestPending).
		Order("created_at desc").Find(&requests).Error
	return requests, err
}
