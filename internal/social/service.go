package social

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/database/models"
	accountsrepo "github.com/hayeon-dev/ai-gallery/database/repo/accounts"
	socialrepo "github.com/hayeon-dev/ai-gallery/database/repo/social"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
)

// SendOutcome tells the caller whether a request was created or the pair
// became friends immediately.
type SendOutcome struct {
	Request      *models.FriendRequest
	AutoAccepted bool
}

// Service runs the friend request negotiation and maintains the symmetric
// friendship edges.
type Service struct {
	db           *gorm.DB
	repo         *socialrepo.Repository
	accountsRepo *accountsrepo.Repository
}

func NewService(db *gorm.DB, repo *socialrepo.Repository, accountsRepo *accountsrepo.Repository) *Service {
	return &Service{db: db, repo: repo, accountsRepo: accountsRepo}
}

// SendRequest creates a pending request sender -> receiver. Sending to
// someone whose request to you is already pending accepts that request
// instead of creating a crossing one.
func (s *Service) SendRequest(senderID, receiverID uint) (*SendOutcome, error) {
	if senderID == receiverID {
		return nil, errs.ErrSelfRequest
	}

	receiver, err := s.accountsRepo.GetByID(receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get receiver: %w", err)
	}
	if receiver == nil || !receiver.IsActive {
		return nil, errs.ErrNotFound
	}

	friends, err := s.repo.EdgeExists(senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if friends {
		return nil, errs.ErrAlreadyFriends
	}

	existing, err := s.repo.GetPendingRequest(senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending request: %w", err)
	}
	if existing != nil {
		return nil, errs.ErrDuplicateRequest
	}

	// Crossing requests collapse into a friendship.
	reverse, err := s.repo.GetPendingRequest(receiverID, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check reverse request: %w", err)
	}
	if reverse != nil {
		accepted, err := s.Accept(senderID, reverse.ID)
		if err != nil {
			return nil, err
		}
		return &SendOutcome{Request: accepted, AutoAccepted: true}, nil
	}

	request := &models.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.FriendRequestPending,
	}
	if err := s.repo.CreateRequest(request); err != nil {
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}

	return &SendOutcome{Request: request}, nil
}

// Accept moves a pending request to accepted and creates both friendship
// edges in one transaction. Only the receiver may accept.
func (s *Service) Accept(userID, requestID uint) (*models.FriendRequest, error) {
	request, err := s.loadPending(userID, requestID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateRequestStatusWithTx(tx, request.ID, models.FriendRequestAccepted); err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.ErrRequestNotPending
			}
			return fmt.Errorf("failed to accept request: %w", err)
		}
		if err := s.repo.CreateEdgesWithTx(tx, request.SenderID, request.ReceiverID); err != nil {
			return fmt.Errorf("failed to create friendship edges: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	request.Status = models.FriendRequestAccepted
	return request, nil
}

// Reject moves a pending request to rejected. Only the receiver may reject.
func (s *Service) Reject(userID, requestID uint) (*models.FriendRequest, error) {
	request, err := s.loadPending(userID, requestID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateRequestStatusWithTx(tx, request.ID, models.FriendRequestRejected); err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.ErrRequestNotPending
			}
			return fmt.Errorf("failed to reject request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	request.Status = models.FriendRequestRejected
	return request, nil
}

// loadPending fetches the request and verifies the caller is its receiver
// and it is still pending.
func (s *Service) loadPending(userID, requestID uint) (*models.FriendRequest, error) {
	request, err := s.repo.GetRequestByID(requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if request == nil {
		return nil, errs.ErrNotFound
	}
	if request.ReceiverID != userID {
		return nil, errs.ErrForbidden
	}
	if request.Status != models.FriendRequestPending {
		return nil, errs.ErrRequestNotPending
	}
	return request, nil
}

// AreFriends reports whether the directional edge user -> other exists.
func (s *Service) AreFriends(userID, otherID uint) (bool, error) {
	return s.repo.EdgeExists(userID, otherID)
}

// ListFriends returns the user's friends.
func (s *Service) ListFriends(userID uint) ([]*models.User, error) {
	friendships, err := s.repo.ListFriends(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}

	users := make([]*models.User, 0, len(friendships))
	for _, f := range friendships {
		friend := f.Friend
		users = append(users, &friend)
	}
	return users, nil
}

// ListIncoming returns pending requests addressed to the user.
func (s *Service) ListIncoming(userID uint) ([]*models.FriendRequest, error) {
	return s.repo.ListIncoming(userID)
}

// ListOutgoing returns pending requests the user has sent.
func (s *Service) ListOutgoing(userID uint) ([]*models.FriendRequest, error) {
	return s.repo.ListOutgoing(userID)
}
