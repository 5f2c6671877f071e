package models

import "gorm.io/gorm"

// Friendship is one directional edge: UserID considers FriendID a friend.
// Accepting a friend request creates both directions in one transaction,
// so the relation is effectively symmetric but stored directionally.
type Friendship struct {
	gorm.Model
	UserID   uint `gorm:"uniqueIndex:idx_friendship_pair;not null"`
	FriendID uint `gorm:"uniqueIndex:idx_friendship_pair;not null"`

	Friend User `gorm:"foreignKey:FriendID"`
}

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest moves pending -> accepted | rejected; terminal states are
// immutable.
type FriendRequest struct {
	gorm.Model
	SenderID   uint                `gorm:"index:idx_request_sender;not null"`
	ReceiverID uint                `gorm:"index:idx_request_receiver;not null"`
	Status     FriendRequestStatus `gorm:"type:varchar(10);default:'pending';not null"`

	Sender   User `gorm:"foreignKey:SenderID"`
	Receiver User `gorm:"foreignKey:ReceiverID"`
}
