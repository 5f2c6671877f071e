package errs

import "errors"

// Sentinel errors shared across services. Handlers map these onto HTTP
// status codes; services wrap them with context via fmt.Errorf("%w").
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// Accounts
	ErrEmailTaken       = errors.New("email already registered")
	ErrUserInactive     = errors.New("account is deactivated")
	ErrInvalidCredsPair = errors.New("invalid email or password")

	// Credit ledger
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("amount must be positive")

	// Friendship negotiation
	ErrSelfRequest       = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends    = errors.New("friendship already exists")
	ErrDuplicateRequest  = errors.New("a pending friend request already exists")
	ErrRequestNotPending = errors.New("friend request is not pending")

	// Gallery
	ErrAlreadyLiked = errors.New("image already liked")

	// Conversion jobs
	ErrInvalidTransition = errors.New("invalid job state transition")
)
