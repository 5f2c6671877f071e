package social

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/database/models"
	accountsrepo "github.com/hayeon-dev/ai-gallery/database/repo/accounts"
	socialrepo "github.com/hayeon-dev/ai-gallery/database/repo/social"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Friendship{}, &models.FriendRequest{}))

	return NewService(db, socialrepo.NewRepository(db), accountsrepo.NewRepository(db)), db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "hash", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestSendRequestCreatesPending(t *testing.T) {
	svc, db := newTestService(t)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	outcome, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, outcome.AutoAccepted)
	assert.Equal(t, models.FriendRequestPending, outcome.Request.Status)

	incoming, err := svc.ListIncoming(bob.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, alice.ID, incoming[0].SenderID)
}

func TestSendRequestToSelf(t *testing.T) {
	svc, db := newTestService(t)
	alice := createUser(t, db, "alice@example.com")

	_, err := svc.SendRequest(alice.ID, alice.ID)
	assert.ErrorIs(t, err, errs.ErrSelfRequest)
}

func TestSendRequestDuplicate(t *testing.T) {
	svc, db := newTestService(t)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	_, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.SendRequest(alice.ID, bob.ID)
	assert.ErrorIs(t, err, errs.ErrDuplicateRequest)
}

func TestCrossingRequestsAutoAccept(t *testing.T) {
	svc, db := newTestService(t)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	_, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	outcome, err := svc.SendRequest(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, outcome.AutoAccepted)
	assert.Equal(t, models.FriendRequestAccepted, outcome.Request.Status)

	for _, pair := range [][2]uint{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		friends, err := svc.AreFriends(pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, friends)
	}
}

func TestAcceptCreatesBothEdges(t *testing.T) {
	svc, db := newTestService(t)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	outcome, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	accepted, err := svc.Accept(bob.ID, outcome.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestAccepted, accepted.Status)

	var count int64
	require.NoError(t, db.Model(&models.Friendship{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestOnlyReceiverMayAccept(t *testing.T) {
	svc, db := newTestService(t)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	outcome, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.Accept(alice.ID, outcome.Request.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestTerminalRequestsAreImmutable(t *testing.T) {
	svc, db := newTestService(t)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	outcome, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.Reject(bob.ID, outcome.Request.ID)
	require.NoError(t, err)

	_, err = svc.Accept(bob.ID, outcome.Request.ID)
	assert.ErrorIs(t, err, errs.ErrRequestNotPending)
}

func TestSendRequestWhenAlreadyFriends(t *testing.T) {
	svc, db := newTestService(t)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	outcome, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.Accept(bob.ID, outcome.Request.ID)
	require.NoError(t, err)

	_, err = svc.SendRequest(alice.ID, bob.ID)
	assert.ErrorIs(t, err, errs.ErrAlreadyFriends)
}

func TestRejectLeavesNoEdges(t *testing.T) {
	svc, db := newTestService(t)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	outcome, err := svc.SendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	rejected, err := svc.Reject(bob.ID, outcome.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestRejected, rejected.Status)

	var count int64
	require.NoError(t, db.Model(&models.Friendship{}).Count(&count).Error)
	assert.Zero(t, count)

	// A fresh request after rejection is allowed.
	_, err = svc.SendRequest(alice.ID, bob.ID)
	assert.NoError(t, err)
}
