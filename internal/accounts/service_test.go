package accounts

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/database/models"
	accountsrepo "github.com/hayeon-dev/ai-gallery/database/repo/accounts"
	creditsrepo "github.com/hayeon-dev/ai-gallery/database/repo/credits"
	"github.com/hayeon-dev/ai-gallery/internal/credits"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.CreditEntry{}, &models.Friendship{}))

	creditsService := credits.NewService(db, creditsrepo.NewRepository(db))
	cfg := &config.Config{InitialCredits: 10}
	return NewService(db, accountsrepo.NewRepository(db), creditsService, cfg), db
}

func TestRegisterGrantsSignupBonus(t *testing.T) {
	svc, db := newTestService(t)

	user, err := svc.Register("alice@example.com", "password123", "Alice")
	require.NoError(t, err)
	assert.Equal(t, uint(10), user.Credits)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "password123", user.Password)

	// The bonus must be visible in the ledger, not only on the user row.
	var entry models.CreditEntry
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, models.CreditDirectionCredit, entry.Direction)
	assert.Equal(t, uint(10), entry.Amount)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register("bob@example.com", "password123", "Bob")
	require.NoError(t, err)

	_, err = svc.Register("bob@example.com", "other-password", "Bobby")
	assert.ErrorIs(t, err, errs.ErrEmailTaken)
}

func TestUpdateProfilePartial(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register("carol@example.com", "password123", "Carol")
	require.NoError(t, err)

	bio := "painter"
	updated, err := svc.UpdateProfile(user.ID, ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "painter", updated.Bio)
	assert.Equal(t, "Carol", updated.DisplayName)
}

func TestDeactivate(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register("dave@example.com", "password123", "Dave")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(user.ID))

	reloaded, err := svc.Get(user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)

	// Deactivating twice is reported as not found.
	assert.ErrorIs(t, svc.Deactivate(user.ID), errs.ErrNotFound)
}

func TestSearchExcludesSelfAndFriends(t *testing.T) {
	svc, db := newTestService(t)

	alice, err := svc.Register("alice@example.com", "password123", "Alice")
	require.NoError(t, err)
	bob, err := svc.Register("bob@example.com", "password123", "Bob")
	require.NoError(t, err)
	_, err = svc.Register("carol@example.com", "password123", "Carol")
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Friendship{UserID: alice.ID, FriendID: bob.ID}).Error)

	users, err := svc.Search(alice.ID, "", 50)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "carol@example.com", users[0].Email)
}
