package gallery

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/cache"
	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/database/models"
	galleryrepo "github.com/hayeon-dev/ai-gallery/database/repo/gallery"
	socialrepo "github.com/hayeon-dev/ai-gallery/database/repo/social"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
	"github.com/hayeon-dev/ai-gallery/storage"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Friendship{},
		&models.Image{}, &models.Comment{}, &models.Like{},
	))

	cfg := &config.Config{
		StorageType:      "local",
		StorageLocalPath: t.TempDir(),
		CacheMaxImageMB:  10,
		CacheImageTTL:    time.Minute,
	}

	storageFactory, err := storage.NewFactory(cfg)
	require.NoError(t, err)

	cacheProvider, err := cache.NewMemory(cache.DefaultMemoryConfig(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheProvider.Close() })

	svc := NewService(
		galleryrepo.NewRepository(db),
		socialrepo.NewRepository(db),
		storageFactory,
		cacheProvider,
		cfg,
	)
	return svc, db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "hash", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func befriend(t *testing.T, db *gorm.DB, a, b uint) {
	t.Helper()
	require.NoError(t, db.Create(&[]models.Friendship{
		{UserID: a, FriendID: b},
		{UserID: b, FriendID: a},
	}).Error)
}

func uploadImage(t *testing.T, svc *Service, userID uint, visibility models.Visibility) *models.Image {
	t.Helper()
	img, err := svc.Create(context.Background(), userID, Upload{
		Title:        "test image",
		Visibility:   visibility,
		OriginalName: "test.png",
		MimeType:     "image/png",
		Size:         4,
		File:         bytes.NewReader([]byte("data")),
	})
	require.NoError(t, err)
	return img
}

func TestVisibilityMatrix(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com")
	friend := createUser(t, db, "friend@example.com")
	stranger := createUser(t, db, "stranger@example.com")
	befriend(t, db, owner.ID, friend.ID)

	public := uploadImage(t, svc, owner.ID, models.VisibilityPublic)
	friendsOnly := uploadImage(t, svc, owner.ID, models.VisibilityFriends)

	cases := []struct {
		name    string
		viewer  uint
		imageID uint
		visible bool
	}{
		{"owner sees own friends-only", owner.ID, friendsOnly.ID, true},
		{"friend sees friends-only", friend.ID, friendsOnly.ID, true},
		{"stranger blocked from friends-only", stranger.ID, friendsOnly.ID, false},
		{"stranger sees public", stranger.ID, public.ID, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Get(tc.viewer, tc.imageID)
			if tc.visible {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errs.ErrNotFound)
			}
		})
	}
}

func TestFeedHonorsVisibility(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com")
	stranger := createUser(t, db, "stranger@example.com")

	uploadImage(t, svc, owner.ID, models.VisibilityPublic)
	uploadImage(t, svc, owner.ID, models.VisibilityFriends)

	images, total, err := svc.Feed(stranger.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, images, 1)
	assert.Equal(t, models.VisibilityPublic, images[0].Visibility)
}

func TestGetDataRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com")

	img := uploadImage(t, svc, owner.ID, models.VisibilityPublic)

	for i := 0; i < 2; i++ { // second read is served from cache
		got, data, err := svc.GetData(context.Background(), owner.ID, img.Identifier)
		require.NoError(t, err)
		assert.Equal(t, img.ID, got.ID)
		assert.Equal(t, []byte("data"), data)
	}
}

func TestDeleteOwnerOnly(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com")
	other := createUser(t, db, "other@example.com")

	img := uploadImage(t, svc, owner.ID, models.VisibilityPublic)

	assert.ErrorIs(t, svc.Delete(context.Background(), other.ID, img.ID), errs.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), owner.ID, img.ID))

	_, err := svc.Get(owner.ID, img.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCommentRequiresVisibility(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com")
	stranger := createUser(t, db, "stranger@example.com")

	img := uploadImage(t, svc, owner.ID, models.VisibilityFriends)

	_, err := svc.AddComment(stranger.ID, img.ID, "nice")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	comment, err := svc.AddComment(owner.ID, img.ID, "mine")
	require.NoError(t, err)
	assert.Equal(t, "mine", comment.Text)
}

func TestImageOwnerMayDeleteForeignComment(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com")
	commenter := createUser(t, db, "commenter@example.com")

	img := uploadImage(t, svc, owner.ID, models.VisibilityPublic)
	comment, err := svc.AddComment(commenter.ID, img.ID, "hello")
	require.NoError(t, err)

	other := createUser(t, db, "other@example.com")
	assert.ErrorIs(t, svc.DeleteComment(other.ID, comment.ID), errs.ErrForbidden)

	require.NoError(t, svc.DeleteComment(owner.ID, comment.ID))
}

func TestLikeOncePerUser(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com")
	fan := createUser(t, db, "fan@example.com")

	img := uploadImage(t, svc, owner.ID, models.VisibilityPublic)

	require.NoError(t, svc.Like(fan.ID, img.ID))
	assert.ErrorIs(t, svc.Like(fan.ID, img.ID), errs.ErrAlreadyLiked)

	count, err := svc.CountLikes(owner.ID, img.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.Unlike(fan.ID, img.ID))
	assert.ErrorIs(t, svc.Unlike(fan.ID, img.ID), errs.ErrNotFound)
}

func TestListUserFiltersForStrangers(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com")
	friend := createUser(t, db, "friend@example.com")
	stranger := createUser(t, db, "stranger@example.com")
	befriend(t, db, owner.ID, friend.ID)

	uploadImage(t, svc, owner.ID, models.VisibilityPublic)
	uploadImage(t, svc, owner.ID, models.VisibilityFriends)

	_, total, err := svc.ListUser(stranger.ID, owner.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = svc.ListUser(friend.ID, owner.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = svc.ListUser(owner.ID, owner.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
