package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/cache"
	"github.com/hayeon-dev/ai-gallery/database/models"
	accountsrepo "github.com/hayeon-dev/ai-gallery/database/repo/accounts"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
	cryptopackage "github.com/hayeon-dev/ai-gallery/utils/crypto"
)

func newTestLoginService(t *testing.T) (*LoginService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	jwtService := NewJWTServiceWithConfig(TokenConfig{
		Secret:           []byte("0123456789abcdef0123456789abcdef"),
		ExpiresIn:        15 * time.Minute,
		RefreshExpiresIn: time.Hour,
	})

	cacheProvider, err := cache.NewMemory(cache.DefaultMemoryConfig(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheProvider.Close() })

	return NewLoginService(accountsrepo.NewRepository(db), jwtService, cacheProvider), db
}

func createAccount(t *testing.T, db *gorm.DB, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := cryptopackage.GenerateFromPassword(password)
	require.NoError(t, err)
	user := &models.User{Email: email, Password: hash, IsActive: active}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestLoginIssuesParsableAccessToken(t *testing.T) {
	svc, db := newTestLoginService(t)
	user := createAccount(t, db, "alice@example.com", "correct horse", true)

	result, err := svc.Login(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.RefreshToken)

	parsedID, err := svc.jwtService.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsedID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, db := newTestLoginService(t)
	createAccount(t, db, "alice@example.com", "correct horse", true)

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, errs.ErrInvalidCredsPair)
}

func TestLoginUnknownEmailIndistinguishable(t *testing.T) {
	svc, _ := newTestLoginService(t)

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, errs.ErrInvalidCredsPair)
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	svc, db := newTestLoginService(t)
	createAccount(t, db, "gone@example.com", "correct horse", false)

	_, err := svc.Login(context.Background(), "gone@example.com", "correct horse")
	assert.ErrorIs(t, err, errs.ErrUserInactive)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, db := newTestLoginService(t)
	createAccount(t, db, "alice@example.com", "correct horse", true)
	ctx := context.Background()

	login, err := svc.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the old token is revoked by rotation
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, errs.ErrInvalidCredsPair)

	// the new one still works
	_, err = svc.Refresh(ctx, refreshed.RefreshToken)
	require.NoError(t, err)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, db := newTestLoginService(t)
	createAccount(t, db, "alice@example.com", "correct horse", true)
	ctx := context.Background()

	login, err := svc.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, login.RefreshToken))

	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, errs.ErrInvalidCredsPair)
}

func TestParseRejectsNonAccessToken(t *testing.T) {
	jwtService := NewJWTServiceWithConfig(TokenConfig{
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		ExpiresIn: 15 * time.Minute,
	})

	refresh, _, err := jwtService.GenerateRefreshToken()
	require.NoError(t, err)

	_, err = jwtService.ParseAccessToken(refresh)
	assert.Error(t, err)
}
