package credits

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/database/models"
	creditsrepo "github.com/hayeon-dev/ai-gallery/database/repo/credits"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.CreditEntry{}))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewService(db, creditsrepo.NewRepository(db)), db
}

func createUser(t *testing.T, db *gorm.DB, credits uint) *models.User {
	t.Helper()
	user := &models.User{
		Email:    fmt.Sprintf("user%d@example.com", credits),
		Password: "hash",
		IsActive: true,
		Credits:  credits,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCreditIncreasesBalanceAndWritesEntry(t *testing.T) {
	svc, db := newTestService(t)
	user := createUser(t, db, 0)

	require.NoError(t, svc.Credit(user.ID, 10, "signup bonus"))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, uint(10), reloaded.Credits)

	var entries []models.CreditEntry
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, models.CreditDirectionCredit, entries[0].Direction)
	assert.Equal(t, uint(10), entries[0].Amount)
	assert.Equal(t, "signup bonus", entries[0].Reason)
}

func TestDebitInsufficientCredits(t *testing.T) {
	svc, db := newTestService(t)
	user := createUser(t, db, 0)

	err := svc.Debit(user.ID, 1, "image conversion")
	assert.ErrorIs(t, err, errs.ErrInsufficientCredits)

	// The failed debit must leave no ledger entry behind.
	var count int64
	require.NoError(t, db.Model(&models.CreditEntry{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDebitSpendsDownToZero(t *testing.T) {
	svc, db := newTestService(t)
	user := createUser(t, db, 1)

	require.NoError(t, svc.Debit(user.ID, 1, "image conversion"))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Zero(t, reloaded.Credits)

	err := svc.Debit(user.ID, 1, "image conversion")
	assert.ErrorIs(t, err, errs.ErrInsufficientCredits)
}

func TestZeroAmountRejected(t *testing.T) {
	svc, db := newTestService(t)
	user := createUser(t, db, 5)

	assert.ErrorIs(t, svc.Debit(user.ID, 0, "noop"), errs.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Credit(user.ID, 0, "noop"), errs.ErrInvalidAmount)
}

func TestBalanceMatchesLedger(t *testing.T) {
	svc, db := newTestService(t)
	user := createUser(t, db, 0)

	require.NoError(t, svc.Credit(user.ID, 10, "signup bonus"))
	require.NoError(t, svc.Debit(user.ID, 3, "image conversion"))
	require.NoError(t, svc.Debit(user.ID, 2, "image conversion"))
	require.NoError(t, svc.Credit(user.ID, 5, "promotion"))

	balance, err := svc.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, uint(10), reloaded.Credits)
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, db := newTestService(t)
	user := createUser(t, db, 0)

	require.NoError(t, svc.Credit(user.ID, 10, "signup bonus"))
	require.NoError(t, svc.Debit(user.ID, 1, "image conversion"))

	entries, total, err := svc.History(user.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.Equal(t, models.CreditDirectionDebit, entries[0].Direction)
}
