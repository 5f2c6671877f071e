package conversion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/database/models"
	creditsrepo "github.com/hayeon-dev/ai-gallery/database/repo/credits"
	jobsrepo "github.com/hayeon-dev/ai-gallery/database/repo/jobs"
	"github.com/hayeon-dev/ai-gallery/internal/conversion/transform"
	"github.com/hayeon-dev/ai-gallery/internal/credits"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
	"github.com/hayeon-dev/ai-gallery/storage"
)

type fakeTransform struct {
	err error
	out []byte
}

func (f *fakeTransform) Transform(ctx context.Context, req transform.Request) (*transform.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &transform.Result{Image: f.out, MimeType: "image/png", Model: "fake-model"}, nil
}

func (f *fakeTransform) Name() string { return "fake" }

type testEnv struct {
	svc     *Service
	repo    *jobsrepo.Repository
	credits *credits.Service
	db      *gorm.DB
	fake    *fakeTransform
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.CreditEntry{}, &models.ConversionJob{}))

	cfg := &config.Config{
		StorageType:             "local",
		StorageLocalPath:        t.TempDir(),
		ConversionCost:          1,
		MaxConcurrentTransforms: 2,
	}

	storageFactory, err := storage.NewFactory(cfg)
	require.NoError(t, err)

	creditsService := credits.NewService(db, creditsrepo.NewRepository(db))
	repo := jobsrepo.NewRepository(db)
	fake := &fakeTransform{out: []byte("converted bytes")}

	return &testEnv{
		svc:     NewService(db, repo, creditsService, storageFactory, fake, cfg),
		repo:    repo,
		credits: creditsService,
		db:      db,
		fake:    fake,
	}
}

func (e *testEnv) createUser(t *testing.T, creditBalance uint) *models.User {
	t.Helper()
	user := &models.User{Email: "user@example.com", Password: "hash", IsActive: true, Credits: creditBalance}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) submit(t *testing.T, userID uint) *models.ConversionJob {
	t.Helper()
	job, err := e.svc.Submit(context.Background(), userID, Submission{
		Prompt: "in the style of van gogh",
		File:   bytes.NewReader([]byte("source bytes")),
	})
	require.NoError(t, err)
	return job
}

func TestSubmitDebitsAndEnqueues(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 3)

	job := env.submit(t, user.ID)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.NotEmpty(t, job.OriginalImage)
	assert.Nil(t, job.ConvertedImage)

	var reloaded models.User
	require.NoError(t, env.db.First(&reloaded, user.ID).Error)
	assert.Equal(t, uint(2), reloaded.Credits)
}

func TestSubmitWithoutCredits(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 0)

	_, err := env.svc.Submit(context.Background(), user.ID, Submission{
		Prompt: "watercolor",
		File:   bytes.NewReader([]byte("source bytes")),
	})
	assert.ErrorIs(t, err, errs.ErrInsufficientCredits)

	// No job may exist after the failed debit.
	var count int64
	require.NoError(t, env.db.Model(&models.ConversionJob{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestClaimIsExclusive(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1)
	job := env.submit(t, user.ID)

	won, err := env.repo.Claim(job.ID)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = env.repo.Claim(job.ID)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestProcessCompletesJob(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1)
	job := env.submit(t, user.ID)

	won, err := env.repo.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)

	env.svc.Process(context.Background(), job)

	reloaded, err := env.svc.Get(user.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.ConvertedImage)
	assert.Empty(t, reloaded.ErrorMessage)

	data, err := env.svc.GetResultData(context.Background(), user.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("converted bytes"), data)
}

func TestProcessFailurePreservesMessage(t *testing.T) {
	env := newTestEnv(t)
	env.fake.err = errors.New("model exploded")
	user := env.createUser(t, 1)
	job := env.submit(t, user.ID)

	won, err := env.repo.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)

	env.svc.Process(context.Background(), job)

	reloaded, err := env.svc.Get(user.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, reloaded.Status)
	assert.Contains(t, reloaded.ErrorMessage, "model exploded")
	assert.Nil(t, reloaded.ConvertedImage)
}

func TestProcessInterruptedByShutdownReleasesClaim(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1)
	job := env.submit(t, user.ID)

	won, err := env.repo.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env.svc.Process(ctx, job)

	// The claim goes back to pending so the next dispatcher reruns it; it
	// must not be buried as failed with the credit already spent.
	reloaded, err := env.svc.Get(user.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, reloaded.Status)
	assert.Empty(t, reloaded.ErrorMessage)
	assert.Nil(t, reloaded.ConvertedImage)

	// A later run with a live context completes it.
	won, err = env.repo.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)
	env.svc.Process(context.Background(), job)

	reloaded, err = env.svc.Get(user.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, reloaded.Status)
}

func TestResubmitFailedJob(t *testing.T) {
	env := newTestEnv(t)
	env.fake.err = errors.New("model exploded")
	user := env.createUser(t, 2)
	job := env.submit(t, user.ID)

	won, err := env.repo.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)
	env.svc.Process(context.Background(), job)

	resubmitted, err := env.svc.Resubmit(user.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, resubmitted.Status)
	assert.Empty(t, resubmitted.ErrorMessage)

	var reloaded models.User
	require.NoError(t, env.db.First(&reloaded, user.ID).Error)
	assert.Zero(t, reloaded.Credits)
}

func TestResubmitNonTerminalJob(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 2)
	job := env.submit(t, user.ID)

	_, err := env.svc.Resubmit(user.ID, job.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestResubmitWithoutCreditsLeavesJobTerminal(t *testing.T) {
	env := newTestEnv(t)
	env.fake.err = errors.New("model exploded")
	user := env.createUser(t, 1)
	job := env.submit(t, user.ID)

	won, err := env.repo.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)
	env.svc.Process(context.Background(), job)

	_, err = env.svc.Resubmit(user.ID, job.ID)
	assert.ErrorIs(t, err, errs.ErrInsufficientCredits)

	reloaded, err := env.svc.Get(user.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, reloaded.Status)
}

func TestRequeueStaleProcessing(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1)
	job := env.submit(t, user.ID)

	won, err := env.repo.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)

	stale := time.Now().Add(-time.Hour)
	require.NoError(t, env.db.Model(&models.ConversionJob{}).
		Where("id = ?", job.ID).Update("claimed_at", stale).Error)

	requeued, err := env.repo.RequeueStale(time.Now().Add(-10 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), requeued)

	reloaded, err := env.svc.Get(user.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, reloaded.Status)
}

func TestJobsAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, 1)
	other := &models.User{Email: "other@example.com", Password: "hash", IsActive: true}
	require.NoError(t, env.db.Create(other).Error)

	job := env.submit(t, user.ID)

	_, err := env.svc.Get(other.ID, job.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
