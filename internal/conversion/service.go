package conversion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/database/models"
	jobsrepo "github.com/hayeon-dev/ai-gallery/database/repo/jobs"
	"github.com/hayeon-dev/ai-gallery/internal/conversion/transform"
	"github.com/hayeon-dev/ai-gallery/internal/credits"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
	"github.com/hayeon-dev/ai-gallery/storage"
	"github.com/hayeon-dev/ai-gallery/utils"
)

// Submission describes an incoming conversion request.
type Submission struct {
	Prompt   string
	MimeType string
	File     io.Reader
}

// Service owns the conversion job lifecycle. Submitting and resubmitting
// debit the conversion cost in the same transaction that creates or resets
// the job, so a failed debit never leaves a queued job and vice versa.
type Service struct {
	db        *gorm.DB
	repo      *jobsrepo.Repository
	credits   *credits.Service
	storage   *storage.Factory
	transform transform.Provider
	cost      uint

	// sem bounds concurrent calls to the external model across all workers.
	sem *semaphore.Weighted
}

func NewService(db *gorm.DB, repo *jobsrepo.Repository, creditsService *credits.Service, storageFactory *storage.Factory, transformProvider transform.Provider, cfg *config.Config) *Service {
	maxConcurrent := cfg.MaxConcurrentTransforms
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &Service{
		db:        db,
		repo:      repo,
		credits:   creditsService,
		storage:   storageFactory,
		transform: transformProvider,
		cost:      cfg.ConversionCost,
		sem:       semaphore.NewWeighted(maxConcurrent),
	}
}

// Submit stores the source image, then debits the conversion cost and
// enqueues a pending job in one transaction. The blob is removed again when
// the transaction fails, including on insufficient credits.
func (s *Service) Submit(ctx context.Context, userID uint, sub Submission) (*models.ConversionJob, error) {
	if sub.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	identifier := utils.NewIdentifier()
	provider := s.storage.Default()
	if err := provider.SaveWithContext(ctx, identifier, sub.File); err != nil {
		return nil, fmt.Errorf("failed to store source image: %w", err)
	}

	job := &models.ConversionJob{
		UserID:        userID,
		OriginalImage: identifier,
		Prompt:        sub.Prompt,
		ModelUsed:     s.transform.Name(),
		Status:        models.JobStatusPending,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.credits.DebitTx(tx, userID, s.cost, "image conversion"); err != nil {
			return err
		}
		if err := s.repo.CreateWithTx(tx, job); err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}
		return nil
	})
	if err != nil {
		if delErr := provider.DeleteWithContext(ctx, identifier); delErr != nil {
			zap.L().Warn("failed to clean up source blob",
				zap.String("identifier", identifier), zap.Error(delErr))
		}
		return nil, err
	}

	return job, nil
}

// Resubmit debits another conversion and moves a terminal job back to
// pending. Jobs that are pending or processing cannot be resubmitted.
func (s *Service) Resubmit(userID, jobID uint) (*models.ConversionJob, error) {
	job, err := s.Get(userID, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsTerminal() {
		return nil, errs.ErrInvalidTransition
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.credits.DebitTx(tx, userID, s.cost, "image conversion retry"); err != nil {
			return err
		}
		won, err := s.repo.ResetForResubmitWithTx(tx, job.ID)
		if err != nil {
			return fmt.Errorf("failed to reset job: %w", err)
		}
		if !won {
			// Someone raced the job out of its terminal state.
			return errs.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(userID, jobID)
}

// Get returns one of the user's jobs.
func (s *Service) Get(userID, jobID uint) (*models.ConversionJob, error) {
	job, err := s.repo.GetByIDAndUser(jobID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// List returns the user's jobs, newest first.
func (s *Service) List(userID uint, page, pageSize int) ([]*models.ConversionJob, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.ListByUser(userID, page, pageSize)
}

// Delete removes a job and its blobs. No refund is issued.
func (s *Service) Delete(ctx context.Context, userID, jobID uint) error {
	job, err := s.Get(userID, jobID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(job); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	provider := s.storage.Default()
	for _, identifier := range jobBlobs(job) {
		if err := provider.DeleteWithContext(ctx, identifier); err != nil {
			zap.L().Warn("failed to delete job blob",
				zap.String("identifier", identifier), zap.Error(err))
		}
	}

	return nil
}

func jobBlobs(job *models.ConversionJob) []string {
	blobs := []string{job.OriginalImage}
	if job.ConvertedImage != nil {
		blobs = append(blobs, *job.ConvertedImage)
	}
	return blobs
}

// GetResultData returns the converted image bytes of a completed job.
func (s *Service) GetResultData(ctx context.Context, userID, jobID uint) ([]byte, error) {
	job, err := s.Get(userID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted || job.ConvertedImage == nil {
		return nil, errs.ErrNotFound
	}

	rs, err := s.storage.Default().GetWithContext(ctx, *job.ConvertedImage)
	if err != nil {
		return nil, fmt.Errorf("failed to read converted blob: %w", err)
	}
	if closer, ok := rs.(io.Closer); ok {
		defer closer.Close()
	}

	return io.ReadAll(rs)
}

// Process runs one claimed job end to end: load the source blob, call the
// external model under the concurrency bound, store the output, finish the
// job. Model errors finish the job as failed with the message preserved;
// context cancellation is a shutdown, not a failure, so the claim is handed
// back to pending for the next dispatcher.
func (s *Service) Process(ctx context.Context, job *models.ConversionJob) {
	err := s.process(ctx, job)
	if err == nil {
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zap.L().Info("conversion job interrupted, releasing claim",
			zap.Uint("job_id", job.ID))
		if _, relErr := s.repo.Release(job.ID); relErr != nil {
			zap.L().Error("failed to release interrupted job",
				zap.Uint("job_id", job.ID), zap.Error(relErr))
		}
		return
	}

	zap.L().Warn("conversion job failed",
		zap.Uint("job_id", job.ID),
		zap.Error(err))
	if markErr := s.repo.MarkFailed(job.ID, err.Error()); markErr != nil {
		zap.L().Error("failed to mark job as failed",
			zap.Uint("job_id", job.ID), zap.Error(markErr))
	}
}

func (s *Service) process(ctx context.Context, job *models.ConversionJob) error {
	provider := s.storage.Default()

	rs, err := provider.GetWithContext(ctx, job.OriginalImage)
	if err != nil {
		return fmt.Errorf("failed to read source blob: %w", err)
	}
	source, err := io.ReadAll(rs)
	if closer, ok := rs.(io.Closer); ok {
		_ = closer.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to read source blob: %w", err)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire transform slot: %w", err)
	}
	result, err := s.transform.Transform(ctx, transform.Request{
		Image:    source,
		MimeType: http.DetectContentType(source),
		Prompt:   job.Prompt,
	})
	s.sem.Release(1)
	if err != nil {
		return err
	}

	convertedID := utils.NewIdentifier()
	if err := provider.SaveWithContext(ctx, convertedID, bytes.NewReader(result.Image)); err != nil {
		return fmt.Errorf("failed to store converted image: %w", err)
	}

	if err := s.repo.MarkCompleted(job.ID, convertedID); err != nil {
		// The job left processing while we worked, likely requeued by the
		// reaper. Drop the orphaned output.
		if delErr := provider.DeleteWithContext(ctx, convertedID); delErr != nil {
			zap.L().Warn("failed to clean up orphaned converted blob",
				zap.String("identifier", convertedID), zap.Error(delErr))
		}
		return fmt.Errorf("job %d was no longer processing at completion: %w", job.ID, err)
	}

	zap.L().Info("conversion job completed",
		zap.Uint("job_id", job.ID),
		zap.String("model", result.Model))
	return nil
}
