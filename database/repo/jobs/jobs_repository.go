package jobs

import (
	"time"

	"github.com/hayeon-dev/ai-gallery/database/models"
	"gorm.io/gorm"
)

// Repository persists conversion jobs. The jobs table is also the durable
// work queue, so the claim/requeue operations here carry the queue
// semantics: every state move is a guarded UPDATE whose RowsAffected tells
// the caller whether it won the transition.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateWithTx(tx *gorm.DB, job *models.ConversionJob) error {
	return tx.Create(job).Error
}

func (r *Repository) GetByID(id uint) (*models.ConversionJob, error) {
	var job models.ConversionJob
	err := r.db.First(&job, id).Error
	return &job, err
}

func (r *Repository) GetByIDAndUser(id, userID uint) (*models.ConversionJob, error) {
	var job models.ConversionJob
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&job).Error
	return &job, err
}

// ListByUser returns the user's jobs, newest first.
func (r *Repository) ListByUser(userID uint, page, pageSize int) ([]*models.ConversionJob, int64, error) {
	var jobs []*models.ConversionJob
	var total int64

	db := r.db.Model(&models.ConversionJob{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := db.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&jobs).Error
	return jobs, total, err
}

func (r *Repository) Delete(job *models.ConversionJob) error {
	return r.db.Delete(job).Error
}

// FetchPending returns the oldest pending jobs up to limit.
func (r *Repository) FetchPending(limit int) ([]*models.ConversionJob, error) {
	var jobs []*models.ConversionJob
	err := r.db.Where("status = ?", models.JobStatusPending).
		Order("created_at asc").Limit(limit).Find(&jobs).Error
	return jobs, err
}

// Claim moves one pending job to processing. The compare-and-swap WHERE
// clause makes redelivery safe: only one claimer observes RowsAffected = 1.
func (r *Repository) Claim(id uint) (bool, error) {
	now := time.Now()
	result := r.db.Model(&models.ConversionJob{}).
		Where("id = ? AND status = ?", id, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     models.JobStatusProcessing,
			"claimed_at": now,
			"attempts":   gorm.Expr("attempts + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkCompleted finishes a processing job with its converted identifier.
func (r *Repository) MarkCompleted(id uint, convertedImage string) error {
	result := r.db.Model(&models.ConversionJob{}).
		Where("id = ? AND status = ?", id, models.JobStatusProcessing).
		Updates(map[string]interface{}{
			"converted_image": convertedImage,
			"status":          models.JobStatusCompleted,
			"error_message":   "",
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkFailed finishes a processing job with the failure text preserved.
func (r *Repository) MarkFailed(id uint, message string) error {
	result := r.db.Model(&models.ConversionJob{}).
		Where("id = ? AND status = ?", id, models.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":        models.JobStatusFailed,
			"error_message": message,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Release hands a claimed job back to pending, used when the worker is
// interrupted before the job ran. Guarded the same way as Claim.
func (r *Repository) Release(id uint) (bool, error) {
	result := r.db.Model(&models.ConversionJob{}).
		Where("id = ? AND status = ?", id, models.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":     models.JobStatusPending,
			"claimed_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RequeueStale returns jobs stuck in processing longer than the visibility
// timeout to pending. Covers workers that died mid-run.
func (r *Repository) RequeueStale(olderThan time.Time) (int64, error) {
	result := r.db.Model(&models.ConversionJob{}).
		Where("status = ? AND claimed_at < ?", models.JobStatusProcessing, olderThan).
		Updates(map[string]interface{}{
			"status":     models.JobStatusPending,
			"claimed_at": nil,
		})
	return result.RowsAffected, result.Error
}

// RequeueAllProcessing returns every processing job to pending. Called once
// at boot: anything still marked processing was abandoned by a previous
// process.
func (r *Repository) RequeueAllProcessing() (int64, error) {
	result := r.db.Model(&models.ConversionJob{}).
		Where("status = ?", models.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":     models.JobStatusPending,
			"claimed_at": nil,
		})
	return result.RowsAffected, result.Error
}

// ResetForResubmitWithTx moves a terminal job back to pending inside the
// transaction that also debits the resubmission credit.
func (r *Repository) ResetForResubmitWithTx(tx *gorm.DB, id uint) (bool, error) {
	result := tx.Model(&models.ConversionJob{}).
		Where("id = ? AND status IN ?", id,
			[]models.JobStatus{models.JobStatusCompleted, models.JobStatusFailed}).
		Updates(map[string]interface{}{
			"status":        models.JobStatusPending,
			"claimed_at":    nil,
			"error_message": "",
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
