package models

import (
	"time"

	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is a final state. Only terminal
// jobs may be resubmitted.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ConversionJob is one asynchronous AI style-transfer request. The jobs
// table doubles as the durable work queue: pending rows are claimed by the
// dispatcher with a compare-and-swap update, and rows stuck in processing
// past the visibility timeout are swept back to pending.
type ConversionJob struct {
	gorm.Model
	UserID uint `gorm:"index:idx_job_user;not null"`
	User   User `gorm:"foreignKey:UserID"`

	// Blob store identifiers; ConvertedImage stays nil until completion.
	OriginalImage  string  `gorm:"not null"`
	ConvertedImage *string

	Prompt    string
	ModelUsed string    `gorm:"default:'default_model';not null"`
	Status    JobStatus `gorm:"type:varchar(20);default:'pending';not null;index:idx_job_status"`

	// ErrorMessage holds the external failure text verbatim for diagnosis.
	ErrorMessage string

	// ClaimedAt is set when the dispatcher moves the job to processing and
	// drives the visibility-timeout sweep.
	ClaimedAt *time.Time
	Attempts  int `gorm:"default:0;not null"`
}
