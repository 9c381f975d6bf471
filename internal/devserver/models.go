package devserver

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxscribe/voxscribe/pkg/types"
)

// User is a dev server account.
type User struct {
	ID           uuid.UUID `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Password     string    `gorm:"not null"`
	Role         string    `gorm:"default:user"`
	DailyMinutes float64   `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BeforeCreate generates a UUID for the user ID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Job is a transcription job row.
type Job struct {
	ID                uuid.UUID `gorm:"primaryKey"`
	UserID            uuid.UUID `gorm:"index;not null"`
	FileName          string
	DurationSeconds   int
	UsageMinutes      float64
	Status            types.JobStatus `gorm:"index"`
	AudioFileKey      string
	TranscriptKey     string
	TranscriptionText string
	Error             *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BeforeCreate generates a UUID for the job ID
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// PendingUpload tracks a presigned key between presign and queue-job.
// Single-use: the PUT consumes it, queue-job references it exactly once.
type PendingUpload struct {
	Key        string    `gorm:"primaryKey"`
	UserID     uuid.UUID `gorm:"index;not null"`
	FileName   string
	MimeType   string
	Duration   int
	Uploaded   bool
	Referenced bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
