package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/voxscribe/voxscribe/internal/common"
	"github.com/voxscribe/voxscribe/internal/storage"
	"github.com/voxscribe/voxscribe/pkg/config"
	"github.com/voxscribe/voxscribe/pkg/types"
)

// TranscriptionService implements usage accounting, presigned uploads, and
// the job lifecycle for the dev server.
type TranscriptionService struct {
	db        *common.Database
	blobs     storage.BlobStore
	secret    string
	publicURL string
	ttl       time.Duration
}

// NewTranscriptionService creates the transcription service.
func NewTranscriptionService(db *common.Database, blobs storage.BlobStore, authCfg *config.AuthConfig, storageCfg *config.StorageConfig, publicURL string) *TranscriptionService {
	return &TranscriptionService{
		db:        db,
		blobs:     blobs,
		secret:    authCfg.JWTSecret,
		publicURL: strings.TrimRight(publicURL, "/"),
		ttl:       storageCfg.PresignTTL,
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Usage computes today's quota snapshot for the user. Failed jobs refund
// their minutes.
func (s *TranscriptionService) Usage(ctx context.Context, user *User) (*types.Usage, error) {
	var todays []Job
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", user.ID, startOfDay(time.Now())).
		Find(&todays).Error; err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	var used float64
	for _, j := range todays {
		if j.Status == types.JobFailed {
			continue
		}
		used += j.UsageMinutes
	}

	remaining := user.DailyMinutes - used
	if remaining < 0 {
		remaining = 0
	}
	return &types.Usage{
		TotalLimit:       user.DailyMinutes,
		TotalUsedMinutes: used,
		RemainingMinutes: remaining,
	}, nil
}

// Presign validates the upload request and mints a single-use target.
func (s *TranscriptionService) Presign(ctx context.Context, user *User, req *types.PresignRequest) (*types.PresignResponse, error) {
	if req.FileName == "" {
		return nil, fmt.Errorf("fileName is required")
	}
	if req.Duration <= 0 {
		return nil, fmt.Errorf("duration is required")
	}
	if !strings.HasPrefix(req.MimeType, "audio/") {
		return nil, fmt.Errorf("only audio files are accepted")
	}

	key := fmt.Sprintf("uploads/%s/%s-%s", user.ID, uuid.NewString(), sanitizeFileName(req.FileName))
	pending := &PendingUpload{
		Key:       key,
		UserID:    user.ID,
		FileName:  req.FileName,
		MimeType:  req.MimeType,
		Duration:  req.Duration,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(pending).Error; err != nil {
		return nil, fmt.Errorf("failed to record pending upload: %w", err)
	}

	return &types.PresignResponse{
		PresignedURL: presignedURL(s.publicURL, s.secret, key, s.ttl),
		S3Key:        key,
	}, nil
}

// StoreUpload is called by the storage PUT endpoint once the signature has
// been verified. It enforces single use of the presigned key.
func (s *TranscriptionService) StoreUpload(ctx context.Context, key, contentType string, body io.Reader) error {
	var pending PendingUpload
	if err := s.db.WithContext(ctx).First(&pending, "key = ?", key).Error; err != nil {
		return fmt.Errorf("unknown upload key")
	}
	if pending.Uploaded {
		return fmt.Errorf("upload target already used")
	}
	if time.Now().After(pending.ExpiresAt) {
		return fmt.Errorf("upload target expired")
	}

	if _, err := s.blobs.Store(ctx, key, body, contentType); err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	return s.db.WithContext(ctx).Model(&pending).Update("uploaded", true).Error
}

// QueueJob registers an uploaded object as a new job, deducting quota.
func (s *TranscriptionService) QueueJob(ctx context.Context, user *User, req *types.QueueJobRequest) (*types.QueueJobResult, error) {
	if req.SourceLanguage == "" || req.TranscriptLanguage == "" {
		return nil, fmt.Errorf("sourceLanguage and transcriptLanguage are required")
	}
	if req.Duration <= 0 {
		return nil, fmt.Errorf("duration is required")
	}

	var pending PendingUpload
	if err := s.db.WithContext(ctx).
		First(&pending, "key = ? AND user_id = ?", req.AudioFileKey, user.ID).Error; err != nil {
		return nil, fmt.Errorf("unknown audio file key")
	}
	if !pending.Uploaded {
		return nil, fmt.Errorf("audio file has not been uploaded")
	}
	if pending.Referenced {
		return nil, fmt.Errorf("audio file key already queued")
	}

	minutes := float64((req.Duration + 59) / 60)
	usage, err := s.Usage(ctx, user)
	if err != nil {
		return nil, err
	}
	if minutes > usage.RemainingMinutes {
		return nil, fmt.Errorf("not enough remaining minutes to queue this file")
	}

	job := &Job{
		UserID:          user.ID,
		FileName:        req.FileName,
		DurationSeconds: req.Duration,
		UsageMinutes:    minutes,
		Status:          types.JobQueued,
		AudioFileKey:    req.AudioFileKey,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		return tx.Model(&PendingUpload{}).Where("key = ?", pending.Key).
			Update("referenced", true).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to queue job: %w", err)
	}

	var count int64
	s.db.WithContext(ctx).Model(&Job{}).Where("user_id = ?", user.ID).Count(&count)

	log.Info().Str("job_id", job.ID.String()).Str("file", job.FileName).Msg("job queued")
	return &types.QueueJobResult{
		Message:         "Job queued successfully",
		NewJob:          jobToWire(job),
		Priority:        1,
		SubmissionIndex: int(count),
		JobID:           job.ID.String(),
	}, nil
}

// Search lists the user's jobs most-recent-first with pagination and an
// optional file name filter.
func (s *TranscriptionService) Search(ctx context.Context, user *User, page, limit int, query string) ([]types.TranscriptionJob, *types.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	q := s.db.WithContext(ctx).Model(&Job{}).Where("user_id = ?", user.ID)
	if query != "" {
		q = q.Where("file_name LIKE ?", "%"+query+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	var rows []Job
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]types.TranscriptionJob, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, jobToWire(&rows[i]))
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return jobs, &types.Pagination{
		Total:      int(total),
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Detail returns the status and signed artifact links for one job.
func (s *TranscriptionService) Detail(ctx context.Context, user *User, jobID string) (*types.JobDetail, error) {
	job, err := s.findJob(ctx, user, jobID)
	if err != nil {
		return nil, err
	}

	detail := &types.JobDetail{
		JobID:  job.ID.String(),
		Status: string(job.Status),
	}
	if job.AudioFileKey != "" {
		detail.AudioFileLink = presignedURL(s.publicURL, s.secret, job.AudioFileKey, s.ttl)
	}
	if job.TranscriptKey != "" {
		detail.TranscriptionFileLink = presignedURL(s.publicURL, s.secret, job.TranscriptKey, s.ttl)
	}
	return detail, nil
}

// Delete removes a job and its stored artifacts.
func (s *TranscriptionService) Delete(ctx context.Context, user *User, jobID string) error {
	job, err := s.findJob(ctx, user, jobID)
	if err != nil {
		return err
	}

	if job.AudioFileKey != "" {
		if err := s.blobs.Delete(ctx, job.AudioFileKey); err != nil {
			log.Warn().Err(err).Str("key", job.AudioFileKey).Msg("failed to delete audio blob")
		}
	}
	if job.TranscriptKey != "" {
		if err := s.blobs.Delete(ctx, job.TranscriptKey); err != nil {
			log.Warn().Err(err).Str("key", job.TranscriptKey).Msg("failed to delete transcript blob")
		}
	}
	return s.db.WithContext(ctx).Delete(&Job{}, "id = ?", job.ID).Error
}

// Stats aggregates the user's jobs per calendar day.
func (s *TranscriptionService) Stats(ctx context.Context, user *User) ([]types.UsageStats, error) {
	var rows []Job
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	byDay := map[string]*types.UsageStats{}
	for _, j := range rows {
		day := j.CreatedAt.Format("2006-01-02")
		stat, ok := byDay[day]
		if !ok {
			stat = &types.UsageStats{Date: day}
			byDay[day] = stat
		}
		stat.TotalJobs++
		stat.MinutesDeducted += j.UsageMinutes
		switch j.Status {
		case types.JobCompleted:
			stat.CompletedJobs++
		case types.JobFailed:
			stat.FailedJobs++
			stat.MinutesRefunded += j.UsageMinutes
		}
	}

	stats := make([]types.UsageStats, 0, len(byDay))
	for _, stat := range byDay {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date > stats[j].Date })
	return stats, nil
}

func (s *TranscriptionService) findJob(ctx context.Context, user *User, jobID string) (*Job, error) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return nil, fmt.Errorf("invalid job id")
	}

	var job Job
	if err := s.db.WithContext(ctx).First(&job, "id = ? AND user_id = ?", id, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job not found")
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return &job, nil
}

func jobToWire(j *Job) types.TranscriptionJob {
	return types.TranscriptionJob{
		ID:                j.ID.String(),
		FileName:          j.FileName,
		DurationInSeconds: j.DurationSeconds,
		UsageMinutes:      j.UsageMinutes,
		Status:            j.Status,
		CreatedAt:         j.CreatedAt,
		AudioFileKey:      j.AudioFileKey,
		TranscriptionText: j.TranscriptionText,
		Error:             j.Error,
	}
}

func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return strings.ReplaceAll(name, "..", "_")
}
