package devserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxscribe/voxscribe/internal/common"
	"github.com/voxscribe/voxscribe/internal/storage"
	"github.com/voxscribe/voxscribe/pkg/types"
)

// Worker walks queued jobs through the transcription lifecycle with
// placeholder output, so local clients observe the same QUEUED ->
// PROCESSING -> COMPLETED transitions production produces.
type Worker struct {
	db       *common.Database
	blobs    storage.BlobStore
	interval time.Duration
}

// NewWorker creates the background worker.
func NewWorker(db *common.Database, blobs storage.BlobStore, interval time.Duration) *Worker {
	return &Worker{db: db, blobs: blobs, interval: interval}
}

// Run processes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessOnce(ctx); err != nil {
				log.Error().Err(err).Msg("job processing pass failed")
			}
		}
	}
}

// ProcessOnce advances every job by one lifecycle step: queued jobs start
// processing, processing jobs complete with a generated transcript.
func (w *Worker) ProcessOnce(ctx context.Context) error {
	var processing []Job
	if err := w.db.WithContext(ctx).Where("status = ?", types.JobProcessing).Find(&processing).Error; err != nil {
		return fmt.Errorf("failed to load processing jobs: %w", err)
	}
	for i := range processing {
		if err := w.complete(ctx, &processing[i]); err != nil {
			log.Error().Err(err).Str("job_id", processing[i].ID.String()).Msg("failed to complete job")
		}
	}

	if err := w.db.WithContext(ctx).Model(&Job{}).
		Where("status = ?", types.JobQueued).
		Update("status", types.JobProcessing).Error; err != nil {
		return fmt.Errorf("failed to start queued jobs: %w", err)
	}

	return w.sweepExpiredUploads(ctx)
}

// sweepExpiredUploads removes upload targets that expired without ever
// being attached to a job, along with any bytes that were stored.
func (w *Worker) sweepExpiredUploads(ctx context.Context) error {
	var stale []PendingUpload
	if err := w.db.WithContext(ctx).
		Where("referenced = ? AND expires_at < ?", false, time.Now()).
		Find(&stale).Error; err != nil {
		return fmt.Errorf("failed to load expired uploads: %w", err)
	}

	for _, pending := range stale {
		if pending.Uploaded {
			if err := w.blobs.Delete(ctx, pending.Key); err != nil {
				log.Warn().Err(err).Str("key", pending.Key).Msg("failed to delete orphaned blob")
				continue
			}
		}
		if err := w.db.WithContext(ctx).Delete(&PendingUpload{}, "key = ?", pending.Key).Error; err != nil {
			return fmt.Errorf("failed to delete expired upload record: %w", err)
		}
		log.Info().Str("key", pending.Key).Msg("expired upload swept")
	}
	return nil
}

func (w *Worker) complete(ctx context.Context, job *Job) error {
	transcript := fmt.Sprintf(
		"[dev transcript] %s (%ds)\n%s\n",
		job.FileName,
		job.DurationSeconds,
		strings.Repeat("lorem ipsum dolor sit amet. ", 3),
	)

	transcriptKey := fmt.Sprintf("transcripts/%s.txt", job.ID)
	if _, err := w.blobs.Store(ctx, transcriptKey, strings.NewReader(transcript), "text/plain"); err != nil {
		return fmt.Errorf("failed to store transcript: %w", err)
	}

	return w.db.WithContext(ctx).Model(job).Updates(map[string]any{
		"status":             types.JobCompleted,
		"transcript_key":     transcriptKey,
		"transcription_text": transcript,
	}).Error
}
