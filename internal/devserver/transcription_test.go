package devserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxscribe/voxscribe/internal/common"
	"github.com/voxscribe/voxscribe/internal/storage"
	"github.com/voxscribe/voxscribe/pkg/config"
	"github.com/voxscribe/voxscribe/pkg/types"
)

type transcriptionFixture struct {
	svc   *TranscriptionService
	db    *common.Database
	blobs storage.BlobStore
	user  *User
}

func newTranscriptionFixture(t *testing.T) *transcriptionFixture {
	t.Helper()

	db := newTestDB(t)
	blobs := newTestBlobs(t)
	authCfg := testAuthConfig()

	auth := NewAuthService(db, common.NewMemoryCache(), authCfg)
	user, err := auth.Register(context.Background(), &types.SignUpRequest{
		Name:     "Test User",
		Email:    "uploader@example.com",
		Password: "pw",
	})
	require.NoError(t, err)

	svc := NewTranscriptionService(db, blobs, authCfg,
		&config.StorageConfig{PresignTTL: 10 * time.Minute}, "http://localhost:3000")
	return &transcriptionFixture{svc: svc, db: db, blobs: blobs, user: user}
}

// uploadFile walks one file through presign, upload and queue-job.
func (f *transcriptionFixture) uploadFile(t *testing.T, name string, durationSeconds int) *types.QueueJobResult {
	t.Helper()
	ctx := context.Background()

	presign, err := f.svc.Presign(ctx, f.user, &types.PresignRequest{
		FileName: name,
		Duration: durationSeconds,
		MimeType: "audio/mpeg",
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.StoreUpload(ctx, presign.S3Key, "audio/mpeg", strings.NewReader("audio-bytes")))

	result, err := f.svc.QueueJob(ctx, f.user, &types.QueueJobRequest{
		AudioFileKey:       presign.S3Key,
		Duration:           durationSeconds,
		FileName:           name,
		SourceLanguage:     "English",
		TranscriptLanguage: "Spanish",
	})
	require.NoError(t, err)
	return result
}

func TestPresignValidation(t *testing.T) {
	f := newTranscriptionFixture(t)
	ctx := context.Background()

	_, err := f.svc.Presign(ctx, f.user, &types.PresignRequest{Duration: 60, MimeType: "audio/mpeg"})
	assert.ErrorContains(t, err, "fileName")

	_, err = f.svc.Presign(ctx, f.user, &types.PresignRequest{FileName: "a.mp3", MimeType: "audio/mpeg"})
	assert.ErrorContains(t, err, "duration")

	_, err = f.svc.Presign(ctx, f.user, &types.PresignRequest{FileName: "a.pdf", Duration: 60, MimeType: "application/pdf"})
	assert.ErrorContains(t, err, "audio")

	presign, err := f.svc.Presign(ctx, f.user, &types.PresignRequest{FileName: "clip one.mp3", Duration: 60, MimeType: "audio/mpeg"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(presign.S3Key, "uploads/"+f.user.ID.String()+"/"))
	assert.Contains(t, presign.PresignedURL, "/storage/"+presign.S3Key)
	assert.Contains(t, presign.PresignedURL, "signature=")
	assert.NotContains(t, presign.S3Key, " ", "key must be sanitized")
}

func TestStoreUploadIsSingleUse(t *testing.T) {
	f := newTranscriptionFixture(t)
	ctx := context.Background()

	presign, err := f.svc.Presign(ctx, f.user, &types.PresignRequest{FileName: "a.mp3", Duration: 60, MimeType: "audio/mpeg"})
	require.NoError(t, err)

	require.NoError(t, f.svc.StoreUpload(ctx, presign.S3Key, "audio/mpeg", strings.NewReader("bytes")))

	err = f.svc.StoreUpload(ctx, presign.S3Key, "audio/mpeg", strings.NewReader("bytes"))
	assert.ErrorContains(t, err, "already used")

	err = f.svc.StoreUpload(ctx, "uploads/nope", "audio/mpeg", strings.NewReader("bytes"))
	assert.ErrorContains(t, err, "unknown upload key")
}

func TestQueueJobDeductsUsage(t *testing.T) {
	f := newTranscriptionFixture(t)
	ctx := context.Background()

	result := f.uploadFile(t, "interview.mp3", 90)
	assert.Equal(t, types.JobQueued, result.NewJob.Status)
	assert.Equal(t, 90, result.NewJob.DurationInSeconds)
	assert.Equal(t, float64(2), result.NewJob.UsageMinutes, "90s costs two whole minutes")
	assert.Equal(t, 1, result.SubmissionIndex)
	assert.NotEmpty(t, result.JobID)

	usage, err := f.svc.Usage(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, float64(2), usage.TotalUsedMinutes)
	assert.Equal(t, float64(118), usage.RemainingMinutes)
}

func TestQueueJobRejectsReuseAndMissingUpload(t *testing.T) {
	f := newTranscriptionFixture(t)
	ctx := context.Background()

	result := f.uploadFile(t, "clip.mp3", 60)

	var job Job
	require.NoError(t, f.db.First(&job, "id = ?", result.JobID).Error)

	// The same uploaded object cannot back a second job.
	_, err := f.svc.QueueJob(ctx, f.user, &types.QueueJobRequest{
		AudioFileKey:       job.AudioFileKey,
		Duration:           60,
		FileName:           "clip.mp3",
		SourceLanguage:     "English",
		TranscriptLanguage: "Spanish",
	})
	assert.ErrorContains(t, err, "already queued")

	_, err = f.svc.QueueJob(ctx, f.user, &types.QueueJobRequest{
		AudioFileKey:       "uploads/nope",
		Duration:           60,
		FileName:           "clip.mp3",
		SourceLanguage:     "English",
		TranscriptLanguage: "Spanish",
	})
	assert.ErrorContains(t, err, "unknown audio file key")

	presign, err := f.svc.Presign(ctx, f.user, &types.PresignRequest{FileName: "b.mp3", Duration: 60, MimeType: "audio/mpeg"})
	require.NoError(t, err)

	// Queueing before the bytes arrive is rejected.
	_, err = f.svc.QueueJob(ctx, f.user, &types.QueueJobRequest{
		AudioFileKey:       presign.S3Key,
		Duration:           60,
		FileName:           "b.mp3",
		SourceLanguage:     "English",
		TranscriptLanguage: "Spanish",
	})
	assert.ErrorContains(t, err, "has not been uploaded")
}

func TestQueueJobEnforcesQuota(t *testing.T) {
	f := newTranscriptionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Model(f.user).Update("daily_minutes", 1).Error)
	f.user.DailyMinutes = 1

	presign, err := f.svc.Presign(ctx, f.user, &types.PresignRequest{FileName: "long.mp3", Duration: 90, MimeType: "audio/mpeg"})
	require.NoError(t, err)
	require.NoError(t, f.svc.StoreUpload(ctx, presign.S3Key, "audio/mpeg", strings.NewReader("bytes")))

	_, err = f.svc.QueueJob(ctx, f.user, &types.QueueJobRequest{
		AudioFileKey:       presign.S3Key,
		Duration:           90,
		FileName:           "long.mp3",
		SourceLanguage:     "English",
		TranscriptLanguage: "Spanish",
	})
	assert.ErrorContains(t, err, "not enough remaining minutes")
}

func TestUsageRefundsFailedJobs(t *testing.T) {
	f := newTranscriptionFixture(t)
	ctx := context.Background()

	failure := "decoder crashed"
	jobs := []Job{
		{UserID: f.user.ID, FileName: "ok.mp3", DurationSeconds: 120, UsageMinutes: 2, Status: types.JobCompleted},
		{UserID: f.user.ID, FileName: "bad.mp3", DurationSeconds: 300, UsageMinutes: 5, Status: types.JobFailed, Error: &failure},
	}
	for i := range jobs {
		require.NoError(t, f.db.Create(&jobs[i]).Error)
	}

	usage, err := f.svc.Usage(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, float64(2), usage.TotalUsedMinutes, "failed jobs do not count against quota")
	assert.Equal(t, float64(118), usage.RemainingMinutes)
}

func TestWorkerAdvancesJobs(t *testing.T) {
	f := newTranscriptionFixture(t)
	ctx := context.Background()

	result := f.uploadFile(t, "talk.mp3", 60)
	worker := NewWorker(f.db, f.blobs, time.Second)

	require.NoError(t, worker.ProcessOnce(ctx))
	detail, err := f.svc.Detail(ctx, f.user, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, string(types.JobProcessing), detail.Status)

	require.NoError(t, worker.ProcessOnce(ctx))
	detail, err = f.svc.Detail(ctx, f.user, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, string(types.JobCompleted), detail.Status)
	assert.NotEmpty(t, detail.AudioFileLink)
	assert.NotEmpty(t, detail.TranscriptionFileLink)

	exists, err := f.blobs.Exists(ctx, "transcripts/"+result.JobID+".txt")
	require.NoError(t, err)
	assert.True(t, exists, "transcript blob must be written on completion")
}

func TestWorkerSweepsExpiredUploads(t *testing.T) {
	f := newTranscriptionFixture(t)
	ctx := context.Background()

	presign, err := f.svc.Presign(ctx, f.user, &types.PresignRequest{FileName: "orphan.mp3", Duration: 60, MimeType: "audio/mpeg"})
	require.NoError(t, err)
	require.NoError(t, f.svc.StoreUpload(ctx, presign.S3Key, "audio/mpeg", strings.NewReader("bytes")))

	// Push the pending row past its expiry without waiting.
	require.NoError(t, f.db.Model(&PendingUpload{}).Where("key = ?", presign.S3Key).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	require.NoError(t, NewWorker(f.db, f.blobs, time.Second).ProcessOnce(ctx))

	exists, err := f.blobs.Exists(ctx, presign.S3Key)
	require.NoError(t, err)
	assert.False(t, exists, "orphaned bytes are removed")

	var count int64
	require.NoError(t, f.db.Model(&PendingUpload{}).Where("key = ?", presign.S3Key).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSearchFiltersAndPaginates(t *testing.T) {
	f := newTranscriptionFixture(t)
	ctx := context.Background()

	names := []string{"standup.mp3", "standup-notes.mp3", "interview.mp3"}
	for _, name := range names {
		require.NoError(t, f.db.Create(&Job{
			UserID: f.user.ID, FileName: name, DurationSeconds: 60, UsageMinutes: 1, Status: types.JobQueued,
		}).Error)
	}

	jobs, pagination, err := f.svc.Search(ctx, f.user, 1, 2, "")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.Equal(t, 3, pagination.Total)
	assert.Equal(t, 2, pagination.TotalPages)

	jobs, pagination, err = f.svc.Search(ctx, f.user, 1, 10, "standup")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.Equal(t, 2, pagination.Total)
}

func TestDeleteRemovesJobAndBlobs(t *testing.T) {
	f := newTranscriptionFixture(t)
	ctx := context.Background()

	result := f.uploadFile(t, "gone.mp3", 60)
	var job Job
	require.NoError(t, f.db.First(&job, "id = ?", result.JobID).Error)
	audioKey := job.AudioFileKey

	require.NoError(t, f.svc.Delete(ctx, f.user, result.JobID))

	_, err := f.svc.Detail(ctx, f.user, result.JobID)
	assert.ErrorContains(t, err, "not found")

	exists, err := f.blobs.Exists(ctx, audioKey)
	require.NoError(t, err)
	assert.False(t, exists, "audio blob must be removed with the job")
}

func TestStatsAggregatesPerDay(t *testing.T) {
	f := newTranscriptionFixture(t)
	ctx := context.Background()

	failure := "timeout"
	rows := []Job{
		{UserID: f.user.ID, FileName: "a.mp3", DurationSeconds: 60, UsageMinutes: 1, Status: types.JobCompleted},
		{UserID: f.user.ID, FileName: "b.mp3", DurationSeconds: 120, UsageMinutes: 2, Status: types.JobFailed, Error: &failure},
		{UserID: f.user.ID, FileName: "c.mp3", DurationSeconds: 60, UsageMinutes: 1, Status: types.JobQueued},
	}
	for i := range rows {
		require.NoError(t, f.db.Create(&rows[i]).Error)
	}

	stats, err := f.svc.Stats(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, stats, 1, "all jobs were created today")

	today := stats[0]
	assert.Equal(t, time.Now().Format("2006-01-02"), today.Date)
	assert.Equal(t, 3, today.TotalJobs)
	assert.Equal(t, 1, today.CompletedJobs)
	assert.Equal(t, 1, today.FailedJobs)
	assert.Equal(t, float64(4), today.MinutesDeducted)
	assert.Equal(t, float64(2), today.MinutesRefunded)
}

func TestPresignedURLSignatures(t *testing.T) {
	const secret = "sig-secret"
	expires := time.Now().Add(time.Minute).Unix()

	sig := signKey(secret, "uploads/u/a.mp3", expires)
	assert.True(t, verifySignature(secret, "uploads/u/a.mp3", expires, sig))
	assert.False(t, verifySignature(secret, "uploads/u/b.mp3", expires, sig), "signature is bound to the key")
	assert.False(t, verifySignature("other", "uploads/u/a.mp3", expires, sig))

	past := time.Now().Add(-time.Minute).Unix()
	assert.False(t, verifySignature(secret, "uploads/u/a.mp3", past, signKey(secret, "uploads/u/a.mp3", past)), "expired URLs are rejected")
}
