package types

import "time"

// JobStatus is the lifecycle state of a transcription job as reported by the
// backend.
type JobStatus string

const (
	JobQueued     JobStatus = "QUEUED"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// APIError is the structured error the backend attaches to failed responses.
type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// APIResponse is the unified envelope every VoxScribe endpoint returns.
type APIResponse struct {
	Status     int         `json:"status"`
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data"`
	Error      *APIError   `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Usage is the server-owned quota snapshot for the current period.
// RemainingMinutes may be fractional.
type Usage struct {
	TotalLimit       float64 `json:"totalLimit"`
	TotalUsedMinutes float64 `json:"totalUsedMinutes"`
	RemainingMinutes float64 `json:"remainingMinutes"`
}

// TranscriptionJob is a job record as returned by the backend.
type TranscriptionJob struct {
	ID                    string    `json:"_id"`
	FileName              string    `json:"fileName,omitempty"`
	DurationInSeconds     int       `json:"durationInSeconds"`
	UsageMinutes          float64   `json:"usageMinutes"`
	Status                JobStatus `json:"status"`
	CreatedAt             time.Time `json:"createdAt,omitempty"`
	AudioFileKey          string    `json:"audioFileKey,omitempty"`
	AudioFileLink         *string   `json:"audioFileLink,omitempty"`
	TranscriptionFileLink *string   `json:"transcriptionFileLink,omitempty"`
	TranscriptionText     string    `json:"transcriptionText,omitempty"`
	Error                 *string   `json:"error,omitempty"`
}

// JobDetail is the reduced view returned by the job-detail endpoint.
type JobDetail struct {
	JobID                 string `json:"jobId"`
	Status                string `json:"status"`
	AudioFileLink         string `json:"audioFileLink,omitempty"`
	TranscriptionFileLink string `json:"transcriptionFileLink,omitempty"`
}

// UsageStats is one per-day aggregate row from the usage stats endpoint.
type UsageStats struct {
	Date            string  `json:"date"`
	TotalJobs       int     `json:"totalJobs"`
	CompletedJobs   int     `json:"completedJobs"`
	FailedJobs      int     `json:"failedJobs"`
	MinutesDeducted float64 `json:"minutesDeducted"`
	MinutesRefunded float64 `json:"minutesRefunded"`
}

// PresignRequest asks the backend for a single-use upload target.
type PresignRequest struct {
	FileName string `json:"fileName"`
	Duration int    `json:"duration"`
	MimeType string `json:"mimeType"`
}

// PresignResponse carries the short-lived direct-upload target.
type PresignResponse struct {
	PresignedURL string `json:"presignedUrl"`
	S3Key        string `json:"s3Key"`
}

// QueueJobRequest registers an uploaded object as a new transcription job.
type QueueJobRequest struct {
	AudioFileKey       string `json:"audioFileKey"`
	Duration           int    `json:"duration"`
	FileName           string `json:"fileName"`
	SourceLanguage     string `json:"sourceLanguage"`
	TranscriptLanguage string `json:"transcriptLanguage"`
}

// QueueJobResult is the payload returned by a successful queue-job call.
type QueueJobResult struct {
	Message         string           `json:"message"`
	NewJob          TranscriptionJob `json:"newJob"`
	Priority        int              `json:"priority"`
	SubmissionIndex int              `json:"submissionIndex"`
	JobID           string           `json:"jobId"`
}

// User is the authenticated account as exposed to the client.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Subscription describes the active plan attached to an account.
type Subscription struct {
	PlanName      string     `json:"planName"`
	MinutesPerDay float64    `json:"minutesPerDay"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// Profile is the combined account view from /auth/profile.
type Profile struct {
	User         User          `json:"user"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// SignUpRequest creates a new account.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// SupportedLanguages is the fixed catalog offered for source and transcript
// language selection.
var SupportedLanguages = []string{
	"English",
	"Spanish",
	"French",
	"German",
}
