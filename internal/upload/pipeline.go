package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/voxscribe/voxscribe/internal/jobs"
	"github.com/voxscribe/voxscribe/internal/probe"
	"github.com/voxscribe/voxscribe/pkg/config"
	"github.com/voxscribe/voxscribe/pkg/types"
)

// Validation failures. All of these are decided locally, before any network
// call, and are terminal for the current run.
var (
	ErrNoFile            = errors.New("no audio file selected")
	ErrUsageNotLoaded    = errors.New("usage not loaded yet")
	ErrInsufficientQuota = errors.New("not enough remaining minutes for this file")
	ErrTooShort          = errors.New("audio is shorter than the minimum duration")
	ErrLanguageMissing   = errors.New("source and transcript languages are required")
	ErrSameLanguages     = errors.New("source and transcript languages must differ")
)

// ErrRunInProgress is returned when Run is called while another run is
// active on the same pipeline.
var ErrRunInProgress = errors.New("an upload is already in progress")

// Backend is the slice of the authenticated API the pipeline depends on.
type Backend interface {
	Presign(ctx context.Context, req types.PresignRequest) (*types.PresignResponse, error)
	QueueJob(ctx context.Context, req types.QueueJobRequest) (*types.QueueJobResult, error)
	FetchUsage(ctx context.Context) (*types.Usage, error)
}

// DurationProber reads a local file's duration without uploading it.
type DurationProber interface {
	Duration(ctx context.Context, filePath string) (float64, error)
}

// Transfer streams raw file bytes to a presigned target. It deliberately
// bypasses the session guard: the target URL is pre-authorized and carries
// no application credentials.
type Transfer interface {
	Put(ctx context.Context, url, filePath, mimeType string, onProgress func(int)) error
}

// Request is one user-initiated upload attempt.
type Request struct {
	FilePath           string
	SourceLanguage     string
	TranscriptLanguage string
}

// Session is the observable state of the current run. After any terminal
// outcome, success or failure, the file is cleared and progress is back at
// zero so the caller is ready to retry.
type Session struct {
	File            string
	DurationSeconds int
	Progress        int
	Phase           Phase
}

// Pipeline turns a locally selected audio file into a queued transcription
// job: probe duration, validate quota and policy, presign, stream to
// storage, enqueue. Phases run strictly in order and abandoning at any
// phase discards all partial state.
type Pipeline struct {
	backend  Backend
	store    *jobs.Store
	prober   DurationProber
	sniff    func(path string) (string, error)
	transfer Transfer

	minDurationSeconds int

	// OnPhase and OnProgress, when set, are invoked from the running
	// goroutine as the pipeline moves along. Set them before calling Run.
	OnPhase    func(Phase)
	OnProgress func(percent int)

	mu      sync.Mutex
	session Session
}

// NewPipeline builds a pipeline around the given backend and cache store.
func NewPipeline(backend Backend, store *jobs.Store, cfg *config.UploadConfig) *Pipeline {
	return &Pipeline{
		backend:            backend,
		store:              store,
		prober:             probe.NewFFProbe(cfg.FFProbePath),
		sniff:              probe.DetectAudioMime,
		transfer:           NewTransfer(),
		minDurationSeconds: cfg.MinDurationSeconds,
		session:            Session{Phase: PhaseIdle},
	}
}

// MinutesNeeded is the quota cost of a clip: any fractional minute consumes
// a whole minute.
func MinutesNeeded(durationSeconds int) int {
	return (durationSeconds + 59) / 60
}

// Snapshot returns the current session state.
func (p *Pipeline) Snapshot() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Run drives one upload attempt to completion and returns the queued job.
// On any failure the session is reset and the error is the single
// user-facing message for the attempt.
func (p *Pipeline) Run(ctx context.Context, req Request) (*types.TranscriptionJob, error) {
	if err := p.begin(req); err != nil {
		return nil, err
	}
	defer p.reset()

	// Probe: decode just enough of the file to learn its duration. No
	// network traffic happens in this phase.
	if err := p.advance(PhaseProbing); err != nil {
		return nil, err
	}
	mimeType, err := p.sniff(req.FilePath)
	if err != nil {
		return nil, err
	}
	seconds, err := p.prober.Duration(ctx, req.FilePath)
	if err != nil {
		return nil, err
	}
	durationSeconds := int(seconds) // floored before any quota arithmetic
	p.setDuration(durationSeconds)

	if err := p.advance(PhaseValidating); err != nil {
		return nil, err
	}
	if err := p.validate(durationSeconds, req); err != nil {
		return nil, err
	}

	if err := p.advance(PhasePresigning); err != nil {
		return nil, err
	}
	target, err := p.backend.Presign(ctx, types.PresignRequest{
		FileName: filepath.Base(req.FilePath),
		Duration: durationSeconds,
		MimeType: mimeType,
	})
	if err != nil {
		return nil, err
	}

	if err := p.advance(PhaseTransferring); err != nil {
		return nil, err
	}
	if err := p.transfer.Put(ctx, target.PresignedURL, req.FilePath, mimeType, p.reportProgress); err != nil {
		// The storage key from presign is abandoned here; it is never
		// referenced again and expires server-side.
		return nil, err
	}

	if err := p.advance(PhaseEnqueuing); err != nil {
		return nil, err
	}
	result, err := p.backend.QueueJob(ctx, types.QueueJobRequest{
		AudioFileKey:       target.S3Key,
		Duration:           durationSeconds,
		FileName:           filepath.Base(req.FilePath),
		SourceLanguage:     req.SourceLanguage,
		TranscriptLanguage: req.TranscriptLanguage,
	})
	if err != nil {
		// The uploaded object stays orphaned in storage; queue-job failure
		// is surfaced without compensation.
		return nil, err
	}

	p.store.Prepend(result.NewJob)
	if usage, err := p.backend.FetchUsage(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to refresh usage after enqueue")
	} else {
		p.store.SetUsage(*usage)
	}

	return &result.NewJob, nil
}

// validate applies the pre-network policy gates in order: snapshot loaded,
// quota, minimum duration, language selection.
func (p *Pipeline) validate(durationSeconds int, req Request) error {
	usage, loaded := p.store.Usage()
	if !loaded {
		return ErrUsageNotLoaded
	}
	if needed := MinutesNeeded(durationSeconds); float64(needed) > usage.RemainingMinutes {
		return fmt.Errorf("%w: need %d minute(s), %.1f remaining", ErrInsufficientQuota, needed, usage.RemainingMinutes)
	}
	if durationSeconds < p.minDurationSeconds {
		return fmt.Errorf("%w: %ds < %ds", ErrTooShort, durationSeconds, p.minDurationSeconds)
	}
	if req.SourceLanguage == "" || req.TranscriptLanguage == "" {
		return ErrLanguageMissing
	}
	if req.SourceLanguage == req.TranscriptLanguage {
		return ErrSameLanguages
	}
	return nil
}

func (p *Pipeline) begin(req Request) error {
	if req.FilePath == "" {
		return ErrNoFile
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session.Phase != PhaseIdle {
		return ErrRunInProgress
	}
	p.session = Session{File: req.FilePath, Phase: PhaseIdle}
	return nil
}

// advance moves the session to the next phase, enforcing strict ordering.
func (p *Pipeline) advance(to Phase) error {
	p.mu.Lock()
	from := p.session.Phase
	if !canAdvance(from, to) {
		p.mu.Unlock()
		return fmt.Errorf("illegal phase transition %s -> %s", from, to)
	}
	p.session.Phase = to
	p.mu.Unlock()

	log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("upload phase")
	if p.OnPhase != nil {
		p.OnPhase(to)
	}
	return nil
}

// reset clears the selected file and progress counter and returns to idle,
// regardless of which phase the run left off in.
func (p *Pipeline) reset() {
	p.mu.Lock()
	p.session = Session{Phase: PhaseIdle}
	p.mu.Unlock()
}

func (p *Pipeline) setDuration(seconds int) {
	p.mu.Lock()
	p.session.DurationSeconds = seconds
	p.mu.Unlock()
}

// reportProgress keeps the percentage monotonically non-decreasing and
// fans it out to the observer.
func (p *Pipeline) reportProgress(percent int) {
	p.mu.Lock()
	if percent < p.session.Progress {
		p.mu.Unlock()
		return
	}
	p.session.Progress = percent
	p.mu.Unlock()

	if p.OnProgress != nil {
		p.OnProgress(percent)
	}
}
