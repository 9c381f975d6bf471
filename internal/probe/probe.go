package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnreadableDuration is returned when a local file's duration cannot be
// decoded. No upload is attempted for such files.
var ErrUnreadableDuration = errors.New("cannot read audio duration")

// ErrNotAudio is returned for files whose content is not an audio format.
var ErrNotAudio = errors.New("not an audio file")

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// FFProbe reads media durations by shelling out to ffprobe. Only the
// container metadata is decoded; the file is never uploaded or transcoded
// locally.
type FFProbe struct {
	path   string
	runner commandRunner
}

// NewFFProbe creates a prober using the given ffprobe binary.
func NewFFProbe(path string) *FFProbe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFProbe{path: path, runner: execRunner{}}
}

// Duration returns the clip length of filePath in seconds.
func (p *FFProbe) Duration(ctx context.Context, filePath string) (float64, error) {
	stdout, stderr, err := p.runner.Run(ctx, p.path,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		filePath,
	)
	if err != nil {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return 0, fmt.Errorf("%w: %s", ErrUnreadableDuration, msg)
		}
		return 0, fmt.Errorf("%w: %v", ErrUnreadableDuration, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected ffprobe output %q", ErrUnreadableDuration, strings.TrimSpace(stdout))
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("%w: non-positive duration", ErrUnreadableDuration)
	}
	return seconds, nil
}

// DetectAudioMime sniffs the file's content type and rejects anything that
// is not audio. The detected MIME type is what gets sent to presign and to
// the storage PUT.
func DetectAudioMime(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "audio/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotAudio, mt.String())
	}
	return mt.String(), nil
}
