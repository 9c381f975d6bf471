package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// HTTPTransfer PUTs raw file bytes to a presigned storage URL. No timeout
// is set on the client: large uploads are bounded by the caller's context
// instead.
type HTTPTransfer struct {
	httpc *http.Client
}

// NewTransfer creates the production transfer.
func NewTransfer() *HTTPTransfer {
	return &HTTPTransfer{httpc: &http.Client{}}
}

// Put streams filePath to url with the given Content-Type, reporting
// percent-complete as bytes are written. Any non-2xx response or transport
// failure is an error; partial uploads are abandoned, not resumed.
func (t *HTTPTransfer) Put(ctx context.Context, url, filePath, mimeType string, onProgress func(int)) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	body := &progressReader{r: f, total: info.Size(), onProgress: onProgress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("failed to build storage request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", mimeType)

	resp, err := t.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("storage upload failed: no response from server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("storage rejected upload (status %d): %s", resp.StatusCode, msg)
	}

	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// progressReader counts bytes handed to the transport and emits integer
// percentages. Reported values only ever grow.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	last       int
	onProgress func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 && p.onProgress != nil {
		p.read += int64(n)
		percent := int(p.read * 100 / p.total)
		if percent > 100 {
			percent = 100
		}
		if percent > p.last {
			p.last = percent
			p.onProgress(percent)
		}
	}
	return n, err
}
