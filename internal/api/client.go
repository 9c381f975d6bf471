package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/voxscribe/voxscribe/internal/session"
	"github.com/voxscribe/voxscribe/pkg/config"
	"github.com/voxscribe/voxscribe/pkg/types"
)

// Error is a failed API call, carrying the backend's message verbatim.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Client talks to the VoxScribe REST API. Credentials ride in HTTP-only
// cookies managed by the jar; the client never reads token values. Expiry
// recovery is delegated to the session coordinator: a 401 on a non-auth
// endpoint triggers (or joins) a single refresh, after which the original
// request is replayed at most once.
type Client struct {
	baseURL string
	httpc   *http.Client
	coord   *session.Coordinator
}

// NewClient creates a client with an in-memory cookie jar.
func NewClient(cfg *config.ClientConfig) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return NewClientWithJar(cfg, jar), nil
}

// NewClientWithJar creates a client around a caller-supplied cookie jar,
// letting the CLI persist the session across invocations.
func NewClientWithJar(cfg *config.ClientConfig, jar http.CookieJar) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc: &http.Client{
			Timeout: cfg.HTTPTimeout,
			Jar:     jar,
		},
	}
	c.coord = session.NewCoordinator(c.Refresh)
	return c
}

// request is one replayable API call. The body is buffered so a replay
// rebuilds the request from scratch, and retried enforces the
// at-most-one-retry rule structurally.
type request struct {
	method  string
	path    string
	body    []byte
	retried bool
}

// authPaths are exempt from expiry recovery; a 401 from any of these is
// final, which keeps the refresh endpoint from recursing into itself.
var authPaths = []string{
	"/auth/login",
	"/auth/sign-up",
	"/auth/refresh",
	"/auth/logout",
	"/auth/forgot-password",
	"/auth/reset-password",
}

func isAuthPath(path string) bool {
	for _, p := range authPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// envelope mirrors the backend's unified response shape with the payload
// left raw for per-endpoint decoding.
type envelope struct {
	Status     int               `json:"status"`
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       json.RawMessage   `json:"data"`
	Error      *types.APIError   `json:"error"`
	Pagination *types.Pagination `json:"pagination"`
}

// do marshals body (if any), sends the request through the session guard,
// and unwraps the response envelope into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	env, err := c.doEnvelope(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func unmarshalData(data json.RawMessage, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response payload: %w", err)
	}
	return nil
}

func (c *Client) doEnvelope(ctx context.Context, method, path string, body any) (*envelope, error) {
	req := &request{method: method, path: path}
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		req.body = buf
	}
	return c.send(ctx, req)
}

func (c *Client) send(ctx context.Context, req *request) (*envelope, error) {
	for {
		resp, err := c.roundTrip(ctx, req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized && !req.retried && !isAuthPath(req.path) {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			log.Debug().Str("path", req.path).Msg("credential expired, awaiting refresh")
			if err := c.coord.Await(ctx); err != nil {
				// Forced-logout path: the refresh itself failed, so every
				// caller waiting on it gets this error and no replay happens.
				return nil, err
			}
			req.retried = true
			continue
		}

		defer resp.Body.Close()
		return decodeEnvelope(resp)
	}
}

func (c *Client) roundTrip(ctx context.Context, req *request) (*http.Response, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", req.method, req.path, err)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", req.method, req.path, err)
	}
	return resp, nil
}

func decodeEnvelope(resp *http.Response) (*envelope, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Not an envelope at all; surface the HTTP status.
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected response (status %d)", resp.StatusCode),
		}
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("request failed (status %d)", resp.StatusCode)
		}
		return nil, &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	return &env, nil
}

// Refresh exchanges the expiring session cookie for a fresh one. It goes
// straight to the transport so it can never re-enter the coordinator.
func (c *Client) Refresh(ctx context.Context) error {
	req := &request{method: http.MethodPost, path: "/auth/refresh"}
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := decodeEnvelope(resp); err != nil {
		return fmt.Errorf("token refresh rejected: %w", err)
	}
	return nil
}
