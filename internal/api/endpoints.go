package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/voxscribe/voxscribe/pkg/types"
)

// SignUp creates a new account.
func (c *Client) SignUp(ctx context.Context, req types.SignUpRequest) (*types.User, error) {
	var out struct {
		User *types.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/sign-up", req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Login authenticates and receives the session cookies.
func (c *Client) Login(ctx context.Context, req types.LoginRequest) (*types.User, error) {
	var out struct {
		User *types.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout invalidates the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// ForgotPassword starts a password reset and returns the server's message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	env, err := c.doEnvelope(ctx, http.MethodPost, "/auth/forgot-password", types.ForgotPasswordRequest{Email: email})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// ResetPassword completes a password reset.
func (c *Client) ResetPassword(ctx context.Context, req types.ResetPasswordRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/reset-password", req, nil)
}

// Profile fetches the authenticated account and its subscription.
func (c *Client) Profile(ctx context.Context) (*types.Profile, error) {
	var out types.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchUsage returns the current quota snapshot.
func (c *Client) FetchUsage(ctx context.Context) (*types.Usage, error) {
	var out types.Usage
	if err := c.do(ctx, http.MethodGet, "/transcription/usage", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchJobs lists jobs most-recent-first, optionally filtered by query.
func (c *Client) SearchJobs(ctx context.Context, page, limit int, query string) ([]types.TranscriptionJob, *types.Pagination, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))
	if query != "" {
		q.Set("query", query)
	}

	env, err := c.doEnvelope(ctx, http.MethodGet, "/transcription/search?"+q.Encode(), nil)
	if err != nil {
		return nil, nil, err
	}

	var jobs []types.TranscriptionJob
	if len(env.Data) > 0 {
		if err := unmarshalData(env.Data, &jobs); err != nil {
			return nil, nil, err
		}
	}
	return jobs, env.Pagination, nil
}

// JobDetail fetches the status and artifact links for one job.
func (c *Client) JobDetail(ctx context.Context, jobID string) (*types.JobDetail, error) {
	var out types.JobDetail
	if err := c.do(ctx, http.MethodGet, "/transcription/job/"+url.PathEscape(jobID), nil, &out); err != nil {
		return nil, err
	}
	out.JobID = jobID
	return &out, nil
}

// Presign requests a single-use upload target for an audio file.
func (c *Client) Presign(ctx context.Context, req types.PresignRequest) (*types.PresignResponse, error) {
	var out types.PresignResponse
	if err := c.do(ctx, http.MethodPost, "/transcription/presign", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueueJob registers an uploaded object as a new transcription job.
func (c *Client) QueueJob(ctx context.Context, req types.QueueJobRequest) (*types.QueueJobResult, error) {
	var out types.QueueJobResult
	if err := c.do(ctx, http.MethodPost, "/transcription/queue-job", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteJob removes a job record.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/transcription/"+url.PathEscape(jobID), nil, nil)
}

// UsageStats returns per-day usage aggregates.
func (c *Client) UsageStats(ctx context.Context) ([]types.UsageStats, error) {
	var out []types.UsageStats
	if err := c.do(ctx, http.MethodGet, "/transcription/usage/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
