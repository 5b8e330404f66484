package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adgen/internal/api"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx reply from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

// StatusCode extracts the HTTP status from an APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for JSON calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client calls the daemon API.
type Client struct {
	base       *url.URL
	token      string
	httpClient *http.Client
}

// Dial builds a client for address, which may be a bare host:port or an
// http(s) URL. No connection is made until the first call.
func Dial(address, token string, opts ...Option) (*Client, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("daemon address is required")
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	base, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("parse daemon address: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported daemon address scheme %q", base.Scheme)
	}
	c := &Client{
		base:       base,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Address returns the daemon base URL.
func (c *Client) Address() string {
	return c.base.String()
}

// Health fetches the daemon health summary.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.call(ctx, http.MethodGet, "/api/health", nil, &resp)
	return resp, err
}

// Submit starts a pipeline run.
func (c *Client) Submit(ctx context.Context, req api.SubmitRequest) (api.SubmitResponse, error) {
	var resp api.SubmitResponse
	err := c.call(ctx, http.MethodPost, "/api/pipeline/run", req, &resp)
	return resp, err
}

// Job fetches the current snapshot of a job.
func (c *Client) Job(ctx context.Context, jobID string) (api.JobView, error) {
	var resp api.JobView
	err := c.call(ctx, http.MethodGet, "/api/pipeline/"+jobID+"/status", nil, &resp)
	return resp, err
}

// Jobs lists the caller's jobs, newest first.
func (c *Client) Jobs(ctx context.Context) ([]api.JobSummary, error) {
	var resp api.JobListResponse
	if err := c.call(ctx, http.MethodGet, "/api/pipeline", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// AddContent registers a product image.
func (c *Client) AddContent(ctx context.Context, req api.ContentRequest) (api.Content, error) {
	var resp api.Content
	err := c.call(ctx, http.MethodPost, "/api/contents", req, &resp)
	return resp, err
}

// Contents lists the caller's product images.
func (c *Client) Contents(ctx context.Context) ([]api.Content, error) {
	var resp api.ContentListResponse
	if err := c.call(ctx, http.MethodGet, "/api/contents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contents, nil
}

// Content fetches one product image record.
func (c *Client) Content(ctx context.Context, contentID string) (api.Content, error) {
	var resp api.Content
	err := c.call(ctx, http.MethodGet, "/api/contents/"+contentID, nil, &resp)
	return resp, err
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to daemon at %s: %w", c.base.Host, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload api.ErrorResponse
		_ = json.Unmarshal(data, &payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(h http.Header) {
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
}
