package renderer

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

	"adgen/internal/config"
	"adgen/internal/services"
	"adgen/internal/stage"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	maxImageBytes      = 32 << 20
	healthName         = "renderer"
)

// pngSignature prefixes every PNG file.
var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Config captures the render service settings.
type Config struct {
	BaseURL        string
	Width          int
	Height         int
	TimeoutSeconds int
}

// Client renders markup through the render service.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a render client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NewFromConfig builds a client from the renderer section of cfg.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	return NewClient(Config{
		BaseURL:        cfg.Renderer.BaseURL,
		Width:          cfg.Renderer.Width,
		Height:         cfg.Renderer.Height,
		TimeoutSeconds: cfg.Renderer.TimeoutSeconds,
	}, opts...)
}

type renderRequest struct {
	HTML   string `json:"html"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Render returns a PNG screenshot of html.
func (c *Client) Render(ctx context.Context, html string) ([]byte, error) {
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "render", "renderer base_url not configured", nil)
	}
	if strings.TrimSpace(html) == "" {
		return nil, errors.New("render: markup is empty")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "render")
	if err != nil {
		return nil, fmt.Errorf("render: build url: %w", err)
	}
	encoded, err := json.Marshal(renderRequest{
		HTML:   html,
		Width:  c.cfg.Width,
		Height: c.cfg.Height,
		Format: "png",
	})
	if err != nil {
		return nil, fmt.Errorf("render: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("render: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("render: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("render: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) > maxImageBytes {
		return nil, fmt.Errorf("render: image exceeds %d bytes", maxImageBytes)
	}
	if !bytes.HasPrefix(body, pngSignature) {
		return nil, fmt.Errorf("render: response is not a png (content-type %q)", resp.Header.Get("Content-Type"))
	}
	return body, nil
}

// HealthCheck reports whether the render service answers /health.
func (c *Client) HealthCheck(ctx context.Context) stage.Health {
	if c.cfg.BaseURL == "" {
		return stage.Unhealthy(healthName, "renderer base_url not configured")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "health")
	if err != nil {
		return stage.Unhealthy(healthName, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return stage.Unhealthy(healthName, err.Error())
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stage.Unhealthy(healthName, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return stage.Unhealthy(healthName, fmt.Sprintf("health endpoint returned http %d", resp.StatusCode))
	}
	return stage.Healthy(healthName)
}
