package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
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
	"adgen/internal/stages"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	maxImageBytes      = 32 << 20
	healthName         = "imaging"

	pathRemoveBackground = "v1/background/remove"
	pathFitting          = "v1/fitting"
	pathScenes           = "v1/scenes"
	pathHealth           = "health"
)

// Config captures the gateway connection settings.
type Config struct {
	BaseURL        string
	APIToken       string
	TimeoutSeconds int
}

// Client calls the image provider gateway.
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

// NewClient constructs a gateway client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIToken:       strings.TrimSpace(cfg.APIToken),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NewFromConfig builds a client from the imaging section of cfg.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	return NewClient(Config{
		BaseURL:        cfg.Imaging.BaseURL,
		APIToken:       cfg.Imaging.APIToken,
		TimeoutSeconds: cfg.Imaging.TimeoutSeconds,
	}, opts...)
}

// RemoveBackground returns a cut-out PNG of the product at imageURL.
func (c *Client) RemoveBackground(ctx context.Context, imageURL string) ([]byte, error) {
	return c.postImage(ctx, pathRemoveBackground, map[string]any{
		"image_url": imageURL,
	})
}

// Fit dresses a catalogue model of the requested style in the garment.
func (c *Client) Fit(ctx context.Context, req stages.FitRequest) ([]byte, error) {
	body := map[string]any{
		"garment_url":         req.GarmentURL,
		"model_style":         req.Style,
		"category":            fittingCategory(req.Pose),
		"garment_description": fmt.Sprintf("A %s style garment", req.Style),
	}
	if req.ModelIndex != nil {
		body["model_index"] = *req.ModelIndex
	}
	if prompt := strings.TrimSpace(req.UserPrompt); prompt != "" {
		body["prompt"] = prompt
	}
	return c.postImage(ctx, pathFitting, body)
}

// Synthesize places the fitted image into a style-specific scene.
func (c *Client) Synthesize(ctx context.Context, req stages.SceneRequest) ([]byte, error) {
	return c.postImage(ctx, pathScenes, map[string]any{
		"image_url": req.ImageURL,
		"style":     req.Style,
		"prompt":    ScenePrompt(req.Style, req.UserPrompt),
	})
}

// HealthCheck reports whether the gateway answers its health endpoint.
func (c *Client) HealthCheck(ctx context.Context) stage.Health {
	if c.cfg.BaseURL == "" {
		return stage.Unhealthy(healthName, "imaging base_url not configured")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, pathHealth)
	if err != nil {
		return stage.Unhealthy(healthName, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return stage.Unhealthy(healthName, err.Error())
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stage.Unhealthy(healthName, err.Error())
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= http.StatusMultipleChoices {
		return stage.Unhealthy(healthName, fmt.Sprintf("health endpoint returned http %d", resp.StatusCode))
	}
	return stage.Healthy(healthName)
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
}

type imageEnvelope struct {
	ImageBase64 string `json:"image_base64"`
	ImageURL    string `json:"image_url"`
	Output      any    `json:"output"`
	Error       string `json:"error"`
}

func (c *Client) postImage(ctx context.Context, path string, payload map[string]any) ([]byte, error) {
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "imaging request", "imaging base_url not configured", nil)
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("imaging request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("imaging request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("imaging request: new request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imaging %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("imaging %s: read body: %w", path, err)
	}
	if len(body) > maxImageBytes {
		return nil, fmt.Errorf("imaging %s: response exceeds %d bytes", path, maxImageBytes)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("imaging %s: http %d: %s", path, resp.StatusCode, snippet(body))
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		return body, nil
	}
	return c.decodeEnvelope(ctx, path, body)
}

func (c *Client) decodeEnvelope(ctx context.Context, path string, body []byte) ([]byte, error) {
	var env imageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("imaging %s: decode response: %w", path, err)
	}
	if env.Error != "" {
		return nil, fmt.Errorf("imaging %s: provider error: %s", path, env.Error)
	}
	if env.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(env.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("imaging %s: decode image: %w", path, err)
		}
		return data, nil
	}
	// Replicate-style outputs arrive as a URL string or a list of URLs.
	location := env.ImageURL
	if location == "" {
		switch out := env.Output.(type) {
		case string:
			location = out
		case []any:
			if len(out) > 0 {
				location, _ = out[0].(string)
			}
		}
	}
	if location == "" {
		return nil, fmt.Errorf("imaging %s: response carried no image (snippet: %s)", path, snippet(body))
	}
	return c.download(ctx, location)
}

func (c *Client) download(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("imaging download: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imaging download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("imaging download: http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("imaging download: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, errors.New("imaging download: image too large")
	}
	return data, nil
}

func snippet(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if text == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(text); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}
