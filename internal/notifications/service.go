package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"adgen/internal/config"
)

const userAgent = "adgen/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventJobSucceeded Event = "job_succeeded"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries the values an event message is built from.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		notifyFailures: cfg.Notifications.NotifyFailures,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	notifyFailures bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.build(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) build(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobSucceeded:
		style := payload.text("style")
		if style == "" {
			style = "default"
		}
		body := fmt.Sprintf("🖼️ Ad ready (%s): %s", style, payload.text("contentID"))
		if url := payload.text("finalImageURL"); url != "" {
			body += "\n" + url
		}
		return message{
			title: "adgen - Ad Ready",
			body:  body,
			tags:  []string{"adgen", "ad", "completed"},
		}, true
	case EventJobFailed:
		if !n.notifyFailures {
			return message{}, false
		}
		step := payload.text("step")
		label := payload.text("stage")
		var where string
		switch {
		case step != "" && label != "":
			where = fmt.Sprintf(" at step %s (%s)", step, label)
		case step != "":
			where = " at step " + step
		}
		return message{
			title:    "adgen - Job Failed",
			body:     fmt.Sprintf("❌ Job %s failed%s: %s", payload.text("jobID"), where, payload.text("error")),
			tags:     []string{"adgen", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "adgen - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"adgen", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
