package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	// Stage gates only accept externally fetchable https references.
	if !strings.HasPrefix(c.Storage.PublicBaseURL, "https://") {
		return errors.New("storage.public_base_url must start with https://")
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	for name, value := range map[string]string{
		"imaging.base_url":         c.Imaging.BaseURL,
		"llm.base_url":             c.LLM.BaseURL,
		"renderer.base_url":        c.Renderer.BaseURL,
		"notifications.ntfy_topic": c.Notifications.NtfyTopic,
	} {
		if value == "" {
			continue
		}
		parsed, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must be an http(s) url", name)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.StreamKeepaliveSeconds <= 0 {
		return errors.New("workflow.stream_keepalive_seconds must be positive")
	}
	if c.Workflow.JobRetentionHours < 0 {
		return errors.New("workflow.job_retention_hours must be zero or positive")
	}
	if c.Workflow.ShutdownGraceSeconds < 0 {
		return errors.New("workflow.shutdown_grace_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
