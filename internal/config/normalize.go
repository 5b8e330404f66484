package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAuth()
	c.normalizeStorage()
	c.normalizeImaging()
	c.normalizeLLM()
	c.normalizeRenderer()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		c.Paths.StorageDir = defaultStorageDir
	}
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeAuth() {
	if len(c.Auth.Tokens) == 0 {
		return
	}
	cleaned := make(map[string]string, len(c.Auth.Tokens))
	for token, user := range c.Auth.Tokens {
		token = strings.TrimSpace(token)
		user = strings.TrimSpace(user)
		if token == "" || user == "" {
			continue
		}
		cleaned[token] = user
	}
	c.Auth.Tokens = cleaned
}

func (c *Config) normalizeStorage() {
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if c.Storage.PublicBaseURL == "" {
		c.Storage.PublicBaseURL = defaultPublicBaseURL
	}
}

func (c *Config) normalizeImaging() {
	c.Imaging.BaseURL = strings.TrimRight(strings.TrimSpace(c.Imaging.BaseURL), "/")
	c.Imaging.APIToken = strings.TrimSpace(c.Imaging.APIToken)
	if c.Imaging.APIToken == "" {
		if value, ok := os.LookupEnv("ADGEN_IMAGING_TOKEN"); ok {
			c.Imaging.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Imaging.TimeoutSeconds <= 0 {
		c.Imaging.TimeoutSeconds = defaultImagingTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("ADGEN_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeRenderer() {
	c.Renderer.BaseURL = strings.TrimRight(strings.TrimSpace(c.Renderer.BaseURL), "/")
	if c.Renderer.BaseURL == "" {
		c.Renderer.BaseURL = defaultRendererBaseURL
	}
	if c.Renderer.Width <= 0 {
		c.Renderer.Width = defaultRenderWidth
	}
	if c.Renderer.Height <= 0 {
		c.Renderer.Height = defaultRenderHeight
	}
	if c.Renderer.TimeoutSeconds <= 0 {
		c.Renderer.TimeoutSeconds = defaultRendererTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
