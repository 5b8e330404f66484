package testsupport

import (
	"path/filepath"
	"testing"

	"adgen/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.StorageDir = filepath.Join(base, "bucket")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.PublicBaseURL = "https://cdn.test/media"
	cfgVal.Workflow.ShutdownGraceSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithToken maps a bearer token to a user on the test config.
func WithToken(token, userID string) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Auth.Tokens == nil {
			b.cfg.Auth.Tokens = make(map[string]string)
		}
		b.cfg.Auth.Tokens[token] = userID
	}
}

// WithProviders points the imaging, caption, and renderer clients at baseURL.
func WithProviders(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Imaging.BaseURL = baseURL
		b.cfg.LLM.BaseURL = baseURL + "/v1/chat/completions"
		b.cfg.LLM.APIKey = "test"
		b.cfg.Renderer.BaseURL = baseURL
	}
}

// WithKeepalive sets the stream keepalive in seconds.
func WithKeepalive(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.StreamKeepaliveSeconds = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
