package config

const (
	defaultConfigPath             = "~/.config/adgen/config.toml"
	defaultDataDir                = "~/.local/share/adgen"
	defaultStorageDir             = "~/.local/share/adgen/bucket"
	defaultLogDir                 = "~/.local/share/adgen/logs"
	defaultAPIBind                = "127.0.0.1:7490"
	defaultPublicBaseURL          = "https://localhost/media"
	defaultImagingTimeoutSeconds  = 120
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "google/gemini-3-flash-preview"
	defaultLLMTitle               = "adgen caption writer"
	defaultLLMTimeoutSeconds      = 60
	defaultRendererBaseURL        = "http://127.0.0.1:3000"
	defaultRenderWidth            = 1080
	defaultRenderHeight           = 1080
	defaultRendererTimeoutSeconds = 60
	defaultStreamKeepaliveSeconds = 30
	defaultJobRetentionHours      = 24
	defaultShutdownGraceSeconds   = 10
	defaultNtfyTimeoutSeconds     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"

	// LocalUser is the caller identity used when authentication is disabled.
	LocalUser = "local"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StorageDir: defaultStorageDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Storage: Storage{
			PublicBaseURL: defaultPublicBaseURL,
		},
		Imaging: Imaging{
			TimeoutSeconds: defaultImagingTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Renderer: Renderer{
			BaseURL:        defaultRendererBaseURL,
			Width:          defaultRenderWidth,
			Height:         defaultRenderHeight,
			TimeoutSeconds: defaultRendererTimeoutSeconds,
		},
		Workflow: Workflow{
			StreamKeepaliveSeconds: defaultStreamKeepaliveSeconds,
			JobRetentionHours:      defaultJobRetentionHours,
			ShutdownGraceSeconds:   defaultShutdownGraceSeconds,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
			NotifyFailures:        true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
