// Package appconfig defines the two-tier YAML configuration schema: an
// apps/default_config.yaml baseline, shallow-merged with a per-app
// apps/<app>/app_config.yaml override.
package appconfig

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	TTS       TTSConfig       `yaml:"tts"`
}

// ServerConfig holds process-wide logging settings.
type ServerConfig struct {
	// LogLevel controls the ambient slog logger. Valid values: "debug",
	// "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation backs each role.
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block for a provider binding.
type ProviderEntry struct {
	// Name selects the adapter (e.g. "openai", "anthropic", "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key. Empty means fall back to the
	// adapter's usual environment variable.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model is the default model/voice used when a call does not override
	// it.
	Model string `yaml:"model"`

	// MaxRetries is the retry budget passed to internal/resilience.Do;
	// total attempts are MaxRetries+1.
	MaxRetries int `yaml:"max_retries"`

	// Options holds adapter-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// PipelineConfig holds orchestrator-wide defaults.
type PipelineConfig struct {
	// DefaultSectionLengthMidpoint is the per-section word count used to
	// derive beats/section_length when the caller supplies only one of
	// beats or word_count.
	DefaultSectionLengthMidpoint int `yaml:"default_section_length_midpoint"`

	// RollingSummaryMinTokens is the floor passed to
	// continuity.BuildRollingSummary; the ceiling is the package constant.
	RollingSummaryMinTokens int `yaml:"rolling_summary_min_tokens"`

	// FoldWorldContext controls whether contextload.Load folds world/*.md
	// into the combined lore payload.
	FoldWorldContext bool `yaml:"fold_world_context"`

	// SchemaBaseDir is the directory schema filenames resolve against.
	SchemaBaseDir string `yaml:"schema_base_dir"`

	// PromptsDir is the default prompts directory, used when the app has no
	// apps/<app>/prompts override.
	PromptsDir string `yaml:"prompts_dir"`

	// ContextDir is the app's context root (contains lore_bible.md, style/,
	// locations/, characters/, world/).
	ContextDir string `yaml:"context_dir"`
}

// TTSConfig holds the default audio-synthesis configuration; individual
// runs may override Enabled/Provider/Model/Voice via launch parameters.
type TTSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Voice    string `yaml:"voice"`

	// Ext selects the output container: "wav" or "mp3".
	Ext string `yaml:"ext"`
}
