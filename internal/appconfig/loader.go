package appconfig

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads apps/default_config.yaml, then shallow-merges
// apps/<app>/app_config.yaml over it if present, and validates the result.
func Load(appsDir, app string) (*Config, error) {
	defaults, err := loadFile(filepath.Join(appsDir, "default_config.yaml"), true)
	if err != nil {
		return nil, err
	}

	overridePath := filepath.Join(appsDir, app, "app_config.yaml")
	if _, statErr := os.Stat(overridePath); statErr == nil {
		override, err := loadFile(overridePath, false)
		if err != nil {
			return nil, err
		}
		defaults = merge(defaults, override)
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("appconfig: stat %q: %w", overridePath, statErr)
	}

	if err := Validate(defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}

func loadFile(path string, required bool) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("appconfig: open %q: %w", path, err)
	}
	defer f.Close()
	return loadFromReader(f, path)
}

func loadFromReader(r io.Reader, path string) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("appconfig: decode %q: %w", path, err)
	}
	return cfg, nil
}

// merge overlays override on base. server is replaced whole when override
// sets log_level, each providers entry when override sets its name, and tts
// when override sets any of its fields. pipeline is merged field by field:
// each non-zero override field wins, and fold_world_context is taken from
// override whenever override sets any pipeline field.
func merge(base, override *Config) *Config {
	merged := *base

	if override.Server.LogLevel != "" {
		merged.Server = override.Server
	}
	if override.Providers.LLM.Name != "" {
		merged.Providers.LLM = override.Providers.LLM
	}
	if override.Providers.TTS.Name != "" {
		merged.Providers.TTS = override.Providers.TTS
	}
	if override.Pipeline != (PipelineConfig{}) {
		if override.Pipeline.DefaultSectionLengthMidpoint != 0 {
			merged.Pipeline.DefaultSectionLengthMidpoint = override.Pipeline.DefaultSectionLengthMidpoint
		}
		if override.Pipeline.RollingSummaryMinTokens != 0 {
			merged.Pipeline.RollingSummaryMinTokens = override.Pipeline.RollingSummaryMinTokens
		}
		if override.Pipeline.SchemaBaseDir != "" {
			merged.Pipeline.SchemaBaseDir = override.Pipeline.SchemaBaseDir
		}
		if override.Pipeline.PromptsDir != "" {
			merged.Pipeline.PromptsDir = override.Pipeline.PromptsDir
		}
		if override.Pipeline.ContextDir != "" {
			merged.Pipeline.ContextDir = override.Pipeline.ContextDir
		}
		merged.Pipeline.FoldWorldContext = override.Pipeline.FoldWorldContext
	}
	if override.TTS != (TTSConfig{}) {
		merged.TTS = override.TTS
	}

	return &merged
}

// Validate checks cfg for internal consistency, returning a joined error
// listing every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Pipeline.DefaultSectionLengthMidpoint <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.default_section_length_midpoint must be positive"))
	}
	if cfg.Pipeline.ContextDir == "" {
		errs = append(errs, fmt.Errorf("pipeline.context_dir is required"))
	}
	if cfg.Pipeline.PromptsDir == "" {
		errs = append(errs, fmt.Errorf("pipeline.prompts_dir is required"))
	}
	if cfg.Pipeline.SchemaBaseDir == "" {
		errs = append(errs, fmt.Errorf("pipeline.schema_base_dir is required"))
	}
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, fmt.Errorf("providers.llm.name is required"))
	}
	if cfg.TTS.Enabled {
		if cfg.Providers.TTS.Name == "" {
			errs = append(errs, fmt.Errorf("tts.enabled is true but providers.tts.name is not configured"))
		}
		if cfg.TTS.Ext != "wav" && cfg.TTS.Ext != "mp3" {
			errs = append(errs, fmt.Errorf("tts.ext %q must be \"wav\" or \"mp3\"", cfg.TTS.Ext))
		}
	}

	return errors.Join(errs...)
}
