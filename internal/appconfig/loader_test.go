package appconfig

import (
	"strings"
	"testing"
)

const defaultsYAML = `
server:
  log_level: info
providers:
  llm:
    name: anyllm
    model: gpt-4o
  tts:
    name: elevenlabs
    model: eleven_multilingual_v2
pipeline:
  default_section_length_midpoint: 300
  rolling_summary_min_tokens: 400
  schema_base_dir: schemas
  prompts_dir: prompts
  context_dir: context
tts:
  enabled: false
  ext: mp3
`

const overrideYAML = `
providers:
  llm:
    name: anyllm
    model: claude-3-5-sonnet-latest
tts:
  enabled: true
  provider: elevenlabs
  voice: narrator-1
  ext: wav
`

func TestLoadFromReaderDecodesDefaults(t *testing.T) {
	cfg, err := loadFromReader(strings.NewReader(defaultsYAML), "defaults.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.LLM.Model != "gpt-4o" {
		t.Fatalf("got %q", cfg.Providers.LLM.Model)
	}
}

func TestMergeOverridesTopLevelBlocks(t *testing.T) {
	base, err := loadFromReader(strings.NewReader(defaultsYAML), "defaults.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	override, err := loadFromReader(strings.NewReader(overrideYAML), "app_config.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	merged := merge(base, override)

	if merged.Providers.LLM.Model != "claude-3-5-sonnet-latest" {
		t.Fatalf("expected override LLM model to win, got %q", merged.Providers.LLM.Model)
	}
	if !merged.TTS.Enabled || merged.TTS.Voice != "narrator-1" || merged.TTS.Ext != "wav" {
		t.Fatalf("expected override TTS block to replace default, got %#v", merged.TTS)
	}
	if merged.Pipeline.DefaultSectionLengthMidpoint != 300 {
		t.Fatalf("expected unset override pipeline fields to keep default, got %d", merged.Pipeline.DefaultSectionLengthMidpoint)
	}
}

func TestValidateRequiresLLMProvider(t *testing.T) {
	cfg := &Config{Pipeline: PipelineConfig{DefaultSectionLengthMidpoint: 300, ContextDir: "c", PromptsDir: "p", SchemaBaseDir: "s"}}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for missing providers.llm.name")
	}
}

func TestValidateTTSRequiresProviderWhenEnabled(t *testing.T) {
	cfg := &Config{
		Pipeline:  PipelineConfig{DefaultSectionLengthMidpoint: 300, ContextDir: "c", PromptsDir: "p", SchemaBaseDir: "s"},
		Providers: ProvidersConfig{LLM: ProviderEntry{Name: "anyllm"}},
		TTS:       TTSConfig{Enabled: true, Ext: "wav"},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for tts.enabled without providers.tts.name")
	}
}
