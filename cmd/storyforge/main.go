// Command storyforge runs one deterministic story-generation pipeline from
// start to finish: outline, per-beat sections, continuity summaries, a
// critic pass, and — when configured — narrated audio.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayy-em/storyforge/internal/appconfig"
	"github.com/ayy-em/storyforge/internal/launchparams"
	"github.com/ayy-em/storyforge/internal/orchestrator"
	"github.com/ayy-em/storyforge/internal/telemetry"
	"github.com/ayy-em/storyforge/pkg/provider/llm/anyllm"
	"github.com/ayy-em/storyforge/pkg/provider/tts"
	"github.com/ayy-em/storyforge/pkg/provider/tts/elevenlabs"
	"github.com/ayy-em/storyforge/pkg/provider/tts/openaitts"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────
	appsDir := flag.String("apps-dir", "apps", "directory containing default_config.yaml and per-app overrides")
	app := flag.String("app", "", "app name (selects apps/<app>/app_config.yaml)")
	seed := flag.String("seed", "", "story seed text")
	beats := flag.Int("beats", 0, "number of beats (0 means derive from word-count)")
	wordCount := flag.Int("word-count", 0, "target total word count (0 means derive from beats)")
	sectionLength := flag.String("section-length", "", `override section length, "lo-hi" form`)
	runID := flag.String("run-id", "", "run identifier (default: run-<timestamp>)")
	model := flag.String("model", "", "override the configured LLM model")
	language := flag.String("language", "en", "ISO 639-1 language code")
	baseDir := flag.String("base-dir", ".", "workspace root containing runs/ and apps/")
	ttsEnabled := flag.Bool("tts", false, "override tts.enabled from the app config")
	flag.Parse()

	if *app == "" || *seed == "" {
		fmt.Fprintln(os.Stderr, "storyforge: -app and -seed are required")
		return 1
	}

	cfg, err := appconfig.Load(*appsDir, *app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storyforge: load config: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.InitProvider(ctx, telemetry.ProviderConfig{
		ServiceName: "storyforge",
	})
	if err != nil {
		slog.Error("failed to initialize telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown error", "err", err)
		}
	}()

	var beatsPtr, wordCountPtr *int
	if *beats > 0 {
		beatsPtr = beats
	}
	if *wordCount > 0 {
		wordCountPtr = wordCount
	}

	resolved, err := launchparams.Resolve(launchparams.Params{
		App:           *app,
		Seed:          *seed,
		Beats:         beatsPtr,
		WordCount:     wordCountPtr,
		SectionLength: *sectionLength,
		RunID:         *runID,
		Model:         *model,
		Language:      *language,
		TTSEnabled:    *ttsEnabled || cfg.TTS.Enabled,
		TTSProvider:   cfg.Providers.TTS.Name,
		TTSModel:      cfg.TTS.Model,
		TTSVoice:      cfg.TTS.Voice,
	}, cfg.Pipeline.DefaultSectionLengthMidpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storyforge: %v\n", err)
		return 1
	}

	generator, err := anyllm.New(cfg.Providers.LLM.Name, pick(resolved.Model, cfg.Providers.LLM.Model))
	if err != nil {
		slog.Error("failed to build LLM provider", "err", err)
		return 1
	}

	var ttsSettings *orchestrator.TTSSettings
	if resolved.TTSEnabled {
		synth, err := buildSpeechSynthesizer(cfg, resolved)
		if err != nil {
			slog.Error("failed to build TTS provider", "err", err)
			return 1
		}
		ttsSettings = &orchestrator.TTSSettings{
			Enabled: true,
			Synth:   synth,
			Model:   resolved.TTSModel,
			Voice:   resolved.TTSVoice,
			Ext:     pick(cfg.TTS.Ext, "mp3"),
		}
	}

	runDir, err := orchestrator.Run(orchestrator.Config{
		BaseDir:                 *baseDir,
		App:                     resolved.App,
		Seed:                    resolved.Seed,
		ContextDir:              cfg.Pipeline.ContextDir,
		PromptsDir:              cfg.Pipeline.PromptsDir,
		SchemaDir:               cfg.Pipeline.SchemaBaseDir,
		Beats:                   resolved.Beats,
		SectionLength:           resolved.SectionLength,
		Model:                   resolved.Model,
		Language:                resolved.Language,
		RunID:                   resolved.RunID,
		FoldWorldContext:        cfg.Pipeline.FoldWorldContext,
		RollingSummaryMinTokens: cfg.Pipeline.RollingSummaryMinTokens,
		MaxRetries:              cfg.Providers.LLM.MaxRetries,
		Generator:               generator,
		TTS:                     ttsSettings,
		Mets:                    telemetry.Default(),
		Now:                     time.Now(),
	})
	if err != nil {
		slog.Error("run failed", "run_dir", runDir, "err", err)
		return 1
	}

	slog.Info("run complete", "run_dir", runDir)
	return 0
}

func buildSpeechSynthesizer(cfg *appconfig.Config, resolved *launchparams.Resolved) (tts.SpeechSynthesizer, error) {
	switch cfg.Providers.TTS.Name {
	case "elevenlabs":
		apiKey := pick(cfg.Providers.TTS.APIKey, os.Getenv("ELEVENLABS_API_KEY"))
		return elevenlabs.New(apiKey, pick(resolved.TTSVoice, cfg.TTS.Voice))
	case "openai":
		apiKey := pick(cfg.Providers.TTS.APIKey, os.Getenv("OPENAI_API_KEY"))
		p, err := openaitts.New(apiKey)
		if err != nil {
			return nil, err
		}
		if v := pick(resolved.TTSVoice, cfg.TTS.Voice); v != "" {
			p.WithDefaultVoice(v)
		}
		if m := pick(resolved.TTSModel, cfg.TTS.Model); m != "" {
			p.WithDefaultModel(m)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("storyforge: unknown tts provider %q", cfg.Providers.TTS.Name)
	}
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
