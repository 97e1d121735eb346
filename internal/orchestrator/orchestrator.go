// Package orchestrator sequences one run end to end: run-directory
// initialization, context selection, outline, the per-beat section and
// summarize loop, the critic pass, and — when enabled — the audio pipeline.
//
// Execution is single-writer: one Run call advances stages strictly in
// order, reloading state from disk between stages so no stage depends on
// another's in-memory copy.
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ayy-em/storyforge/internal/audio"
	"github.com/ayy-em/storyforge/internal/contextload"
	"github.com/ayy-em/storyforge/internal/model"
	"github.com/ayy-em/storyforge/internal/rundir"
	"github.com/ayy-em/storyforge/internal/runlog"
	"github.com/ayy-em/storyforge/internal/schema"
	"github.com/ayy-em/storyforge/internal/stage"
	"github.com/ayy-em/storyforge/internal/statestore"
	"github.com/ayy-em/storyforge/internal/telemetry"
	"github.com/ayy-em/storyforge/pkg/provider/llm"
	"github.com/ayy-em/storyforge/pkg/provider/tts"
)

// TTSSettings bundles everything the audio pipeline needs when narration is
// enabled. Synth is nil-checked: a nil Synth with Enabled true is a caller
// error, not silently skipped.
type TTSSettings struct {
	Enabled bool
	Synth   tts.SpeechSynthesizer
	Model   string
	Voice   string
	Ext     string // "wav" or "mp3"
}

// Config bundles everything a single run needs. The caller (cmd/storyforge)
// resolves launch parameters and provider adapters before constructing this.
type Config struct {
	BaseDir    string
	App        string
	Seed       string
	ContextDir string
	PromptsDir string
	SchemaDir  string

	Beats         int
	SectionLength string
	Model         string
	Language      string
	RunID         string

	FoldWorldContext        bool
	RollingSummaryMinTokens int
	MaxRetries              int

	Generator llm.TextGenerator
	TTS       *TTSSettings

	Mets *telemetry.Metrics
	Now  time.Time
}

// Error wraps a run-level failure with the run directory, when one was
// created, so callers can point the operator at the partial workspace.
type Error struct {
	RunDir string
	Stage  string
	Err    error
}

func (e *Error) Error() string {
	if e.RunDir != "" {
		return fmt.Sprintf("orchestrator: run %s failed at %s: %v", e.RunDir, e.Stage, e.Err)
	}
	return fmt.Sprintf("orchestrator: failed at %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Run executes one complete run and returns the run directory. A failing
// stage aborts immediately; the partial workspace is left in place for
// inspection so an operator can resume or diagnose it. Mapping the error to
// a process exit code is the caller's responsibility.
func Run(cfg Config) (string, error) {
	if cfg.TTS != nil && cfg.TTS.Enabled && cfg.TTS.Synth == nil {
		return "", &Error{Stage: "run_init", Err: fmt.Errorf("orchestrator: tts enabled but no speech synthesizer configured")}
	}

	var resolvedTTS *model.TTSConfig
	if cfg.TTS != nil {
		provider := ""
		if cfg.TTS.Synth != nil {
			provider = cfg.TTS.Synth.Name()
		}
		resolvedTTS = &model.TTSConfig{
			Enabled:  cfg.TTS.Enabled,
			Provider: provider,
			Model:    cfg.TTS.Model,
			Voice:    cfg.TTS.Voice,
			Ext:      cfg.TTS.Ext,
		}
	}

	runDir, err := rundir.InitializeRun(rundir.Params{
		App:               cfg.App,
		Seed:              cfg.Seed,
		ContextDir:        cfg.ContextDir,
		PromptsDir:        cfg.PromptsDir,
		Beats:             &cfg.Beats,
		RunID:             cfg.RunID,
		BaseDir:           cfg.BaseDir,
		ResolvedTTSConfig: resolvedTTS,
		Model:             cfg.Model,
		Language:          cfg.Language,
		SectionLength:     cfg.SectionLength,
		Now:               cfg.Now,
	})
	if err != nil {
		return "", &Error{Stage: "run_init", Err: err}
	}

	logger, err := rundir.GetRunLogger(runDir)
	if err != nil {
		return runDir, &Error{RunDir: runDir, Stage: "run_init", Err: err}
	}
	defer logger.Close()

	runID := filepath.Base(runDir)

	sel, err := contextload.Load(cfg.ContextDir, runID, cfg.FoldWorldContext, logger)
	if err != nil {
		logger.Error("context load failed: %v", err)
		return runDir, &Error{RunDir: runDir, Stage: "context_load", Err: err}
	}
	if err := persistSelection(runDir, sel); err != nil {
		logger.Error("persist selected_context failed: %v", err)
		return runDir, &Error{RunDir: runDir, Stage: "context_load", Err: err}
	}
	logger.Info("context loaded: location=%v characters=%d world_files=%d", sel.SelectedLocation, len(sel.SelectedCharacters), len(sel.WorldFiles))

	deps := &stage.Deps{
		RunDir:                  runDir,
		PromptsDir:              cfg.PromptsDir,
		SchemaDir:               cfg.SchemaDir,
		Selection:               sel,
		Generator:               cfg.Generator,
		MaxRetries:              cfg.MaxRetries,
		RollingSummaryMinTokens: cfg.RollingSummaryMinTokens,
		Schema:                  schema.New(),
		Log:                     logger,
		Mets:                    cfg.Mets,
	}

	if err := stage.RunOutline(deps, cfg.Seed, cfg.Beats); err != nil {
		return runDir, &Error{RunDir: runDir, Stage: "outline", Err: err}
	}

	st, err := statestore.LoadState(runDir)
	if err != nil {
		return runDir, &Error{RunDir: runDir, Stage: "outline", Err: err}
	}

	for i := range st.Outline {
		cur, err := statestore.LoadState(runDir)
		if err != nil {
			return runDir, &Error{RunDir: runDir, Stage: fmt.Sprintf("section_%02d", i), Err: err}
		}
		if err := stage.RunSection(deps, cfg.Seed, cur.Outline, i, cur.Summaries, cur.ContinuityLedger, cfg.SectionLength); err != nil {
			return runDir, &Error{RunDir: runDir, Stage: fmt.Sprintf("section_%02d", i), Err: err}
		}

		cur, err = statestore.LoadState(runDir)
		if err != nil {
			return runDir, &Error{RunDir: runDir, Stage: fmt.Sprintf("summarize_%02d", i), Err: err}
		}
		if err := stage.RunSummarize(deps, i, cur.ContinuityLedger); err != nil {
			return runDir, &Error{RunDir: runDir, Stage: fmt.Sprintf("summarize_%02d", i), Err: err}
		}
	}

	cur, err := statestore.LoadState(runDir)
	if err != nil {
		return runDir, &Error{RunDir: runDir, Stage: "critic", Err: err}
	}
	if err := stage.RunCritic(deps, cfg.Seed, cur.Outline); err != nil {
		return runDir, &Error{RunDir: runDir, Stage: "critic", Err: err}
	}

	if cfg.TTS != nil && cfg.TTS.Enabled {
		if err := runAudioPipeline(runDir, cfg, logger); err != nil {
			return runDir, &Error{RunDir: runDir, Stage: "audio", Err: err}
		}
	}

	final, err := statestore.LoadState(runDir)
	if err != nil {
		return runDir, &Error{RunDir: runDir, Stage: "summary", Err: err}
	}
	logUsageSummary(logger, final)

	return runDir, nil
}

func persistSelection(runDir string, sel *contextload.Selection) error {
	worldFiles := make([]string, 0, len(sel.WorldFiles))
	for name := range sel.WorldFiles {
		worldFiles = append(worldFiles, filepath.Base(name))
	}
	sort.Strings(worldFiles)

	var location *string
	if sel.SelectedLocation != nil {
		base := filepath.Base(*sel.SelectedLocation)
		location = &base
	}
	characters := make([]string, 0, len(sel.SelectedCharacters))
	for _, name := range sel.SelectedCharacters {
		characters = append(characters, filepath.Base(name))
	}

	return statestore.UpdateState(runDir, func(s *model.State) {
		s.SelectedContext = model.SelectedContext{
			Location:   location,
			Characters: characters,
			WorldFiles: worldFiles,
		}
	})
}

func runAudioPipeline(runDir string, cfg Config, logger *runlog.Logger) error {
	logger.StageStart("audio")

	st, err := statestore.LoadState(runDir)
	if err != nil {
		logger.StageEnd("audio", false, err)
		return err
	}

	scriptPath := filepath.Join(runDir, filepath.FromSlash(st.FinalScriptPath))
	script, err := readFile(scriptPath)
	if err != nil {
		logger.StageEnd("audio", false, err)
		return err
	}

	chunks := audio.ChunkScript(script)
	if len(chunks) == 0 {
		err := fmt.Errorf("orchestrator: final script produced no narration chunks")
		logger.StageEnd("audio", false, err)
		return err
	}

	segments, err := audio.SynthesizeSegments(runDir, cfg.TTS.Synth, chunks, tts.SynthesizeOptions{
		Model: cfg.TTS.Model,
		Voice: cfg.TTS.Voice,
	}, cfg.TTS.Ext, logger)
	if err != nil {
		logger.StageEnd("audio", false, err)
		return err
	}

	voicePath := filepath.Join(runDir, "tts", "voiceover."+cfg.TTS.Ext)
	if err := audio.Stitch(segments, voicePath); err != nil {
		logger.StageEnd("audio", false, err)
		return err
	}

	voiceDuration, err := audio.ProbeDuration(voicePath)
	if err != nil {
		logger.StageEnd("audio", false, err)
		return err
	}

	bgPath, err := audio.ResolveBGMusic(cfg.BaseDir, cfg.App)
	if err != nil {
		logger.StageEnd("audio", false, err)
		return err
	}

	loopedPath := filepath.Join(runDir, "tts", "bg_looped."+cfg.TTS.Ext)
	if err := audio.LoopAndCrossfade(bgPath, loopedPath, audio.LoopTarget(voiceDuration)); err != nil {
		logger.StageEnd("audio", false, err)
		return err
	}

	duckedPath := filepath.Join(runDir, "tts", "bg_ducked."+cfg.TTS.Ext)
	if err := audio.ApplyEnvelope(loopedPath, duckedPath, voiceDuration); err != nil {
		logger.StageEnd("audio", false, err)
		return err
	}

	finalPath := filepath.Join(runDir, "artifacts", fmt.Sprintf("narration-%s.%s", cfg.App, cfg.TTS.Ext))
	if err := audio.Mix(voicePath, duckedPath, finalPath); err != nil {
		logger.StageEnd("audio", false, err)
		return err
	}

	logger.Info("audio: voiceover %.1fs, mixed to %s", voiceDuration, finalPath)
	logger.StageEnd("audio", true, nil)
	return nil
}

func logUsageSummary(logger *runlog.Logger, st *model.State) {
	totalTokens := 0
	for _, u := range st.TokenUsage {
		totalTokens += u.TotalTokens
	}
	totalChars := 0
	for _, u := range st.TTSTokenUsage {
		totalChars += u.InputCharacters
	}
	logger.Info("run complete: %d sections, %d total tokens, %d tts characters", len(st.Sections), totalTokens, totalChars)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
