// Package rundir creates, validates, and locates the per-run filesystem
// workspace under runs/<run_id>/, following the staging-dir-then-rename
// discipline that makes run creation atomic.
package rundir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayy-em/storyforge/internal/model"
	"github.com/ayy-em/storyforge/internal/runlog"
)

// RunInitError wraps a failure to initialize a run directory.
type RunInitError struct {
	RunID string
	Err   error
}

func (e *RunInitError) Error() string {
	return fmt.Sprintf("rundir: initialize %q: %v", e.RunID, e.Err)
}

func (e *RunInitError) Unwrap() error { return e.Err }

const (
	retryAttempts = 8
	retryBaseWait = 50 * time.Millisecond
)

// retryFS retries fn on permission-denied style errors with bounded
// exponential backoff: ~50ms * 2^n, 8 attempts.
func retryFS(fn func() error) error {
	var err error
	for i := 0; i < retryAttempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrPermission) {
			return err
		}
		time.Sleep(retryBaseWait * (1 << i))
	}
	return err
}

// GenerateRunID returns a default run identifier: run-YYYYMMDD-HHMMSS in UTC.
func GenerateRunID(now time.Time) string {
	return "run-" + now.UTC().Format("20060102-150405")
}

// Params bundles the inputs needed to initialize a run.
type Params struct {
	App               string
	Seed              string
	ContextDir        string
	PromptsDir        string
	Beats             *int
	RunID             string
	BaseDir           string
	WordCount         *int
	ResolvedTTSConfig *model.TTSConfig
	Model             string
	Language          string
	SectionLength     string
	Now               time.Time
}

// InitializeRun creates runs/<run_id>/ atomically: a sibling staging
// directory is populated in full, then renamed into place. On any failure the
// staging directory is removed and no final path is created.
//
// Returns the final run directory path.
func InitializeRun(p Params) (string, error) {
	runID := p.RunID
	if runID == "" {
		runID = GenerateRunID(p.Now)
	}

	runsDir := filepath.Join(p.BaseDir, "runs")
	finalDir := filepath.Join(runsDir, runID)

	if _, err := os.Stat(finalDir); err == nil {
		return "", &RunInitError{RunID: runID, Err: fmt.Errorf("runs/%s already exists", runID)}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", &RunInitError{RunID: runID, Err: err}
	}

	if err := retryFS(func() error { return os.MkdirAll(runsDir, 0o755) }); err != nil {
		return "", &RunInitError{RunID: runID, Err: err}
	}

	stagingDir, err := os.MkdirTemp(runsDir, "_build_"+runID+"_")
	if err != nil {
		return "", &RunInitError{RunID: runID, Err: err}
	}

	if err := populateStaging(stagingDir, runID, p); err != nil {
		_ = os.RemoveAll(stagingDir)
		var rie *RunInitError
		if errors.As(err, &rie) {
			return "", err
		}
		return "", &RunInitError{RunID: runID, Err: err}
	}

	if err := retryFS(func() error { return os.Rename(stagingDir, finalDir) }); err != nil {
		_ = os.RemoveAll(stagingDir)
		return "", &RunInitError{RunID: runID, Err: err}
	}

	return finalDir, nil
}

func populateStaging(stagingDir, runID string, p Params) error {
	if err := os.MkdirAll(filepath.Join(stagingDir, "artifacts"), 0o755); err != nil {
		return err
	}

	ts := p.Now.UTC().Format(time.RFC3339)
	inputs := model.Inputs{
		App:           p.App,
		Seed:          p.Seed,
		Beats:         p.Beats,
		WordCount:     p.WordCount,
		RunID:         runID,
		Timestamp:     ts,
		ContextDir:    p.ContextDir,
		PromptsDir:    p.PromptsDir,
		Model:         p.Model,
		Language:      p.Language,
		SectionLength: p.SectionLength,
		TTS:           p.ResolvedTTSConfig,
	}
	if err := writeJSON(filepath.Join(stagingDir, "inputs.json"), inputs); err != nil {
		return err
	}

	state := model.NewInitialState(p.App, p.Seed)
	if err := writeJSON(filepath.Join(stagingDir, "state.json"), state); err != nil {
		return err
	}

	logFile, err := os.Create(filepath.Join(stagingDir, "run.log"))
	if err != nil {
		return err
	}
	_ = logFile.Close()

	logger, err := runlog.Open(stagingDir)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Info("run %s initialized: app=%s model=%s language=%s", runID, p.App, p.Model, p.Language)

	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// GetRunLogger opens the per-run log in append mode.
func GetRunLogger(runDir string) (*runlog.Logger, error) {
	return runlog.Open(runDir)
}

// ArtifactsDir returns runDir/artifacts.
func ArtifactsDir(runDir string) string { return filepath.Join(runDir, "artifacts") }
