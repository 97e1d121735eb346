// Package statestore implements atomic read/update of the per-run state
// document: same-directory temp-file-then-rename so readers never observe a
// partially serialized state.
package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayy-em/storyforge/internal/model"
)

// StateIOError wraps a state/inputs read or write failure, including invalid
// JSON.
type StateIOError struct {
	Op  string
	Err error
}

func (e *StateIOError) Error() string { return fmt.Sprintf("statestore: %s: %v", e.Op, e.Err) }
func (e *StateIOError) Unwrap() error { return e.Err }

// LoadState reads and decodes runDir/state.json.
func LoadState(runDir string) (*model.State, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "state.json"))
	if err != nil {
		return nil, &StateIOError{Op: "load_state", Err: err}
	}
	var s model.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &StateIOError{Op: "load_state", Err: err}
	}
	return &s, nil
}

// LoadInputs reads and decodes runDir/inputs.json.
func LoadInputs(runDir string) (*model.Inputs, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "inputs.json"))
	if err != nil {
		return nil, &StateIOError{Op: "load_inputs", Err: err}
	}
	var in model.Inputs
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, &StateIOError{Op: "load_inputs", Err: err}
	}
	return &in, nil
}

// UpdateState reads the current state, invokes updater on the in-memory
// structure, serializes to a temp file in runDir, then atomically renames it
// over state.json. Stages that change multiple fields must do so within a
// single updater call — this is the only multi-field atomicity unit the store
// offers.
func UpdateState(runDir string, updater func(*model.State)) error {
	s, err := LoadState(runDir)
	if err != nil {
		return err
	}

	updater(s)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return &StateIOError{Op: "update_state", Err: err}
	}

	tmp, err := os.CreateTemp(runDir, "state-*.tmp")
	if err != nil {
		return &StateIOError{Op: "update_state", Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &StateIOError{Op: "update_state", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &StateIOError{Op: "update_state", Err: err}
	}

	if err := os.Rename(tmpPath, filepath.Join(runDir, "state.json")); err != nil {
		_ = os.Remove(tmpPath)
		return &StateIOError{Op: "update_state", Err: err}
	}

	return nil
}

// IsNotExist reports whether err (or a wrapped cause) indicates a missing
// file, as opposed to invalid JSON or another I/O failure.
func IsNotExist(err error) bool {
	var sie *StateIOError
	if errors.As(err, &sie) {
		return errors.Is(sie.Err, os.ErrNotExist)
	}
	return errors.Is(err, os.ErrNotExist)
}
