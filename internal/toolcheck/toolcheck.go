// Package toolcheck verifies that the external binaries the audio pipeline
// shells out to are present and runnable before a run commits to the
// expensive stages that precede them.
package toolcheck

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

const probeTimeout = 5 * time.Second

// Checker is a single named preflight check.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Result is the outcome of one Checker.
type Result struct {
	Name string
	Err  error
}

// Run evaluates every checker in order and returns one Result per checker.
func Run(ctx context.Context, checkers ...Checker) []Result {
	results := make([]Result, 0, len(checkers))
	for _, c := range checkers {
		cctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := c.Check(cctx)
		cancel()
		results = append(results, Result{Name: c.Name, Err: err})
	}
	return results
}

// AllOK reports whether every result succeeded.
func AllOK(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return false
		}
	}
	return true
}

// Default returns the standard preflight checks: ffmpeg and ffprobe must
// both resolve on PATH and respond to "-version".
func Default() []Checker {
	return []Checker{
		binaryChecker("ffmpeg"),
		binaryChecker("ffprobe"),
	}
}

func binaryChecker(bin string) Checker {
	return Checker{
		Name: bin,
		Check: func(ctx context.Context) error {
			path, err := exec.LookPath(bin)
			if err != nil {
				return fmt.Errorf("%s not found on PATH: %w", bin, err)
			}
			cmd := exec.CommandContext(ctx, path, "-version")
			if err := cmd.Run(); err != nil {
				return fmt.Errorf("%s -version failed: %w", bin, err)
			}
			return nil
		},
	}
}
