package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ResolveBGMusic finds the background music track for app, preferring a
// per-app override under apps/<app>/assets/bg-music.* (first match by sorted
// filename) and falling back to assets/default-bg-music.wav. Returns an
// error if neither exists — missing music is fatal to the audio pipeline.
func ResolveBGMusic(baseDir, app string) (string, error) {
	overrideDir := filepath.Join(baseDir, "apps", app, "assets")
	matches, err := filepath.Glob(filepath.Join(overrideDir, "bg-music.*"))
	if err == nil && len(matches) > 0 {
		sort.Strings(matches)
		return matches[0], nil
	}

	fallback := filepath.Join(baseDir, "assets", "default-bg-music.wav")
	if _, statErr := os.Stat(fallback); statErr != nil {
		return "", fmt.Errorf("audio: no background music for app %q: no override in %s and default missing at %s: %w", app, overrideDir, fallback, statErr)
	}
	return fallback, nil
}
