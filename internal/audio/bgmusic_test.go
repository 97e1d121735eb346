package audio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveBGMusicPrefersAppOverride(t *testing.T) {
	baseDir := t.TempDir()
	overrideDir := filepath.Join(baseDir, "apps", "demo-app", "assets")
	if err := os.MkdirAll(overrideDir, 0o755); err != nil {
		t.Fatal(err)
	}
	overridePath := filepath.Join(overrideDir, "bg-music.mp3")
	if err := os.WriteFile(overridePath, []byte("fake mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveBGMusic(baseDir, "demo-app")
	if err != nil {
		t.Fatalf("ResolveBGMusic: %v", err)
	}
	if got != overridePath {
		t.Errorf("got %q, want %q", got, overridePath)
	}
}

func TestResolveBGMusicFallsBackToDefault(t *testing.T) {
	baseDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(baseDir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	defaultPath := filepath.Join(baseDir, "assets", "default-bg-music.wav")
	if err := os.WriteFile(defaultPath, []byte("fake wav"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveBGMusic(baseDir, "demo-app")
	if err != nil {
		t.Fatalf("ResolveBGMusic: %v", err)
	}
	if got != defaultPath {
		t.Errorf("got %q, want %q", got, defaultPath)
	}
}

func TestResolveBGMusicMissingIsFatal(t *testing.T) {
	baseDir := t.TempDir()
	if _, err := ResolveBGMusic(baseDir, "demo-app"); err == nil {
		t.Fatal("expected error when no background music exists at all")
	}
}
