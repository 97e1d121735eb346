// Package contextload loads the required and optional domain-context files
// (lore, style, locations, characters, world) for a run, deterministically
// selecting the optional subset from a stable hash of the run ID.
package contextload

import (
	"hash/fnv"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ayy-em/storyforge/internal/runlog"
)

// Error is raised when context loading fails.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "contextload: " + e.Msg }

// Selection is the result of loading and selecting context files for a run.
type Selection struct {
	// AlwaysLoaded maps normalized relative paths to file contents: lore_bible.md
	// plus every style/*.md file.
	AlwaysLoaded map[string]string

	SelectedLocation   *string
	SelectedCharacters []string

	LocationContent   *string
	CharacterContents map[string]string

	// WorldFiles holds world/*.md content when folded into the lore payload.
	WorldFiles map[string]string
}

// Load reads the context tree rooted at contextDir and makes the run's
// deterministic optional-context selection, seeded from runID.
//
// foldWorld controls whether world/*.md is folded into the combined lore
// payload, per the app's configuration.
//
// log may be nil in contexts that don't care about the warnings Load can
// emit (e.g. a fewer-than-2-characters-available selection pool).
func Load(contextDir, runID string, foldWorld bool, log *runlog.Logger) (*Selection, error) {
	contextDir = filepath.Clean(contextDir)

	lorePath := filepath.Join(contextDir, "lore_bible.md")
	loreBytes, err := os.ReadFile(lorePath)
	if err != nil {
		return nil, &Error{Msg: "required file not found: lore_bible.md: " + err.Error()}
	}

	always := map[string]string{"lore_bible.md": string(loreBytes)}
	if err := loadSortedMarkdown(contextDir, "style", always); err != nil {
		return nil, err
	}

	seed := stableSeed(runID)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	loc, locContent, err := selectLocation(contextDir, rng)
	if err != nil {
		return nil, err
	}

	chars, charContents, err := selectCharacters(contextDir, rng, log)
	if err != nil {
		return nil, err
	}

	sel := &Selection{
		AlwaysLoaded:       always,
		SelectedLocation:   loc,
		SelectedCharacters: chars,
		LocationContent:    locContent,
		CharacterContents:  charContents,
	}

	if foldWorld {
		world := map[string]string{}
		if err := loadSortedMarkdown(contextDir, "world", world); err != nil {
			return nil, err
		}
		sel.WorldFiles = world
	}

	return sel, nil
}

// stableSeed hashes runID with FNV-1a and reduces mod 2^32, matching the
// "stable hash, not process entropy" requirement so selection reproduces
// across re-runs of the same run_id.
func stableSeed(runID string) uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(runID))
	return uint64(h.Sum32())
}

func loadSortedMarkdown(contextDir, sub string, into map[string]string) error {
	dir := filepath.Join(contextDir, sub)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &Error{Msg: "read " + sub + ": " + err.Error()}
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return &Error{Msg: "read " + sub + "/" + name + ": " + err.Error()}
		}
		into[normalize(filepath.Join(sub, name))] = string(content)
	}
	return nil
}

func selectLocation(contextDir string, rng *rand.Rand) (*string, *string, error) {
	dir := filepath.Join(contextDir, "locations")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, &Error{Msg: "read locations: " + err.Error()}
	}

	names := mdNames(entries)
	if len(names) == 0 {
		return nil, nil, nil
	}
	sort.Strings(names)

	chosen := names[rng.IntN(len(names))]
	content, err := os.ReadFile(filepath.Join(dir, chosen))
	if err != nil {
		return nil, nil, &Error{Msg: "read locations/" + chosen + ": " + err.Error()}
	}
	rel := normalize(filepath.Join("locations", chosen))
	contentStr := string(content)
	return &rel, &contentStr, nil
}

func selectCharacters(contextDir string, rng *rand.Rand, log *runlog.Logger) ([]string, map[string]string, error) {
	dir := filepath.Join(contextDir, "characters")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, &Error{Msg: "read characters: " + err.Error()}
	}

	names := mdNames(entries)
	if len(names) == 0 {
		return nil, nil, nil
	}
	sort.Strings(names)

	if len(names) < 2 && log != nil {
		log.Warn("fewer than 2 characters available (%d found), selecting all", len(names))
	}

	n := 2 + rng.IntN(2) // 2 or 3
	if n > len(names) {
		n = len(names)
	}

	// Fisher-Yates partial shuffle to pick n distinct files without
	// replacement, deterministic under rng.
	pool := append([]string(nil), names...)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	chosen := pool[:n]
	sort.Strings(chosen)

	paths := make([]string, 0, n)
	contents := make(map[string]string, n)
	for _, name := range chosen {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, &Error{Msg: "read characters/" + name + ": " + err.Error()}
		}
		rel := normalize(filepath.Join("characters", name))
		paths = append(paths, rel)
		contents[rel] = string(content)
	}
	return paths, contents, nil
}

func mdNames(entries []os.DirEntry) []string {
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	return names
}

func normalize(p string) string { return filepath.ToSlash(p) }
