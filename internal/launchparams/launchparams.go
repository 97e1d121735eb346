// Package launchparams validates and derives the parameters that start a
// run, independent of which surface (CLI flags, future HTTP API) collected
// them.
package launchparams

import (
	"fmt"
	"math"
	"regexp"
)

// Params is the raw launch input, before validation/derivation. Pointers
// distinguish "not provided" from the zero value.
type Params struct {
	App      string
	Seed     string
	Beats    *int
	WordCount *int

	// SectionLength is a caller-supplied "lo-hi" range or bare midpoint
	// string; empty means "not supplied".
	SectionLength string

	RunID    string
	Model    string
	Language string

	TTSEnabled  bool
	TTSProvider string
	TTSModel    string
	TTSVoice    string
}

// Resolved is the validated, fully-derived set of parameters the run
// directory service and stages consume.
type Resolved struct {
	App      string
	Seed     string
	Beats    int
	WordCount int

	// SectionLength is always populated after Resolve: the caller's value
	// verbatim when one was given, otherwise a derived "lo-hi" range.
	SectionLength string

	RunID    string
	Model    string
	Language string

	TTSEnabled  bool
	TTSProvider string
	TTSModel    string
	TTSVoice    string
}

// Error is raised when launch parameters fail validation.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "launchparams: " + e.Msg }

const (
	minBeats = 1
	maxBeats = 20

	minWordCount = 100
	maxWordCount = 15000

	minWordsPerSection = 100
	maxWordsPerSection = 1000
)

var iso639_1 = regexp.MustCompile(`^[a-z]{2}$`)

// Resolve validates p and derives beats/section_length. The app-config
// default section-length midpoint is used when only one of beats/word_count
// is supplied; a non-empty p.SectionLength always replaces the derived range.
//
// When both beats and word_count are supplied and p.SectionLength is empty,
// the CLI-derived section_length (computed from word_count/beats) overrides
// whatever default the app config would otherwise have supplied — this is
// the documented resolution of the beats-vs-app-config ambiguity.
func Resolve(p Params, defaultSectionLengthMidpoint int) (*Resolved, error) {
	if p.App == "" {
		return nil, &Error{Msg: "app is required"}
	}
	if p.Seed == "" {
		return nil, &Error{Msg: "seed is required"}
	}
	if p.Language != "" && !iso639_1.MatchString(p.Language) {
		return nil, &Error{Msg: fmt.Sprintf("language %q is not a valid ISO 639-1 code", p.Language)}
	}

	switch {
	case p.Beats == nil && p.WordCount == nil:
		return nil, &Error{Msg: "one of beats or word_count is required"}
	case p.Beats != nil && p.WordCount == nil:
		if *p.Beats < minBeats || *p.Beats > maxBeats {
			return nil, &Error{Msg: fmt.Sprintf("beats %d out of range [%d,%d]", *p.Beats, minBeats, maxBeats)}
		}
	case p.Beats == nil && p.WordCount != nil:
		if *p.WordCount <= minWordCount || *p.WordCount >= maxWordCount {
			return nil, &Error{Msg: fmt.Sprintf("word_count %d out of range (%d,%d)", *p.WordCount, minWordCount, maxWordCount)}
		}
	default:
		if *p.Beats < minBeats || *p.Beats > maxBeats {
			return nil, &Error{Msg: fmt.Sprintf("beats %d out of range [%d,%d]", *p.Beats, minBeats, maxBeats)}
		}
		if *p.WordCount <= minWordCount || *p.WordCount >= maxWordCount {
			return nil, &Error{Msg: fmt.Sprintf("word_count %d out of range (%d,%d)", *p.WordCount, minWordCount, maxWordCount)}
		}
		perSection := float64(*p.WordCount) / float64(*p.Beats)
		if perSection <= minWordsPerSection || perSection >= maxWordsPerSection {
			return nil, &Error{Msg: fmt.Sprintf("word_count/beats=%.1f falls outside (%d,%d); run rejected before initialization", perSection, minWordsPerSection, maxWordsPerSection)}
		}
	}

	r := &Resolved{
		App:         p.App,
		Seed:        p.Seed,
		RunID:       p.RunID,
		Model:       p.Model,
		Language:    p.Language,
		TTSEnabled:  p.TTSEnabled,
		TTSProvider: p.TTSProvider,
		TTSModel:    p.TTSModel,
		TTSVoice:    p.TTSVoice,
	}

	switch {
	case p.Beats != nil && p.WordCount != nil:
		r.Beats = *p.Beats
		r.WordCount = *p.WordCount
		r.SectionLength = deriveSectionLength(*p.WordCount / *p.Beats)
	case p.Beats != nil:
		r.Beats = *p.Beats
		midpoint := defaultSectionLengthMidpoint
		r.WordCount = r.Beats * midpoint
		r.SectionLength = deriveSectionLength(midpoint)
	default: // p.WordCount != nil
		midpoint := defaultSectionLengthMidpoint
		r.Beats = clamp(int(math.Round(float64(*p.WordCount)/float64(midpoint))), minBeats, maxBeats)
		r.WordCount = *p.WordCount
		r.SectionLength = deriveSectionLength(midpoint)
	}

	// A caller-supplied section_length always overrides the derived one —
	// this is the documented CLI-overrides-app-config resolution.
	if p.SectionLength != "" {
		r.SectionLength = p.SectionLength
	}

	return r, nil
}

// deriveSectionLength builds the "lo-hi" range:
// floor(0.8*per)-floor(1.2*per).
func deriveSectionLength(per int) string {
	lo := int(math.Floor(0.8 * float64(per)))
	hi := int(math.Floor(1.2 * float64(per)))
	return fmt.Sprintf("%d-%d", lo, hi)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
