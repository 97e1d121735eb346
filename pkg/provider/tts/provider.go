// Package tts defines the vendor-neutral speech-synthesis abstraction the
// audio pipeline drives: one synchronous call per chunk of narration text,
// returning the synthesized audio bytes in full.
package tts

// SpeechSynthesizer is the abstraction over any text-to-speech backend.
// Implementations must be safe for concurrent use.
type SpeechSynthesizer interface {
	// Synthesize renders text to audio in full — the pipeline always needs
	// the complete segment before stitching, so there is no streaming path.
	Synthesize(text string, opts SynthesizeOptions) (*SpeechResult, error)

	// Name identifies the backend for error messages and usage records.
	Name() string
}

// SynthesizeOptions carries per-call overrides. A zero value for any field
// means "use the adapter default".
type SynthesizeOptions struct {
	Model string
	Voice string
}

// SpeechResult is the normalized response from a SpeechSynthesizer call.
type SpeechResult struct {
	AudioBytes []byte
	Provider   string
	Model      string
	Voice      string

	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int

	// InputCharacters is the authoritative usage unit for providers that
	// report no token counts at all.
	InputCharacters int

	Raw any
}

// EmptyAudioError is raised when a provider returns a zero-length audio
// payload.
type EmptyAudioError struct {
	Provider string
}

func (e *EmptyAudioError) Error() string {
	return "tts: provider " + e.Provider + ": synthesis returned empty audio"
}

// DeriveTotalTokens mirrors llm.DeriveTotalTokens for the TTS usage shape:
// total defaults to prompt+completion when absent and both components are
// present.
func DeriveTotalTokens(prompt, completion, total *int) *int {
	if total != nil {
		return total
	}
	if prompt != nil && completion != nil {
		sum := *prompt + *completion
		return &sum
	}
	return nil
}
