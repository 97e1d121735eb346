// Package llm defines the vendor-neutral text-generation abstraction the
// orchestrator drives: a single synchronous call per pipeline stage, with no
// knowledge of which vendor SDK answered it.
package llm

import "strings"

// TextGenerator is the abstraction over any text-generation backend.
// Implementations must be safe for concurrent use.
type TextGenerator interface {
	// Generate produces a completion for prompt. step names the pipeline
	// stage making the call (e.g. "outline", "section", "critic") and is
	// surfaced in usage records and error messages only — it carries no
	// behavior. opts carries the optional per-call overrides; a zero value
	// selects the adapter's configured defaults.
	Generate(prompt, step string, opts GenerateOptions) (*TextResult, error)

	// Name identifies the backend for error messages and usage records
	// (e.g. "openai", "anthropic", "ollama").
	Name() string
}

// GenerateOptions carries per-call overrides. A zero value for any field
// means "use the adapter default".
type GenerateOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TimeoutSecs int
}

// TextResult is the normalized response from a TextGenerator call.
type TextResult struct {
	Content  string
	Provider string
	Model    string

	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int

	// Raw holds the unmodified vendor response for diagnostic logging.
	Raw any
}

// MissingAssistantContentError is raised when the vendor response has no
// content field at all.
type MissingAssistantContentError struct {
	Provider string
}

func (e *MissingAssistantContentError) Error() string {
	return "llm: provider " + e.Provider + ": response contained no assistant content"
}

// EmptyAssistantContentError is raised when the vendor response's content is
// present but empty or whitespace-only after trimming.
type EmptyAssistantContentError struct {
	Provider string
}

func (e *EmptyAssistantContentError) Error() string {
	return "llm: provider " + e.Provider + ": assistant content was empty after trimming"
}

// ValidateContent enforces the response-validity contract: content must be
// present and non-blank after trimming.
func ValidateContent(provider string, content *string) (string, error) {
	if content == nil {
		return "", &MissingAssistantContentError{Provider: provider}
	}
	if strings.TrimSpace(*content) == "" {
		return "", &EmptyAssistantContentError{Provider: provider}
	}
	return *content, nil
}

// DeriveTotalTokens returns total, defaulting to prompt+completion when total
// is nil and both components are present.
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
