// Package anyllm provides a TextGenerator backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more through one request/response shape.
package anyllm

import (
	"context"
	"fmt"
	"strings"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/ayy-em/storyforge/internal/resilience"
	"github.com/ayy-em/storyforge/pkg/provider/llm"
)

// Provider implements llm.TextGenerator by wrapping any-llm-go.
type Provider struct {
	backend      anyllmlib.Provider
	providerName string
	defaultModel string
}

// New creates a Provider backed by the named any-llm-go provider.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
//
// defaultModel is used whenever a call does not override opts.Model. If no
// API key option is supplied, the backend falls back to the vendor's usual
// environment variable (e.g. OPENAI_API_KEY).
func New(providerName, defaultModel string, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if defaultModel == "" {
		return nil, fmt.Errorf("anyllm: defaultModel must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Provider{backend: backend, providerName: providerName, defaultModel: defaultModel}, nil
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

func (p *Provider) Name() string { return p.providerName }

// Generate implements llm.TextGenerator with a single synchronous call —
// the pipeline never streams, so this wraps any-llm-go's blocking
// Completion rather than CompletionStream.
func (p *Provider) Generate(prompt, step string, opts llm.GenerateOptions) (*llm.TextResult, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	params := anyllmlib.CompletionParams{
		Model:    model,
		Messages: []anyllmlib.Message{{Role: anyllmlib.RoleUser, Content: prompt}},
	}
	if opts.Temperature != 0 {
		t := opts.Temperature
		params.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		mt := opts.MaxTokens
		params.MaxTokens = &mt
	}

	ctx := context.Background()
	if opts.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutSecs)*time.Second)
		defer cancel()
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		if isModelNotRecognized(err) {
			return nil, &resilience.ModelNotRecognizedError{Provider: p.providerName, Model: model, Cause: err}
		}
		return nil, fmt.Errorf("anyllm: step %q: completion: %w", step, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.MissingAssistantContentError{Provider: p.providerName}
	}

	raw := resp.Choices[0].Message.ContentString()
	content, err := llm.ValidateContent(p.providerName, &raw)
	if err != nil {
		return nil, err
	}

	result := &llm.TextResult{
		Content:  content,
		Provider: p.providerName,
		Model:    model,
		Raw:      resp,
	}
	if resp.Usage != nil {
		pt, ct := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
		var tt *int
		if resp.Usage.TotalTokens != 0 {
			t := resp.Usage.TotalTokens
			tt = &t
		}
		result.PromptTokens = &pt
		result.CompletionTokens = &ct
		result.TotalTokens = llm.DeriveTotalTokens(&pt, &ct, tt)
	}

	return result, nil
}

// isModelNotRecognized recognizes the vendor message pattern any-llm-go
// surfaces when a model name is rejected outright, rather than a transient
// request failure.
func isModelNotRecognized(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "model") &&
		(strings.Contains(msg, "not found") ||
			strings.Contains(msg, "does not exist") ||
			strings.Contains(msg, "unknown model") ||
			strings.Contains(msg, "invalid model"))
}
