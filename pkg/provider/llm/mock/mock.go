// Package mock provides a test double for the llm.TextGenerator interface.
//
// Use Provider in unit tests to verify that the orchestrator calls Generate
// with the right prompt/step and to feed controlled responses without a live
// LLM backend.
package mock

import (
	"sync"

	"github.com/ayy-em/storyforge/pkg/provider/llm"
)

// Call records a single invocation of Generate.
type Call struct {
	Prompt string
	Step   string
	Opts   llm.GenerateOptions
}

// Provider is a mock implementation of llm.TextGenerator. Zero value returns
// a TextResult with Content "mock response" from Generate. Set Result or Err
// to control behavior; set ErrSeq
// to return different outcomes across sequential calls (e.g. to test retry).
type Provider struct {
	mu sync.Mutex

	ProviderName string
	Result       *llm.TextResult
	Err          error

	// ErrSeq, if non-empty, supplies one error per call in order (nil means
	// succeed with Result); once exhausted, Err/Result apply.
	ErrSeq []error

	Calls []Call
}

func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

func (p *Provider) Generate(prompt, step string, opts llm.GenerateOptions) (*llm.TextResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, Call{Prompt: prompt, Step: step, Opts: opts})

	idx := len(p.Calls) - 1
	if idx < len(p.ErrSeq) {
		if err := p.ErrSeq[idx]; err != nil {
			return nil, err
		}
	} else if p.Err != nil {
		return nil, p.Err
	}

	if p.Result != nil {
		return p.Result, nil
	}
	return &llm.TextResult{Content: "mock response", Provider: p.Name()}, nil
}

var _ llm.TextGenerator = (*Provider)(nil)
