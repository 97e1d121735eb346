// Package mock provides a test double for the tts.SpeechSynthesizer
// interface.
package mock

import (
	"strings"
	"sync"

	"github.com/ayy-em/storyforge/pkg/provider/tts"
)

// Call records a single invocation of Synthesize.
type Call struct {
	Text string
	Opts tts.SynthesizeOptions
}

// Provider is a mock implementation of tts.SpeechSynthesizer.
type Provider struct {
	mu sync.Mutex

	ProviderName string
	Result       *tts.SpeechResult
	Err          error

	Calls []Call
}

func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

func (p *Provider) Synthesize(text string, opts tts.SynthesizeOptions) (*tts.SpeechResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, Call{Text: text, Opts: opts})
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Result != nil {
		return p.Result, nil
	}
	return &tts.SpeechResult{
		AudioBytes:      []byte(strings.Repeat("\x00", 16)),
		Provider:        p.Name(),
		InputCharacters: len(text),
	}, nil
}

var _ tts.SpeechSynthesizer = (*Provider)(nil)
