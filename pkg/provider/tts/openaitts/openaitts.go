// Package openaitts provides a tts.SpeechSynthesizer backed by the OpenAI
// audio speech endpoint, using github.com/openai/openai-go.
package openaitts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ayy-em/storyforge/pkg/provider/tts"
)

const (
	defaultModel = "tts-1"
	defaultVoice = "alloy"
)

// Provider implements tts.SpeechSynthesizer backed by OpenAI's audio speech
// endpoint.
type Provider struct {
	client       openai.Client
	defaultModel string
	defaultVoice string
}

// New creates a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...option.RequestOption) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openaitts: apiKey must not be empty")
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Provider{
		client:       openai.NewClient(reqOpts...),
		defaultModel: defaultModel,
		defaultVoice: defaultVoice,
	}, nil
}

// WithDefaultModel overrides the model used when a call does not supply one.
func (p *Provider) WithDefaultModel(model string) *Provider {
	p.defaultModel = model
	return p
}

// WithDefaultVoice overrides the voice used when a call does not supply one.
func (p *Provider) WithDefaultVoice(voice string) *Provider {
	p.defaultVoice = voice
	return p
}

func (p *Provider) Name() string { return "openai" }

// Synthesize renders text to audio via OpenAI's speech endpoint and returns
// the full MP3 payload. OpenAI's TTS endpoint reports no token usage;
// InputCharacters is the authoritative usage unit.
func (p *Provider) Synthesize(text string, opts tts.SynthesizeOptions) (*tts.SpeechResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("openaitts: text must not be empty")
	}

	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	voice := opts.Voice
	if voice == "" {
		voice = p.defaultVoice
	}

	resp, err := p.client.Audio.Speech.New(context.Background(), openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openaitts: synthesize: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openaitts: read audio body: %w", err)
	}
	if len(audio) == 0 {
		return nil, &tts.EmptyAudioError{Provider: p.Name()}
	}

	return &tts.SpeechResult{
		AudioBytes:      audio,
		Provider:        p.Name(),
		Model:           model,
		Voice:           voice,
		InputCharacters: len(text),
	}, nil
}
