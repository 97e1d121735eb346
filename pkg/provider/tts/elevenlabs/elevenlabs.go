// Package elevenlabs provides a tts.SpeechSynthesizer backed by the
// ElevenLabs synchronous REST API. Only the request/response shape needed
// for one-shot narration synthesis is implemented — no realtime streaming.
package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ayy-em/storyforge/pkg/provider/tts"
)

const (
	synthesizeEndpointFmt = "https://api.elevenlabs.io/v1/text-to-speech/%s"
	voicesEndpoint        = "https://api.elevenlabs.io/v1/voices"
	defaultModel          = "eleven_multilingual_v2"
	defaultOutputFormat   = "mp3_44100_128"
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID used when a call does not override
// it.
func WithModel(model string) Option {
	return func(p *Provider) { p.defaultModel = model }
}

// WithOutputFormat sets the audio output format (e.g. "mp3_44100_128",
// "pcm_16000").
func WithOutputFormat(format string) Option {
	return func(p *Provider) { p.outputFormat = format }
}

// WithHTTPClient overrides the default http.Client (e.g. to set a timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements tts.SpeechSynthesizer backed by the ElevenLabs REST
// API.
type Provider struct {
	apiKey       string
	defaultModel string
	defaultVoice string
	outputFormat string
	httpClient   *http.Client
}

// New creates a Provider. apiKey must be non-empty; defaultVoice is used
// when a call does not override opts.Voice.
func New(apiKey, defaultVoice string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	if defaultVoice == "" {
		return nil, errors.New("elevenlabs: defaultVoice must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		defaultVoice: defaultVoice,
		outputFormat: defaultOutputFormat,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return "elevenlabs" }

type synthesizeRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize POSTs text to ElevenLabs and returns the rendered audio bytes
// in full. ElevenLabs reports no token usage for TTS; InputCharacters is the
// authoritative usage unit.
func (p *Provider) Synthesize(text string, opts tts.SynthesizeOptions) (*tts.SpeechResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("elevenlabs: text must not be empty")
	}

	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	voice := opts.Voice
	if voice == "" {
		voice = p.defaultVoice
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:          text,
		ModelID:       model,
		VoiceSettings: &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	url := fmt.Sprintf(synthesizeEndpointFmt, voice) + "?output_format=" + p.outputFormat
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("elevenlabs: synthesize: unexpected status %d: %s", resp.StatusCode, errBody)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio body: %w", err)
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

// ---- ListVoices (catalog helper, not part of the SpeechSynthesizer
// contract) ----

type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

type elevenLabsVoice struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

// ListVoices returns all voices available for the configured API key.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.VoiceOption, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, voicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}

	options := make([]tts.VoiceOption, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		options = append(options, tts.VoiceOption{ID: v.VoiceID, Name: v.Name, Provider: "elevenlabs"})
	}
	return options, nil
}
