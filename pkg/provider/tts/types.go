package tts

// VoiceOption describes one selectable voice returned by a provider's
// catalog.
type VoiceOption struct {
	ID       string
	Name     string
	Provider string
}
