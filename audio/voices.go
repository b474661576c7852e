package audio

import (
	"strings"

	"comicreel/config"
	"comicreel/types"
)

// Voices resolves speaker names to voice ids and settings
type Voices struct {
	narrator string
	settings types.VoiceSettings
	profiles map[string]config.VoiceProfile
}

// NewVoices builds a resolver from the preset registry. A non-empty narrator
// replaces the preset narrator voice for this project.
func NewVoices(preset config.VoicePreset, narrator string) *Voices {
	v := &Voices{
		narrator: preset.Narrator,
		settings: preset.Settings,
		profiles: make(map[string]config.VoiceProfile, len(preset.Profiles)),
	}
	if narrator = strings.TrimSpace(narrator); narrator != "" {
		v.narrator = narrator
	}
	for name, profile := range preset.Profiles {
		v.profiles[normalizeSpeaker(name)] = profile
	}
	return v
}

// Narrator returns the narrator voice id
func (v *Voices) Narrator() (string, types.VoiceSettings) {
	return v.narrator, v.settings
}

// Resolve returns the voice for a speaker. The narrator and unknown speakers
// get the narrator voice.
func (v *Voices) Resolve(speaker string) (string, types.VoiceSettings) {
	name := normalizeSpeaker(speaker)
	if name == "" || name == "narrator" {
		return v.Narrator()
	}
	profile, ok := v.profiles[name]
	if !ok || profile.VoiceID == "" {
		return v.Narrator()
	}
	settings := v.settings
	if profile.Settings != nil {
		settings = *profile.Settings
	}
	return profile.VoiceID, settings
}

func normalizeSpeaker(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
