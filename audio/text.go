package audio

import (
	"strings"

	"comicreel/types"
)

// SpeakableText picks exactly one source of narration for a panel:
// the narration field, else the dialogue, else the header.
func SpeakableText(p types.PanelMeta) string {
	for _, candidate := range []string{p.Narration, p.Dialogue, p.Header} {
		if text := strings.TrimSpace(candidate); text != "" {
			return text
		}
	}
	return ""
}

// SpeakerLines returns the panel's speaker lines that have text
func SpeakerLines(p types.PanelMeta) []types.SpeakerLine {
	var lines []types.SpeakerLine
	for _, line := range p.Speakers {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		lines = append(lines, types.SpeakerLine{Speaker: strings.TrimSpace(line.Speaker), Text: text})
	}
	return lines
}

// IsMultiSpeaker reports whether the panel declares at least two speaker lines
func IsMultiSpeaker(p types.PanelMeta) bool {
	return len(SpeakerLines(p)) >= 2
}
