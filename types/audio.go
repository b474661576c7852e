package types

import "time"

// AudioSegment is one speaker's clip inside a panel's narration
type AudioSegment struct {
	Speaker    string `json:"speaker"`
	Text       string `json:"text"`
	VoiceID    string `json:"voice_id"`
	AudioPath  string `json:"audio_path,omitempty"`
	DurationMs int    `json:"duration_ms"`
	// PauseAfterMs is the silence inserted before the next segment
	PauseAfterMs int `json:"pause_after_ms"`
}

// PanelAudio is the narration track of a panel. Single-speaker panels carry one segment.
type PanelAudio struct {
	PanelNumber  int            `json:"panel_number"`
	Text         string         `json:"text"`
	VoiceID      string         `json:"voice_id"`
	MultiSpeaker bool           `json:"multi_speaker"`
	Segments     []AudioSegment `json:"segments,omitempty"`
	AudioPath    string         `json:"audio_path,omitempty"`
	DurationMs   int            `json:"duration_ms"`
	Error        string         `json:"error,omitempty"`
	Approval     FacetState     `json:"approval"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TotalDurationMs sums segment durations and the pauses between them
func (a *PanelAudio) TotalDurationMs() int {
	if len(a.Segments) == 0 {
		return a.DurationMs
	}
	total := 0
	for i, seg := range a.Segments {
		total += seg.DurationMs
		if i < len(a.Segments)-1 {
			total += seg.PauseAfterMs
		}
	}
	return total
}

// HasAudio reports whether a playable track exists
func (a *PanelAudio) HasAudio() bool {
	return a != nil && a.AudioPath != "" && a.DurationMs > 0 && a.Error == ""
}

// VoiceSettings are the style parameters sent with a synthesis request
type VoiceSettings struct {
	Stability       float64 `json:"stability" yaml:"stability"`
	SimilarityBoost float64 `json:"similarity_boost" yaml:"similarity_boost"`
	Style           float64 `json:"style" yaml:"style"`
	Speed           float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
}
