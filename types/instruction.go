package types

import "time"

// Mood is the emotional classification of a panel
type Mood string

const (
	MoodNeutral     Mood = "NEUTRAL"
	MoodPositive    Mood = "POSITIVE"
	MoodWarning     Mood = "WARNING"
	MoodDanger      Mood = "DANGER"
	MoodChaos       Mood = "CHAOS"
	MoodDramatic    Mood = "DRAMATIC"
	MoodCelebration Mood = "CELEBRATION"
)

// Easing names an interpolation curve
type Easing string

const (
	EasingLinear    Easing = "linear"
	EasingEaseIn    Easing = "ease_in"
	EasingEaseOut   Easing = "ease_out"
	EasingEaseInOut Easing = "ease_in_out"
)

// EffectType names one visual effect instance
type EffectType string

const (
	EffectVignette   EffectType = "vignette"
	EffectRedGlow    EffectType = "red_glow"
	EffectGoldenGlow EffectType = "golden_glow"
	EffectPulse      EffectType = "pulse"
	EffectShake      EffectType = "shake"
	EffectFlash      EffectType = "flash"
)

// TransitionType names the handoff from one panel to the next
type TransitionType string

const (
	TransitionCut       TransitionType = "CUT"
	TransitionPan       TransitionType = "PAN"
	TransitionGlide     TransitionType = "GLIDE"
	TransitionZoomOutIn TransitionType = "ZOOM_OUT_IN"
	TransitionSnap      TransitionType = "SNAP"
	TransitionWhip      TransitionType = "WHIP"
	TransitionFade      TransitionType = "FADE"
)

// FocusPoint is an optional normalized point of interest inside a panel
type FocusPoint struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Camera is the keyframe pair for a panel's Ken-Burns move
type Camera struct {
	CenterX     float64      `json:"center_x"`
	CenterY     float64      `json:"center_y"`
	StartZoom   float64      `json:"start_zoom"`
	EndZoom     float64      `json:"end_zoom"`
	Easing      Easing       `json:"easing"`
	FocusPoints []FocusPoint `json:"focus_points,omitempty"`
}

// ColorTint is a translucent color wash over the frame
type ColorTint struct {
	Color   string  `json:"color" yaml:"color"`
	Opacity float64 `json:"opacity" yaml:"opacity"`
}

// Effects is the ambient mood preset plus content-triggered effects
type Effects struct {
	Ambient   []EffectType `json:"ambient"`
	Triggered []EffectType `json:"triggered"`
	Tint      *ColorTint   `json:"tint,omitempty"`
}

// All returns ambient and triggered effects, de-duplicated, ambient first
func (e Effects) All() []EffectType {
	seen := make(map[EffectType]bool, len(e.Ambient)+len(e.Triggered))
	out := make([]EffectType, 0, len(e.Ambient)+len(e.Triggered))
	for _, list := range [][]EffectType{e.Ambient, e.Triggered} {
		for _, eff := range list {
			if seen[eff] {
				continue
			}
			seen[eff] = true
			out = append(out, eff)
		}
	}
	return out
}

// Transition describes the move from this panel into the next one
type Transition struct {
	Type       TransitionType `json:"type"`
	DurationMs int            `json:"duration_ms"`
	Easing     Easing         `json:"easing"`
}

// PanelInstruction is the director's output for one panel.
// Override is stored alongside the baseline and applied by Resolved.
type PanelInstruction struct {
	PanelNumber int                  `json:"panel_number"`
	DurationMs  int                  `json:"duration_ms"`
	Mood        Mood                 `json:"mood"`
	Camera      Camera               `json:"camera"`
	Effects     Effects              `json:"effects"`
	Transition  Transition           `json:"transition"`
	Override    *InstructionOverride `json:"override,omitempty"`
	Approval    FacetState           `json:"approval"`
	PreviewPath string               `json:"preview_path,omitempty"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
