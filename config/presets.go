package config

import (
	"fmt"
	"os"

	"comicreel/types"

	"gopkg.in/yaml.v3"
)

// Presets are the director and voice tables. They are loaded once at startup,
// passed explicitly to the director and audio packages, and never mutated afterwards.
type Presets struct {
	MoodLexicon    map[string]types.Mood                     `yaml:"mood_lexicon"`
	ColorRules     []ColorRule                               `yaml:"color_rules"`
	KeywordMoods   []KeywordMood                             `yaml:"keyword_moods"`
	MoodEffects    map[types.Mood]EffectPreset               `yaml:"mood_effects"`
	KeywordEffects []KeywordEffect                           `yaml:"keyword_effects"`
	Camera         CameraPreset                              `yaml:"camera"`
	Transitions    map[types.TransitionType]TransitionPreset `yaml:"transitions"`
	Voices         VoicePreset                               `yaml:"voices"`
}

// ColorRule maps a color-coding value to a mood when it contains any of the words
type ColorRule struct {
	Contains []string   `yaml:"contains"`
	Mood     types.Mood `yaml:"mood"`
}

// KeywordMood is one ordered keyword set used by the last-resort mood scan
type KeywordMood struct {
	Mood     types.Mood `yaml:"mood"`
	Keywords []string   `yaml:"keywords"`
}

// EffectPreset is the ambient bundle applied for a mood
type EffectPreset struct {
	Ambient []types.EffectType `yaml:"ambient"`
	Tint    *types.ColorTint   `yaml:"tint,omitempty"`
}

// KeywordEffect adds effects when panel text contains any keyword
type KeywordEffect struct {
	Keywords []string           `yaml:"keywords"`
	Effects  []types.EffectType `yaml:"effects"`
}

// CameraPreset holds the base zoom move and per-mood adjustments
type CameraPreset struct {
	StartZoom      float64                   `yaml:"start_zoom"`
	EndZoom        float64                   `yaml:"end_zoom"`
	Easing         types.Easing              `yaml:"easing"`
	TitleStartZoom float64                   `yaml:"title_start_zoom"`
	TitleEndZoom   float64                   `yaml:"title_end_zoom"`
	Moods          map[types.Mood]CameraMood `yaml:"moods"`
}

// CameraMood multiplies the base zooms; a non-empty Easing replaces the base easing
type CameraMood struct {
	StartMultiplier float64      `yaml:"start_multiplier"`
	EndMultiplier   float64      `yaml:"end_multiplier"`
	Easing          types.Easing `yaml:"easing,omitempty"`
}

// TransitionPreset is the timing of one transition type
type TransitionPreset struct {
	DurationMs int          `yaml:"duration_ms"`
	Easing     types.Easing `yaml:"easing"`
}

// VoicePreset is the narrator default and the character voice registry
type VoicePreset struct {
	Narrator     string                  `yaml:"narrator"`
	Settings     types.VoiceSettings     `yaml:"settings"`
	SegmentGapMs int                     `yaml:"segment_gap_ms"`
	Profiles     map[string]VoiceProfile `yaml:"profiles"`
}

// VoiceProfile is a named character's voice
type VoiceProfile struct {
	VoiceID  string               `yaml:"voice_id"`
	Settings *types.VoiceSettings `yaml:"settings,omitempty"`
}

// DefaultPresets returns a fresh copy of the compiled-in tables
func DefaultPresets() *Presets {
	return &Presets{
		MoodLexicon: map[string]types.Mood{
			"chaotic_positive": types.MoodChaos,
			"chaotic":          types.MoodChaos,
			"chaos":            types.MoodChaos,
			"mixed":            types.MoodWarning,
			"tense":            types.MoodWarning,
			"warning":          types.MoodWarning,
			"hopeful":          types.MoodPositive,
			"happy":            types.MoodPositive,
			"positive":         types.MoodPositive,
			"contemplative":    types.MoodNeutral,
			"calm":             types.MoodNeutral,
			"neutral":          types.MoodNeutral,
			"danger":           types.MoodDanger,
			"dangerous":        types.MoodDanger,
			"scary":            types.MoodDanger,
			"dramatic":         types.MoodDramatic,
			"epic":             types.MoodDramatic,
			"celebration":      types.MoodCelebration,
			"celebratory":      types.MoodCelebration,
			"triumphant":       types.MoodCelebration,
		},
		ColorRules: []ColorRule{
			{Contains: []string{"red", "danger"}, Mood: types.MoodDanger},
			{Contains: []string{"gold", "celebration"}, Mood: types.MoodCelebration},
			{Contains: []string{"orange", "amber", "warning"}, Mood: types.MoodWarning},
			{Contains: []string{"purple", "chaos"}, Mood: types.MoodChaos},
			{Contains: []string{"green", "positive", "success"}, Mood: types.MoodPositive},
		},
		KeywordMoods: []KeywordMood{
			{Mood: types.MoodChaos, Keywords: []string{"chaos", "chaotic", "crazy", "insane", "madness", "frenzy"}},
			{Mood: types.MoodDanger, Keywords: []string{"danger", "threat", "attack", "disaster", "crash", "fire", "doom"}},
			{Mood: types.MoodWarning, Keywords: []string{"careful", "caution", "warning", "problem", "mistake", "uh oh", "watch out"}},
			{Mood: types.MoodCelebration, Keywords: []string{"win", "won", "wins", "victory", "celebrate", "celebration", "success", "congrats", "congratulations", "champion"}},
			{Mood: types.MoodPositive, Keywords: []string{"happy", "great", "love", "hope", "smile", "awesome", "good"}},
		},
		MoodEffects: map[types.Mood]EffectPreset{
			types.MoodNeutral:     {},
			types.MoodPositive:    {Tint: &types.ColorTint{Color: "#FFE4B5", Opacity: 0.08}},
			types.MoodWarning:     {Ambient: []types.EffectType{types.EffectVignette}, Tint: &types.ColorTint{Color: "#FF8C00", Opacity: 0.10}},
			types.MoodDanger:      {Ambient: []types.EffectType{types.EffectVignette, types.EffectRedGlow}},
			types.MoodChaos:       {Ambient: []types.EffectType{types.EffectShake, types.EffectVignette}, Tint: &types.ColorTint{Color: "#8A2BE2", Opacity: 0.08}},
			types.MoodDramatic:    {Ambient: []types.EffectType{types.EffectVignette}},
			types.MoodCelebration: {Ambient: []types.EffectType{types.EffectGoldenGlow, types.EffectPulse}},
		},
		KeywordEffects: []KeywordEffect{
			{Keywords: []string{"fire", "burn", "burning", "flame", "flames"}, Effects: []types.EffectType{types.EffectRedGlow}},
			{Keywords: []string{"break", "broke", "broken", "crazy", "smash", "shatter"}, Effects: []types.EffectType{types.EffectShake}},
			{Keywords: []string{"win", "victory"}, Effects: []types.EffectType{types.EffectGoldenGlow, types.EffectPulse}},
			{Keywords: []string{"boom", "explode", "exploded", "bang"}, Effects: []types.EffectType{types.EffectFlash, types.EffectShake}},
			{Keywords: []string{"suddenly", "shock"}, Effects: []types.EffectType{types.EffectFlash}},
		},
		Camera: CameraPreset{
			StartZoom:      1.0,
			EndZoom:        1.15,
			Easing:         types.EasingEaseInOut,
			TitleStartZoom: 1.4,
			TitleEndZoom:   1.0,
			Moods: map[types.Mood]CameraMood{
				types.MoodDramatic:    {StartMultiplier: 1.0, EndMultiplier: 1.15},
				types.MoodChaos:       {StartMultiplier: 0.95, EndMultiplier: 1.2, Easing: types.EasingLinear},
				types.MoodCelebration: {StartMultiplier: 0.9, EndMultiplier: 1.0},
			},
		},
		Transitions: map[types.TransitionType]TransitionPreset{
			types.TransitionCut:       {DurationMs: 0, Easing: types.EasingLinear},
			types.TransitionPan:       {DurationMs: 400, Easing: types.EasingLinear},
			types.TransitionGlide:     {DurationMs: 600, Easing: types.EasingLinear},
			types.TransitionZoomOutIn: {DurationMs: 700, Easing: types.EasingLinear},
			types.TransitionSnap:      {DurationMs: 300, Easing: types.EasingLinear},
			types.TransitionWhip:      {DurationMs: 250, Easing: types.EasingLinear},
			types.TransitionFade:      {DurationMs: 500, Easing: types.EasingLinear},
		},
		Voices: VoicePreset{
			Narrator:     "21m00Tcm4TlvDq8ikWAM",
			Settings:     types.VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
			SegmentGapMs: SegmentGapMs,
			Profiles:     map[string]VoiceProfile{},
		},
	}
}

// LoadPresets returns the defaults, overlaid with the YAML file at path when path is set.
// Maps in the file add to or replace default keys; lists replace the default list.
func LoadPresets(path string) (*Presets, error) {
	p := DefaultPresets()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("presets %s: %w", path, err)
	}
	return p, nil
}

// Validate checks the tables the director cannot work without
func (p *Presets) Validate() error {
	if p.Camera.StartZoom <= 0 || p.Camera.EndZoom <= 0 {
		return fmt.Errorf("camera zooms must be positive")
	}
	if p.Camera.TitleStartZoom <= 0 || p.Camera.TitleEndZoom <= 0 {
		return fmt.Errorf("title zooms must be positive")
	}
	for _, t := range []types.TransitionType{
		types.TransitionCut, types.TransitionPan, types.TransitionGlide, types.TransitionZoomOutIn,
		types.TransitionSnap, types.TransitionWhip, types.TransitionFade,
	} {
		tp, ok := p.Transitions[t]
		if !ok {
			return fmt.Errorf("missing transition preset %s", t)
		}
		if tp.DurationMs < 0 {
			return fmt.Errorf("transition %s has negative duration", t)
		}
	}
	if p.Voices.Narrator == "" {
		return fmt.Errorf("narrator voice is required")
	}
	return nil
}
