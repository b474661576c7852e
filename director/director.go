package director

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"comicreel/config"
	"comicreel/layout"
	"comicreel/types"
)

// Director turns layout, mood and text into panel instructions.
// It only reads its presets and is safe for concurrent use.
type Director struct {
	presets        *config.Presets
	keywordMoods   []compiledMood
	keywordEffects []compiledEffect
}

type compiledMood struct {
	mood    types.Mood
	pattern *regexp.Regexp
}

type compiledEffect struct {
	effects []types.EffectType
	pattern *regexp.Regexp
}

// New compiles the keyword tables of the given presets
func New(presets *config.Presets) *Director {
	d := &Director{presets: presets}
	for _, km := range presets.KeywordMoods {
		if p := keywordPattern(km.Keywords); p != nil {
			d.keywordMoods = append(d.keywordMoods, compiledMood{mood: km.Mood, pattern: p})
		}
	}
	for _, ke := range presets.KeywordEffects {
		if p := keywordPattern(ke.Keywords); p != nil {
			d.keywordEffects = append(d.keywordEffects, compiledEffect{effects: ke.Effects, pattern: p})
		}
	}
	return d
}

// keywordPattern matches any keyword as a whole word, case-insensitively
func keywordPattern(keywords []string) *regexp.Regexp {
	var alts []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			alts = append(alts, regexp.QuoteMeta(strings.ToLower(kw)))
		}
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

// Direct produces an instruction for every placed panel, in panel order.
// Panels missing from the layout are logged and skipped.
func (d *Director) Direct(meta *types.ComicMetadata, l *types.ComicLayout, audio map[int]*types.PanelAudio) ([]types.PanelInstruction, []error) {
	var errs []error
	var placed []int
	for _, n := range meta.PanelNumbers() {
		if l.HasPanel(n) {
			placed = append(placed, n)
			continue
		}
		errs = append(errs, fmt.Errorf("panel %d: %w", n, layout.ErrPanelNotFound))
	}
	sort.Ints(placed)

	now := time.Now().UTC()
	out := make([]types.PanelInstruction, 0, len(placed))
	for i, n := range placed {
		panel, _ := meta.Panel(n)
		var next *types.PanelMeta
		if i+1 < len(placed) {
			np, _ := meta.Panel(placed[i+1])
			next = &np
		}

		inst, err := d.DirectPanel(panel, next, meta.ColorCoding, l, audio[n])
		if err != nil {
			if errors.Is(err, layout.ErrPanelNotFound) {
				log.Printf("director: %v, skipping", err)
			}
			errs = append(errs, err)
			continue
		}
		inst.UpdatedAt = now
		out = append(out, inst)
	}
	return out, errs
}

// DirectPanel builds the instruction for a single panel given the panel that follows it
func (d *Director) DirectPanel(panel types.PanelMeta, next *types.PanelMeta, colorCoding map[string]string, l *types.ComicLayout, audio *types.PanelAudio) (types.PanelInstruction, error) {
	bounds, err := layout.CalculatePanelBounds(panel.PanelNumber, l)
	if err != nil {
		return types.PanelInstruction{}, err
	}

	mood := d.InferMood(panel, colorCoding)
	audioMs := 0
	if audio.HasAudio() {
		audioMs = audio.DurationMs
	}

	return types.PanelInstruction{
		PanelNumber: panel.PanelNumber,
		DurationMs:  EstimateDurationMs(panel, audioMs),
		Mood:        mood,
		Camera:      d.Camera(panel, mood, bounds),
		Effects:     d.Effects(panel, mood),
		Transition:  d.Transition(panel, mood, next),
		Approval:    types.FacetState{Origin: types.OriginAuto},
	}, nil
}

// EstimateDurationMs is the director's first duration guess: audio plus a buffer when
// audio exists, otherwise a text-length heuristic with a lower bound.
func EstimateDurationMs(panel types.PanelMeta, audioMs int) int {
	if audioMs > 0 {
		return audioMs + config.AudioBufferMs
	}
	chars := len([]rune(panel.Header + panel.Dialogue))
	return max(config.MinEstimateMs, config.MsPerCharacter*chars+config.AudioBufferMs)
}
