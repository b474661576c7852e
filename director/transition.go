package director

import "comicreel/types"

// Transition picks the handoff into the next panel. Rules are checked in order and the
// first that applies wins:
//
//	last panel            CUT
//	into outro/CTA        FADE
//	act change            ZOOM_OUT_IN
//	title into content    GLIDE
//	DRAMATIC mood         SNAP
//	CHAOS mood            WHIP
//	otherwise             PAN
func (d *Director) Transition(panel types.PanelMeta, mood types.Mood, next *types.PanelMeta) types.Transition {
	return d.transitionOf(transitionType(panel, mood, next))
}

// transitionType applies the first matching rule. Structural rules (last
// panel, entering the outro, act change, leaving the title) outrank the
// current panel's mood, so a DRAMATIC panel before the outro still fades.
func transitionType(panel types.PanelMeta, mood types.Mood, next *types.PanelMeta) types.TransitionType {
	switch {
	case next == nil:
		return types.TransitionCut
	case IsOutro(next.PanelType) && !IsOutro(panel.PanelType):
		return types.TransitionFade
	case actChanged(panel.PanelType, next.PanelType):
		return types.TransitionZoomOutIn
	case IsTitle(panel.PanelType) && !IsTitle(next.PanelType):
		return types.TransitionGlide
	case mood == types.MoodDramatic:
		return types.TransitionSnap
	case mood == types.MoodChaos:
		return types.TransitionWhip
	default:
		return types.TransitionPan
	}
}

func actChanged(current, next string) bool {
	a, b := ActID(current), ActID(next)
	return a != "" && b != "" && a != b
}

func (d *Director) transitionOf(t types.TransitionType) types.Transition {
	p := d.presets.Transitions[t]
	tr := types.Transition{Type: t, DurationMs: p.DurationMs, Easing: p.Easing}
	if t == types.TransitionCut {
		tr.DurationMs = 0
	}
	// the handoff interpolates linearly unless a preset or override asks otherwise
	if tr.Easing == "" {
		tr.Easing = types.EasingLinear
	}
	return tr
}
