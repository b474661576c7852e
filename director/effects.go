package director

import "comicreel/types"

// Effects starts from the mood preset and unions in effects triggered by the panel text
func (d *Director) Effects(panel types.PanelMeta, mood types.Mood) types.Effects {
	preset := d.presets.MoodEffects[mood]
	out := types.Effects{
		Ambient:   append([]types.EffectType{}, preset.Ambient...),
		Triggered: []types.EffectType{},
	}
	if preset.Tint != nil {
		tint := *preset.Tint
		out.Tint = &tint
	}

	text := panel.Header + " " + panel.Dialogue
	seen := make(map[types.EffectType]bool)
	for _, ke := range d.keywordEffects {
		if !ke.pattern.MatchString(text) {
			continue
		}
		for _, eff := range ke.effects {
			if seen[eff] {
				continue
			}
			seen[eff] = true
			out.Triggered = append(out.Triggered, eff)
		}
	}
	return out
}
