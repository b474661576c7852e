package director

import (
	"comicreel/audio"
	"comicreel/types"
)

// Camera builds the zoom keyframes for a panel. The center is always the panel's own
// bounds center; mood multiplies the base zooms and title panels replace them.
func (d *Director) Camera(panel types.PanelMeta, mood types.Mood, bounds types.PanelBounds) types.Camera {
	preset := d.presets.Camera
	cam := types.Camera{
		CenterX:   bounds.CenterX,
		CenterY:   bounds.CenterY,
		StartZoom: preset.StartZoom,
		EndZoom:   preset.EndZoom,
		Easing:    preset.Easing,
	}
	if cam.Easing == "" {
		cam.Easing = types.EasingEaseInOut
	}

	if adj, ok := preset.Moods[mood]; ok {
		if adj.StartMultiplier > 0 {
			cam.StartZoom *= adj.StartMultiplier
		}
		if adj.EndMultiplier > 0 {
			cam.EndZoom *= adj.EndMultiplier
		}
		if adj.Easing != "" {
			cam.Easing = adj.Easing
		}
	}

	if IsTitle(panel.PanelType) {
		cam.StartZoom = preset.TitleStartZoom
		cam.EndZoom = preset.TitleEndZoom
	}
	cam.FocusPoints = speakerFocus(panel)
	return cam
}

// speakerFocus places one panel-local point per distinct speaker of a
// multi-speaker panel, left to right in speaking order, weighted by the
// speaker's share of lines. The camera center does not move.
func speakerFocus(panel types.PanelMeta) []types.FocusPoint {
	if !audio.IsMultiSpeaker(panel) {
		return nil
	}
	var order []string
	lines := make(map[string]int)
	total := 0
	for _, line := range audio.SpeakerLines(panel) {
		if _, seen := lines[line.Speaker]; !seen {
			order = append(order, line.Speaker)
		}
		lines[line.Speaker]++
		total++
	}

	points := make([]types.FocusPoint, len(order))
	for i, speaker := range order {
		points[i] = types.FocusPoint{
			X:      (float64(i) + 0.5) / float64(len(order)),
			Y:      0.5,
			Weight: float64(lines[speaker]) / float64(total),
		}
	}
	return points
}
