package render

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"comicreel/audio"
	"comicreel/layout"
	"comicreel/types"
)

// PlanInput is everything needed to lay out the segments of one video
type PlanInput struct {
	Layout       *types.ComicLayout
	ImagePath    string
	SourceW      int
	SourceH      int
	Instructions []types.PanelInstruction
	Audio        map[int]*types.PanelAudio
	// AudioFiles maps panel number to a downloaded narration file
	AudioFiles map[int]string
	WorkDir    string
}

type placed struct {
	inst   types.PanelInstruction
	stored types.PanelInstruction
	bounds types.PanelBounds
}

// BuildPlan resolves overrides and durations and returns one segment per placed
// panel in panel order. Panels without bounds are skipped and reported.
func BuildPlan(in PlanInput, out Output, supersample int) ([]Segment, []error) {
	stored := append([]types.PanelInstruction(nil), in.Instructions...)
	sort.Slice(stored, func(i, j int) bool { return stored[i].PanelNumber < stored[j].PanelNumber })

	var errs []error
	var panels []placed
	for _, inst := range stored {
		b, err := layout.CalculatePanelBounds(inst.PanelNumber, in.Layout)
		if err != nil {
			log.Printf("render: skipping panel %d: %v", inst.PanelNumber, err)
			errs = append(errs, err)
			continue
		}
		panels = append(panels, placed{inst: inst.Resolved(), stored: inst, bounds: b})
	}

	canvas := NewCanvas(in.SourceW, in.SourceH, out.Width, out.Height, supersample)
	segments := make([]Segment, 0, len(panels))
	prevFadeMs := 0
	for i, p := range panels {
		n := p.inst.PanelNumber
		durationMs := audio.ResolveDuration(p.stored, in.Audio[n])
		start, end := cameraKeyframes(canvas, p.bounds, p.inst.Camera)

		motion := Motion{
			Start:         start,
			End:           end,
			Easing:        p.inst.Camera.Easing,
			ContentFrames: Frames(durationMs, out.FPS),
		}

		transitionMs := 0
		fadeOutMs := 0
		if i+1 < len(panels) && p.inst.Transition.Type != types.TransitionCut {
			next := panels[i+1]
			nextStart, _ := cameraKeyframes(canvas, next.bounds, next.inst.Camera)
			transitionMs = max(p.inst.Transition.DurationMs, 0)
			motion.Next = &nextStart
			motion.Transition = p.inst.Transition.Type
			motion.TransitionEasing = p.inst.Transition.Easing
			motion.TransitionFrames = Frames(transitionMs, out.FPS)
			if p.inst.Transition.Type == types.TransitionFade {
				fadeOutMs = transitionMs
			}
		}

		segments = append(segments, Segment{
			Panel:        n,
			ImagePath:    in.ImagePath,
			Canvas:       canvas,
			Motion:       motion,
			Effects:      p.inst.Effects,
			DurationMs:   durationMs,
			TransitionMs: transitionMs,
			FadeInMs:     prevFadeMs,
			FadeOutMs:    fadeOutMs,
			AudioPath:    in.AudioFiles[n],
			Output:       filepath.Join(in.WorkDir, fmt.Sprintf("segment_%03d.mp4", n)),
		})
		prevFadeMs = fadeOutMs
	}
	return segments, errs
}
