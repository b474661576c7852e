package audio

import (
	"comicreel/config"
	"comicreel/types"
)

// FinalDurationMs is the on-screen time of a panel once audio generation has run.
// Narrated panels last exactly as long as their audio; silent panels keep the
// estimate, floored so they stay perceptible next to narrated ones.
func FinalDurationMs(a *types.PanelAudio, estimateMs int) int {
	if a.HasAudio() {
		return a.DurationMs
	}
	return max(estimateMs, config.SilentPanelFloorMs)
}

// ResolveDuration applies FinalDurationMs to an instruction. A user duration
// override replaces the estimate, but never cuts narration short.
func ResolveDuration(inst types.PanelInstruction, a *types.PanelAudio) int {
	resolved := inst.Resolved()
	overridden := inst.Override != nil && inst.Override.DurationMs != nil
	if a.HasAudio() && overridden {
		return max(resolved.DurationMs, a.DurationMs)
	}
	return FinalDurationMs(a, resolved.DurationMs)
}

// TimelineMs is the total video length: every panel's duration plus every transition
func TimelineMs(insts []types.PanelInstruction) int {
	total := 0
	for _, inst := range insts {
		total += inst.DurationMs + inst.Transition.DurationMs
	}
	return total
}
