package render

import (
	"fmt"
	"strings"

	"comicreel/types"
)

const (
	vignetteFadeSeconds = 0.6
	flashSeconds        = 0.3
	glowOpacity         = 0.12
	shakeCropFactor     = 0.96
)

var glowColors = map[types.EffectType]string{
	types.EffectRedGlow:    "0xFF3B30",
	types.EffectGoldenGlow: "0xFFD700",
}

// EffectFilters maps each effect to its filter stages. They run after zoompan on
// frames of width x height and before the final rescale.
func EffectFilters(eff types.Effects, width, height int) []Filter {
	all := eff.All()
	has := make(map[types.EffectType]bool, len(all))
	for _, e := range all {
		has[e] = true
	}

	var out []Filter
	if has[types.EffectVignette] {
		out = append(out, NewFilter("vignette").
			Set("angle", Expr(fmt.Sprintf("PI/5*min(t/%s,1)", num(vignetteFadeSeconds)))).
			Set("eval", "frame"))
	}
	if eff.Tint != nil && eff.Tint.Opacity > 0 {
		out = append(out, washFilter(ffmpegColor(eff.Tint.Color), eff.Tint.Opacity))
	}
	for _, glow := range []types.EffectType{types.EffectRedGlow, types.EffectGoldenGlow} {
		if has[glow] {
			out = append(out, washFilter(glowColors[glow], glowOpacity))
		}
	}
	if has[types.EffectPulse] {
		out = append(out, NewFilter("eq").
			Set("brightness", Expr("0.05*sin(2*PI*t*1.2)")).
			Set("eval", "frame"))
	}
	if has[types.EffectShake] {
		out = append(out,
			NewFilter("crop").
				Set("w", Expr(fmt.Sprintf("iw*%s", num(shakeCropFactor)))).
				Set("h", Expr(fmt.Sprintf("ih*%s", num(shakeCropFactor)))).
				Set("x", Expr("(iw-ow)/2+(iw-ow)/2*sin(t*37)")).
				Set("y", Expr("(ih-oh)/2+(ih-oh)/2*sin(t*29+1)")),
			NewFilter("scale").Arg(width).Arg(height))
	}
	if has[types.EffectFlash] {
		out = append(out, NewFilter("fade").
			Set("t", "in").
			Set("st", 0).
			Set("d", flashSeconds).
			Set("color", "white"))
	}
	return out
}

// washFilter lays a translucent full-frame colour over the picture
func washFilter(color string, opacity float64) Filter {
	return NewFilter("drawbox").
		Set("x", 0).
		Set("y", 0).
		Set("w", "iw").
		Set("h", "ih").
		Set("color", fmt.Sprintf("%s@%s", color, num(opacity))).
		Set("t", "fill")
}

// ffmpegColor accepts "#rrggbb", "0xrrggbb" or a colour name
func ffmpegColor(c string) string {
	c = strings.TrimSpace(c)
	if strings.HasPrefix(c, "#") {
		return "0x" + strings.ToUpper(c[1:])
	}
	if c == "" {
		return "black"
	}
	return c
}

// fadeFilters returns the fade-in at segment start and fade-out over the transition
func fadeFilters(fadeInMs, contentMs, fadeOutMs int) []Filter {
	var out []Filter
	if fadeInMs > 0 {
		out = append(out, NewFilter("fade").Set("t", "in").Set("st", 0).Set("d", float64(fadeInMs)/1000))
	}
	if fadeOutMs > 0 {
		out = append(out, NewFilter("fade").
			Set("t", "out").
			Set("st", float64(contentMs)/1000).
			Set("d", float64(fadeOutMs)/1000))
	}
	return out
}
