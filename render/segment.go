package render

import (
	"fmt"
	"strconv"

	"comicreel/config"
	"comicreel/types"
)

// Output is the fixed format every segment is encoded to
type Output struct {
	Width  int
	Height int
	FPS    int
}

// Segment is one panel's clip including its transition into the next panel
type Segment struct {
	Panel      int
	ImagePath  string
	Canvas     Canvas
	Motion     Motion
	Effects    types.Effects
	DurationMs int
	// TransitionMs is zero for CUT and for the last panel
	TransitionMs int
	FadeInMs     int
	FadeOutMs    int
	// AudioPath is a local narration file; empty renders generated silence
	AudioPath string
	Output    string
}

// TotalMs is the exact segment length
func (s Segment) TotalMs() int {
	return s.DurationMs + s.TransitionMs
}

func seconds(ms int) string {
	return num(float64(ms) / 1000)
}

// Graph builds the segment's filtergraph with [v] and [a] outputs
func (s Segment) Graph(out Output) Graph {
	c := s.Canvas
	video := []Filter{
		NewFilter("scale").Arg(c.ScaledW).Arg(c.ScaledH),
		NewFilter("pad").Arg(c.PaddedW).Arg(c.PaddedH).Arg(c.OffsetX).Arg(c.OffsetY).Set("color", "black"),
		NewFilter("zoompan").
			Set("z", s.Motion.ZoomExpr()).
			Set("x", s.Motion.XExpr()).
			Set("y", s.Motion.YExpr()).
			Set("d", max(s.Motion.TotalFrames(), 1)).
			Set("s", fmt.Sprintf("%dx%d", out.Width, out.Height)).
			Set("fps", out.FPS),
	}
	video = append(video, EffectFilters(s.Effects, out.Width, out.Height)...)
	video = append(video, fadeFilters(s.FadeInMs, s.DurationMs, s.FadeOutMs)...)
	video = append(video,
		NewFilter("scale").Arg(out.Width).Arg(out.Height),
		NewFilter("setsar").Arg(1),
		NewFilter("format").Arg(config.PixelFormat),
	)

	audio := []Filter{
		NewFilter("aformat").
			Set("sample_rates", config.AudioSampleRate).
			Set("channel_layouts", config.AudioChannelLayout),
		NewFilter("apad"),
		NewFilter("atrim").Set("duration", seconds(s.TotalMs())),
	}

	var g Graph
	g.Add(Chain{Inputs: []string{"0:v"}, Filters: video, Outputs: []string{"v"}}).
		Add(Chain{Inputs: []string{"1:a"}, Filters: audio, Outputs: []string{"a"}})
	return g
}

// Args builds the full media tool invocation for the segment
func (s Segment) Args(out Output) []string {
	args := []string{"-y", "-i", s.ImagePath}
	if s.AudioPath != "" {
		args = append(args, "-i", s.AudioPath)
	} else {
		args = append(args,
			"-f", "lavfi",
			"-t", seconds(s.TotalMs()),
			"-i", fmt.Sprintf("anullsrc=r=%d:cl=%s", config.AudioSampleRate, config.AudioChannelLayout))
	}
	args = append(args,
		"-filter_complex", s.Graph(out).String(),
		"-map", "[v]",
		"-map", "[a]",
	)
	args = append(args, encodeArgs(out)...)
	args = append(args, "-t", seconds(s.TotalMs()), s.Output)
	return args
}

// encodeArgs are the codec flags shared by segments and the concatenated video
func encodeArgs(out Output) []string {
	return []string{
		"-c:v", config.VideoCodec,
		"-preset", config.VideoPreset,
		"-pix_fmt", config.PixelFormat,
		"-r", strconv.Itoa(out.FPS),
		"-c:a", config.AudioCodec,
		"-b:a", config.AudioBitrate,
		"-ar", strconv.Itoa(config.AudioSampleRate),
		"-ac", "2",
	}
}
