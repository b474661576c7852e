package media

import (
	"context"
	"fmt"
	"time"

	"comicreel/config"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// silence returns a lavfi input producing ms of stereo silence
func silence(ms int) *ffmpeg.Stream {
	src := fmt.Sprintf("anullsrc=r=%d:cl=%s", config.AudioSampleRate, config.AudioChannelLayout)
	return ffmpeg.Input(src, ffmpeg.KwArgs{
		"f": "lavfi",
		"t": fmt.Sprintf("%.3f", float64(ms)/1000),
	})
}

// CombineArgs builds the arguments that join clips into one MP3, with gapsMs[i]
// of silence after clip i. Missing or non-positive gaps insert nothing.
func CombineArgs(clips []string, gapsMs []int, output string) ([]string, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("combine: no clips")
	}

	var streams []*ffmpeg.Stream
	for i, clip := range clips {
		streams = append(streams, ffmpeg.Input(clip).Audio())
		if i < len(clips)-1 && i < len(gapsMs) && gapsMs[i] > 0 {
			streams = append(streams, silence(gapsMs[i]).Audio())
		}
	}

	joined := ffmpeg.Concat(streams, ffmpeg.KwArgs{"v": 0, "a": 1})
	out := joined.Output(output, ffmpeg.KwArgs{
		"c:a": "libmp3lame",
		"b:a": config.AudioBitrate,
		"ar":  config.AudioSampleRate,
		"ac":  2,
	}).OverWriteOutput()
	return out.GetArgs(), nil
}

// CombineClips joins speaker clips into one playable narration track
func CombineClips(ctx context.Context, r Runner, timeout time.Duration, clips []string, gapsMs []int, output string) error {
	args, err := CombineArgs(clips, gapsMs, output)
	if err != nil {
		return err
	}
	if err := r.Run(ctx, timeout, args); err != nil {
		return fmt.Errorf("combine %d clips: %w", len(clips), err)
	}
	return nil
}

// MusicMixArgs builds the arguments that lay music under the video's audio at
// the given volume, trimmed to the video length, with the video stream copied
func MusicMixArgs(video, music, output string, volume float64) []string {
	main := ffmpeg.Input(video)
	bed := ffmpeg.Input(music, ffmpeg.KwArgs{"stream_loop": -1}).
		Audio().
		Filter("volume", ffmpeg.Args{fmt.Sprintf("%.2f", volume)})

	mixed := ffmpeg.Filter([]*ffmpeg.Stream{main.Audio(), bed}, "amix", ffmpeg.Args{}, ffmpeg.KwArgs{
		"inputs":             2,
		"duration":           "first",
		"dropout_transition": 0,
	})

	return ffmpeg.Output([]*ffmpeg.Stream{main.Video(), mixed}, output, ffmpeg.KwArgs{
		"c:v": "copy",
		"c:a": config.AudioCodec,
		"b:a": config.AudioBitrate,
		"ar":  config.AudioSampleRate,
	}).OverWriteOutput().GetArgs()
}

// MixMusic runs the background music pass
func MixMusic(ctx context.Context, r Runner, timeout time.Duration, video, music, output string, volume float64) error {
	if err := r.Run(ctx, timeout, MusicMixArgs(video, music, output, volume)); err != nil {
		return fmt.Errorf("mix background music: %w", err)
	}
	return nil
}
