package media

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Prober reads the playable duration of a media file
type Prober interface {
	DurationMs(ctx context.Context, path string) (int, error)
}

// FFProbe asks ffprobe for the container duration
type FFProbe struct {
	Timeout time.Duration
}

// DurationMs returns the file duration in whole milliseconds
func (p FFProbe) DurationMs(ctx context.Context, path string) (int, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	out, err := ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{})
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	return ParseDurationMs(out)
}

// ParseDurationMs extracts the duration from ffprobe JSON output, preferring the
// container duration and falling back to the longest stream
func ParseDurationMs(probeJSON string) (int, error) {
	if !gjson.Valid(probeJSON) {
		return 0, fmt.Errorf("probe output is not JSON")
	}

	seconds := gjson.Get(probeJSON, "format.duration").Float()
	if seconds <= 0 {
		for _, d := range gjson.Get(probeJSON, "streams.#.duration").Array() {
			seconds = math.Max(seconds, d.Float())
		}
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("probe output has no duration")
	}
	return int(math.Round(seconds * 1000)), nil
}
