package media

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunSuccess(t *testing.T) {
	requireShell(t)
	r := NewExec("sh")
	if err := r.Run(context.Background(), time.Second, []string{"-c", "exit 0"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestExecRunToolError(t *testing.T) {
	requireShell(t)
	r := NewExec("sh")
	err := r.Run(context.Background(), 5*time.Second, []string{"-c", "echo 'Invalid filter graph' >&2; exit 3"})

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("err = %v; want *ToolError", err)
	}
	if toolErr.ExitCode != 3 {
		t.Fatalf("ExitCode = %d; want 3", toolErr.ExitCode)
	}
	if !strings.Contains(toolErr.Stderr, "Invalid filter graph") {
		t.Fatalf("Stderr = %q", toolErr.Stderr)
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		t.Fatalf("tool failure reported as timeout")
	}
}

func TestExecRunTimeout(t *testing.T) {
	requireShell(t)
	r := NewExec("sh")
	err := r.Run(context.Background(), 100*time.Millisecond, []string{"-c", "exec sleep 5"})

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("err = %v; want *TimeoutError", err)
	}
	if timeoutErr.Timeout != 100*time.Millisecond {
		t.Fatalf("Timeout = %s", timeoutErr.Timeout)
	}
}

func TestExecRunParentCancelled(t *testing.T) {
	requireShell(t)
	r := NewExec("sh")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := r.Run(ctx, 10*time.Second, []string{"-c", "exec sleep 5"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v; want context.Canceled", err)
	}
}

func TestParseDurationMs(t *testing.T) {
	cases := []struct {
		name    string
		json    string
		want    int
		wantErr bool
	}{
		{"format duration", `{"format":{"duration":"2.345000"}}`, 2345, false},
		{"rounds to nearest ms", `{"format":{"duration":"1.0006"}}`, 1001, false},
		{"stream fallback", `{"streams":[{"duration":"0.5"},{"duration":"1.25"}],"format":{}}`, 1250, false},
		{"no duration", `{"format":{}}`, 0, true},
		{"not json", `ffprobe: command not found`, 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseDurationMs(c.json)
			if (err != nil) != c.wantErr {
				t.Fatalf("err = %v; wantErr %v", err, c.wantErr)
			}
			if got != c.want {
				t.Fatalf("ParseDurationMs = %d; want %d", got, c.want)
			}
		})
	}
}

type recordingRunner struct {
	args [][]string
	err  error
}

func (r *recordingRunner) Run(ctx context.Context, timeout time.Duration, args []string) error {
	r.args = append(r.args, args)
	return r.err
}

func TestCombineClipsInsertsSilence(t *testing.T) {
	r := &recordingRunner{}
	err := CombineClips(context.Background(), r, time.Minute,
		[]string{"a.mp3", "b.mp3", "c.mp3"}, []int{300, 0}, "out.mp3")
	if err != nil {
		t.Fatalf("CombineClips: %v", err)
	}
	if len(r.args) != 1 {
		t.Fatalf("runner called %d times", len(r.args))
	}
	joined := strings.Join(r.args[0], " ")
	for _, want := range []string{"a.mp3", "b.mp3", "c.mp3", "anullsrc", "lavfi", "0.300", "concat", "out.mp3"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}
	if strings.Count(joined, "anullsrc") != 1 {
		t.Fatalf("expected exactly one silence input: %s", joined)
	}
}

func TestCombineClipsRequiresInput(t *testing.T) {
	r := &recordingRunner{}
	if err := CombineClips(context.Background(), r, time.Minute, nil, nil, "out.mp3"); err == nil {
		t.Fatalf("expected error for no clips")
	}
	if len(r.args) != 0 {
		t.Fatalf("runner should not be called")
	}
}

func TestMixMusicWrapsToolError(t *testing.T) {
	r := &recordingRunner{err: &ToolError{Tool: "ffmpeg", ExitCode: 1, Stderr: "boom"}}
	err := MixMusic(context.Background(), r, time.Minute, "video.mp4", "music.mp3", "final.mp4", 0.12)

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("err = %v; want wrapped *ToolError", err)
	}
	joined := strings.Join(r.args[0], " ")
	for _, want := range []string{"video.mp4", "music.mp3", "amix", "volume", "copy", "final.mp4"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}
}
