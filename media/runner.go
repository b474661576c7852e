package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes one media tool invocation with the given arguments
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, args []string) error
}

// ToolError is a non-zero exit of the media tool, carrying its stderr verbatim
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, lastLines(e.Stderr, 5))
}

// TimeoutError means the tool was killed after exceeding its wall-clock limit
type TimeoutError struct {
	Tool    string
	Args    []string
	Timeout time.Duration
	Stderr  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Tool, e.Timeout)
}

// Exec runs a binary as a subprocess
type Exec struct {
	Path string
}

// NewExec returns a runner for the binary at path, defaulting to ffmpeg on PATH
func NewExec(path string) *Exec {
	if path == "" {
		path = "ffmpeg"
	}
	return &Exec{Path: path}
}

// Run starts the tool and waits for it. Cancellation of ctx returns ctx.Err();
// expiry of timeout returns a *TimeoutError; a non-zero exit returns a *ToolError.
func (e *Exec) Run(ctx context.Context, timeout time.Duration, args []string) error {
	runCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// children that inherited stderr must not keep Wait blocked after a kill
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Tool: e.Path, Args: args, Timeout: timeout, Stderr: stderr.String()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{Tool: e.Path, Args: args, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return fmt.Errorf("run %s: %w", e.Path, err)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
