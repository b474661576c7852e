package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"

	"comicreel/config"
	"comicreel/media"
	"comicreel/storage"
	"comicreel/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrCancelled is returned when a render is aborted between segments
var ErrCancelled = errors.New("render cancelled")

// SegmentError ties a media tool failure to the panel being rendered
type SegmentError struct {
	Panel int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("render segment for panel %d: %v", e.Panel, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// Config sizes the engine
type Config struct {
	WorkDir        string
	Workers        int
	SegmentTimeout time.Duration
	ConcatTimeout  time.Duration
	Supersample    int
}

// Engine renders segments in a bounded worker pool and assembles them
type Engine struct {
	runner  media.Runner
	objects storage.ObjectStore
	cfg     Config
}

// Job is one render request. Instructions are the stored baselines with their overrides.
type Job struct {
	Project      *types.Project
	Instructions []types.PanelInstruction
	Audio        map[int]*types.PanelAudio
	// Progress receives human-readable progress lines; may be nil
	Progress func(msg string)
}

// NewEngine applies defaults from the config package for unset values
func NewEngine(runner media.Runner, objects storage.ObjectStore, cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = config.MaxConcurrentSegments
	}
	if cfg.SegmentTimeout <= 0 {
		cfg.SegmentTimeout = config.SegmentTimeout
	}
	if cfg.ConcatTimeout <= 0 {
		cfg.ConcatTimeout = config.ConcatTimeout
	}
	if cfg.Supersample <= 0 {
		cfg.Supersample = config.SupersampleFactor
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Engine{runner: runner, objects: objects, cfg: cfg}
}

// RenderRoot is the directory holding per-job work directories
func (e *Engine) RenderRoot() string {
	return filepath.Join(e.cfg.WorkDir, "render")
}

func (j Job) progress(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("render %s: %s", j.Project.ID, msg)
	if j.Progress != nil {
		j.Progress(msg)
	}
}

func outputOf(p *types.Project) Output {
	out := Output{Width: p.Resolution.Width, Height: p.Resolution.Height, FPS: p.FPS}
	if out.Width <= 0 || out.Height <= 0 {
		out.Width, out.Height = config.VideoWidth, config.VideoHeight
	}
	if out.FPS <= 0 {
		out.FPS = config.VideoFPS
	}
	return out
}

// prepare downloads the source image and narration and builds the segment plan
func (e *Engine) prepare(ctx context.Context, job Job, workDir string) ([]Segment, error) {
	p := job.Project
	imagePath := filepath.Join(workDir, "source"+path.Ext(p.SourceImagePath))
	if err := storage.Download(ctx, e.objects, p.SourceImagePath, imagePath); err != nil {
		return nil, fmt.Errorf("fetch source image: %w", err)
	}
	w, h, err := ImageSize(imagePath)
	if err != nil {
		return nil, err
	}
	if p.Layout == nil {
		return nil, fmt.Errorf("project %s has no parsed layout", p.ID)
	}

	files := make(map[int]string)
	for _, inst := range job.Instructions {
		a := job.Audio[inst.PanelNumber]
		if !a.HasAudio() {
			continue
		}
		local := filepath.Join(workDir, fmt.Sprintf("audio_%d%s", inst.PanelNumber, path.Ext(a.AudioPath)))
		if err := storage.Download(ctx, e.objects, a.AudioPath, local); err != nil {
			return nil, fmt.Errorf("fetch audio for panel %d: %w", inst.PanelNumber, err)
		}
		files[inst.PanelNumber] = local
	}

	segments, errs := BuildPlan(PlanInput{
		Layout:       p.Layout,
		ImagePath:    imagePath,
		SourceW:      w,
		SourceH:      h,
		Instructions: job.Instructions,
		Audio:        job.Audio,
		AudioFiles:   files,
		WorkDir:      workDir,
	}, outputOf(p), e.cfg.Supersample)
	for _, err := range errs {
		job.progress("skipped: %v", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("no renderable panels")
	}
	return segments, nil
}

// ImageSize reads the pixel dimensions from an image file header
func ImageSize(file string) (int, int, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	return DecodeSize(f)
}

// DecodeSize reads the pixel dimensions of a PNG or JPEG stream without decoding pixels
func DecodeSize(r io.Reader) (int, int, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, fmt.Errorf("read image size: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Render produces and uploads the final video and returns its object path.
// Cancellation is checked before each segment starts; finished segments are left intact.
func (e *Engine) Render(ctx context.Context, job Job) (string, error) {
	p := job.Project
	workDir := filepath.Join(e.RenderRoot(), p.ID+"-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	segments, err := e.prepare(ctx, job, workDir)
	if err != nil {
		return "", cancelledOr(ctx, err)
	}
	out := outputOf(p)
	job.progress("rendering %d segments with %d workers", len(segments), e.cfg.Workers)

	if err := e.renderSegments(ctx, job, segments, out); err != nil {
		return "", err
	}

	paths := make([]string, len(segments))
	for i, s := range segments {
		paths[i] = s.Output
	}
	concatPath := filepath.Join(workDir, "concat.mp4")
	args, err := ConcatArgs(paths, concatPath, out)
	if err != nil {
		return "", err
	}
	job.progress("concatenating %d segments", len(paths))
	if err := e.runner.Run(ctx, e.cfg.ConcatTimeout, args); err != nil {
		return "", cancelledOr(ctx, fmt.Errorf("concat: %w", err))
	}

	final := concatPath
	if p.BackgroundMusic != "" {
		musicPath := filepath.Join(workDir, "music"+path.Ext(p.BackgroundMusic))
		if err := storage.Download(ctx, e.objects, p.BackgroundMusic, musicPath); err != nil {
			return "", cancelledOr(ctx, fmt.Errorf("fetch background music: %w", err))
		}
		final = filepath.Join(workDir, "final.mp4")
		job.progress("mixing background music")
		if err := media.MixMusic(ctx, e.runner, e.cfg.ConcatTimeout, concatPath, musicPath, final, config.MusicVolume); err != nil {
			return "", cancelledOr(ctx, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return "", cancelledOr(ctx, err)
	}
	objectPath := storage.FinalVideoPath(p.ID)
	if err := storage.PutFile(ctx, e.objects, objectPath, final, storage.ContentTypeMP4); err != nil {
		return "", cancelledOr(ctx, err)
	}
	job.progress("uploaded %s", objectPath)
	return objectPath, nil
}

func (e *Engine) renderSegments(ctx context.Context, job Job, segments []Segment, out Output) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	var done atomic.Int32
	for _, seg := range segments {
		// checkpoint between segments
		if ctx.Err() != nil || gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := e.renderSegment(gctx, seg, out); err != nil {
				return err
			}
			job.progress("segment %d/%d done (panel %d)", done.Add(1), len(segments), seg.Panel)
			return nil
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		return fmt.Errorf("%w after %d of %d segments", ErrCancelled, done.Load(), len(segments))
	}
	return err
}

// renderSegment writes to a temporary file and renames it into place on success
func (e *Engine) renderSegment(ctx context.Context, seg Segment, out Output) error {
	tmp := seg.Output + ".part.mp4"
	final := seg.Output
	seg.Output = tmp
	if err := e.runner.Run(ctx, e.cfg.SegmentTimeout, seg.Args(out)); err != nil {
		os.Remove(tmp)
		return &SegmentError{Panel: seg.Panel, Err: err}
	}
	return os.Rename(tmp, final)
}

// Preview renders a single panel's segment, including its transition, and uploads it
func (e *Engine) Preview(ctx context.Context, job Job, panel int) (string, error) {
	p := job.Project
	workDir := filepath.Join(e.RenderRoot(), p.ID+"-preview-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	segments, err := e.prepare(ctx, job, workDir)
	if err != nil {
		return "", cancelledOr(ctx, err)
	}
	for _, seg := range segments {
		if seg.Panel != panel {
			continue
		}
		if err := e.renderSegment(ctx, seg, outputOf(p)); err != nil {
			return "", cancelledOr(ctx, err)
		}
		objectPath := storage.PreviewPath(p.ID, panel)
		if err := storage.PutFile(ctx, e.objects, objectPath, seg.Output, storage.ContentTypeMP4); err != nil {
			return "", err
		}
		return objectPath, nil
	}
	return "", fmt.Errorf("panel %d has no segment", panel)
}

func cancelledOr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}
