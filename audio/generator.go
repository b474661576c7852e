package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"comicreel/config"
	"comicreel/media"
	"comicreel/storage"
	"comicreel/types"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// GeneratorConfig tunes pacing, retries and scratch space
type GeneratorConfig struct {
	// Interval is the minimum spacing between provider calls
	Interval     time.Duration
	MaxRetries   int
	RetryInitial time.Duration
	WorkDir      string
	// CombineTimeout bounds joining multi-speaker clips
	CombineTimeout time.Duration
}

// Generator produces narration tracks for panels
type Generator struct {
	provider SpeechProvider
	objects  storage.ObjectStore
	runner   media.Runner
	prober   media.Prober
	voices   config.VoicePreset
	limiter  *rate.Limiter
	cfg      GeneratorConfig
}

// Request asks for one panel's narration. TextOverride and VoiceOverride come
// from a user regeneration and mark the result as overridden.
type Request struct {
	ProjectID     string
	Panel         types.PanelMeta
	NarratorVoice string
	TextOverride  string
	VoiceOverride string
}

// Report summarises a batch run
type Report struct {
	Generated int
	Silent    int
	Failed    int
}

// NewGenerator wires a generator. Voice presets are read only.
func NewGenerator(provider SpeechProvider, objects storage.ObjectStore, runner media.Runner, prober media.Prober, voices config.VoicePreset, cfg GeneratorConfig) *Generator {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = time.Second
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.CombineTimeout <= 0 {
		cfg.CombineTimeout = 2 * time.Minute
	}

	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Generator{
		provider: provider,
		objects:  objects,
		runner:   runner,
		prober:   prober,
		voices:   voices,
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
	}
}

// GeneratePanel synthesizes, measures and stores the panel's narration.
// A panel with nothing to say returns a silent PanelAudio and no error.
func (g *Generator) GeneratePanel(ctx context.Context, req Request) (*types.PanelAudio, error) {
	p := req.Panel
	result := &types.PanelAudio{
		PanelNumber: p.PanelNumber,
		Approval:    types.FacetState{Origin: types.OriginAuto},
		UpdatedAt:   time.Now(),
	}
	if req.TextOverride != "" || req.VoiceOverride != "" {
		result.Approval.Origin = types.OriginOverridden
	}

	voices := NewVoices(g.voices, req.NarratorVoice)
	dir := filepath.Join(g.cfg.WorkDir, "audio", req.ProjectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}

	if req.TextOverride == "" && IsMultiSpeaker(p) {
		return g.multiSpeaker(ctx, req, voices, dir, result)
	}

	text := req.TextOverride
	if text == "" {
		text = SpeakableText(p)
	}
	if text == "" {
		return result, nil
	}

	voiceID, settings := voices.Narrator()
	if req.VoiceOverride != "" {
		voiceID = req.VoiceOverride
	}
	result.Text = text
	result.VoiceID = voiceID

	local := filepath.Join(dir, fmt.Sprintf("panel_%d.mp3", p.PanelNumber))
	durationMs, err := g.clip(ctx, SpeechRequest{Text: text, VoiceID: voiceID, Settings: settings}, local)
	if err != nil {
		return nil, fmt.Errorf("panel %d: %w", p.PanelNumber, err)
	}

	objectPath := storage.PanelAudioPath(req.ProjectID, p.PanelNumber)
	if err := storage.PutFile(ctx, g.objects, objectPath, local, storage.ContentTypeMP3); err != nil {
		return nil, fmt.Errorf("panel %d: %w", p.PanelNumber, err)
	}

	result.AudioPath = objectPath
	result.DurationMs = durationMs
	return result, nil
}

func (g *Generator) multiSpeaker(ctx context.Context, req Request, voices *Voices, dir string, result *types.PanelAudio) (*types.PanelAudio, error) {
	p := req.Panel
	lines := SpeakerLines(p)
	gapMs := g.voices.SegmentGapMs

	var clips []string
	var gaps []int
	for i, line := range lines {
		voiceID, settings := voices.Resolve(line.Speaker)
		local := filepath.Join(dir, fmt.Sprintf("panel_%d_seg_%d.mp3", p.PanelNumber, i))

		durationMs, err := g.clip(ctx, SpeechRequest{Text: line.Text, VoiceID: voiceID, Settings: settings}, local)
		if err != nil {
			return nil, fmt.Errorf("panel %d segment %d (%s): %w", p.PanelNumber, i, line.Speaker, err)
		}

		segPath := storage.SegmentAudioPath(req.ProjectID, p.PanelNumber, i)
		if err := storage.PutFile(ctx, g.objects, segPath, local, storage.ContentTypeMP3); err != nil {
			return nil, fmt.Errorf("panel %d segment %d: %w", p.PanelNumber, i, err)
		}

		pause := 0
		if i < len(lines)-1 {
			pause = gapMs
		}
		result.Segments = append(result.Segments, types.AudioSegment{
			Speaker:      line.Speaker,
			Text:         line.Text,
			VoiceID:      voiceID,
			AudioPath:    segPath,
			DurationMs:   durationMs,
			PauseAfterMs: pause,
		})
		clips = append(clips, local)
		gaps = append(gaps, pause)
	}

	combined := filepath.Join(dir, fmt.Sprintf("panel_%d.mp3", p.PanelNumber))
	if err := media.CombineClips(ctx, g.runner, g.cfg.CombineTimeout, clips, gaps, combined); err != nil {
		return nil, fmt.Errorf("panel %d: %w", p.PanelNumber, err)
	}

	objectPath := storage.PanelAudioPath(req.ProjectID, p.PanelNumber)
	if err := storage.PutFile(ctx, g.objects, objectPath, combined, storage.ContentTypeMP3); err != nil {
		return nil, fmt.Errorf("panel %d: %w", p.PanelNumber, err)
	}

	result.MultiSpeaker = true
	result.Text = joinLines(lines)
	result.VoiceID, _ = voices.Narrator()
	result.AudioPath = objectPath
	result.DurationMs = result.TotalDurationMs()
	return result, nil
}

// clip synthesizes one request into local and returns its measured duration
func (g *Generator) clip(ctx context.Context, req SpeechRequest, local string) (int, error) {
	data, err := g.synthesize(ctx, req)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return 0, fmt.Errorf("write clip: %w", err)
	}
	durationMs, err := g.prober.DurationMs(ctx, local)
	if err != nil {
		return 0, err
	}
	return durationMs, nil
}

// synthesize paces calls through the limiter and retries transient failures with backoff
func (g *Generator) synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	var data []byte
	operation := func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		out, err := g.provider.Synthesize(ctx, req)
		if err != nil {
			if IsTransient(err) {
				log.Printf("speech provider transient error for voice %s: %v", req.VoiceID, err)
				return err
			}
			return backoff.Permanent(err)
		}
		data = out
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = g.cfg.RetryInitial
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(g.cfg.MaxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	return data, nil
}

// GenerateAll runs GeneratePanel over every panel in order. A failed panel is
// recorded with its error and the batch continues; only cancellation stops it.
func (g *Generator) GenerateAll(ctx context.Context, projectID, narrator string, panels []types.PanelMeta) ([]*types.PanelAudio, Report, error) {
	var out []*types.PanelAudio
	var report Report

	for _, p := range panels {
		if err := ctx.Err(); err != nil {
			return out, report, err
		}

		a, err := g.GeneratePanel(ctx, Request{ProjectID: projectID, Panel: p, NarratorVoice: narrator})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, report, err
			}
			log.Printf("audio: panel %d failed: %v", p.PanelNumber, err)
			report.Failed++
			out = append(out, &types.PanelAudio{
				PanelNumber: p.PanelNumber,
				Text:        SpeakableText(p),
				Error:       err.Error(),
				Approval:    types.FacetState{Origin: types.OriginAuto},
				UpdatedAt:   time.Now(),
			})
			continue
		}

		if a.HasAudio() {
			report.Generated++
		} else {
			report.Silent++
		}
		out = append(out, a)
	}
	return out, report, nil
}

func joinLines(lines []types.SpeakerLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, line.Speaker+": "+line.Text)
	}
	return strings.Join(parts, "\n")
}
