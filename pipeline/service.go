// Package pipeline runs comic projects through parsing, narration, directing,
// review and rendering, moving each project through its lifecycle.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"comicreel/approval"
	"comicreel/audio"
	"comicreel/config"
	"comicreel/director"
	"comicreel/render"
	"comicreel/storage"
	"comicreel/store"
	"comicreel/types"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrBusy is returned when a project already has a job running
	ErrBusy = errors.New("project has a job running")
	// ErrNotRunning is returned by Cancel when there is nothing to cancel
	ErrNotRunning = errors.New("project has no running job")
	// ErrUnknownPanel is returned for a panel number the metadata does not declare
	ErrUnknownPanel = errors.New("unknown panel")
	// ErrNotDirected is returned when an operation needs instructions that do not exist yet
	ErrNotDirected = errors.New("project has no instructions yet")
	// ErrInvalidInput is returned for rejected project uploads
	ErrInvalidInput = errors.New("invalid input")
	// ErrAudioFailed is returned when approving narration whose generation failed
	ErrAudioFailed = errors.New("panel audio generation failed")

	errAlreadyFailed = errors.New("project already failed")
)

// AudioGenerator produces narration for panels
type AudioGenerator interface {
	GeneratePanel(ctx context.Context, req audio.Request) (*types.PanelAudio, error)
	GenerateAll(ctx context.Context, projectID, narrator string, panels []types.PanelMeta) ([]*types.PanelAudio, audio.Report, error)
}

// Renderer turns directed projects into video
type Renderer interface {
	Render(ctx context.Context, job render.Job) (string, error)
	Preview(ctx context.Context, job render.Job, panel int) (string, error)
}

// Notifier publishes status changes. Delivery failures are logged, never fatal.
type Notifier interface {
	Notify(ctx context.Context, ev types.StatusEvent) error
}

// Deps are the collaborators of a Service
type Deps struct {
	Store    store.Store
	Objects  storage.ObjectStore
	Audio    AudioGenerator
	Renderer Renderer
	Director *director.Director
	// Notifier may be nil
	Notifier Notifier
	// CancelPoll overrides config.CancelPollInterval
	CancelPoll time.Duration
}

// Service is the pipeline entry point shared by the HTTP API and the job consumer
type Service struct {
	store    store.Store
	objects  storage.ObjectStore
	audio    AudioGenerator
	renderer Renderer
	director *director.Director
	notifier Notifier

	logs   *logBook
	jobs   *jobs
	panels *keyedMutex

	previews      *gocache.Cache
	previewFlight singleflight.Group

	root       context.Context
	shutdown   context.CancelFunc
	now        func() time.Time
	cancelPoll time.Duration
}

// New builds a service. Close cancels every job it started.
func New(deps Deps) *Service {
	root, cancel := context.WithCancel(context.Background())
	poll := deps.CancelPoll
	if poll <= 0 {
		poll = config.CancelPollInterval
	}
	return &Service{
		store:    deps.Store,
		objects:  deps.Objects,
		audio:    deps.Audio,
		renderer: deps.Renderer,
		director: deps.Director,
		notifier: deps.Notifier,
		logs:     newLogBook(config.MaxLogs),
		jobs:     newJobs(),
		panels:   newKeyedMutex(),
		previews: gocache.New(config.PreviewCacheTTL, 2*config.PreviewCacheTTL),
		root:     root,
		shutdown: cancel,
		now:      func() time.Time { return time.Now().UTC() },

		cancelPoll: poll,
	}
}

// Close cancels running jobs and waits for them to record their failure
func (s *Service) Close(ctx context.Context) error {
	s.shutdown()
	waited := make(chan struct{})
	go func() {
		s.jobs.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}

// CreateInput is an uploaded comic
type CreateInput struct {
	Metadata types.ComicMetadata
	Image    io.Reader
	// ImageExt is the source file extension, e.g. ".png"
	ImageExt      string
	Music         io.Reader
	MusicExt      string
	AspectRatio   string
	NarratorVoice string
}

// aspectRatios maps supported aspect ratios to output resolutions
var aspectRatios = map[string]types.Resolution{
	"9:16": {Width: config.VideoWidth, Height: config.VideoHeight},
	"16:9": {Width: config.VideoHeight, Height: config.VideoWidth},
	"1:1":  {Width: config.VideoWidth, Height: config.VideoWidth},
	"4:5":  {Width: config.VideoWidth, Height: 1350},
}

// CreateProject stores the source image and metadata as a new draft project
func (s *Service) CreateProject(ctx context.Context, in CreateInput) (*types.Project, error) {
	if len(in.Metadata.PanelNumbers()) == 0 {
		return nil, fmt.Errorf("%w: metadata declares no panels", ErrInvalidInput)
	}
	if in.Image == nil {
		return nil, fmt.Errorf("%w: missing image", ErrInvalidInput)
	}

	aspect := in.AspectRatio
	if aspect == "" {
		aspect = "9:16"
	}
	res, ok := aspectRatios[aspect]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported aspect ratio %q", ErrInvalidInput, aspect)
	}

	data, err := io.ReadAll(in.Image)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	w, h, err := render.DecodeSize(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	ext := strings.ToLower(in.ImageExt)
	contentType := storage.ContentTypePNG
	switch ext {
	case ".jpg", ".jpeg":
		contentType = storage.ContentTypeJPG
	case ".png":
	default:
		ext = ".png"
	}

	id := uuid.NewString()
	now := s.now()
	p := &types.Project{
		ID:              id,
		Title:           in.Metadata.Title,
		SourceImagePath: storage.SourceImagePath(id, ext),
		SourceWidth:     w,
		SourceHeight:    h,
		Metadata:        in.Metadata,
		AspectRatio:     aspect,
		Resolution:      res,
		FPS:             config.VideoFPS,
		NarratorVoice:   in.NarratorVoice,
		Status:          types.StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.objects.Put(ctx, p.SourceImagePath, bytes.NewReader(data), contentType); err != nil {
		return nil, fmt.Errorf("store source image: %w", err)
	}
	if in.Music != nil {
		musicExt := strings.ToLower(in.MusicExt)
		if musicExt == "" {
			musicExt = ".mp3"
		}
		p.BackgroundMusic = storage.MusicPath(p.ID, musicExt)
		if err := s.objects.Put(ctx, p.BackgroundMusic, in.Music, storage.ContentTypeMP3); err != nil {
			return nil, fmt.Errorf("store background music: %w", err)
		}
	}
	if err := s.store.SaveProject(ctx, p); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}

	s.logs.Add(p.ID, "created from %dx%d image with %d panels", w, h, len(p.Metadata.PanelNumbers()))
	s.notify(ctx, p, "created")
	return p, nil
}

// Status summarises a project and returns its recent log
func (s *Service) Status(ctx context.Context, projectID string) (*types.StatusResponse, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	insts, err := s.store.ListInstructions(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list instructions: %w", err)
	}
	records, err := s.store.ListAudio(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list audio: %w", err)
	}

	resp := &types.StatusResponse{
		ProjectID:      p.ID,
		Status:         p.Status,
		FailureReason:  p.FailureReason,
		Error:          p.Error,
		PanelCount:     len(p.Metadata.PanelNumbers()),
		FinalVideoPath: p.FinalVideoPath,
		Logs:           s.logs.Snapshot(projectID),
	}
	for _, a := range records {
		if a.Approval.Approved {
			resp.AudioApproved++
		}
	}
	for _, inst := range insts {
		if inst.Approval.Approved {
			resp.InstrApproved++
		}
	}
	return resp, nil
}

// PanelView is one panel as shown to a reviewer
type PanelView struct {
	PanelNumber int                     `json:"panel_number"`
	Instruction *types.PanelInstruction `json:"instruction,omitempty"`
	// Resolved is the instruction with its override applied and final timing
	Resolved *types.PanelInstruction `json:"resolved,omitempty"`
	Audio    *types.PanelAudio       `json:"audio,omitempty"`
	Placed   bool                    `json:"placed"`
}

// Panels lists every declared panel with its instruction and narration
func (s *Service) Panels(ctx context.Context, projectID string) ([]PanelView, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	insts, audioMap, err := s.loadPanels(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var out []PanelView
	for _, n := range p.Metadata.PanelNumbers() {
		v := PanelView{
			PanelNumber: n,
			Instruction: insts[n],
			Audio:       audioMap[n],
			Placed:      p.Layout != nil && p.Layout.HasPanel(n),
		}
		if inst := insts[n]; inst != nil {
			resolved := inst.Resolved()
			resolved.DurationMs = audio.ResolveDuration(*inst, audioMap[n])
			v.Resolved = &resolved
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) loadPanels(ctx context.Context, projectID string) (map[int]*types.PanelInstruction, map[int]*types.PanelAudio, error) {
	insts, err := s.store.ListInstructions(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("list instructions: %w", err)
	}
	records, err := s.store.ListAudio(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("list audio: %w", err)
	}
	instMap := make(map[int]*types.PanelInstruction, len(insts))
	for _, inst := range insts {
		instMap[inst.PanelNumber] = inst
	}
	audioMap := make(map[int]*types.PanelAudio, len(records))
	for _, a := range records {
		audioMap[a.PanelNumber] = a
	}
	return instMap, audioMap, nil
}

// transition moves the project to a new status and publishes the change
func (s *Service) transition(ctx context.Context, projectID string, to types.ProjectStatus, mutate func(*types.Project)) (*types.Project, error) {
	p, err := s.store.UpdateProject(ctx, projectID, func(p *types.Project) error {
		if err := approval.Transition(p, to, s.now()); err != nil {
			return err
		}
		if mutate != nil {
			mutate(p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logs.Add(projectID, "status %s", to)
	s.notify(ctx, p, "")
	return p, nil
}

// fail records a stage failure. Cancellation is recorded with its own reason.
// It runs on a detached context so a cancelled job can still persist its failure.
func (s *Service) fail(ctx context.Context, projectID string, cause error) {
	ctx = context.WithoutCancel(ctx)
	reason := types.FailureError
	if errors.Is(cause, context.Canceled) || errors.Is(cause, render.ErrCancelled) {
		reason = types.FailureCancelled
	}

	p, err := s.store.UpdateProject(ctx, projectID, func(p *types.Project) error {
		if p.Status == types.StatusFailed {
			return errAlreadyFailed
		}
		return approval.Fail(p, reason, cause, s.now())
	})
	if errors.Is(err, errAlreadyFailed) {
		// cancelled from another process while this stage was running
		return
	}
	if err != nil {
		log.Printf("project %s: could not record failure %v: %v", projectID, cause, err)
		return
	}
	s.logs.Add(projectID, "failed (%s): %v", reason, cause)
	s.notify(ctx, p, cause.Error())
}

func (s *Service) notify(ctx context.Context, p *types.Project, message string) {
	if s.notifier == nil {
		return
	}
	ev := types.StatusEvent{
		ProjectID: p.ID,
		Status:    p.Status,
		Message:   message,
		Timestamp: s.now(),
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		log.Printf("project %s: publish status %s: %v", p.ID, p.Status, err)
	}
}
