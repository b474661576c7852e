package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"comicreel/approval"
	"comicreel/audio"
	"comicreel/layout"
	"comicreel/render"
	"comicreel/types"
)

// Action names a job that can be queued for a project
type Action string

const (
	ActionProcess Action = "process"
	ActionAudio   Action = "audio"
	ActionDirect  Action = "direct"
	ActionRender  Action = "render"
	ActionCancel  Action = "cancel"
)

// ParseAction validates an action name
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionProcess, ActionAudio, ActionDirect, ActionRender, ActionCancel:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidInput, s)
}

// Run executes an action to completion on the caller's goroutine
func (s *Service) Run(ctx context.Context, projectID string, action Action) error {
	if action == ActionCancel {
		return s.Cancel(ctx, projectID)
	}
	if _, err := s.precheck(ctx, projectID, action); err != nil {
		return err
	}
	jobCtx, done, err := s.jobs.begin(ctx, projectID)
	if err != nil {
		return err
	}
	defer done()
	return s.runJob(jobCtx, projectID, action)
}

// Start validates an action and runs it in the background. Precondition
// failures, including unapproved panels for a render, are returned before
// anything is written.
func (s *Service) Start(ctx context.Context, projectID string, action Action) error {
	if action == ActionCancel {
		return s.Cancel(ctx, projectID)
	}
	if _, err := s.precheck(ctx, projectID, action); err != nil {
		return err
	}
	jobCtx, done, err := s.jobs.begin(s.root, projectID)
	if err != nil {
		return err
	}
	go func() {
		defer done()
		if err := s.runJob(jobCtx, projectID, action); err != nil {
			s.logs.Add(projectID, "%s failed: %v", action, err)
		}
	}()
	return nil
}

// runJob executes the action while watching the store, so a cancellation
// recorded by another process stops it at its next checkpoint
func (s *Service) runJob(ctx context.Context, projectID string, action Action) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	go s.watchCancel(ctx, stop, projectID, s.now())
	return s.execute(ctx, projectID, action)
}

func (s *Service) watchCancel(ctx context.Context, stop context.CancelFunc, projectID string, started time.Time) {
	ticker := time.NewTicker(s.cancelPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		p, err := s.store.GetProject(ctx, projectID)
		if err != nil {
			continue
		}
		if cancelledSince(p, started) {
			s.logs.Add(projectID, "cancelled by another process")
			stop()
			return
		}
	}
}

// cancelledSince reports a cancellation recorded after started. A project
// restarted from an earlier failure carries an older timestamp.
func cancelledSince(p *types.Project, started time.Time) bool {
	return p.Status == types.StatusFailed &&
		p.FailureReason == types.FailureCancelled &&
		!p.UpdatedAt.Before(started)
}

// Cancel aborts the project's running job. A project in a running status
// with no job in this process is marked failed as cancelled; the process
// running it stops when its job next polls the store.
func (s *Service) Cancel(ctx context.Context, projectID string) error {
	if s.jobs.cancel(projectID) {
		s.logs.Add(projectID, "cancel requested")
		return nil
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !approval.InProgress(p.Status) {
		return fmt.Errorf("%w: status %s", ErrNotRunning, p.Status)
	}
	s.fail(ctx, projectID, context.Canceled)
	return nil
}

// precheck rejects actions the project cannot take from its current status
func (s *Service) precheck(ctx context.Context, projectID string, action Action) (*types.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if s.jobs.isRunning(projectID) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, projectID)
	}

	var first types.ProjectStatus
	switch action {
	case ActionProcess:
		first = types.StatusParsing
	case ActionAudio:
		first = types.StatusAudioGenerating
	case ActionDirect:
		first = types.StatusDirecting
	case ActionRender:
		if _, _, err := s.renderable(ctx, p); err != nil {
			return nil, err
		}
		first = types.StatusRendering
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}

	// stages that need a layout parse first when starting from a draft
	if p.Status == types.StatusDraft && action != ActionRender {
		first = types.StatusParsing
	}
	if !approval.CanTransition(p.Status, first) {
		return nil, fmt.Errorf("%w: cannot %s from %s", approval.ErrInvalidTransition, action, p.Status)
	}
	return p, nil
}

func (s *Service) execute(ctx context.Context, projectID string, action Action) error {
	var err error
	switch action {
	case ActionProcess:
		err = s.Process(ctx, projectID)
	case ActionAudio:
		_, err = s.GenerateAudio(ctx, projectID)
	case ActionDirect:
		err = s.Direct(ctx, projectID)
	case ActionRender:
		_, err = s.Render(ctx, projectID)
	default:
		err = fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}
	return err
}

// Process parses the layout, narrates every panel and directs the result
func (s *Service) Process(ctx context.Context, projectID string) error {
	if _, err := s.Parse(ctx, projectID); err != nil {
		return err
	}
	if _, err := s.GenerateAudio(ctx, projectID); err != nil {
		return err
	}
	return s.Direct(ctx, projectID)
}

// Parse resolves the layout from the metadata and the source image size.
// It leaves the project in parsing; the next stage moves it on.
func (s *Service) Parse(ctx context.Context, projectID string) (*types.ComicLayout, error) {
	p, err := s.transition(ctx, projectID, types.StatusParsing, nil)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	l := layout.Parse(&p.Metadata, p.SourceWidth, p.SourceHeight)
	for _, n := range p.Metadata.PanelNumbers() {
		if !l.HasPanel(n) {
			s.logs.Add(projectID, "panel %d has no cell in the layout, it will be skipped", n)
		}
	}

	_, err = s.store.UpdateProject(ctx, projectID, func(p *types.Project) error {
		p.Layout = l
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		s.fail(ctx, projectID, err)
		return nil, fmt.Errorf("parse: save layout: %w", err)
	}
	s.logs.Add(projectID, "parsed %dx%d grid with %d placed panels", l.Columns, l.Rows, len(l.PanelCells))
	return l, nil
}

// ensureParsed parses a draft project so later stages have a layout
func (s *Service) ensureParsed(ctx context.Context, projectID string) (*types.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != types.StatusDraft && p.Layout != nil {
		return p, nil
	}
	if _, err := s.Parse(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.GetProject(ctx, projectID)
}

// GenerateAudio narrates every panel. Failed panels are recorded and the batch
// continues; only cancellation or a storage failure fails the project.
func (s *Service) GenerateAudio(ctx context.Context, projectID string) (audio.Report, error) {
	p, err := s.ensureParsed(ctx, projectID)
	if err != nil {
		return audio.Report{}, err
	}
	if _, err := s.transition(ctx, projectID, types.StatusAudioGenerating, nil); err != nil {
		return audio.Report{}, fmt.Errorf("generate audio: %w", err)
	}

	results, report, genErr := s.audio.GenerateAll(ctx, projectID, p.NarratorVoice, p.Metadata.Panels)
	for _, a := range results {
		unlock := s.panels.Lock(panelKey(projectID, a.PanelNumber))
		err := s.store.SaveAudio(context.WithoutCancel(ctx), projectID, a)
		unlock()
		if err != nil {
			s.fail(ctx, projectID, err)
			return report, fmt.Errorf("generate audio: save panel %d: %w", a.PanelNumber, err)
		}
		s.invalidatePreview(projectID, a.PanelNumber)
		if a.Error != "" {
			s.logs.Add(projectID, "panel %d narration failed: %s", a.PanelNumber, a.Error)
		}
	}
	if genErr != nil {
		s.fail(ctx, projectID, genErr)
		return report, fmt.Errorf("generate audio: %w", genErr)
	}

	s.logs.Add(projectID, "narration: %d generated, %d silent, %d failed", report.Generated, report.Silent, report.Failed)
	if _, err := s.transition(ctx, projectID, types.StatusAudioReady, nil); err != nil {
		return report, fmt.Errorf("generate audio: %w", err)
	}
	return report, nil
}

// AudioOverride is a user-supplied replacement for a panel's narration
type AudioOverride struct {
	Text    string `json:"text,omitempty"`
	VoiceID string `json:"voice_id,omitempty"`
}

// RegenerateAudio narrates one panel again, optionally with new text or voice.
// The panel's audio approval is reset.
func (s *Service) RegenerateAudio(ctx context.Context, projectID string, panel int, override AudioOverride) (*types.PanelAudio, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	meta, ok := p.Metadata.Panel(panel)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPanel, panel)
	}
	if s.jobs.isRunning(projectID) || approval.InProgress(p.Status) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, projectID)
	}

	unlock := s.panels.Lock(panelKey(projectID, panel))
	defer unlock()

	a, genErr := s.audio.GeneratePanel(ctx, audio.Request{
		ProjectID:     projectID,
		Panel:         meta,
		NarratorVoice: p.NarratorVoice,
		TextOverride:  override.Text,
		VoiceOverride: override.VoiceID,
	})
	if genErr != nil {
		if errors.Is(genErr, context.Canceled) {
			return nil, genErr
		}
		a = &types.PanelAudio{
			PanelNumber: panel,
			Text:        override.Text,
			VoiceID:     override.VoiceID,
			Error:       genErr.Error(),
			Approval:    types.FacetState{Origin: types.OriginOverridden},
			UpdatedAt:   s.now(),
		}
	}
	if err := s.store.SaveAudio(ctx, projectID, a); err != nil {
		return nil, fmt.Errorf("save audio: %w", err)
	}
	s.clearPreview(ctx, projectID, panel)
	if genErr != nil {
		s.logs.Add(projectID, "panel %d narration failed: %v", panel, genErr)
		return a, fmt.Errorf("panel %d: %w", panel, genErr)
	}
	s.logs.Add(projectID, "panel %d narration regenerated (%d ms)", panel, a.DurationMs)
	return a, nil
}

// Direct builds camera, effects and transition instructions for every placed
// panel. Stored overrides survive re-directing; approvals do not.
func (s *Service) Direct(ctx context.Context, projectID string) error {
	p, err := s.ensureParsed(ctx, projectID)
	if err != nil {
		return err
	}
	if _, err := s.transition(ctx, projectID, types.StatusDirecting, nil); err != nil {
		return fmt.Errorf("direct: %w", err)
	}

	existing, audioMap, err := s.loadPanels(ctx, projectID)
	if err != nil {
		s.fail(ctx, projectID, err)
		return fmt.Errorf("direct: %w", err)
	}

	insts, errs := s.director.Direct(&p.Metadata, p.Layout, audioMap)
	for _, err := range errs {
		s.logs.Add(projectID, "direct: %v", err)
	}
	if len(insts) == 0 {
		err := fmt.Errorf("no panel could be placed")
		s.fail(ctx, projectID, err)
		return fmt.Errorf("direct: %w", err)
	}

	for i := range insts {
		if err := ctx.Err(); err != nil {
			s.fail(ctx, projectID, err)
			return fmt.Errorf("direct: %w", err)
		}
		inst := insts[i]
		if old := existing[inst.PanelNumber]; old != nil && !old.Override.IsEmpty() {
			inst.Override = old.Override
			inst.Approval.Origin = types.OriginOverridden
		}

		unlock := s.panels.Lock(panelKey(projectID, inst.PanelNumber))
		err := s.store.SaveInstruction(ctx, projectID, &inst)
		unlock()
		if err != nil {
			s.fail(ctx, projectID, err)
			return fmt.Errorf("direct: save panel %d: %w", inst.PanelNumber, err)
		}
		s.invalidatePreview(projectID, inst.PanelNumber)
	}

	s.logs.Add(projectID, "directed %d panels", len(insts))
	if _, err := s.transition(ctx, projectID, types.StatusReadyForReview, nil); err != nil {
		return fmt.Errorf("direct: %w", err)
	}
	return nil
}

// renderable gathers every placed panel's instruction and narration and
// refuses when any of them is unapproved
func (s *Service) renderable(ctx context.Context, p *types.Project) ([]types.PanelInstruction, map[int]*types.PanelAudio, error) {
	if p.Layout == nil {
		return nil, nil, ErrNotDirected
	}
	instMap, audioMap, err := s.loadPanels(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(instMap) == 0 {
		return nil, nil, ErrNotDirected
	}

	var panels []int
	for _, n := range p.Metadata.PanelNumbers() {
		if p.Layout.HasPanel(n) {
			panels = append(panels, n)
		}
	}
	if err := approval.CheckRenderable(panels, audioMap, instMap); err != nil {
		return nil, nil, err
	}

	insts := make([]types.PanelInstruction, 0, len(panels))
	for _, n := range panels {
		insts = append(insts, *instMap[n])
	}
	return insts, audioMap, nil
}

// Render assembles the final video. It refuses, without writing anything,
// while any placed panel has unapproved audio or instructions.
func (s *Service) Render(ctx context.Context, projectID string) (string, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	insts, audioMap, err := s.renderable(ctx, p)
	if err != nil {
		return "", err
	}
	if p, err = s.transition(ctx, projectID, types.StatusRendering, nil); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	finalPath, err := s.renderer.Render(ctx, render.Job{
		Project:      p,
		Instructions: insts,
		Audio:        audioMap,
		Progress:     func(msg string) { s.logs.Add(projectID, "%s", msg) },
	})
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, render.ErrCancelled) {
			err = fmt.Errorf("%w: %v", render.ErrCancelled, err)
		}
		s.fail(ctx, projectID, err)
		return "", fmt.Errorf("render: %w", err)
	}

	_, err = s.transition(ctx, projectID, types.StatusComplete, func(p *types.Project) {
		p.FinalVideoPath = finalPath
	})
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return finalPath, nil
}
