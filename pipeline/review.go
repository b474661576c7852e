package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"comicreel/approval"
	"comicreel/render"
	"comicreel/store"
	"comicreel/types"

	gocache "github.com/patrickmn/go-cache"
)

// ApplyOverride layers a patch over the panel's current override. Any
// override, even one repeating current values, clears the instruction approval.
func (s *Service) ApplyOverride(ctx context.Context, projectID string, panel int, patch *types.InstructionOverride) (*types.PanelInstruction, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: empty override", ErrInvalidInput)
	}
	unlock := s.panels.Lock(panelKey(projectID, panel))
	inst, err := s.store.UpdateInstruction(ctx, projectID, panel, func(inst *types.PanelInstruction) error {
		inst.Override = inst.Override.Merge(patch)
		approval.Edit(&inst.Approval)
		inst.PreviewPath = ""
		inst.UpdatedAt = s.now()
		return nil
	})
	unlock()
	if err != nil {
		return nil, s.panelErr(panel, err)
	}
	s.invalidateAround(ctx, projectID, panel)
	s.logs.Add(projectID, "panel %d override applied", panel)
	return inst, nil
}

// ClearOverride drops the panel's override and returns it to the director's baseline
func (s *Service) ClearOverride(ctx context.Context, projectID string, panel int) (*types.PanelInstruction, error) {
	unlock := s.panels.Lock(panelKey(projectID, panel))
	inst, err := s.store.UpdateInstruction(ctx, projectID, panel, func(inst *types.PanelInstruction) error {
		inst.Override = nil
		approval.Regenerate(&inst.Approval)
		inst.PreviewPath = ""
		inst.UpdatedAt = s.now()
		return nil
	})
	unlock()
	if err != nil {
		return nil, s.panelErr(panel, err)
	}
	s.invalidateAround(ctx, projectID, panel)
	s.logs.Add(projectID, "panel %d override cleared", panel)
	return inst, nil
}

// Approve marks the facet approved for the given panels, or for every panel
// with a record when panels is empty. Approving failed narration is refused
// for an explicit panel and skipped when approving everything.
func (s *Service) Approve(ctx context.Context, projectID string, facet approval.Facet, panels []int) ([]int, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	all := len(panels) == 0
	if all {
		panels = p.Metadata.PanelNumbers()
	}

	now := s.now()
	var approved []int
	for _, n := range panels {
		if _, ok := p.Metadata.Panel(n); !ok {
			return approved, fmt.Errorf("%w: %d", ErrUnknownPanel, n)
		}
		ok, err := s.approvePanel(ctx, projectID, n, facet, now, all)
		if err != nil {
			return approved, err
		}
		if ok {
			approved = append(approved, n)
		}
	}
	s.logs.Add(projectID, "approved %s for panels %v", facet, approved)
	return approved, nil
}

func (s *Service) approvePanel(ctx context.Context, projectID string, panel int, facet approval.Facet, now time.Time, lenient bool) (bool, error) {
	unlock := s.panels.Lock(panelKey(projectID, panel))
	defer unlock()

	// prior audio approval, restored if the instruction facet cannot be saved
	var prevAudio *types.FacetState
	if facet.Includes(approval.FacetAudio) {
		_, err := s.store.UpdateAudio(ctx, projectID, panel, func(a *types.PanelAudio) error {
			if a.Error != "" {
				return fmt.Errorf("%w: panel %d: %s", ErrAudioFailed, panel, a.Error)
			}
			prev := a.Approval
			prevAudio = &prev
			approval.Approve(&a.Approval, now)
			return nil
		})
		if err != nil {
			if lenient && (errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrAudioFailed)) {
				log.Printf("approve: skipping panel %d audio: %v", panel, err)
				return false, nil
			}
			return false, s.panelErr(panel, err)
		}
	}
	if facet.Includes(approval.FacetInstructions) {
		_, err := s.store.UpdateInstruction(ctx, projectID, panel, func(inst *types.PanelInstruction) error {
			approval.Approve(&inst.Approval, now)
			return nil
		})
		if err != nil {
			s.restoreAudioApproval(ctx, projectID, panel, prevAudio)
			if lenient && errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			return false, s.panelErr(panel, err)
		}
	}
	return true, nil
}

func (s *Service) restoreAudioApproval(ctx context.Context, projectID string, panel int, prev *types.FacetState) {
	if prev == nil {
		return
	}
	_, err := s.store.UpdateAudio(context.WithoutCancel(ctx), projectID, panel, func(a *types.PanelAudio) error {
		a.Approval = *prev
		return nil
	})
	if err != nil {
		log.Printf("project %s: restore audio approval of panel %d: %v", projectID, panel, err)
	}
}

// Preview renders one panel's segment and caches the result until the panel
// is edited. Concurrent requests for the same panel share one render.
func (s *Service) Preview(ctx context.Context, projectID string, panel int) (string, error) {
	key := panelKey(projectID, panel)
	if cached, ok := s.previews.Get(key); ok {
		return cached.(string), nil
	}

	// joined callers must not fail because the first caller went away
	renderCtx := context.WithoutCancel(ctx)
	v, err, shared := s.previewFlight.Do(key, func() (any, error) {
		return s.renderPreview(renderCtx, projectID, panel)
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Printf("preview %s: joined in-flight render", key)
	}
	return v.(string), nil
}

func (s *Service) renderPreview(ctx context.Context, projectID string, panel int) (string, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	instMap, audioMap, err := s.loadPanels(ctx, projectID)
	if err != nil {
		return "", err
	}
	target, ok := instMap[panel]
	if !ok {
		if len(instMap) == 0 {
			return "", ErrNotDirected
		}
		return "", fmt.Errorf("%w: %d has no instruction", ErrUnknownPanel, panel)
	}

	// a stored preview is still valid when it was made from this exact revision
	if target.PreviewPath != "" {
		if ok, err := s.objects.Exists(ctx, target.PreviewPath); err == nil && ok {
			s.previews.Set(panelKey(projectID, panel), target.PreviewPath, gocache.DefaultExpiration)
			return target.PreviewPath, nil
		}
	}
	revision := target.UpdatedAt

	insts := make([]types.PanelInstruction, 0, len(instMap))
	for _, inst := range instMap {
		insts = append(insts, *inst)
	}
	objectPath, err := s.renderer.Preview(ctx, render.Job{
		Project:      p,
		Instructions: insts,
		Audio:        audioMap,
	}, panel)
	if err != nil {
		return "", fmt.Errorf("preview panel %d: %w", panel, err)
	}

	unlock := s.panels.Lock(panelKey(projectID, panel))
	defer unlock()
	_, err = s.store.UpdateInstruction(ctx, projectID, panel, func(inst *types.PanelInstruction) error {
		if inst.UpdatedAt.Equal(revision) {
			inst.PreviewPath = objectPath
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("preview panel %d: %w", panel, err)
	}
	if current, err := s.store.GetInstruction(ctx, projectID, panel); err == nil && current.PreviewPath == objectPath {
		s.previews.Set(panelKey(projectID, panel), objectPath, gocache.DefaultExpiration)
	}
	s.logs.Add(projectID, "panel %d preview rendered", panel)
	return objectPath, nil
}

// invalidateAround drops the panel's cached preview and the preview of the
// panel before it, whose transition targets this panel's opening frame
func (s *Service) invalidateAround(ctx context.Context, projectID string, panel int) {
	s.invalidatePreview(projectID, panel)

	insts, err := s.store.ListInstructions(ctx, projectID)
	if err != nil {
		log.Printf("project %s: list instructions: %v", projectID, err)
		return
	}
	prev := 0
	for _, inst := range insts {
		if inst.PanelNumber < panel && inst.PanelNumber > prev {
			prev = inst.PanelNumber
		}
	}
	if prev == 0 {
		return
	}
	unlock := s.panels.Lock(panelKey(projectID, prev))
	defer unlock()
	s.clearPreview(ctx, projectID, prev)
}

func (s *Service) invalidatePreview(projectID string, panel int) {
	s.previews.Delete(panelKey(projectID, panel))
}

// clearPreview forgets the panel's stored preview after its timing changed.
// Callers hold the panel lock.
func (s *Service) clearPreview(ctx context.Context, projectID string, panel int) {
	s.invalidatePreview(projectID, panel)
	_, err := s.store.UpdateInstruction(ctx, projectID, panel, func(inst *types.PanelInstruction) error {
		inst.PreviewPath = ""
		inst.UpdatedAt = s.now()
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("project %s: clear preview of panel %d: %v", projectID, panel, err)
	}
}

func (s *Service) panelErr(panel int, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("panel %d: %w", panel, err)
	}
	return err
}
