package approval

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"comicreel/types"
)

func TestEditAlwaysClearsApproval(t *testing.T) {
	now := time.Now()
	s := types.FacetState{Origin: types.OriginAuto}
	Approve(&s, now)
	if !s.Approved || s.ApprovedAt == nil {
		t.Fatalf("Approve did not set state: %+v", s)
	}

	Edit(&s)
	if s.Approved || s.ApprovedAt != nil || s.Origin != types.OriginOverridden {
		t.Fatalf("Edit left %+v", s)
	}

	Approve(&s, now)
	Regenerate(&s)
	if s.Approved || s.Origin != types.OriginAuto {
		t.Fatalf("Regenerate left %+v", s)
	}
}

func TestParseFacet(t *testing.T) {
	cases := map[string]Facet{"": FacetBoth, "both": FacetBoth, "AUDIO": FacetAudio, "instruction": FacetInstructions}
	for in, want := range cases {
		got, err := ParseFacet(in)
		if err != nil || got != want {
			t.Fatalf("ParseFacet(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseFacet("video"); err == nil {
		t.Fatalf("expected error for unknown facet")
	}
	if !FacetBoth.Includes(FacetAudio) || FacetAudio.Includes(FacetInstructions) {
		t.Fatalf("Includes wrong")
	}
}

func TestCheckRenderable(t *testing.T) {
	ok := types.FacetState{Approved: true}
	audio := map[int]*types.PanelAudio{
		1: {Approval: ok},
		2: {Approval: ok},
		3: {},
	}
	insts := map[int]*types.PanelInstruction{
		1: {Approval: ok},
		2: {},
		3: {Approval: ok},
	}

	err := CheckRenderable([]int{4, 3, 2, 1}, audio, insts)
	var unapproved *UnapprovedError
	if !errors.As(err, &unapproved) {
		t.Fatalf("err = %v; want *UnapprovedError", err)
	}
	if !reflect.DeepEqual(unapproved.Panels(), []int{2, 3, 4}) {
		t.Fatalf("Panels = %v; want [2 3 4]", unapproved.Panels())
	}
	if !reflect.DeepEqual(unapproved.Audio, []int{3, 4}) || !reflect.DeepEqual(unapproved.Instructions, []int{2, 4}) {
		t.Fatalf("facets = %v / %v", unapproved.Audio, unapproved.Instructions)
	}

	audio[3].Approval = ok
	audio[4] = &types.PanelAudio{Approval: ok}
	insts[2].Approval = ok
	insts[4] = &types.PanelInstruction{Approval: ok}
	if err := CheckRenderable([]int{1, 2, 3, 4}, audio, insts); err != nil {
		t.Fatalf("fully approved project refused: %v", err)
	}
}

func TestProjectLifecycle(t *testing.T) {
	now := time.Now()
	p := &types.Project{Status: types.StatusDraft}
	path := []types.ProjectStatus{
		types.StatusParsing,
		types.StatusAudioGenerating,
		types.StatusAudioReady,
		types.StatusDirecting,
		types.StatusReadyForReview,
		types.StatusRendering,
		types.StatusComplete,
	}
	for _, next := range path {
		if err := Transition(p, next, now); err != nil {
			t.Fatalf("Transition to %s: %v", next, err)
		}
	}
}

func TestInvalidTransitions(t *testing.T) {
	cases := []struct {
		from, to types.ProjectStatus
	}{
		{types.StatusDraft, types.StatusRendering},
		{types.StatusAudioGenerating, types.StatusComplete},
		{types.StatusReadyForReview, types.StatusFailed},
		{types.StatusComplete, types.StatusFailed},
		{types.StatusDraft, types.StatusFailed},
	}
	for _, c := range cases {
		p := &types.Project{Status: c.from}
		if err := Transition(p, c.to, time.Now()); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> %s: err = %v", c.from, c.to, err)
		}
		if p.Status != c.from {
			t.Fatalf("status changed on rejected transition")
		}
	}
}

func TestFailFromAnyInProgressState(t *testing.T) {
	for _, s := range []types.ProjectStatus{types.StatusParsing, types.StatusAudioGenerating, types.StatusDirecting, types.StatusRendering} {
		p := &types.Project{Status: s}
		if err := Fail(p, types.FailureCancelled, errors.New("context canceled"), time.Now()); err != nil {
			t.Fatalf("Fail from %s: %v", s, err)
		}
		if p.Status != types.StatusFailed || p.FailureReason != types.FailureCancelled || p.Error == "" {
			t.Fatalf("after Fail: %+v", p)
		}

		if err := Transition(p, types.StatusRendering, time.Now()); err != nil {
			t.Fatalf("retry from failed: %v", err)
		}
		if p.FailureReason != "" || p.Error != "" {
			t.Fatalf("retry did not clear the failure")
		}
	}
}
