// Package approval tracks per-panel review state and the project lifecycle.
package approval

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"comicreel/types"
)

// ErrInvalidTransition is returned for a project status change the lifecycle does not allow
var ErrInvalidTransition = errors.New("invalid status transition")

// Edit records a user change to a facet. Approval is always cleared, even when
// the new value equals the old one.
func Edit(s *types.FacetState) {
	s.Origin = types.OriginOverridden
	s.Approved = false
	s.ApprovedAt = nil
}

// Regenerate records an automatic regeneration of a facet
func Regenerate(s *types.FacetState) {
	s.Origin = types.OriginAuto
	s.Approved = false
	s.ApprovedAt = nil
}

// Approve marks a facet approved at now
func Approve(s *types.FacetState, now time.Time) {
	s.Approved = true
	s.ApprovedAt = &now
}

// Facet selects which part of a panel an approval applies to
type Facet string

const (
	FacetAudio        Facet = "audio"
	FacetInstructions Facet = "instructions"
	FacetBoth         Facet = "both"
)

// ParseFacet accepts audio, instructions or both; empty means both
func ParseFacet(s string) (Facet, error) {
	switch Facet(strings.ToLower(strings.TrimSpace(s))) {
	case "", FacetBoth:
		return FacetBoth, nil
	case FacetAudio:
		return FacetAudio, nil
	case FacetInstructions, "instruction":
		return FacetInstructions, nil
	}
	return "", fmt.Errorf("unknown facet %q", s)
}

// Includes reports whether f covers other
func (f Facet) Includes(other Facet) bool {
	return f == FacetBoth || f == other
}

// UnapprovedError lists the panels that block final rendering
type UnapprovedError struct {
	Audio        []int
	Instructions []int
}

// Panels is the sorted union of panels with any unapproved facet
func (e *UnapprovedError) Panels() []int {
	seen := make(map[int]bool)
	var out []int
	for _, list := range [][]int{e.Audio, e.Instructions} {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Ints(out)
	return out
}

func (e *UnapprovedError) Error() string {
	return fmt.Sprintf("render refused: unapproved panels %v", e.Panels())
}

// CheckRenderable returns an *UnapprovedError unless every panel has approved
// audio and approved instructions. Missing records count as unapproved.
func CheckRenderable(panels []int, audio map[int]*types.PanelAudio, insts map[int]*types.PanelInstruction) error {
	var e UnapprovedError
	for _, n := range panels {
		if a := audio[n]; a == nil || !a.Approval.Approved {
			e.Audio = append(e.Audio, n)
		}
		if inst := insts[n]; inst == nil || !inst.Approval.Approved {
			e.Instructions = append(e.Instructions, n)
		}
	}
	if len(e.Audio) == 0 && len(e.Instructions) == 0 {
		return nil
	}
	sort.Ints(e.Audio)
	sort.Ints(e.Instructions)
	return &e
}

var transitions = map[types.ProjectStatus][]types.ProjectStatus{
	types.StatusDraft:           {types.StatusParsing},
	types.StatusParsing:         {types.StatusAudioGenerating, types.StatusDirecting},
	types.StatusAudioGenerating: {types.StatusAudioReady},
	types.StatusAudioReady:      {types.StatusParsing, types.StatusAudioGenerating, types.StatusDirecting},
	types.StatusDirecting:       {types.StatusReadyForReview},
	types.StatusReadyForReview:  {types.StatusParsing, types.StatusAudioGenerating, types.StatusDirecting, types.StatusRendering},
	types.StatusRendering:       {types.StatusComplete},
	types.StatusComplete:        {types.StatusParsing, types.StatusAudioGenerating, types.StatusDirecting, types.StatusRendering},
	types.StatusFailed:          {types.StatusParsing, types.StatusAudioGenerating, types.StatusDirecting, types.StatusRendering},
}

// InProgress reports whether a status is a running pipeline stage
func InProgress(s types.ProjectStatus) bool {
	switch s {
	case types.StatusParsing, types.StatusAudioGenerating, types.StatusDirecting, types.StatusRendering:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is allowed. Any in-progress stage may fail.
func CanTransition(from, to types.ProjectStatus) bool {
	if to == types.StatusFailed {
		return InProgress(from)
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the project to status, clearing any previous failure
func Transition(p *types.Project, to types.ProjectStatus, now time.Time) error {
	if !CanTransition(p.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, to)
	}
	p.Status = to
	if to != types.StatusFailed {
		p.FailureReason = ""
		p.Error = ""
	}
	p.UpdatedAt = now
	return nil
}

// Fail moves an in-progress project to failed with a reason and message
func Fail(p *types.Project, reason string, cause error, now time.Time) error {
	if err := Transition(p, types.StatusFailed, now); err != nil {
		return err
	}
	p.FailureReason = reason
	if cause != nil {
		p.Error = cause.Error()
	}
	return nil
}
