// Package store persists projects and their per-panel records.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"comicreel/types"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// Store is the persistence contract of the pipeline. Update* calls apply fn as
// an atomic read-modify-write on a single record.
type Store interface {
	SaveProject(ctx context.Context, p *types.Project) error
	GetProject(ctx context.Context, id string) (*types.Project, error)
	UpdateProject(ctx context.Context, id string, fn func(*types.Project) error) (*types.Project, error)

	SaveInstruction(ctx context.Context, projectID string, inst *types.PanelInstruction) error
	GetInstruction(ctx context.Context, projectID string, panel int) (*types.PanelInstruction, error)
	ListInstructions(ctx context.Context, projectID string) ([]*types.PanelInstruction, error)
	UpdateInstruction(ctx context.Context, projectID string, panel int, fn func(*types.PanelInstruction) error) (*types.PanelInstruction, error)

	SaveAudio(ctx context.Context, projectID string, a *types.PanelAudio) error
	GetAudio(ctx context.Context, projectID string, panel int) (*types.PanelAudio, error)
	ListAudio(ctx context.Context, projectID string) ([]*types.PanelAudio, error)
	UpdateAudio(ctx context.Context, projectID string, panel int, fn func(*types.PanelAudio) error) (*types.PanelAudio, error)

	Close(ctx context.Context) error
}

// Backend is a keyed byte store with set indexes. Records implements Store on top of it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes key and, when index is non-empty, adds key to that index
	Put(ctx context.Context, key, index string, data []byte) error
	// Update applies fn to the current value atomically; it returns ErrNotFound for a missing key
	Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error
	List(ctx context.Context, index string) ([][]byte, error)
	Close(ctx context.Context) error
}

// Records stores every record as JSON in a Backend
type Records struct {
	b Backend
}

// New wraps a backend
func New(b Backend) *Records {
	return &Records{b: b}
}

func projectKey(id string) string { return "project:" + id }

func instructionKey(projectID string, panel int) string {
	return fmt.Sprintf("instruction:%s:%d", projectID, panel)
}

func instructionIndex(projectID string) string { return "idx:instructions:" + projectID }

func audioKey(projectID string, panel int) string {
	return fmt.Sprintf("audio:%s:%d", projectID, panel)
}

func audioIndex(projectID string) string { return "idx:audio:" + projectID }

func get[T any](ctx context.Context, b Backend, key string) (*T, error) {
	data, err := b.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, nil
}

func put[T any](ctx context.Context, b Backend, key, index string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.Put(ctx, key, index, data)
}

func update[T any](ctx context.Context, b Backend, key string, fn func(*T) error) (*T, error) {
	var result *T
	err := b.Update(ctx, key, func(old []byte) ([]byte, error) {
		var v T
		if err := json.Unmarshal(old, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		result = &v
		return json.Marshal(&v)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func list[T any](ctx context.Context, b Backend, index string) ([]*T, error) {
	rows, err := b.List(ctx, index)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(rows))
	for _, data := range rows {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s entry: %w", index, err)
		}
		out = append(out, &v)
	}
	return out, nil
}

func (r *Records) SaveProject(ctx context.Context, p *types.Project) error {
	return put(ctx, r.b, projectKey(p.ID), "", p)
}

func (r *Records) GetProject(ctx context.Context, id string) (*types.Project, error) {
	return get[types.Project](ctx, r.b, projectKey(id))
}

func (r *Records) UpdateProject(ctx context.Context, id string, fn func(*types.Project) error) (*types.Project, error) {
	return update(ctx, r.b, projectKey(id), fn)
}

func (r *Records) SaveInstruction(ctx context.Context, projectID string, inst *types.PanelInstruction) error {
	return put(ctx, r.b, instructionKey(projectID, inst.PanelNumber), instructionIndex(projectID), inst)
}

func (r *Records) GetInstruction(ctx context.Context, projectID string, panel int) (*types.PanelInstruction, error) {
	return get[types.PanelInstruction](ctx, r.b, instructionKey(projectID, panel))
}

// ListInstructions returns the project's instructions sorted by panel number
func (r *Records) ListInstructions(ctx context.Context, projectID string) ([]*types.PanelInstruction, error) {
	out, err := list[types.PanelInstruction](ctx, r.b, instructionIndex(projectID))
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PanelNumber < out[j].PanelNumber })
	return out, nil
}

func (r *Records) UpdateInstruction(ctx context.Context, projectID string, panel int, fn func(*types.PanelInstruction) error) (*types.PanelInstruction, error) {
	return update(ctx, r.b, instructionKey(projectID, panel), fn)
}

func (r *Records) SaveAudio(ctx context.Context, projectID string, a *types.PanelAudio) error {
	return put(ctx, r.b, audioKey(projectID, a.PanelNumber), audioIndex(projectID), a)
}

func (r *Records) GetAudio(ctx context.Context, projectID string, panel int) (*types.PanelAudio, error) {
	return get[types.PanelAudio](ctx, r.b, audioKey(projectID, panel))
}

// ListAudio returns the project's audio records sorted by panel number
func (r *Records) ListAudio(ctx context.Context, projectID string) ([]*types.PanelAudio, error) {
	out, err := list[types.PanelAudio](ctx, r.b, audioIndex(projectID))
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PanelNumber < out[j].PanelNumber })
	return out, nil
}

func (r *Records) UpdateAudio(ctx context.Context, projectID string, panel int, fn func(*types.PanelAudio) error) (*types.PanelAudio, error) {
	return update(ctx, r.b, audioKey(projectID, panel), fn)
}

func (r *Records) Close(ctx context.Context) error {
	return r.b.Close(ctx)
}
