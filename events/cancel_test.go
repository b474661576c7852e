package events

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"testing"
	"time"

	"comicreel/approval"
	"comicreel/audio"
	"comicreel/config"
	"comicreel/director"
	"comicreel/pipeline"
	"comicreel/render"
	"comicreel/storage"
	"comicreel/store"
	"comicreel/types"
)

type silentAudio struct{}

func (silentAudio) GeneratePanel(ctx context.Context, req audio.Request) (*types.PanelAudio, error) {
	return &types.PanelAudio{PanelNumber: req.Panel.PanelNumber, Text: req.Panel.Header, DurationMs: 1000}, nil
}

func (a silentAudio) GenerateAll(ctx context.Context, projectID, narrator string, panels []types.PanelMeta) ([]*types.PanelAudio, audio.Report, error) {
	var out []*types.PanelAudio
	for _, p := range panels {
		rec, _ := a.GeneratePanel(ctx, audio.Request{ProjectID: projectID, Panel: p})
		out = append(out, rec)
	}
	return out, audio.Report{Generated: len(out)}, nil
}

// blockingRenderer holds every render until its context is cancelled
type blockingRenderer struct {
	started  chan string
	finished chan error
}

func newBlockingRenderer() *blockingRenderer {
	return &blockingRenderer{started: make(chan string, 1), finished: make(chan error, 1)}
}

func (r *blockingRenderer) Render(ctx context.Context, job render.Job) (string, error) {
	r.started <- job.Project.ID
	<-ctx.Done()
	err := fmt.Errorf("%w: %v", render.ErrCancelled, ctx.Err())
	r.finished <- err
	return "", err
}

func (r *blockingRenderer) Preview(ctx context.Context, job render.Job, panel int) (string, error) {
	return storage.PreviewPath(job.Project.ID, panel), nil
}

func newService(t *testing.T, records store.Store, objects storage.ObjectStore, renderer pipeline.Renderer) *pipeline.Service {
	t.Helper()
	svc := pipeline.New(pipeline.Deps{
		Store:      records,
		Objects:    objects,
		Audio:      silentAudio{},
		Renderer:   renderer,
		Director:   director.New(config.DefaultPresets()),
		CancelPoll: 10 * time.Millisecond,
	})
	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc
}

// approvedProject creates a directed project with every panel approved
func approvedProject(t *testing.T, svc *pipeline.Service) string {
	t.Helper()
	ctx := context.Background()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 200, 200))); err != nil {
		t.Fatal(err)
	}
	p, err := svc.CreateProject(ctx, pipeline.CreateInput{
		Metadata: types.ComicMetadata{
			Title: "Deploy Friday",
			Panels: []types.PanelMeta{
				{PanelNumber: 1, PanelType: "TITLE", Header: "Deploy Friday"},
				{PanelNumber: 2, Header: "What could go wrong"},
			},
		},
		Image:    &img,
		ImageExt: ".png",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Run(ctx, p.ID, pipeline.ActionProcess); err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, err := svc.Approve(ctx, p.ID, approval.FacetBoth, nil); err != nil {
		t.Fatal(err)
	}
	return p.ID
}

func message(projectID, action string) []byte {
	return []byte(fmt.Sprintf(`{"project_id":%q,"action":%q}`, projectID, action))
}

func awaitRenderStopped(t *testing.T, r *blockingRenderer, records store.Store, projectID string) {
	t.Helper()
	select {
	case <-r.finished:
	case <-time.After(2 * time.Second):
		t.Fatal("render kept running after cancel")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p, err := records.GetProject(context.Background(), projectID)
		if err == nil && p.Status == types.StatusFailed {
			if p.FailureReason != types.FailureCancelled || p.FinalVideoPath != "" {
				t.Fatalf("after cancel: reason %q, final %q", p.FailureReason, p.FinalVideoPath)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("project never recorded the cancellation")
}

func TestCancelMessageStopsConsumedRender(t *testing.T) {
	records := store.New(store.NewMemory())
	objects, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	renderer := newBlockingRenderer()
	worker := newService(t, records, objects, renderer)
	id := approvedProject(t, worker)
	handler := NewJobHandler(worker)

	done := make(chan bool, 1)
	go func() {
		mark, _ := handler.HandleMessage(context.Background(), message(id, "render"))
		done <- mark
	}()
	select {
	case mark := <-done:
		if !mark {
			t.Fatal("render message was not marked")
		}
	case <-time.After(time.Second):
		t.Fatal("handler blocked on a running render")
	}
	<-renderer.started

	mark, err := handler.HandleMessage(context.Background(), message(id, "cancel"))
	if err != nil || !mark {
		t.Fatalf("cancel message: mark=%v err=%v", mark, err)
	}
	awaitRenderStopped(t, renderer, records, id)
}

func TestCancelFromAnotherProcessStopsRender(t *testing.T) {
	records := store.New(store.NewMemory())
	objects, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	renderer := newBlockingRenderer()
	worker := newService(t, records, objects, renderer)
	server := newService(t, records, objects, newBlockingRenderer())
	id := approvedProject(t, worker)

	if _, err := NewJobHandler(worker).HandleMessage(context.Background(), message(id, "render")); err != nil {
		t.Fatal(err)
	}
	<-renderer.started

	// the API process has no local job and records the cancellation
	if err := server.Cancel(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	awaitRenderStopped(t, renderer, records, id)
}
