package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"comicreel/types"
)

func TestGetMissing(t *testing.T) {
	s := New(NewMemory())
	ctx := context.Background()

	if _, err := s.GetProject(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetProject err = %v; want ErrNotFound", err)
	}
	if _, err := s.GetAudio(ctx, "nope", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetAudio err = %v; want ErrNotFound", err)
	}
	_, err := s.UpdateInstruction(ctx, "nope", 1, func(*types.PanelInstruction) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateInstruction err = %v; want ErrNotFound", err)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	s := New(NewMemory())
	ctx := context.Background()

	p := &types.Project{ID: "p1", Status: types.StatusDraft}
	if err := s.SaveProject(ctx, p); err != nil {
		t.Fatal(err)
	}
	updated, err := s.UpdateProject(ctx, "p1", func(p *types.Project) error {
		p.Status = types.StatusParsing
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != types.StatusParsing {
		t.Fatalf("returned status = %s", updated.Status)
	}
	got, _ := s.GetProject(ctx, "p1")
	if got.Status != types.StatusParsing {
		t.Fatalf("stored status = %s", got.Status)
	}
}

func TestUpdateErrorLeavesRecord(t *testing.T) {
	s := New(NewMemory())
	ctx := context.Background()
	_ = s.SaveProject(ctx, &types.Project{ID: "p1", Status: types.StatusDraft})

	boom := errors.New("boom")
	_, err := s.UpdateProject(ctx, "p1", func(p *types.Project) error {
		p.Status = types.StatusRendering
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v; want boom", err)
	}
	got, _ := s.GetProject(ctx, "p1")
	if got.Status != types.StatusDraft {
		t.Fatalf("failed update was persisted: %s", got.Status)
	}
}

func TestListsSortedByPanel(t *testing.T) {
	s := New(NewMemory())
	ctx := context.Background()

	// 10 sorts before 2 lexically; the list must still be numeric
	for _, n := range []int{10, 2, 1} {
		if err := s.SaveAudio(ctx, "p1", &types.PanelAudio{PanelNumber: n}); err != nil {
			t.Fatal(err)
		}
		if err := s.SaveInstruction(ctx, "p1", &types.PanelInstruction{PanelNumber: n}); err != nil {
			t.Fatal(err)
		}
	}
	_ = s.SaveAudio(ctx, "other", &types.PanelAudio{PanelNumber: 5})

	audio, err := s.ListAudio(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	insts, err := s.ListInstructions(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 10}
	if len(audio) != 3 || len(insts) != 3 {
		t.Fatalf("got %d audio, %d instructions", len(audio), len(insts))
	}
	for i, n := range want {
		if audio[i].PanelNumber != n || insts[i].PanelNumber != n {
			t.Fatalf("index %d: audio %d, instruction %d; want %d", i, audio[i].PanelNumber, insts[i].PanelNumber, n)
		}
	}

	// re-saving does not duplicate index entries
	_ = s.SaveAudio(ctx, "p1", &types.PanelAudio{PanelNumber: 2})
	audio, _ = s.ListAudio(ctx, "p1")
	if len(audio) != 3 {
		t.Fatalf("after re-save got %d records", len(audio))
	}
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	s := New(NewMemory())
	ctx := context.Background()
	_ = s.SaveAudio(ctx, "p1", &types.PanelAudio{PanelNumber: 1})

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateAudio(ctx, "p1", 1, func(a *types.PanelAudio) error {
				a.DurationMs++
				return nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.GetAudio(ctx, "p1", 1)
	if got.DurationMs != writers {
		t.Fatalf("DurationMs = %d; want %d (lost updates)", got.DurationMs, writers)
	}
}
