package director

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"comicreel/config"
	"comicreel/layout"
	"comicreel/types"
)

func newDirector() *Director {
	return New(config.DefaultPresets())
}

func TestInferMoodPriority(t *testing.T) {
	d := newDirector()
	cases := []struct {
		name   string
		panel  types.PanelMeta
		colors map[string]string
		want   types.Mood
	}{
		{
			name:   "explicit lexicon beats color and keywords",
			panel:  types.PanelMeta{PanelNumber: 5, Mood: "chaotic_positive", Header: "so happy"},
			colors: map[string]string{"panels_5_6": "red - danger"},
			want:   types.MoodChaos,
		},
		{
			name:  "unknown explicit mood falls through to panel type",
			panel: types.PanelMeta{PanelNumber: 1, Mood: "vibey", PanelType: "TITLE"},
			want:  types.MoodDramatic,
		},
		{
			name:  "outro panel type",
			panel: types.PanelMeta{PanelNumber: 15, PanelType: "OUTRO / CTA", Header: "disaster"},
			want:  types.MoodCelebration,
		},
		{
			name:   "color key list",
			panel:  types.PanelMeta{PanelNumber: 6, Header: "we won"},
			colors: map[string]string{"panels_5_6_7": "Red - danger zone"},
			want:   types.MoodDanger,
		},
		{
			name:   "color key range",
			panel:  types.PanelMeta{PanelNumber: 11},
			colors: map[string]string{"panels 10-12": "gold celebration"},
			want:   types.MoodCelebration,
		},
		{
			name:   "panel 1 does not match panel 11",
			panel:  types.PanelMeta{PanelNumber: 1, Header: "just a day"},
			colors: map[string]string{"panel_11": "gold"},
			want:   types.MoodNeutral,
		},
		{
			name:   "unmapped color falls through to keywords",
			panel:  types.PanelMeta{PanelNumber: 2, Dialogue: "good times"},
			colors: map[string]string{"panel_2": "teal"},
			want:   types.MoodPositive,
		},
		{
			name:  "keyword sets are ordered",
			panel: types.PanelMeta{PanelNumber: 3, Header: "A crazy victory"},
			want:  types.MoodChaos,
		},
		{
			name:  "celebration keyword",
			panel: types.PanelMeta{PanelNumber: 4, Dialogue: "We WON the deal"},
			want:  types.MoodCelebration,
		},
		{
			name:  "keywords match whole words only",
			panel: types.PanelMeta{PanelNumber: 4, Dialogue: "open the window"},
			want:  types.MoodNeutral,
		},
		{
			name:  "default neutral",
			panel: types.PanelMeta{PanelNumber: 9, Header: "Monday"},
			want:  types.MoodNeutral,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := d.InferMood(c.panel, c.colors)
			if got != c.want {
				t.Fatalf("InferMood = %s; want %s", got, c.want)
			}
			if again := d.InferMood(c.panel, c.colors); again != got {
				t.Fatalf("InferMood not idempotent: %s then %s", got, again)
			}
		})
	}
}

func TestColorMoodPrefersMostSpecificKey(t *testing.T) {
	d := newDirector()
	colors := map[string]string{
		"panels 1-8": "gold",
		"panel_4":    "red",
	}
	for i := 0; i < 20; i++ {
		if got := d.InferMood(types.PanelMeta{PanelNumber: 4}, colors); got != types.MoodDanger {
			t.Fatalf("InferMood = %s; want DANGER from the single-panel key", got)
		}
	}
}

func TestKeyPanels(t *testing.T) {
	cases := []struct {
		key  string
		want []int
	}{
		{"panel_1", []int{1}},
		{"panels_5_6_7", []int{5, 6, 7}},
		{"panels 10-12", []int{10, 11, 12}},
		{"panels 3 to 5", []int{3, 4, 5}},
		{"intro", nil},
	}
	for _, c := range cases {
		got := KeyPanels(c.key)
		if len(got) != len(c.want) {
			t.Fatalf("KeyPanels(%q) = %v; want %v", c.key, got, c.want)
		}
		for _, n := range c.want {
			if !got[n] {
				t.Fatalf("KeyPanels(%q) missing %d", c.key, n)
			}
		}
	}
}

func TestCamera(t *testing.T) {
	d := newDirector()
	bounds := types.PanelBounds{CenterX: 0.375, CenterY: 0.125}
	cases := []struct {
		name       string
		panel      types.PanelMeta
		mood       types.Mood
		wantStart  float64
		wantEnd    float64
		wantEasing types.Easing
	}{
		{"default gentle zoom in", types.PanelMeta{}, types.MoodNeutral, 1.0, 1.15, types.EasingEaseInOut},
		{"title zooms out", types.PanelMeta{PanelType: "Title"}, types.MoodDramatic, 1.4, 1.0, types.EasingEaseInOut},
		{"dramatic pushes further", types.PanelMeta{}, types.MoodDramatic, 1.0, 1.3225, types.EasingEaseInOut},
		{"chaos widens and goes linear", types.PanelMeta{}, types.MoodChaos, 0.95, 1.38, types.EasingLinear},
		{"celebration starts wide", types.PanelMeta{}, types.MoodCelebration, 0.9, 1.15, types.EasingEaseInOut},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cam := d.Camera(c.panel, c.mood, bounds)
			if math.Abs(cam.StartZoom-c.wantStart) > 1e-9 || math.Abs(cam.EndZoom-c.wantEnd) > 1e-9 {
				t.Fatalf("zoom = %.4f -> %.4f; want %.4f -> %.4f", cam.StartZoom, cam.EndZoom, c.wantStart, c.wantEnd)
			}
			if cam.Easing != c.wantEasing {
				t.Fatalf("easing = %s; want %s", cam.Easing, c.wantEasing)
			}
			if cam.CenterX != bounds.CenterX || cam.CenterY != bounds.CenterY {
				t.Fatalf("center moved off panel: (%.3f, %.3f)", cam.CenterX, cam.CenterY)
			}
		})
	}
}

func TestEffectsUnionPresetAndKeywords(t *testing.T) {
	d := newDirector()
	panel := types.PanelMeta{Header: "The server is on fire", Dialogue: "this is crazy"}

	eff := d.Effects(panel, types.MoodDanger)

	wantAmbient := []types.EffectType{types.EffectVignette, types.EffectRedGlow}
	wantTriggered := []types.EffectType{types.EffectRedGlow, types.EffectShake}
	if !reflect.DeepEqual(eff.Ambient, wantAmbient) {
		t.Fatalf("Ambient = %v; want %v", eff.Ambient, wantAmbient)
	}
	if !reflect.DeepEqual(eff.Triggered, wantTriggered) {
		t.Fatalf("Triggered = %v; want %v", eff.Triggered, wantTriggered)
	}
	wantAll := []types.EffectType{types.EffectVignette, types.EffectRedGlow, types.EffectShake}
	if !reflect.DeepEqual(eff.All(), wantAll) {
		t.Fatalf("All = %v; want %v", eff.All(), wantAll)
	}
}

func TestEffectsDoNotShareFieldsWithPresets(t *testing.T) {
	presets := config.DefaultPresets()
	d := New(presets)

	eff := d.Effects(types.PanelMeta{}, types.MoodWarning)
	eff.Ambient[0] = types.EffectFlash
	eff.Tint.Opacity = 1

	if presets.MoodEffects[types.MoodWarning].Ambient[0] != types.EffectVignette {
		t.Fatalf("preset ambient list was mutated")
	}
	if presets.MoodEffects[types.MoodWarning].Tint.Opacity == 1 {
		t.Fatalf("preset tint was mutated")
	}
}

func TestTransitionPriority(t *testing.T) {
	d := newDirector()
	content := func(kind string) *types.PanelMeta { return &types.PanelMeta{PanelType: kind} }
	cases := []struct {
		name     string
		panel    types.PanelMeta
		mood     types.Mood
		next     *types.PanelMeta
		wantType types.TransitionType
		wantMs   int
	}{
		{"last panel cuts", types.PanelMeta{PanelType: "ACT 1"}, types.MoodChaos, nil, types.TransitionCut, 0},
		{"into outro fades", types.PanelMeta{PanelType: "ACT 3"}, types.MoodDramatic, content("OUTRO"), types.TransitionFade, 500},
		{"act change", types.PanelMeta{PanelType: "ACT 1 - Setup"}, types.MoodDramatic, content("ACT 2 - Conflict"), types.TransitionZoomOutIn, 700},
		{"title into content glides", types.PanelMeta{PanelType: "TITLE"}, types.MoodDramatic, content("ACT 1"), types.TransitionGlide, 600},
		{"dramatic snaps", types.PanelMeta{PanelType: "ACT 1"}, types.MoodDramatic, content("ACT 1"), types.TransitionSnap, 300},
		{"chaos whips", types.PanelMeta{}, types.MoodChaos, content(""), types.TransitionWhip, 250},
		{"default pan", types.PanelMeta{}, types.MoodPositive, content(""), types.TransitionPan, 400},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tr := d.Transition(c.panel, c.mood, c.next)
			if tr.Type != c.wantType || tr.DurationMs != c.wantMs {
				t.Fatalf("Transition = %s/%dms; want %s/%dms", tr.Type, tr.DurationMs, c.wantType, c.wantMs)
			}
			if tr.Easing != types.EasingLinear {
				t.Fatalf("Transition easing = %s; want linear handoff", tr.Easing)
			}
		})
	}
}

func TestEstimateDurationMs(t *testing.T) {
	cases := []struct {
		name    string
		panel   types.PanelMeta
		audioMs int
		want    int
	}{
		{"audio plus buffer", types.PanelMeta{Header: "ignored"}, 2300, 2800},
		{"ten characters", types.PanelMeta{Header: "0123456789"}, 0, 1300},
		{"empty text hits minimum", types.PanelMeta{}, 0, 1000},
		{"header and dialogue counted", types.PanelMeta{Header: "abcde", Dialogue: "fghij"}, 0, 1300},
	}
	for _, c := range cases {
		if got := EstimateDurationMs(c.panel, c.audioMs); got != c.want {
			t.Fatalf("%s: EstimateDurationMs = %d; want %d", c.name, got, c.want)
		}
	}
}

func TestDirectSkipsUnplacedPanels(t *testing.T) {
	d := newDirector()
	meta := &types.ComicMetadata{
		Layout: types.LayoutHints{Format: "2x1"},
		Panels: []types.PanelMeta{
			{PanelNumber: 1, PanelType: "TITLE", Header: "Launch day"},
			{PanelNumber: 2, Header: "It works"},
			{PanelNumber: 3, Header: "No room for me"},
		},
	}
	l := layout.Parse(meta, 800, 400)
	audio := map[int]*types.PanelAudio{
		2: {PanelNumber: 2, AudioPath: "a.mp3", DurationMs: 1500},
	}

	insts, errs := d.Direct(meta, l, audio)

	if len(insts) != 2 {
		t.Fatalf("got %d instructions; want 2", len(insts))
	}
	if len(errs) != 1 || !errors.Is(errs[0], layout.ErrPanelNotFound) {
		t.Fatalf("errs = %v; want one ErrPanelNotFound", errs)
	}
	if insts[0].Transition.Type != types.TransitionGlide {
		t.Fatalf("panel 1 transition = %s; want GLIDE", insts[0].Transition.Type)
	}
	if insts[1].Transition.Type != types.TransitionCut {
		t.Fatalf("last placed panel transition = %s; want CUT", insts[1].Transition.Type)
	}
	if insts[1].DurationMs != 2000 {
		t.Fatalf("panel 2 duration = %d; want 2000 (audio + buffer)", insts[1].DurationMs)
	}
	if insts[0].Approval.Approved || insts[0].Approval.Origin != types.OriginAuto {
		t.Fatalf("new instruction approval = %+v", insts[0].Approval)
	}
}

func TestCameraFocusPointsForSpeakers(t *testing.T) {
	d := newDirector()
	bounds := types.PanelBounds{CenterX: 0.5, CenterY: 0.5}

	single := types.PanelMeta{Speakers: []types.SpeakerLine{{Speaker: "Dev", Text: "It works on my machine"}}}
	if cam := d.Camera(single, types.MoodNeutral, bounds); cam.FocusPoints != nil {
		t.Fatalf("single speaker got focus points %+v", cam.FocusPoints)
	}

	panel := types.PanelMeta{Speakers: []types.SpeakerLine{
		{Speaker: "Dev", Text: "Ship it"},
		{Speaker: "Ops", Text: "On a Friday?"},
		{Speaker: "Dev", Text: "Yes"},
		{Speaker: "QA", Text: "   "},
	}}
	cam := d.Camera(panel, types.MoodNeutral, bounds)
	want := []types.FocusPoint{
		{X: 0.25, Y: 0.5, Weight: 2.0 / 3},
		{X: 0.75, Y: 0.5, Weight: 1.0 / 3},
	}
	if len(cam.FocusPoints) != len(want) {
		t.Fatalf("focus points = %+v; want %+v", cam.FocusPoints, want)
	}
	for i, fp := range cam.FocusPoints {
		if math.Abs(fp.X-want[i].X) > 1e-9 || fp.Y != want[i].Y || math.Abs(fp.Weight-want[i].Weight) > 1e-9 {
			t.Fatalf("focus point %d = %+v; want %+v", i, fp, want[i])
		}
	}
	if cam.CenterX != bounds.CenterX || cam.CenterY != bounds.CenterY {
		t.Fatalf("focus points moved the center")
	}
}
