package audio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"comicreel/config"
	"comicreel/storage"
	"comicreel/types"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []SpeechRequest
	// errs are returned, in order, before any success
	errs  []error
	failN map[string]error
}

func (f *fakeProvider) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err, ok := f.failN[req.Text]; ok {
		return nil, err
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return []byte("ID3 " + req.Text), nil
}

type fakeProber struct {
	byName map[string]int
}

func (f fakeProber) DurationMs(ctx context.Context, path string) (int, error) {
	if ms, ok := f.byName[filepath.Base(path)]; ok {
		return ms, nil
	}
	return 1000, nil
}

type fileRunner struct {
	calls [][]string
}

// Run creates the output file, which is the last .mp3 argument
func (r *fileRunner) Run(ctx context.Context, timeout time.Duration, args []string) error {
	r.calls = append(r.calls, args)
	for i := len(args) - 1; i >= 0; i-- {
		if strings.HasSuffix(args[i], ".mp3") {
			return os.WriteFile(args[i], []byte("combined"), 0o644)
		}
	}
	return errors.New("no output in args")
}

func newTestGenerator(t *testing.T, provider SpeechProvider, prober fakeProber) (*Generator, *storage.Local, *fileRunner) {
	t.Helper()
	objects, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	preset := config.DefaultPresets().Voices
	preset.Narrator = "narrator-voice"
	preset.SegmentGapMs = 300
	preset.Profiles = map[string]config.VoiceProfile{
		"Max": {VoiceID: "max-voice"},
	}
	runner := &fileRunner{}
	g := NewGenerator(provider, objects, runner, prober, preset, GeneratorConfig{
		MaxRetries:   3,
		RetryInitial: time.Millisecond,
		WorkDir:      t.TempDir(),
	})
	return g, objects, runner
}

func TestSpeakableTextPriority(t *testing.T) {
	cases := []struct {
		name  string
		panel types.PanelMeta
		want  string
	}{
		{"narration wins", types.PanelMeta{Narration: "told", Dialogue: "said", Header: "title"}, "told"},
		{"dialogue next", types.PanelMeta{Dialogue: " said ", Header: "title"}, "said"},
		{"header last", types.PanelMeta{Narration: "  ", Header: "title"}, "title"},
		{"nothing", types.PanelMeta{}, ""},
	}
	for _, c := range cases {
		if got := SpeakableText(c.panel); got != c.want {
			t.Fatalf("%s: SpeakableText = %q; want %q", c.name, got, c.want)
		}
	}
}

func TestIsMultiSpeaker(t *testing.T) {
	one := types.PanelMeta{Speakers: []types.SpeakerLine{{Speaker: "Max", Text: "hi"}, {Speaker: "Ana", Text: " "}}}
	two := types.PanelMeta{Speakers: []types.SpeakerLine{{Speaker: "Max", Text: "hi"}, {Speaker: "Ana", Text: "yo"}}}
	if IsMultiSpeaker(one) {
		t.Fatalf("one spoken line is not multi-speaker")
	}
	if !IsMultiSpeaker(two) {
		t.Fatalf("two spoken lines are multi-speaker")
	}
}

func TestVoicesResolve(t *testing.T) {
	custom := types.VoiceSettings{Stability: 0.9}
	preset := config.VoicePreset{
		Narrator: "preset-narrator",
		Settings: types.VoiceSettings{Stability: 0.5},
		Profiles: map[string]config.VoiceProfile{
			"Max": {VoiceID: "max-voice", Settings: &custom},
			"Ana": {VoiceID: "ana-voice"},
		},
	}
	v := NewVoices(preset, "chosen-narrator")

	cases := []struct {
		speaker   string
		wantVoice string
		wantStab  float64
	}{
		{"narrator", "chosen-narrator", 0.5},
		{"", "chosen-narrator", 0.5},
		{" max ", "max-voice", 0.9},
		{"ANA", "ana-voice", 0.5},
		{"stranger", "chosen-narrator", 0.5},
	}
	for _, c := range cases {
		voice, settings := v.Resolve(c.speaker)
		if voice != c.wantVoice || settings.Stability != c.wantStab {
			t.Fatalf("Resolve(%q) = %s/%.1f; want %s/%.1f", c.speaker, voice, settings.Stability, c.wantVoice, c.wantStab)
		}
	}

	if voice, _ := NewVoices(preset, "").Resolve("narrator"); voice != "preset-narrator" {
		t.Fatalf("empty override should keep preset narrator, got %s", voice)
	}
}

func TestGeneratePanelSingleSpeaker(t *testing.T) {
	provider := &fakeProvider{}
	g, objects, _ := newTestGenerator(t, provider, fakeProber{byName: map[string]int{"panel_3.mp3": 2340}})

	a, err := g.GeneratePanel(context.Background(), Request{
		ProjectID: "p1",
		Panel:     types.PanelMeta{PanelNumber: 3, Narration: "Then the build went green.", Header: "Green"},
	})
	if err != nil {
		t.Fatalf("GeneratePanel: %v", err)
	}

	if a.DurationMs != 2340 || a.Text != "Then the build went green." || a.VoiceID != "narrator-voice" {
		t.Fatalf("audio = %+v", a)
	}
	if a.AudioPath != storage.PanelAudioPath("p1", 3) {
		t.Fatalf("AudioPath = %s", a.AudioPath)
	}
	if ok, _ := objects.Exists(context.Background(), a.AudioPath); !ok {
		t.Fatalf("audio was not uploaded")
	}
	if a.Approval.Origin != types.OriginAuto || a.Approval.Approved {
		t.Fatalf("Approval = %+v", a.Approval)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("provider called %d times", len(provider.calls))
	}
}

func TestGeneratePanelOverrideMarksOrigin(t *testing.T) {
	provider := &fakeProvider{}
	g, _, _ := newTestGenerator(t, provider, fakeProber{})

	a, err := g.GeneratePanel(context.Background(), Request{
		ProjectID:     "p1",
		Panel:         types.PanelMeta{PanelNumber: 1, Header: "Original"},
		TextOverride:  "Rewritten line",
		VoiceOverride: "other-voice",
	})
	if err != nil {
		t.Fatalf("GeneratePanel: %v", err)
	}
	if a.Approval.Origin != types.OriginOverridden {
		t.Fatalf("Origin = %s; want overridden", a.Approval.Origin)
	}
	if provider.calls[0].Text != "Rewritten line" || provider.calls[0].VoiceID != "other-voice" {
		t.Fatalf("request = %+v", provider.calls[0])
	}
}

func TestGeneratePanelSilent(t *testing.T) {
	provider := &fakeProvider{}
	g, _, _ := newTestGenerator(t, provider, fakeProber{})

	a, err := g.GeneratePanel(context.Background(), Request{ProjectID: "p1", Panel: types.PanelMeta{PanelNumber: 4}})
	if err != nil {
		t.Fatalf("GeneratePanel: %v", err)
	}
	if a.HasAudio() || len(provider.calls) != 0 {
		t.Fatalf("silent panel produced audio: %+v", a)
	}
}

func TestGeneratePanelRetriesTransientErrors(t *testing.T) {
	provider := &fakeProvider{errs: []error{
		&ProviderError{StatusCode: http.StatusTooManyRequests},
		&ProviderError{StatusCode: http.StatusBadGateway},
	}}
	g, _, _ := newTestGenerator(t, provider, fakeProber{})

	a, err := g.GeneratePanel(context.Background(), Request{ProjectID: "p1", Panel: types.PanelMeta{PanelNumber: 1, Header: "hi"}})
	if err != nil {
		t.Fatalf("GeneratePanel: %v", err)
	}
	if !a.HasAudio() {
		t.Fatalf("expected audio after retries")
	}
	if len(provider.calls) != 3 {
		t.Fatalf("provider called %d times; want 3", len(provider.calls))
	}
}

func TestGeneratePanelDoesNotRetryPermanentErrors(t *testing.T) {
	provider := &fakeProvider{errs: []error{&ProviderError{StatusCode: http.StatusUnauthorized, Body: "bad key"}}}
	g, _, _ := newTestGenerator(t, provider, fakeProber{})

	_, err := g.GeneratePanel(context.Background(), Request{ProjectID: "p1", Panel: types.PanelMeta{PanelNumber: 1, Header: "hi"}})

	var provErr *ProviderError
	if !errors.As(err, &provErr) || provErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v; want wrapped 401 ProviderError", err)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("provider called %d times; want 1", len(provider.calls))
	}
}

func TestGeneratePanelGivesUpAfterMaxRetries(t *testing.T) {
	transient := &ProviderError{StatusCode: http.StatusServiceUnavailable}
	provider := &fakeProvider{errs: []error{transient, transient, transient, transient, transient}}
	g, _, _ := newTestGenerator(t, provider, fakeProber{})

	if _, err := g.GeneratePanel(context.Background(), Request{ProjectID: "p1", Panel: types.PanelMeta{PanelNumber: 1, Header: "hi"}}); err == nil {
		t.Fatalf("expected error")
	}
	if len(provider.calls) != 4 {
		t.Fatalf("provider called %d times; want 1 try + 3 retries", len(provider.calls))
	}
}

func TestGeneratePanelMultiSpeaker(t *testing.T) {
	provider := &fakeProvider{}
	prober := fakeProber{byName: map[string]int{
		"panel_2_seg_0.mp3": 1000,
		"panel_2_seg_1.mp3": 1500,
		"panel_2_seg_2.mp3": 700,
	}}
	g, objects, runner := newTestGenerator(t, provider, prober)

	a, err := g.GeneratePanel(context.Background(), Request{
		ProjectID: "p1",
		Panel: types.PanelMeta{PanelNumber: 2, Speakers: []types.SpeakerLine{
			{Speaker: "Narrator", Text: "Standup began."},
			{Speaker: "Max", Text: "Prod is down."},
			{Speaker: "Zed", Text: "Again?"},
		}},
	})
	if err != nil {
		t.Fatalf("GeneratePanel: %v", err)
	}

	if !a.MultiSpeaker || len(a.Segments) != 3 {
		t.Fatalf("audio = %+v", a)
	}
	if a.DurationMs != 1000+300+1500+300+700 {
		t.Fatalf("DurationMs = %d; want 3800", a.DurationMs)
	}
	wantVoices := []string{"narrator-voice", "max-voice", "narrator-voice"}
	for i, seg := range a.Segments {
		if seg.VoiceID != wantVoices[i] {
			t.Fatalf("segment %d voice = %s; want %s", i, seg.VoiceID, wantVoices[i])
		}
	}
	if a.Segments[2].PauseAfterMs != 0 {
		t.Fatalf("last segment should have no pause")
	}
	if len(runner.calls) != 1 {
		t.Fatalf("combine ran %d times", len(runner.calls))
	}
	for _, path := range []string{storage.PanelAudioPath("p1", 2), storage.SegmentAudioPath("p1", 2, 1)} {
		if ok, _ := objects.Exists(context.Background(), path); !ok {
			t.Fatalf("%s not uploaded", path)
		}
	}
}

func TestGenerateAllContinuesPastFailures(t *testing.T) {
	provider := &fakeProvider{failN: map[string]error{
		"broken": &ProviderError{StatusCode: http.StatusBadRequest, Body: "quota"},
	}}
	g, _, _ := newTestGenerator(t, provider, fakeProber{})

	panels := []types.PanelMeta{
		{PanelNumber: 1, Header: "broken"},
		{PanelNumber: 2, Header: "fine"},
		{PanelNumber: 3},
	}
	out, report, err := g.GenerateAll(context.Background(), "p1", "", panels)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if report != (Report{Generated: 1, Silent: 1, Failed: 1}) {
		t.Fatalf("report = %+v", report)
	}
	if len(out) != 3 || out[0].Error == "" || out[1].Error != "" {
		t.Fatalf("out = %+v", out)
	}
}

func TestGenerateAllStopsOnCancel(t *testing.T) {
	g, _, _ := newTestGenerator(t, &fakeProvider{}, fakeProber{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := g.GenerateAll(ctx, "p1", "", []types.PanelMeta{{PanelNumber: 1, Header: "x"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v; want context.Canceled", err)
	}
}

func TestFinalDurationMs(t *testing.T) {
	narrated := &types.PanelAudio{AudioPath: "a.mp3", DurationMs: 2345}
	failed := &types.PanelAudio{AudioPath: "a.mp3", DurationMs: 2345, Error: "quota"}

	cases := []struct {
		name     string
		audio    *types.PanelAudio
		estimate int
		want     int
	}{
		{"narrated uses exact audio", narrated, 2845, 2345},
		{"silent ten characters floors to 2000", nil, 1300, 2000},
		{"long silent estimate kept", nil, 3100, 3100},
		{"failed audio treated as silent", failed, 1300, 2000},
	}
	for _, c := range cases {
		if got := FinalDurationMs(c.audio, c.estimate); got != c.want {
			t.Fatalf("%s: FinalDurationMs = %d; want %d", c.name, got, c.want)
		}
	}
}

func TestResolveDurationOverride(t *testing.T) {
	short, long := 1000, 5000
	audio := &types.PanelAudio{AudioPath: "a.mp3", DurationMs: 2000}

	inst := types.PanelInstruction{DurationMs: 2500, Override: &types.InstructionOverride{DurationMs: &short}}
	if got := ResolveDuration(inst, audio); got != 2000 {
		t.Fatalf("override shorter than audio = %d; want 2000", got)
	}
	inst.Override.DurationMs = &long
	if got := ResolveDuration(inst, audio); got != 5000 {
		t.Fatalf("override longer than audio = %d; want 5000", got)
	}
	if got := ResolveDuration(types.PanelInstruction{DurationMs: 2500}, audio); got != 2000 {
		t.Fatalf("no override = %d; want exact audio 2000", got)
	}
}

func TestTimelineIsDriftFree(t *testing.T) {
	audioMs := []int{2310, 1875, 4020, 990, 3333}
	var insts []types.PanelInstruction
	want := 0
	for i, ms := range audioMs {
		a := &types.PanelAudio{AudioPath: "x.mp3", DurationMs: ms}
		estimate := ms + config.AudioBufferMs
		transition := 400
		if i == len(audioMs)-1 {
			transition = 0
		}
		insts = append(insts, types.PanelInstruction{
			DurationMs: FinalDurationMs(a, estimate),
			Transition: types.Transition{DurationMs: transition},
		})
		want += ms + transition
	}
	if got := TimelineMs(insts); got != want {
		t.Fatalf("TimelineMs = %d; want %d (no per-panel buffer)", got, want)
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	var got ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "secret" || r.Header.Get("Accept") != "audio/mpeg" {
			t.Errorf("headers = %v", r.Header)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("body: %v", err)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	c := NewElevenLabs("secret", srv.URL+"/v1/", "model-x", time.Second)
	data, err := c.Synthesize(context.Background(), SpeechRequest{
		Text:     "hello",
		VoiceID:  "voice-123",
		Settings: types.VoiceSettings{Stability: 0.4, SimilarityBoost: 0.8},
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Fatalf("data = %q", data)
	}
	if got.Text != "hello" || got.ModelID != "model-x" || got.VoiceSettings.Stability != 0.4 {
		t.Fatalf("request = %+v", got)
	}
}

func TestElevenLabsErrorClassification(t *testing.T) {
	cases := []struct {
		status        int
		wantTransient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", c.status)
		}))
		client := NewElevenLabs("k", srv.URL, "m", time.Second)
		_, err := client.Synthesize(context.Background(), SpeechRequest{Text: "x", VoiceID: "v"})
		srv.Close()

		if IsTransient(err) != c.wantTransient {
			t.Fatalf("status %d: IsTransient = %v; want %v", c.status, IsTransient(err), c.wantTransient)
		}
	}
}
