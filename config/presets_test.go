package config

import (
	"os"
	"path/filepath"
	"testing"

	"comicreel/types"
)

func writePresets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write presets: %v", err)
	}
	return path
}

func TestLoadPresetsDefaults(t *testing.T) {
	p, err := LoadPresets("")
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if p.MoodLexicon["chaotic_positive"] != types.MoodChaos {
		t.Fatalf("chaotic_positive = %s; want CHAOS", p.MoodLexicon["chaotic_positive"])
	}
}

func TestLoadPresetsOverlaysFile(t *testing.T) {
	path := writePresets(t, `
mood_lexicon:
  bittersweet: WARNING
camera:
  start_zoom: 1.05
  end_zoom: 1.2
  easing: linear
  title_start_zoom: 1.5
  title_end_zoom: 1.0
voices:
  narrator: narrator-voice
  profiles:
    max:
      voice_id: max-voice
`)

	p, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if p.MoodLexicon["bittersweet"] != types.MoodWarning {
		t.Fatalf("new lexicon key missing")
	}
	if p.MoodLexicon["hopeful"] != types.MoodPositive {
		t.Fatalf("default lexicon key lost after overlay")
	}
	if p.Camera.StartZoom != 1.05 || p.Camera.Easing != types.EasingLinear {
		t.Fatalf("camera = %+v", p.Camera)
	}
	if p.Voices.Profiles["max"].VoiceID != "max-voice" {
		t.Fatalf("profiles = %+v", p.Voices.Profiles)
	}
	if p.Transitions[types.TransitionPan].DurationMs != 400 {
		t.Fatalf("default transitions lost")
	}
}

func TestLoadPresetsRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":      "camera: [",
		"zero zoom":     "camera:\n  start_zoom: 0\n",
		"no narrator":   "voices:\n  narrator: \"\"\n",
		"negative time": "transitions:\n  PAN:\n    duration_ms: -5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadPresets(writePresets(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDefaultPresetsAreIndependent(t *testing.T) {
	a := DefaultPresets()
	b := DefaultPresets()
	a.MoodLexicon["hopeful"] = types.MoodDanger
	if b.MoodLexicon["hopeful"] != types.MoodPositive {
		t.Fatalf("DefaultPresets shares maps between calls")
	}
}
