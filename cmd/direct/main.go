// Command direct prints the camera plan for a comic without generating audio
// or rendering, for tuning presets.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"comicreel/audio"
	"comicreel/config"
	"comicreel/director"
	"comicreel/layout"
	"comicreel/render"
	"comicreel/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginTop(1).
			MarginBottom(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	highlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

var moodColors = map[types.Mood]string{
	types.MoodNeutral:     "#A0A0A0",
	types.MoodPositive:    "#04B575",
	types.MoodWarning:     "#FFB000",
	types.MoodDanger:      "#FF4040",
	types.MoodChaos:       "#FF00AA",
	types.MoodDramatic:    "#5A7DFF",
	types.MoodCelebration: "#FFD700",
}

func main() {
	_ = godotenv.Load()

	metaPath := flag.String("metadata", "", "comic metadata JSON file (required)")
	imagePath := flag.String("image", "", "comic image; its size sets the canvas")
	width := flag.Int("width", 0, "canvas width when no image is given")
	height := flag.Int("height", 0, "canvas height when no image is given")
	presetsPath := flag.String("presets", "", "YAML presets file")
	asJSON := flag.Bool("json", false, "print instructions as JSON")
	flag.Parse()

	if *metaPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	raw, err := os.ReadFile(*metaPath)
	if err != nil {
		log.Fatalf("read metadata: %v", err)
	}
	var meta types.ComicMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		log.Fatalf("parse metadata: %v", err)
	}

	w, h := *width, *height
	if *imagePath != "" {
		w, h, err = render.ImageSize(*imagePath)
		if err != nil {
			log.Fatalf("read image size: %v", err)
		}
	}
	if w <= 0 || h <= 0 {
		log.Fatal("canvas size unknown: pass -image or -width and -height")
	}

	presets := config.DefaultPresets()
	if *presetsPath != "" {
		if presets, err = config.LoadPresets(*presetsPath); err != nil {
			log.Fatalf("load presets: %v", err)
		}
	}

	l := layout.Parse(&meta, w, h)
	insts, errs := director.New(presets).Direct(&meta, l, nil)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(insts); err != nil {
			log.Fatal(err)
		}
		return
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%s  %dx%d grid, %d panels", meta.Title, l.Columns, l.Rows, l.TotalPanels)))
	for _, inst := range insts {
		fmt.Println(boxStyle.Render(describe(inst)))
	}
	for _, n := range l.Unplaced {
		fmt.Println(errorStyle.Render(fmt.Sprintf("panel %d has no cell in the layout", n)))
	}
	for _, err := range errs {
		fmt.Println(errorStyle.Render(err.Error()))
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf("estimated runtime %.1fs (without narration)", float64(audio.TimelineMs(insts))/1000)))
}

func describe(inst types.PanelInstruction) string {
	mood := lipgloss.NewStyle().Foreground(lipgloss.Color(moodColors[inst.Mood])).Render(string(inst.Mood))
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %.1fs\n", highlightStyle.Render(fmt.Sprintf("Panel %d", inst.PanelNumber)), mood, float64(inst.DurationMs)/1000)
	c := inst.Camera
	fmt.Fprintf(&b, "camera  (%.3f, %.3f) zoom %.2f -> %.2f %s", c.CenterX, c.CenterY, c.StartZoom, c.EndZoom, c.Easing)
	if len(c.FocusPoints) > 0 {
		fmt.Fprintf(&b, ", %d focus points", len(c.FocusPoints))
	}
	b.WriteString("\n")
	var effects []string
	for _, e := range inst.Effects.All() {
		effects = append(effects, string(e))
	}
	if len(effects) == 0 {
		effects = []string{"none"}
	}
	fmt.Fprintf(&b, "effects %s\n", strings.Join(effects, ", "))
	fmt.Fprintf(&b, "next    %s %dms", inst.Transition.Type, inst.Transition.DurationMs)
	return b.String()
}
