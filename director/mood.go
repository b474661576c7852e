package director

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"comicreel/types"
)

var (
	actPattern      = regexp.MustCompile(`(?i)\bact\s*[-_:#]?\s*([0-9]+|[ivx]+)\b`)
	keyRefPattern   = regexp.MustCompile(`(?i)(\d+)\s*(?:-|–|to|through|thru)\s*(\d+)|(\d+)`)
	nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// maxKeyRange guards against keys like "panels 1-9999" expanding into huge sets
const maxKeyRange = 200

// InferMood classifies a panel. First match wins: explicit lexicon, panel type,
// color coding, keyword sets, then NEUTRAL.
func (d *Director) InferMood(panel types.PanelMeta, colorCoding map[string]string) types.Mood {
	if m, ok := d.lexiconMood(panel.Mood); ok {
		return m
	}
	if IsTitle(panel.PanelType) {
		return types.MoodDramatic
	}
	if IsOutro(panel.PanelType) {
		return types.MoodCelebration
	}
	if m, ok := d.colorMood(panel.PanelNumber, colorCoding); ok {
		return m
	}
	text := panel.Header + " " + panel.Dialogue
	for _, km := range d.keywordMoods {
		if km.pattern.MatchString(text) {
			return km.mood
		}
	}
	return types.MoodNeutral
}

func (d *Director) lexiconMood(raw string) (types.Mood, bool) {
	key := strings.Trim(nonAlnumPattern.ReplaceAllString(strings.ToLower(raw), "_"), "_")
	if key == "" {
		return "", false
	}
	m, ok := d.presets.MoodLexicon[key]
	return m, ok
}

// colorMood finds the most specific color-coding key naming this panel and maps its color.
// Keys are read as whole numbers and inclusive ranges, so panel 1 never matches "panel_11".
func (d *Director) colorMood(panel int, colorCoding map[string]string) (types.Mood, bool) {
	type candidate struct {
		key   string
		size  int
		color string
	}
	var matches []candidate
	for key, color := range colorCoding {
		refs := KeyPanels(key)
		if refs[panel] {
			matches = append(matches, candidate{key: key, size: len(refs), color: color})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].size != matches[j].size {
			return matches[i].size < matches[j].size
		}
		return matches[i].key < matches[j].key
	})

	for _, c := range matches {
		color := strings.ToLower(c.color)
		for _, rule := range d.presets.ColorRules {
			for _, word := range rule.Contains {
				if word != "" && strings.Contains(color, strings.ToLower(word)) {
					return rule.Mood, true
				}
			}
		}
	}
	return "", false
}

// KeyPanels returns the panel numbers a color-coding key refers to
func KeyPanels(key string) map[int]bool {
	out := make(map[int]bool)
	for _, m := range keyRefPattern.FindAllStringSubmatch(key, -1) {
		if m[3] != "" {
			if n, err := strconv.Atoi(m[3]); err == nil {
				out[n] = true
			}
			continue
		}
		from, err1 := strconv.Atoi(m[1])
		to, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		if from > to {
			from, to = to, from
		}
		if to-from > maxKeyRange {
			out[from] = true
			out[to] = true
			continue
		}
		for n := from; n <= to; n++ {
			out[n] = true
		}
	}
	return out
}

func typeTokens(panelType string) []string {
	return strings.Fields(nonAlnumPattern.ReplaceAllString(strings.ToLower(panelType), " "))
}

// IsTitle reports whether a panel-type label marks a title or intro panel
func IsTitle(panelType string) bool {
	for _, t := range typeTokens(panelType) {
		if t == "title" || t == "intro" {
			return true
		}
	}
	return false
}

// IsOutro reports whether a panel-type label marks an outro or call-to-action panel
func IsOutro(panelType string) bool {
	tokens := typeTokens(panelType)
	for _, t := range tokens {
		if t == "outro" || t == "cta" {
			return true
		}
	}
	return strings.Contains(strings.Join(tokens, " "), "call to action")
}

// ActID extracts the act identifier from labels like "ACT 2 - Conflict"; empty if none
func ActID(panelType string) string {
	m := actPattern.FindStringSubmatch(panelType)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}
