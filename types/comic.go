package types

import "sort"

// ComicMetadata is the semi-structured description uploaded alongside a grid image
type ComicMetadata struct {
	Title       string            `json:"title,omitempty"`
	Layout      LayoutHints       `json:"layout"`
	ColorCoding map[string]string `json:"color_coding,omitempty"`
	Panels      []PanelMeta       `json:"panels"`
}

// LayoutHints holds every form the grid arrangement may be given in.
// Grid is authoritative when present, then Arrangement, then Format alone.
type LayoutHints struct {
	Format      string     `json:"format,omitempty"`
	Grid        []GridRow  `json:"grid,omitempty"`
	Arrangement [][]string `json:"arrangement,omitempty"`
}

// GridRow is one explicit row: its column count and panel numbers per cell (0 = empty cell)
type GridRow struct {
	Columns int   `json:"columns"`
	Panels  []int `json:"panels"`
}

// PanelMeta is the per-panel text and authoring hints
type PanelMeta struct {
	PanelNumber int           `json:"panel_number"`
	PanelType   string        `json:"panel_type,omitempty"`
	Header      string        `json:"header,omitempty"`
	Dialogue    string        `json:"dialogue,omitempty"`
	Narration   string        `json:"narration,omitempty"`
	Mood        string        `json:"mood,omitempty"`
	Speakers    []SpeakerLine `json:"speakers,omitempty"`
}

// SpeakerLine is one ordered (speaker, text) entry of a multi-speaker panel
type SpeakerLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Panel returns the metadata for a panel number
func (m *ComicMetadata) Panel(number int) (PanelMeta, bool) {
	for _, p := range m.Panels {
		if p.PanelNumber == number {
			return p, true
		}
	}
	return PanelMeta{}, false
}

// PanelNumbers returns all declared panel numbers in ascending order
func (m *ComicMetadata) PanelNumbers() []int {
	numbers := make([]int, 0, len(m.Panels))
	seen := make(map[int]bool, len(m.Panels))
	for _, p := range m.Panels {
		if p.PanelNumber <= 0 || seen[p.PanelNumber] {
			continue
		}
		seen[p.PanelNumber] = true
		numbers = append(numbers, p.PanelNumber)
	}
	sort.Ints(numbers)
	return numbers
}
