package layout

import (
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"comicreel/types"
)

// DefaultColumns and DefaultRows are used when no layout hint can be parsed
const (
	DefaultColumns = 4
	DefaultRows    = 4
	maxSpan        = 12
)

var (
	colsByRowsPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:columns?|cols?)\s*(?:x|×|by)\s*(\d+)\s*rows?`)
	rowsByColsPattern = regexp.MustCompile(`(?i)(\d+)\s*rows?\s*(?:x|×|by)\s*(\d+)\s*(?:columns?|cols?)`)
	rowCountsPattern  = regexp.MustCompile(`\d+(?:\s*-\s*\d+)+`)
	nxmPattern        = regexp.MustCompile(`(?i)(\d+)\s*[x×]\s*(\d+)`)

	labelNumberPattern = regexp.MustCompile(`\d+`)
	spanPattern        = regexp.MustCompile(`(?i)span(?:s|ning)?\D{0,12}?(\d+)|(\d+)\s*-?\s*(?:columns?|cols?)\b`)
)

// Format is the grid shape recovered from a coarse format string
type Format struct {
	Columns    int
	Rows       int
	RowColumns []int
}

// ParseFormat recovers (columns, rows) and optional per-row column counts from strings
// like "4 columns x 5 rows", "4-4-4-3 grid" or "4x4". ok is false when nothing matched.
func ParseFormat(format string) (Format, bool) {
	s := strings.TrimSpace(format)
	if s == "" {
		return Format{}, false
	}

	if m := colsByRowsPattern.FindStringSubmatch(s); m != nil {
		return positiveFormat(atoi(m[1]), atoi(m[2]))
	}
	if m := rowsByColsPattern.FindStringSubmatch(s); m != nil {
		return positiveFormat(atoi(m[2]), atoi(m[1]))
	}
	// NxM wins over dashes: in "4x4 - 16 panels" the dashed run is a panel count
	if m := nxmPattern.FindStringSubmatch(s); m != nil {
		return positiveFormat(atoi(m[1]), atoi(m[2]))
	}
	if m := rowCountsPattern.FindString(s); m != "" {
		var counts []int
		maxCols := 0
		for _, part := range strings.Split(m, "-") {
			n := atoi(strings.TrimSpace(part))
			if n <= 0 {
				return Format{}, false
			}
			counts = append(counts, n)
			if n > maxCols {
				maxCols = n
			}
		}
		return Format{Columns: maxCols, Rows: len(counts), RowColumns: counts}, true
	}
	return Format{}, false
}

func positiveFormat(cols, rows int) (Format, bool) {
	if cols <= 0 || rows <= 0 {
		return Format{}, false
	}
	return Format{Columns: cols, Rows: rows}, true
}

// Parse builds the panel-to-cell mapping for a comic.
// An explicit grid is authoritative; otherwise the textual arrangement is used, and
// failing that panels are laid out in order over the shape given by the format string.
// Canvas dimensions may be zero here and are refined once the image is known.
func Parse(meta *types.ComicMetadata, canvasWidth, canvasHeight int) *types.ComicLayout {
	l := &types.ComicLayout{
		PanelCells:   make(map[int][]types.Cell),
		RowColumns:   make(map[int]int),
		CanvasWidth:  canvasWidth,
		CanvasHeight: canvasHeight,
	}

	switch {
	case len(meta.Layout.Grid) > 0:
		parseGrid(l, meta.Layout.Grid)
	case len(meta.Layout.Arrangement) > 0:
		parseArrangement(l, meta.Layout.Arrangement)
	default:
		parseSequential(l, meta)
	}

	for n, cells := range l.PanelCells {
		sort.Slice(cells, func(i, j int) bool {
			if cells[i].Row != cells[j].Row {
				return cells[i].Row < cells[j].Row
			}
			return cells[i].Col < cells[j].Col
		})
		l.PanelCells[n] = cells
	}

	declared := meta.PanelNumbers()
	for _, n := range declared {
		if !l.HasPanel(n) {
			log.Printf("layout: panel %d has no resolvable cell, skipping", n)
			l.Unplaced = append(l.Unplaced, n)
		}
	}
	if len(declared) > 0 {
		l.TotalPanels = len(declared)
	} else {
		l.TotalPanels = len(l.PanelCells)
	}
	return l
}

func parseGrid(l *types.ComicLayout, grid []types.GridRow) {
	l.Rows = len(grid)
	for r, row := range grid {
		cols := row.Columns
		if cols <= 0 {
			cols = len(row.Panels)
		}
		l.RowColumns[r] = cols
		if cols > l.Columns {
			l.Columns = cols
		}
		for c, n := range row.Panels {
			if n <= 0 {
				continue
			}
			if c >= cols {
				log.Printf("layout: row %d lists panel %d beyond its %d columns, ignoring cell", r+1, n, cols)
				continue
			}
			l.PanelCells[n] = append(l.PanelCells[n], types.Cell{Row: r, Col: c})
		}
	}
}

func parseArrangement(l *types.ComicLayout, rows [][]string) {
	l.Rows = len(rows)
	for r, labels := range rows {
		col := 0
		for _, label := range labels {
			n, span := parseLabel(label)
			for k := 0; k < span; k++ {
				if n > 0 {
					l.PanelCells[n] = append(l.PanelCells[n], types.Cell{Row: r, Col: col})
				}
				col++
			}
		}
		l.RowColumns[r] = col
		if col > l.Columns {
			l.Columns = col
		}
	}
}

func parseSequential(l *types.ComicLayout, meta *types.ComicMetadata) {
	f, ok := ParseFormat(meta.Layout.Format)
	if !ok {
		if meta.Layout.Format != "" {
			log.Printf("layout: unparseable format %q, defaulting to %dx%d", meta.Layout.Format, DefaultColumns, DefaultRows)
		} else {
			log.Printf("layout: no layout hints, defaulting to %dx%d", DefaultColumns, DefaultRows)
		}
		f = Format{Columns: DefaultColumns, Rows: DefaultRows}
	}

	l.Columns = f.Columns
	l.Rows = f.Rows
	for r := 0; r < f.Rows; r++ {
		l.RowColumns[r] = f.Columns
		if r < len(f.RowColumns) {
			l.RowColumns[r] = f.RowColumns[r]
		}
	}

	numbers := meta.PanelNumbers()
	if len(numbers) == 0 {
		capacity := 0
		for r := 0; r < f.Rows; r++ {
			capacity += l.RowColumns[r]
		}
		for n := 1; n <= capacity; n++ {
			numbers = append(numbers, n)
		}
	}

	i := 0
	for r := 0; r < f.Rows && i < len(numbers); r++ {
		for c := 0; c < l.RowColumns[r] && i < len(numbers); c++ {
			l.PanelCells[numbers[i]] = []types.Cell{{Row: r, Col: c}}
			i++
		}
	}
}

// parseLabel returns the panel number of a textual cell label and how many columns it spans.
// Labels without a number are placeholders (number 0).
func parseLabel(label string) (number, span int) {
	span = 1
	loc := labelNumberPattern.FindStringIndex(label)
	if loc == nil {
		return 0, span
	}
	number = atoi(label[loc[0]:loc[1]])

	rest := label[loc[1]:]
	if m := spanPattern.FindStringSubmatch(rest); m != nil {
		v := m[1]
		if v == "" {
			v = m[2]
		}
		if s := atoi(v); s > 0 {
			span = s
		}
	}
	if span > maxSpan {
		span = maxSpan
	}
	return number, span
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
