package layout

import (
	"errors"
	"fmt"

	"comicreel/types"
)

// ErrPanelNotFound is returned for panels with no cells. Callers skip the panel and continue.
var ErrPanelNotFound = errors.New("panel not found in layout")

// CalculatePanelBounds converts a panel's cells into normalized and pixel bounds.
// Cell width comes from the column count of the panel's first row, not the grid maximum.
func CalculatePanelBounds(panel int, l *types.ComicLayout) (types.PanelBounds, error) {
	cells := l.PanelCells[panel]
	if len(cells) == 0 {
		return types.PanelBounds{}, fmt.Errorf("panel %d: %w", panel, ErrPanelNotFound)
	}
	if l.Rows <= 0 {
		return types.PanelBounds{}, fmt.Errorf("panel %d: layout has no rows", panel)
	}

	rowCols := l.ColumnsInRow(cells[0].Row)
	if rowCols <= 0 {
		return types.PanelBounds{}, fmt.Errorf("panel %d: row %d has no columns", panel, cells[0].Row)
	}

	minRow, maxRow := cells[0].Row, cells[0].Row
	minCol, maxCol := cells[0].Col, cells[0].Col
	for _, c := range cells[1:] {
		minRow = min(minRow, c.Row)
		maxRow = max(maxRow, c.Row)
		minCol = min(minCol, c.Col)
		maxCol = max(maxCol, c.Col)
	}

	cellW := 1.0 / float64(rowCols)
	cellH := 1.0 / float64(l.Rows)
	x := float64(minCol) * cellW
	y := float64(minRow) * cellH
	w := float64(maxCol-minCol+1) * cellW
	h := float64(maxRow-minRow+1) * cellH

	cw := float64(l.CanvasWidth)
	ch := float64(l.CanvasHeight)
	return types.PanelBounds{
		CenterX: x + w/2,
		CenterY: y + h/2,
		Width:   w,
		Height:  h,
		Pixels: types.Rect{
			X:      x * cw,
			Y:      y * ch,
			Width:  w * cw,
			Height: h * ch,
		},
	}, nil
}

// AllBounds computes bounds for every placed panel, skipping and reporting failures
func AllBounds(l *types.ComicLayout) (map[int]types.PanelBounds, []error) {
	out := make(map[int]types.PanelBounds, len(l.PanelCells))
	var errs []error
	for n := range l.PanelCells {
		b, err := CalculatePanelBounds(n, l)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[n] = b
	}
	return out, errs
}
