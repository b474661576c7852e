package layout

import (
	"errors"
	"math"
	"testing"

	"comicreel/types"
)

const tolerance = 1e-6

func approx(a, b float64) bool { return math.Abs(a-b) < tolerance }

func fourFourFourThree(t *testing.T) *types.ComicLayout {
	t.Helper()
	meta := &types.ComicMetadata{
		Layout: types.LayoutHints{Format: "4-4-4-3 grid"},
		Panels: panelsUpTo(15),
	}
	return Parse(meta, 1200, 1600)
}

func TestBoundsUseRowColumnCount(t *testing.T) {
	l := fourFourFourThree(t)

	p13, err := CalculatePanelBounds(13, l)
	if err != nil {
		t.Fatalf("CalculatePanelBounds(13): %v", err)
	}
	p1, err := CalculatePanelBounds(1, l)
	if err != nil {
		t.Fatalf("CalculatePanelBounds(1): %v", err)
	}

	if !approx(p13.Pixels.Width, 400) {
		t.Fatalf("panel 13 width = %.2f; want 400 (3 columns)", p13.Pixels.Width)
	}
	if !approx(p1.Pixels.Width, 300) {
		t.Fatalf("panel 1 width = %.2f; want 300 (4 columns)", p1.Pixels.Width)
	}
	if p13.Width <= p1.Width {
		t.Fatalf("panel 13 (%.3f) should be wider than panel 1 (%.3f)", p13.Width, p1.Width)
	}
	if !approx(p13.CenterX, 1.0/6) || !approx(p13.CenterY, 0.875) {
		t.Fatalf("panel 13 center = (%.4f, %.4f)", p13.CenterX, p13.CenterY)
	}
}

func TestBoundsRowAreaCoversRow(t *testing.T) {
	l := fourFourFourThree(t)
	cellH := float64(l.CanvasHeight) / float64(l.Rows)

	rowArea := map[int]float64{}
	for n := range l.PanelCells {
		b, err := CalculatePanelBounds(n, l)
		if err != nil {
			t.Fatalf("CalculatePanelBounds(%d): %v", n, err)
		}
		rowArea[l.PanelCells[n][0].Row] += b.Pixels.Width * b.Pixels.Height
	}

	want := float64(l.CanvasWidth) * cellH
	for row, area := range rowArea {
		if math.Abs(area-want) > 1 {
			t.Fatalf("row %d area = %.1f; want %.1f", row, area, want)
		}
	}
}

func TestBoundsSpanningPanel(t *testing.T) {
	meta := &types.ComicMetadata{
		Layout: types.LayoutHints{Grid: []types.GridRow{
			{Columns: 2, Panels: []int{1, 2}},
			{Columns: 2, Panels: []int{1, 3}},
		}},
		Panels: panelsUpTo(3),
	}
	l := Parse(meta, 800, 800)

	b, err := CalculatePanelBounds(1, l)
	if err != nil {
		t.Fatalf("CalculatePanelBounds: %v", err)
	}
	if !approx(b.Pixels.Height, 800) || !approx(b.Pixels.Width, 400) {
		t.Fatalf("spanning bounds = %+v", b.Pixels)
	}
	if !approx(b.CenterY, 0.5) {
		t.Fatalf("CenterY = %.3f; want 0.5", b.CenterY)
	}
}

func TestBoundsPanelNotFound(t *testing.T) {
	l := fourFourFourThree(t)

	_, err := CalculatePanelBounds(99, l)
	if !errors.Is(err, ErrPanelNotFound) {
		t.Fatalf("err = %v; want ErrPanelNotFound", err)
	}

	all, errs := AllBounds(l)
	if len(errs) != 0 || len(all) != 15 {
		t.Fatalf("AllBounds = %d bounds, %v errors", len(all), errs)
	}
}
