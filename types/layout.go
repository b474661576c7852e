package types

// Cell is a (row, column) position on the comic grid, zero-based
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ComicLayout is the parsed panel-to-cell mapping for one comic
type ComicLayout struct {
	Columns      int            `json:"columns"`
	Rows         int            `json:"rows"`
	TotalPanels  int            `json:"total_panels"`
	PanelCells   map[int][]Cell `json:"panel_cells"`
	RowColumns   map[int]int    `json:"row_columns"`
	CanvasWidth  int            `json:"canvas_width"`
	CanvasHeight int            `json:"canvas_height"`
	// Unplaced lists panels that could not be resolved to any cell
	Unplaced []int `json:"unplaced,omitempty"`
}

// ColumnsInRow returns the column count of a row, falling back to the grid width
func (l *ComicLayout) ColumnsInRow(row int) int {
	if n, ok := l.RowColumns[row]; ok && n > 0 {
		return n
	}
	return l.Columns
}

// HasPanel reports whether the panel resolved to at least one cell
func (l *ComicLayout) HasPanel(number int) bool {
	return len(l.PanelCells[number]) > 0
}

// Rect is a pixel rectangle on the source canvas
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PanelBounds is the derived position of a panel on the canvas
type PanelBounds struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Pixels  Rect    `json:"pixels"`
}
