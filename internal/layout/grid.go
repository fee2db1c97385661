// internal/layout/grid.go - Row-major grid geometry for composites
package layout

import "math"

// Fixed cell styling.
const (
	DisplaySize  = 48
	ContentSize  = 36
	Gap          = 8
	CornerRadius = 10
	Background   = "#242938"
)

// Metrics are the dimensions used to place cells.
type Metrics struct {
	DisplaySize int
	ContentSize int
	Gap         int
}

// DefaultMetrics returns the standard 48/36/8 geometry.
func DefaultMetrics() Metrics {
	return Metrics{DisplaySize: DisplaySize, ContentSize: ContentSize, Gap: Gap}
}

// Padding is the margin between the cell edge and its content box.
func (m Metrics) Padding() float64 {
	return float64(m.DisplaySize-m.ContentSize) / 2
}

// Cell is the placement of one icon.
type Cell struct {
	Index  int
	Column int
	Row    int
	X      int
	Y      int
}

// Grid is the geometry of a composite of Count cells.
type Grid struct {
	Metrics
	Count   int
	PerRow  int
	Columns int
	Rows    int
	Width   int
	Height  int
}

// NewGrid computes the geometry for count cells with at most perRow cells
// per row. A non-positive perRow puts every cell on one row.
func NewGrid(m Metrics, count, perRow int) Grid {
	if count < 0 {
		count = 0
	}
	if perRow <= 0 {
		perRow = count
	}

	g := Grid{Metrics: m, Count: count, PerRow: perRow}
	if count == 0 {
		return g
	}

	g.Columns = min(perRow, count)
	g.Rows = int(math.Ceil(float64(count) / float64(perRow)))
	g.Width = extent(g.Columns, m)
	g.Height = extent(g.Rows, m)
	return g
}

// Row returns the geometry of a single row holding every cell.
func Row(m Metrics, count int) Grid {
	return NewGrid(m, count, 0)
}

func extent(n int, m Metrics) int {
	if n <= 0 {
		return 0
	}
	return n*m.DisplaySize + (n-1)*m.Gap
}

// Cell returns the placement of cell i in row-major order.
func (g Grid) Cell(i int) Cell {
	col, row := i%g.PerRow, i/g.PerRow
	step := g.DisplaySize + g.Gap
	return Cell{Index: i, Column: col, Row: row, X: col * step, Y: row * step}
}

// Cells returns every placement in order.
func (g Grid) Cells() []Cell {
	cells := make([]Cell, g.Count)
	for i := range cells {
		cells[i] = g.Cell(i)
	}
	return cells
}

// Fit is where content with the given aspect lands inside a content box of
// side size when scaled to fit ("meet") and centered.
type Fit struct {
	X, Y          float64
	Width, Height float64
}

// MeetFit scales a w×h box uniformly into a size×size square and centers it.
func MeetFit(w, h, size float64) Fit {
	if w <= 0 || h <= 0 {
		return Fit{}
	}
	fw, fh := size, size
	if w >= h {
		fh = size * h / w
	} else {
		fw = size * w / h
	}
	return Fit{X: (size - fw) / 2, Y: (size - fh) / 2, Width: fw, Height: fh}
}
