package escape

// Grid holds one escape value per pixel in row-major order.
type Grid struct {
	Rows          int
	Cols          int
	MaxIterations uint32

	cells []uint32
}

// NewGrid allocates a zeroed grid.
func NewGrid(rows, cols int, maxIterations uint32) *Grid {
	return &Grid{
		Rows:          rows,
		Cols:          cols,
		MaxIterations: maxIterations,
		cells:         make([]uint32, rows*cols),
	}
}

// At returns the value stored for a pixel.
func (g *Grid) At(row, col int) uint32 {
	return g.cells[row*g.Cols+col]
}

// Row returns the backing slice of one row. Writes through it modify the grid.
func (g *Grid) Row(row int) []uint32 {
	start := row * g.Cols
	return g.cells[start : start+g.Cols : start+g.Cols]
}

// Cells returns the row-major backing slice.
func (g *Grid) Cells() []uint32 { return g.cells }

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := *g
	c.cells = make([]uint32, len(g.cells))
	copy(c.cells, g.cells)
	return &c
}

// Equal reports whether two grids have identical dimensions and values.
func (g *Grid) Equal(other *Grid) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.Rows != other.Rows || g.Cols != other.Cols || g.MaxIterations != other.MaxIterations {
		return false
	}
	for i, v := range g.cells {
		if other.cells[i] != v {
			return false
		}
	}
	return true
}
