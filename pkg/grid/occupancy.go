package grid

// Occupancy tracks which cells of one desktop page are taken.
type Occupancy struct {
	size  Size
	cells [][]bool // [x][y]
}

// NewOccupancy returns an empty page of the given size.
func NewOccupancy(size Size) *Occupancy {
	cells := make([][]bool, size.Columns)
	for x := range cells {
		cells[x] = make([]bool, size.Rows)
	}
	return &Occupancy{size: size, cells: cells}
}

// Size returns the page dimensions.
func (o *Occupancy) Size() Size {
	return o.size
}

// InBounds reports whether the rectangle lies entirely inside the page.
func (o *Occupancy) InBounds(x, y, spanX, spanY int) bool {
	return x >= 0 && y >= 0 && spanX >= 1 && spanY >= 1 &&
		x+spanX <= o.size.Columns && y+spanY <= o.size.Rows
}

// IsRegionVacant reports whether the rectangle is in bounds and no cell of it is taken.
func (o *Occupancy) IsRegionVacant(x, y, spanX, spanY int) bool {
	if !o.InBounds(x, y, spanX, spanY) {
		return false
	}
	for i := x; i < x+spanX; i++ {
		for j := y; j < y+spanY; j++ {
			if o.cells[i][j] {
				return false
			}
		}
	}
	return true
}

// MarkCells sets the cells of the rectangle to value. Parts outside the page are ignored.
func (o *Occupancy) MarkCells(x, y, spanX, spanY int, value bool) {
	for i := max(x, 0); i < min(x+spanX, o.size.Columns); i++ {
		for j := max(y, 0); j < min(y+spanY, o.size.Rows); j++ {
			o.cells[i][j] = value
		}
	}
}

// MarkItem marks the cells covered by it as taken.
func (o *Occupancy) MarkItem(it Item) {
	o.MarkCells(it.CellX, it.CellY, it.SpanX, it.SpanY, true)
}

// ReserveRows marks the top n rows as taken.
func (o *Occupancy) ReserveRows(n int) {
	o.MarkCells(0, 0, o.size.Columns, n, true)
}

// FindVacant scans row-major from (startX, startY) for the first position where
// a spanX by spanY rectangle fits. The scan wraps to column 0 on the next row.
func (o *Occupancy) FindVacant(startX, startY, spanX, spanY int) (x, y int, ok bool) {
	for y = max(startY, 0); y+spanY <= o.size.Rows; y++ {
		for x = startX; x+spanX <= o.size.Columns; x++ {
			if o.IsRegionVacant(x, y, spanX, spanY) {
				return x, y, true
			}
		}
		startX = 0
	}
	return 0, 0, false
}

// Free returns the number of vacant cells.
func (o *Occupancy) Free() int {
	n := 0
	for _, col := range o.cells {
		for _, taken := range col {
			if !taken {
				n++
			}
		}
	}
	return n
}
