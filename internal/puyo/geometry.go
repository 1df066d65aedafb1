package puyo

// Geometry describes board dimensions. GhostHeight rows sit above the visible
// Height rows and are where pieces spawn.
type Geometry struct {
	Width       int
	Height      int
	GhostHeight int
}

var DefaultGeometry = Geometry{Width: 6, Height: 12, GhostHeight: 1}

// WireRow converts a stored row index to the peer's bottom-up row number.
func (g Geometry) WireRow(row int) int {
	return g.Height + g.GhostHeight - row
}

// StoredRow is the inverse of WireRow.
func (g Geometry) StoredRow(wire int) int {
	return g.Height + g.GhostHeight - wire
}

// PlacementSize is the cell count of a placement grid: three rows of headroom.
func (g Geometry) PlacementSize() int {
	return g.Width * 3
}
