package layout

// rowBatch is how many rows are reserved at once when every existing row is
// occupied.
const rowBatch = 8

// Extent is a half-open pixel interval [Offset, Offset+Length) on the time axis.
type Extent struct {
	Offset int `json:"offset" yaml:"offset"`
	Length int `json:"length" yaml:"length"`
}

// End returns the first pixel after the extent.
func (e Extent) End() int { return e.Offset + e.Length }

// Overlaps reports whether two half-open extents share at least one pixel.
// Extents that merely touch do not overlap.
func Overlaps(a, b Extent) bool {
	return a.Offset < b.End() && b.Offset < a.End()
}

// Assignment maps each input extent, by index, to a row.
type Assignment struct {
	Rows     []int
	RowCount int
}

// AssignRows packs extents into rows with greedy first-fit in the order
// given. Each extent goes to the lowest row where it overlaps none of the
// extents already placed there; a new row is opened when none fits.
//
// The order is never changed, so the same set of extents supplied in a
// different order may use a different number of rows. The result is always
// valid but not guaranteed minimal.
func AssignRows(extents []Extent) Assignment {
	a := Assignment{Rows: make([]int, len(extents))}
	var rows [][]Extent

	for i, ext := range extents {
		row := -1
		for r, placed := range rows {
			if fits(placed, ext) {
				row = r
				break
			}
		}
		if row == -1 {
			if len(rows) == cap(rows) {
				grown := make([][]Extent, len(rows), len(rows)+rowBatch)
				copy(grown, rows)
				rows = grown
			}
			rows = append(rows, nil)
			row = len(rows) - 1
		}
		rows[row] = append(rows[row], ext)
		a.Rows[i] = row
		if row+1 > a.RowCount {
			a.RowCount = row + 1
		}
	}
	return a
}

func fits(placed []Extent, ext Extent) bool {
	for _, p := range placed {
		if Overlaps(p, ext) {
			return false
		}
	}
	return true
}
