package render

import (
	"sort"

	"worldofbits.io/internal/sim/lattice"
)

// DrawnCell is one cell as seen by a Recorder.
type DrawnCell struct {
	Handle  Handle
	Cell    lattice.Cell
	Bounds  lattice.Bounds
	Tooltip *string
	Popup   *Popup
	onOpen  func() Popup
}

// Recorder is an in-memory Facade. It backs the terminal client and tests.
type Recorder struct {
	next  Handle
	cells map[Handle]*DrawnCell
	byPos map[lattice.Cell]Handle

	Player        lattice.Point
	PlayerTooltip string
	Inventory     string
	Controls      Controls
	Center        lattice.Point
	RangeCenter   lattice.Point
	RangeRadiusPx int
	Clears        int
	Popups        int
}

func NewRecorder() *Recorder {
	return &Recorder{cells: map[Handle]*DrawnCell{}, byPos: map[lattice.Cell]Handle{}}
}

func (r *Recorder) DrawCell(cell lattice.Cell, b lattice.Bounds) Handle {
	r.next++
	r.cells[r.next] = &DrawnCell{Handle: r.next, Cell: cell, Bounds: b}
	r.byPos[cell] = r.next
	return r.next
}

func (r *Recorder) SetTooltip(h Handle, text *string) {
	if c, ok := r.cells[h]; ok {
		if text == nil {
			c.Tooltip = nil
			return
		}
		s := *text
		c.Tooltip = &s
	}
}

func (r *Recorder) BindInteraction(h Handle, onOpen func() Popup) {
	if c, ok := r.cells[h]; ok {
		c.onOpen = onOpen
	}
}

func (r *Recorder) ShowPopup(h Handle, p Popup) {
	if c, ok := r.cells[h]; ok {
		r.Popups++
		c.Popup = &p
	}
}

func (r *Recorder) ClearAll() {
	r.cells = map[Handle]*DrawnCell{}
	r.byPos = map[lattice.Cell]Handle{}
	r.Clears++
}

func (r *Recorder) DrawRange(center lattice.Point, radiusPx int) {
	r.RangeCenter = center
	r.RangeRadiusPx = radiusPx
}

func (r *Recorder) SetPlayer(pos lattice.Point, tooltip string) {
	r.Player = pos
	r.PlayerTooltip = tooltip
}

func (r *Recorder) SetInventory(text string)   { r.Inventory = text }
func (r *Recorder) SetControls(c Controls)     { r.Controls = c }
func (r *Recorder) Recenter(pos lattice.Point) { r.Center = pos }

// Open simulates the user clicking a drawn cell.
func (r *Recorder) Open(cell lattice.Cell) (Popup, bool) {
	h, ok := r.byPos[cell]
	if !ok {
		return Popup{}, false
	}
	c := r.cells[h]
	if c.onOpen == nil {
		return Popup{}, false
	}
	p := c.onOpen()
	r.ShowPopup(h, p)
	return p, true
}

func (r *Recorder) Cell(cell lattice.Cell) (DrawnCell, bool) {
	h, ok := r.byPos[cell]
	if !ok {
		return DrawnCell{}, false
	}
	return *r.cells[h], true
}

// Cells returns drawn cells ordered by handle.
func (r *Recorder) Cells() []DrawnCell {
	out := make([]DrawnCell, 0, len(r.cells))
	for _, c := range r.cells {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}
