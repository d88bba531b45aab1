// Package render defines what the game core needs from a view layer.
package render

import (
	"worldofbits.io/internal/sim/interact"
	"worldofbits.io/internal/sim/lattice"
)

// Handle identifies one drawn cell until the next ClearAll.
type Handle uint64

// Popup is the content shown when a cell is opened.
type Popup struct {
	Cell     lattice.Cell
	Message  string
	Controls interact.Eligibility
}

// Controls describes the movement UI.
type Controls struct {
	ButtonsEnabled bool
	Mode           string
	Requested      string
}

// Facade draws game state and reports user gestures back to the core
// through the callbacks registered with BindInteraction.
type Facade interface {
	DrawCell(cell lattice.Cell, b lattice.Bounds) Handle
	SetTooltip(h Handle, text *string)
	BindInteraction(h Handle, onOpen func() Popup)
	ShowPopup(h Handle, p Popup)
	ClearAll()

	DrawRange(center lattice.Point, radiusPx int)
	SetPlayer(pos lattice.Point, tooltip string)
	SetInventory(text string)
	SetControls(c Controls)
	Recenter(pos lattice.Point)
}
