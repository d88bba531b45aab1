package game

import (
	"worldofbits.io/internal/render"
	"worldofbits.io/internal/sim/interact"
	"worldofbits.io/internal/sim/lattice"
	"worldofbits.io/internal/sim/movement"
)

// Command is one input to the session. Every state change goes through
// Dispatch with one of the types below.
type Command interface{ command() }

type TakeRequested struct{ Cell lattice.Cell }
type CombineRequested struct{ Cell lattice.Cell }
type StoreRequested struct{ Cell lattice.Cell }

// OpenRequested shows the popup for a drawn cell.
type OpenRequested struct{ Cell lattice.Cell }

// MoveRequested carries either a direction press or a target position.
// Position targets come from the continuous source; Jump skips snapping.
type MoveRequested struct {
	Direction movement.Direction
	Position  *lattice.Point
	Jump      bool
}

type ModeRequested struct{ Mode movement.Mode }

// FixReceived and FixFailed marshal position-source callbacks onto the
// session goroutine.
type FixReceived struct{ Fix movement.Fix }
type FixFailed struct{ Err error }

func (TakeRequested) command()    {}
func (CombineRequested) command() {}
func (StoreRequested) command()   {}
func (OpenRequested) command()    {}
func (MoveRequested) command()    {}
func (ModeRequested) command()    {}
func (FixReceived) command()      {}
func (FixFailed) command()        {}

// ActionFor maps an interaction command to its action.
func ActionFor(c Command) (interact.Action, lattice.Cell, bool) {
	switch v := c.(type) {
	case TakeRequested:
		return interact.ActionTake, v.Cell, true
	case CombineRequested:
		return interact.ActionCombine, v.Cell, true
	case StoreRequested:
		return interact.ActionStore, v.Cell, true
	}
	return "", lattice.Cell{}, false
}

// Result reports what a command did.
type Result struct {
	Outcome interact.Outcome
	Popup   *render.Popup
	Moved   bool
	Mode    movement.Mode
	Won     bool
	Err     error
}
