// Package movement produces position-update events from either discrete
// directional commands or a continuous position stream.
package movement

import (
	"errors"

	"worldofbits.io/internal/sim/lattice"
)

var (
	ErrInactive    = errors.New("movement: source inactive")
	ErrUnsupported = errors.New("movement: position source unavailable")
)

type EventKind int

const (
	// EventStep moves to a target the handler snaps to the lattice.
	EventStep EventKind = iota + 1
	// EventJump places the player at the raw target without snapping.
	EventJump
)

type Event struct {
	Kind   EventKind
	To     lattice.Point
	Source Mode
}

type Handler func(Event)

// Source is one movement variant. Only the Controller starts and stops it.
type Source interface {
	Mode() Mode
	Start() error
	Stop()
}

// Fix is one reading from a continuous position source.
type Fix struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (f Fix) Point() lattice.Point { return lattice.Point{X: f.Lng, Y: f.Lat} }

type Subscription interface {
	Unsubscribe()
}

// PositionSource is an external continuous position stream.
type PositionSource interface {
	Subscribe(onFix func(Fix), onErr func(error)) (Subscription, error)
}
