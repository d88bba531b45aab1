// Package interact implements the take/combine/store transitions between a
// cell's token and the player's single inventory slot.
package interact

import "worldofbits.io/internal/sim/token"

type Action string

const (
	ActionTake    Action = "take"
	ActionCombine Action = "combine"
	ActionStore   Action = "store"
)

func (a Action) Valid() bool {
	switch a {
	case ActionTake, ActionCombine, ActionStore:
		return true
	}
	return false
}

type Kind int

const (
	KindNoop Kind = iota
	KindMove
	KindSwap
	KindCombine
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindSwap:
		return "swap"
	case KindCombine:
		return "combine"
	default:
		return "noop"
	}
}

// Outcome carries both post-states of a transition. Callers apply Cell and
// Held together.
type Outcome struct {
	Kind Kind
	Cell token.Token
	Held token.Token
}

func (o Outcome) Applied() bool { return o.Kind != KindNoop }

func noop(cell, held token.Token) Outcome {
	return Outcome{Kind: KindNoop, Cell: cell, Held: held}
}

// Swap exchanges the two slots.
func Swap(cell, held token.Token) Outcome {
	return Outcome{Kind: KindSwap, Cell: held, Held: cell}
}

// Take moves the cell's token into an empty inventory, or swaps when both
// slots are occupied.
func Take(cell, held token.Token) Outcome {
	switch {
	case cell.Empty():
		return noop(cell, held)
	case held.Empty():
		return Outcome{Kind: KindMove, Cell: token.None, Held: cell}
	default:
		return Swap(cell, held)
	}
}

// Store moves the held token into an empty cell, or swaps when both slots
// are occupied.
func Store(cell, held token.Token) Outcome {
	switch {
	case held.Empty():
		return noop(cell, held)
	case cell.Empty():
		return Outcome{Kind: KindMove, Cell: held, Held: token.None}
	default:
		return Swap(cell, held)
	}
}

// Combine merges two equal tokens into the cell at double the value.
func Combine(cell, held token.Token) Outcome {
	if !cell.Equal(held) {
		return noop(cell, held)
	}
	return Outcome{Kind: KindCombine, Cell: token.Of(cell.Value * 2), Held: token.None}
}

func Apply(a Action, cell, held token.Token) Outcome {
	switch a {
	case ActionTake:
		return Take(cell, held)
	case ActionCombine:
		return Combine(cell, held)
	case ActionStore:
		return Store(cell, held)
	default:
		return noop(cell, held)
	}
}

// Eligibility lists which actions a popup offers.
type Eligibility struct {
	Take    bool `json:"take"`
	Combine bool `json:"combine"`
	Store   bool `json:"store"`
}

func (e Eligibility) Allows(a Action) bool {
	switch a {
	case ActionTake:
		return e.Take
	case ActionCombine:
		return e.Combine
	case ActionStore:
		return e.Store
	}
	return false
}

// Evaluate recomputes eligibility from scratch. Out of range disables all.
func Evaluate(inRange bool, cell, held token.Token) Eligibility {
	if !inRange {
		return Eligibility{}
	}
	return Eligibility{
		Take:    cell.Present,
		Combine: cell.Equal(held),
		Store:   held.Present,
	}
}

// Won reports whether the inventory has reached the win threshold.
func Won(held token.Token, threshold int) bool {
	return held.Present && held.Value == threshold
}
