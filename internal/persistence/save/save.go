// Package save maps game state onto the four persisted keys of a kv.Store.
package save

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"worldofbits.io/internal/persistence/kv"
	"worldofbits.io/internal/sim/cells"
	"worldofbits.io/internal/sim/lattice"
	"worldofbits.io/internal/sim/movement"
	"worldofbits.io/internal/sim/token"
)

const (
	KeyCells          = "cells"
	KeyHeldToken      = "heldToken"
	KeyPlayerPosition = "playerPosition"
	KeyMovementMode   = "movementMode"
)

// Keys lists every persisted key.
var Keys = []string{KeyCells, KeyHeldToken, KeyPlayerPosition, KeyMovementMode}

// State is what Load recovered. Each Has flag is false when the key was
// absent or could not be decoded.
type State struct {
	Cells    cells.Snapshot
	HasCells bool

	Held    token.Token
	HasHeld bool

	Position    lattice.Point
	HasPosition bool

	Mode    movement.Mode
	HasMode bool
}

type Gateway struct {
	store kv.Store
	log   *log.Logger
}

func New(store kv.Store, logger *log.Logger) *Gateway {
	return &Gateway{store: store, log: logger}
}

func (g *Gateway) Store() kv.Store { return g.store }

// Load reads every key independently. A missing or malformed key is logged
// and left out; it never prevents the others from loading.
func (g *Gateway) Load() State {
	var st State
	if raw, ok := g.get(KeyCells); ok {
		snap, err := cells.DecodeSnapshot([]byte(raw), g.log)
		if err != nil {
			g.warn("ignore saved cells", "err", err)
		} else {
			st.Cells, st.HasCells = snap, true
		}
	}
	if raw, ok := g.get(KeyHeldToken); ok {
		if err := json.Unmarshal([]byte(raw), &st.Held); err != nil {
			g.warn("ignore saved held token", "err", err)
		} else {
			st.HasHeld = true
		}
	}
	if raw, ok := g.get(KeyPlayerPosition); ok {
		p, err := decodePosition(raw)
		if err != nil {
			g.warn("ignore saved player position", "err", err)
		} else {
			st.Position, st.HasPosition = p, true
		}
	}
	if raw, ok := g.get(KeyMovementMode); ok {
		var s string
		err := json.Unmarshal([]byte(raw), &s)
		m, valid := movement.ParseMode(s)
		if err != nil || !valid {
			g.warn("ignore saved movement mode", "raw", raw)
		} else {
			st.Mode, st.HasMode = m, true
		}
	}
	return st
}

func (g *Gateway) get(key string) (string, bool) {
	raw, ok, err := g.store.Get(key)
	if err != nil {
		g.warn("read saved key", "key", key, "err", err)
		return "", false
	}
	return raw, ok
}

func decodePosition(raw string) (lattice.Point, error) {
	var xy []float64
	if err := json.Unmarshal([]byte(raw), &xy); err != nil {
		return lattice.Point{}, err
	}
	if len(xy) != 2 {
		return lattice.Point{}, fmt.Errorf("want [x, y], got %d values", len(xy))
	}
	return lattice.Point{X: xy[0], Y: xy[1]}, nil
}

// WriteCells implements cells.Sink.
func (g *Gateway) WriteCells(snap cells.Snapshot) error {
	b, err := cells.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	return g.store.Set(KeyCells, string(b))
}

func (g *Gateway) SaveHeld(t token.Token) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return g.store.Set(KeyHeldToken, string(b))
}

func (g *Gateway) SavePosition(p lattice.Point) error {
	b, err := json.Marshal([2]float64{p.X, p.Y})
	if err != nil {
		return err
	}
	return g.store.Set(KeyPlayerPosition, string(b))
}

func (g *Gateway) SaveMode(m movement.Mode) error {
	b, err := json.Marshal(string(m))
	if err != nil {
		return err
	}
	return g.store.Set(KeyMovementMode, string(b))
}

// Reset removes every persisted key.
func (g *Gateway) Reset() error {
	for _, k := range Keys {
		if err := g.store.Remove(k); err != nil {
			return fmt.Errorf("remove %s: %w", k, err)
		}
	}
	return nil
}

// Dump returns the raw value of every present key.
func (g *Gateway) Dump() (map[string]string, error) {
	out := map[string]string{}
	for _, k := range Keys {
		v, ok, err := g.store.Get(k)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", k, err)
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}

func (g *Gateway) warn(msg string, kv ...any) {
	if g.log != nil {
		g.log.Warn(msg, kv...)
	}
}
