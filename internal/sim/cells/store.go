// Package cells is the authoritative mapping from lattice cells to token
// state. Cells are materialized lazily and never deleted.
package cells

import (
	"sort"

	"github.com/charmbracelet/log"

	"worldofbits.io/internal/sim/lattice"
	"worldofbits.io/internal/sim/token"
)

// Sink receives the full cell state after every Set.
type Sink interface {
	WriteCells(snap Snapshot) error
}

type Store struct {
	Gen Generator

	cells map[lattice.Cell]Record
	sink  Sink
	log   *log.Logger
}

func NewStore(gen Generator, logger *log.Logger) *Store {
	return &Store{
		Gen:   gen,
		cells: map[lattice.Cell]Record{},
		log:   logger,
	}
}

func (s *Store) SetSink(sink Sink) { s.sink = sink }

func (s *Store) Len() int { return len(s.cells) }

func (s *Store) Lookup(c lattice.Cell) (Record, bool) {
	r, ok := s.cells[c]
	return r, ok
}

func (s *Store) GetOrCreate(x, y int) Record {
	k := lattice.Cell{X: x, Y: y}
	if r, ok := s.cells[k]; ok {
		return r
	}
	r := Record{Token: s.Gen.Seed(k)}
	s.cells[k] = r
	return r
}

func (s *Store) Set(x, y int, t token.Token) {
	s.cells[lattice.Cell{X: x, Y: y}] = Record{Token: t}
	if s.sink == nil {
		return
	}
	if err := s.sink.WriteCells(s.Snapshot()); err != nil && s.log != nil {
		s.log.Warn("persist cells", "err", err)
	}
}

// Keys returns materialized cells ordered by X then Y.
func (s *Store) Keys() []lattice.Cell {
	keys := make([]lattice.Cell, 0, len(s.cells))
	for k := range s.cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Y < keys[j].Y
	})
	return keys
}

func (s *Store) Snapshot() Snapshot {
	out := make(Snapshot, len(s.cells))
	for k, r := range s.cells {
		out[k.Key()] = r
	}
	return out
}

// Restore replaces all in-memory state with snap. Entries with a malformed
// key or a negative token are skipped. It returns how many were skipped.
func (s *Store) Restore(snap Snapshot) int {
	cells := make(map[lattice.Cell]Record, len(snap))
	skipped := 0
	for key, r := range snap {
		c, err := lattice.ParseKey(key)
		if err != nil {
			skipped++
			s.warn("skip malformed cell key", "key", key, "err", err)
			continue
		}
		if r.Token.Present && r.Token.Value < 0 {
			skipped++
			s.warn("skip negative cell token", "key", key, "value", r.Token.Value)
			continue
		}
		cells[c] = r
	}
	s.cells = cells
	return skipped
}

func (s *Store) warn(msg string, kv ...any) {
	if s.log != nil {
		s.log.Warn(msg, kv...)
	}
}
