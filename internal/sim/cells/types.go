package cells

import (
	"math"

	"worldofbits.io/internal/sim/lattice"
	"worldofbits.io/internal/sim/luck"
	"worldofbits.io/internal/sim/token"
)

// Record is the persisted state of one materialized cell.
type Record struct {
	Token token.Token `json:"tokenValue"`
}

// Snapshot maps canonical "x,y" keys to records.
type Snapshot map[string]Record

// DefaultStartingValues is the ordered set initial tokens are drawn from.
// Seeding indexes it with floor(roll*4), so its last entry is never chosen.
var DefaultStartingValues = []int{0, 2, 4, 8, 16}

const (
	DefaultSpawnProbability = 0.07
	seedSuffix              = "initialValue"
	seedSpan                = 4
)

// Generator derives a cell's initial state from its coordinates alone.
type Generator struct {
	Mapper           lattice.Mapper
	StartingValues   []int
	SpawnProbability float64

	// Roll defaults to luck.Luck.
	Roll func(key string) float64
}

func (g Generator) roll(key string) float64 {
	if g.Roll != nil {
		return g.Roll(key)
	}
	return luck.Luck(key)
}

// SeedKey is the RNG key for a cell's initial token.
func (g Generator) SeedKey(c lattice.Cell) string {
	return luck.Key(g.Mapper.ToContinuous(c.X), g.Mapper.ToContinuous(c.Y), seedSuffix)
}

// Seed returns the initial token for c.
func (g Generator) Seed(c lattice.Cell) token.Token {
	values := g.StartingValues
	if len(values) == 0 {
		values = DefaultStartingValues
	}
	i := int(math.Floor(g.roll(g.SeedKey(c)) * seedSpan))
	if i >= len(values) {
		i = len(values) - 1
	}
	return token.Of(values[i])
}

// Spawns reports whether c hosts a cache when it enters the visible window.
func (g Generator) Spawns(c lattice.Cell) bool {
	return g.roll(luck.Key(c.X, c.Y)) < g.SpawnProbability
}
