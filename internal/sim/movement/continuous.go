package movement

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"worldofbits.io/internal/sim/lattice"
)

// Continuous turns position fixes into lattice moves. The first fix after
// Start jumps straight to the reported position; later fixes move a whole
// number of tiles per axis and sub-tile jitter is ignored.
type Continuous struct {
	mapper lattice.Mapper
	src    PositionSource
	pos    func() lattice.Point
	emit   Handler
	log    *log.Logger

	sub    Subscription
	gen    uint64
	active bool
	fixed  bool
}

func NewContinuous(mapper lattice.Mapper, src PositionSource, pos func() lattice.Point, emit Handler, logger *log.Logger) *Continuous {
	return &Continuous{mapper: mapper, src: src, pos: pos, emit: emit, log: logger}
}

func (c *Continuous) Mode() Mode   { return ModeGeo }
func (c *Continuous) Active() bool { return c.active }

func (c *Continuous) Start() error {
	if c.src == nil {
		return ErrUnsupported
	}
	c.Stop()
	c.gen++
	gen := c.gen
	sub, err := c.src.Subscribe(
		func(f Fix) { c.handleFix(gen, f) },
		func(err error) { c.handleErr(gen, err) },
	)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.sub = sub
	c.active = true
	c.fixed = false
	return nil
}

func (c *Continuous) Stop() {
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
	if c.active {
		c.gen++
	}
	c.active = false
}

func (c *Continuous) handleFix(gen uint64, f Fix) {
	if !c.active || gen != c.gen {
		return
	}
	p := f.Point()
	if !c.fixed {
		c.fixed = true
		c.emit(Event{Kind: EventJump, To: p, Source: ModeGeo})
		return
	}
	cur := c.pos()
	dx := math.Round((p.X - cur.X) / c.mapper.TileSize)
	dy := math.Round((p.Y - cur.Y) / c.mapper.TileSize)
	if dx == 0 && dy == 0 {
		return
	}
	c.emit(Event{
		Kind:   EventStep,
		To:     lattice.Point{X: cur.X + dx*c.mapper.TileSize, Y: cur.Y + dy*c.mapper.TileSize},
		Source: ModeGeo,
	})
}

func (c *Continuous) handleErr(gen uint64, err error) {
	if !c.active || gen != c.gen {
		return
	}
	if c.log != nil {
		c.log.Warn("position source error", "err", err)
	}
}
