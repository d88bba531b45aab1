package movement

import "worldofbits.io/internal/sim/lattice"

// Discrete emits one step of exactly one tile per directional command.
type Discrete struct {
	mapper lattice.Mapper
	pos    func() lattice.Point
	emit   Handler
	active bool
}

func NewDiscrete(mapper lattice.Mapper, pos func() lattice.Point, emit Handler) *Discrete {
	return &Discrete{mapper: mapper, pos: pos, emit: emit}
}

func (d *Discrete) Mode() Mode   { return ModeButtons }
func (d *Discrete) Stop()        { d.active = false }
func (d *Discrete) Active() bool { return d.active }

func (d *Discrete) Start() error {
	d.active = true
	return nil
}

func (d *Discrete) Press(dir Direction) error {
	if !d.active {
		return ErrInactive
	}
	if !dir.IsValid() {
		return nil
	}
	dx, dy := dir.Delta()
	cur := d.pos()
	d.emit(Event{
		Kind:   EventStep,
		To:     lattice.Point{X: cur.X + float64(dx)*d.mapper.TileSize, Y: cur.Y + float64(dy)*d.mapper.TileSize},
		Source: ModeButtons,
	})
	return nil
}
