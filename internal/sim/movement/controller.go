package movement

import (
	"github.com/charmbracelet/log"

	"worldofbits.io/internal/sim/lattice"
)

// Controller owns both movement variants and keeps at most one active.
type Controller struct {
	discrete   *Discrete
	continuous *Continuous
	active     Source
	requested  Mode
	log        *log.Logger
}

func NewController(mapper lattice.Mapper, src PositionSource, pos func() lattice.Point, emit Handler, logger *log.Logger) *Controller {
	return &Controller{
		discrete:   NewDiscrete(mapper, pos, emit),
		continuous: NewContinuous(mapper, src, pos, emit, logger),
		requested:  DefaultMode,
		log:        logger,
	}
}

// Activate stops the current variant, then starts the one for m. When the
// continuous source cannot start, discrete movement becomes the effective
// mode while m stays the requested one. It returns the effective mode.
func (c *Controller) Activate(m Mode) Mode {
	if !m.Valid() {
		m = DefaultMode
	}
	if c.active != nil {
		c.active.Stop()
		c.active = nil
	}
	c.requested = m

	if m == ModeGeo {
		if err := c.continuous.Start(); err != nil {
			if c.log != nil {
				c.log.Warn("continuous movement unavailable; using buttons", "err", err)
			}
		} else {
			c.active = c.continuous
			return ModeGeo
		}
	}
	_ = c.discrete.Start()
	c.active = c.discrete
	return ModeButtons
}

func (c *Controller) Stop() {
	if c.active != nil {
		c.active.Stop()
		c.active = nil
	}
}

func (c *Controller) Requested() Mode { return c.requested }

func (c *Controller) Effective() (Mode, bool) {
	if c.active == nil {
		return "", false
	}
	return c.active.Mode(), true
}

func (c *Controller) ButtonsEnabled() bool { return c.discrete.Active() }

func (c *Controller) Press(d Direction) error { return c.discrete.Press(d) }
