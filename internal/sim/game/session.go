// Package game owns one player's state and applies commands to it. All
// mutation happens on the goroutine that calls Dispatch; Run provides that
// goroutine for callers that feed commands from elsewhere.
package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zyedidia/generic/mapset"

	"worldofbits.io/internal/persistence/save"
	"worldofbits.io/internal/render"
	"worldofbits.io/internal/sim/cells"
	"worldofbits.io/internal/sim/interact"
	"worldofbits.io/internal/sim/lattice"
	"worldofbits.io/internal/sim/movement"
	"worldofbits.io/internal/sim/token"
	"worldofbits.io/internal/sim/tuning"
)

var (
	ErrNotVisible = errors.New("game: cell not in visible window")
	ErrNotBooted  = errors.New("game: session not booted")
)

const playerTooltip = "Current location"

type Config struct {
	Tuning tuning.Tuning

	// Mode is the launch-time mode override. Empty means none.
	Mode string

	// GeoSupported reports whether fixes will be fed with FixReceived.
	GeoSupported bool

	// Roll replaces luck.Luck for cell generation.
	Roll func(key string) float64
}

// Envelope is one queued command. Reply, when set, receives the result.
type Envelope struct {
	Cmd   Command
	Reply chan<- Result
}

type Session struct {
	cfg    Config
	tun    tuning.Tuning
	mapper lattice.Mapper

	store *cells.Store
	held  token.Token
	pos   lattice.Point
	won   bool
	moves uint64

	relay *movement.Relay
	ctrl  *movement.Controller

	view    render.Facade
	save    *save.Gateway
	journal Journal
	log     *log.Logger

	visible mapset.Set[lattice.Cell]
	handles map[lattice.Cell]render.Handle

	booted   bool
	inbox    chan Envelope
	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config, view render.Facade, gw *save.Gateway, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	tun := cfg.Tuning
	mapper := lattice.NewMapper(tun.TileSize)
	gen := cells.Generator{
		Mapper:           mapper,
		StartingValues:   tun.StartingValues,
		SpawnProbability: tun.SpawnProbability,
		Roll:             cfg.Roll,
	}
	s := &Session{
		cfg:     cfg,
		tun:     tun,
		mapper:  mapper,
		store:   cells.NewStore(gen, logger),
		view:    view,
		save:    gw,
		log:     logger,
		visible: mapset.New[lattice.Cell](),
		handles: map[lattice.Cell]render.Handle{},
		inbox:   make(chan Envelope, 256),
		stop:    make(chan struct{}),
	}
	s.store.SetSink(gw)
	s.relay = movement.NewRelay(cfg.GeoSupported)
	s.ctrl = movement.NewController(mapper, s.relay, s.Position, s.onMove, logger)
	return s
}

func (s *Session) SetJournal(j Journal) { s.journal = j }

func (s *Session) Inbox() chan<- Envelope { return s.inbox }

func (s *Session) Held() token.Token       { return s.held }
func (s *Session) Position() lattice.Point { return s.pos }
func (s *Session) Won() bool               { return s.won }
func (s *Session) Mapper() lattice.Mapper  { return s.mapper }
func (s *Session) Tuning() tuning.Tuning   { return s.tun }
func (s *Session) Cells() *cells.Store     { return s.store }

// Mode returns the effective and requested movement modes.
func (s *Session) Mode() (effective, requested movement.Mode) {
	eff, _ := s.ctrl.Effective()
	return eff, s.ctrl.Requested()
}

// Visible returns the cells drawn by the last regeneration, ordered by X
// then Y.
func (s *Session) Visible() []lattice.Cell {
	out := make([]lattice.Cell, 0, s.visible.Size())
	s.visible.Each(func(c lattice.Cell) { out = append(out, c) })
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// Boot loads saved state, resolves the movement mode and draws the first
// window. Keys that fail to load fall back to tuning defaults one by one.
func (s *Session) Boot() {
	st := s.save.Load()
	if st.HasCells {
		if skipped := s.store.Restore(st.Cells); skipped > 0 {
			s.log.Warn("restored cells with skips", "skipped", skipped)
		}
	}
	s.held = token.None
	switch {
	case st.HasHeld:
		s.held = st.Held
	case s.tun.StartingHeldToken != nil:
		s.held = token.Of(*s.tun.StartingHeldToken)
	}
	s.pos = lattice.Point{X: s.tun.Start.Lng, Y: s.tun.Start.Lat}
	if st.HasPosition {
		s.pos = st.Position
	}
	s.won = interact.Won(s.held, s.tun.WinThreshold)

	mode := movement.ResolveMode(s.cfg.Mode, st.Mode, st.HasMode)
	s.activate(mode)
	if !st.HasMode || st.Mode != mode {
		s.persistMode()
	}

	s.view.SetInventory(inventoryText(s.held))
	s.regenerate()
	s.view.Recenter(s.pos)
	s.booted = true
	s.log.Info("session booted", "cells", s.store.Len(), "held", s.held, "mode", mode)
}

// Dispatch applies one command synchronously.
func (s *Session) Dispatch(cmd Command) Result {
	if !s.booted {
		return Result{Err: ErrNotBooted}
	}
	if a, cell, ok := ActionFor(cmd); ok {
		return s.act(a, cell)
	}
	switch c := cmd.(type) {
	case OpenRequested:
		return s.open(c.Cell)
	case MoveRequested:
		return s.move(c)
	case ModeRequested:
		return Result{Mode: s.setMode(c.Mode)}
	case FixReceived:
		before := s.moves
		if !s.relay.Deliver(c.Fix) {
			s.log.Debug("drop fix without live subscription")
		}
		return Result{Moved: s.moves != before}
	case FixFailed:
		s.relay.Fail(c.Err)
		return Result{}
	}
	return Result{Err: fmt.Errorf("game: unknown command %T", cmd)}
}

// Run boots the session if needed and applies queued commands one at a time
// until ctx is done or Stop is called.
func (s *Session) Run(ctx context.Context) error {
	if !s.booted {
		s.Boot()
	}
	defer s.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case env := <-s.inbox:
			res := s.Dispatch(env.Cmd)
			if env.Reply != nil {
				env.Reply <- res
			}
		}
	}
}

func (s *Session) Stop() { s.stopOnce.Do(func() { close(s.stop) }) }

// Post queues cmd without waiting for it to be applied.
func (s *Session) Post(ctx context.Context, cmd Command) error {
	select {
	case s.inbox <- Envelope{Cmd: cmd}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stop:
		return context.Canceled
	}
}

// Submit queues cmd and waits for its result.
func (s *Session) Submit(ctx context.Context, cmd Command) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case s.inbox <- Envelope{Cmd: cmd, Reply: reply}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-s.stop:
		return Result{}, context.Canceled
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close cancels the position subscription. It must run on the session
// goroutine.
func (s *Session) Close() {
	s.ctrl.Stop()
}

func (s *Session) activate(m movement.Mode) movement.Mode {
	eff := s.ctrl.Activate(m)
	s.view.SetControls(render.Controls{
		ButtonsEnabled: s.ctrl.ButtonsEnabled(),
		Mode:           string(eff),
		Requested:      string(s.ctrl.Requested()),
	})
	return eff
}

func (s *Session) setMode(m movement.Mode) movement.Mode {
	eff := s.activate(m)
	s.persistMode()
	return eff
}

func (s *Session) persistMode() {
	if err := s.save.SaveMode(s.ctrl.Requested()); err != nil {
		s.log.Warn("persist movement mode", "err", err)
	}
}

func (s *Session) onMove(ev movement.Event) {
	s.moveTo(ev.To, ev.Kind == movement.EventJump)
}

func (s *Session) move(c MoveRequested) Result {
	before := s.moves
	if c.Position != nil {
		if eff, _ := s.ctrl.Effective(); eff != movement.ModeGeo {
			return Result{Err: movement.ErrInactive}
		}
		s.moveTo(*c.Position, c.Jump)
		return Result{Moved: true}
	}
	if err := s.ctrl.Press(c.Direction); err != nil {
		return Result{Err: err}
	}
	return Result{Moved: s.moves != before}
}

func (s *Session) moveTo(p lattice.Point, jump bool) {
	if !jump {
		p = s.mapper.Snap(p)
	}
	s.pos = p
	s.moves++
	s.regenerate()
	s.view.Recenter(s.pos)
	if err := s.save.SavePosition(s.pos); err != nil {
		s.log.Warn("persist player position", "err", err)
	}
}

// regenerate clears the view and redraws the whole window around the player.
func (s *Session) regenerate() {
	s.view.ClearAll()
	s.visible = mapset.New[lattice.Cell]()
	s.handles = map[lattice.Cell]render.Handle{}

	s.view.DrawRange(s.pos, s.tun.RangeRadiusPx)
	s.view.SetPlayer(s.pos, s.playerTooltip())

	center := s.mapper.CellOf(s.pos)
	for _, c := range lattice.Window(center, s.tun.WindowRadius) {
		if _, known := s.store.Lookup(c); !known && !s.store.Gen.Spawns(c) {
			continue
		}
		s.draw(c)
	}
}

func (s *Session) draw(c lattice.Cell) {
	rec := s.store.GetOrCreate(c.X, c.Y)
	h := s.view.DrawCell(c, s.mapper.Bounds(c))
	s.view.SetTooltip(h, tooltipText(rec.Token))
	s.view.BindInteraction(h, func() render.Popup { return s.popup(c) })
	s.handles[c] = h
	s.visible.Put(c)
}

// Popup returns the current popup content for a visible cell.
func (s *Session) Popup(c lattice.Cell) (render.Popup, bool) {
	if !s.visible.Has(c) {
		return render.Popup{}, false
	}
	return s.popup(c), true
}

func (s *Session) popup(c lattice.Cell) render.Popup {
	rec, _ := s.store.Lookup(c)
	return render.Popup{
		Cell:     c,
		Message:  s.message(c, rec.Token),
		Controls: s.eligibility(c, rec.Token),
	}
}

func (s *Session) open(c lattice.Cell) Result {
	if !s.visible.Has(c) {
		return Result{Err: fmt.Errorf("%w: %s", ErrNotVisible, c.Key())}
	}
	p := s.popup(c)
	s.view.ShowPopup(s.handles[c], p)
	return Result{Popup: &p}
}

// InRange reports whether c is within interaction distance of the player,
// measured to the cell's south-west corner.
func (s *Session) InRange(c lattice.Cell) bool {
	return lattice.DistanceMeters(s.pos, s.mapper.PointOf(c)) <= s.tun.InteractionRadiusMeters
}

func (s *Session) eligibility(c lattice.Cell, t token.Token) interact.Eligibility {
	return interact.Evaluate(s.InRange(c), t, s.held)
}

func (s *Session) message(c lattice.Cell, t token.Token) string {
	p := s.mapper.PointOf(c)
	if !t.Present {
		return fmt.Sprintf("There is a cell at %.4f,%.4f. It has no token.", p.X, p.Y)
	}
	return fmt.Sprintf("There is a cell at %.4f,%.4f. It has a token of %d.", p.X, p.Y, t.Value)
}

func (s *Session) playerTooltip() string {
	if s.won {
		return fmt.Sprintf("Congratulations! You've reached the win condition of %d!", s.tun.WinThreshold)
	}
	return playerTooltip
}

// act applies one interaction. Disallowed actions still go through the
// write, redraw and persist steps with unchanged state.
func (s *Session) act(a interact.Action, c lattice.Cell) Result {
	if !s.visible.Has(c) {
		return Result{Err: fmt.Errorf("%w: %s", ErrNotVisible, c.Key())}
	}
	rec, _ := s.store.Lookup(c)
	before := interact.Outcome{Kind: interact.KindNoop, Cell: rec.Token, Held: s.held}
	out := before
	if s.eligibility(c, rec.Token).Allows(a) {
		out = interact.Apply(a, rec.Token, s.held)
	} else {
		s.log.Debug("action not allowed", "action", a, "cell", c.Key())
	}

	s.held = out.Held
	s.store.Set(c.X, c.Y, out.Cell)
	if err := s.save.SaveHeld(s.held); err != nil {
		s.log.Warn("persist held token", "err", err)
	}

	h := s.handles[c]
	p := s.popup(c)
	s.view.SetTooltip(h, tooltipText(out.Cell))
	s.view.SetInventory(inventoryText(s.held))
	s.view.ShowPopup(h, p)

	if !s.won && interact.Won(s.held, s.tun.WinThreshold) {
		s.won = true
		s.view.SetPlayer(s.pos, s.playerTooltip())
	}
	s.record(a, c, before, out)
	return Result{Outcome: out, Popup: &p, Won: s.won}
}

func (s *Session) record(a interact.Action, c lattice.Cell, before, after interact.Outcome) {
	if s.journal == nil {
		return
	}
	err := s.journal.WriteAction(JournalEntry{
		Time:   time.Now().UTC().Format(time.RFC3339Nano),
		Action: string(a),
		Cell:   c.Key(),
		Kind:   after.Kind.String(),
		Before: TokenPair{Cell: before.Cell, Held: before.Held},
		After:  TokenPair{Cell: after.Cell, Held: after.Held},
		Won:    s.won,
	})
	if err != nil {
		s.log.Warn("journal write", "err", err)
	}
}

func tooltipText(t token.Token) *string {
	if !t.Present {
		return nil
	}
	v := strconv.Itoa(t.Value)
	return &v
}

func inventoryText(t token.Token) string {
	if !t.Present {
		return ""
	}
	return strconv.Itoa(t.Value)
}
