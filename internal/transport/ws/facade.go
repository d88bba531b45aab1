package ws

import (
	"encoding/json"

	"github.com/charmbracelet/log"

	"worldofbits.io/internal/protocol"
	"worldofbits.io/internal/render"
	"worldofbits.io/internal/sim/lattice"
	"worldofbits.io/internal/sim/movement"
)

// facade renders a session as protocol messages. It is only called from the
// session goroutine; out is drained by the connection writer.
type facade struct {
	out  chan<- []byte
	done <-chan struct{}
	log  *log.Logger

	next     render.Handle
	watching bool
}

func newFacade(out chan<- []byte, done <-chan struct{}, logger *log.Logger) *facade {
	return &facade{out: out, done: done, log: logger}
}

func (f *facade) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		f.log.Warn("marshal message", "err", err)
		return
	}
	select {
	case f.out <- b:
	case <-f.done:
	}
}

func xy(p lattice.Point) [2]float64 { return [2]float64{p.X, p.Y} }
func ij(c lattice.Cell) [2]int      { return [2]int{c.X, c.Y} }

func (f *facade) DrawCell(cell lattice.Cell, b lattice.Bounds) render.Handle {
	f.next++
	f.send(protocol.DrawMsg{
		Type:            protocol.TypeDraw,
		ProtocolVersion: protocol.Version,
		Handle:          uint64(f.next),
		Cell:            ij(cell),
		Bounds:          protocol.Bounds{SW: xy(b.SW), NE: xy(b.NE)},
	})
	return f.next
}

func (f *facade) SetTooltip(h render.Handle, text *string) {
	f.send(protocol.TooltipMsg{
		Type:            protocol.TypeTooltip,
		ProtocolVersion: protocol.Version,
		Handle:          uint64(h),
		Text:            text,
	})
}

// BindInteraction is a no-op: clients ask for popups with CMD OPEN, which
// the session answers through ShowPopup.
func (f *facade) BindInteraction(render.Handle, func() render.Popup) {}

func (f *facade) ShowPopup(h render.Handle, p render.Popup) {
	f.send(protocol.PopupMsg{
		Type:            protocol.TypePopup,
		ProtocolVersion: protocol.Version,
		Handle:          uint64(h),
		Cell:            ij(p.Cell),
		Message:         p.Message,
		Controls: protocol.Controls{
			Take:    p.Controls.Take,
			Combine: p.Controls.Combine,
			Store:   p.Controls.Store,
		},
	})
}

func (f *facade) ClearAll() {
	f.send(protocol.ClearMsg{Type: protocol.TypeClear, ProtocolVersion: protocol.Version})
}

func (f *facade) DrawRange(center lattice.Point, radiusPx int) {
	f.send(protocol.RangeMsg{
		Type:            protocol.TypeRange,
		ProtocolVersion: protocol.Version,
		Center:          xy(center),
		RadiusPx:        radiusPx,
	})
}

func (f *facade) SetPlayer(pos lattice.Point, tooltip string) {
	f.send(protocol.PlayerMsg{
		Type:            protocol.TypePlayer,
		ProtocolVersion: protocol.Version,
		Pos:             xy(pos),
		Tooltip:         tooltip,
	})
}

func (f *facade) SetInventory(text string) {
	f.send(protocol.InventoryMsg{Type: protocol.TypeInventory, ProtocolVersion: protocol.Version, Text: text})
}

// SetControls also tells the client to start or stop streaming fixes when
// the effective mode changes.
func (f *facade) SetControls(c render.Controls) {
	f.send(protocol.ControlsMsg{
		Type:            protocol.TypeControls,
		ProtocolVersion: protocol.Version,
		ButtonsEnabled:  c.ButtonsEnabled,
		Mode:            c.Mode,
		Requested:       c.Requested,
	})
	watch := c.Mode == string(movement.ModeGeo)
	if watch != f.watching {
		f.watching = watch
		f.send(protocol.GeoMsg{Type: protocol.TypeGeo, ProtocolVersion: protocol.Version, Watch: watch})
	}
}

func (f *facade) Recenter(pos lattice.Point) {
	f.send(protocol.CenterMsg{Type: protocol.TypeCenter, ProtocolVersion: protocol.Version, Pos: xy(pos)})
}
