package movement

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"worldofbits.io/internal/sim/lattice"
)

// fakeSource keeps every callback it was ever given so tests can fire
// stale ones after Unsubscribe.
type fakeSource struct {
	fail    error
	events  []string
	onFixes []func(Fix)
	onErrs  []func(error)
}

type fakeSub struct {
	s  *fakeSource
	id int
}

func (f fakeSub) Unsubscribe() {
	f.s.events = append(f.s.events, "unsubscribe")
}

func (s *fakeSource) Subscribe(onFix func(Fix), onErr func(error)) (Subscription, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.events = append(s.events, "subscribe")
	s.onFixes = append(s.onFixes, onFix)
	s.onErrs = append(s.onErrs, onErr)
	return fakeSub{s: s, id: len(s.onFixes)}, nil
}

func (s *fakeSource) fire(i int, f Fix) { s.onFixes[i](f) }
func (s *fakeSource) last(f Fix)        { s.fire(len(s.onFixes)-1, f) }

type harness struct {
	mapper lattice.Mapper
	pos    lattice.Point
	events []Event
}

func newHarness() *harness {
	return &harness{mapper: lattice.NewMapper(lattice.DefaultTileSize)}
}

func (h *harness) current() lattice.Point { return h.pos }

func (h *harness) handle(ev Event) {
	h.events = append(h.events, ev)
	if ev.Kind == EventStep {
		h.pos = h.mapper.Snap(ev.To)
	} else {
		h.pos = ev.To
	}
}

func quiet() *log.Logger { return log.New(io.Discard) }

func TestResolveModePrecedence(t *testing.T) {
	if got := ResolveMode("geolocation", ModeButtons, true); got != ModeGeo {
		t.Fatalf("explicit geolocation: %s", got)
	}
	if got := ResolveMode("buttons", ModeGeo, true); got != ModeButtons {
		t.Fatalf("explicit buttons: %s", got)
	}
	if got := ResolveMode("", ModeGeo, true); got != ModeGeo {
		t.Fatalf("saved geo: %s", got)
	}
	if got := ResolveMode("bogus", Mode("teleport"), true); got != ModeButtons {
		t.Fatalf("invalid values fall back to default: %s", got)
	}
	if got := ResolveMode("", ModeGeo, false); got != ModeButtons {
		t.Fatalf("no saved mode: %s", got)
	}
}

func TestDirectionDelta(t *testing.T) {
	want := map[Direction][2]int{Up: {0, 1}, Down: {0, -1}, Left: {-1, 0}, Right: {1, 0}}
	for _, d := range AllDirections() {
		dx, dy := d.Delta()
		if [2]int{dx, dy} != want[d] {
			t.Fatalf("%s delta=%d,%d", d, dx, dy)
		}
		parsed, ok := ParseDirection(strings.ToLower(d.String()))
		if !ok || parsed != d {
			t.Fatalf("ParseDirection(%s)", d)
		}
	}
}

func TestDiscretePressOneTile(t *testing.T) {
	h := newHarness()
	h.pos = h.mapper.PointOf(lattice.Cell{X: 10, Y: 20})
	d := NewDiscrete(h.mapper, h.current, h.handle)
	if err := d.Press(Up); !errors.Is(err, ErrInactive) {
		t.Fatalf("inactive press: %v", err)
	}
	_ = d.Start()
	for _, dir := range []Direction{Up, Up, Right, Down, Left, Left} {
		if err := d.Press(dir); err != nil {
			t.Fatalf("press: %v", err)
		}
	}
	if len(h.events) != 6 {
		t.Fatalf("events=%d", len(h.events))
	}
	if got := h.mapper.CellOf(h.pos); got != (lattice.Cell{X: 9, Y: 21}) {
		t.Fatalf("final cell=%+v", got)
	}
}

func TestContinuousFirstFixJumps(t *testing.T) {
	h := newHarness()
	src := &fakeSource{}
	c := NewContinuous(h.mapper, src, h.current, h.handle, quiet())
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	raw := Fix{Lat: 36.99786, Lng: -122.05704}
	src.last(raw)
	if len(h.events) != 1 || h.events[0].Kind != EventJump || h.events[0].To != raw.Point() {
		t.Fatalf("first fix events=%+v", h.events)
	}
}

func TestContinuousIgnoresJitter(t *testing.T) {
	h := newHarness()
	src := &fakeSource{}
	c := NewContinuous(h.mapper, src, h.current, h.handle, quiet())
	_ = c.Start()
	origin := h.mapper.PointOf(lattice.Cell{X: -1220570, Y: 369979})
	src.last(Fix{Lat: origin.Y, Lng: origin.X})

	for _, off := range []float64{0.2e-4, -0.3e-4, 0.49e-4} {
		src.last(Fix{Lat: origin.Y + off, Lng: origin.X - off})
	}
	if len(h.events) != 1 {
		t.Fatalf("sub-tile jitter produced moves: %+v", h.events[1:])
	}

	src.last(Fix{Lat: origin.Y + 2.6e-4, Lng: origin.X - 0.7e-4})
	if len(h.events) != 2 || h.events[1].Kind != EventStep {
		t.Fatalf("expected one step: %+v", h.events)
	}
	if got := h.mapper.CellOf(h.pos); got != (lattice.Cell{X: -1220571, Y: 369982}) {
		t.Fatalf("cell after step=%+v", got)
	}
}

func TestContinuousStopDropsStaleCallbacks(t *testing.T) {
	h := newHarness()
	src := &fakeSource{}
	c := NewContinuous(h.mapper, src, h.current, h.handle, quiet())
	_ = c.Start()
	src.last(Fix{Lat: 1, Lng: 1})
	c.Stop()
	src.fire(0, Fix{Lat: 2, Lng: 2})
	src.onErrs[0](errors.New("late"))

	_ = c.Start()
	src.fire(0, Fix{Lat: 3, Lng: 3})
	if len(h.events) != 1 {
		t.Fatalf("stale callbacks mutated state: %+v", h.events)
	}
	src.fire(1, Fix{Lat: 4, Lng: 4})
	if len(h.events) != 2 || h.events[1].Kind != EventJump {
		t.Fatalf("restart should jump on first fix: %+v", h.events)
	}
}

func TestControllerExclusivity(t *testing.T) {
	h := newHarness()
	src := &fakeSource{}
	ctl := NewController(h.mapper, src, h.current, h.handle, quiet())

	if got := ctl.Activate(ModeButtons); got != ModeButtons || !ctl.ButtonsEnabled() {
		t.Fatalf("buttons activate: %s enabled=%v", got, ctl.ButtonsEnabled())
	}
	if got := ctl.Activate(ModeGeo); got != ModeGeo {
		t.Fatalf("geo activate: %s", got)
	}
	if ctl.ButtonsEnabled() {
		t.Fatalf("buttons still enabled in geo mode")
	}
	if err := ctl.Press(Up); !errors.Is(err, ErrInactive) {
		t.Fatalf("press in geo mode: %v", err)
	}

	ctl.Activate(ModeGeo)
	want := []string{"subscribe", "unsubscribe", "subscribe"}
	if strings.Join(src.events, ",") != strings.Join(want, ",") {
		t.Fatalf("subscription order=%v", src.events)
	}

	ctl.Activate(ModeButtons)
	if src.events[len(src.events)-1] != "unsubscribe" {
		t.Fatalf("switch to buttons kept subscription: %v", src.events)
	}
	src.last(Fix{Lat: 5, Lng: 5})
	if len(h.events) != 0 {
		t.Fatalf("stopped source mutated state: %+v", h.events)
	}
	if !ctl.ButtonsEnabled() {
		t.Fatalf("buttons disabled after switching back")
	}
}

func TestControllerFallsBackWhenUnsupported(t *testing.T) {
	h := newHarness()
	ctl := NewController(h.mapper, &fakeSource{fail: ErrUnsupported}, h.current, h.handle, quiet())
	if got := ctl.Activate(ModeGeo); got != ModeButtons {
		t.Fatalf("effective=%s", got)
	}
	if ctl.Requested() != ModeGeo {
		t.Fatalf("requested mode changed to %s", ctl.Requested())
	}
	if !ctl.ButtonsEnabled() {
		t.Fatalf("fallback should enable buttons")
	}

	nilSrc := NewController(h.mapper, nil, h.current, h.handle, quiet())
	if got := nilSrc.Activate(ModeGeo); got != ModeButtons {
		t.Fatalf("nil source effective=%s", got)
	}
}

func TestRelay(t *testing.T) {
	r := NewRelay(true)
	if r.Deliver(Fix{}) {
		t.Fatalf("deliver without subscriber")
	}
	var got []Fix
	sub, err := r.Subscribe(func(f Fix) { got = append(got, f) }, func(error) {})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	old := sub
	sub2, _ := r.Subscribe(func(f Fix) { got = append(got, Fix{Lat: -f.Lat}) }, nil)
	old.Unsubscribe()
	if !r.Deliver(Fix{Lat: 1}) || len(got) != 1 || got[0].Lat != -1 {
		t.Fatalf("stale unsubscribe removed the live subscriber: %+v", got)
	}
	sub2.Unsubscribe()
	if r.Subscribed() || r.Deliver(Fix{Lat: 2}) {
		t.Fatalf("delivered after unsubscribe")
	}

	if _, err := NewRelay(false).Subscribe(nil, nil); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unsupported relay: %v", err)
	}
}

func TestTrackReadAndPlay(t *testing.T) {
	tr, err := ReadTrack(strings.NewReader("# walk\n{\"lat\":1,\"lng\":2}\n\n{\"lat\":3,\"lng\":4}\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(tr) != 2 || tr[1] != (Fix{Lat: 3, Lng: 4}) {
		t.Fatalf("track=%+v", tr)
	}
	var got []Fix
	if err := tr.Play(context.Background(), time.Millisecond, func(f Fix) { got = append(got, f) }); err != nil {
		t.Fatalf("play: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("played=%d", len(got))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.Play(ctx, time.Hour, func(Fix) {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled play: %v", err)
	}
	if _, err := ReadTrack(strings.NewReader("{bad")); err == nil {
		t.Fatalf("expected parse error")
	}
}
