package game

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"worldofbits.io/internal/persistence/kv"
	"worldofbits.io/internal/persistence/save"
	"worldofbits.io/internal/render"
	"worldofbits.io/internal/sim/interact"
	"worldofbits.io/internal/sim/lattice"
	"worldofbits.io/internal/sim/movement"
	"worldofbits.io/internal/sim/token"
	"worldofbits.io/internal/sim/tuning"
)

func quiet() *log.Logger { return log.New(io.Discard) }

func testTuning() tuning.Tuning {
	t := tuning.Defaults()
	t.WindowRadius = 4
	t.SpawnProbability = 1
	t.Start = tuning.LatLng{}
	return t
}

// rollHalf seeds every cell with index 2, a token of 4.
func rollHalf(string) float64 { return 0.5 }

type fixture struct {
	kv   *kv.Memory
	view *render.Recorder
	s    *Session
}

func newFixture(t *testing.T, cfg Config, store *kv.Memory) *fixture {
	t.Helper()
	if store == nil {
		store = kv.NewMemory()
	}
	if cfg.Tuning.TileSize == 0 {
		cfg.Tuning = testTuning()
	}
	if cfg.Roll == nil {
		cfg.Roll = rollHalf
	}
	view := render.NewRecorder()
	s := New(cfg, view, save.New(store, quiet()), quiet())
	s.Boot()
	return &fixture{kv: store, view: view, s: s}
}

func (f *fixture) do(t *testing.T, cmd Command) Result {
	t.Helper()
	res := f.s.Dispatch(cmd)
	if res.Err != nil {
		t.Fatalf("%T: %v", cmd, res.Err)
	}
	return res
}

func (f *fixture) cell(t *testing.T, c lattice.Cell) token.Token {
	t.Helper()
	rec, ok := f.s.Cells().Lookup(c)
	if !ok {
		t.Fatalf("cell %s not materialized", c.Key())
	}
	return rec.Token
}

func mass(f *fixture, cs ...lattice.Cell) int {
	m := f.s.Held().Mass()
	for _, c := range cs {
		rec, _ := f.s.Cells().Lookup(c)
		m += rec.Token.Mass()
	}
	return m
}

func TestScenarioTakeStoreCombine(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	a := lattice.Cell{X: 3, Y: 3}
	b := lattice.Cell{X: 2, Y: 3}

	if got := f.cell(t, a); got != token.Of(4) {
		t.Fatalf("seeded (3,3)=%v", got)
	}
	if f.s.Held().Present {
		t.Fatalf("inventory should start empty")
	}

	res := f.do(t, TakeRequested{Cell: a})
	if res.Outcome.Kind != interact.KindMove || f.s.Held() != token.Of(4) || f.cell(t, a).Present {
		t.Fatalf("take: held=%v cell=%v", f.s.Held(), f.cell(t, a))
	}
	if dc, _ := f.view.Cell(a); dc.Tooltip != nil {
		t.Fatalf("empty cell still has tooltip %q", *dc.Tooltip)
	}
	if f.view.Inventory != "4" {
		t.Fatalf("inventory text=%q", f.view.Inventory)
	}

	f.do(t, StoreRequested{Cell: a})
	if f.s.Held().Present || f.cell(t, a) != token.Of(4) {
		t.Fatalf("store: held=%v cell=%v", f.s.Held(), f.cell(t, a))
	}

	f.do(t, TakeRequested{Cell: a})
	before := mass(f, a, b)
	res = f.do(t, CombineRequested{Cell: b})
	if res.Outcome.Kind != interact.KindCombine {
		t.Fatalf("combine kind=%s", res.Outcome.Kind)
	}
	if f.cell(t, b) != token.Of(8) || f.s.Held().Present {
		t.Fatalf("combine: held=%v cell=%v", f.s.Held(), f.cell(t, b))
	}
	if after := mass(f, a, b); after != before {
		t.Fatalf("combine mass: before=%d after=%d", before, after)
	}
	if dc, _ := f.view.Cell(b); dc.Tooltip == nil || *dc.Tooltip != "8" {
		t.Fatalf("combined tooltip=%v", dc.Tooltip)
	}
	if res.Popup == nil || res.Popup.Controls.Combine || res.Popup.Controls.Store || !res.Popup.Controls.Take {
		t.Fatalf("eligibility after combine=%+v", res.Popup)
	}
}

func TestSwapKeepsMass(t *testing.T) {
	store := kv.NewMemory()
	_ = store.Set(save.KeyCells, `{"1,1":{"tokenValue":2}}`)
	_ = store.Set(save.KeyHeldToken, `8`)
	f := newFixture(t, Config{}, store)
	c := lattice.Cell{X: 1, Y: 1}
	res := f.do(t, TakeRequested{Cell: c})
	if res.Outcome.Kind != interact.KindSwap || f.s.Held() != token.Of(2) || f.cell(t, c) != token.Of(8) {
		t.Fatalf("swap: held=%v cell=%v", f.s.Held(), f.cell(t, c))
	}
	if f.view.Inventory != "2" {
		t.Fatalf("inventory text=%q", f.view.Inventory)
	}
}

func TestPopupMessage(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	p, ok := f.view.Open(lattice.Cell{X: 3, Y: 3})
	if !ok {
		t.Fatalf("cell not drawn")
	}
	if want := "There is a cell at 0.0003,0.0003. It has a token of 4."; p.Message != want {
		t.Fatalf("message=%q", p.Message)
	}
	if !p.Controls.Take || p.Controls.Combine || p.Controls.Store {
		t.Fatalf("controls=%+v", p.Controls)
	}
	f.do(t, TakeRequested{Cell: lattice.Cell{X: 3, Y: 3}})
	res := f.do(t, OpenRequested{Cell: lattice.Cell{X: 3, Y: 3}})
	if want := "There is a cell at 0.0003,0.0003. It has no token."; res.Popup.Message != want {
		t.Fatalf("message=%q", res.Popup.Message)
	}
}

func TestOutOfRangeIsNoopButPersists(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	far := lattice.Cell{X: -4, Y: -4}
	if f.s.InRange(far) {
		t.Fatalf("(-4,-4) should be out of range")
	}
	p, _ := f.s.Popup(far)
	if p.Controls != (interact.Eligibility{}) {
		t.Fatalf("out of range controls=%+v", p.Controls)
	}
	res := f.do(t, TakeRequested{Cell: far})
	if res.Outcome.Applied() || f.cell(t, far) != token.Of(4) || f.s.Held().Present {
		t.Fatalf("out of range take changed state: %+v", res.Outcome)
	}
	if raw, ok, _ := f.kv.Get(save.KeyHeldToken); !ok || raw != "null" {
		t.Fatalf("held not persisted: %q %v", raw, ok)
	}
	if _, ok, _ := f.kv.Get(save.KeyCells); !ok {
		t.Fatalf("cells not persisted")
	}
}

func TestActionOnHiddenCell(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	res := f.s.Dispatch(TakeRequested{Cell: lattice.Cell{X: 100, Y: 100}})
	if !errors.Is(res.Err, ErrNotVisible) {
		t.Fatalf("err=%v", res.Err)
	}
}

func TestMoveRegeneratesAndReusesRecords(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	a := lattice.Cell{X: 3, Y: 3}
	f.do(t, TakeRequested{Cell: a})
	clears := f.view.Clears

	if res := f.do(t, MoveRequested{Direction: movement.Right}); !res.Moved {
		t.Fatalf("press did not move")
	}
	if got := f.s.Mapper().CellOf(f.s.Position()); got != (lattice.Cell{X: 1, Y: 0}) {
		t.Fatalf("cell after move=%+v", got)
	}
	f.do(t, MoveRequested{Direction: movement.Left})
	if f.view.Clears != clears+2 {
		t.Fatalf("clears=%d want %d", f.view.Clears, clears+2)
	}
	if f.cell(t, a).Present {
		t.Fatalf("(3,3) re-rolled after leaving and returning")
	}
	if dc, ok := f.view.Cell(a); !ok || dc.Tooltip != nil {
		t.Fatalf("redrawn (3,3)=%+v ok=%v", dc, ok)
	}
	if len(f.s.Visible()) != 64 {
		t.Fatalf("visible=%d want 8x8", len(f.s.Visible()))
	}
	if f.view.Center != f.s.Position() || f.view.RangeCenter != f.s.Position() {
		t.Fatalf("view not recentered")
	}
	raw, _, _ := f.kv.Get(save.KeyPlayerPosition)
	if raw != "[0,0]" {
		t.Fatalf("saved position=%s", raw)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	store := kv.NewMemory()
	f := newFixture(t, Config{}, store)
	f.do(t, TakeRequested{Cell: lattice.Cell{X: 3, Y: 3}})
	f.do(t, MoveRequested{Direction: movement.Up})
	f.do(t, MoveRequested{Direction: movement.Up})
	want := f.s.Cells().Snapshot()

	g := newFixture(t, Config{}, store)
	if g.s.Held() != token.Of(4) {
		t.Fatalf("held=%v", g.s.Held())
	}
	if g.s.Position() != f.s.Position() {
		t.Fatalf("position=%+v want %+v", g.s.Position(), f.s.Position())
	}
	for k, r := range want {
		c, _ := lattice.ParseKey(k)
		if got, ok := g.s.Cells().Lookup(c); !ok || got != r {
			t.Fatalf("cell %s: got %+v want %+v", k, got, r)
		}
	}
}

func TestMalformedSaveFallsBackPerKey(t *testing.T) {
	store := kv.NewMemory()
	_ = store.Set(save.KeyCells, `garbage`)
	_ = store.Set(save.KeyHeldToken, `8`)
	_ = store.Set(save.KeyPlayerPosition, `{"x":1}`)
	_ = store.Set(save.KeyMovementMode, `"sideways"`)

	tun := testTuning()
	two := 2
	tun.StartingHeldToken = &two
	f := newFixture(t, Config{Tuning: tun}, store)
	if f.s.Held() != token.Of(8) {
		t.Fatalf("held=%v", f.s.Held())
	}
	if f.s.Position() != (lattice.Point{}) {
		t.Fatalf("position=%+v", f.s.Position())
	}
	if eff, req := f.s.Mode(); eff != movement.ModeButtons || req != movement.ModeButtons {
		t.Fatalf("mode eff=%s req=%s", eff, req)
	}
}

func TestStartingHeldTokenAppliesWhenAbsent(t *testing.T) {
	tun := testTuning()
	two := 2
	tun.StartingHeldToken = &two
	f := newFixture(t, Config{Tuning: tun}, nil)
	if f.s.Held() != token.Of(2) || f.view.Inventory != "2" {
		t.Fatalf("held=%v inventory=%q", f.s.Held(), f.view.Inventory)
	}
}

func TestGeoModeExclusivity(t *testing.T) {
	f := newFixture(t, Config{Mode: "geolocation", GeoSupported: true}, nil)
	if eff, _ := f.s.Mode(); eff != movement.ModeGeo || f.view.Controls.ButtonsEnabled {
		t.Fatalf("geo not effective: %+v", f.view.Controls)
	}
	if res := f.s.Dispatch(MoveRequested{Direction: movement.Up}); !errors.Is(res.Err, movement.ErrInactive) {
		t.Fatalf("button press in geo mode: %v", res.Err)
	}

	raw := movement.Fix{Lat: 0.00031, Lng: 0.00012}
	if res := f.do(t, FixReceived{Fix: raw}); !res.Moved || f.s.Position() != raw.Point() {
		t.Fatalf("first fix should jump to raw position, got %+v", f.s.Position())
	}
	saved, _, _ := f.kv.Get(save.KeyPlayerPosition)

	if res := f.do(t, FixReceived{Fix: movement.Fix{Lat: 0.00033, Lng: 0.00013}}); res.Moved {
		t.Fatalf("jitter moved the player")
	}
	if again, _, _ := f.kv.Get(save.KeyPlayerPosition); again != saved {
		t.Fatalf("jitter wrote position %s", again)
	}
	if res := f.do(t, FixReceived{Fix: movement.Fix{Lat: 0.00052, Lng: 0.00012}}); !res.Moved {
		t.Fatalf("two-tile fix did not move")
	}

	if eff := f.do(t, ModeRequested{Mode: movement.ModeButtons}).Mode; eff != movement.ModeButtons {
		t.Fatalf("switch to buttons: %s", eff)
	}
	if !f.view.Controls.ButtonsEnabled {
		t.Fatalf("buttons not enabled after switch")
	}
	pos := f.s.Position()
	if res := f.do(t, FixReceived{Fix: movement.Fix{Lat: 1, Lng: 1}}); res.Moved || f.s.Position() != pos {
		t.Fatalf("stale fix moved the player")
	}
	if res := f.do(t, MoveRequested{Direction: movement.Down}); !res.Moved {
		t.Fatalf("button press after switch did not move")
	}
	if raw, _, _ := f.kv.Get(save.KeyMovementMode); raw != `"buttons"` {
		t.Fatalf("saved mode=%s", raw)
	}
}

func TestGeoUnsupportedFallsBack(t *testing.T) {
	f := newFixture(t, Config{Mode: "geo"}, nil)
	eff, req := f.s.Mode()
	if eff != movement.ModeButtons || req != movement.ModeGeo {
		t.Fatalf("eff=%s req=%s", eff, req)
	}
	if !f.view.Controls.ButtonsEnabled || f.view.Controls.Requested != "geo" {
		t.Fatalf("controls=%+v", f.view.Controls)
	}
	if raw, _, _ := f.kv.Get(save.KeyMovementMode); raw != `"geo"` {
		t.Fatalf("stored mode changed to %s", raw)
	}
	if res := f.s.Dispatch(MoveRequested{Position: &lattice.Point{X: 1, Y: 1}}); !errors.Is(res.Err, movement.ErrInactive) {
		t.Fatalf("position move without geo: %v", res.Err)
	}
}

func TestSavedModeUsedWithoutOverride(t *testing.T) {
	store := kv.NewMemory()
	_ = store.Set(save.KeyMovementMode, `"geo"`)
	f := newFixture(t, Config{GeoSupported: true}, store)
	if eff, _ := f.s.Mode(); eff != movement.ModeGeo {
		t.Fatalf("saved geo not restored: %s", eff)
	}
	g := newFixture(t, Config{Mode: "buttons", GeoSupported: true}, store)
	if eff, _ := g.s.Mode(); eff != movement.ModeButtons {
		t.Fatalf("explicit override ignored: %s", eff)
	}
}

type memJournal struct{ entries []JournalEntry }

func (j *memJournal) WriteAction(e JournalEntry) error {
	j.entries = append(j.entries, e)
	return nil
}

func TestWinIsSignalledAndSticks(t *testing.T) {
	store := kv.NewMemory()
	_ = store.Set(save.KeyCells, `{"1,1":{"tokenValue":16}}`)
	_ = store.Set(save.KeyHeldToken, `16`)
	f := newFixture(t, Config{}, store)
	j := &memJournal{}
	f.s.SetJournal(j)
	c := lattice.Cell{X: 1, Y: 1}

	f.do(t, CombineRequested{Cell: c})
	if f.s.Won() {
		t.Fatalf("won before holding 32")
	}
	res := f.do(t, TakeRequested{Cell: c})
	if !res.Won || !f.s.Won() {
		t.Fatalf("holding %v did not win", f.s.Held())
	}
	want := "Congratulations! You've reached the win condition of 32!"
	if f.view.PlayerTooltip != want {
		t.Fatalf("tooltip=%q", f.view.PlayerTooltip)
	}
	f.do(t, StoreRequested{Cell: c})
	f.do(t, MoveRequested{Direction: movement.Up})
	if !f.s.Won() || f.view.PlayerTooltip != want {
		t.Fatalf("win flag lost: %q", f.view.PlayerTooltip)
	}

	if len(j.entries) != 3 {
		t.Fatalf("journal entries=%d", len(j.entries))
	}
	if e := j.entries[0]; e.Action != "combine" || e.Kind != "combine" || e.After.Cell != token.Of(32) || e.Before.Held != token.Of(16) {
		t.Fatalf("combine entry=%+v", e)
	}
}

func TestDispatchBeforeBoot(t *testing.T) {
	s := New(Config{Tuning: testTuning()}, render.NewRecorder(), save.New(kv.NewMemory(), quiet()), quiet())
	if res := s.Dispatch(MoveRequested{Direction: movement.Up}); !errors.Is(res.Err, ErrNotBooted) {
		t.Fatalf("err=%v", res.Err)
	}
}

func TestRunAppliesQueuedCommands(t *testing.T) {
	view := render.NewRecorder()
	s := New(Config{Tuning: testTuning(), Roll: rollHalf}, view, save.New(kv.NewMemory(), quiet()), quiet())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	res, err := s.Submit(ctx, TakeRequested{Cell: lattice.Cell{X: 3, Y: 3}})
	if err != nil || res.Err != nil {
		t.Fatalf("submit: %v %v", err, res.Err)
	}
	if res.Outcome.Held != token.Of(4) {
		t.Fatalf("outcome=%+v", res.Outcome)
	}
	if err := s.Post(ctx, MoveRequested{Direction: movement.Up}); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := s.Submit(ctx, OpenRequested{Cell: lattice.Cell{X: 3, Y: 3}}); err != nil {
		t.Fatalf("submit open: %v", err)
	}
	s.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := s.Mapper().CellOf(s.Position()); got != (lattice.Cell{X: 0, Y: 1}) {
		t.Fatalf("posted move not applied: %+v", got)
	}
}
