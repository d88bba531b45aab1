// Package tui is a bubbletea front end over a game session.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"worldofbits.io/internal/render"
	"worldofbits.io/internal/sim/game"
	"worldofbits.io/internal/sim/lattice"
	"worldofbits.io/internal/sim/movement"
)

var (
	mapStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("240"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1).
			Width(44)

	playerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	cacheStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	nearStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	winStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	faintStyle    = lipgloss.NewStyle().Faint(true)
)

// FixMsg delivers one position fix from a replayed track.
type FixMsg struct{ Fix movement.Fix }

// TrackDoneMsg reports the end of a replayed track.
type TrackDoneMsg struct{ Err error }

type Model struct {
	sess *game.Session
	view *render.Recorder
	keys keyMap

	selected *lattice.Cell
	status   string
	width    int
	height   int
}

// New wraps a booted session whose facade is view.
func New(sess *game.Session, view *render.Recorder) Model {
	return Model{sess: sess, view: view, keys: defaultKeys()}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case FixMsg:
		m.apply(game.FixReceived{Fix: msg.Fix})
		return m, nil

	case TrackDoneMsg:
		if msg.Err != nil {
			m.status = "track: " + msg.Err.Error()
		} else {
			m.status = "track finished"
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.sess.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.apply(game.MoveRequested{Direction: movement.Up})
		case key.Matches(msg, m.keys.Down):
			m.apply(game.MoveRequested{Direction: movement.Down})
		case key.Matches(msg, m.keys.Left):
			m.apply(game.MoveRequested{Direction: movement.Left})
		case key.Matches(msg, m.keys.Right):
			m.apply(game.MoveRequested{Direction: movement.Right})
		case key.Matches(msg, m.keys.Next):
			m.selectNext()
		case key.Matches(msg, m.keys.Take):
			m.act(func(c lattice.Cell) game.Command { return game.TakeRequested{Cell: c} })
		case key.Matches(msg, m.keys.Combine):
			m.act(func(c lattice.Cell) game.Command { return game.CombineRequested{Cell: c} })
		case key.Matches(msg, m.keys.Store):
			m.act(func(c lattice.Cell) game.Command { return game.StoreRequested{Cell: c} })
		case key.Matches(msg, m.keys.Mode):
			next := movement.ModeGeo
			if _, req := m.sess.Mode(); req == movement.ModeGeo {
				next = movement.ModeButtons
			}
			m.apply(game.ModeRequested{Mode: next})
		}
	}
	return m, nil
}

func (m *Model) apply(cmd game.Command) game.Result {
	res := m.sess.Dispatch(cmd)
	switch c := cmd.(type) {
	case game.MoveRequested, game.FixReceived:
		if res.Moved {
			m.selected = nil
		}
	case game.ModeRequested:
		eff, req := m.sess.Mode()
		m.status = fmt.Sprintf("mode %s (requested %s)", eff, req)
		if eff != c.Mode {
			m.status += "; no position source, using buttons"
		}
	}
	if res.Err != nil {
		m.status = res.Err.Error()
	}
	return res
}

func (m *Model) act(build func(lattice.Cell) game.Command) {
	if m.selected == nil {
		m.status = "no cache selected (tab)"
		return
	}
	res := m.apply(build(*m.selected))
	if res.Err == nil {
		m.status = ""
	}
}

// nearby lists visible caches within interaction range, closest first.
func (m Model) nearby() []lattice.Cell {
	pos := m.sess.Position()
	mapper := m.sess.Mapper()
	var out []lattice.Cell
	for _, c := range m.sess.Visible() {
		if m.sess.InRange(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lattice.DistanceMeters(pos, mapper.PointOf(out[i])) < lattice.DistanceMeters(pos, mapper.PointOf(out[j]))
	})
	return out
}

func (m *Model) selectNext() {
	near := m.nearby()
	if len(near) == 0 {
		m.selected = nil
		m.status = "no cache in range"
		return
	}
	i := 0
	if m.selected != nil {
		for j, c := range near {
			if c == *m.selected {
				i = (j + 1) % len(near)
				break
			}
		}
	}
	c := near[i]
	m.selected = &c
	m.apply(game.OpenRequested{Cell: c})
}

func (m Model) View() string {
	grid := mapStyle.Render(m.grid())
	panel := panelStyle.Render(m.panel())
	return lipgloss.JoinHorizontal(lipgloss.Top, grid, panel)
}

func (m Model) grid() string {
	mapper := m.sess.Mapper()
	center := mapper.CellOf(m.sess.Position())
	r := m.sess.Tuning().WindowRadius

	var b strings.Builder
	for y := center.Y + r - 1; y >= center.Y-r; y-- {
		for x := center.X - r; x < center.X+r; x++ {
			c := lattice.Cell{X: x, Y: y}
			b.WriteString(m.glyph(c, center))
		}
		if y > center.Y-r {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m Model) glyph(c, player lattice.Cell) string {
	if c == player {
		return playerStyle.Render(" @")
	}
	dc, ok := m.view.Cell(c)
	if !ok {
		return "  "
	}
	s := " ·"
	if dc.Tooltip != nil {
		s = fmt.Sprintf("%2s", *dc.Tooltip)
		if len(s) > 2 {
			s = " +"
		}
	}
	switch {
	case m.selected != nil && *m.selected == c:
		return selectedStyle.Render(s)
	case m.sess.InRange(c):
		return nearStyle.Render(s)
	default:
		return cacheStyle.Render(s)
	}
}

func (m Model) panel() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("World of Bits"))
	b.WriteString("\n\n")

	pos := m.sess.Position()
	fmt.Fprintf(&b, "%s at %.4f,%.4f\n", m.view.PlayerTooltip, pos.Y, pos.X)
	held := m.view.Inventory
	if held == "" {
		held = "-"
	}
	fmt.Fprintf(&b, "Holding: %s\n", held)

	ctl := m.view.Controls
	buttons := "off"
	if ctl.ButtonsEnabled {
		buttons = "on"
	}
	fmt.Fprintf(&b, "Mode: %s (requested %s), buttons %s\n", ctl.Mode, ctl.Requested, buttons)

	if m.sess.Won() {
		b.WriteString("\n" + winStyle.Render(m.view.PlayerTooltip) + "\n")
	}

	if m.selected != nil {
		if dc, ok := m.view.Cell(*m.selected); ok && dc.Popup != nil {
			p := dc.Popup
			b.WriteString("\n" + p.Message + "\n")
			b.WriteString(action("t", "Take", p.Controls.Take) + " ")
			b.WriteString(action("c", "Combine", p.Controls.Combine) + " ")
			b.WriteString(action("x", "Store", p.Controls.Store) + "\n")
		}
	}
	if m.status != "" {
		b.WriteString("\n" + faintStyle.Render(m.status) + "\n")
	}

	b.WriteString("\n")
	for _, k := range m.keys.help() {
		h := k.Help()
		b.WriteString(faintStyle.Render(h.Key+" "+h.Desc) + "\n")
	}
	return b.String()
}

func action(k, label string, enabled bool) string {
	s := "[" + k + "] " + label
	if !enabled {
		return faintStyle.Render(s)
	}
	return nearStyle.Render(s)
}
