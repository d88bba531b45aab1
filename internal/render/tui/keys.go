package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Next    key.Binding
	Take    key.Binding
	Combine key.Binding
	Store   key.Binding
	Mode    key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "w"), key.WithHelp("↑/w", "north")),
		Down:    key.NewBinding(key.WithKeys("down", "s"), key.WithHelp("↓/s", "south")),
		Left:    key.NewBinding(key.WithKeys("left", "a"), key.WithHelp("←/a", "west")),
		Right:   key.NewBinding(key.WithKeys("right", "d"), key.WithHelp("→/d", "east")),
		Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next cache")),
		Take:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "take")),
		Combine: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "combine")),
		Store:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "store")),
		Mode:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "toggle mode")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Next, k.Take, k.Combine, k.Store, k.Mode, k.Quit}
}
