package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle  key.Binding
	Faster  key.Binding
	Slower  key.Binding
	Loop    key.Binding
	Next    key.Binding
	Replay  key.Binding
	Forward key.Binding
	Back    key.Binding
	Copy    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Faster:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
		Loop:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "loop")),
		Next:    key.NewBinding(key.WithKeys("n", "enter"), key.WithHelp("n/enter", "next item")),
		Replay:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "show again")),
		Forward: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "forward")),
		Back:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "back")),
		Copy:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy key")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Faster, k.Slower, k.Loop},
		{k.Next, k.Replay, k.Forward, k.Back},
		{k.Copy, k.Help, k.Quit},
	}
}
