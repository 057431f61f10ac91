package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Record key.Binding
	Picker key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Record: key.NewBinding(
			key.WithKeys(" ", "space", "r"),
			key.WithHelp("space/r", "record"),
		),
		Picker: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "audio input"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "done"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// mainKeys is the help for the main screen. The picker key is hidden while
// recording.
type mainKeys struct {
	keys      keyMap
	recording bool
}

func (k mainKeys) ShortHelp() []key.Binding {
	if k.recording {
		return []key.Binding{k.keys.Record, k.keys.Quit}
	}
	return []key.Binding{k.keys.Record, k.keys.Picker, k.keys.Quit}
}

func (k mainKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type pickerKeys struct{ keys keyMap }

func (k pickerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.keys.Select, k.keys.Back}
}

func (k pickerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
