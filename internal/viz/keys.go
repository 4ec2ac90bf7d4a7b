package viz

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit   key.Binding
	Pause  key.Binding
	Reset  key.Binding
	Back   key.Binding
	Ahead  key.Binding
	Faster key.Binding
	Slower key.Binding
	Theme  key.Binding
	Save   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Pause:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause")),
		Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Back:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "back")),
		Ahead:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "ahead")),
		Faster: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
		Theme:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Save:   key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "save gif")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Reset, k.Save, k.Theme, k.Quit},
		{k.Back, k.Ahead, k.Faster, k.Slower},
	}
}
