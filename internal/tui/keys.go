package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	ClickLeads key.Binding
	ClickOpps  key.Binding
	Up         key.Binding
	Down       key.Binding
	Tab        key.Binding
	Buy        key.Binding
	BulkBuy    key.Binding
	Powerup    key.Binding
	Acquire    key.Binding
	Workflow   key.Binding
	Pause      key.Binding
	Save       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		ClickLeads: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "generate lead")),
		ClickOpps:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "generate opportunity")),
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Tab:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "buildings/upgrades")),
		Buy:        key.NewBinding(key.WithKeys("enter", "b"), key.WithHelp("enter", "buy")),
		BulkBuy:    key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "buy x10")),
		Powerup:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "grab power-up")),
		Acquire:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle acquisition")),
		Workflow:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "toggle workflow")),
		Pause:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause")),
		Save:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ClickLeads, k.ClickOpps, k.Buy, k.Tab, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ClickLeads, k.ClickOpps, k.Powerup},
		{k.Up, k.Down, k.Tab, k.Buy, k.BulkBuy},
		{k.Acquire, k.Workflow, k.Pause, k.Save, k.Quit},
	}
}
